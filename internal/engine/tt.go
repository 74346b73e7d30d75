package engine

import (
	"cmp"
	"math"
	"math/bits"
	"slices"
	"sync"
	"sync/atomic"
)

type TTFlag uint8

const (
	TTExact TTFlag = iota
	TTLower
	TTUpper
)

func (f TTFlag) String() string {
	switch f {
	case TTLower:
		return "lower"
	case TTUpper:
		return "upper"
	default:
		return "exact"
	}
}

const maxShards = 64

// TTEntry is one cached search result. Signature ties it to the heuristic
// weights and radius that produced it. Decided scores are kept relative to
// the node that stored them; read them back with Value.
type TTEntry struct {
	Key         uint64
	Signature   uint64
	Depth       int
	Score       int32
	Flag        TTFlag
	BestMove    Move
	Hits        uint32
	GenWritten  uint32
	GenLastUsed uint32
	Valid       bool
}

// Value is the entry's score for a node with depth plies left to search.
func (e TTEntry) Value(depth int) int {
	v := int(e.Score)
	switch {
	case v >= WinScore-winMargin:
		return v + depth
	case v <= -WinScore+winMargin:
		return v - depth
	}
	return v
}

// ttScore drops the remaining depth from a decided score so the same win
// reads correctly from a node searched to another depth.
func ttScore(value, depth int) int32 {
	switch {
	case value >= WinScore-winMargin:
		value -= depth
	case value <= -WinScore+winMargin:
		value += depth
	}
	return clampScore(value)
}

// worth orders resident entries for eviction. Deep entries outlive shallow
// ones, and every search since the entry was last read costs it a point.
func (e *TTEntry) worth(gen uint32) int {
	age := int(int32(gen - e.GenLastUsed))
	return 4*e.Depth + min(int(e.Hits), 4) - age
}

// better reports whether a fresh result for the same position should
// replace e.
func (e *TTEntry) better(depth int, flag TTFlag) bool {
	if depth != e.Depth {
		return depth > e.Depth
	}
	return flag == TTExact || e.Flag != TTExact
}

// ttShard owns a run of clusters; each cluster holds ways entries.
type ttShard struct {
	mu    sync.Mutex
	slots []TTEntry
}

// TranspositionTable caches search results for every search in the
// process. The top bits of a key pick the shard and the low bits the
// cluster inside it.
type TranspositionTable struct {
	shards     []ttShard
	shardShift uint
	clusters   uint64
	ways       int
	used       atomic.Int64
	gen        atomic.Uint32
}

// NewTranspositionTable holds size clusters (rounded up to a power of two)
// of ways entries each.
func NewTranspositionTable(size uint64, ways int) *TranspositionTable {
	ways = max(ways, 1)
	size = max(size, 1)
	size = 1 << bits.Len64(size-1)

	shards := min(size, maxShards)
	tt := &TranspositionTable{
		shards:     make([]ttShard, shards),
		shardShift: uint(64 - bits.TrailingZeros64(shards)),
		clusters:   size / shards,
		ways:       ways,
	}
	for i := range tt.shards {
		tt.shards[i].slots = make([]TTEntry, int(tt.clusters)*ways)
	}
	tt.gen.Store(1)
	return tt
}

// locate returns the shard for key and the first slot of its cluster.
func (tt *TranspositionTable) locate(key uint64) (*ttShard, int) {
	return &tt.shards[key>>tt.shardShift], int(key&(tt.clusters-1)) * tt.ways
}

// NextGeneration starts a new search. Generation zero is skipped.
func (tt *TranspositionTable) NextGeneration() {
	if tt.gen.Add(1) == 0 {
		tt.gen.Add(1)
	}
}

func (tt *TranspositionTable) Generation() uint32 {
	return tt.gen.Load()
}

func (tt *TranspositionTable) Clear() {
	for i := range tt.shards {
		s := &tt.shards[i]
		s.mu.Lock()
		clear(s.slots)
		s.mu.Unlock()
	}
	tt.used.Store(0)
	tt.gen.Store(1)
}

// Probe returns the entry for key and counts the hit.
func (tt *TranspositionTable) Probe(key, signature uint64) (TTEntry, bool) {
	s, base := tt.locate(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := base; i < base+tt.ways; i++ {
		e := &s.slots[i]
		if e.Valid && e.Key == key && e.Signature == signature {
			e.Hits++
			e.GenLastUsed = tt.gen.Load()
			return *e, true
		}
	}
	return TTEntry{}, false
}

// Store records a search result for a node with depth plies left. A result
// for a position already cached replaces it only when it searched deeper,
// or as deep with at least as exact a bound; overwrote reports that case.
// Otherwise the entry takes a free way or evicts the least worth one, and
// replaced reports an eviction.
func (tt *TranspositionTable) Store(key, signature uint64, depth int, score int, flag TTFlag, best Move) (replaced bool, overwrote bool) {
	gen := tt.gen.Load()
	return tt.put(TTEntry{
		Key:         key,
		Signature:   signature,
		Depth:       depth,
		Score:       ttScore(score, depth),
		Flag:        flag,
		BestMove:    best,
		GenWritten:  gen,
		GenLastUsed: gen,
		Valid:       true,
	})
}

func (tt *TranspositionTable) put(fresh TTEntry) (replaced bool, overwrote bool) {
	s, base := tt.locate(fresh.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	cluster := s.slots[base : base+tt.ways]

	victim := -1
	for i := range cluster {
		e := &cluster[i]
		switch {
		case e.Valid && e.Key == fresh.Key && e.Signature == fresh.Signature:
			if !e.better(fresh.Depth, fresh.Flag) {
				return false, false
			}
			fresh.Hits = e.Hits
			*e = fresh
			return false, true
		case !e.Valid:
			if victim < 0 || cluster[victim].Valid {
				victim = i
			}
		case victim < 0 || (cluster[victim].Valid && e.worth(fresh.GenWritten) < cluster[victim].worth(fresh.GenWritten)):
			victim = i
		}
	}
	replaced = cluster[victim].Valid
	if !replaced {
		tt.used.Add(1)
	}
	cluster[victim] = fresh
	return replaced, false
}

// TopEntriesByHits pages through valid entries, most used first. Ties go
// to deeper, then more recently used entries.
func (tt *TranspositionTable) TopEntriesByHits(offset int, limit int) ([]TTEntry, int) {
	if limit <= 0 {
		limit = 10
	}
	offset = max(offset, 0)
	all := tt.Snapshot()
	slices.SortFunc(all, func(a, b TTEntry) int {
		return cmp.Or(
			cmp.Compare(b.Hits, a.Hits),
			cmp.Compare(b.Depth, a.Depth),
			cmp.Compare(b.GenLastUsed, a.GenLastUsed),
			cmp.Compare(a.Key, b.Key),
		)
	})
	if offset >= len(all) {
		return []TTEntry{}, len(all)
	}
	return all[offset:min(offset+limit, len(all))], len(all)
}

func (tt *TranspositionTable) Count() int {
	return int(tt.used.Load())
}

func (tt *TranspositionTable) Capacity() int {
	if tt == nil {
		return 0
	}
	return len(tt.shards) * int(tt.clusters) * tt.ways
}

// Snapshot copies out the valid entries one shard at a time.
func (tt *TranspositionTable) Snapshot() []TTEntry {
	out := make([]TTEntry, 0, tt.Count())
	for i := range tt.shards {
		s := &tt.shards[i]
		s.mu.Lock()
		for _, e := range s.slots {
			if e.Valid {
				out = append(out, e)
			}
		}
		s.mu.Unlock()
	}
	return out
}

// Load puts snapshotted entries back as they were, scores and hit counts
// included, stamped with the current generation. It returns the resulting
// entry count.
func (tt *TranspositionTable) Load(entries []TTEntry) int {
	gen := tt.gen.Load()
	for _, e := range entries {
		if !e.Valid {
			continue
		}
		e.GenWritten, e.GenLastUsed = gen, gen
		tt.put(e)
	}
	return tt.Count()
}

func clampScore(value int) int32 {
	return int32(min(max(value, math.MinInt32), math.MaxInt32))
}
