package engine

import "sync"

// ZobristTable holds the per-cell keys for one board size. Tables are
// deterministic so fingerprints survive process restarts.
type ZobristTable struct {
	size        int
	cells       []uint64
	side        uint64
	perspective [2]uint64
}

type zobristStore struct {
	mu     sync.Mutex
	tables map[int]*ZobristTable
}

var zobristTables = &zobristStore{tables: make(map[int]*ZobristTable)}

func GetZobrist(size int) *ZobristTable {
	zobristTables.mu.Lock()
	defer zobristTables.mu.Unlock()
	if table, ok := zobristTables.tables[size]; ok {
		return table
	}
	rng := splitmix64{state: uint64(0x9e3779b97f4a7c15) ^ uint64(size)}
	table := &ZobristTable{size: size, cells: make([]uint64, size*size*2)}
	for i := range table.cells {
		table.cells[i] = rng.next()
	}
	table.side = rng.next()
	table.perspective[0] = rng.next()
	table.perspective[1] = rng.next()
	zobristTables.tables[size] = table
	return table
}

func (z *ZobristTable) stone(idx int, p Player) uint64 {
	idx *= 2
	if p == PlayerO {
		idx++
	}
	return z.cells[idx]
}

// Key mixes a board fingerprint with the searching side and the side to
// move, so entries from searches on behalf of X never answer for O.
func (z *ZobristTable) Key(boardHash uint64, root, toMove Player) uint64 {
	key := boardHash
	if root == PlayerO {
		key ^= z.perspective[1]
	} else {
		key ^= z.perspective[0]
	}
	if toMove != root {
		key ^= z.side
	}
	return key
}

// ComputeHash rebuilds the fingerprint from scratch. The board maintains
// it incrementally; this exists to check that bookkeeping.
func ComputeHash(b *Board) uint64 {
	z := GetZobrist(b.Size())
	var hash uint64
	for idx, cell := range b.cells {
		if cell == CellEmpty {
			continue
		}
		hash ^= z.stone(idx, Player(cell))
	}
	return hash
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
