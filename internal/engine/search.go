package engine

import (
	"math/rand"
	"time"
)

const (
	DefaultDepth = 4
	MaxDepth     = 10

	// scoreInf lies outside every score the search can produce.
	scoreInf = 2 * WinScore
	// winMargin separates decided scores from heuristic ones.
	winMargin = 1000
)

type Options struct {
	Depth   int
	Timeout time.Duration
	Radius  int
	// Pruning enables alpha-beta cutoffs. Without it the search visits the
	// full tree and must reach the same move and score.
	Pruning  bool
	UseCache bool
	Killers  bool
	// Tactics runs the threat checks of FindBestMove before the tree search.
	Tactics bool
	Weights Weights
}

func DefaultOptions() Options {
	return Options{
		Depth:    DefaultDepth,
		Radius:   DefaultRadius,
		Pruning:  true,
		UseCache: true,
		Killers:  true,
		Tactics:  true,
	}
}

type Result struct {
	Move     Move
	Score    int
	Depth    int
	Nodes    int64
	Elapsed  time.Duration
	TimedOut bool
	Report   Report
	Stats    *SearchStats
}

// Searcher picks moves for one side. It holds a random source and is not
// safe for concurrent use; the transposition table it points at is.
type Searcher struct {
	opts      Options
	table     *ThreatTable
	tt        *TranspositionTable
	rng       *rand.Rand
	signature uint64
}

// NewSearcher builds a searcher. A nil table disables caching and a nil rng
// makes every tie break toward the first candidate in priority order.
func NewSearcher(opts Options, tt *TranspositionTable, rng *rand.Rand) *Searcher {
	if opts.Depth < 1 {
		opts.Depth = 1
	}
	if opts.Depth > MaxDepth {
		opts.Depth = MaxDepth
	}
	if opts.Radius < 1 {
		opts.Radius = DefaultRadius
	}
	if opts.Radius > MaxRadius {
		opts.Radius = MaxRadius
	}
	table := DefaultThreatTable()
	if opts.Weights != (Weights{}) && opts.Weights.Resolved() != DefaultWeights() {
		table = NewThreatTable(opts.Weights)
	}
	if tt == nil {
		opts.UseCache = false
	}
	return &Searcher{
		opts:      opts,
		table:     table,
		tt:        tt,
		rng:       rng,
		signature: hashUint64(table.Signature(), uint64(opts.Radius)),
	}
}

func (s *Searcher) Options() Options {
	return s.opts
}

func (s *Searcher) Table() *ThreatTable {
	return s.table
}

type searchContext struct {
	s           *Searcher
	b           *Board
	root        Player
	z           *ZobristTable
	killers     [][]Move
	deadline    time.Time
	hasDeadline bool
	timedOut    bool
	stats       *SearchStats
}

func (s *Searcher) newContext(b *Board, root Player, start time.Time) *searchContext {
	ctx := &searchContext{
		s:     s,
		b:     b,
		root:  root,
		z:     GetZobrist(b.Size()),
		stats: &SearchStats{Start: start},
	}
	if s.opts.Killers {
		ctx.killers = make([][]Move, s.opts.Depth+2)
	}
	if s.opts.Timeout > 0 {
		ctx.deadline = start.Add(s.opts.Timeout)
		ctx.hasDeadline = true
	}
	return ctx
}

func (c *searchContext) expired() bool {
	if c.timedOut {
		return true
	}
	if c.hasDeadline && time.Now().After(c.deadline) {
		c.timedOut = true
	}
	return c.timedOut
}

func (c *searchContext) isKiller(ply int, m Move) bool {
	if ply < 0 || ply >= len(c.killers) {
		return false
	}
	for _, k := range c.killers[ply] {
		if k.Equals(m) {
			return true
		}
	}
	return false
}

func (c *searchContext) recordKiller(ply int, m Move) {
	if ply < 0 || ply >= len(c.killers) {
		return
	}
	killers := c.killers[ply]
	switch {
	case len(killers) == 0:
		c.killers[ply] = []Move{m}
	case killers[0].Equals(m):
	case len(killers) == 1:
		c.killers[ply] = []Move{killers[0], m}
	default:
		c.killers[ply] = []Move{m, killers[0]}
	}
}

// tryMove plays m for p, searches the reply and takes the stone back even
// if the search unwinds early.
func (c *searchContext) tryMove(m Move, p Player, depth, ply, alpha, beta int) int {
	if err := c.b.Place(m.X, m.Y, p); err != nil {
		if p == c.root {
			return -scoreInf
		}
		return scoreInf
	}
	defer c.b.Remove(m.X, m.Y)
	return c.minimax(depth-1, ply+1, p.Other(), m, alpha, beta)
}

func (c *searchContext) minimax(depth, ply int, toMove Player, last Move, alpha, beta int) int {
	if c.expired() {
		return c.s.table.Evaluate(c.b, c.root)
	}
	c.stats.Nodes++

	key := c.z.Key(c.b.Hash(), c.root, toMove)
	var pv *Move
	if c.s.opts.UseCache {
		c.stats.TTProbes++
		if entry, ok := c.s.tt.Probe(key, c.s.signature); ok {
			c.stats.TTHits++
			if entry.BestMove.IsValid(c.b.Size()) && c.b.IsEmpty(entry.BestMove.X, entry.BestMove.Y) {
				move := entry.BestMove
				pv = &move
			}
			if ret, value := c.applyTTEntry(entry, depth, &alpha, &beta); ret {
				return value
			}
		}
	}

	if c.b.fiveThrough(last.X, last.Y) {
		value := -WinScore - depth
		if toMove.Other() == c.root {
			value = WinScore + depth
		}
		c.store(key, depth, value, TTExact, NoMove)
		return value
	}
	if depth <= 0 {
		value := c.s.table.Evaluate(c.b, c.root)
		c.store(key, depth, value, TTExact, NoMove)
		return value
	}

	moves := Candidates(c.b, c.s.opts.Radius)
	if len(moves) == 0 {
		return 0
	}
	var killerAt func(Move) bool
	if c.killers != nil {
		killerAt = func(m Move) bool { return c.isKiller(ply, m) }
	}
	moves = orderMoves(c.b, moves, toMove, killerAt)
	if pv != nil {
		moves = promote(moves, *pv)
	}

	maximizing := toMove == c.root
	alphaOrig, betaOrig := alpha, beta
	best := scoreInf + 1
	if maximizing {
		best = -scoreInf - 1
	}
	bestMove := NoMove
	for _, m := range moves {
		if c.expired() {
			break
		}
		v := c.tryMove(m, toMove, depth, ply, alpha, beta)
		if maximizing {
			if v > best {
				best, bestMove = v, m
			}
			alpha = max(alpha, v)
			if v >= WinScore-winMargin {
				break
			}
		} else {
			if v < best {
				best, bestMove = v, m
			}
			beta = min(beta, v)
			if v <= -WinScore+winMargin {
				break
			}
		}
		if c.s.opts.Pruning && alpha >= beta {
			c.stats.Cutoffs++
			if c.killers != nil {
				c.recordKiller(ply, m)
			}
			break
		}
	}
	if c.timedOut {
		return best
	}

	flag := TTExact
	if best <= alphaOrig {
		flag = TTUpper
	} else if best >= betaOrig {
		flag = TTLower
	}
	c.store(key, depth, best, flag, bestMove)
	return best
}

func (c *searchContext) applyTTEntry(entry TTEntry, depth int, alpha, beta *int) (ret bool, value int) {
	if entry.Depth < depth {
		return false, 0
	}
	value = entry.Value(depth)
	switch entry.Flag {
	case TTExact:
		return true, value
	case TTLower:
		if !c.s.opts.Pruning {
			return false, 0
		}
		*alpha = max(*alpha, value)
	case TTUpper:
		if !c.s.opts.Pruning {
			return false, 0
		}
		*beta = min(*beta, value)
	}
	if *alpha >= *beta {
		c.stats.Cutoffs++
		return true, value
	}
	return false, 0
}

func (c *searchContext) store(key uint64, depth, value int, flag TTFlag, best Move) {
	if !c.s.opts.UseCache || c.timedOut {
		return
	}
	c.stats.TTStores++
	if _, overwrote := c.s.tt.Store(key, c.s.signature, depth, value, flag, best); overwrote {
		c.stats.TTOverwrites++
	}
}

func promote(moves []Move, m Move) []Move {
	for i := range moves {
		if moves[i].Equals(m) {
			copy(moves[1:i+1], moves[:i])
			moves[0] = m
			break
		}
	}
	return moves
}

// Search runs iterative-deepening minimax for p and returns the best move of
// the deepest completed iteration. If no iteration completes before the
// deadline it falls back to the highest priority candidate.
func (s *Searcher) Search(b *Board, p Player) Result {
	start := time.Now()
	ctx := s.newContext(b, p, start)
	res := s.search(ctx, OrderedCandidates(b, p, s.opts.Radius))
	res.Elapsed = time.Since(start)
	return res
}

func (s *Searcher) search(ctx *searchContext, moves []Move) Result {
	b, p := ctx.b, ctx.root
	res := Result{Move: NoMove, Stats: ctx.stats}
	if len(moves) == 0 || b.Full() {
		return res
	}
	if s.tt != nil && s.opts.UseCache {
		s.tt.NextGeneration()
	}
	for _, m := range moves {
		if b.WinsAt(m.X, m.Y, p) {
			res.Move, res.Score, res.Depth = m, WinScore, 1
			return res
		}
	}

	res.Move = moves[0]
	for depth := 1; depth <= s.opts.Depth; depth++ {
		if ctx.expired() {
			break
		}
		depthStart := time.Now()
		bestScore := -scoreInf - 1
		var ties []Move
		for _, m := range moves {
			if ctx.expired() {
				break
			}
			v := ctx.tryMove(m, p, depth, 0, -scoreInf, scoreInf)
			if ctx.timedOut {
				break
			}
			if v > bestScore {
				bestScore = v
				ties = append(ties[:0], m)
				if v >= WinScore-winMargin {
					res.Move, res.Score, res.Depth = m, v, depth
					ctx.stats.CompletedDepths = depth
					res.Nodes = ctx.stats.Nodes
					return res
				}
			} else if v == bestScore {
				ties = append(ties, m)
			}
		}
		if ctx.timedOut || len(ties) == 0 {
			break
		}
		res.Move = ties[0]
		if s.rng != nil && len(ties) > 1 {
			res.Move = ties[s.rng.Intn(len(ties))]
		}
		res.Score, res.Depth = bestScore, depth
		ctx.stats.CompletedDepths = depth
		ctx.stats.DepthDurations = append(ctx.stats.DepthDurations, time.Since(depthStart))
	}
	res.TimedOut = ctx.timedOut
	res.Nodes = ctx.stats.Nodes
	return res
}
