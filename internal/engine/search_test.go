package engine

import (
	"math/rand"
	"testing"
	"time"
)

func quietOptions(depth int, pruning bool) Options {
	return Options{Depth: depth, Radius: 1, Pruning: pruning, Killers: true}
}

func TestNewSearcherClampsOptions(t *testing.T) {
	s := NewSearcher(Options{Depth: 50, Radius: 9, UseCache: true}, nil, nil)
	opts := s.Options()
	if opts.Depth != MaxDepth || opts.Radius != MaxRadius {
		t.Fatalf("expected clamped options, got %+v", opts)
	}
	if opts.UseCache {
		t.Fatalf("cache must be off without a table")
	}
	s = NewSearcher(Options{Depth: -1}, nil, nil)
	if s.Options().Depth != 1 || s.Options().Radius != DefaultRadius {
		t.Fatalf("expected minimums, got %+v", s.Options())
	}
	if NewSearcher(Options{Weights: Weights{Two: 60}}, nil, nil).Table() == DefaultThreatTable() {
		t.Fatalf("custom weights need their own table")
	}
}

func TestSearchTakesWinInOne(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, row(7, 3, 4, 5, 6)...)
	place(t, b, PlayerO, Move{X: 7, Y: 2}, Move{X: 6, Y: 6}, Move{X: 8, Y: 8})
	for depth := 1; depth <= 3; depth++ {
		s := NewSearcher(Options{Depth: depth, Radius: 2, Pruning: true}, nil, nil)
		res := s.Search(b, PlayerX)
		if !res.Move.Equals(Move{X: 7, Y: 7}) {
			t.Fatalf("depth %d: expected [7, 7], got %s", depth, res.Move)
		}
		if res.Score < WinScore-winMargin {
			t.Fatalf("depth %d: expected a winning score, got %d", depth, res.Score)
		}
	}
}

func TestWinningBeatsBlocking(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, row(7, 3, 4, 5, 6)...)
	place(t, b, PlayerX, Move{X: 2, Y: 2})
	place(t, b, PlayerO, row(2, 3, 4, 5, 6)...)
	place(t, b, PlayerO, Move{X: 7, Y: 2})

	s := NewSearcher(DefaultOptions(), NewTranspositionTable(1<<12, 2), nil)
	if res := s.Search(b, PlayerX); !res.Move.Equals(Move{X: 7, Y: 7}) {
		t.Fatalf("search: expected [7, 7], got %s", res.Move)
	}
	res := s.FindBestMove(b, PlayerX)
	if !res.Move.Equals(Move{X: 7, Y: 7}) {
		t.Fatalf("pipeline: expected [7, 7], got %s", res.Move)
	}
	if step, ok := res.Report.Decisive(); !ok || step.Evaluator != StepHaveWin {
		t.Fatalf("expected have_win to decide, got %+v", step)
	}
}

func TestSearchBlocksFour(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerO, row(7, 3, 4, 5, 6)...)
	place(t, b, PlayerX, Move{X: 7, Y: 2}, Move{X: 10, Y: 10})
	s := NewSearcher(Options{Depth: 2, Radius: 2, Pruning: true, Killers: true}, nil, nil)
	res := s.Search(b, PlayerX)
	if !res.Move.Equals(Move{X: 7, Y: 7}) {
		t.Fatalf("expected block at [7, 7], got %s (score %d)", res.Move, res.Score)
	}
}

func TestPruningMatchesFullMinimax(t *testing.T) {
	positions := []struct {
		x, o []Move
	}{
		{x: []Move{{4, 4}, {2, 5}}, o: []Move{{4, 5}, {5, 3}}},
		{x: []Move{{3, 3}, {5, 4}}, o: []Move{{4, 4}, {3, 5}}},
	}
	for i, pos := range positions {
		b := mustBoard(t, 9)
		place(t, b, PlayerX, pos.x...)
		place(t, b, PlayerO, pos.o...)
		for depth := 2; depth <= 3; depth++ {
			full := NewSearcher(quietOptions(depth, false), nil, nil).Search(b, PlayerX)
			pruned := NewSearcher(quietOptions(depth, true), nil, nil).Search(b, PlayerX)
			if !full.Move.Equals(pruned.Move) || full.Score != pruned.Score {
				t.Fatalf("position %d depth %d: full %s/%d, pruned %s/%d",
					i, depth, full.Move, full.Score, pruned.Move, pruned.Score)
			}
			if pruned.Nodes > full.Nodes {
				t.Fatalf("position %d depth %d: pruning visited more nodes (%d > %d)",
					i, depth, pruned.Nodes, full.Nodes)
			}
		}
	}
}

func TestSearchFullBoard(t *testing.T) {
	b := fullDrawBoard(t)
	s := NewSearcher(DefaultOptions(), nil, nil)
	if res := s.Search(b, PlayerX); !res.Move.Equals(NoMove) {
		t.Fatalf("search on a full board: got %s", res.Move)
	}
	if res := s.FindBestMove(b, PlayerO); !res.Move.Equals(NoMove) {
		t.Fatalf("pipeline on a full board: got %s", res.Move)
	}
}

func TestSearchLeavesBoardUntouched(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{7, 7}, Move{7, 8}, Move{8, 6})
	place(t, b, PlayerO, Move{6, 7}, Move{8, 8}, Move{6, 9})
	before := b.Clone()
	s := NewSearcher(Options{Depth: 3, Radius: 2, Pruning: true, UseCache: true, Killers: true, Tactics: true},
		NewTranspositionTable(1<<14, 2), rand.New(rand.NewSource(1)))
	s.Search(b, PlayerO)
	s.FindBestMove(b, PlayerX)
	if !b.Equal(before) || b.Hash() != before.Hash() {
		t.Fatalf("search changed the board")
	}
}

func TestSearchHonoursDeadline(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{7, 7}, Move{7, 8}, Move{8, 6}, Move{5, 5})
	place(t, b, PlayerO, Move{6, 7}, Move{8, 8}, Move{6, 9}, Move{9, 9})
	s := NewSearcher(Options{Depth: MaxDepth, Radius: 2, Pruning: true, Killers: true, Timeout: 30 * time.Millisecond}, nil, nil)
	res := s.Search(b, PlayerX)
	if !res.TimedOut {
		t.Fatalf("depth %d should not finish in 30ms", MaxDepth)
	}
	if !res.Move.IsValid(15) || !b.IsEmpty(res.Move.X, res.Move.Y) {
		t.Fatalf("expected a legal move, got %s", res.Move)
	}
	if res.Elapsed > 2*time.Second {
		t.Fatalf("search overran its deadline: %s", res.Elapsed)
	}
}

func TestSearchFallsBackToBestCandidate(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{7, 7})
	place(t, b, PlayerO, Move{7, 8})
	s := NewSearcher(Options{Depth: 4, Radius: 2, Pruning: true, Timeout: time.Nanosecond}, nil, nil)
	res := s.Search(b, PlayerX)
	want := OrderedCandidates(b, PlayerX, 2)[0]
	if !res.Move.Equals(want) || res.Depth != 0 {
		t.Fatalf("expected fallback %s at depth 0, got %s at depth %d", want, res.Move, res.Depth)
	}
}

func TestSearchReusesCache(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{7, 7}, Move{8, 8})
	place(t, b, PlayerO, Move{7, 8}, Move{6, 6})
	tt := NewTranspositionTable(1<<14, 2)
	s := NewSearcher(Options{Depth: 2, Radius: 1, Pruning: true, UseCache: true}, tt, nil)
	s.Search(b, PlayerX)
	if tt.Count() == 0 {
		t.Fatalf("expected stored entries")
	}
	res := s.Search(b, PlayerX)
	if res.Stats.TTHits == 0 {
		t.Fatalf("second search should hit the cache")
	}
}

func TestSearchSameWithFreshCache(t *testing.T) {
	positions := []struct {
		size int
		x, o []Move
	}{
		{9, []Move{{4, 4}, {2, 5}}, []Move{{4, 5}, {5, 3}}},
		{9, []Move{{3, 3}, {5, 4}}, []Move{{4, 4}, {3, 5}}},
		{15, []Move{{7, 7}, {7, 8}, {8, 6}}, []Move{{6, 7}, {8, 8}, {6, 9}}},
		{15, []Move{{7, 4}, {7, 5}, {8, 6}}, []Move{{6, 6}, {8, 8}, {7, 3}}},
		{15, []Move{{7, 7}, {8, 8}, {9, 9}}, []Move{{6, 6}, {7, 8}, {10, 10}}},
	}
	for i, pos := range positions {
		b := mustBoard(t, pos.size)
		place(t, b, PlayerX, pos.x...)
		place(t, b, PlayerO, pos.o...)
		for depth := 1; depth <= 3; depth++ {
			opts := Options{Depth: depth, Radius: 1, Pruning: true, Killers: true}
			plain := NewSearcher(opts, nil, nil).Search(b, PlayerO)
			opts.UseCache = true
			tt := NewTranspositionTable(1<<14, 2)
			cached := NewSearcher(opts, tt, nil).Search(b, PlayerO)
			if !plain.Move.Equals(cached.Move) || plain.Score != cached.Score || plain.Depth != cached.Depth {
				t.Fatalf("position %d depth %d: without cache %s/%d, with cache %s/%d",
					i, depth, plain.Move, plain.Score, cached.Move, cached.Score)
			}
			if depth > 1 && tt.Count() == 0 {
				t.Fatalf("position %d depth %d: cache left empty", i, depth)
			}
		}
	}
}

func TestSearchAgesCacheOnce(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{7, 7})
	place(t, b, PlayerO, Move{7, 8})
	tt := NewTranspositionTable(1<<10, 2)
	s := NewSearcher(Options{Depth: 1, Radius: 1, Pruning: true, UseCache: true}, tt, nil)
	before := tt.Generation()
	s.Search(b, PlayerX)
	if got := tt.Generation(); got != before+1 {
		t.Fatalf("one search should advance the generation once: %d -> %d", before, got)
	}
}

func TestFindBestMoveOpening(t *testing.T) {
	s := NewSearcher(DefaultOptions(), nil, rand.New(rand.NewSource(7)))
	b := mustBoard(t, 15)
	res := s.FindBestMove(b, PlayerX)
	if !res.Move.Equals(Move{X: 7, Y: 7}) {
		t.Fatalf("expected center, got %s", res.Move)
	}
	place(t, b, PlayerX, res.Move)
	res = s.FindBestMove(b, PlayerO)
	if abs(res.Move.X-7) > 2 || abs(res.Move.Y-7) > 2 || !b.IsEmpty(res.Move.X, res.Move.Y) {
		t.Fatalf("unexpected reply %s", res.Move)
	}
	if step, ok := res.Report.Decisive(); !ok || step.Evaluator != StepFirstMove {
		t.Fatalf("expected first_move to decide, got %+v", step)
	}
}

func TestFindBestMoveBlocksOpenThree(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerO, row(7, 5, 6, 7)...)
	place(t, b, PlayerX, Move{X: 3, Y: 3}, Move{X: 10, Y: 10})
	res := NewSearcher(DefaultOptions(), nil, nil).FindBestMove(b, PlayerX)
	if !res.Move.Equals(Move{X: 7, Y: 4}) {
		t.Fatalf("expected block at [7, 4], got %s", res.Move)
	}
	if step, ok := res.Report.Decisive(); !ok || step.Evaluator != StepBlockThreat {
		t.Fatalf("expected block_threat to decide, got %+v", step)
	}
}

func TestFindBestMoveWithoutTactics(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{7, 7}, Move{8, 8})
	place(t, b, PlayerO, Move{7, 8}, Move{6, 6})
	opts := DefaultOptions()
	opts.Tactics = false
	opts.Depth = 2
	res := NewSearcher(opts, nil, nil).FindBestMove(b, PlayerX)
	if len(res.Report.Entries) != 1 || res.Report.Entries[0].Evaluator != StepMinimax {
		t.Fatalf("expected a single minimax step, got %+v", res.Report.Entries)
	}
	if !res.Move.IsValid(15) || !b.IsEmpty(res.Move.X, res.Move.Y) {
		t.Fatalf("bad move %s", res.Move)
	}
}
