package engine

import (
	"math/rand"
	"testing"
)

func TestCandidatesEmptyBoardIsCenter(t *testing.T) {
	for _, size := range []int{15, 19} {
		b := mustBoard(t, size)
		moves := Candidates(b, 2)
		if len(moves) != 1 || !moves[0].Equals(Move{X: size / 2, Y: size / 2}) {
			t.Fatalf("size %d: got %v", size, moves)
		}
	}
}

func TestCandidatesRadius(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{X: 7, Y: 7})
	if got := len(Candidates(b, 1)); got != 8 {
		t.Fatalf("radius 1: got %d", got)
	}
	moves := Candidates(b, 2)
	if len(moves) != 24 {
		t.Fatalf("radius 2: got %d", len(moves))
	}
	for i, m := range moves {
		if !b.IsEmpty(m.X, m.Y) {
			t.Fatalf("occupied candidate %s", m)
		}
		if abs(m.X-7) > 2 || abs(m.Y-7) > 2 {
			t.Fatalf("candidate %s outside radius", m)
		}
		if i > 0 {
			prev := moves[i-1]
			if prev.X > m.X || (prev.X == m.X && prev.Y >= m.Y) {
				t.Fatalf("candidates not in row-major order: %s before %s", prev, m)
			}
		}
	}
}

func TestCandidatesClipAtEdge(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerO, Move{X: 0, Y: 0})
	if got := len(Candidates(b, 2)); got != 8 {
		t.Fatalf("corner radius 2: got %d", got)
	}
}

func TestCandidatesFullBoard(t *testing.T) {
	b := fullDrawBoard(t)
	if got := Candidates(b, 2); len(got) != 0 {
		t.Fatalf("full board should have no candidates, got %v", got)
	}
}

func TestFirstReplyStaysClose(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		b := mustBoard(t, 15)
		place(t, b, PlayerX, Move{X: 7, Y: 7})
		m := FirstReply(b, rand.New(rand.NewSource(seed)))
		if !b.IsEmpty(m.X, m.Y) || abs(m.X-7) > 2 || abs(m.Y-7) > 2 {
			t.Fatalf("seed %d: bad reply %s", seed, m)
		}
	}
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{X: 0, Y: 0})
	if m := FirstReply(b, nil); !m.Equals(Move{X: 0, Y: 1}) {
		t.Fatalf("corner reply without rng: got %s", m)
	}
}

func TestMovePriorityRanksWinsFirst(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, row(7, 3, 4, 5, 6)...)
	place(t, b, PlayerO, Move{X: 7, Y: 2})
	if got := MovePriority(b, 7, 7, PlayerX, false); got != priorityWin {
		t.Fatalf("winning cell: got %d", got)
	}
	if got := MovePriority(b, 7, 7, PlayerO, false); got != priorityBlockWin {
		t.Fatalf("blocking cell: got %d", got)
	}
	for _, p := range []Player{PlayerX, PlayerO} {
		if first := OrderedCandidates(b, p, 2)[0]; !first.Equals(Move{X: 7, Y: 7}) {
			t.Fatalf("%s: expected [7, 7] first, got %s", p, first)
		}
	}
}

func TestMovePriorityKillerBonus(t *testing.T) {
	b := mustBoard(t, 15)
	place(t, b, PlayerX, Move{X: 7, Y: 7})
	plain := MovePriority(b, 3, 3, PlayerO, false)
	if killer := MovePriority(b, 3, 3, PlayerO, true); killer != plain+priorityKiller {
		t.Fatalf("killer bonus missing: %d vs %d", killer, plain)
	}
}

// fullDrawBoard fills a 5x5 board without any five.
func fullDrawBoard(t *testing.T) *Board {
	t.Helper()
	b := mustBoard(t, 5)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			p := PlayerX
			if (i/2+j)%2 == 1 {
				p = PlayerO
			}
			place(t, b, p, Move{X: i, Y: j})
		}
	}
	if _, ok := b.Winner(); ok {
		t.Fatalf("draw board has a winner")
	}
	return b
}
