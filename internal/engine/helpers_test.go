package engine

import "testing"

func mustBoard(t *testing.T, size int) *Board {
	t.Helper()
	b, err := NewBoard(size)
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	return b
}

func place(t *testing.T, b *Board, p Player, moves ...Move) {
	t.Helper()
	for _, m := range moves {
		if err := b.Place(m.X, m.Y, p); err != nil {
			t.Fatalf("place %s at %s: %v", p, m, err)
		}
	}
}

func row(x int, ys ...int) []Move {
	out := make([]Move, len(ys))
	for i, y := range ys {
		out[i] = Move{X: x, Y: y}
	}
	return out
}
