package engine

import "testing"

func TestIncrementalHashMatchesRecompute(t *testing.T) {
	b := mustBoard(t, 15)
	moves := []Move{{7, 7}, {7, 8}, {6, 6}, {8, 8}, {0, 0}, {14, 14}}
	for i, m := range moves {
		p := PlayerX
		if i%2 == 1 {
			p = PlayerO
		}
		place(t, b, p, m)
		if got, want := b.Hash(), ComputeHash(b); got != want {
			t.Fatalf("after %d moves: hash %x, recomputed %x", i+1, got, want)
		}
	}
	for i := len(moves) - 1; i >= 0; i-- {
		b.Remove(moves[i].X, moves[i].Y)
		if got, want := b.Hash(), ComputeHash(b); got != want {
			t.Fatalf("after removing %s: hash %x, recomputed %x", moves[i], got, want)
		}
	}
	if b.Hash() != 0 {
		t.Fatalf("empty board hash must be zero, got %x", b.Hash())
	}
}

func TestHashDependsOnStoneOwner(t *testing.T) {
	a := mustBoard(t, 15)
	b := mustBoard(t, 15)
	place(t, a, PlayerX, Move{X: 3, Y: 3})
	place(t, b, PlayerO, Move{X: 3, Y: 3})
	if a.Hash() == b.Hash() {
		t.Fatalf("X and O on the same cell must hash differently")
	}
}

func TestKeySeparatesPerspectiveAndSideToMove(t *testing.T) {
	z := GetZobrist(15)
	h := uint64(0xdeadbeef)
	keys := map[uint64]string{}
	for _, root := range []Player{PlayerX, PlayerO} {
		for _, toMove := range []Player{PlayerX, PlayerO} {
			k := z.Key(h, root, toMove)
			if prev, ok := keys[k]; ok {
				t.Fatalf("key collision between %s and root=%s move=%s", prev, root, toMove)
			}
			keys[k] = root.String() + toMove.String()
		}
	}
}

func TestZobristTablesAreDeterministic(t *testing.T) {
	if GetZobrist(19) != GetZobrist(19) {
		t.Fatalf("expected the cached table")
	}
	if GetZobrist(15).cells[0] == GetZobrist(19).cells[0] {
		t.Fatalf("different sizes should use different keys")
	}
}
