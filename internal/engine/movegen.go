package engine

import (
	"math/rand"
	"sort"
)

const (
	DefaultRadius = 2
	MaxRadius     = 5
)

const (
	priorityWin           = 2_000_000_000
	priorityBlockWin      = 1_500_000_000
	priorityCompound      = 1_200_000_000
	priorityBlockCompound = 1_100_000_000
	priorityKiller        = 1_000_000
)

// Candidates lists every empty cell within radius (Chebyshev) of a stone in
// row-major order. An empty board yields only the center.
func Candidates(b *Board, radius int) []Move {
	if b.stones == 0 {
		return []Move{{X: b.size / 2, Y: b.size / 2}}
	}
	if radius < 1 {
		radius = 1
	}
	marked := make([]bool, len(b.cells))
	count := 0
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			if b.cells[b.index(x, y)] == CellEmpty {
				continue
			}
			for nx := max(0, x-radius); nx <= min(b.size-1, x+radius); nx++ {
				for ny := max(0, y-radius); ny <= min(b.size-1, y+radius); ny++ {
					idx := b.index(nx, ny)
					if b.cells[idx] != CellEmpty || marked[idx] {
						continue
					}
					marked[idx] = true
					count++
				}
			}
		}
	}
	moves := make([]Move, 0, count)
	for idx, ok := range marked {
		if ok {
			moves = append(moves, Move{X: idx / b.size, Y: idx % b.size})
		}
	}
	return moves
}

// FirstReply answers a lone opening stone with a random empty cell one or
// two steps from it. Boards with any other stone count get the top static
// candidate instead.
func FirstReply(b *Board, rng *rand.Rand) Move {
	if b.stones == 0 {
		return Move{X: b.size / 2, Y: b.size / 2}
	}
	if b.stones != 1 {
		return bestStatic(b)
	}
	var sx, sy int
	for idx, c := range b.cells {
		if c != CellEmpty {
			sx, sy = idx/b.size, idx%b.size
			break
		}
	}
	var options []Move
	for dx := -2; dx <= 2; dx++ {
		for dy := -2; dy <= 2; dy++ {
			if b.IsEmpty(sx+dx, sy+dy) {
				options = append(options, Move{X: sx + dx, Y: sy + dy})
			}
		}
	}
	if len(options) == 0 {
		return bestStatic(b)
	}
	if rng == nil {
		return options[0]
	}
	return options[rng.Intn(len(options))]
}

func bestStatic(b *Board) Move {
	moves := Candidates(b, 1)
	if len(moves) == 0 {
		return NoMove
	}
	return moves[0]
}

// MovePriority ranks (x, y) for p during ordering. Wins come first, then
// blocks of the opponent's wins, then compound threats for either side.
func MovePriority(b *Board, x, y int, p Player, killer bool) int {
	center := b.size / 2
	priority := max(0, b.size-(abs(x-center)+abs(y-center)))

	mine := FastThreat(b, x, y, p)
	theirs := FastThreat(b, x, y, p.Other())
	switch {
	case mine >= ThreatValueFive:
		return priorityWin
	case theirs >= ThreatValueFive:
		return priorityBlockWin
	case mine >= ThreatValueCompound:
		return priorityCompound + mine
	case theirs >= ThreatValueCompound:
		return priorityBlockCompound + theirs
	}
	if killer {
		priority += priorityKiller
	}
	if theirs >= ThreatValueOpenThree {
		priority += mine*10 + theirs*12
	} else {
		priority += mine*15 + theirs*5
	}
	return priority
}

type rankedMove struct {
	move     Move
	priority int
}

// orderMoves sorts moves best first. The sort is stable so equal
// priorities keep row-major order.
func orderMoves(b *Board, moves []Move, p Player, isKiller func(Move) bool) []Move {
	ranked := make([]rankedMove, len(moves))
	for i, m := range moves {
		killer := isKiller != nil && isKiller(m)
		ranked[i] = rankedMove{move: m, priority: MovePriority(b, m.X, m.Y, p, killer)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].priority > ranked[j].priority
	})
	for i := range ranked {
		moves[i] = ranked[i].move
	}
	return moves
}

// OrderedCandidates is Candidates sorted by MovePriority for p.
func OrderedCandidates(b *Board, p Player, radius int) []Move {
	return orderMoves(b, Candidates(b, radius), p, nil)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
