package engine

import "sync"

const (
	// SearchRadius is how far the classifier looks each way along a line.
	SearchRadius = 4
	WindowSize   = SearchRadius*2 + 1
	NeedToWin    = 5
)

type ThreatKind uint8

const (
	ThreatNothing ThreatKind = iota
	ThreatFive
	ThreatStraightFour
	ThreatFour
	ThreatThree
	ThreatFourBroken
	ThreatThreeBroken
	ThreatTwo
	ThreatNearEnemy
	ThreatThreeAndFour
	ThreatThreeAndThree
	ThreatThreeAndThreeBroken
	threatKindCount
)

var threatNames = [threatKindCount]string{
	"nothing", "five", "straight_four", "four", "three", "four_broken",
	"three_broken", "two", "near_enemy", "three_and_four", "three_and_three",
	"three_and_three_broken",
}

func (k ThreatKind) String() string {
	if k >= threatKindCount {
		return "unknown"
	}
	return threatNames[k]
}

const (
	groupTwo = iota + 1
	groupBrokenThree
	groupThree
	groupFour
)

// comboGroup buckets kinds for Combination, weakest first. Fives and all
// fours share a group so a stronger line never loses a bonus.
func (k ThreatKind) comboGroup() int {
	switch k {
	case ThreatTwo:
		return groupTwo
	case ThreatThreeBroken:
		return groupBrokenThree
	case ThreatThree:
		return groupThree
	case ThreatFive, ThreatStraightFour, ThreatFour, ThreatFourBroken:
		return groupFour
	}
	return 0
}

// ThreatTable maps every ThreatKind to its cost. A table never changes after
// construction and is safe for concurrent use.
type ThreatTable struct {
	cost      [threatKindCount]int
	signature uint64
}

var (
	defaultTableOnce sync.Once
	defaultTable     *ThreatTable
)

// DefaultThreatTable is built on first use and shared afterwards.
func DefaultThreatTable() *ThreatTable {
	defaultTableOnce.Do(func() {
		defaultTable = NewThreatTable(DefaultWeights())
	})
	return defaultTable
}

func NewThreatTable(w Weights) *ThreatTable {
	w = w.Resolved()
	t := &ThreatTable{signature: w.Signature()}
	t.cost[ThreatFive] = w.Five
	t.cost[ThreatStraightFour] = w.StraightFour
	t.cost[ThreatFour] = w.Four
	t.cost[ThreatFourBroken] = w.FourBroken
	t.cost[ThreatThree] = w.Three
	t.cost[ThreatThreeBroken] = w.ThreeBroken
	t.cost[ThreatTwo] = w.Two
	t.cost[ThreatNearEnemy] = w.NearEnemy
	t.cost[ThreatThreeAndFour] = w.ThreeAndFour
	t.cost[ThreatThreeAndThree] = w.ThreeAndThree
	t.cost[ThreatThreeAndThreeBroken] = w.ThreeAndThreeBroken
	return t
}

func (t *ThreatTable) Cost(k ThreatKind) int {
	if k >= threatKindCount {
		return 0
	}
	return t.cost[k]
}

func (t *ThreatTable) Signature() uint64 {
	return t.signature
}

// Combination is the bonus for two directions through the same cell. The
// pair is unordered and the bonus never shrinks as either kind grows.
func (t *ThreatTable) Combination(a, b ThreatKind) int {
	lo, hi := a.comboGroup(), b.comboGroup()
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case lo == groupFour || (lo == groupThree && hi == groupFour):
		return t.cost[ThreatThreeAndFour]
	case lo == groupThree || (lo == groupBrokenThree && hi == groupFour):
		return t.cost[ThreatThreeAndThree]
	case lo == groupBrokenThree && hi == groupThree:
		return t.cost[ThreatThreeAndThreeBroken]
	case lo == groupBrokenThree:
		return t.cost[ThreatThreeAndThreeBroken] / 2
	case lo == groupTwo && hi == groupFour:
		return 500
	case lo == groupTwo && hi == groupThree:
		return 300
	}
	return 0
}

// Window returns the cells along direction d through (x, y) as seen by p:
// the center is p's stone and cells past the edge are CellOutOfBounds.
func Window(b *Board, x, y int, d [2]int, p Player) [WindowSize]Cell {
	var w [WindowSize]Cell
	for i := -SearchRadius; i <= SearchRadius; i++ {
		if i == 0 {
			w[SearchRadius] = p.Cell()
			continue
		}
		w[SearchRadius+i] = b.At(x+i*d[0], y+i*d[1])
	}
	return w
}

// span bounds the cells around the window's center that own could still
// fill: everything up to the first enemy stone or edge on each side.
func span(w *[WindowSize]Cell, own Cell) (lo, hi int) {
	free := func(c Cell) bool { return c == own || c == CellEmpty }
	lo, hi = SearchRadius, SearchRadius
	for lo > 0 && free(w[lo-1]) {
		lo--
	}
	for hi < WindowSize-1 && free(w[hi+1]) {
		hi++
	}
	return lo, hi
}

// ClassifyWindow names the strongest pattern p has through the window's
// center cell. Only five-cell stretches free of enemy stones and edges
// count, so adding one of p's stones never weakens the result.
func ClassifyWindow(w [WindowSize]Cell, p Player) ThreatKind {
	own := p.Cell()
	lo, hi := span(&w, own)
	if hi-lo+1 < NeedToWin {
		return nearEnemy(&w, lo, hi)
	}

	a, b := SearchRadius, SearchRadius
	for a > lo && w[a-1] == own {
		a--
	}
	for b < hi && w[b+1] == own {
		b++
	}
	contiguous := b - a + 1
	open := a > 0 && w[a-1] == CellEmpty && b < WindowSize-1 && w[b+1] == CellEmpty

	// Most of p's stones in any five-cell stretch through the center.
	best := 0
	for s := max(lo, SearchRadius-NeedToWin+1); s <= min(SearchRadius, hi-NeedToWin+1); s++ {
		n := 0
		for _, c := range w[s : s+NeedToWin] {
			if c == own {
				n++
			}
		}
		best = max(best, n)
	}

	switch {
	case contiguous >= NeedToWin:
		return ThreatFive
	case best == 4 && contiguous == 4 && open:
		return ThreatStraightFour
	case best == 4 && contiguous == 4:
		return ThreatFour
	case best == 4:
		return ThreatFourBroken
	case best == 3 && contiguous == 3 && open:
		return ThreatThree
	case best == 3:
		return ThreatThreeBroken
	case best == 2:
		return ThreatTwo
	}
	return nearEnemy(&w, lo, hi)
}

// nearEnemy is ThreatNearEnemy when an enemy stone closes the span within
// two cells of the center.
func nearEnemy(w *[WindowSize]Cell, lo, hi int) ThreatKind {
	enemy := func(i int) bool {
		return i >= 0 && i < WindowSize && w[i] != CellOutOfBounds && w[i] != CellEmpty
	}
	if (lo-1 >= SearchRadius-2 && enemy(lo-1)) || (hi+1 <= SearchRadius+2 && enemy(hi+1)) {
		return ThreatNearEnemy
	}
	return ThreatNothing
}

// Threats classifies all four lines through (x, y) for p.
func Threats(b *Board, x, y int, p Player) [4]ThreatKind {
	var out [4]ThreatKind
	for i, d := range directions {
		out[i] = ClassifyWindow(Window(b, x, y, d, p), p)
	}
	return out
}

func (t *ThreatTable) scoreThreats(kinds [4]ThreatKind) int {
	score := 0
	for i := range kinds {
		score += t.cost[kinds[i]]
		for j := i + 1; j < len(kinds); j++ {
			score += t.Combination(kinds[i], kinds[j])
		}
	}
	return score
}

// ScoreAt is the value to p of playing the empty cell (x, y). Occupied and
// out-of-bounds cells score zero.
func (t *ThreatTable) ScoreAt(b *Board, p Player, x, y int) int {
	if !b.IsEmpty(x, y) {
		return 0
	}
	return t.scoreThreats(Threats(b, x, y, p))
}

// stoneScore values a stone already on the board for its owner.
func (t *ThreatTable) stoneScore(b *Board, p Player, x, y int) int {
	return t.scoreThreats(Threats(b, x, y, p))
}

func ScoreAt(b *Board, p Player, x, y int) int {
	return DefaultThreatTable().ScoreAt(b, p, x, y)
}
