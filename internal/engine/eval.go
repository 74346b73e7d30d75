package engine

// WinScore marks a decided position. Search adds the remaining depth so
// quicker wins rank higher.
const WinScore = 1_000_000

const nearRadius = 3

// Evaluate scores the position for p: +WinScore if p has five, -WinScore if
// the opponent has, otherwise p's stone values minus the opponent's.
func (t *ThreatTable) Evaluate(b *Board, p Player) int {
	if b.HasFive(p) {
		return WinScore
	}
	opp := p.Other()
	if b.HasFive(opp) {
		return -WinScore
	}
	return t.sumStones(b, p, 0, 0, b.size-1, b.size-1)
}

// EvaluateNear is Evaluate restricted to stones within three cells of the
// last move.
func (t *ThreatTable) EvaluateNear(b *Board, p Player, last Move) int {
	if b.HasFive(p) {
		return WinScore
	}
	if b.HasFive(p.Other()) {
		return -WinScore
	}
	minX, maxX := max(0, last.X-nearRadius), min(b.size-1, last.X+nearRadius)
	minY, maxY := max(0, last.Y-nearRadius), min(b.size-1, last.Y+nearRadius)
	return t.sumStones(b, p, minX, minY, maxX, maxY)
}

func (t *ThreatTable) sumStones(b *Board, p Player, minX, minY, maxX, maxY int) int {
	own, opp := p.Cell(), p.Other().Cell()
	total := 0
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			switch b.cells[b.index(x, y)] {
			case own:
				total += t.stoneScore(b, p, x, y)
			case opp:
				total -= t.stoneScore(b, p.Other(), x, y)
			}
		}
	}
	return total
}

func Evaluate(b *Board, p Player) int {
	return DefaultThreatTable().Evaluate(b, p)
}
