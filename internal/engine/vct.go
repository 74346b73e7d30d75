package engine

// VCTDepth bounds how many forcing fours a threat sequence may chain.
const VCTDepth = 10

// threatSearch looks for victory by continuous threats: a chain of fours,
// each with a single forced reply, ending in a double threat.
type threatSearch struct {
	b      *Board
	radius int
	ctx    *searchContext
}

func (t *threatSearch) expired() bool {
	return t.ctx != nil && t.ctx.expired()
}

func (t *threatSearch) count() {
	if t.ctx != nil {
		t.ctx.stats.VCTNodes++
	}
}

// forcedWin returns p's first move of a forcing win found within depth
// fours, and appends p's moves of that line to seq.
func (t *threatSearch) forcedWin(p Player, depth int, seq *[]Move) (Move, bool) {
	t.count()
	moves := Candidates(t.b, t.radius)
	for _, m := range moves {
		if FastThreat(t.b, m.X, m.Y, p) >= ThreatValueCompound {
			appendSeq(seq, m)
			return m, true
		}
	}
	if depth <= 0 || t.expired() {
		return NoMove, false
	}
	for _, m := range moves {
		if FastThreat(t.b, m.X, m.Y, p) < ThreatValueBrokenFour {
			continue
		}
		if t.expired() {
			return NoMove, false
		}
		if t.tryFour(p, m, depth, seq) {
			return m, true
		}
	}
	return NoMove, false
}

func (t *threatSearch) tryFour(p Player, m Move, depth int, seq *[]Move) bool {
	if t.b.WinsAt(m.X, m.Y, p) {
		appendSeq(seq, m)
		return true
	}
	if err := t.b.Place(m.X, m.Y, p); err != nil {
		return false
	}
	defer t.b.Remove(m.X, m.Y)

	block, completions := blockCell(t.b, m.X, m.Y, p)
	if completions != 1 {
		// Two finishing cells cannot both be blocked; none means no four.
		if completions >= 2 {
			appendSeq(seq, m)
			return true
		}
		return false
	}
	if FastThreat(t.b, block.X, block.Y, p.Other()) >= ThreatValueBrokenFour {
		return false
	}
	if err := t.b.Place(block.X, block.Y, p.Other()); err != nil {
		return false
	}
	defer t.b.Remove(block.X, block.Y)

	mark := 0
	if seq != nil {
		mark = len(*seq)
	}
	appendSeq(seq, m)
	if _, ok := t.forcedWin(p, depth-1, seq); ok {
		return true
	}
	if seq != nil {
		*seq = (*seq)[:mark]
	}
	return false
}

// forcedWinBlock answers an opponent threat sequence. It prefers the move
// that leaves the opponent without one and builds the most for p; failing
// that it takes the opponent's first move.
func (t *threatSearch) forcedWinBlock(p Player, depth int) (Move, bool) {
	opp := p.Other()
	first, ok := t.forcedWin(opp, depth, nil)
	if !ok {
		return NoMove, false
	}
	best := NoMove
	bestThreat := -1
	for _, m := range Candidates(t.b, t.radius) {
		if t.expired() {
			break
		}
		if t.breaks(p, m, depth) {
			if threat := FastThreat(t.b, m.X, m.Y, p); threat > bestThreat {
				best, bestThreat = m, threat
			}
		}
	}
	if bestThreat >= 0 {
		return best, true
	}
	return first, true
}

func (t *threatSearch) breaks(p Player, m Move, depth int) bool {
	if err := t.b.Place(m.X, m.Y, p); err != nil {
		return false
	}
	defer t.b.Remove(m.X, m.Y)
	_, stillWins := t.forcedWin(p.Other(), depth, nil)
	return !stillWins
}

// blockCell finds where the opponent must answer the four p just made at
// (x, y). It reports how many finishing cells it saw, stopping at two.
func blockCell(b *Board, x, y int, p Player) (Move, int) {
	own := p.Cell()
	block := NoMove
	found := 0
	for _, d := range directions {
		for _, sign := range [2]int{-1, 1} {
			for dist := 1; dist <= NeedToWin; dist++ {
				nx, ny := x+sign*d[0]*dist, y+sign*d[1]*dist
				c := b.At(nx, ny)
				if c == CellEmpty {
					if b.WinsAt(nx, ny, p) {
						if found == 0 {
							block = Move{X: nx, Y: ny}
						}
						found++
						if found >= 2 {
							return block, found
						}
					}
					break
				}
				if c != own {
					break
				}
			}
		}
	}
	return block, found
}

func appendSeq(seq *[]Move, m Move) {
	if seq != nil {
		*seq = append(*seq, m)
	}
}

// ForcedWin reports whether p can force five through a chain of fours.
// The returned line holds p's moves only.
func ForcedWin(b *Board, p Player, radius int) (Move, []Move, bool) {
	t := &threatSearch{b: b, radius: radius}
	var seq []Move
	m, ok := t.forcedWin(p, VCTDepth, &seq)
	return m, seq, ok
}
