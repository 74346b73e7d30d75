package engine

// Values returned by FastThreat. Anything at or above ThreatValueCompound is
// a double threat the opponent cannot meet with one stone.
const (
	ThreatValueFive           = 100000
	ThreatValueOpenFour       = 50000
	ThreatValueDoubleFour     = 48000
	ThreatValueFourThree      = 45000
	ThreatValueCompound       = 40000
	ThreatValueOpenThreeThree = 30000
	ThreatValueFour           = 10000
	ThreatValueBrokenFour     = 8000
	ThreatValueOpenTwoThree   = 3000
	ThreatValueDoubleOpenTwo  = 2000
	ThreatValueOpenThree      = 1500
	ThreatValueThree          = 500
	ThreatValueBrokenThree    = 400
	ThreatValueOpenTwo        = 100
)

type lineRun struct {
	contiguous int
	total      int
	open       bool
	holes      int
}

// finishes reports whether filling the empty cell just past the run
// lengthens it by exactly one.
func (r lineRun) finishes() bool {
	return r.holes > 0 && r.total == r.contiguous
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// scanRun walks away from (x, y) along (dx, dy). A single gap is tolerated
// when p owns the cell right after it.
func scanRun(b *Board, x, y, dx, dy int, p Player) lineRun {
	var run lineRun
	own := p.Cell()
	nx, ny := x+dx, y+dy
	foundHole := false
	for b.InBounds(nx, ny) {
		c := b.At(nx, ny)
		if c == own {
			if !foundHole {
				run.contiguous++
			}
			run.total++
		} else if c == CellEmpty {
			if foundHole {
				run.open = true
				return run
			}
			foundHole = true
			run.holes++
			if b.At(nx+dx, ny+dy) != own {
				run.open = true
				return run
			}
		} else {
			return run
		}
		nx += dx
		ny += dy
	}
	return run
}

// FastThreat estimates what p gains by owning (x, y). It reads the cell as
// if p's stone were there and does not look at what currently occupies it.
func FastThreat(b *Board, x, y int, p Player) int {
	maxThreat := 0
	fours, openThrees, threes, openTwos := 0, 0, 0, 0
	for _, d := range directions {
		pos := scanRun(b, x, y, d[0], d[1], p)
		neg := scanRun(b, x, y, -d[0], -d[1], p)
		contiguous := 1 + pos.contiguous + neg.contiguous
		total := 1 + pos.total + neg.total
		holes := pos.holes + neg.holes
		openEnds := 0
		if pos.open {
			openEnds++
		}
		if neg.open {
			openEnds++
		}

		threat := 0
		switch {
		case contiguous > NeedToWin:
			// An overline wins nothing and threatens nothing along this line.
		case contiguous == NeedToWin:
			threat = ThreatValueFive
		case contiguous == 4:
			switch boolInt(pos.finishes()) + boolInt(neg.finishes()) {
			case 2:
				threat = ThreatValueOpenFour
				fours++
			case 1:
				threat = ThreatValueFour
				fours++
			}
		case total >= 4 && holes <= 1:
			threat = ThreatValueBrokenFour
			fours++
		case contiguous == 3:
			if openEnds == 2 {
				threat = ThreatValueOpenThree
				openThrees++
			} else if openEnds == 1 {
				threat = ThreatValueThree
			}
			threes++
		case total >= 3 && holes <= 1:
			if openEnds >= 1 {
				threat = ThreatValueBrokenThree
				threes++
			}
		case contiguous == 2 && openEnds == 2:
			threat = ThreatValueOpenTwo
			openTwos++
		}
		if threat > maxThreat {
			maxThreat = threat
		}
	}

	raise := func(v int) {
		if v > maxThreat {
			maxThreat = v
		}
	}
	if fours >= 1 && threes >= 1 {
		raise(ThreatValueFourThree)
	}
	if openThrees >= 2 {
		raise(ThreatValueCompound)
	}
	if fours >= 2 {
		raise(ThreatValueDoubleFour)
	}
	if openThrees >= 1 && threes >= 2 {
		raise(ThreatValueOpenThreeThree)
	}
	if openTwos >= 2 {
		raise(ThreatValueDoubleOpenTwo)
	}
	if openTwos >= 1 && openThrees >= 1 {
		raise(ThreatValueOpenTwoThree)
	}
	return maxThreat
}
