package engine

import "time"

// Names of the decision steps, in the order FindBestMove runs them.
const (
	StepFirstMove      = "first_move"
	StepHaveWin        = "have_win"
	StepBlockThreat    = "block_threat"
	StepHaveVCT        = "have_vct"
	StepBlockVCT       = "block_vct"
	StepBlockOpenThree = "block_open_three"
	StepForcingFour    = "forcing_four"
	StepMinimax        = "minimax"
)

// FindBestMove chooses p's move. Cheap threat checks run first (win now,
// block a compound threat, forcing sequences for either side, open threes,
// forcing fours) and the tree search only runs when none of them decides.
// It returns NoMove only when the board has no empty cell.
func (s *Searcher) FindBestMove(b *Board, p Player) Result {
	start := time.Now()
	ctx := s.newContext(b, p, start)
	res := s.findBestMove(ctx)
	res.Elapsed = time.Since(start)
	res.TimedOut = ctx.timedOut
	res.Stats = ctx.stats
	res.Nodes = ctx.stats.Nodes + ctx.stats.VCTNodes
	return res
}

func (s *Searcher) findBestMove(ctx *searchContext) Result {
	b, p := ctx.b, ctx.root
	opp := p.Other()
	res := Result{Move: NoMove}
	if b.Full() {
		return res
	}
	if b.Stones() <= 1 {
		stepStart := time.Now()
		res.Move = FirstReply(b, s.rng)
		res.Report.add(ReportEntry{Evaluator: StepFirstMove, CurrentPlayer: true, EvaluatedMoves: 1, Decisive: true}, stepStart)
		return res
	}

	moves := Candidates(b, s.opts.Radius)
	if !s.opts.Tactics {
		return s.runMinimax(ctx, moves, &res.Report)
	}

	// Win now.
	stepStart := time.Now()
	var wins []Move
	ourMax := 0
	for _, m := range moves {
		ourMax = max(ourMax, FastThreat(b, m.X, m.Y, p))
		if b.WinsAt(m.X, m.Y, p) {
			wins = append(wins, m)
		}
	}
	res.Report.OffensiveMax = ourMax
	res.Report.add(ReportEntry{
		Evaluator: StepHaveWin, CurrentPlayer: true, EvaluatedMoves: len(moves),
		Score: ourMax, HaveWin: len(wins) > 0, Decisive: len(wins) > 0,
	}, stepStart)
	if len(wins) > 0 {
		res.Move, res.Score, res.Depth = s.pick(wins), WinScore, 1
		return res
	}

	// Block anything that would leave us facing two threats at once.
	stepStart = time.Now()
	oppMax := 0
	var blocks []Move
	for _, m := range moves {
		threat := FastThreat(b, m.X, m.Y, opp)
		switch {
		case threat > oppMax && threat >= ThreatValueCompound:
			oppMax = threat
			blocks = append(blocks[:0], m)
		case threat == oppMax && threat >= ThreatValueCompound:
			blocks = append(blocks, m)
		case threat > oppMax:
			oppMax = threat
		}
	}
	res.Report.DefensiveMax = -oppMax
	res.Report.add(ReportEntry{
		Evaluator: StepBlockThreat, EvaluatedMoves: len(moves),
		Score: -oppMax, Decisive: len(blocks) > 0,
	}, stepStart)
	if len(blocks) > 0 {
		res.Move, res.Score = s.pick(blocks), -oppMax
		return res
	}

	threats := &threatSearch{b: b, radius: s.opts.Radius, ctx: ctx}

	stepStart = time.Now()
	var seq []Move
	if m, ok := threats.forcedWin(p, VCTDepth, &seq); ok {
		res.Report.OffensiveMax = WinScore
		res.Report.add(ReportEntry{
			Evaluator: StepHaveVCT, CurrentPlayer: true, EvaluatedMoves: len(seq),
			Score: WinScore, HaveVCT: true, Decisive: true, VCTSequence: seq,
		}, stepStart)
		res.Move, res.Score = m, WinScore
		return res
	}
	res.Report.add(ReportEntry{Evaluator: StepHaveVCT, CurrentPlayer: true}, stepStart)

	stepStart = time.Now()
	if m, ok := threats.forcedWinBlock(p, VCTDepth); ok && m.IsValid(b.Size()) {
		res.Report.DefensiveMax = -WinScore
		res.Report.add(ReportEntry{
			Evaluator: StepBlockVCT, EvaluatedMoves: len(moves),
			Score: -WinScore, HaveVCT: true, Decisive: true,
		}, stepStart)
		res.Move, res.Score = m, -WinScore
		return res
	}
	res.Report.add(ReportEntry{Evaluator: StepBlockVCT}, stepStart)

	if m, ok := s.blockOpenThree(b, p, moves, &res.Report); ok {
		res.Move = m
		return res
	}

	// Our strongest four, first in board order.
	stepStart = time.Now()
	forcing, forcingMax := 0, 0
	for _, m := range moves {
		if threat := FastThreat(b, m.X, m.Y, p); threat >= ThreatValueFour {
			forcing++
			forcingMax = max(forcingMax, threat)
		}
	}
	if forcing > 0 {
		for _, m := range moves {
			if FastThreat(b, m.X, m.Y, p) == forcingMax {
				res.Report.add(ReportEntry{
					Evaluator: StepForcingFour, CurrentPlayer: true,
					EvaluatedMoves: forcing, Score: forcingMax, Decisive: true,
				}, stepStart)
				res.Move, res.Score = m, forcingMax
				return res
			}
		}
	}
	res.Report.add(ReportEntry{Evaluator: StepForcingFour, CurrentPlayer: true}, stepStart)

	return s.runMinimax(ctx, moves, &res.Report)
}

// blockOpenThree stops an opponent open three unless p already holds the
// initiative.
func (s *Searcher) blockOpenThree(b *Board, p Player, moves []Move, report *Report) (Move, bool) {
	stepStart := time.Now()
	opp := p.Other()
	var candidates []Move
	var levels []int
	worst := 0
	for _, m := range moves {
		threat := FastThreat(b, m.X, m.Y, opp)
		if threat == ThreatValueOpenThree || (threat >= ThreatValueOpenThreeThree && threat < ThreatValueCompound) {
			candidates = append(candidates, m)
			levels = append(levels, threat)
			worst = max(worst, threat)
		}
	}
	entry := ReportEntry{Evaluator: StepBlockOpenThree, EvaluatedMoves: len(candidates), Score: -worst}
	if len(candidates) == 0 || s.hasInitiative(b, p, moves, worst) {
		report.add(entry, stepStart)
		return NoMove, false
	}

	best := NoMove
	bestOwn := -1
	for i, m := range candidates {
		if levels[i] != worst {
			continue
		}
		if own := FastThreat(b, m.X, m.Y, p); own > bestOwn {
			best, bestOwn = m, own
		}
	}
	entry.Decisive = true
	report.add(entry, stepStart)
	return best, true
}

func (s *Searcher) hasInitiative(b *Board, p Player, moves []Move, oppWorst int) bool {
	ourMax, fours, openThrees := 0, 0, 0
	for _, m := range moves {
		threat := FastThreat(b, m.X, m.Y, p)
		ourMax = max(ourMax, threat)
		if threat >= ThreatValueFour {
			fours++
		} else if threat >= ThreatValueOpenThree {
			openThrees++
		}
	}
	return ourMax >= ThreatValueCompound ||
		fours >= 2 ||
		(fours >= 1 && openThrees >= 1) ||
		(ourMax >= ThreatValueOpenThree && ourMax > oppWorst)
}

func (s *Searcher) runMinimax(ctx *searchContext, moves []Move, report *Report) Result {
	stepStart := time.Now()
	moves = orderMoves(ctx.b, moves, ctx.root, nil)
	res := s.search(ctx, moves)
	report.OffensiveMax = max(report.OffensiveMax, res.Score)
	report.add(ReportEntry{
		Evaluator: StepMinimax, CurrentPlayer: true, EvaluatedMoves: len(moves),
		Score: res.Score, HaveWin: res.Score >= WinScore-winMargin, Decisive: true,
	}, stepStart)
	res.Report = *report
	return res
}

func (s *Searcher) pick(moves []Move) Move {
	if s.rng == nil || len(moves) == 1 {
		return moves[0]
	}
	return moves[s.rng.Intn(len(moves))]
}
