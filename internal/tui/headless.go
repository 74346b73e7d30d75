package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
)

// ErrNeedsTerminal is returned when a human player has to move but there is
// no terminal to take the input from.
var ErrNeedsTerminal = errors.New("a human player needs an interactive terminal")

// SearcherFactory builds the searcher for one AI move.
type SearcherFactory func(engine.Options) *engine.Searcher

// PlayHeadless lets the AI players finish the game, printing the board
// after every move.
func PlayHeadless(ctx context.Context, ctrl *game.Controller, newSearcher SearcherFactory, base engine.Options, p *Printer, logger *slog.Logger) error {
	for ctrl.AITurn() {
		if err := ctx.Err(); err != nil {
			ctrl.Quit()
			return err
		}
		rec, res, err := ctrl.PlayAI(newSearcher, base)
		if err != nil {
			return fmt.Errorf("AI move: %w", err)
		}
		view := ctrl.View()
		p.Board(view.Board, rec.Move)
		p.Line("Move %d: %s at [%d, %d] (%d positions evaluated, %.1f ms)",
			len(view.History), rec.Player, rec.Move.X, rec.Move.Y, rec.Evaluated,
			float64(rec.Elapsed.Microseconds())/1000)
		p.Line("")
		logger.Debug("AI move", "player", rec.Player.String(), "move", rec.Move.String(),
			"score", res.Score, "depth", res.Depth, "stats", res.Stats)
	}
	view := ctrl.View()
	if view.Status == game.StatusRunning {
		return ErrNeedsTerminal
	}
	p.Result(view.Status, view.TotalX, view.TotalO)
	return nil
}
