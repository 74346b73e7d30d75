package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
)

// ErrEmptyReplay is returned for records without moves.
var ErrEmptyReplay = errors.New("no moves found in replay file")

// Replay steps through a recorded game. With wait set it advances on a
// timer; otherwise it waits for a line on keys, and "q" ends it early.
func Replay(ctx context.Context, sess *game.Session, p *Printer, wait time.Duration, keys io.Reader, source string) error {
	history := sess.History()
	if len(history) == 0 {
		return ErrEmptyReplay
	}
	board, err := engine.NewBoard(sess.Settings().BoardSize)
	if err != nil {
		return err
	}
	lines := bufio.NewScanner(keys)
	next := func() bool {
		if wait > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(wait):
				return true
			}
		}
		if !lines.Scan() {
			return false
		}
		key := strings.ToLower(strings.TrimSpace(lines.Text()))
		return key != "q" && key != "\x1b"
	}

	p.Line("Replaying game from: %s", source)
	p.Line("Total moves: %d | Winner: %s", len(history), sess.Status().Winner())
	if wait > 0 {
		p.Line("Auto-advance: %.1fs delay", wait.Seconds())
	} else {
		p.Line("Press Enter for the next move, q to stop.")
	}
	if !next() {
		return ctx.Err()
	}

	for i, rec := range history {
		if err := board.Place(rec.Move.X, rec.Move.Y, rec.Player); err != nil {
			return fmt.Errorf("replay move %d: %w", i+1, err)
		}
		p.Board(board, rec.Move)
		info := fmt.Sprintf("Move %d/%d: %s at [%d, %d]", i+1, len(history), rec.Player, rec.Move.X, rec.Move.Y)
		if rec.Elapsed > 0 {
			info += fmt.Sprintf(" (%.3f ms)", float64(rec.Elapsed.Microseconds())/1000)
		}
		if rec.Winner {
			info += " ** WINNER **"
		}
		p.Line("%s", info)
		if i < len(history)-1 && !next() {
			return ctx.Err()
		}
	}
	p.Line("Replay complete: %s", Outcome(sess.Status()))
	return nil
}
