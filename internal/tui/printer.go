// Package tui draws the game in a terminal: an interactive tview board for
// human players and a plain coloured printer for headless play, replays
// and the test client.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
)

// Printer writes boards and game summaries as coloured text.
type Printer struct {
	out *termenv.Output
	// Pad is the number of spaces in front of every line.
	Pad int
}

// NewPrinter detects the colour support of w unless a profile option is
// given.
func NewPrinter(w io.Writer, opts ...termenv.OutputOption) *Printer {
	return &Printer{out: termenv.NewOutput(w, opts...), Pad: 2}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, "%s"+format, append([]any{strings.Repeat(" ", p.Pad)}, args...)...)
}

func (p *Printer) stone(c engine.Cell, last bool) string {
	s := p.out.String(c.String())
	switch c {
	case engine.CellX:
		s = s.Foreground(p.out.Color("9")).Bold()
	case engine.CellO:
		s = s.Foreground(p.out.Color("12")).Bold()
	default:
		s = s.Faint()
	}
	if last {
		s = s.Background(p.out.Color("3"))
	}
	return s.String()
}

// Board prints b with 1-based coordinates, highlighting last.
func (p *Printer) Board(b *engine.Board, last engine.Move) {
	size := b.Size()
	var head strings.Builder
	head.WriteString("   ")
	for y := 0; y < size; y++ {
		fmt.Fprintf(&head, "%3d", y+1)
	}
	p.printf("%s\n", p.out.String(head.String()).Foreground(p.out.Color("2")))
	for x := 0; x < size; x++ {
		var line strings.Builder
		line.WriteString(p.out.String(fmt.Sprintf("%3d", x+1)).Foreground(p.out.Color("2")).String())
		for y := 0; y < size; y++ {
			line.WriteString("  ")
			line.WriteString(p.stone(b.At(x, y), last.X == x && last.Y == y))
		}
		p.printf("%s\n", line.String())
	}
}

// Rows prints a board_state array from a game record. Alert paints the
// whole board red, which the client uses while the daemon is busy.
func (p *Printer) Rows(rows []string, alert bool) {
	for _, row := range rows {
		var line strings.Builder
		for _, r := range row {
			s := p.out.String(string(r))
			switch r {
			case 'X':
				s = s.Foreground(p.out.Color("11")).Bold()
			case 'O':
				s = s.Foreground(p.out.Color("9")).Bold()
			}
			if alert {
				s = s.Background(p.out.Color("1"))
			}
			line.WriteString(s.String())
		}
		p.printf("%s\n", line.String())
	}
}

// HistoryLine describes one move the way the side panel lists it.
func HistoryLine(n int, rec game.MoveRecord, kind game.Kind) string {
	secs := rec.Elapsed.Seconds()
	if kind == game.AI {
		return fmt.Sprintf("%3d | player %s moved to [%2d, %2d] (in %6.2fs, %3d moves evaluated)",
			n, rec.Player, rec.Move.X+1, rec.Move.Y+1, secs, rec.Evaluated)
	}
	return fmt.Sprintf("%3d | player %s moved to [%2d, %2d] (in %6.2fs)",
		n, rec.Player, rec.Move.X+1, rec.Move.Y+1, secs)
}

// History prints at most limit of the latest moves.
func (p *Printer) History(settings game.Settings, history []game.MoveRecord, limit int) {
	start := 0
	if limit > 0 && len(history) > limit {
		start = len(history) - limit
	}
	for i := start; i < len(history); i++ {
		rec := history[i]
		line := p.out.String(HistoryLine(i+1, rec, settings.Player(rec.Player).Kind))
		if rec.Player == engine.PlayerX {
			line = line.Foreground(p.out.Color("9"))
		} else {
			line = line.Foreground(p.out.Color("12"))
		}
		p.printf("%s\n", line)
	}
}

// Outcome is the one-line result of a finished game.
func Outcome(status game.Status) string {
	switch status {
	case game.StatusXWins:
		return "Game over: X wins!"
	case game.StatusOWins:
		return "Game over: O wins!"
	case game.StatusDraw:
		return "Game over: Draw!"
	case game.StatusQuit:
		return "Game abandoned."
	}
	return "Game in progress."
}

// Result prints the outcome and the time each side used.
func (p *Printer) Result(status game.Status, totalX, totalO time.Duration) {
	p.printf("%s\n", p.out.String(Outcome(status)).Bold())
	p.printf("Time used: X %.2fs, O %.2fs\n", totalX.Seconds(), totalO.Seconds())
}

// Timing is how long a side waited on the daemon and how much of that the
// daemon reports as search time.
type Timing struct {
	Waited time.Duration
	Server time.Duration
}

func (t Timing) Queued() time.Duration {
	return max(t.Waited-t.Server, 0)
}

// Timings prints the client's per-side timing table.
func (p *Printer) Timings(x, o Timing) {
	p.printf("%s\n", p.out.String("Player ┃  Wait ┃ Server ┃ Queue ┃").Foreground(p.out.Color("10")).Bold())
	p.printf("%s\n", p.out.String("━━━━━━━╋━━━━━━━╋━━━━━━━━╋━━━━━━━┫").Foreground(p.out.Color("10")).Bold())
	row := func(name string, t Timing, color string) {
		line := fmt.Sprintf("%-6s ┃ %4.0fs ┃  %4.0fs ┃ %4.0fs ┃", name, t.Waited.Seconds(), t.Server.Seconds(), t.Queued().Seconds())
		p.printf("%s\n", p.out.String(line).Foreground(p.out.Color(color)))
	}
	row("X", x, "1")
	row("O", o, "3")
}

// Line prints a plain padded line.
func (p *Printer) Line(format string, args ...any) {
	p.printf(format+"\n", args...)
}
