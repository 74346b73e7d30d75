package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
)

const historyLines = 35

const rulesText = `Gomoku is played on the intersections of a 15x15 or 19x19 grid.
Players take turns placing one stone each; X always moves first.
The first player with an unbroken line of exactly five stones wins,
horizontally, vertically or diagonally. Six or more in a row do not count.

An open three (three in a row with both ends free) must be blocked at once,
or it turns into an open four that cannot be stopped.`

const controlsText = `Arrow keys / hjkl   move the cursor
Enter / Space       place a stone
U                   undo the last move pair (when enabled)
?                   show or hide this help
Q / Esc             quit`

// App is the interactive terminal game.
type App struct {
	app   *tview.Application
	pages *tview.Pages
	board *BoardView
	side  *tview.TextView
	hint  *tview.TextView

	ctrl        *game.Controller
	newSearcher SearcherFactory
	base        engine.Options
	logger      *slog.Logger

	message string
	stop    chan struct{}
}

type AppOptions struct {
	Controller  *game.Controller
	NewSearcher SearcherFactory
	Base        engine.Options
	Logger      *slog.Logger
	// Welcome shows the rules before the first move.
	Welcome bool
}

func NewApp(opts AppOptions) *App {
	a := &App{
		app:         tview.NewApplication(),
		pages:       tview.NewPages(),
		board:       NewBoardView(),
		side:        tview.NewTextView(),
		hint:        tview.NewTextView(),
		ctrl:        opts.Controller,
		newSearcher: opts.NewSearcher,
		base:        opts.Base,
		logger:      opts.Logger,
		stop:        make(chan struct{}),
	}
	a.side.SetDynamicColors(true)
	a.hint.SetDynamicColors(true)

	size := a.ctrl.View().Settings.BoardSize
	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.board.Box, size+2, 0, true).
		AddItem(a.hint, 0, 1, false)
	layout := tview.NewFlex().
		AddItem(left, size*2+6, 0, true).
		AddItem(a.side, 0, 1, false)

	help := tview.NewTextView().SetDynamicColors(true).
		SetText("[yellow::b]Rules[-:-:-]\n\n" + rulesText + "\n\n[yellow::b]Controls[-:-:-]\n\n" + controlsText + "\n\n[dimgray]press any key to continue[-]")
	help.SetBorder(true).SetTitle(" Gomoku ")

	a.pages.AddPage("game", layout, true, true)
	a.pages.AddPage("help", help, true, opts.Welcome)
	a.app.SetRoot(a.pages, true).SetInputCapture(a.handleKey)
	a.refresh()
	return a
}

// Run blocks until the player quits.
func (a *App) Run() error {
	defer close(a.stop)
	go a.tick()
	if !a.helpVisible() {
		a.maybeAI()
	}
	return a.app.Run()
}

// tick redraws once a second so the clocks move.
func (a *App) tick() {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-t.C:
			a.app.QueueUpdateDraw(a.refresh)
		}
	}
}

func (a *App) helpVisible() bool {
	name, _ := a.pages.GetFrontPage()
	return name == "help"
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if a.helpVisible() {
		a.pages.HidePage("help")
		a.maybeAI()
		return nil
	}
	switch ev.Key() {
	case tcell.KeyUp:
		a.board.MoveCursor(-1, 0)
	case tcell.KeyDown:
		a.board.MoveCursor(1, 0)
	case tcell.KeyLeft:
		a.board.MoveCursor(0, -1)
	case tcell.KeyRight:
		a.board.MoveCursor(0, 1)
	case tcell.KeyEnter:
		a.place()
	case tcell.KeyEscape:
		a.quit()
		return nil
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'k':
			a.board.MoveCursor(-1, 0)
		case 'j':
			a.board.MoveCursor(1, 0)
		case 'h':
			a.board.MoveCursor(0, -1)
		case 'l':
			a.board.MoveCursor(0, 1)
		case ' ':
			a.place()
		case 'u', 'U':
			a.undo()
		case '?':
			a.pages.ShowPage("help")
		case 'q', 'Q':
			a.quit()
			return nil
		}
	default:
		return ev
	}
	a.refresh()
	return nil
}

func (a *App) place() {
	view := a.ctrl.View()
	if view.Status != game.StatusRunning {
		return
	}
	m := a.board.Selected()
	err := a.ctrl.ApplyHumanMove(m.X, m.Y)
	switch {
	case err == nil:
		a.message = ""
		a.maybeAI()
	case errors.Is(err, engine.ErrOccupied):
		a.message = "That cell is taken."
	case errors.Is(err, game.ErrNotYourTurn):
		a.message = "Wait for the AI to move."
	default:
		a.message = err.Error()
	}
}

func (a *App) undo() {
	switch err := a.ctrl.Undo(); {
	case err == nil:
		a.message = "Undid the last move pair."
	case errors.Is(err, game.ErrUndoDisabled):
		a.message = "Undo is disabled; start with --undo."
	case errors.Is(err, game.ErrNothingToUndo):
		a.message = "Nothing to undo."
	default:
		a.message = err.Error()
	}
}

func (a *App) quit() {
	if a.ctrl.View().Status == game.StatusRunning {
		a.ctrl.Quit()
	}
	a.app.Stop()
}

// maybeAI starts the AI in the background when it is its turn.
func (a *App) maybeAI() {
	if !a.ctrl.AITurn() {
		return
	}
	go func() {
		rec, res, err := a.ctrl.PlayAI(a.newSearcher, a.base)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				if !errors.Is(err, game.ErrStale) && !errors.Is(err, game.ErrGameOver) {
					a.message = "AI error: " + err.Error()
					a.logger.Error("AI move failed", "error", err)
				}
				a.refresh()
				return
			}
			a.logger.Debug("AI move", "player", rec.Player.String(), "move", rec.Move.String(),
				"score", res.Score, "depth", res.Depth, "stats", res.Stats)
			a.board.Select(rec.Move)
			a.refresh()
			a.maybeAI()
		})
	}()
	a.refresh()
}

func (a *App) refresh() {
	view := a.ctrl.View()
	a.board.SetView(view)
	a.side.SetText(sidePanel(view, a.board.Selected()))

	var hint strings.Builder
	switch {
	case view.Status != game.StatusRunning:
		fmt.Fprintf(&hint, "[yellow::b]%s[-:-:-]\n", Outcome(view.Status))
		hint.WriteString("q · exit")
	case view.Thinking:
		fmt.Fprintf(&hint, "◌ %s is thinking...\n", view.Current)
	default:
		fmt.Fprintf(&hint, "● %s to move\n", view.Current)
		if view.TimedOut {
			hint.WriteString("[red]time is up for this move[-]\n")
		}
		hint.WriteString("hjkl/↑↓←→ move   ⏎ play   u undo   ? help   q quit")
	}
	if a.message != "" {
		fmt.Fprintf(&hint, "\n[red]%s[-]", a.message)
	}
	a.hint.SetText(hint.String())
}

func describe(ps game.PlayerSettings) string {
	if ps.Kind == game.AI {
		return fmt.Sprintf("AI (depth %d)", ps.Depth)
	}
	return "human"
}

func sidePanel(view game.View, cursor engine.Move) string {
	var b strings.Builder
	s := view.Settings
	b.WriteString("[white::b]Game[-:-:-]\n")
	b.WriteString("[dimgray]──────────────────────────────[-]\n")
	fmt.Fprintf(&b, "[red]X[-]: %-16s %6.1fs\n", describe(s.X), view.TotalX.Seconds())
	fmt.Fprintf(&b, "[blue]O[-]: %-16s %6.1fs\n", describe(s.O), view.TotalO.Seconds())
	fmt.Fprintf(&b, "Position       : [ %2d, %2d ]\n", cursor.X+1, cursor.Y+1)
	fmt.Fprintf(&b, "Search radius  : %d\n", s.Radius)
	if s.Timeout > 0 {
		fmt.Fprintf(&b, "Move timeout   : %s\n", s.Timeout)
	}
	if s.Undo {
		b.WriteString("Undo           : enabled\n")
	}

	if len(view.AIHistory) > 0 {
		b.WriteString("\n[white::b]AI[-:-:-]\n")
		b.WriteString("[dimgray]──────────────────────────────[-]\n")
		for _, line := range view.AIHistory {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n[green::b]Game History[-:-:-]\n")
	b.WriteString("[dimgray]Move Player [Time] (AI positions evaluated)[-]\n")
	start := max(0, len(view.History)-historyLines)
	for i := start; i < len(view.History); i++ {
		rec := view.History[i]
		color := "red"
		if rec.Player == engine.PlayerO {
			color = "blue"
		}
		fmt.Fprintf(&b, "[%s]%s[-]\n", color, HistoryLine(i+1, rec, s.Player(rec.Player).Kind))
	}
	return b.String()
}
