package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
)

var fileLimits = game.FileLimits

func plainPrinter(buf *bytes.Buffer) *Printer {
	return NewPrinter(buf, termenv.WithProfile(termenv.Ascii))
}

func tcellKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func newSearcher(opts engine.Options) *engine.Searcher {
	return engine.NewSearcher(opts, nil, nil)
}

func TestPrinterBoard(t *testing.T) {
	b, err := engine.NewBoard(5)
	require.NoError(t, err)
	require.NoError(t, b.Place(0, 2, engine.PlayerX))
	require.NoError(t, b.Place(4, 4, engine.PlayerO))

	var buf bytes.Buffer
	plainPrinter(&buf).Board(b, engine.Move{X: 4, Y: 4})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "       1  2  3  4  5", lines[0])
	assert.Equal(t, "    1  .  .  X  .  .", lines[1])
	assert.Equal(t, "    5  .  .  .  .  O", lines[5])
}

func TestPrinterRowsAndTimings(t *testing.T) {
	var buf bytes.Buffer
	p := plainPrinter(&buf)
	p.Pad = 3
	p.Rows([]string{"X . O", ". . ."}, true)
	p.Timings(Timing{Waited: 3 * time.Second, Server: time.Second}, Timing{Waited: time.Second, Server: 2 * time.Second})
	out := buf.String()
	assert.Contains(t, out, "   X . O\n")
	assert.Contains(t, out, "   X      ┃    3s ┃     1s ┃    2s ┃\n")
	assert.Contains(t, out, "   O      ┃    1s ┃     2s ┃    0s ┃\n")
}

func TestHistoryLine(t *testing.T) {
	rec := game.MoveRecord{Move: engine.Move{X: 6, Y: 9}, Player: engine.PlayerO, Elapsed: 1250 * time.Millisecond, Evaluated: 42}
	assert.Equal(t, "  3 | player O moved to [ 7, 10] (in   1.25s,  42 moves evaluated)", HistoryLine(3, rec, game.AI))
	assert.Equal(t, "  3 | player O moved to [ 7, 10] (in   1.25s)", HistoryLine(3, rec, game.Human))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "Game over: X wins!", Outcome(game.StatusXWins))
	assert.Equal(t, "Game over: O wins!", Outcome(game.StatusOWins))
	assert.Equal(t, "Game over: Draw!", Outcome(game.StatusDraw))
}

// nearlyWon has O to move with four in a row on row 5.
const nearlyWon = `{"X":{"player":"AI","depth":2},"O":{"player":"AI","depth":2},"board_size":15,"moves":[
  {"X (AI)":[3,0]},{"O (AI)":[5,0]},
  {"X (AI)":[3,1]},{"O (AI)":[5,1]},
  {"X (AI)":[3,2]},{"O (AI)":[5,2]},
  {"X (AI)":[10,10]},{"O (AI)":[5,3]},
  {"X (AI)":[12,12]}]}`

func TestPlayHeadlessFinishesTheGame(t *testing.T) {
	sess, err := game.Parse([]byte(nearlyWon), fileLimits)
	require.NoError(t, err)
	ctrl := game.NewController(sess)

	var buf bytes.Buffer
	err = PlayHeadless(context.Background(), ctrl, newSearcher, engine.DefaultOptions(), plainPrinter(&buf), logging.Discard())
	require.NoError(t, err)

	view := ctrl.View()
	assert.Equal(t, game.StatusOWins, view.Status)
	assert.Contains(t, buf.String(), "Move 10: O at [5, 4]")
	assert.Contains(t, buf.String(), "Game over: O wins!")
}

func TestPlayHeadlessNeedsAIPlayers(t *testing.T) {
	sess, err := game.New(game.DefaultSettings())
	require.NoError(t, err)
	var buf bytes.Buffer
	err = PlayHeadless(context.Background(), game.NewController(sess), newSearcher, engine.DefaultOptions(), plainPrinter(&buf), logging.Discard())
	assert.ErrorIs(t, err, ErrNeedsTerminal)
}

func TestReplayWithKeys(t *testing.T) {
	body := `{"X":{"player":"human"},"O":{"player":"AI"},"board_size":15,"moves":[
	  {"X (human)":[7,7],"time_ms":12.5},{"O (AI)":[6,6],"time_ms":3},{"X (human)":[7,8]}]}`
	sess, err := game.Parse([]byte(body), fileLimits)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Replay(context.Background(), sess, plainPrinter(&buf), 0, strings.NewReader("\n\n\n"), "game.json")
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Replaying game from: game.json")
	assert.Contains(t, out, "Total moves: 3 | Winner: none")
	assert.Contains(t, out, "Move 1/3: X at [7, 7] (12.500 ms)")
	assert.Contains(t, out, "Move 3/3: X at [7, 8]\n")
	assert.Contains(t, out, "Replay complete")
}

func TestReplayStopsOnQ(t *testing.T) {
	body := `{"X":{"player":"human"},"O":{"player":"AI"},"moves":[{"X (human)":[7,7]},{"O (AI)":[6,6]}]}`
	sess, err := game.Parse([]byte(body), fileLimits)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Replay(context.Background(), sess, plainPrinter(&buf), 0, strings.NewReader("\nq\n"), "game.json")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Move 1/2")
	assert.NotContains(t, buf.String(), "Move 2/2")
}

func TestReplayRejectsEmptyGame(t *testing.T) {
	sess, err := game.Parse([]byte(`{"X":{"player":"human"},"O":{"player":"AI"}}`), fileLimits)
	require.NoError(t, err)
	err = Replay(context.Background(), sess, plainPrinter(&bytes.Buffer{}), time.Millisecond, nil, "x")
	assert.ErrorIs(t, err, ErrEmptyReplay)
}

func TestBoardViewCursor(t *testing.T) {
	sess, err := game.New(game.DefaultSettings())
	require.NoError(t, err)
	bv := NewBoardView()
	bv.SetView(game.NewController(sess).View())
	assert.Equal(t, engine.Move{X: 9, Y: 9}, bv.Selected())

	bv.MoveCursor(-20, 3)
	assert.Equal(t, engine.Move{X: 0, Y: 12}, bv.Selected())
	bv.Select(engine.Move{X: 18, Y: 18})
	bv.MoveCursor(1, 1)
	assert.Equal(t, engine.Move{X: 18, Y: 18}, bv.Selected())
	bv.Select(engine.NoMove)
	assert.Equal(t, engine.Move{X: 18, Y: 18}, bv.Selected())
}

func TestSidePanel(t *testing.T) {
	settings := game.DefaultSettings()
	settings.Undo = true
	sess, err := game.New(settings)
	require.NoError(t, err)
	require.NoError(t, sess.Apply(game.MoveRecord{Move: engine.Move{X: 9, Y: 9}, Player: engine.PlayerX}))

	text := sidePanel(game.NewController(sess).View(), engine.Move{X: 4, Y: 5})
	assert.Contains(t, text, "AI (depth 4)")
	assert.Contains(t, text, "Position       : [  5,  6 ]")
	assert.Contains(t, text, "Undo           : enabled")
	assert.Contains(t, text, "player X moved to [10, 10]")
}

func TestAppKeysPlaceStones(t *testing.T) {
	settings := game.DefaultSettings()
	settings.BoardSize = 15
	settings.O.Kind = game.Human
	sess, err := game.New(settings)
	require.NoError(t, err)
	ctrl := game.NewController(sess)
	a := NewApp(AppOptions{Controller: ctrl, NewSearcher: newSearcher, Base: engine.DefaultOptions(), Logger: logging.Discard()})

	a.handleKey(tcellKey('l'))
	a.handleKey(tcellKey(' '))
	a.handleKey(tcellKey(' '))
	assert.Equal(t, "That cell is taken.", a.message)
	a.handleKey(tcellKey('j'))
	a.handleKey(tcellKey(' '))

	history := ctrl.View().History
	require.Len(t, history, 2)
	assert.Equal(t, engine.Move{X: 7, Y: 8}, history[0].Move)
	assert.Equal(t, engine.Move{X: 8, Y: 8}, history[1].Move)

	a.handleKey(tcellKey('u'))
	assert.Equal(t, "Undo is disabled; start with --undo.", a.message)
}
