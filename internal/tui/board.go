package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
)

// Board colours, indexed like the drawing code expects.
var boardColors = struct {
	Board      tcell.Color
	BoardAlt   tcell.Color
	Line       tcell.Color
	X          tcell.Color
	O          tcell.Color
	Cursor     tcell.Color
	LastPlayed tcell.Color
	Coord      tcell.Color
}{
	Board:      tcell.PaletteColor(236),
	BoardAlt:   tcell.PaletteColor(237),
	Line:       tcell.PaletteColor(243),
	X:          tcell.PaletteColor(203),
	O:          tcell.PaletteColor(75),
	Cursor:     tcell.PaletteColor(178),
	LastPlayed: tcell.PaletteColor(58),
	Coord:      tcell.PaletteColor(108),
}

// BoardView draws the grid with stones, the cursor and the last move. Row
// r on screen is board x = r, column c is y = c.
type BoardView struct {
	Box  *tview.Box
	view game.View
	row  int
	col  int
	// Cursor hides the cursor when false, as in replays.
	Cursor bool
}

func NewBoardView() *BoardView {
	bv := &BoardView{Box: tview.NewBox(), row: -1, col: -1, Cursor: true}
	bv.Box.SetDrawFunc(bv.draw)
	return bv
}

// SetView swaps in a new snapshot. The cursor starts at the center.
func (bv *BoardView) SetView(v game.View) {
	bv.view = v
	if v.Board == nil {
		return
	}
	if bv.row < 0 || bv.row >= v.Board.Size() || bv.col < 0 || bv.col >= v.Board.Size() {
		bv.row, bv.col = v.Board.Size()/2, v.Board.Size()/2
	}
}

// Selected is the cell under the cursor.
func (bv *BoardView) Selected() engine.Move {
	return engine.Move{X: bv.row, Y: bv.col}
}

// Select puts the cursor on m if it is on the board.
func (bv *BoardView) Select(m engine.Move) {
	if bv.view.Board == nil || !m.IsValid(bv.view.Board.Size()) {
		return
	}
	bv.row, bv.col = m.X, m.Y
}

// MoveCursor shifts the cursor by whole cells and stops at the edges.
func (bv *BoardView) MoveCursor(dRow, dCol int) {
	if bv.view.Board == nil {
		return
	}
	size := bv.view.Board.Size()
	bv.row = max(0, min(size-1, bv.row+dRow))
	bv.col = max(0, min(size-1, bv.col+dCol))
}

func (bv *BoardView) lastMove() engine.Move {
	if n := len(bv.view.History); n > 0 {
		return bv.view.History[n-1].Move
	}
	return engine.NoMove
}

func (bv *BoardView) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	b := bv.view.Board
	if b == nil {
		return x, y, width, height
	}
	size := b.Size()
	left, top := x+4, y+1
	last := bv.lastMove()
	coord := tcell.StyleDefault.Foreground(boardColors.Coord)

	for col := 0; col < size; col++ {
		drawNumber(screen, left+col*2, y, col+1, coord)
	}
	for row := 0; row < size; row++ {
		drawNumber(screen, x+1, top+row, row+1, coord)
		for col := 0; col < size; col++ {
			bg := boardColors.Board
			if (row+col)%2 == 1 {
				bg = boardColors.BoardAlt
			}
			if row == last.X && col == last.Y {
				bg = boardColors.LastPlayed
			}
			if bv.Cursor && row == bv.row && col == bv.col && bv.view.Status == game.StatusRunning {
				bg = boardColors.Cursor
			}
			style := tcell.StyleDefault.Background(bg)
			cell := b.At(row, col)
			switch cell {
			case engine.CellX:
				screen.SetContent(left+col*2, top+row, 'X', nil, style.Foreground(boardColors.X).Bold(true))
				screen.SetContent(left+col*2+1, top+row, ' ', nil, style)
			case engine.CellO:
				screen.SetContent(left+col*2, top+row, 'O', nil, style.Foreground(boardColors.O).Bold(true))
				screen.SetContent(left+col*2+1, top+row, ' ', nil, style)
			default:
				style = style.Foreground(boardColors.Line)
				screen.SetContent(left+col*2, top+row, gridRune(row, col, size), nil, style)
				right := '─'
				if col == size-1 || b.At(row, col+1) != engine.CellEmpty {
					right = ' '
				}
				screen.SetContent(left+col*2+1, top+row, right, nil, style)
			}
		}
	}
	return x, y, size*2 + 4, size + 1
}

func drawNumber(screen tcell.Screen, x, y, n int, style tcell.Style) {
	tens := ' '
	if n >= 10 {
		tens = rune('0' + n/10)
	}
	screen.SetContent(x, y, tens, nil, style)
	screen.SetContent(x+1, y, rune('0'+n%10), nil, style)
}

func gridRune(row, col, size int) rune {
	top, bottom := row == 0, row == size-1
	left, right := col == 0, col == size-1
	switch {
	case top && left:
		return '┌'
	case top && right:
		return '┐'
	case bottom && left:
		return '└'
	case bottom && right:
		return '┘'
	case top:
		return '┬'
	case bottom:
		return '┴'
	case left:
		return '├'
	case right:
		return '┤'
	}
	return '┼'
}
