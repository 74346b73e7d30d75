package engine

import (
	"fmt"
	"strings"
)

const (
	MinBoardSize = 5
	MaxBoardSize = 25
)

type Cell int8

const (
	CellEmpty Cell = iota
	CellX
	CellO
	// CellOutOfBounds is returned for reads outside the grid. It closes a
	// line exactly like an enemy stone.
	CellOutOfBounds
)

func (c Cell) String() string {
	switch c {
	case CellX:
		return "X"
	case CellO:
		return "O"
	case CellOutOfBounds:
		return "#"
	default:
		return "."
	}
}

type Player int8

const (
	PlayerX Player = Player(CellX)
	PlayerO Player = Player(CellO)
)

func (p Player) Other() Player {
	if p == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (p Player) Cell() Cell {
	return Cell(p)
}

func (p Player) Valid() bool {
	return p == PlayerX || p == PlayerO
}

func (p Player) String() string {
	if p == PlayerO {
		return "O"
	}
	return "X"
}

// ParsePlayer accepts "X" or "O" in either case.
func ParsePlayer(s string) (Player, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return PlayerX, nil
	case "O":
		return PlayerO, nil
	}
	return 0, fmt.Errorf("unknown player %q", s)
}

// Board is a square grid addressed as (x, y) where x is the row. It keeps a
// Zobrist fingerprint of its stones up to date on every Place and Remove.
type Board struct {
	size   int
	cells  []Cell
	stones int
	hash   uint64
	z      *ZobristTable
}

func NewBoard(size int) (*Board, error) {
	if size < MinBoardSize || size > MaxBoardSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Board{
		size:  size,
		cells: make([]Cell, size*size),
		z:     GetZobrist(size),
	}, nil
}

func (b *Board) Size() int {
	return b.size
}

func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.size && y < b.size
}

func (b *Board) At(x, y int) Cell {
	if !b.InBounds(x, y) {
		return CellOutOfBounds
	}
	return b.cells[b.index(x, y)]
}

func (b *Board) IsEmpty(x, y int) bool {
	return b.InBounds(x, y) && b.cells[b.index(x, y)] == CellEmpty
}

func (b *Board) Place(x, y int, p Player) error {
	if !b.InBounds(x, y) {
		return fmt.Errorf("%w: [%d, %d]", ErrOutOfBounds, x, y)
	}
	idx := b.index(x, y)
	if b.cells[idx] != CellEmpty {
		return fmt.Errorf("%w: [%d, %d]", ErrOccupied, x, y)
	}
	b.cells[idx] = p.Cell()
	b.stones++
	b.hash ^= b.z.stone(idx, p)
	return nil
}

// Remove clears a cell. Removing an empty or out-of-bounds cell is a no-op.
func (b *Board) Remove(x, y int) {
	if !b.InBounds(x, y) {
		return
	}
	idx := b.index(x, y)
	cell := b.cells[idx]
	if cell == CellEmpty {
		return
	}
	b.hash ^= b.z.stone(idx, Player(cell))
	b.cells[idx] = CellEmpty
	b.stones--
}

func (b *Board) Hash() uint64 {
	return b.hash
}

func (b *Board) Stones() int {
	return b.stones
}

func (b *Board) CountEmpty() int {
	return len(b.cells) - b.stones
}

func (b *Board) Full() bool {
	return b.stones == len(b.cells)
}

func (b *Board) Clone() *Board {
	clone := *b
	clone.cells = make([]Cell, len(b.cells))
	copy(clone.cells, b.cells)
	return &clone
}

// Equal reports whether both boards hold the same stones.
func (b *Board) Equal(other *Board) bool {
	if other == nil || b.size != other.size {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Rows renders each row as space separated cells, e.g. "X . O".
func (b *Board) Rows() []string {
	rows := make([]string, b.size)
	parts := make([]string, b.size)
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			parts[y] = b.cells[b.index(x, y)].String()
		}
		rows[x] = strings.Join(parts, " ")
	}
	return rows
}

func (b *Board) String() string {
	return strings.Join(b.Rows(), "\n")
}

var directions = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// HasFive reports whether p owns a run of exactly five stones. Longer runs
// do not count.
func (b *Board) HasFive(p Player) bool {
	target := p.Cell()
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			if b.cells[b.index(x, y)] != target {
				continue
			}
			for _, d := range directions {
				if b.At(x-d[0], y-d[1]) == target {
					continue
				}
				run := 1
				for b.At(x+run*d[0], y+run*d[1]) == target {
					run++
				}
				if run == NeedToWin {
					return true
				}
			}
		}
	}
	return false
}

// Winner returns the side holding five in a row, if any.
func (b *Board) Winner() (Player, bool) {
	if b.HasFive(PlayerX) {
		return PlayerX, true
	}
	if b.HasFive(PlayerO) {
		return PlayerO, true
	}
	return 0, false
}

// WinsAt reports whether placing p at (x, y) completes five in a row. The
// board is left unchanged.
func (b *Board) WinsAt(x, y int, p Player) bool {
	if !b.IsEmpty(x, y) {
		return false
	}
	target := p.Cell()
	for _, d := range directions {
		run := 1
		for i := 1; b.At(x+i*d[0], y+i*d[1]) == target; i++ {
			run++
		}
		for i := 1; b.At(x-i*d[0], y-i*d[1]) == target; i++ {
			run++
		}
		if run == NeedToWin {
			return true
		}
	}
	return false
}

// fiveThrough reports whether the stone at (x, y) sits in a run of exactly
// five.
func (b *Board) fiveThrough(x, y int) bool {
	target := b.At(x, y)
	if target != CellX && target != CellO {
		return false
	}
	for _, d := range directions {
		run := 1
		for i := 1; b.At(x+i*d[0], y+i*d[1]) == target; i++ {
			run++
		}
		for i := 1; b.At(x-i*d[0], y-i*d[1]) == target; i++ {
			run++
		}
		if run == NeedToWin {
			return true
		}
	}
	return false
}

func (b *Board) index(x, y int) int {
	return x*b.size + y
}
