package engine

import "errors"

var (
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	ErrOccupied    = errors.New("cell already occupied")
	ErrInvalidSize = errors.New("invalid board size")
	ErrNoMove      = errors.New("no legal move available")
)
