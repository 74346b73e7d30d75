package game

import "errors"

var (
	ErrGameOver      = errors.New("game is over")
	ErrNotYourTurn   = errors.New("not a human turn")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrUndoDisabled  = errors.New("undo is disabled")
	// ErrStale means the game changed while the AI was thinking.
	ErrStale = errors.New("game changed during search")
)

// ParseError is a rejected game record. Its message is returned to API
// clients as is.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return e.Msg
}
