package game

import (
	"time"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
)

// MoveRecord is one placed stone. Score and Opponent are the mover's and
// the other side's ratings, filled for AI moves.
type MoveRecord struct {
	Move      engine.Move
	Player    engine.Player
	Elapsed   time.Duration
	Evaluated int
	Score     int
	Opponent  int
	Winner    bool
}

type History struct {
	entries []MoveRecord
}

func (h *History) Clear() {
	h.entries = nil
}

func (h *History) Push(entry MoveRecord) {
	h.entries = append(h.entries, entry)
}

func (h *History) Pop() (MoveRecord, bool) {
	if len(h.entries) == 0 {
		return MoveRecord{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

func (h History) Last() (MoveRecord, bool) {
	if len(h.entries) == 0 {
		return MoveRecord{}, false
	}
	return h.entries[len(h.entries)-1], true
}

func (h History) Size() int {
	return len(h.entries)
}

func (h History) All() []MoveRecord {
	return append([]MoveRecord(nil), h.entries...)
}
