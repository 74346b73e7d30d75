// Package game tracks one Gomoku match: whose turn it is, the move log with
// timings and scores, undo, and the JSON game record shared by the terminal
// game, the daemon and the test client.
package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
)

type Kind int

const (
	Human Kind = iota
	AI
)

func (k Kind) String() string {
	if k == AI {
		return "AI"
	}
	return "human"
}

// ParseKind accepts "human" or "AI" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human":
		return Human, nil
	case "ai":
		return AI, nil
	}
	return Human, fmt.Errorf("invalid player type %q: expected 'human' or 'AI'", s)
}

type Status int

const (
	StatusRunning Status = iota
	StatusXWins
	StatusOWins
	StatusDraw
	StatusQuit
)

func (s Status) String() string {
	switch s {
	case StatusXWins:
		return "X wins"
	case StatusOWins:
		return "O wins"
	case StatusDraw:
		return "draw"
	case StatusQuit:
		return "quit"
	}
	return "running"
}

// Finished reports a decided game. A quit game is over but undecided.
func (s Status) Finished() bool {
	return s == StatusXWins || s == StatusOWins || s == StatusDraw
}

// Winner is the record spelling: "none", "X", "O" or "draw".
func (s Status) Winner() string {
	switch s {
	case StatusXWins:
		return "X"
	case StatusOWins:
		return "O"
	case StatusDraw:
		return "draw"
	}
	return "none"
}

type PlayerSettings struct {
	Kind  Kind
	Depth int
}

type Settings struct {
	BoardSize int
	X         PlayerSettings
	O         PlayerSettings
	Radius    int
	// Timeout bounds each AI move; zero means none.
	Timeout time.Duration
	Undo    bool
}

func DefaultSettings() Settings {
	return Settings{
		BoardSize: 19,
		X:         PlayerSettings{Kind: Human, Depth: engine.DefaultDepth},
		O:         PlayerSettings{Kind: AI, Depth: engine.DefaultDepth},
		Radius:    engine.DefaultRadius,
	}
}

func (s Settings) Player(p engine.Player) PlayerSettings {
	if p == engine.PlayerO {
		return s.O
	}
	return s.X
}
