package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
)

// Limits applied to games played through the daemon.
const (
	APIMaxDepth  = 4
	APIMaxRadius = 3
)

// DepthWarning is the depth from which interactive play gets slow enough
// to warn about.
const DepthWarning = 7

var levels = map[string]int{
	"easy":         2,
	"medium":       4,
	"intermediate": 4,
	"hard":         6,
}

// ParseLevel maps a difficulty name to a search depth.
func ParseLevel(name string) (int, error) {
	depth, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown level %q: want easy, medium or hard", name)
	}
	return depth, nil
}

// ParseDepth reads "N" (both sides) or "X:O" (per side).
func ParseDepth(s string) (x, o int, err error) {
	left, right, split := strings.Cut(s, ":")
	x, err = parseOneDepth(left)
	if err != nil {
		return 0, 0, err
	}
	if !split {
		return x, x, nil
	}
	o, err = parseOneDepth(right)
	if err != nil {
		return 0, 0, err
	}
	return x, o, nil
}

func parseOneDepth(s string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid depth %q", s)
	}
	if d < 1 || d > engine.MaxDepth {
		return 0, fmt.Errorf("depth %d out of range 1..%d", d, engine.MaxDepth)
	}
	return d, nil
}

// ClampAPI caps a requested depth and radius to the daemon limits. A
// non-positive depth takes the limit itself.
func (s ServerConfig) ClampAPI(depth, radius int) (int, int) {
	if depth <= 0 || depth > s.MaxDepth {
		depth = s.MaxDepth
	}
	radius = max(1, min(radius, s.MaxRadius))
	return depth, radius
}
