// Package client plays whole games against the HTTP daemon by letting it
// move for both sides.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/tui"
)

const (
	playPath       = "/gomoku/play"
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 60 * time.Second
)

// ErrNoProgress is returned when the daemon answers without adding a move.
var ErrNoProgress = errors.New("daemon returned the game without a new move")

// StatusError is a non-retryable HTTP failure.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("POST %s -> %d: %s", playPath, e.Code, e.Body)
}

type Options struct {
	BaseURL   string
	BoardSize int
	Depth     int
	Radius    int
	// MaxRetries bounds the 503 retries of one move; zero retries forever.
	MaxRetries int
	HTTP       *http.Client
	Logger     *slog.Logger
	// Progress, when set, sees the game after every move and while the
	// daemon is busy.
	Progress func(Update)
}

// Update is what Progress receives.
type Update struct {
	GameID string
	Record game.Record
	Move   int
	X, O   tui.Timing
	// Busy is set while a move waits on a 503 retry.
	Busy bool
}

type Result struct {
	GameID string
	Record game.Record
	Moves  int
	X, O   tui.Timing
	// Errors counts every non-2xx status the daemon answered with.
	Errors map[int]int
}

type Client struct {
	opts Options
}

func New(opts Options) *Client {
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{opts: opts}
}

// InitialRecord is the empty game the client starts from: both sides AI.
func InitialRecord(boardSize, depth, radius int) game.Record {
	player := game.PlayerRecord{Player: game.AI.String(), Depth: depth}
	return game.Record{
		X:          player,
		O:          player,
		BoardSize:  boardSize,
		Radius:     radius,
		Winner:     "none",
		BoardState: []string{},
		Moves:      []game.MoveEntry{},
	}
}

// Play runs one game to the end.
func (c *Client) Play(ctx context.Context) (*Result, error) {
	res := &Result{
		GameID: uuid.NewString(),
		Record: InitialRecord(c.opts.BoardSize, c.opts.Depth, c.opts.Radius),
		Errors: map[int]int{},
	}
	logger := c.opts.Logger.With("component", "client", "game", res.GameID)
	logger.Info("game started", "board", c.opts.BoardSize, "depth", c.opts.Depth, "radius", c.opts.Radius)

	for res.Record.Winner == "none" {
		body, err := json.Marshal(res.Record)
		if err != nil {
			return res, err
		}
		oTurn := nextSide(res.Record) == engine.PlayerO
		start := time.Now()
		reply, err := c.postWithRetry(ctx, res, body, oTurn, start)
		waited := time.Since(start)
		if oTurn {
			res.O.Waited += waited
		} else {
			res.X.Waited += waited
		}
		if err != nil {
			return res, err
		}

		var next game.Record
		if err := json.Unmarshal(reply, &next); err != nil {
			return res, fmt.Errorf("decode daemon reply: %w", err)
		}
		if len(next.Moves) <= len(res.Record.Moves) && next.Winner == "none" {
			return res, ErrNoProgress
		}
		res.Record = next
		res.Moves = len(next.Moves)
		res.X.Server = next.X.TimeMs.Duration()
		res.O.Server = next.O.TimeMs.Duration()
		if n := len(next.Moves); n > 0 {
			last := next.Moves[n-1]
			logging.Trace(logger, "move", "n", n, "key", last.Key, "x", last.Move.X, "y", last.Move.Y, "ms", float64(waited.Microseconds())/1000)
		}
		c.progress(res, false)
	}
	logger.Info("game finished", "winner", res.Record.Winner, "moves", res.Moves, "server_errors", res.TotalErrors())
	return res, nil
}

// nextSide is the side the daemon moves for: the opponent of the last
// mover, or O on an empty board.
func nextSide(r game.Record) engine.Player {
	if n := len(r.Moves); n > 0 && r.Moves[n-1].Player.Valid() {
		return r.Moves[n-1].Player.Other()
	}
	return engine.PlayerO
}

func (c *Client) progress(res *Result, busy bool) {
	if c.opts.Progress == nil {
		return
	}
	c.opts.Progress(Update{GameID: res.GameID, Record: res.Record, Move: res.Moves, X: res.X, O: res.O, Busy: busy})
}

// postWithRetry retries 503 answers with exponential backoff starting at
// 100ms and capped at a minute.
func (c *Client) postWithRetry(ctx context.Context, res *Result, body []byte, oTurn bool, start time.Time) ([]byte, error) {
	delay := initialBackoff
	for attempt := 1; ; attempt++ {
		reply, code, err := c.post(ctx, res.GameID, body)
		if code >= 100 && (code < 200 || code >= 300) {
			res.Errors[code]++
		}
		if err == nil {
			return reply, nil
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
			return nil, err
		}
		if c.opts.MaxRetries > 0 && attempt >= c.opts.MaxRetries {
			return nil, err
		}

		busy := *res
		if oTurn {
			busy.O.Waited += time.Since(start)
		} else {
			busy.X.Waited += time.Since(start)
		}
		c.progress(&busy, true)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxBackoff)
	}
}

func (c *Client) post(ctx context.Context, gameID string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+playPath, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", gameID)
	resp, err := c.opts.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

// Status maps the record's winner back to a game status.
func (r *Result) Status() game.Status {
	switch r.Record.Winner {
	case "X":
		return game.StatusXWins
	case "O":
		return game.StatusOWins
	case "draw":
		return game.StatusDraw
	}
	return game.StatusRunning
}

func (r *Result) TotalErrors() int {
	total := 0
	for _, n := range r.Errors {
		total += n
	}
	return total
}

// ErrorSummary reads like "3 total (500=1, 503=2)", or "" without errors.
func (r *Result) ErrorSummary() string {
	if len(r.Errors) == 0 {
		return ""
	}
	codes := make([]int, 0, len(r.Errors))
	for code := range r.Errors {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%d=%d", code, r.Errors[code]))
	}
	return fmt.Sprintf("%d total (%s)", r.TotalErrors(), strings.Join(parts, ", "))
}

type savedGame struct {
	game.Record
	ServerErrors map[string]int `json:"server_errors,omitempty"`
}

// Save writes the final record, plus server_errors when there were any.
func (r *Result) Save(path string) error {
	out := savedGame{Record: r.Record}
	if len(r.Errors) > 0 {
		out.ServerErrors = make(map[string]int, len(r.Errors))
		for code, n := range r.Errors {
			out.ServerErrors[strconv.Itoa(code)] = n
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
