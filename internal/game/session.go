package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
)

const maxAIHistory = 20

type Session struct {
	settings  Settings
	board     *engine.Board
	current   engine.Player
	status    Status
	history   History
	aiHistory []string
	totals    [2]time.Duration
	lastAI    engine.Move
	turnStart time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// New starts a game with X to move.
func New(settings Settings) (*Session, error) {
	board, err := engine.NewBoard(settings.BoardSize)
	if err != nil {
		return nil, err
	}
	settings.Radius = max(1, min(settings.Radius, engine.MaxRadius))
	s := &Session{
		settings: settings,
		board:    board,
		current:  engine.PlayerX,
		lastAI:   engine.NoMove,
		now:      time.Now,
		logger:   logging.Discard(),
	}
	s.turnStart = s.now()
	return s, nil
}

func (s *Session) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.Discard()
	}
	s.logger = logger.With("component", "game")
}

func (s *Session) Settings() Settings {
	return s.settings
}

func (s *Session) Current() engine.Player {
	return s.current
}

func (s *Session) Status() Status {
	return s.status
}

func (s *Session) History() []MoveRecord {
	return s.history.All()
}

func (s *Session) MoveCount() int {
	return s.history.Size()
}

func (s *Session) AIHistory() []string {
	return append([]string(nil), s.aiHistory...)
}

func (s *Session) LastAIMove() engine.Move {
	return s.lastAI
}

func (s *Session) Board() *engine.Board {
	return s.board.Clone()
}

func (s *Session) LastMove() (MoveRecord, bool) {
	return s.history.Last()
}

// TotalTime is the time p has spent on its moves so far.
func (s *Session) TotalTime(p engine.Player) time.Duration {
	return s.totals[sideIndex(p)]
}

// CurrentIsHuman reports whether the side to move is played from the
// keyboard.
func (s *Session) CurrentIsHuman() bool {
	return s.settings.Player(s.current).Kind == Human
}

// StartTurn restarts the move clock.
func (s *Session) StartTurn() {
	s.turnStart = s.now()
}

// TimedOut reports whether the current turn has run past the timeout.
func (s *Session) TimedOut() bool {
	if s.settings.Timeout <= 0 {
		return false
	}
	return s.now().Sub(s.turnStart) >= s.settings.Timeout
}

// CheckState updates the status from the board: a five for X, then a five
// for O, then a full board.
func (s *Session) CheckState() Status {
	switch {
	case s.board.HasFive(engine.PlayerX):
		s.status = StatusXWins
	case s.board.HasFive(engine.PlayerO):
		s.status = StatusOWins
	case s.board.Full():
		s.status = StatusDraw
	}
	return s.status
}

// MakeMove plays a keyboard move for the side to move, timed from the
// start of the turn.
func (s *Session) MakeMove(x, y int) error {
	if s.status != StatusRunning {
		return ErrGameOver
	}
	if !s.CurrentIsHuman() {
		return ErrNotYourTurn
	}
	return s.Apply(MoveRecord{
		Move:    engine.Move{X: x, Y: y},
		Player:  s.current,
		Elapsed: s.now().Sub(s.turnStart),
	})
}

// Apply places rec as given. It does not check whose turn it is; the
// other side moves next.
func (s *Session) Apply(rec MoveRecord) error {
	if s.status != StatusRunning {
		return ErrGameOver
	}
	return s.place(rec)
}

func (s *Session) place(rec MoveRecord) error {
	if !rec.Player.Valid() {
		return fmt.Errorf("move %v: invalid player %d", rec.Move, rec.Player)
	}
	if err := s.board.Place(rec.Move.X, rec.Move.Y, rec.Player); err != nil {
		return fmt.Errorf("move %v: %w", rec.Move, err)
	}
	s.totals[sideIndex(rec.Player)] += rec.Elapsed
	wasRunning := s.status == StatusRunning
	if s.CheckState() != StatusRunning && wasRunning {
		rec.Winner = true
		s.logger.Info("game over", "result", s.status.String(), "moves", s.history.Size()+1)
	}
	s.history.Push(rec)
	s.current = rec.Player.Other()
	s.turnStart = s.now()
	s.logger.Debug("move played", "player", rec.Player.String(), "move", rec.Move.String(),
		"ms", rec.Elapsed.Milliseconds(), "evaluated", rec.Evaluated)
	return nil
}

// Options derives search options for the side to move from base.
func (s *Session) Options(base engine.Options) engine.Options {
	opts := base
	opts.Depth = s.settings.Player(s.current).Depth
	if opts.Depth <= 0 {
		opts.Depth = engine.DefaultDepth
	}
	opts.Radius = s.settings.Radius
	opts.Timeout = s.settings.Timeout
	return opts
}

// PlayAI lets searcher choose and play the move for the side to move.
func (s *Session) PlayAI(searcher *engine.Searcher) (MoveRecord, engine.Result, error) {
	if s.status != StatusRunning {
		return MoveRecord{}, engine.Result{}, ErrGameOver
	}
	rec, res, err := Think(s.board.Clone(), s.current, searcher)
	if err != nil {
		return rec, res, err
	}
	if err := s.playThought(rec); err != nil {
		return rec, res, err
	}
	last, _ := s.history.Last()
	return last, res, nil
}

func (s *Session) playThought(rec MoveRecord) error {
	if err := s.Apply(rec); err != nil {
		return err
	}
	s.lastAI = rec.Move
	s.addAIHistory(rec.Evaluated)
	return nil
}

// Think runs searcher for p on b and describes the chosen move. The
// scores rate the chosen cell for both sides.
func Think(b *engine.Board, p engine.Player, searcher *engine.Searcher) (MoveRecord, engine.Result, error) {
	res := searcher.FindBestMove(b, p)
	if res.Move == engine.NoMove {
		return MoveRecord{}, res, engine.ErrNoMove
	}
	return MoveRecord{
		Move:      res.Move,
		Player:    p,
		Elapsed:   res.Elapsed,
		Evaluated: int(max(res.Nodes, 1)),
		Score:     engine.FastThreat(b, res.Move.X, res.Move.Y, p),
		Opponent:  engine.FastThreat(b, res.Move.X, res.Move.Y, p.Other()),
	}, res, nil
}

func (s *Session) addAIHistory(evaluated int) {
	if len(s.aiHistory) >= maxAIHistory {
		s.aiHistory = append(s.aiHistory[:0], s.aiHistory[1:]...)
	}
	s.aiHistory = append(s.aiHistory, fmt.Sprintf("%2d | %3d positions evaluated", len(s.aiHistory)+1, evaluated))
}

// Undo takes back the last two moves, normally a human move and the AI
// reply, and resumes the game.
func (s *Session) Undo() error {
	if !s.settings.Undo {
		return ErrUndoDisabled
	}
	if s.history.Size() < 2 {
		return ErrNothingToUndo
	}
	for range 2 {
		rec, _ := s.history.Pop()
		s.board.Remove(rec.Move.X, rec.Move.Y)
		s.totals[sideIndex(rec.Player)] -= rec.Elapsed
		s.current = rec.Player
	}
	if n := len(s.aiHistory); n > 0 {
		s.aiHistory = s.aiHistory[:n-1]
	}
	s.lastAI = engine.NoMove
	s.status = StatusRunning
	s.turnStart = s.now()
	return nil
}

func (s *Session) Quit() {
	if s.status == StatusRunning {
		s.status = StatusQuit
	}
}

func sideIndex(p engine.Player) int {
	if p == engine.PlayerO {
		return 1
	}
	return 0
}
