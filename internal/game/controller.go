package game

import (
	"sync"
	"time"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
)

// Controller serializes access to a Session for a UI that runs the AI in
// the background. The search works on a copy of the board without holding
// the lock, so the UI stays responsive while it thinks.
type Controller struct {
	mu       sync.Mutex
	session  *Session
	gen      uint64
	thinking bool
}

func NewController(session *Session) *Controller {
	return &Controller{session: session}
}

// View is a consistent copy of what a UI draws.
type View struct {
	Board     *engine.Board
	Settings  Settings
	Current   engine.Player
	Status    Status
	History   []MoveRecord
	AIHistory []string
	LastAI    engine.Move
	TotalX    time.Duration
	TotalO    time.Duration
	Thinking  bool
	TimedOut  bool
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	return View{
		Board:     s.Board(),
		Settings:  s.Settings(),
		Current:   s.Current(),
		Status:    s.Status(),
		History:   s.History(),
		AIHistory: s.AIHistory(),
		LastAI:    s.LastAIMove(),
		TotalX:    s.TotalTime(engine.PlayerX),
		TotalO:    s.TotalTime(engine.PlayerO),
		Thinking:  c.thinking,
		TimedOut:  s.TimedOut(),
	}
}

func (c *Controller) ApplyHumanMove(x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.thinking {
		return ErrNotYourTurn
	}
	if err := c.session.MakeMove(x, y); err != nil {
		return err
	}
	c.gen++
	return nil
}

// AITurn reports whether the side to move is an AI that should play now.
func (c *Controller) AITurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Status() == StatusRunning && !c.session.CurrentIsHuman() && !c.thinking
}

// PlayAI searches with the searcher newSearcher builds for the side to
// move and plays the result. It returns ErrStale if the game was undone or
// reset while the search ran.
func (c *Controller) PlayAI(newSearcher func(engine.Options) *engine.Searcher, base engine.Options) (MoveRecord, engine.Result, error) {
	c.mu.Lock()
	s := c.session
	if s.Status() != StatusRunning {
		c.mu.Unlock()
		return MoveRecord{}, engine.Result{}, ErrGameOver
	}
	board, player, gen := s.Board(), s.Current(), c.gen
	searcher := newSearcher(s.Options(base))
	c.thinking = true
	c.mu.Unlock()

	rec, res, err := Think(board, player, searcher)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.thinking = false
	if err != nil {
		return rec, res, err
	}
	if c.gen != gen || c.session != s {
		return rec, res, ErrStale
	}
	if err := s.playThought(rec); err != nil {
		return rec, res, err
	}
	c.gen++
	last, _ := s.LastMove()
	return last, res, nil
}

func (c *Controller) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.session.Undo(); err != nil {
		return err
	}
	c.gen++
	return nil
}

func (c *Controller) Quit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Quit()
	c.gen++
}

func (c *Controller) LatestHistoryEntry() (MoveRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.LastMove()
}

func (c *Controller) Reset(settings Settings) error {
	session, err := New(settings)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	session.logger = c.session.logger
	c.session = session
	c.gen++
	return nil
}

func (c *Controller) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Save(path)
}
