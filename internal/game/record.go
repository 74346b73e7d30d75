package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
)

// Limits bound the depth and radius a record may ask for. Missing or
// non-positive depths take DefaultDepth.
type Limits struct {
	MaxDepth     int
	MaxRadius    int
	DefaultDepth int
}

// FileLimits accept anything the engine can search.
var FileLimits = Limits{MaxDepth: engine.MaxDepth, MaxRadius: engine.MaxRadius, DefaultDepth: engine.DefaultDepth}

// Record is the JSON form of a game.
type Record struct {
	X          PlayerRecord `json:"X"`
	O          PlayerRecord `json:"O"`
	BoardSize  int          `json:"board_size"`
	Radius     int          `json:"radius"`
	Timeout    Timeout      `json:"timeout"`
	Winner     string       `json:"winner"`
	BoardState []string     `json:"board_state"`
	Moves      []MoveEntry  `json:"moves"`
}

type PlayerRecord struct {
	Player string `json:"player"`
	Depth  int    `json:"depth,omitempty"`
	TimeMs Millis `json:"time_ms"`
}

// Millis is a duration in milliseconds written with three decimals.
type Millis float64

func MillisOf(d time.Duration) Millis {
	return Millis(math.Round(float64(d)/float64(time.Microsecond)) / 1000)
}

func (m Millis) Duration() time.Duration {
	return time.Duration(float64(m) * float64(time.Millisecond))
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(m), 'f', 3, 64), nil
}

// Timeout is in whole seconds; zero is written as "none".
type Timeout int

func (t Timeout) MarshalJSON() ([]byte, error) {
	if t <= 0 {
		return []byte(`"none"`), nil
	}
	return strconv.AppendInt(nil, int64(t), 10), nil
}

// UnmarshalJSON takes an integer; anything else, "none" included, is zero.
func (t *Timeout) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		n = 0
	}
	*t = Timeout(max(n, 0))
	return nil
}

// MoveEntry is one element of "moves". Its position sits under a key
// naming the player and kind, e.g. "X (AI)": [7, 7].
type MoveEntry struct {
	Key       string
	Player    engine.Player
	Move      engine.Move
	Evaluated int
	Score     int
	Opponent  int
	TimeMs    Millis
	Winner    bool
}

func (e MoveEntry) MarshalJSON() ([]byte, error) {
	key, err := json.Marshal(e.Key)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "{%s:[%d,%d]", key, e.Move.X, e.Move.Y)
	if e.Evaluated > 0 {
		fmt.Fprintf(&buf, `,"moves_evaluated":%d`, e.Evaluated)
	}
	if e.Score != 0 {
		fmt.Fprintf(&buf, `,"score":%d`, e.Score)
	}
	if e.Opponent != 0 {
		fmt.Fprintf(&buf, `,"opponent":%d`, e.Opponent)
	}
	ms, _ := e.TimeMs.MarshalJSON()
	buf.WriteString(`,"time_ms":`)
	buf.Write(ms)
	if e.Winner {
		buf.WriteString(`,"winner":true`)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON finds the position under any key holding a two element
// array; the key's first letter names the player. "moves_searched" is an
// older name for "moves_evaluated".
func (e *MoveEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*e = MoveEntry{Move: engine.NoMove}
	for key, raw := range fields {
		var pos []json.RawMessage
		if json.Unmarshal(raw, &pos) == nil && len(pos) == 2 {
			e.Key = key
			e.Move = engine.Move{X: intValue(pos[0]), Y: intValue(pos[1])}
			e.Player = 0
			if strings.HasPrefix(key, "X") {
				e.Player = engine.PlayerX
			} else if strings.HasPrefix(key, "O") {
				e.Player = engine.PlayerO
			}
			continue
		}
		switch key {
		case "time_ms":
			e.TimeMs = Millis(floatValue(raw))
		case "moves_evaluated", "moves_searched":
			e.Evaluated = intValue(raw)
		case "score":
			e.Score = intValue(raw)
		case "opponent":
			e.Opponent = intValue(raw)
		case "winner":
			e.Winner = intValue(raw) != 0
		}
	}
	return nil
}

func (e MoveEntry) record() MoveRecord {
	return MoveRecord{
		Move:      e.Move,
		Player:    e.Player,
		Elapsed:   e.TimeMs.Duration(),
		Evaluated: e.Evaluated,
		Score:     e.Score,
		Opponent:  e.Opponent,
	}
}

// Record describes the game so far.
func (s *Session) Record() Record {
	r := Record{
		X:          s.playerRecord(engine.PlayerX),
		O:          s.playerRecord(engine.PlayerO),
		BoardSize:  s.board.Size(),
		Radius:     s.settings.Radius,
		Timeout:    Timeout(s.settings.Timeout / time.Second),
		Winner:     s.status.Winner(),
		BoardState: s.board.Rows(),
		Moves:      make([]MoveEntry, 0, s.history.Size()),
	}
	for _, rec := range s.history.entries {
		kind := s.settings.Player(rec.Player).Kind
		e := MoveEntry{
			Key:    fmt.Sprintf("%s (%s)", rec.Player, kind),
			Player: rec.Player,
			Move:   rec.Move,
			TimeMs: MillisOf(rec.Elapsed),
			Winner: rec.Winner,
		}
		if kind == AI {
			e.Evaluated, e.Score, e.Opponent = rec.Evaluated, rec.Score, rec.Opponent
		}
		r.Moves = append(r.Moves, e)
	}
	return r
}

func (s *Session) playerRecord(p engine.Player) PlayerRecord {
	ps := s.settings.Player(p)
	pr := PlayerRecord{Player: ps.Kind.String(), TimeMs: MillisOf(s.TotalTime(p))}
	if ps.Kind == AI {
		pr.Depth = ps.Depth
	}
	return pr
}

// Encode renders the game record as indented JSON.
func (s *Session) Encode() ([]byte, error) {
	return json.MarshalIndent(s.Record(), "", "  ")
}

func (s *Session) Save(path string) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write game %s: %w", path, err)
	}
	return nil
}

func Load(path string, limits Limits) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game %s: %w", path, err)
	}
	return Parse(data, limits)
}

// Parse rebuilds a game from its record by replaying the moves. Rejections
// are *ParseError values with messages fit for API clients.
func Parse(data []byte, limits Limits) (*Session, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil || root == nil {
		return nil, &ParseError{"Invalid JSON syntax"}
	}

	settings := DefaultSettings()
	if raw, ok := root["board_size"]; ok {
		settings.BoardSize = intValue(raw)
		if settings.BoardSize != 15 && settings.BoardSize != 19 {
			return nil, &ParseError{"Invalid board size: must be 15 or 19"}
		}
	}

	sides := map[string]map[string]json.RawMessage{}
	for _, name := range []string{"X", "O"} {
		if _, ok := root[name]; !ok {
			return nil, &ParseError{"Missing required field: " + name}
		}
	}
	for _, name := range []string{"X", "O"} {
		var obj map[string]json.RawMessage
		_ = json.Unmarshal(root[name], &obj)
		if _, ok := obj["player"]; !ok {
			return nil, &ParseError{"Missing required field: " + name + ".player"}
		}
		sides[name] = obj
	}
	var err error
	if settings.X, err = parsePlayer(sides["X"], limits); err != nil {
		return nil, err
	}
	if settings.O, err = parsePlayer(sides["O"], limits); err != nil {
		return nil, err
	}

	if raw, ok := root["radius"]; ok {
		settings.Radius = max(1, min(intValue(raw), limits.MaxRadius))
	}
	if raw, ok := root["timeout"]; ok {
		var t Timeout
		_ = t.UnmarshalJSON(raw)
		settings.Timeout = time.Duration(t) * time.Second
	}

	sess, err := New(settings)
	if err != nil {
		return nil, &ParseError{"Failed to initialize game state"}
	}
	var moves []json.RawMessage
	if raw, ok := root["moves"]; ok {
		_ = json.Unmarshal(raw, &moves)
	}
	for _, raw := range moves {
		var e MoveEntry
		if json.Unmarshal(raw, &e) != nil {
			continue
		}
		if e.Move.X < 0 || e.Move.Y < 0 || !e.Player.Valid() {
			continue
		}
		if err := sess.place(e.record()); err != nil {
			return nil, &ParseError{fmt.Sprintf("Invalid move at position [%d, %d]", e.Move.X, e.Move.Y)}
		}
		if settings.Player(e.Player).Kind == AI {
			sess.lastAI = e.Move
		}
	}
	sess.CheckState()
	return sess, nil
}

func parsePlayer(obj map[string]json.RawMessage, limits Limits) (PlayerSettings, error) {
	var name string
	if json.Unmarshal(obj["player"], &name) != nil {
		return PlayerSettings{}, &ParseError{"Invalid player type: expected 'human' or 'AI'"}
	}
	kind, err := ParseKind(name)
	if err != nil {
		return PlayerSettings{}, &ParseError{"Invalid player type: expected 'human' or 'AI'"}
	}
	depth := 0
	if raw, ok := obj["depth"]; ok {
		depth = intValue(raw)
	}
	if depth > limits.MaxDepth {
		depth = limits.MaxDepth
	}
	if depth <= 0 {
		depth = limits.DefaultDepth
	}
	return PlayerSettings{Kind: kind, Depth: depth}, nil
}

// intValue reads a loosely typed JSON number: numbers truncate, numeric
// strings parse, true is 1 and anything else is 0.
func intValue(raw json.RawMessage) int {
	return int(floatValue(raw))
}

func floatValue(raw json.RawMessage) float64 {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		f, _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil && b {
		return 1
	}
	return 0
}
