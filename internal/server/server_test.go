package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/config"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/logging"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/store"
)

func newTestServer(t *testing.T, tweak func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Cache.Size = 1 << 12
	cfg.Server.RatePerSecond = 0
	if tweak != nil {
		tweak(&cfg)
	}
	db, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(Options{
		Config: config.NewStore(cfg),
		Store:  db,
		Logger: logging.Discard(),
		Seed:   7,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func lastMove(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	moves, ok := out["moves"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, moves)
	return moves[len(moves)-1].(map[string]any)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	out := decode(t, rec)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, Version, out["version"])
	assert.Equal(t, "0s", out["uptime"])
}

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{59, "59s"},
		{61, "1m 1s"},
		{3661, "1h 1m 1s"},
		{93661, "1d 1h 1m 1s"},
		{172800, "2d 0h 0m 0s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatUptime(time.Duration(tc.secs)*time.Second), tc.secs)
	}
}

func TestReadyReflectsFreeSlots(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxSearches = 1 })
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	require.NoError(t, s.slots.Acquire(context.Background(), 1))
	rec = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "busy", decode(t, rec)["status"])
	s.slots.Release(1)
}

func TestPlayRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/gomoku/play", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is required", decode(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/gomoku/play", `{"X":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON syntax", decode(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/gomoku/play", `{"X":{"player":"human"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required field: O", decode(t, rec)["error"])
}

func TestPlayOpensInTheCenter(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodPost, "/gomoku/play",
		`{"X":{"player":"human"},"O":{"player":"AI"},"board_size":15}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	out := decode(t, rec)
	assert.Equal(t, "none", out["winner"])
	move := lastMove(t, out)
	assert.Equal(t, []any{7.0, 7.0}, move["O (AI)"])
	assert.Contains(t, move, "time_ms")
	assert.NotContains(t, move, "winner")
}

func TestPlayRepliesNearTheFirstStone(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodPost, "/gomoku/play",
		`{"X":{"player":"human"},"O":{"player":"AI"},"board_size":15,"moves":[{"X (human)":[7,7]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	require.Len(t, out["moves"], 2)
	pos := lastMove(t, out)["O (AI)"].([]any)
	x, y := int(pos[0].(float64)), int(pos[1].(float64))
	assert.False(t, x == 7 && y == 7)
	assert.LessOrEqual(t, absInt(x-7), 2)
	assert.LessOrEqual(t, absInt(y-7), 2)
}

func TestPlayAgesCacheOncePerSearch(t *testing.T) {
	s := newTestServer(t, nil)
	before := s.Table().Generation()
	rec := do(t, s.Handler(), http.MethodPost, "/gomoku/play",
		`{"X":{"player":"human"},"O":{"player":"AI","depth":2},"board_size":15,"radius":1,
		  "moves":[{"X (human)":[7,7]},{"O (AI)":[7,8]},{"X (human)":[6,6]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode(t, rec)["moves"], 4)
	assert.Equal(t, before+1, s.Table().Generation())
}

func TestPlayTakesTheWinAndArchivesTheGame(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()
	body := `{"X":{"player":"human"},"O":{"player":"AI","depth":2},"board_size":15,"moves":[
	  {"X (human)":[3,0]},{"O (AI)":[5,0]},
	  {"X (human)":[3,1]},{"O (AI)":[5,1]},
	  {"X (human)":[3,2]},{"O (AI)":[5,2]},
	  {"X (human)":[10,10]},{"O (AI)":[5,3]},
	  {"X (human)":[12,12]}]}`
	rec := do(t, h, http.MethodPost, "/gomoku/play", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "O", out["winner"])
	move := lastMove(t, out)
	assert.Equal(t, []any{5.0, 4.0}, move["O (AI)"])
	assert.Equal(t, true, move["winner"])

	id := rec.Header().Get("X-Game-ID")
	require.NotEmpty(t, id)
	rec = do(t, h, http.MethodGet, "/api/games", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{id}, decode(t, rec)["games"])

	rec = do(t, h, http.MethodGet, "/api/games/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "O", decode(t, rec)["winner"])

	rec = do(t, h, http.MethodGet, "/api/games/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/games/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayReturnsFinishedGameUnchanged(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"X":{"player":"human"},"O":{"player":"AI"},"moves":[
	  {"X (human)":[3,0]},{"O (AI)":[5,0]},
	  {"X (human)":[3,1]},{"O (AI)":[5,1]},
	  {"X (human)":[3,2]},{"O (AI)":[5,2]},
	  {"X (human)":[3,3]},{"O (AI)":[5,3]},
	  {"X (human)":[3,4]}]}`
	rec := do(t, s.Handler(), http.MethodPost, "/gomoku/play", body)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "X", out["winner"])
	assert.Len(t, out["moves"], 9)
	assert.Empty(t, rec.Header().Get("X-Game-ID"))
}

func TestUnknownRoutesAndMethods(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/gomoku/play", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decode(t, rec)["error"])
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodOptions, "/gomoku/play", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rec.Body.String())
}

func TestCacheEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/gomoku/play",
		`{"X":{"player":"human"},"O":{"player":"AI","depth":2},"board_size":15,"moves":[{"X (human)":[7,7]},{"O (AI)":[6,6]},{"X (human)":[7,8]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/cache/tt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, float64(s.Table().Capacity()), status["capacity"])
	assert.Equal(t, float64(s.Table().Count()), status["count"])
	assert.Greater(t, status["count"].(float64), 0.0)

	rec = do(t, h, http.MethodGet, "/api/cache/tt/entries?limit=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode(t, rec)
	assert.Equal(t, 100.0, entries["limit"])
	items := entries["items"].([]any)
	require.NotEmpty(t, items)
	first := items[0].(map[string]any)
	assert.True(t, strings.HasPrefix(first["hash"].(string), "0x"))
	assert.Len(t, first["hash"], 18)

	rec = do(t, h, http.MethodDelete, "/api/cache/tt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["cleared"])
	assert.Zero(t, s.Table().Count())
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RatePerSecond = 0.001
		c.Server.RateBurst = 1
	})
	h := s.Handler()
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/cache/tt", "").Code)
	rec := do(t, h, http.MethodGet, "/api/cache/tt", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", decode(t, rec)["error"])
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestParseBind(t *testing.T) {
	cases := map[string]string{
		"8787":           ":8787",
		"127.0.0.1:9000": "127.0.0.1:9000",
		":80":            ":80",
		"[::1]:8080":     "[::1]:8080",
	}
	for in, want := range cases {
		got, err := ParseBind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "host:", "0", "70000", "localhost:http"} {
		_, err := ParseBind(bad)
		assert.Error(t, err, bad)
	}
}

func TestAgentCheck(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxSearches = 1 })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serveAgent(ctx, ln) }()

	ask := func() string {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		return line
	}
	assert.Equal(t, "ready\n", ask())
	require.NoError(t, s.slots.Acquire(ctx, 1))
	assert.Equal(t, "drain\n", ask())
	s.slots.Release(1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent listener did not stop")
	}
}

func TestWebsocketStreamsMoves(t *testing.T) {
	s := newTestServer(t, nil)
	stop := make(chan struct{})
	defer close(stop)
	go s.hub.Run(stop)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/games", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello wsMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.NotEmpty(t, hello.ID)

	resp, err := http.Post(ts.URL+"/gomoku/play", "application/json",
		strings.NewReader(`{"X":{"player":"human"},"O":{"player":"AI"},"board_size":19}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var event wsMessage
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "move", event.Type)
	var payload moveEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, "O", payload.Player)
	assert.Equal(t, 9, payload.Move.X)
	assert.Equal(t, 1, payload.MoveNumber)
	assert.Equal(t, "first_move", payload.Decision)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
