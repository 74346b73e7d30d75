package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unsafe"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/config"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/game"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/store"
)

const maxBodyBytes = 1 << 20

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type statsPayload struct {
	Uptime     string  `json:"uptime"`
	TTCount    int     `json:"tt_count"`
	TTCapacity int     `json:"tt_capacity"`
	Busy       bool    `json:"busy"`
	Clients    int     `json:"clients"`
	Usage      float64 `json:"tt_usage"`
}

type ttCacheStatusResponse struct {
	Count         int     `json:"count"`
	Capacity      int     `json:"capacity"`
	Usage         float64 `json:"usage"`
	Full          bool    `json:"full"`
	EntryBytes    uint64  `json:"entry_bytes"`
	UsedBytes     uint64  `json:"used_bytes"`
	CapacityBytes uint64  `json:"capacity_bytes"`
}

type ttCacheEntryDTO struct {
	Hash        string      `json:"hash"`
	Signature   string      `json:"signature"`
	Hits        uint32      `json:"hits"`
	Depth       int         `json:"depth"`
	Score       int32       `json:"score"`
	Flag        string      `json:"flag"`
	BestMove    engine.Move `json:"best_move"`
	GenWritten  uint32      `json:"gen_written"`
	GenLastUsed uint32      `json:"gen_last_used"`
}

type ttCacheEntriesResponse struct {
	Items  []ttCacheEntryDTO `json:"items"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Total  int               `json:"total"`
}

// moveEvent is what websocket clients see for every daemon move.
type moveEvent struct {
	GameID     string      `json:"game_id,omitempty"`
	Player     string      `json:"player"`
	Move       engine.Move `json:"move"`
	MoveNumber int         `json:"move_number"`
	BoardSize  int         `json:"board_size"`
	Evaluated  int         `json:"moves_evaluated"`
	TimeMs     game.Millis `json:"time_ms"`
	Decision   string      `json:"decision"`
	Winner     string      `json:"winner"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  FormatUptime(time.Since(s.started)),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.Busy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "busy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func limitsOf(sc config.ServerConfig) game.Limits {
	return game.Limits{MaxDepth: sc.MaxDepth, MaxRadius: sc.MaxRadius, DefaultDepth: sc.MaxDepth}
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Request body is required")
		return
	}
	cfg := s.cfg.Get()
	sess, err := game.Parse(body, limitsOf(cfg.Server))
	if err != nil {
		var perr *game.ParseError
		if errors.As(err, &perr) {
			s.logger.Warn("bad request", "error", perr.Msg)
			writeError(w, http.StatusBadRequest, perr.Msg)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess.Status().Finished() {
		s.logger.Debug("game already finished, returning unchanged")
		writeRecord(w, sess)
		return
	}

	if err := s.slots.Acquire(r.Context(), 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
		return
	}
	searchesInFlight.Inc()
	rec, decision, err := s.decide(sess, cfg)
	searchesInFlight.Dec()
	s.slots.Release(1)
	if err != nil {
		s.logger.Error("AI failed to find a valid move", "error", err)
		writeError(w, http.StatusInternalServerError, "AI failed to find a valid move")
		return
	}
	if err := sess.Apply(rec); err != nil {
		s.logger.Error("failed to apply AI move", "move", rec.Move.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to apply AI move")
		return
	}
	s.logger.Debug("AI move", "player", rec.Player.String(), "move", rec.Move.String(),
		"ms", rec.Elapsed.Milliseconds(), "decision", decision)

	event := moveEvent{
		Player:     rec.Player.String(),
		Move:       rec.Move,
		MoveNumber: sess.MoveCount(),
		BoardSize:  sess.Settings().BoardSize,
		Evaluated:  rec.Evaluated,
		TimeMs:     game.MillisOf(rec.Elapsed),
		Decision:   decision,
		Winner:     sess.Status().Winner(),
	}
	if sess.Status().Finished() {
		gamesFinished.WithLabelValues(event.Winner).Inc()
		s.logger.Info("game over", "winner", event.Winner, "moves", sess.MoveCount())
		if id, ok := s.archive(sess); ok {
			event.GameID = id
			w.Header().Set("X-Game-ID", id)
		}
	}
	s.hub.Publish("move", event)
	writeRecord(w, sess)
}

// decide picks the move for the side that did not move last: the center
// to open, a random cell next to a lone stone for the reply, the full
// search afterwards. Identical positions searched at the same time share
// one search.
func (s *Server) decide(sess *game.Session, cfg config.Config) (game.MoveRecord, string, error) {
	ai := engine.PlayerO
	if last, ok := sess.LastMove(); ok {
		ai = last.Player.Other()
	}
	settings := sess.Settings()
	board := sess.Board()
	depth := settings.Player(ai).Depth
	if depth <= 0 {
		depth = cfg.Server.MaxDepth
	}
	opts := cfg.EngineOptions(depth, settings.Radius)
	opts.Timeout = settings.Timeout
	searcher := engine.NewSearcher(opts, s.tt, s.newRand())
	table := searcher.Table()
	own, opp := table.Evaluate(board, ai), table.Evaluate(board, ai.Other())

	start := time.Now()
	rec := game.MoveRecord{Player: ai, Score: own, Opponent: opp, Evaluated: 1}
	switch sess.MoveCount() {
	case 0:
		rec.Move = engine.Move{X: board.Size() / 2, Y: board.Size() / 2}
		rec.Elapsed = time.Since(start)
		searchDuration.WithLabelValues(engine.StepFirstMove).Observe(rec.Elapsed.Seconds())
		return rec, engine.StepFirstMove, nil
	case 1:
		rec.Move = engine.FirstReply(board, s.newRand())
		rec.Elapsed = time.Since(start)
		searchDuration.WithLabelValues(engine.StepFirstMove).Observe(rec.Elapsed.Seconds())
		return rec, engine.StepFirstMove, nil
	}

	key := fmt.Sprintf("%016x/%s/%d/%d/%d", board.Hash(), ai, opts.Depth, opts.Radius, opts.Timeout)
	v, err, shared := s.flight.Do(key, func() (any, error) {
		res := searcher.FindBestMove(board, ai)
		if res.Move == engine.NoMove {
			return nil, engine.ErrNoMove
		}
		return res, nil
	})
	if shared {
		sharedSearches.Inc()
	}
	if err != nil {
		return rec, "", err
	}
	res := v.(engine.Result)
	ttEntries.Set(float64(s.tt.Count()))

	decision := engine.StepMinimax
	if step, ok := res.Report.Decisive(); ok {
		decision = step.Evaluator
	}
	rec.Move = res.Move
	rec.Elapsed = time.Since(start)
	rec.Evaluated = int(max(res.Nodes, 1))
	searchDuration.WithLabelValues(decision).Observe(rec.Elapsed.Seconds())
	positionsEvaluated.Observe(float64(rec.Evaluated))
	if res.TimedOut {
		searchTimeouts.Inc()
	}
	s.aiLog.Debug("search finished", "stats", res.Stats, "decision", decision)
	return rec, decision, nil
}

func (s *Server) archive(sess *game.Session) (string, bool) {
	if s.store == nil {
		return "", false
	}
	data, err := sess.Encode()
	if err != nil {
		return "", false
	}
	id := uuid.NewString()
	if err := s.store.SaveGame(id, data); err != nil {
		s.logger.Warn("failed to archive game", "error", err)
		return "", false
	}
	return id, true
}

func (s *Server) handleGameList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"games": []string{}})
		return
	}
	ids, err := s.store.GameIDs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": ids})
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	data, err := s.store.Game(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cacheStatus())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.tt.Clear()
	ttEntries.Set(0)
	s.cacheLog.Info("transposition table cleared")
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (s *Server) handleCacheEntries(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	entries, total := s.tt.TopEntriesByHits(offset, limit)
	items := make([]ttCacheEntryDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, ttEntryToDTO(entry))
	}
	writeJSON(w, http.StatusOK, ttCacheEntriesResponse{Items: items, Offset: offset, Limit: limit, Total: total})
}

func (s *Server) cacheStatus() ttCacheStatusResponse {
	count := s.tt.Count()
	capacity := s.tt.Capacity()
	entryBytes := uint64(unsafe.Sizeof(engine.TTEntry{}))
	resp := ttCacheStatusResponse{
		Count:         count,
		Capacity:      capacity,
		EntryBytes:    entryBytes,
		UsedBytes:     uint64(count) * entryBytes,
		CapacityBytes: uint64(capacity) * entryBytes,
	}
	if capacity > 0 {
		resp.Usage = float64(count) / float64(capacity)
		resp.Full = count >= capacity
	}
	return resp
}

func (s *Server) stats() statsPayload {
	status := s.cacheStatus()
	return statsPayload{
		Uptime:     FormatUptime(time.Since(s.started)),
		TTCount:    status.Count,
		TTCapacity: status.Capacity,
		Usage:      status.Usage,
		Busy:       s.Busy(),
		Clients:    s.hub.Clients(),
	}
}

func ttEntryToDTO(entry engine.TTEntry) ttCacheEntryDTO {
	return ttCacheEntryDTO{
		Hash:        fmt.Sprintf("0x%016x", entry.Key),
		Signature:   fmt.Sprintf("0x%016x", entry.Signature),
		Hits:        entry.Hits,
		Depth:       entry.Depth,
		Score:       entry.Score,
		Flag:        entry.Flag.String(),
		BestMove:    entry.BestMove,
		GenWritten:  entry.GenWritten,
		GenLastUsed: entry.GenLastUsed,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeRecord(w http.ResponseWriter, sess *game.Session) {
	data, err := sess.Encode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize game state")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(data, '\n'))
}
