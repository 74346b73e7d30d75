package engine

import (
	"log/slog"
	"time"
)

type SearchStats struct {
	Nodes           int64
	TTProbes        int64
	TTHits          int64
	TTStores        int64
	TTOverwrites    int64
	Cutoffs         int64
	VCTNodes        int64
	Start           time.Time
	DepthDurations  []time.Duration
	CompletedDepths int
}

func (s *SearchStats) LogValue() slog.Value {
	if s == nil {
		return slog.Value{}
	}
	elapsed := time.Since(s.Start)
	nps := 0.0
	if elapsed > 0 {
		nps = float64(s.Nodes) / elapsed.Seconds()
	}
	depths := make([]int64, len(s.DepthDurations))
	for i, d := range s.DepthDurations {
		depths[i] = d.Milliseconds()
	}
	return slog.GroupValue(
		slog.Int64("nodes", s.Nodes),
		slog.Int64("tt_probes", s.TTProbes),
		slog.Int64("tt_hits", s.TTHits),
		slog.Int64("tt_stores", s.TTStores),
		slog.Int64("cutoffs", s.Cutoffs),
		slog.Int64("vct_nodes", s.VCTNodes),
		slog.Int("depth", s.CompletedDepths),
		slog.Any("depth_ms", depths),
		slog.Float64("nps", nps),
	)
}

// ReportEntry records what one decision step saw and whether it settled
// the move.
type ReportEntry struct {
	Evaluator      string  `json:"evaluator"`
	CurrentPlayer  bool    `json:"is_current_player"`
	EvaluatedMoves int     `json:"evaluated_moves"`
	Score          int     `json:"score"`
	TimeMs         float64 `json:"time_ms"`
	Decisive       bool    `json:"decisive"`
	HaveWin        bool    `json:"have_win"`
	HaveVCT        bool    `json:"have_vct"`
	VCTSequence    []Move  `json:"vct_sequence,omitempty"`
}

type Report struct {
	Entries      []ReportEntry `json:"entries"`
	OffensiveMax int           `json:"offensive_max_score"`
	DefensiveMax int           `json:"defensive_max_score"`
}

func (r *Report) add(e ReportEntry, started time.Time) {
	e.TimeMs = float64(time.Since(started).Microseconds()) / 1000.0
	r.Entries = append(r.Entries, e)
}

// Decisive returns the step that chose the move.
func (r Report) Decisive() (ReportEntry, bool) {
	for _, e := range r.Entries {
		if e.Decisive {
			return e, true
		}
	}
	return ReportEntry{}, false
}
