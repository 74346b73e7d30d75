package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gomoku_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "status"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gomoku_search_duration_seconds",
		Help:    "Time spent choosing an AI move",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to ~16s
	}, []string{"step"})

	positionsEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gomoku_positions_evaluated",
		Help:    "Positions evaluated per AI move",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	})

	searchTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gomoku_search_timeouts_total",
		Help: "Searches cut short by the move timeout",
	})

	searchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gomoku_searches_in_flight",
		Help: "Searches currently running",
	})

	sharedSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gomoku_shared_searches_total",
		Help: "Requests answered by an identical search already in flight",
	})

	ttEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gomoku_tt_entries",
		Help: "Valid transposition table entries",
	})

	gamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gomoku_games_finished_total",
		Help: "Games decided by a daemon move, by result",
	}, []string{"winner"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gomoku_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)
