package puzzle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gamesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trollfish_puzzles_games_scanned_total",
		Help: "Games scanned for puzzles",
	})

	gamesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trollfish_puzzles_games_skipped_total",
		Help: "Games skipped because they could not be decoded",
	})

	positionsEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trollfish_puzzles_positions_evaluated_total",
		Help: "Positions given the one winning move test",
	})

	shallowPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trollfish_puzzles_shallow_passes_total",
		Help: "Positions that passed the one winning move test and went on to verification",
	})

	puzzlesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trollfish_puzzles_found_total",
		Help: "Positions accepted at every verification budget",
	})

	// verdicts by reason, accepted or not
	verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trollfish_puzzles_verdicts_total",
		Help: "Single pass verdicts by reason",
	}, []string{"accepted", "reason"})

	oracleQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trollfish_puzzles_oracle_queries_total",
		Help: "Engine queries by number of lines requested",
	}, []string{"multipv"})
)
