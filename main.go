package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trollfish-puzzles/commas"
	"trollfish-puzzles/config"
	"trollfish-puzzles/engine"
	"trollfish-puzzles/epd"
	"trollfish-puzzles/game"
	"trollfish-puzzles/puzzle"
)

const timeFormat = "2006-01-02 15:04:05.000"

type flags struct {
	configFile string
	verbose    bool
	logJSON    bool
	truncate   bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "trollfish-puzzles <input.pgn> <output>",
		Short:        "Find tactical puzzles in a PGN file",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(f.verbose, f.logJSON)

			err := run(cmd.Context(), f, args[0], args[1])
			if err != nil {
				log.Error().Err(err).Msg("run-failed")
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "YAML config file")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log every verdict")
	cmd.Flags().BoolVar(&f.logJSON, "log-json", false, "log JSON lines instead of console output")
	cmd.Flags().BoolVar(&f.truncate, "truncate", false, "empty the output file before writing")

	return cmd
}

func setupLogging(verbose, json bool) {
	zerolog.TimeFieldFormat = timeFormat
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if json {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat})
}

func run(ctx context.Context, f flags, input, output string) error {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}

	source, err := game.Open(input)
	if err != nil {
		return err
	}
	defer source.Close()

	sink := epd.NewAppender(output)
	if f.truncate {
		if err := sink.Truncate(); err != nil {
			return err
		}
	} else {
		n, err := sink.LoadExisting()
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().
				Str("output", output).
				Str("records", commas.Int(n)).
				Str("last", sink.Last.ID()).
				Str("last_bm", sink.Last.BestMove()).
				Msg("resuming")
		}
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// the engine outlives an interrupt so the current game can finish
	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()

	eng, err := engine.Start(engineCtx, engine.Options{
		Command:       cfg.Engine.Command,
		Dir:           cfg.Engine.Dir,
		StartAttempts: cfg.Engine.StartAttempts,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Configure(engineCtx, engine.SessionOptions{
		Threads:    cfg.Engine.EngineThreads(),
		HashMB:     cfg.Engine.EngineHashMB(),
		SyzygyPath: cfg.Engine.SyzygyPath,
	}); err != nil {
		return err
	}

	// Generate finishes the current game after stopCtx is cancelled
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-stopCtx.Done():
		case <-sig:
			log.Warn().Msg("shutting down after this game")
			stop()
		}
	}()

	log.Info().
		Str("input", input).
		Str("output", output).
		Int("strong", cfg.Puzzle.StrongThreshold).
		Int("weak", cfg.Puzzle.WeakThreshold).
		Str("initial_nodes", commas.Int(cfg.Puzzle.InitialBudget)).
		Str("max_nodes", commas.Int(cfg.Puzzle.BudgetCeiling)).
		Msg("generate-start")

	judge := puzzle.NewJudge(eng, cfg.Puzzle)
	stats, err := puzzle.Generate(stopCtx, judge, source, sink, puzzle.Options{
		Annotate:     cfg.Output.Annotate,
		SkipBadGames: cfg.SkipBadGames,
	})

	log.Info().
		Str("games", commas.Int(stats.Games)).
		Str("skipped", commas.Int(stats.Skipped)).
		Str("positions", commas.Int(stats.Positions)).
		Str("puzzles", commas.Int(stats.Puzzles)).
		Str("already_written", commas.Int(sink.Skipped)).
		Msg("generate-done")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics-server-failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("metrics-listening")
	return srv
}
