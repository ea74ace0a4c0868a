package puzzle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"trollfish-puzzles/commas"
	"trollfish-puzzles/game"
)

// GameSource yields games until io.EOF. *game.Scanner is the production
// GameSource.
type GameSource interface {
	Next() (*game.Game, error)
}

// Sink receives one serialized record per call. Each call must leave a
// complete line behind.
type Sink interface {
	Append(line string) error
}

type Options struct {
	Annotate     bool
	SkipBadGames bool
}

type Stats struct {
	Games     int
	Skipped   int
	Positions int
	Puzzles   int
}

// Generate scans games from source one at a time and appends each puzzle to
// sink as soon as it is verified. Cancelling ctx does not interrupt the game
// being scanned: Generate finishes it, then returns ctx.Err().
func Generate(ctx context.Context, judge *Judge, source GameSource, sink Sink, opts Options) (Stats, error) {
	var stats Stats
	start := time.Now()

	scanCtx := context.WithoutCancel(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		g, err := source.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			var decodeErr *game.DecodeError
			if opts.SkipBadGames && errors.As(err, &decodeErr) {
				stats.Skipped++
				gamesSkipped.Inc()
				log.Warn().Err(err).Int("game", decodeErr.Number).Msg("game-skipped")
				continue
			}

			return stats, err
		}

		var found int
		err = judge.scanGame(scanCtx, g, func(r Record) error {
			if err := sink.Append(r.Line(opts.Annotate)); err != nil {
				return err
			}
			found++
			stats.Puzzles++
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("%s: %w", g, err)
		}

		stats.Games++
		stats.Positions += g.Len() - 1
		gamesScanned.Inc()

		log.Info().
			Str("game", g.String()).
			Int("found", found).
			Str("games", commas.Int(stats.Games)).
			Str("positions", commas.Int(stats.Positions)).
			Str("puzzles", commas.Int(stats.Puzzles)).
			Dur("elapsed", time.Since(start).Round(time.Second)).
			Msg("game-scanned")
	}

	return stats, nil
}
