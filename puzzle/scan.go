package puzzle

import (
	"context"

	"github.com/rs/zerolog/log"

	"trollfish-puzzles/commas"
	"trollfish-puzzles/game"
)

// ScanGame judges every position of g except the last, which has no move
// after it, and returns the accepted positions in game order. The cursor
// starts at the first position and ends at the last.
func (j *Judge) ScanGame(ctx context.Context, g *game.Game) ([]Record, error) {
	var records []Record
	err := j.scanGame(ctx, g, func(r Record) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

// scanGame hands each accepted position to found as soon as it is verified.
func (j *Judge) scanGame(ctx context.Context, g *game.Game, found func(Record) error) error {
	g.Seek(0)
	for !g.AtEnd() {
		positionsEvaluated.Inc()

		ok, err := j.HasOneWinningMove(ctx, g, j.cfg.InitialBudget)
		if err != nil {
			return err
		}

		if ok {
			shallowPasses.Inc()

			v, err := j.Verify(ctx, g)
			if err != nil {
				return err
			}

			if v.Accepted {
				puzzlesFound.Inc()

				r := Record{
					Game:  g.Number,
					Ply:   g.Ply(),
					FEN:   g.FEN(),
					Best:  v.Best,
					Nodes: v.Nodes,
					Check: v.Check,
				}
				log.Info().
					Int("game", r.Game).
					Int("ply", r.Ply).
					Str("fen", r.FEN).
					Str("best", r.Best.UCIMove).
					Stringer("score", r.Best).
					Bool("check", r.Check).
					Str("reason", string(v.Reason)).
					Str("nodes", commas.Int(r.Nodes)).
					Msg("puzzle-found")

				if err := found(r); err != nil {
					return err
				}
			}
		}

		if err := g.Advance(); err != nil {
			return err
		}
	}

	return nil
}
