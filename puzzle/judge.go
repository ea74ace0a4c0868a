package puzzle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"trollfish-puzzles/commas"
	"trollfish-puzzles/config"
	"trollfish-puzzles/engine"
	"trollfish-puzzles/fen"
	"trollfish-puzzles/game"
)

// Oracle evaluates a position, returning up to multiPV lines best first.
// *engine.Engine is the production Oracle.
type Oracle interface {
	Evaluate(ctx context.Context, fen string, nodes, multiPV int) (engine.Evals, error)
}

// Reason names the check that decided a Verdict. It is also the "reason"
// label of the verdicts counter.
type Reason string

const (
	ReasonInCheck        Reason = "in-check"
	ReasonTooFewLines    Reason = "too-few-lines"
	ReasonNotWon         Reason = "not-won"
	ReasonSecondLineWon  Reason = "second-line-won"
	ReasonMateInOne      Reason = "mate-in-one"
	ReasonEnPassant      Reason = "en-passant"
	ReasonQueenPromotion Reason = "queen-promotion"
	ReasonWinsMaterial   Reason = "wins-material"
	ReasonNoPrevious     Reason = "no-previous-position"
	ReasonAlreadyLost    Reason = "already-lost"

	ReasonSacrifice      Reason = "sacrifice"
	ReasonNotPlayed      Reason = "not-played"
	ReasonOpponentUnlost Reason = "opponent-not-lost"
)

// Verdict is the outcome of judging one position at one budget.
type Verdict struct {
	Accepted bool
	Reason   Reason
	Nodes    int

	// Best is the winning line, when the position got that far.
	Best     engine.Eval
	Exchange Exchange
	SEE      int
	Check    bool
}

// Judge decides whether positions make good puzzles. It holds the only
// reference to the oracle, which must not be shared with concurrent callers.
type Judge struct {
	oracle Oracle
	cfg    config.Puzzle
}

func NewJudge(oracle Oracle, cfg config.Puzzle) *Judge {
	return &Judge{oracle: oracle, cfg: cfg}
}

func (j *Judge) evaluate(ctx context.Context, fen string, nodes, multiPV int) (engine.Evals, error) {
	oracleQueries.WithLabelValues(strconv.Itoa(multiPV)).Inc()
	return j.oracle.Evaluate(ctx, fen, nodes, multiPV)
}

// HasOneWinningMove reports whether the best line at the current position is
// won and every other line is not won. Positions with fewer lines than the
// configured multipv count do not qualify.
func (j *Judge) HasOneWinningMove(ctx context.Context, g *game.Game, nodes int) (bool, error) {
	evals, err := j.evaluate(ctx, g.FEN(), nodes, j.cfg.MaxPV)
	if err != nil {
		return false, err
	}

	if len(evals) < j.cfg.MaxPV {
		return false, nil
	}

	return IsWon(evals[0], j.cfg.StrongThreshold) &&
		lo.EveryBy(evals[1:], func(e engine.Eval) bool { return IsNotWon(e, j.cfg.WeakThreshold) }), nil
}

// IsGoodPuzzle judges the current position of g with its own search at
// nodes. The cursor of g is unchanged when it returns.
func (j *Judge) IsGoodPuzzle(ctx context.Context, g *game.Game, nodes int) (Verdict, error) {
	v, err := j.judge(ctx, g, nodes)
	if err != nil {
		return Verdict{}, err
	}
	v.Nodes = nodes

	verdicts.WithLabelValues(strconv.FormatBool(v.Accepted), string(v.Reason)).Inc()

	log.Debug().
		Int("game", g.Number).
		Int("ply", g.Ply()).
		Str("fen", g.FEN()).
		Str("nodes", commas.Int(nodes)).
		Str("best", v.Best.UCIMove).
		Stringer("score", v.Best).
		Stringer("exchange", v.Exchange).
		Int("see", v.SEE).
		Bool("accepted", v.Accepted).
		Str("reason", string(v.Reason)).
		Msg("verdict")

	return v, nil
}

func (j *Judge) judge(ctx context.Context, g *game.Game, nodes int) (Verdict, error) {
	board := g.Position()
	if board.IsCheck() {
		return Verdict{Reason: ReasonInCheck}, nil
	}

	evals, err := j.evaluate(ctx, g.FEN(), nodes, j.cfg.MaxPV)
	if err != nil {
		return Verdict{}, err
	}

	if len(evals) < j.cfg.MaxPV {
		return Verdict{Reason: ReasonTooFewLines}, nil
	}

	best := evals[0]
	v := Verdict{Best: best}

	if !IsWon(best, j.cfg.StrongThreshold) {
		v.Reason = ReasonNotWon
		return v, nil
	}
	if lo.SomeBy(evals[1:], func(e engine.Eval) bool { return IsWon(e, j.cfg.StrongThreshold) }) {
		v.Reason = ReasonSecondLineWon
		return v, nil
	}
	if best.Mate == 1 {
		v.Reason = ReasonMateInOne
		return v, nil
	}

	m, err := fen.ParseMove(best.UCIMove)
	if err != nil {
		return Verdict{}, fmt.Errorf("engine best move at '%s': %w", g.FEN(), err)
	}
	v.Check = GivesCheck(board, m)

	if IsEnPassant(board, m) {
		v.Reason = ReasonEnPassant
		return v, nil
	}
	if IsQueenPromotion(m) {
		v.Reason = ReasonQueenPromotion
		return v, nil
	}

	v.Exchange, v.SEE = ExchangeOutcome(board, m)
	switch v.Exchange {
	case Winning:
		v.Reason = ReasonWinsMaterial
		return v, nil
	case Losing:
		v.Accepted, v.Reason = true, ReasonSacrifice
		return v, nil
	}

	// at the end of a game nothing was played, which differs from m
	if played, ok := g.PlayedMove(); !ok || played != best.UCIMove {
		v.Accepted, v.Reason = true, ReasonNotPlayed
		return v, nil
	}

	if g.AtStart() {
		v.Reason = ReasonNoPrevious
		return v, nil
	}

	notLost, err := j.opponentNotLost(ctx, g, nodes)
	if err != nil {
		return Verdict{}, err
	}
	if !notLost {
		v.Reason = ReasonAlreadyLost
		return v, nil
	}

	v.Accepted, v.Reason = true, ReasonOpponentUnlost
	return v, nil
}

// opponentNotLost evaluates the position one ply back, from the view of the
// side that moved into the current position.
func (j *Judge) opponentNotLost(ctx context.Context, g *game.Game, nodes int) (bool, error) {
	defer g.Seek(g.Cursor())

	if err := g.Rewind(); err != nil {
		return false, err
	}

	evals, err := j.evaluate(ctx, g.FEN(), nodes, 1)
	if err != nil {
		return false, err
	}

	best, ok := evals.Best()
	return ok && IsNotLost(best, j.cfg.WeakThreshold), nil
}

// Verify runs IsGoodPuzzle at each budget in the verification schedule,
// stopping at the first rejection. The returned verdict is the rejecting
// one, or the verdict at the largest budget.
func (j *Judge) Verify(ctx context.Context, g *game.Game) (Verdict, error) {
	var v Verdict
	for _, nodes := range j.cfg.Budgets() {
		var err error
		v, err = j.IsGoodPuzzle(ctx, g, nodes)
		if err != nil {
			return Verdict{}, err
		}
		if !v.Accepted {
			return v, nil
		}
	}
	return v, nil
}
