package puzzle

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"trollfish-puzzles/engine"
	"trollfish-puzzles/fen"
)

type query struct {
	fen     string
	nodes   int
	multiPV int
}

// fakeOracle answers from a table keyed by FEN and multipv count. Positions
// not in the table get quiet, drawish lines.
type fakeOracle struct {
	lines   map[string]engine.Evals
	script  func(fen string, nodes, multiPV int) (engine.Evals, bool)
	err     error
	queries []query
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{lines: map[string]engine.Evals{}}
}

func oracleKey(fen string, multiPV int) string {
	return fmt.Sprintf("%s|%d", fen, multiPV)
}

func (o *fakeOracle) set(fen string, multiPV int, evals ...engine.Eval) {
	for i := range evals {
		evals[i].MultiPV = i + 1
	}
	o.lines[oracleKey(fen, multiPV)] = evals
}

func (o *fakeOracle) Evaluate(_ context.Context, fen string, nodes, multiPV int) (engine.Evals, error) {
	o.queries = append(o.queries, query{fen: fen, nodes: nodes, multiPV: multiPV})

	if o.err != nil {
		return nil, o.err
	}

	if o.script != nil {
		if evals, ok := o.script(fen, nodes, multiPV); ok {
			return evals, nil
		}
	}

	if evals, ok := o.lines[oracleKey(fen, multiPV)]; ok {
		return evals, nil
	}

	var evals engine.Evals
	for k := 1; k <= multiPV; k++ {
		evals = append(evals, engine.Eval{MultiPV: k, UCIMove: "a1a1", CP: 20 - 10*k, Depth: 20})
	}
	return evals, nil
}

func (o *fakeOracle) queried(fen string) int {
	var n int
	for _, q := range o.queries {
		if q.fen == fen {
			n++
		}
	}
	return n
}

func (o *fakeOracle) budgets() []int {
	budgets := make([]int, len(o.queries))
	for i, q := range o.queries {
		budgets[i] = q.nodes
	}
	return budgets
}

func (o *fakeOracle) reset() {
	o.queries = nil
}

func cp(move string, score int) engine.Eval {
	return engine.Eval{UCIMove: move, CP: score, Depth: 20, PV: []string{move}}
}

func mate(move string, n int) engine.Eval {
	return engine.Eval{UCIMove: move, Mate: n, Depth: 20, PV: []string{move}}
}

// fenAfter returns the FEN reached by playing moves from start.
func fenAfter(t *testing.T, start string, moves ...string) string {
	t.Helper()

	b, err := fen.FENtoBoard(start)
	require.NoError(t, err)
	require.NoError(t, b.Moves(moves...))
	return b.FEN()
}
