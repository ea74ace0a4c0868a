package puzzle

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trollfish-puzzles/engine"
	"trollfish-puzzles/epd"
	"trollfish-puzzles/fen"
	"trollfish-puzzles/game"
)

var (
	_ Oracle     = (*engine.Engine)(nil)
	_ GameSource = (*game.Scanner)(nil)
	_ Sink       = (*epd.Appender)(nil)
)

type memorySink struct {
	lines []string
	err   error
}

func (s *memorySink) Append(line string) error {
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, line)
	return nil
}

type sliceSource struct {
	games []*game.Game
	errs  []error
	i     int
}

func (s *sliceSource) Next() (*game.Game, error) {
	if s.i >= len(s.games) {
		return nil, io.EOF
	}
	g, err := s.games[s.i], s.errs[s.i]
	s.i++
	return g, err
}

// scriptThreeGames scripts the oracle for testdata/three-games.pgn: the rook
// sacrifice in game 1 and black's quiet Ra2 in game 3 are puzzles.
func scriptThreeGames(t *testing.T, o *fakeOracle) {
	o.set(fenRookSac, 2, cp("c1c5", 450), cp("e1d2", 30))
	o.set(fenAfter(t, fenQuietRook, "e1f1"), 2, cp("a8a2", 400), cp("e8d7", 0))
	o.set(fenQuietRook, 1, cp("e1f1", -40))
}

func TestScanGame(t *testing.T) {
	o := newFakeOracle()
	scriptThreeGames(t, o)

	g := newGame(t, fenQuietRook, "e1f1", "a8a2")
	g.Number = 3

	records, err := newJudge(o).ScanGame(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, 3, r.Game)
	assert.Equal(t, 1, r.Ply)
	assert.Equal(t, "r3k3/8/8/8/8/8/8/5K2 b - - 1 1", r.FEN)
	assert.Equal(t, "a8a2", r.Best.UCIMove)
	assert.Equal(t, 28_925_465, r.Nodes)

	assert.True(t, g.AtEnd())
	assert.Zero(t, o.queried(fenAfter(t, fenQuietRook, "e1f1", "a8a2")), "end position is not judged")
}

func TestScanGame_EveryPositionJudged(t *testing.T) {
	// both positions pass: a match does not skip the next position
	const start = "4k3/8/3p4/8/8/8/8/2R1K3 w - - 0 1"
	second := fenAfter(t, start, "e1d1")

	o := newFakeOracle()
	o.set(start, 2, cp("c1c5", 450), cp("e1d2", 30))
	o.set(second, 2, cp("e8d7", 350), cp("e8e7", 0))

	g := newGame(t, start, "e1d1", "e8d7", "d1e1")

	records, err := newJudge(o).ScanGame(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Ply)
	assert.Equal(t, 1, records[1].Ply)
	assert.Equal(t, "e8d7", records[1].Best.UCIMove)

	for _, position := range []string{start, second, fenAfter(t, start, "e1d1", "e8d7")} {
		assert.NotZero(t, o.queried(position), position)
	}
	assert.Zero(t, o.queried(fenAfter(t, start, "e1d1", "e8d7", "d1e1")))
}

func TestScanGame_ShallowTestFirst(t *testing.T) {
	o := newFakeOracle()
	g := newGame(t, fen.StartPosFEN, "e2e4", "e7e5", "g1f3")

	records, err := newJudge(o).ScanGame(context.Background(), g)
	require.NoError(t, err)

	assert.Empty(t, records)
	require.Len(t, o.queries, 3)
	for _, q := range o.queries {
		assert.Equal(t, 1_000_000, q.nodes)
		assert.Equal(t, 2, q.multiPV)
	}
}

func TestScanGame_RestartsFromFirstPosition(t *testing.T) {
	o := newFakeOracle()
	g := newGame(t, fen.StartPosFEN, "e2e4", "e7e5")
	require.NoError(t, g.Advance())

	_, err := newJudge(o).ScanGame(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 1, o.queried(fen.StartPosFEN))
}

func TestGenerate_ThreeGames(t *testing.T) {
	o := newFakeOracle()
	scriptThreeGames(t, o)

	source, err := game.Open("testdata/three-games.pgn")
	require.NoError(t, err)
	defer source.Close()

	sink := &memorySink{}
	stats, err := Generate(context.Background(), newJudge(o), source, sink, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"4k3/8/3p4/8/8/8/8/2R1K3 w - - 0 1",
		"r3k3/8/8/8/8/8/8/5K2 b - - 1 1",
	}, sink.lines)

	assert.Equal(t, Stats{Games: 3, Positions: 2 + 3 + 2, Puzzles: 2}, stats)
}

func TestGenerate_Reproducible(t *testing.T) {
	run := func() []string {
		o := newFakeOracle()
		scriptThreeGames(t, o)

		source, err := game.Open("testdata/three-games.pgn")
		require.NoError(t, err)
		defer source.Close()

		sink := &memorySink{}
		_, err = Generate(context.Background(), newJudge(o), source, sink, Options{Annotate: true})
		require.NoError(t, err)
		return sink.lines
	}

	first := run()
	assert.Equal(t, first, run())
	require.Len(t, first, 2)
	assert.Equal(t, `4k3/8/3p4/8/8/8/8/2R1K3 w - - bm c1c5; ce 450; acd 20; acn 28925465; id "game 1 ply 0";`, first[0])
}

func TestGenerate_BadGames(t *testing.T) {
	good := newGame(t, fen.StartPosFEN, "e2e4")
	bad := &game.DecodeError{Number: 1, Err: errors.New("invalid move")}

	newSource := func() *sliceSource {
		return &sliceSource{
			games: []*game.Game{nil, good},
			errs:  []error{bad, nil},
		}
	}

	stats, err := Generate(context.Background(), newJudge(newFakeOracle()), newSource(), &memorySink{}, Options{SkipBadGames: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Games)

	_, err = Generate(context.Background(), newJudge(newFakeOracle()), newSource(), &memorySink{}, Options{})
	assert.ErrorIs(t, err, bad)
}

func TestGenerate_Errors(t *testing.T) {
	newSource := func() *sliceSource {
		g := newGame(t, fenRookSac, "c1c5")
		return &sliceSource{games: []*game.Game{g}, errs: []error{nil}}
	}

	t.Run("oracle", func(t *testing.T) {
		o := newFakeOracle()
		o.err = engine.ErrEngineExited

		_, err := Generate(context.Background(), newJudge(o), newSource(), &memorySink{}, Options{})
		assert.ErrorIs(t, err, engine.ErrEngineExited)
	})

	t.Run("sink", func(t *testing.T) {
		o := newFakeOracle()
		o.set(fenRookSac, 2, cp("c1c5", 450), cp("e1d2", 30))
		sinkErr := errors.New("disk full")

		_, err := Generate(context.Background(), newJudge(o), newSource(), &memorySink{err: sinkErr}, Options{})
		assert.ErrorIs(t, err, sinkErr)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		o := newFakeOracle()
		stats, err := Generate(ctx, newJudge(o), newSource(), &memorySink{}, Options{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, stats.Games)
		assert.Empty(t, o.queries)
	})
}

func TestGenerate_InterruptFinishesCurrentGame(t *testing.T) {
	second := fenAfter(t, fenRookSac, "e1d1")
	next := newGame(t, fen.StartPosFEN, "e2e4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := newFakeOracle()
	o.set(fenRookSac, 2, cp("c1c5", 450), cp("e1d2", 30))
	o.set(second, 2, cp("e8d7", 350), cp("e8e7", 0))

	interrupting := oracleFunc(func(qctx context.Context, fen string, nodes, multiPV int) (engine.Evals, error) {
		if err := qctx.Err(); err != nil {
			return nil, err
		}
		if fen == fenRookSac {
			cancel()
		}
		return o.Evaluate(qctx, fen, nodes, multiPV)
	})

	source := &sliceSource{
		games: []*game.Game{newGame(t, fenRookSac, "e1d1", "e8d7"), next},
		errs:  []error{nil, nil},
	}
	sink := &memorySink{}

	stats, err := Generate(ctx, newJudge(interrupting), source, sink, Options{})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{fenRookSac, second}, sink.lines)
	assert.Equal(t, Stats{Games: 1, Positions: 2, Puzzles: 2}, stats)
	assert.Zero(t, o.queried(fen.StartPosFEN), "next game is not started")
}

func TestGenerate_AppendsBeforeGameEnds(t *testing.T) {
	o := newFakeOracle()
	o.set(fenRookSac, 2, cp("c1c5", 450), cp("e1d2", 30))

	after := fenAfter(t, fenRookSac, "e1d1")
	failing := oracleFunc(func(ctx context.Context, fen string, nodes, multiPV int) (engine.Evals, error) {
		if fen == after {
			return nil, engine.ErrEngineExited
		}
		return o.Evaluate(ctx, fen, nodes, multiPV)
	})

	source := &sliceSource{
		games: []*game.Game{newGame(t, fenRookSac, "e1d1", "e8d7")},
		errs:  []error{nil},
	}
	sink := &memorySink{}

	stats, err := Generate(context.Background(), newJudge(failing), source, sink, Options{})
	assert.ErrorIs(t, err, engine.ErrEngineExited)

	assert.Equal(t, []string{fenRookSac}, sink.lines)
	assert.Equal(t, 1, stats.Puzzles)
	assert.Zero(t, stats.Games)
}

func TestGenerate_RepeatedPositionWrittenEachTime(t *testing.T) {
	o := newFakeOracle()
	o.set(fenRookSac, 2, cp("c1c5", 450), cp("e1d2", 30))

	filename := filepath.Join(t.TempDir(), "puzzles.epd")
	sink := epd.NewAppender(filename)
	require.NoError(t, sink.Truncate())

	source := &sliceSource{
		games: []*game.Game{newGame(t, fenRookSac, "c1c5"), newGame(t, fenRookSac, "c1c5")},
		errs:  []error{nil, nil},
	}

	stats, err := Generate(context.Background(), newJudge(o), source, sink, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Puzzles)

	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, fenRookSac+"\n"+fenRookSac+"\n", string(b))
}

func TestRecord_Line(t *testing.T) {
	r := Record{
		Game:  3,
		Ply:   1,
		FEN:   "r3k3/8/8/8/8/8/8/5K2 b - - 1 1",
		Best:  engine.Eval{UCIMove: "a8a2", CP: 400, Depth: 24},
		Nodes: 28_925_465,
	}

	assert.Equal(t, "r3k3/8/8/8/8/8/8/5K2 b - - 1 1", r.Line(false))
	assert.Equal(t, `r3k3/8/8/8/8/8/8/5K2 b - - bm a8a2; ce 400; acd 24; acn 28925465; id "game 3 ply 1";`, r.Line(true))

	r.Best = engine.Eval{UCIMove: "a8a1", Mate: 3}
	assert.Equal(t, `r3k3/8/8/8/8/8/8/5K2 b - - bm a8a1; dm 3; acn 28925465; id "game 3 ply 1";`, r.Line(true))
}
