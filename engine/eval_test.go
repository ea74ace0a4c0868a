package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfo(t *testing.T) {
	cases := []struct {
		line string
		want Eval
	}{
		{
			line: "info depth 24 seldepth 33 multipv 1 score cp 35 nodes 2013349 nps 1294758 hashfull 711 tbhits 0 time 1555 pv e2e4 e7e5 g1f3",
			want: Eval{UCIMove: "e2e4", Depth: 24, SelDepth: 33, MultiPV: 1, CP: 35, Nodes: 2013349, NPS: 1294758, Time: 1555, PV: []string{"e2e4", "e7e5", "g1f3"}},
		},
		{
			line: "info depth 18 seldepth 20 multipv 2 score mate -3 nodes 10 nps 5 time 2 pv h7h8 a1a8",
			want: Eval{UCIMove: "h7h8", Depth: 18, SelDepth: 20, MultiPV: 2, Mate: -3, Nodes: 10, NPS: 5, Time: 2, PV: []string{"h7h8", "a1a8"}},
		},
		{
			line: "info depth 30 seldepth 40 multipv 1 score cp 120 wdl 400 550 50 lowerbound nodes 99 tbhits 7 time 3 pv d2d4",
			want: Eval{UCIMove: "d2d4", Depth: 30, SelDepth: 40, MultiPV: 1, CP: 120, LowerBound: true, Nodes: 99, TBHits: 7, Time: 3, PV: []string{"d2d4"}},
		},
		{
			line: "info depth 0 score mate 0",
			want: Eval{},
		},
	}

	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			got, err := ParseInfo(c.line)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseInfo_Errors(t *testing.T) {
	for _, line := range []string{
		"bestmove e2e4",
		"info depth x",
		"info depth 3 score",
		"info depth 3 score wdl 1",
		"info depth 3 score cp",
	} {
		_, err := ParseInfo(line)
		assert.Error(t, err, line)
	}
}

func TestEval_String(t *testing.T) {
	assert.Equal(t, "#3", Eval{Mate: 3}.String())
	assert.Equal(t, "#-2", Eval{Mate: -2}.String())
	assert.Equal(t, "+1.50", Eval{CP: 150}.String())
	assert.Equal(t, "-0.35", Eval{CP: -35}.String())
	assert.Equal(t, "0.00", Eval{}.String())
}

func TestShowEngineOutput(t *testing.T) {
	assert.False(t, showEngineOutput("info depth 12 currmove e2e4 currmovenumber 1"))
	assert.True(t, showEngineOutput("info depth 12 seldepth 14 multipv 1 score cp 20 pv e2e4"))
}
