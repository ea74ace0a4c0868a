package puzzle

import (
	"fmt"

	"trollfish-puzzles/engine"
	"trollfish-puzzles/epd"
)

// Record is an accepted puzzle position.
type Record struct {
	Game  int
	Ply   int
	FEN   string
	Best  engine.Eval
	Nodes int
	Check bool
}

// Line serializes r for output: the full FEN, or with annotate an EPD record
// carrying the best move, its score and the largest budget it was verified at.
func (r Record) Line(annotate bool) string {
	if !annotate {
		return r.FEN
	}

	line := epd.NewLineItem(r.FEN)
	line.SetString(epd.OpCodeBestMove, r.Best.UCIMove)
	if r.Best.IsMate() {
		line.SetInt(epd.OpCodeDirectMate, r.Best.Mate)
	} else {
		line.SetInt(epd.OpCodeCentipawnEvaluation, r.Best.CP)
	}
	if r.Best.Depth > 0 {
		line.SetInt(epd.OpCodeAnalysisCountDepth, r.Best.Depth)
	}
	line.SetInt(epd.OpCodeAnalysisCountNodes, r.Nodes)
	line.SetQuoted(epd.OpCodeIdentifier, fmt.Sprintf("game %d ply %d", r.Game, r.Ply))

	return line.String()
}
