package game

import (
	"errors"
	"fmt"

	"trollfish-puzzles/fen"
)

var (
	ErrAtStart = errors.New("cursor is at the first position")
	ErrAtEnd   = errors.New("cursor is at the last position")
)

// Game is a recorded game with a cursor over its positions. Position i is
// the position before Moves[i] was played; the last position has no move.
type Game struct {
	Number int
	Tags   map[string]string

	moves     []string
	positions []fen.Board
	cursor    int
}

// New replays uciMoves from startFEN.
func New(startFEN string, uciMoves []string) (*Game, error) {
	b, err := fen.FENtoBoard(startFEN)
	if err != nil {
		return nil, err
	}

	g := &Game{
		moves:     append([]string(nil), uciMoves...),
		positions: make([]fen.Board, 0, len(uciMoves)+1),
		Tags:      map[string]string{},
	}
	g.positions = append(g.positions, b)

	for i, uci := range uciMoves {
		if err := b.Moves(uci); err != nil {
			return nil, fmt.Errorf("ply %d: %w", i+1, err)
		}
		g.positions = append(g.positions, b)
	}

	return g, nil
}

func (g *Game) Advance() error {
	if g.AtEnd() {
		return ErrAtEnd
	}
	g.cursor++
	return nil
}

func (g *Game) Rewind() error {
	if g.AtStart() {
		return ErrAtStart
	}
	g.cursor--
	return nil
}

func (g *Game) AtStart() bool {
	return g.cursor == 0
}

// AtEnd reports whether the cursor is on the final position, which has no move after it.
func (g *Game) AtEnd() bool {
	return g.cursor == len(g.positions)-1
}

// Position returns a copy of the current position.
func (g *Game) Position() fen.Board {
	return g.positions[g.cursor]
}

func (g *Game) FEN() string {
	return g.positions[g.cursor].FEN()
}

// PlayedMove returns the move played from the current position in the game.
func (g *Game) PlayedMove() (string, bool) {
	if g.AtEnd() {
		return "", false
	}
	return g.moves[g.cursor], true
}

// Ply is the number of moves played before the current position.
func (g *Game) Ply() int {
	return g.cursor
}

func (g *Game) Len() int {
	return len(g.positions)
}

func (g *Game) Cursor() int {
	return g.cursor
}

// Seek moves the cursor back to a value returned by Cursor.
func (g *Game) Seek(cursor int) {
	if cursor < 0 || cursor >= len(g.positions) {
		panic(fmt.Sprintf("game %d: seek to %d outside [0, %d)", g.Number, cursor, len(g.positions)))
	}
	g.cursor = cursor
}

func (g *Game) String() string {
	white, black := g.Tags["White"], g.Tags["Black"]
	if white == "" && black == "" {
		return fmt.Sprintf("game %d", g.Number)
	}
	return fmt.Sprintf("game %d (%s - %s)", g.Number, white, black)
}
