package game

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/notnil/chess"
)

// DecodeError is a game in the PGN input that could not be decoded. Scanning
// may continue with the next game.
type DecodeError struct {
	Number int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("game %d: %v", e.Number, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Scanner reads games one at a time from PGN text.
type Scanner struct {
	lines  *bufio.Scanner
	closer io.Closer
	count  int
}

func NewScanner(r io.Reader) *Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Scanner{lines: lines}
}

// Open returns a Scanner over a PGN file. The caller must Close it.
func Open(filename string) (*Scanner, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open pgn '%s': %w", filename, err)
	}
	s := NewScanner(fp)
	s.closer = fp
	return s, nil
}

func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Next returns the next game, a *DecodeError for a game that could not be
// decoded, or io.EOF after the last game.
func (s *Scanner) Next() (*Game, error) {
	var (
		pgn    strings.Builder
		isGame bool
	)

	for s.lines.Scan() {
		line := strings.TrimSpace(s.lines.Text())
		if !strings.HasPrefix(line, "[") && len(line) != 0 {
			isGame = true
		}

		if len(line) == 0 {
			if isGame {
				return s.decode(pgn.String())
			}
			if pgn.Len() == 0 {
				continue
			}
		}

		pgn.WriteString(line)
		pgn.WriteRune('\n')
	}

	if err := s.lines.Err(); err != nil {
		return nil, fmt.Errorf("read pgn: %w", err)
	}

	if strings.TrimSpace(pgn.String()) != "" {
		return s.decode(pgn.String())
	}

	return nil, io.EOF
}

func (s *Scanner) decode(pgn string) (*Game, error) {
	s.count++

	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, &DecodeError{Number: s.count, Err: err}
	}

	cg := chess.NewGame(opt)
	positions := cg.Positions()
	moves := cg.Moves()

	uciMoves := make([]string, len(moves))
	for i, m := range moves {
		uciMoves[i] = chess.UCINotation{}.Encode(positions[i], m)
	}

	g, err := New(positions[0].String(), uciMoves)
	if err != nil {
		return nil, &DecodeError{Number: s.count, Err: err}
	}

	g.Number = s.count
	for _, tp := range cg.TagPairs() {
		g.Tags[tp.Key] = tp.Value
	}

	return g, nil
}
