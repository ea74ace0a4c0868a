package fen

import "fmt"

// Move is a move in UCI coordinates. Promotion is the upper-case piece letter, or 0.
type Move struct {
	From      int
	To        int
	Promotion byte
}

func ParseMove(uci string) (Move, error) {
	if len(uci) != 4 && len(uci) != 5 {
		return Move{}, fmt.Errorf("UCI move '%s' is invalid", uci)
	}

	from, err := SquareIndex(uci[:2])
	if err != nil {
		return Move{}, fmt.Errorf("UCI move '%s': %w", uci, err)
	}
	to, err := SquareIndex(uci[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("UCI move '%s': %w", uci, err)
	}

	m := Move{From: from, To: to}
	if len(uci) == 5 {
		switch p := upper(uci[4]); p {
		case 'N', 'B', 'R', 'Q':
			m.Promotion = p
		default:
			return Move{}, fmt.Errorf("UCI move '%s': invalid promotion piece '%c'", uci, uci[4])
		}
	}

	return m, nil
}

func (m Move) IsPromotion() bool {
	return m.Promotion != 0
}

func (m Move) String() string {
	s := SquareName(m.From) + SquareName(m.To)
	if m.IsPromotion() {
		s += string(lower(m.Promotion))
	}
	return s
}

// IsEnPassant reports whether m is a pawn capturing onto the en passant target square.
func (b *Board) IsEnPassant(m Move) bool {
	return b.EnPassantSquare >= 0 && m.To == b.EnPassantSquare && upper(b.Pos[m.From]) == 'P'
}
