package puzzle

import "trollfish-puzzles/fen"

// Exchange is the static exchange outcome of a move for the side playing it.
type Exchange int

const (
	Losing Exchange = iota - 1
	Even
	Winning
)

func (x Exchange) String() string {
	switch x {
	case Losing:
		return "losing"
	case Winning:
		return "winning"
	}
	return "even"
}

func IsQueenPromotion(m fen.Move) bool {
	return m.Promotion == 'Q'
}

func IsEnPassant(b fen.Board, m fen.Move) bool {
	return b.IsEnPassant(m)
}

// GivesCheck reports whether m checks the opponent. A move that cannot be
// played on b does not give check.
func GivesCheck(b fen.Board, m fen.Move) bool {
	check, err := b.GivesCheck(m.String())
	return err == nil && check
}

// ExchangeOutcome classifies the static exchange estimate of m on b and
// returns the estimate in centipawns.
func ExchangeOutcome(b fen.Board, m fen.Move) (Exchange, int) {
	see := b.SEE(m)
	switch {
	case see > 0:
		return Winning, see
	case see < 0:
		return Losing, see
	}
	return Even, 0
}
