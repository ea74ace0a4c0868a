package puzzle

import "trollfish-puzzles/engine"

// Scores are from the point of view of the side to move. A forced mate
// counts as beyond any centipawn threshold.

func IsWon(e engine.Eval, threshold int) bool {
	if e.IsMate() {
		return e.Mate > 0
	}
	return e.CP > threshold
}

func IsLost(e engine.Eval, threshold int) bool {
	if e.IsMate() {
		return e.Mate < 0
	}
	return e.CP < -threshold
}

// IsNotWon is not the negation of IsWon: with the usual thresholds a score
// between the weak and strong threshold is neither won nor "not won".
func IsNotWon(e engine.Eval, threshold int) bool {
	if e.IsMate() {
		return e.Mate < 0
	}
	return e.CP < threshold
}

func IsNotLost(e engine.Eval, threshold int) bool {
	if e.IsMate() {
		return e.Mate > 0
	}
	return e.CP > -threshold
}
