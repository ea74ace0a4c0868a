package fen

const kingValue = 20000

func pieceValue(p byte) int {
	switch upper(p) {
	case 'P':
		return 100
	case 'N':
		return 320
	case 'B':
		return 330
	case 'R':
		return 500
	case 'Q':
		return 900
	case 'K':
		return kingValue
	}
	return 0
}

// SEE estimates the material outcome, in centipawns for the side to move, of
// playing m and then trading off on its destination square with the least
// valuable attacker each turn. Either side may stop capturing when it is
// ahead. X-rays are seen, pins are not.
func (b *Board) SEE(m Move) int {
	occ := *b

	captured := pieceValue(occ.Pos[m.To])
	if occ.IsEnPassant(m) {
		captured = pieceValue('P')
		if occ.ActiveColor == WhitePieces {
			occ.Pos[m.To+8] = ' '
		} else {
			occ.Pos[m.To-8] = ' '
		}
	}

	onSquare := pieceValue(occ.Pos[m.From])
	moved := occ.Pos[m.From]
	if m.IsPromotion() {
		moved = pieceOf(m.Promotion, occ.ActiveColor)
		onSquare = pieceValue(m.Promotion)
		captured += onSquare - pieceValue('P')
	}

	occ.Pos[m.To] = moved
	occ.Pos[m.From] = ' '

	gain := []int{captured}
	side := occ.ActiveColor.Opponent()

	for {
		from := occ.leastValuableAttacker(m.To, side)
		if from == -1 {
			break
		}

		if upper(occ.Pos[from]) == 'K' {
			// the king may only take when the square is no longer defended
			next := occ
			next.Pos[m.To] = next.Pos[from]
			next.Pos[from] = ' '
			if len(next.Attackers(m.To, side.Opponent())) != 0 {
				break
			}
		}

		gain = append(gain, onSquare-gain[len(gain)-1])

		onSquare = pieceValue(occ.Pos[from])
		occ.Pos[m.To] = occ.Pos[from]
		occ.Pos[from] = ' '
		side = side.Opponent()
	}

	for i := len(gain) - 1; i > 0; i-- {
		gain[i-1] = -max(-gain[i-1], gain[i])
	}

	return gain[0]
}

func (b *Board) leastValuableAttacker(idx int, by Color) int {
	best, bestValue := -1, 0
	for _, sq := range b.Attackers(idx, by) {
		v := pieceValue(b.Pos[sq])
		if best == -1 || v < bestValue {
			best, bestValue = sq, v
		}
	}
	return best
}
