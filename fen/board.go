package fen

import (
	"fmt"
	"strconv"
	"strings"
)

const StartPosFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Board is a mailbox board. Pos[0] is a8, Pos[63] is h1, empty squares are ' '.
type Board struct {
	Pos             [64]byte
	ActiveColor     Color
	Castling        string
	EnPassantSquare int
	HalfmoveClock   int
	FullMove        int
}

type Color int

const (
	WhitePieces Color = 1
	BlackPieces Color = -1
)

func (c Color) String() string {
	if c == BlackPieces {
		return "b"
	}
	return "w"
}

func (c Color) Opponent() Color {
	return -c
}

type nav struct {
	file int
	rank int
}

var (
	knightPaths = []nav{
		{file: -1, rank: 2},
		{file: 1, rank: 2},
		{file: -1, rank: -2},
		{file: 1, rank: -2},

		{file: -2, rank: 1},
		{file: 2, rank: 1},
		{file: -2, rank: -1},
		{file: 2, rank: -1},
	}

	bishopPaths = []nav{
		{file: -1, rank: -1},
		{file: 1, rank: -1},
		{file: -1, rank: 1},
		{file: 1, rank: 1},
	}

	rookPaths = []nav{
		{file: -1, rank: 0},
		{file: 1, rank: 0},
		{file: 0, rank: -1},
		{file: 0, rank: 1},
	}

	kingPaths = append(append([]nav{}, rookPaths...), bishopPaths...)
)

// FENtoBoard parses a FEN string. The move clocks may be omitted.
func FENtoBoard(fen string) (Board, error) {
	if fen == "" {
		fen = StartPosFEN
	}

	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return Board{}, fmt.Errorf("fen '%s': want at least 4 fields, got %d", fen, len(parts))
	}
	if len(parts) < 6 {
		if len(parts) < 5 {
			parts = append(parts, "0")
		}
		parts = append(parts, "1")
	}

	b := Board{Castling: parts[2], EnPassantSquare: -1}

	switch parts[1] {
	case "w":
		b.ActiveColor = WhitePieces
	case "b":
		b.ActiveColor = BlackPieces
	default:
		return Board{}, fmt.Errorf("fen '%s': invalid active color '%s'", fen, parts[1])
	}

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return Board{}, fmt.Errorf("fen '%s': want 8 ranks, got %d", fen, len(ranks))
	}

	for i, rank := range ranks {
		offset := i * 8
		end := offset + 8
		for _, c := range []byte(rank) {
			if isDigit(c) {
				n := int(c - '0')
				if offset+n > end {
					return Board{}, fmt.Errorf("fen '%s': rank '%s' has more than 8 squares", fen, rank)
				}
				for j := 0; j < n; j++ {
					b.Pos[offset] = ' '
					offset++
				}
				continue
			}
			if pieceValue(c) == 0 || offset >= end {
				return Board{}, fmt.Errorf("fen '%s': invalid rank '%s'", fen, rank)
			}
			b.Pos[offset] = c
			offset++
		}
		if offset != end {
			return Board{}, fmt.Errorf("fen '%s': rank '%s' does not have 8 squares", fen, rank)
		}
	}

	if parts[3] != "-" {
		idx, err := SquareIndex(parts[3])
		if err != nil {
			return Board{}, fmt.Errorf("fen '%s': en passant square: %w", fen, err)
		}
		b.EnPassantSquare = idx
	}

	var err error
	if b.HalfmoveClock, err = strconv.Atoi(parts[4]); err != nil {
		return Board{}, fmt.Errorf("fen '%s': halfmove clock: %w", fen, err)
	}
	if b.FullMove, err = strconv.Atoi(parts[5]); err != nil {
		return Board{}, fmt.Errorf("fen '%s': full move: %w", fen, err)
	}

	return b, nil
}

func (b *Board) FENNoMoveClocks() string {
	var fen strings.Builder
	for i := 0; i < 8; i++ {
		if i != 0 {
			fen.WriteRune('/')
		}

		offset := i * 8
		blanks := 0

		for j := 0; j < 8; j++ {
			if b.Pos[offset+j] == ' ' {
				blanks++
				continue
			}

			if blanks != 0 {
				fen.WriteString(strconv.Itoa(blanks))
				blanks = 0
			}

			fen.WriteByte(b.Pos[offset+j])
		}

		if blanks != 0 {
			fen.WriteString(strconv.Itoa(blanks))
		}
	}

	castling := b.Castling
	if castling == "" {
		castling = "-"
	}
	ep := "-"
	if b.EnPassantSquare >= 0 {
		ep = SquareName(b.EnPassantSquare)
	}

	fen.WriteString(fmt.Sprintf(" %s %s %s", b.ActiveColor, castling, ep))

	return fen.String()
}

func (b *Board) FEN() string {
	return fmt.Sprintf("%s %d %d", b.FENNoMoveClocks(), b.HalfmoveClock, b.FullMove)
}

// PieceAt returns the piece on a square ("e4"), or ' ' when the square is empty or invalid.
func (b *Board) PieceAt(square string) byte {
	idx, err := SquareIndex(square)
	if err != nil {
		return ' '
	}
	return b.Pos[idx]
}

// Moves plays UCI moves in order. The board is left unchanged if any move is malformed.
func (b *Board) Moves(moves ...string) error {
	nb := *b
	for i, uci := range moves {
		m, err := ParseMove(uci)
		if err != nil {
			return fmt.Errorf("move %d: %w", i+1, err)
		}
		if err := nb.play(m); err != nil {
			return fmt.Errorf("move %d '%s' in '%s': %w", i+1, uci, nb.FEN(), err)
		}
	}
	*b = nb
	return nil
}

func (b *Board) play(m Move) error {
	piece := b.Pos[m.From]
	if piece == ' ' {
		return fmt.Errorf("no piece on %s", SquareName(m.From))
	}
	if colorOf(piece) != b.ActiveColor {
		return fmt.Errorf("piece '%c' on %s does not belong to the side to move", piece, SquareName(m.From))
	}

	kind := upper(piece)
	isCapture := b.Pos[m.To] != ' '

	if kind == 'P' && m.To == b.EnPassantSquare {
		if b.ActiveColor == WhitePieces {
			b.Pos[m.To+8] = ' '
		} else {
			b.Pos[m.To-8] = ' '
		}
		isCapture = true
	}

	b.Pos[m.To] = piece
	b.Pos[m.From] = ' '

	if m.IsPromotion() {
		b.Pos[m.To] = pieceOf(m.Promotion, b.ActiveColor)
	}

	// castling moves the rook too
	if kind == 'K' && abs(m.To-m.From) == 2 {
		if m.To > m.From {
			b.Pos[m.To-1] = b.Pos[m.To+1]
			b.Pos[m.To+1] = ' '
		} else {
			b.Pos[m.To+1] = b.Pos[m.To-2]
			b.Pos[m.To-2] = ' '
		}
	}

	for _, sq := range []int{m.From, m.To} {
		switch SquareName(sq) {
		case "e1":
			b.dropCastling('K', 'Q')
		case "h1":
			b.dropCastling('K')
		case "a1":
			b.dropCastling('Q')
		case "e8":
			b.dropCastling('k', 'q')
		case "h8":
			b.dropCastling('k')
		case "a8":
			b.dropCastling('q')
		}
	}

	b.EnPassantSquare = -1
	if kind == 'P' {
		b.HalfmoveClock = 0
		if abs(m.To-m.From) == 16 {
			b.EnPassantSquare = (m.To + m.From) / 2
		}
	} else if isCapture {
		b.HalfmoveClock = 0
	} else {
		b.HalfmoveClock++
	}

	if b.ActiveColor == BlackPieces {
		b.FullMove++
	}
	b.ActiveColor = b.ActiveColor.Opponent()

	return nil
}

func (b *Board) dropCastling(rights ...rune) {
	for _, r := range rights {
		b.Castling = strings.ReplaceAll(b.Castling, string(r), "")
	}
	if b.Castling == "" {
		b.Castling = "-"
	}
}

// IsCheck reports whether the side to move is in check.
func (b *Board) IsCheck() bool {
	king := b.kingIndex(b.ActiveColor)
	if king == -1 {
		return false
	}
	return len(b.Attackers(king, b.ActiveColor.Opponent())) != 0
}

// GivesCheck reports whether playing uci leaves the opponent in check.
func (b *Board) GivesCheck(uci string) (bool, error) {
	nb := *b
	if err := nb.Moves(uci); err != nil {
		return false, err
	}
	return nb.IsCheck(), nil
}

// Attackers returns the squares of all pieces of color by that attack idx.
// Pins are ignored.
func (b *Board) Attackers(idx int, by Color) []int {
	var attackers []int

	rank, file := indexToRankFile(idx)

	// a white pawn attacks towards rank 8, so it sits one rank below the target
	pawnRank := rank + 1
	if by == BlackPieces {
		pawnRank = rank - 1
	}
	if pawnRank >= 0 && pawnRank < 8 {
		for _, pawnFile := range []int{file - 1, file + 1} {
			if pawnFile < 0 || pawnFile >= 8 {
				continue
			}
			i := pawnRank*8 + pawnFile
			if b.Pos[i] == pieceOf('P', by) {
				attackers = append(attackers, i)
			}
		}
	}

	attackers = append(attackers, b.stepAttackers(rank, file, knightPaths, pieceOf('N', by))...)
	attackers = append(attackers, b.stepAttackers(rank, file, kingPaths, pieceOf('K', by))...)
	attackers = append(attackers, b.slideAttackers(rank, file, bishopPaths, pieceOf('B', by), pieceOf('Q', by))...)
	attackers = append(attackers, b.slideAttackers(rank, file, rookPaths, pieceOf('R', by), pieceOf('Q', by))...)

	return attackers
}

func (b *Board) stepAttackers(rank, file int, paths []nav, piece byte) []int {
	var found []int
	for _, path := range paths {
		r, f := rank+path.rank, file+path.file
		if r < 0 || r >= 8 || f < 0 || f >= 8 {
			continue
		}
		i := r*8 + f
		if b.Pos[i] == piece {
			found = append(found, i)
		}
	}
	return found
}

func (b *Board) slideAttackers(rank, file int, paths []nav, pieces ...byte) []int {
	var found []int
	for _, path := range paths {
		r, f := rank+path.rank, file+path.file
		for r >= 0 && r < 8 && f >= 0 && f < 8 {
			i := r*8 + f
			p := b.Pos[i]
			if p == ' ' {
				r += path.rank
				f += path.file
				continue
			}
			for _, piece := range pieces {
				if p == piece {
					found = append(found, i)
					break
				}
			}
			break
		}
	}
	return found
}

func (b *Board) kingIndex(c Color) int {
	king := pieceOf('K', c)
	for i := 0; i < 64; i++ {
		if b.Pos[i] == king {
			return i
		}
	}
	return -1
}

// SquareIndex converts "e4" to a Pos index.
func SquareIndex(square string) (int, error) {
	if len(square) != 2 || square[0] < 'a' || square[0] > 'h' || square[1] < '1' || square[1] > '8' {
		return -1, fmt.Errorf("invalid square '%s'", square)
	}
	file := int(square[0] - 'a')
	rank := int(square[1]-'0') - 1
	return (7-rank)*8 + file, nil
}

func SquareName(index int) string {
	file := 'a' + index%8
	rank := 8 - index/8
	return fmt.Sprintf("%c%d", file, rank)
}

func indexToRankFile(index int) (int, int) {
	return index / 8, index % 8
}

func colorOf(p byte) Color {
	if p >= 'a' && p <= 'z' {
		return BlackPieces
	}
	return WhitePieces
}

func pieceOf(kind byte, c Color) byte {
	if c == BlackPieces {
		return lower(kind)
	}
	return upper(kind)
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
