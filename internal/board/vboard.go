package board

// VBoard is a stripped-down board holding only what attack detection
// needs. It backs the slow legality oracle used by DebugMoveValidation
// and the tests: play the move, then look for attacks on the king.
type VBoard struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard
	KingSquare  [2]Square
}

// NewVBoard snapshots the piece placement of p.
func NewVBoard(p *Position) VBoard {
	return VBoard{
		Pieces:      p.Pieces,
		Occupied:    p.Occupied,
		AllOccupied: p.AllOccupied,
		KingSquare:  p.KingSquare,
	}
}

func (v *VBoard) clear(c Color, sq Square) {
	bb := SquareBB(sq)
	for pt := Pawn; pt <= King; pt++ {
		v.Pieces[c][pt] &^= bb
	}
	v.Occupied[c] &^= bb
}

func (v *VBoard) set(c Color, pt PieceType, sq Square) {
	v.Pieces[c][pt] |= SquareBB(sq)
	v.Occupied[c] |= SquareBB(sq)
	if pt == King {
		v.KingSquare[c] = sq
	}
}

// ApplyMove moves pieces for m played by us. Nothing else is tracked.
func (v *VBoard) ApplyMove(m Move, us Color) {
	them := us.Other()
	from, to := m.From(), m.To()

	pt := NoPieceType
	for t := Pawn; t <= King; t++ {
		if v.Pieces[us][t].Has(from) {
			pt = t
			break
		}
	}

	v.clear(them, to)
	if m.IsEnPassant() {
		v.clear(them, to^8)
	}
	v.clear(us, from)
	if m.IsPromotion() {
		pt = m.Promotion()
	}
	v.set(us, pt, to)

	if m.IsCastling() {
		rook := rookCastleSquares[to]
		v.clear(us, rook[0])
		v.set(us, Rook, rook[1])
	}
	v.AllOccupied = v.Occupied[White] | v.Occupied[Black]
}

// IsKingAttacked reports whether byColor attacks kingSq.
func (v *VBoard) IsKingAttacked(kingSq Square, byColor Color) bool {
	side := byColor.Other()
	switch {
	case pawnAttacks[side][kingSq]&v.Pieces[byColor][Pawn] != 0:
		return true
	case knightAttacks[kingSq]&v.Pieces[byColor][Knight] != 0:
		return true
	case kingAttacks[kingSq]&v.Pieces[byColor][King] != 0:
		return true
	case BishopAttacks(kingSq, v.AllOccupied)&(v.Pieces[byColor][Bishop]|v.Pieces[byColor][Queen]) != 0:
		return true
	case RookAttacks(kingSq, v.AllOccupied)&(v.Pieces[byColor][Rook]|v.Pieces[byColor][Queen]) != 0:
		return true
	}
	return false
}

// LegalBySimulation reports whether m leaves the mover's king safe. m must
// be pseudo-legal for p.
func (p *Position) LegalBySimulation(m Move) bool {
	us := p.SideToMove
	v := NewVBoard(p)
	v.ApplyMove(m, us)
	return !v.IsKingAttacked(v.KingSquare[us], us.Other())
}
