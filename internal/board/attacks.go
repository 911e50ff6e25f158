package board

// Leaper attack tables and square-pair geometry.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	betweenBB [64][64]Bitboard // strictly between, empty when not aligned
	lineBB    [64][64]Bitboard // full edge-to-edge line, empty when not aligned
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		b := SquareBB(sq)

		knightAttacks[sq] = (b<<17)&NotFileA | (b<<15)&NotFileH |
			(b>>15)&NotFileA | (b>>17)&NotFileH |
			(b<<10)&NotFileAB | (b<<6)&NotFileGH |
			(b>>6)&NotFileAB | (b>>10)&NotFileGH

		kingAttacks[sq] = b.North() | b.South() | b.East() | b.West() |
			b.NorthEast() | b.NorthWest() | b.SouthEast() | b.SouthWest()

		pawnAttacks[White][sq] = b.NorthEast() | b.NorthWest()
		pawnAttacks[Black][sq] = b.SouthEast() | b.SouthWest()
	}

	initMagics()
	initGeometry()
}

// initGeometry fills betweenBB and lineBB from the slider tables, so it
// must run after initMagics.
func initGeometry() {
	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			if a == b {
				continue
			}
			bbA, bbB := SquareBB(a), SquareBB(b)
			if rookAttacksSlow(a, 0)&bbB != 0 {
				lineBB[a][b] = (rookAttacksSlow(a, 0)&rookAttacksSlow(b, 0) | bbA | bbB)
				betweenBB[a][b] = rookAttacksSlow(a, bbB) & rookAttacksSlow(b, bbA)
			} else if bishopAttacksSlow(a, 0)&bbB != 0 {
				lineBB[a][b] = (bishopAttacksSlow(a, 0)&bishopAttacksSlow(b, 0) | bbA | bbB)
				betweenBB[a][b] = bishopAttacksSlow(a, bbB) & bishopAttacksSlow(b, bbA)
			}
		}
	}
}

// KnightAttacks returns the squares a knight on sq attacks.
func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }

// KingAttacks returns the squares a king on sq attacks.
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// PawnAttacks returns the squares a c pawn on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

// BishopAttacks returns diagonal attacks from sq given the occupancy.
func BishopAttacks(sq Square, occ Bitboard) Bitboard {
	m := &bishopMagics[sq]
	return m.attacks[m.index(occ)]
}

// RookAttacks returns orthogonal attacks from sq given the occupancy.
func RookAttacks(sq Square, occ Bitboard) Bitboard {
	m := &rookMagics[sq]
	return m.attacks[m.index(occ)]
}

// QueenAttacks is the union of bishop and rook attacks.
func QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ) | RookAttacks(sq, occ)
}

// Between returns the squares strictly between a and b on a shared line.
func Between(a, b Square) Bitboard { return betweenBB[a][b] }

// Line returns the whole line through a and b, or Empty if not aligned.
func Line(a, b Square) Bitboard { return lineBB[a][b] }

// AttackersByColor returns the c pieces attacking sq under the given occupancy.
func (p *Position) AttackersByColor(sq Square, c Color, occ Bitboard) Bitboard {
	diag := p.Pieces[c][Bishop] | p.Pieces[c][Queen]
	orth := p.Pieces[c][Rook] | p.Pieces[c][Queen]
	return pawnAttacks[c.Other()][sq]&p.Pieces[c][Pawn] |
		knightAttacks[sq]&p.Pieces[c][Knight] |
		kingAttacks[sq]&p.Pieces[c][King] |
		BishopAttacks(sq, occ)&diag |
		RookAttacks(sq, occ)&orth
}

// IsSquareAttacked reports whether byColor attacks sq on the current board.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	return p.AttackersByColor(sq, byColor, p.AllOccupied) != 0
}

// UpdateCheckers recomputes the pieces giving check to the side to move.
func (p *Position) UpdateCheckers() {
	us := p.SideToMove
	if p.Pieces[us][King] == 0 {
		p.Checkers = 0
		return
	}
	p.Checkers = p.AttackersByColor(p.KingSquare[us], us.Other(), p.AllOccupied)
}

// ComputePinned returns the side to move's pieces pinned against its king.
func (p *Position) ComputePinned() Bitboard {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	var pinned Bitboard
	snipers := RookAttacks(ksq, 0)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) |
		BishopAttacks(ksq, 0)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen])
	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(sq, ksq) & p.AllOccupied
		if blockers != 0 && !blockers.MoreThanOne() && blockers&p.Occupied[us] != 0 {
			pinned |= blockers
		}
	}
	return pinned
}
