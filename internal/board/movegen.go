package board

import "fmt"

// DebugMoveValidation makes the generator cross-check its output against
// the make-and-test oracle in vboard.go and panic on any disagreement.
// Tests switch it on; it is far too slow for search.
var DebugMoveValidation = false

// GenerateLegalMoves returns all legal moves in generation order: pawns,
// knights, bishops, rooks, queens, king, castling. Within a piece type
// origins and destinations ascend; promotions come as Q, R, B, N.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.GenerateLegalMovesInto(ml)
	return ml
}

// GenerateLegalMovesInto is GenerateLegalMoves into a caller-owned list,
// which is cleared first.
func (p *Position) GenerateLegalMovesInto(ml *MoveList) {
	ml.Clear()
	p.generate(ml, true)
	if DebugMoveValidation {
		p.verifyMoves(ml)
	}
}

// generatePseudoLegal returns moves that obey piece movement but may leave
// the mover's king attacked. Castling still requires unattacked squares.
func (p *Position) generatePseudoLegal(ml *MoveList) {
	ml.Clear()
	p.generate(ml, false)
}

// generate builds the move list. With legal set, a check mask restricts
// non-king destinations to capturing or blocking a single checker, pinned
// pieces stay on their pin line, king steps are tested with the king
// lifted off the board and en passant is tested on the resulting board.
func (p *Position) generate(ml *MoveList, legal bool) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	own := p.Occupied[us]
	enemy := p.Occupied[them]
	occ := p.AllOccupied

	target := ^own
	var pinned Bitboard
	if legal {
		if p.Checkers.MoreThanOne() {
			p.genKingSteps(ml, true)
			return
		}
		if p.Checkers != 0 {
			target = Between(ksq, p.Checkers.LSB()) | p.Checkers
		}
		pinned = p.ComputePinned()
	}

	p.genPawnMoves(ml, target, pinned, legal)

	knights := p.Pieces[us][Knight] &^ pinned
	for knights != 0 {
		from := knights.PopLSB()
		p.addTargets(ml, from, KnightAttacks(from)&target, enemy)
	}

	for _, pt := range [3]PieceType{Bishop, Rook, Queen} {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			var attacks Bitboard
			switch pt {
			case Bishop:
				attacks = BishopAttacks(from, occ)
			case Rook:
				attacks = RookAttacks(from, occ)
			default:
				attacks = QueenAttacks(from, occ)
			}
			attacks &= target
			if pinned.Has(from) {
				attacks &= Line(ksq, from)
			}
			p.addTargets(ml, from, attacks, enemy)
		}
	}

	p.genKingSteps(ml, legal)
	if p.Checkers == 0 {
		p.genCastling(ml)
	}
}

func (p *Position) addTargets(ml *MoveList, from Square, targets, enemy Bitboard) {
	for targets != 0 {
		to := targets.PopLSB()
		if enemy.Has(to) {
			ml.Add(NewMove(from, to, Capture))
		} else {
			ml.Add(NewMove(from, to, Quiet))
		}
	}
}

func (p *Position) genPawnMoves(ml *MoveList, target, pinned Bitboard, legal bool) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	enemy := p.Occupied[them]

	forward, startRank, promoRank := 8, Rank2, Rank8
	if us == Black {
		forward, startRank, promoRank = -8, Rank7, Rank1
	}

	pawns := p.Pieces[us][Pawn]
	for pawns != 0 {
		from := pawns.PopLSB()
		allowed := target
		if pinned.Has(from) {
			allowed &= Line(ksq, from)
		}

		to := Square(int(from) + forward)
		if p.IsEmpty(to) {
			if allowed.Has(to) {
				if promoRank.Has(to) {
					addPromotions(ml, from, to, false)
				} else {
					ml.Add(NewMove(from, to, Quiet))
				}
			}
			to2 := Square(int(to) + forward)
			if startRank.Has(from) && p.IsEmpty(to2) && allowed.Has(to2) {
				ml.Add(NewMove(from, to2, DoublePush))
			}
		}

		captures := pawnAttacks[us][from] & enemy & allowed
		for captures != 0 {
			to := captures.PopLSB()
			if promoRank.Has(to) {
				addPromotions(ml, from, to, true)
			} else {
				ml.Add(NewMove(from, to, Capture))
			}
		}

		if p.EnPassant != NoSquare && pawnAttacks[us][from].Has(p.EnPassant) {
			if !legal || p.enPassantIsSafe(from) {
				ml.Add(NewMove(from, p.EnPassant, EnPassantCapture))
			}
		}
	}
}

func addPromotions(ml *MoveList, from, to Square, capture bool) {
	ml.Add(NewPromotion(from, to, Queen, capture))
	ml.Add(NewPromotion(from, to, Rook, capture))
	ml.Add(NewPromotion(from, to, Bishop, capture))
	ml.Add(NewPromotion(from, to, Knight, capture))
}

// enPassantIsSafe plays the capture on a scratch occupancy and asks
// whether the king is attacked afterwards. This covers the case where both
// pawns leave the king's rank together and expose it to a rook or queen.
func (p *Position) enPassantIsSafe(from Square) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	ep := p.EnPassant
	captured := ep ^ 8

	occ := p.AllOccupied ^ SquareBB(from) ^ SquareBB(captured) | SquareBB(ep)
	diag := p.Pieces[them][Bishop] | p.Pieces[them][Queen]
	orth := p.Pieces[them][Rook] | p.Pieces[them][Queen]
	attackers := pawnAttacks[us][ksq]&(p.Pieces[them][Pawn]&^SquareBB(captured)) |
		knightAttacks[ksq]&p.Pieces[them][Knight] |
		BishopAttacks(ksq, occ)&diag |
		RookAttacks(ksq, occ)&orth
	return attackers == 0
}

func (p *Position) genKingSteps(ml *MoveList, legal bool) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	enemy := p.Occupied[them]
	occ := p.AllOccupied &^ SquareBB(ksq)

	steps := kingAttacks[ksq] &^ p.Occupied[us]
	for steps != 0 {
		to := steps.PopLSB()
		if legal && p.AttackersByColor(to, them, occ) != 0 {
			continue
		}
		if enemy.Has(to) {
			ml.Add(NewMove(ksq, to, Capture))
		} else {
			ml.Add(NewMove(ksq, to, Quiet))
		}
	}
}

// castleRoutes lists, per color and wing, the squares that must be empty
// and the squares the king crosses, which must not be attacked.
var castleRoutes = [2][2]struct {
	right       CastlingRights
	king, to    Square
	empty, safe Bitboard
	kind        MoveKind
}{
	White: {
		{WhiteKingSideCastle, E1, G1, SquareBB(F1) | SquareBB(G1), SquareBB(F1) | SquareBB(G1), CastleKing},
		{WhiteQueenSideCastle, E1, C1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(C1) | SquareBB(D1), CastleQueen},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, SquareBB(F8) | SquareBB(G8), SquareBB(F8) | SquareBB(G8), CastleKing},
		{BlackQueenSideCastle, E8, C8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(C8) | SquareBB(D8), CastleQueen},
	},
}

// genCastling assumes the side to move is not in check.
func (p *Position) genCastling(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	for _, r := range castleRoutes[us] {
		if p.CastlingRights&r.right == 0 || p.AllOccupied&r.empty != 0 {
			continue
		}
		safe := true
		for s := r.safe; s != 0; {
			if p.IsSquareAttacked(s.PopLSB(), them) {
				safe = false
				break
			}
		}
		if safe {
			ml.Add(NewMove(r.king, r.to, r.kind))
		}
	}
}

// HasLegalMoves reports whether the side to move can move at all.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.GenerateLegalMovesInto(&ml)
	return ml.Len() > 0
}

// IsCheckmate reports whether the side to move is mated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move has no moves and is not in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// verifyMoves compares ml with the oracle's filtering of pseudo-legal moves.
func (p *Position) verifyMoves(ml *MoveList) {
	var pseudo MoveList
	p.generatePseudoLegal(&pseudo)
	var want []Move
	for _, m := range pseudo.Slice() {
		if p.LegalBySimulation(m) {
			want = append(want, m)
		}
	}
	got := ml.Slice()
	if len(got) != len(want) {
		panic(fmt.Sprintf("movegen: %s: generated %d moves, oracle accepts %d", p.ToFEN(), len(got), len(want)))
	}
	for i := range got {
		if got[i] != want[i] {
			panic(fmt.Sprintf("movegen: %s: move %d is %s, oracle has %s", p.ToFEN(), i, got[i], want[i]))
		}
	}
}
