package board

import "fmt"

// rookCastleSquares maps the king's castling destination to the rook's
// origin and destination.
var rookCastleSquares = map[Square][2]Square{
	G1: {H1, F1},
	C1: {A1, D1},
	G8: {H8, F8},
	C8: {A8, D8},
}

// MakeMove plays m, which must come from the legal generator for this
// position, and returns what UnmakeMove needs to take it back. The Zobrist
// key is updated incrementally.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		Captured:       NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		Checkers:       p.Checkers,
	}

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	moving := p.PieceAt(from)
	if DebugMoveValidation && (moving == NoPiece || moving.Color() != us) {
		panic(fmt.Sprintf("makemove: %s has no %s piece on %s", p.ToFEN(), us, from))
	}
	pt := moving.Type()

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}

	p.HalfMoveClock++
	switch m.Kind() {
	case Capture:
		captured := p.PieceAt(to)
		undo.Captured = captured
		p.removePiece(them, captured.Type(), to)
		p.HalfMoveClock = 0
	case EnPassantCapture:
		undo.Captured = NewPiece(Pawn, them)
		p.removePiece(them, Pawn, to^8)
	case CastleKing, CastleQueen:
		rook := rookCastleSquares[to]
		p.movePiece(us, Rook, rook[0], rook[1])
	}

	if promo := m.Promotion(); promo != NoPieceType {
		p.removePiece(us, Pawn, from)
		p.putPiece(us, promo, to)
	} else {
		p.movePiece(us, pt, from, to)
	}

	if pt == Pawn {
		p.HalfMoveClock = 0
		if m.Kind() == DoublePush {
			p.EnPassant = to ^ 8
			p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		}
	}

	if cr := p.CastlingRights & castlingMask[from] & castlingMask[to]; cr != p.CastlingRights {
		p.Hash ^= zobristCastling[p.CastlingRights] ^ zobristCastling[cr]
		p.CastlingRights = cr
	}

	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = them
	p.Hash ^= zobristSideToMove
	p.UpdateCheckers()

	if DebugMoveValidation && p.Hash != p.ComputeHash() {
		panic(fmt.Sprintf("makemove: %s after %s: incremental key %016x, full key %016x",
			p.ToFEN(), m, p.Hash, p.ComputeHash()))
	}
	return undo
}

// UnmakeMove reverses MakeMove(m). undo must be the value MakeMove returned.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	them := p.SideToMove
	us := them.Other()
	from, to := m.From(), m.To()

	if promo := m.Promotion(); promo != NoPieceType {
		p.removePiece(us, promo, to)
		p.putPiece(us, Pawn, from)
	} else {
		p.movePiece(us, p.PieceAt(to).Type(), to, from)
	}

	switch m.Kind() {
	case Capture:
		p.putPiece(them, undo.Captured.Type(), to)
	case EnPassantCapture:
		p.putPiece(them, Pawn, to^8)
	case CastleKing, CastleQueen:
		rook := rookCastleSquares[to]
		p.movePiece(us, Rook, rook[1], rook[0])
	}

	if us == Black {
		p.FullMoveNumber--
	}
	p.SideToMove = us
	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Checkers = undo.Checkers
	p.Hash = undo.Hash
}
