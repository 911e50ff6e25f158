package board

import "strings"

const sanPieces = "PNBRQK"

// ToSAN renders m in Standard Algebraic Notation. m must be legal in pos.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}
	from, to := m.From(), m.To()
	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.Kind() == CastleKing:
		sb.WriteString("O-O")
	case m.Kind() == CastleQueen:
		sb.WriteString("O-O-O")
	default:
		pt := piece.Type()
		if pt != Pawn {
			sb.WriteByte(sanPieces[pt])
			sb.WriteString(disambiguation(pos, m, pt))
		}
		if m.IsCapture() {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte(sanPieces[m.Promotion()])
		}
	}

	next := *pos
	next.MakeMove(m)
	if next.InCheck() {
		if next.HasLegalMoves() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed when
// another piece of the same type can reach the same square.
func disambiguation(pos *Position, m Move, pt PieceType) string {
	from, to := m.From(), m.To()
	ours := pos.Pieces[pos.SideToMove][pt]

	ambiguous, sameFile, sameRank := false, false, false
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		other := legal.Get(i)
		if other.To() != to || other.From() == from || !ours.Has(other.From()) {
			continue
		}
		ambiguous = true
		sameFile = sameFile || other.From().File() == from.File()
		sameRank = sameRank || other.From().Rank() == from.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// MovesToSAN renders a line of moves played from pos.
func MovesToSAN(pos *Position, moves []Move) []string {
	out := make([]string, len(moves))
	p := *pos
	for i, m := range moves {
		out[i] = m.ToSAN(&p)
		p.MakeMove(m)
	}
	return out
}
