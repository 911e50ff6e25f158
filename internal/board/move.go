package board

import "github.com/pkg/errors"

// Move packs a move into 32 bits:
//
//	bits 0-5   origin square
//	bits 6-11  destination square
//	bits 12-14 promotion piece type (0 when not a promotion)
//	bits 15-17 MoveKind
//
// Moves are only built by the generator for a concrete position, so
// MakeMove trusts them without further checks.
type Move uint32

// MoveKind tells MakeMove which side effects a move carries.
type MoveKind uint8

const (
	Quiet MoveKind = iota
	DoublePush
	Capture
	EnPassantCapture
	CastleKing
	CastleQueen
)

// NoMove is the zero move; it prints as "0000".
const NoMove Move = 0

const (
	toShift    = 6
	promoShift = 12
	kindShift  = 15
)

// NewMove builds a move of the given kind without promotion.
func NewMove(from, to Square, kind MoveKind) Move {
	return Move(from) | Move(to)<<toShift | Move(kind)<<kindShift
}

// NewPromotion builds a promotion to pt; capture selects the kind.
func NewPromotion(from, to Square, pt PieceType, capture bool) Move {
	kind := Quiet
	if capture {
		kind = Capture
	}
	return NewMove(from, to, kind) | Move(pt)<<promoShift
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> toShift) & 0x3F)
}

// Kind returns the move kind.
func (m Move) Kind() MoveKind {
	return MoveKind((m >> kindShift) & 0x7)
}

// Promotion returns the promoted-to type, or NoPieceType.
func (m Move) Promotion() PieceType {
	pt := PieceType((m >> promoShift) & 0x7)
	if pt == Pawn {
		return NoPieceType
	}
	return pt
}

func (m Move) IsPromotion() bool { return (m>>promoShift)&0x7 != 0 }
func (m Move) IsEnPassant() bool { return m.Kind() == EnPassantCapture }
func (m Move) IsCastling() bool  { return m.Kind() == CastleKing || m.Kind() == CastleQueen }

// IsCapture reports whether the move removes an enemy piece.
func (m Move) IsCapture() bool {
	k := m.Kind()
	return k == Capture || k == EnPassantCapture
}

// String renders UCI long algebraic notation, e.g. "e2e4" or "a7a8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	b := make([]byte, 0, 5)
	b = append(b, m.From().String()...)
	b = append(b, m.To().String()...)
	if m.IsPromotion() {
		b = append(b, m.Promotion().Char())
	}
	return string(b)
}

// ParseMove resolves UCI text against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, errors.Wrapf(ErrIllegalMove, "malformed move %q", s)
	}
	ml := pos.GenerateLegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Get(i); m.String() == s {
			return m, nil
		}
	}
	return NoMove, errors.Wrapf(ErrIllegalMove, "%s in %s", s, pos.ToFEN())
}

// MaxMoves bounds the number of legal moves in any reachable position.
const MaxMoves = 256

// MoveList is a fixed-capacity move buffer that lives on the stack.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

// NewMoveList returns an empty list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int          { return ml.count }
func (ml *MoveList) Get(i int) Move    { return ml.moves[i] }
func (ml *MoveList) Set(i int, m Move) { ml.moves[i] = m }
func (ml *MoveList) Clear()            { ml.count = 0 }

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice exposes the filled part of the buffer.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo carries the irreversible state that UnmakeMove restores.
type UndoInfo struct {
	Captured       Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	Checkers       Bitboard
}
