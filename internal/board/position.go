package board

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// CastlingRights holds the four castling flags, KQkq.
type CastlingRights uint8

const (
	WhiteKingSideCastle CastlingRights = 1 << iota
	WhiteQueenSideCastle
	BlackKingSideCastle
	BlackQueenSideCastle

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// castlingMask[sq] is ANDed into the rights whenever a move touches sq,
// which clears the rights tied to a king or rook home square.
var castlingMask [64]CastlingRights

func init() {
	for sq := range castlingMask {
		castlingMask[sq] = AllCastling
	}
	castlingMask[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	castlingMask[H1] &^= WhiteKingSideCastle
	castlingMask[A1] &^= WhiteQueenSideCastle
	castlingMask[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	castlingMask[H8] &^= BlackKingSideCastle
	castlingMask[A8] &^= BlackQueenSideCastle
}

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// Position is a complete board state. It is a plain value: Copy is a
// struct copy and every search worker owns its own.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // NoSquare unless the last move was a double push
	HalfMoveClock  int
	FullMoveNumber int

	Hash uint64

	KingSquare [2]Square
	Checkers   Bitboard
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy returns an independent copy.
func (p *Position) Copy() *Position {
	c := *p
	return &c
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty reports whether nothing stands on sq.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

// The helpers below update bitboards and the hash together.

func (p *Position) putPiece(c Color, pt PieceType, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.Hash ^= zobristPiece[c][pt][sq]
	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(c Color, pt PieceType, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.Hash ^= zobristPiece[c][pt][sq]
}

func (p *Position) movePiece(c Color, pt PieceType, from, to Square) {
	bb := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= bb
	p.Occupied[c] ^= bb
	p.AllOccupied ^= bb
	p.Hash ^= zobristPiece[c][pt][from] ^ zobristPiece[c][pt][to]
	if pt == King {
		p.KingSquare[c] = to
	}
}

// Material returns the white-minus-black sum of values[pt] over all pieces.
func (p *Position) Material(values [6]int) int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += values[pt] * (p.Pieces[White][pt].PopCount() - p.Pieces[Black][pt].PopCount())
	}
	return score
}

// String draws the board with the FEN and key underneath.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n +---+---+---+---+---+---+---+---+\n")
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			c := " "
			if piece != NoPiece {
				c = piece.String()
			}
			fmt.Fprintf(&sb, " | %s", c)
		}
		fmt.Fprintf(&sb, " | %d\n +---+---+---+---+---+---+---+---+\n", rank+1)
	}
	sb.WriteString("   a   b   c   d   e   f   g   h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\nKey: %016X\n", p.ToFEN(), p.Hash)
	if p.Checkers != 0 {
		sb.WriteString("Checkers:")
		for cb := p.Checkers; cb != 0; {
			sb.WriteString(" " + cb.PopLSB().String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Validate reports every structural problem with the position at once.
// Each reported error wraps ErrIllegalPosition.
func (p *Position) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...interface{}) {
		result = multierror.Append(result, errors.Wrapf(ErrIllegalPosition, format, args...))
	}

	for c := White; c <= Black; c++ {
		if n := p.Pieces[c][King].PopCount(); n != 1 {
			add("%s has %d kings", c, n)
		}
	}
	if p.Occupied[White]&p.Occupied[Black] != 0 {
		add("white and black pieces share a square")
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		add("pawn on first or last rank")
	}

	// The remaining checks need both kings in place.
	if result != nil {
		result.ErrorFormat = joinErrors
		return result
	}

	them := p.SideToMove.Other()
	if p.IsSquareAttacked(p.KingSquare[them], p.SideToMove) {
		add("%s king can be captured", them)
	}
	if p.EnPassant != NoSquare {
		if !p.validEnPassant() {
			add("en passant square %s does not follow a double push", p.EnPassant)
		}
	}

	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// validEnPassant checks that the target square sits behind an enemy pawn
// that could just have made a double push.
func (p *Position) validEnPassant() bool {
	ep := p.EnPassant
	us := p.SideToMove
	them := us.Other()
	wantRank, pawnSq, fromSq := 5, ep-8, ep+8
	if us == Black {
		wantRank, pawnSq, fromSq = 2, ep+8, ep-8
	}
	return ep.Rank() == wantRank &&
		p.Pieces[them][Pawn].Has(pawnSq) &&
		p.IsEmpty(ep) && p.IsEmpty(fromSq)
}

// sanitizeCastling drops castling flags whose king or rook is not on its
// home square, so a loosely written FEN cannot produce impossible castles.
func (p *Position) sanitizeCastling() {
	homes := [4]struct {
		flag       CastlingRights
		c          Color
		king, rook Square
	}{
		{WhiteKingSideCastle, White, E1, H1},
		{WhiteQueenSideCastle, White, E1, A1},
		{BlackKingSideCastle, Black, E8, H8},
		{BlackQueenSideCastle, Black, E8, A8},
	}
	for _, h := range homes {
		if p.CastlingRights&h.flag == 0 {
			continue
		}
		if !p.Pieces[h.c][King].Has(h.king) || !p.Pieces[h.c][Rook].Has(h.rook) {
			p.CastlingRights &^= h.flag
		}
	}
}

// NullMoveUndo restores the state changed by MakeNullMove.
type NullMoveUndo struct {
	EnPassant Square
	Hash      uint64
	Checkers  Bitboard
}

// MakeNullMove passes the turn. The side to move must not be in check.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{EnPassant: p.EnPassant, Hash: p.Hash, Checkers: p.Checkers}
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.UpdateCheckers()
	return undo
}

// UnmakeNullMove reverts MakeNullMove.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = undo.EnPassant
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
}

// IsInsufficientMaterial reports bare kings or a lone minor piece.
func (p *Position) IsInsufficientMaterial() bool {
	heavy := p.Pieces[White][Pawn] | p.Pieces[Black][Pawn] |
		p.Pieces[White][Rook] | p.Pieces[Black][Rook] |
		p.Pieces[White][Queen] | p.Pieces[Black][Queen]
	if heavy != 0 {
		return false
	}
	minors := p.Pieces[White][Knight] | p.Pieces[White][Bishop] |
		p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]
	return !minors.MoreThanOne()
}
