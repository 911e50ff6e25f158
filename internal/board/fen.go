package board

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	// ErrInvalidFEN is wrapped by every FEN syntax error.
	ErrInvalidFEN = errors.New("invalid FEN")
	// ErrIllegalPosition is wrapped by every Validate finding.
	ErrIllegalPosition = errors.New("illegal position")
	// ErrIllegalMove is returned when move text matches no legal move.
	ErrIllegalMove = errors.New("illegal move")
)

// ParseFEN builds a position from Forsyth-Edwards Notation. The clock
// fields are optional and default to "0 1". The result is validated, and
// castling flags without their king and rook at home are dropped.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return nil, errors.Wrapf(ErrInvalidFEN, "want 4 to 6 fields, got %d", len(fields))
	}

	pos := &Position{EnPassant: NoSquare, FullMoveNumber: 1}
	pos.KingSquare = [2]Square{NoSquare, NoSquare}

	if err := pos.parsePlacement(fields[0]); err != nil {
		return nil, err
	}

	switch fields[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, errors.Wrapf(ErrInvalidFEN, "side to move %q", fields[1])
	}

	if fields[2] != "-" {
		for _, c := range fields[2] {
			i := strings.IndexRune("KQkq", c)
			if i < 0 {
				return nil, errors.Wrapf(ErrInvalidFEN, "castling field %q", fields[2])
			}
			pos.CastlingRights |= 1 << i
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return nil, errors.Wrap(ErrInvalidFEN, err.Error())
		}
		pos.EnPassant = sq
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, errors.Wrapf(ErrInvalidFEN, "halfmove clock %q", fields[4])
		}
		pos.HalfMoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 0 {
			return nil, errors.Wrapf(ErrInvalidFEN, "fullmove number %q", fields[5])
		}
		// Some test suites write 0 here.
		if n == 0 {
			n = 1
		}
		pos.FullMoveNumber = n
	}

	pos.sanitizeCastling()
	if err := pos.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "fen %q", fen)
	}

	pos.Hash = pos.ComputeHash()
	pos.UpdateCheckers()
	return pos, nil
}

func (p *Position) parsePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return errors.Wrapf(ErrInvalidFEN, "want 8 ranks, got %d", len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(c)
			if piece == NoPiece {
				return errors.Wrapf(ErrInvalidFEN, "piece letter %q", c)
			}
			if file > 7 {
				return errors.Wrapf(ErrInvalidFEN, "rank %d overflows", rank+1)
			}
			p.putPiece(piece.Color(), piece.Type(), NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return errors.Wrapf(ErrInvalidFEN, "rank %d has %d squares", rank+1, file)
		}
	}
	return nil
}

// ToFEN renders the position as a six-field FEN string.
func (p *Position) ToFEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	side := " w "
	if p.SideToMove == Black {
		side = " b "
	}
	sb.WriteString(side)
	sb.WriteString(p.CastlingRights.String())
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))
	return sb.String()
}
