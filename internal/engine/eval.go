// Package engine implements perft, the alpha-beta search, the shared
// transposition table and the worker pool that splits work at the root.
package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Evaluator scores a quiet leaf in centipawns from the point of view of
// the side to move. Implementations must be pure functions of the
// position and safe for concurrent use.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(pos *board.Position) int

func (f EvaluatorFunc) Evaluate(pos *board.Position) int { return f(pos) }

// Piece values in centipawns.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

var pieceValues = [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0}

// Material counts piece values and nothing else.
type Material struct{}

func (Material) Evaluate(pos *board.Position) int {
	score := pos.Material(pieceValues)
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// PieceSquare adds piece-square bonuses to material and blends the king
// table between middlegame and endgame by remaining material.
type PieceSquare struct{}

// Tables are written rank 8 first, as seen from white's side.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

// phaseWeight counts towards the middlegame; 24 is a full set of pieces.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const maxPhase = 24

func (PieceSquare) Evaluate(pos *board.Position) int {
	var score, kingMg, kingEg, phase int
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				// Tables are laid out rank 8 first, so white mirrors.
				idx := sq
				if c == board.White {
					idx = sq.Mirror()
				}
				phase += phaseWeight[pt]
				if pt == board.King {
					kingMg += sign * kingMidgamePST[idx]
					kingEg += sign * kingEndgamePST[idx]
					continue
				}
				score += sign * (pieceValues[pt] + psts[pt][idx])
			}
		}
	}
	if phase > maxPhase {
		phase = maxPhase
	}
	score += (kingMg*phase + kingEg*(maxPhase-phase)) / maxPhase

	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}
