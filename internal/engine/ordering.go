package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore   = 10000000 // TT move gets highest priority
	CaptureBase   = 1000000
	PromotionBase = 950000
	KillerScore1  = 900000 // First killer move
	KillerScore2  = 800000 // Second killer move
	historyMax    = 400000
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores
// Higher score = search first
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// MoveOrderer holds the per-worker ordering state. Ordering only changes
// how fast the search prunes, never the value it returns.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move
	history [64][64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear forgets killers and ages the history table for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i] = [2]board.Move{}
	}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
}

// ScoreMoves fills scores[i] with the ordering score of moves[i].
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, scores []int, ply int, ttMove board.Move) {
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove)
	}
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}

	if m.IsCapture() {
		attacker := pos.PieceAt(m.From()).Type()
		victim := board.Pawn
		if !m.IsEnPassant() {
			victim = pos.PieceAt(m.To()).Type()
		}
		if victim >= board.King || attacker > board.King {
			return CaptureBase
		}
		score := CaptureBase + mvvLva[victim][attacker]*1000
		if m.IsPromotion() {
			score += pieceValues[m.Promotion()]
		}
		return score
	}

	if m.IsPromotion() {
		return PromotionBase + pieceValues[m.Promotion()]
	}

	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			return KillerScore1
		}
		if m == mo.killers[ply][1] {
			return KillerScore2
		}
	}

	return mo.history[m.From()][m.To()]
}

// PickMove moves the best remaining move to index. Equal scores keep
// generation order.
func PickMove(moves *board.MoveList, scores []int, index int) board.Move {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		// Shift rather than swap so the skipped moves stay in order.
		m, s := moves.Get(best), scores[best]
		for j := best; j > index; j-- {
			moves.Set(j, moves.Get(j-1))
			scores[j] = scores[j-1]
		}
		moves.Set(index, m)
		scores[index] = s
	}
	return moves.Get(index)
}

// UpdateKillers adds a killer move at the given ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory rewards a quiet move that caused a cutoff.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	from, to := m.From(), m.To()
	mo.history[from][to] += depth * depth
	if mo.history[from][to] > historyMax {
		for i := range mo.history {
			for j := range mo.history[i] {
				mo.history[i][j] /= 2
			}
		}
	}
}

// HistoryScore returns the history score for a move.
func (mo *MoveOrderer) HistoryScore(m board.Move) int {
	return mo.history[m.From()][m.To()]
}
