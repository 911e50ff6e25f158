package engine

import (
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

// Worker runs one synchronous traversal at a time on its own position copy.
// Only the transposition table, the perft cache and the budget control are
// shared with other workers.
type Worker struct {
	id int

	pos     board.Position
	orderer *MoveOrderer
	pv      PVTable

	// Shared resources (pointers to engine's shared state)
	tt   *TranspositionTable
	pc   *PerftCache
	eval Evaluator
	ctl  *control

	deeperHits bool

	pending uint64
	probes  uint64
	hits    uint64
	cutoffs uint64

	log zerolog.Logger
}

// NewWorker creates a new search worker.
func NewWorker(id int, tt *TranspositionTable, pc *PerftCache, eval Evaluator, log zerolog.Logger) *Worker {
	return &Worker{
		id:      id,
		orderer: NewMoveOrderer(),
		tt:      tt,
		pc:      pc,
		eval:    eval,
		log:     log.With().Int("worker", id).Logger(),
	}
}

// Reset prepares the worker for a new request.
func (w *Worker) Reset(ctl *control) {
	w.ctl = ctl
	w.pending = 0
	w.probes, w.hits, w.cutoffs = 0, 0, 0
	w.orderer.Clear()
}

// setPosition copies pos into the worker.
func (w *Worker) setPosition(pos *board.Position) {
	w.pos = *pos
}

// visit counts a node and reports whether the request has been stopped.
func (w *Worker) visit() bool {
	w.pending++
	if w.pending >= w.ctl.interval {
		w.ctl.flush(w.pending)
		w.pending = 0
	}
	return w.ctl.stopped()
}

// flush hands the remaining local node count to the shared counter.
func (w *Worker) flush() {
	w.ctl.flush(w.pending)
	w.pending = 0
}

// searchRoot scores one root move at depth with the full window. ok is
// false when the budget ran out before the subtree was finished.
func (w *Worker) searchRoot(m board.Move, depth int) (score int, pv []board.Move, ok bool) {
	w.pv.clear(0)
	undo := w.pos.MakeMove(m)
	score = -w.negamax(depth-1, 1, -Infinity, Infinity)
	w.pos.UnmakeMove(m, undo)
	if w.ctl.stopped() {
		return 0, nil, false
	}
	w.pv.update(0, m)
	return score, w.pv.line(0), true
}

// negamax is fail-soft alpha-beta. The returned value is exact whenever it
// lies strictly inside (alpha, beta).
func (w *Worker) negamax(depth, ply, alpha, beta int) int {
	if w.visit() {
		return 0
	}
	w.pv.clear(ply)

	var ml board.MoveList
	w.pos.GenerateLegalMovesInto(&ml)
	if ml.Len() == 0 {
		if w.pos.InCheck() {
			return -MateScore + ply
		}
		return DrawScore
	}
	if depth <= 0 || ply >= MaxPly-1 {
		return w.eval.Evaluate(&w.pos)
	}

	key := w.pos.Hash
	ttMove := board.NoMove
	w.probes++
	if e, ok := w.tt.Probe(key); ok {
		w.hits++
		ttMove = e.Move
		if e.Depth == depth || (w.deeperHits && e.Depth > depth) {
			score := AdjustScoreFromTT(e.Score, ply)
			switch {
			case e.Bound == BoundExact,
				e.Bound == BoundLower && score >= beta,
				e.Bound == BoundUpper && score <= alpha:
				return score
			}
		}
	}

	var scores [board.MaxMoves]int
	w.orderer.ScoreMoves(&w.pos, &ml, scores[:], ply, ttMove)

	origAlpha := alpha
	best := -Infinity
	bestMove := board.NoMove
	for i := 0; i < ml.Len(); i++ {
		m := PickMove(&ml, scores[:], i)

		undo := w.pos.MakeMove(m)
		score := -w.negamax(depth-1, ply+1, -beta, -alpha)
		w.pos.UnmakeMove(m, undo)

		if w.ctl.stopped() {
			return 0
		}

		if score > best {
			best = score
			bestMove = m
			if score > alpha {
				alpha = score
				w.pv.update(ply, m)
				if score >= beta {
					w.cutoffs++
					if !m.IsCapture() && !m.IsPromotion() {
						w.orderer.UpdateKillers(m, ply)
						w.orderer.UpdateHistory(m, depth)
					}
					break
				}
			}
		}
	}

	bound := BoundUpper
	switch {
	case best >= beta:
		bound = BoundLower
	case best > origAlpha:
		bound = BoundExact
	}
	w.tt.Store(key, depth, AdjustScoreToTT(best, ply), bound, bestMove)
	return best
}

// perft counts the leaves below the worker's position. It returns early,
// with a meaningless count, once the request is stopped.
func (w *Worker) perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	if w.ctl.stopped() {
		return 0
	}

	var ml board.MoveList
	w.pos.GenerateLegalMovesInto(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	key := w.pos.Hash
	if w.pc != nil {
		if n, ok := w.pc.Probe(key, depth); ok {
			return n
		}
	}

	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		undo := w.pos.MakeMove(m)
		nodes += w.perft(depth - 1)
		w.pos.UnmakeMove(m, undo)
	}

	if w.pc != nil && !w.ctl.stopped() {
		w.pc.Store(key, depth, nodes)
	}
	return nodes
}

// Minimax is a full-width negamax with no pruning and no table. It scores
// the tree the same way the alpha-beta search does and exists to check it.
func Minimax(pos *board.Position, depth int, eval Evaluator) int {
	p := *pos
	return minimax(&p, depth, 0, eval)
}

func minimax(pos *board.Position, depth, ply int, eval Evaluator) int {
	ml := pos.GenerateLegalMoves()
	if ml.Len() == 0 {
		if pos.InCheck() {
			return -MateScore + ply
		}
		return DrawScore
	}
	if depth <= 0 {
		return eval.Evaluate(pos)
	}
	best := -Infinity
	for _, m := range ml.Slice() {
		undo := pos.MakeMove(m)
		score := -minimax(pos, depth-1, ply+1, eval)
		pos.UnmakeMove(m, undo)
		if score > best {
			best = score
		}
	}
	return best
}
