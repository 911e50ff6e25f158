package engine

import (
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
)

// rootMove is one root job. Results land at the move's index, so merging
// does not depend on which worker finished first.
type rootMove struct {
	move  board.Move
	score int
	pv    []board.Move
	nodes uint64
	done  bool
}

func newRootMoves(pos *board.Position) []rootMove {
	ml := pos.GenerateLegalMoves()
	roots := make([]rootMove, ml.Len())
	for i, m := range ml.Slice() {
		roots[i] = rootMove{move: m}
	}
	return roots
}

// runRoots hands root indices to the workers from a shared cursor and
// calls job for each until the list is exhausted or the request stops.
// It returns once every worker has finished.
func (e *Engine) runRoots(pos *board.Position, n int, job func(w *Worker, i int) bool) {
	workers := e.workers
	if len(workers) > n {
		workers = workers[:n]
	}

	var next atomic.Int64
	var g errgroup.Group
	for _, w := range workers {
		w := w
		w.setPosition(pos)
		g.Go(func() error {
			defer w.flush()
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				if !job(w, i) {
					w.log.Trace().Int("root", i).Msg("root job interrupted")
					return nil
				}
			}
		})
	}
	// Jobs never fail; the group is only a join point.
	_ = g.Wait()
}

// searchIteration scores every root move at depth. It reports false when
// any root move was left unfinished, in which case the iteration must be
// discarded as a whole. A budget that trips after the last subtree is
// done does not void the iteration.
func (e *Engine) searchIteration(pos *board.Position, roots []rootMove, depth int) bool {
	for i := range roots {
		roots[i].done = false
	}
	e.runRoots(pos, len(roots), func(w *Worker, i int) bool {
		score, pv, ok := w.searchRoot(roots[i].move, depth)
		if !ok {
			return false
		}
		roots[i].score, roots[i].pv, roots[i].done = score, pv, true
		return true
	})
	for i := range roots {
		if !roots[i].done {
			return false
		}
	}
	return true
}

// bestRoot returns the index of the highest score, the lowest index on ties.
func bestRoot(roots []rootMove) int {
	best := 0
	for i := 1; i < len(roots); i++ {
		if roots[i].score > roots[best].score {
			best = i
		}
	}
	return best
}

// reorderRoots puts the best moves of the last iteration first. The sort
// is stable so equal scores keep their relative order.
func reorderRoots(roots []rootMove) {
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].score > roots[j].score
	})
}

// perftRoots counts each root subtree. It reports false when the request
// was stopped before every subtree finished.
func (e *Engine) perftRoots(pos *board.Position, roots []rootMove, depth int) bool {
	e.runRoots(pos, len(roots), func(w *Worker, i int) bool {
		m := roots[i].move
		undo := w.pos.MakeMove(m)
		n := w.perft(depth - 1)
		w.pos.UnmakeMove(m, undo)
		if w.ctl.stopped() {
			return false
		}
		roots[i].nodes, roots[i].done = n, true
		return true
	})
	for i := range roots {
		if !roots[i].done {
			return false
		}
	}
	return true
}
