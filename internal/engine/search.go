package engine

import (
	"sync/atomic"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	DrawScore = 0
	MaxPly    = 128
	MaxDepth  = 64
)

// IsMateScore reports whether score encodes a forced mate for either side.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateIn converts a mate score to moves to mate, negative when the side to
// move is being mated. It returns 0 for ordinary scores.
func MateIn(score int) int {
	switch {
	case score > MateScore-MaxPly:
		return (MateScore - score + 1) / 2
	case score < -MateScore+MaxPly:
		return -(MateScore + score) / 2
	}
	return 0
}

// pollInterval is how many nodes a worker visits between flushes of its
// local count into the shared counter.
const pollInterval = 1024

// control is the budget shared by every worker of one request. Workers
// check stop at every node and flush node counts periodically; a flush
// that crosses the node budget or the deadline trips stop.
type control struct {
	stop     atomic.Bool
	nodes    atomic.Uint64
	maxNodes uint64
	deadline time.Time
	interval uint64
}

func newControl(maxNodes uint64, deadline time.Time) *control {
	c := &control{maxNodes: maxNodes, deadline: deadline, interval: pollInterval}
	// Small node budgets are enforced exactly.
	if maxNodes > 0 && maxNodes < 64*pollInterval {
		c.interval = 1
	}
	return c
}

func (c *control) stopped() bool { return c.stop.Load() }

func (c *control) flush(n uint64) {
	if n == 0 {
		return
	}
	total := c.nodes.Add(n)
	if c.maxNodes > 0 && total >= c.maxNodes {
		c.stop.Store(true)
	}
	if !c.deadline.IsZero() && !time.Now().Before(c.deadline) {
		c.stop.Store(true)
	}
}

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) clear(ply int) {
	pv.length[ply] = ply
}

// update makes m followed by the child's line the variation at ply.
func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	next := ply + 1
	if next >= MaxPly {
		pv.length[ply] = next
		return
	}
	copy(pv.moves[ply][next:pv.length[next]], pv.moves[next][next:pv.length[next]])
	pv.length[ply] = pv.length[next]
}

// line returns a copy of the variation starting at ply.
func (pv *PVTable) line(ply int) []board.Move {
	n := pv.length[ply] - ply
	if n <= 0 {
		return nil
	}
	out := make([]board.Move, n)
	copy(out, pv.moves[ply][ply:pv.length[ply]])
	return out
}
