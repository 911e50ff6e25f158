package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// ClockLimits is a game clock: remaining time and increment per color.
type ClockLimits struct {
	Time      [2]time.Duration // wtime, btime
	Inc       [2]time.Duration // winc, binc
	MovesToGo int              // moves until next time control (0 = sudden death)
}

// Limits bounds one search. Zero fields are unlimited; with no field set
// the engine searches to its default depth.
type Limits struct {
	Depth    int
	Nodes    uint64
	MoveTime time.Duration
	Infinite bool
	Clock    ClockLimits
}

func (l Limits) hasClock() bool {
	return l.Clock.Time[board.White] > 0 || l.Clock.Time[board.Black] > 0
}

func (l Limits) unbounded() bool {
	return l.Depth == 0 && l.Nodes == 0 && l.MoveTime == 0 && !l.Infinite && !l.hasClock()
}

// TimeManager turns Limits into a soft target, checked between iterations,
// and a hard deadline enforced inside the search.
type TimeManager struct {
	optimumTime time.Duration // no new iteration after this
	maximumTime time.Duration // hard stop, 0 = none
	startTime   time.Time
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init sets up the allocation for a new search. ply is the game ply.
func (tm *TimeManager) Init(limits Limits, us board.Color, ply int) {
	tm.startTime = time.Now()
	tm.optimumTime, tm.maximumTime = 0, 0

	if limits.Infinite {
		return
	}

	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}

	if limits.Clock.Time[us] == 0 {
		return
	}

	timeLeft := limits.Clock.Time[us]
	inc := limits.Clock.Inc[us]

	mtg := limits.Clock.MovesToGo
	if mtg == 0 {
		// Sudden death: expect fewer moves as the game goes on.
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}

	base := timeLeft/time.Duration(mtg) + inc*9/10
	tm.optimumTime = base
	if ply < 8 {
		tm.optimumTime = base * 85 / 100
	}

	tm.maximumTime = tm.optimumTime * 5
	if limit := timeLeft * 8 / 10; tm.maximumTime > limit {
		tm.maximumTime = limit
	}

	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < tm.optimumTime {
		tm.maximumTime = tm.optimumTime
	}
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the soft target, 0 when there is none.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the hard limit, 0 when there is none.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// Deadline is the instant the search must stop, zero without a time limit.
func (tm *TimeManager) Deadline() time.Time {
	if tm.maximumTime == 0 {
		return time.Time{}
	}
	return tm.startTime.Add(tm.maximumTime)
}

// PastOptimum reports whether half the target is used up, at which point
// no further iteration is started.
func (tm *TimeManager) PastOptimum() bool {
	if tm.optimumTime == 0 {
		return false
	}
	return tm.Elapsed() >= tm.optimumTime/2
}
