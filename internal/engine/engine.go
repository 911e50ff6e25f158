package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

// ErrCanceled is returned by Perft when the request is stopped before
// every subtree was counted.
var ErrCanceled = errors.New("engine: request canceled")

// Config holds the engine's startup parameters.
type Config struct {
	Threads      int // worker pool size
	HashMB       int // transposition table size
	PerftHashMB  int // perft cache size, 0 disables it
	DefaultDepth int // depth used when a search has no limit at all

	// DeeperHits allows cutoffs from entries searched deeper than required.
	// Results then depend on what the table holds.
	DeeperHits bool

	Evaluator Evaluator
	Logger    zerolog.Logger
}

// DefaultConfig returns a single-threaded engine with a 64MB table and the
// material evaluator.
func DefaultConfig() Config {
	return Config{
		Threads:      1,
		HashMB:       64,
		PerftHashMB:  16,
		DefaultDepth: 6,
		Evaluator:    Material{},
		Logger:       zerolog.Nop(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Threads < 1 {
		c.Threads = def.Threads
	}
	if c.HashMB < 1 {
		c.HashMB = def.HashMB
	}
	if c.PerftHashMB < 0 {
		c.PerftHashMB = 0
	}
	if c.DefaultDepth < 1 {
		c.DefaultDepth = def.DefaultDepth
	}
	if c.Evaluator == nil {
		c.Evaluator = def.Evaluator
	}
	return c
}

// Info is reported after every completed iteration.
type Info struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// Stats describes the work done by one request.
type Stats struct {
	Nodes    uint64
	TTProbes uint64
	TTHits   uint64
	Cutoffs  uint64
	Depth    int // last completed iteration
	Elapsed  time.Duration
}

// NPS returns nodes per second.
func (s Stats) NPS() uint64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return uint64(float64(s.Nodes) / s.Elapsed.Seconds())
}

// Result is the outcome of a search. Completed is false only when no
// iteration finished within the budget; Move is then the first legal move
// and Score the static evaluation.
type Result struct {
	Move      board.Move
	Score     int
	Depth     int
	PV        []board.Move
	Stats     Stats
	Completed bool
}

// DivideEntry is the leaf count below one root move.
type DivideEntry struct {
	Move  board.Move
	Nodes uint64
}

// PerftResult holds a perft total and its per-root-move breakdown in
// generation order.
type PerftResult struct {
	Depth   int
	Total   uint64
	Divide  []DivideEntry
	Elapsed time.Duration
}

// WriteTo prints the breakdown in the format perft diffing tools expect.
func (r PerftResult) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, d := range r.Divide {
		n, err := fmt.Fprintf(w, "%s: %d\n", d.Move, d.Nodes)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	n, err := fmt.Fprintf(w, "\nNodes searched : %d\n\n", r.Total)
	written += int64(n)
	return written, err
}

// Engine owns the shared table, the perft cache and the worker pool. One
// request runs at a time; Cancel may be called from any goroutine.
type Engine struct {
	cfg Config

	mu         sync.Mutex // serializes requests and reconfiguration
	tt         *TranspositionTable
	perftCache *PerftCache
	workers    []*Worker
	tm         *TimeManager

	ctlMu   sync.Mutex
	current *control

	log zerolog.Logger

	// Callbacks
	OnInfo func(Info)
}

// NewEngine creates an engine. Zero fields of cfg take their defaults.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg: cfg,
		tt:  NewTranspositionTable(cfg.HashMB),
		tm:  NewTimeManager(),
		log: cfg.Logger.With().Str("component", "engine").Logger(),
	}
	if cfg.PerftHashMB > 0 {
		e.perftCache = NewPerftCache(cfg.PerftHashMB)
	}
	e.buildWorkers()
	e.log.Debug().
		Int("threads", cfg.Threads).
		Int("hash_mb", cfg.HashMB).
		Uint64("tt_slots", e.tt.Size()).
		Msg("engine ready")
	return e
}

func (e *Engine) buildWorkers() {
	e.workers = make([]*Worker, e.cfg.Threads)
	for i := range e.workers {
		e.workers[i] = NewWorker(i, e.tt, e.perftCache, e.cfg.Evaluator, e.log)
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetThreads resizes the worker pool.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Threads = n
	e.buildWorkers()
}

// SetHashSize reallocates the transposition table, dropping its contents.
func (e *Engine) SetHashSize(mb int) {
	if mb < 1 {
		mb = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.HashMB = mb
	e.tt = NewTranspositionTable(mb)
	e.buildWorkers()
}

// Clear empties the transposition table, the perft cache and the
// ordering heuristics.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear()
	if e.perftCache != nil {
		e.perftCache.Clear()
	}
	e.buildWorkers()
}

// HashFull returns the permille of the table used by the current generation.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Evaluate returns the static evaluation of pos for the side to move.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.cfg.Evaluator.Evaluate(pos)
}

// Cancel stops the running request, if any. Search returns its last
// completed result; Perft returns ErrCanceled.
func (e *Engine) Cancel() {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()
	if e.current != nil {
		e.current.stop.Store(true)
	}
}

// begin publishes ctl for Cancel and ties it to ctx. The returned function
// undoes both.
func (e *Engine) begin(ctx context.Context, ctl *control) func() {
	if ctx == nil {
		ctx = context.Background()
	}
	e.ctlMu.Lock()
	e.current = ctl
	e.ctlMu.Unlock()

	if ctx.Err() != nil {
		ctl.stop.Store(true)
	}
	unhook := context.AfterFunc(ctx, func() { ctl.stop.Store(true) })
	for _, w := range e.workers {
		w.Reset(ctl)
		w.deeperHits = e.cfg.DeeperHits
	}
	return func() {
		unhook()
		e.ctlMu.Lock()
		e.current = nil
		e.ctlMu.Unlock()
	}
}

func checkPosition(pos *board.Position) error {
	if pos == nil {
		return errors.New("engine: nil position")
	}
	for c := board.White; c <= board.Black; c++ {
		if pos.Pieces[c][board.King].PopCount() != 1 {
			return errors.Wrapf(board.ErrIllegalPosition, "engine: %s needs exactly one king", c)
		}
	}
	return nil
}

// Search looks for the best move in pos within limits. Running out of
// budget is not an error: the last completed iteration is returned, or the
// first legal move if none completed. With no legal moves Move is NoMove
// and Score the mate or draw value.
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits Limits) (Result, error) {
	if err := checkPosition(pos); err != nil {
		return Result{}, err
	}
	if limits.Depth < 0 || limits.MoveTime < 0 {
		return Result{}, errors.Errorf("engine: negative search limit %+v", limits)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if limits.unbounded() {
		limits.Depth = e.cfg.DefaultDepth
	}
	maxDepth := MaxDepth
	if limits.Depth > 0 && limits.Depth < MaxDepth {
		maxDepth = limits.Depth
	}

	ply := (pos.FullMoveNumber-1)*2 + int(pos.SideToMove)
	e.tm.Init(limits, pos.SideToMove, ply)
	ctl := newControl(limits.Nodes, e.tm.Deadline())
	defer e.begin(ctx, ctl)()
	e.tt.NewSearch()

	start := time.Now()
	var res Result
	roots := newRootMoves(pos)
	if len(roots) == 0 {
		res.Completed = true
		res.Score = DrawScore
		if pos.InCheck() {
			res.Score = -MateScore
		}
		res.Stats = e.stats(ctl, 0, time.Since(start))
		return res, nil
	}
	res.Move = roots[0].move
	res.Score = e.cfg.Evaluator.Evaluate(pos)

	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && e.tm.PastOptimum() {
			break
		}
		if !e.searchIteration(pos, roots, depth) {
			e.log.Debug().Int("depth", depth).Msg("iteration interrupted, discarded")
			break
		}

		best := roots[bestRoot(roots)]
		res.Move, res.Score, res.PV = best.move, best.score, best.pv
		res.Depth, res.Completed = depth, true

		nodes := ctl.nodes.Load()
		e.log.Debug().
			Int("depth", depth).
			Int("score", res.Score).
			Uint64("nodes", nodes).
			Str("move", res.Move.String()).
			Strs("pv", board.MovesToSAN(pos, res.PV)).
			Msg("iteration complete")
		if e.OnInfo != nil {
			e.OnInfo(Info{
				Depth:    depth,
				Score:    res.Score,
				Nodes:    nodes,
				Time:     time.Since(start),
				PV:       res.PV,
				HashFull: e.tt.HashFull(),
			})
		}

		if limits.Depth == 0 && !limits.Infinite && IsMateScore(res.Score) {
			break
		}
		reorderRoots(roots)
	}

	res.Stats = e.stats(ctl, res.Depth, time.Since(start))
	e.log.Debug().
		Int("depth", res.Depth).
		Uint64("nodes", res.Stats.Nodes).
		Float64("tt_hit_rate", e.tt.HitRate()).
		Msg("search finished")
	return res, nil
}

func (e *Engine) stats(ctl *control, depth int, elapsed time.Duration) Stats {
	s := Stats{Nodes: ctl.nodes.Load(), Depth: depth, Elapsed: elapsed}
	for _, w := range e.workers {
		s.TTProbes += w.probes
		s.TTHits += w.hits
		s.Cutoffs += w.cutoffs
	}
	return s
}

// Perft counts the leaves of the legal move tree below pos to depth,
// split by root move. Unlike Search, an interrupted perft is an error.
func (e *Engine) Perft(ctx context.Context, pos *board.Position, depth int) (PerftResult, error) {
	if err := checkPosition(pos); err != nil {
		return PerftResult{}, err
	}
	if depth < 0 {
		return PerftResult{}, errors.Errorf("engine: negative perft depth %d", depth)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ctl := newControl(0, time.Time{})
	defer e.begin(ctx, ctl)()

	start := time.Now()
	res := PerftResult{Depth: depth}
	if depth == 0 {
		res.Total = 1
		return res, nil
	}

	roots := newRootMoves(pos)
	if !e.perftRoots(pos, roots, depth) {
		if ctx != nil && ctx.Err() != nil {
			return PerftResult{}, errors.Wrapf(ErrCanceled, "%v", ctx.Err())
		}
		return PerftResult{}, ErrCanceled
	}

	res.Divide = make([]DivideEntry, len(roots))
	for i, r := range roots {
		res.Divide[i] = DivideEntry{Move: r.move, Nodes: r.nodes}
		res.Total += r.nodes
	}
	res.Elapsed = time.Since(start)
	e.log.Debug().
		Int("depth", depth).
		Uint64("nodes", res.Total).
		Dur("elapsed", res.Elapsed).
		Msg("perft complete")
	return res, nil
}
