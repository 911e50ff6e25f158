// Package uci speaks the Universal Chess Interface over a line-oriented
// reader and writer and drives an engine.Engine.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

const (
	engineName   = "chesscore"
	engineAuthor = "the chesscore authors"

	maxHashMB  = 4096
	maxThreads = 256
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	outMu sync.Mutex
	out   io.Writer

	log zerolog.Logger

	// Search state. Only the Run goroutine touches these.
	cancel     context.CancelFunc
	searchDone chan struct{}
}

// New creates a protocol handler writing responses to out.
func New(eng *engine.Engine, out io.Writer, log zerolog.Logger) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		out:      out,
		log:      log.With().Str("component", "uci").Logger(),
	}
}

// Run reads commands from in until "quit" or end of input. At end of input
// it waits for a running search to finish; "quit" stops it first.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]
		u.log.Trace().Str("cmd", line).Msg("received")

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleStop()
			u.engine.Clear()
			u.position = board.NewPosition()
		case "position":
			u.handleStop()
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleStop()
			u.handleSetOption(args)
		case "debug":
			u.handleStop()
			board.DebugMoveValidation = len(args) > 0 && args[0] == "on"
		// Debug commands
		case "d", "printboard":
			u.printBoard()
		case "perft":
			u.handleStop()
			u.startPerft(args)
		default:
			u.log.Warn().Str("cmd", cmd).Msg("unknown command")
			u.printf("info string unknown command %s\n", cmd)
		}
	}
	u.wait()
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "uci: reading input")
	}
	return nil
}

func (u *UCI) println(s string) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintln(u.out, s)
}

func (u *UCI) printf(format string, args ...interface{}) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

// printBoard dumps the board and its legal moves in SAN.
func (u *UCI) printBoard() {
	legal := u.position.GenerateLegalMoves().Slice()
	san := make([]string, len(legal))
	for i, m := range legal {
		san[i] = m.ToSAN(u.position)
	}
	u.println(u.position.String())
	u.printf("Legal moves (%d): %s\n", len(san), strings.Join(san, " "))
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	cfg := u.engine.Config()
	u.printf("id name %s\n", engineName)
	u.printf("id author %s\n", engineAuthor)
	u.println("")
	u.printf("option name Hash type spin default %d min 1 max %d\n", cfg.HashMB, maxHashMB)
	u.printf("option name Threads type spin default %d min 1 max %d\n", cfg.Threads, maxThreads)
	u.println("option name Clear Hash type button")
	u.println("uciok")
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// A bad FEN or move leaves the previous position in place.
func (u *UCI) handlePosition(args []string) {
	pos, err := parsePosition(args)
	if err != nil {
		u.log.Warn().Err(err).Strs("args", args).Msg("position rejected")
		u.printf("info string %v\n", err)
		return
	}
	u.position = pos
}

func parsePosition(args []string) (*board.Position, error) {
	if len(args) == 0 {
		return nil, errors.New("position: missing startpos or fen")
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			return nil, errors.WithMessage(err, "position")
		}
	default:
		return nil, errors.Errorf("position: unexpected %q", args[0])
	}

	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			m, err := board.ParseMove(s, pos)
			if err != nil {
				return nil, errors.WithMessagef(err, "position: after %s", pos.ToFEN())
			}
			pos.MakeMove(m)
		}
	}
	return pos, nil
}

// goOptions holds parsed "go" command options.
type goOptions struct {
	limits   engine.Limits
	perft    int
	hasPerft bool
}

func parseGoOptions(args []string) (goOptions, error) {
	var opts goOptions
	ms := func(s string) (time.Duration, error) {
		n, err := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond, err
	}

	for i := 0; i < len(args); i++ {
		key := args[i]
		if key == "infinite" {
			opts.limits.Infinite = true
			continue
		}
		if key == "ponder" {
			continue
		}
		if i+1 >= len(args) {
			return opts, errors.Errorf("go: %s needs a value", key)
		}
		val := args[i+1]
		i++

		var err error
		switch key {
		case "perft":
			opts.perft, err = strconv.Atoi(val)
			opts.hasPerft = true
		case "depth":
			opts.limits.Depth, err = strconv.Atoi(val)
		case "nodes":
			opts.limits.Nodes, err = strconv.ParseUint(val, 10, 64)
		case "movetime":
			opts.limits.MoveTime, err = ms(val)
		case "wtime":
			opts.limits.Clock.Time[board.White], err = ms(val)
		case "btime":
			opts.limits.Clock.Time[board.Black], err = ms(val)
		case "winc":
			opts.limits.Clock.Inc[board.White], err = ms(val)
		case "binc":
			opts.limits.Clock.Inc[board.Black], err = ms(val)
		case "movestogo":
			opts.limits.Clock.MovesToGo, err = strconv.Atoi(val)
		default:
			i--
			continue
		}
		if err != nil {
			return opts, errors.Wrapf(err, "go: bad %s", key)
		}
		if strings.HasPrefix(val, "-") {
			switch key {
			case "perft", "depth", "nodes", "movetime":
				return opts, errors.Errorf("go: negative %s %s", key, val)
			}
		}
	}
	return opts, nil
}

// handleGo starts a search or perft in the background.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	opts, err := parseGoOptions(args)
	if err != nil {
		u.log.Warn().Err(err).Msg("go rejected")
		u.printf("info string %v\n", err)
		return
	}
	if opts.hasPerft {
		u.startPerft([]string{strconv.Itoa(opts.perft)})
		return
	}

	pos := u.position.Copy()
	u.engine.OnInfo = func(info engine.Info) {
		u.sendInfo(pos, info)
	}
	u.start(func(ctx context.Context) {
		res, err := u.engine.Search(ctx, pos, opts.limits)
		if err != nil {
			u.log.Error().Err(err).Msg("search failed")
			u.println("bestmove 0000")
			return
		}
		u.log.Debug().
			Str("move", res.Move.String()).
			Int("score", res.Score).
			Int("depth", res.Depth).
			Uint64("nodes", res.Stats.Nodes).
			Uint64("nps", res.Stats.NPS()).
			Bool("completed", res.Completed).
			Msg("search done")
		u.printf("bestmove %s\n", res.Move)
	})
}

// startPerft runs "perft N" or "go perft N" and prints the divide.
func (u *UCI) startPerft(args []string) {
	depth := 5
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 0 {
			u.printf("info string bad perft depth %q\n", args[0])
			return
		}
		depth = d
	}

	pos := u.position.Copy()
	u.start(func(ctx context.Context) {
		res, err := u.engine.Perft(ctx, pos, depth)
		if err != nil {
			u.log.Warn().Err(err).Int("depth", depth).Msg("perft aborted")
			u.printf("info string perft aborted: %v\n", err)
			return
		}
		u.outMu.Lock()
		_, err = res.WriteTo(u.out)
		u.outMu.Unlock()
		if err != nil {
			u.log.Error().Err(err).Msg("writing perft result")
		}
		u.log.Debug().
			Int("depth", depth).
			Uint64("nodes", res.Total).
			Dur("elapsed", res.Elapsed).
			Msg("perft done")
	})
}

// start runs job in the background with a context that "stop" cancels.
func (u *UCI) start(job func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	u.cancel, u.searchDone = cancel, done
	go func() {
		defer close(done)
		defer cancel()
		job(ctx)
	}()
}

// handleStop stops the current search and waits for its output.
func (u *UCI) handleStop() {
	if u.cancel != nil {
		u.cancel()
	}
	u.wait()
}

func (u *UCI) wait() {
	if u.searchDone != nil {
		<-u.searchDone
	}
	u.cancel, u.searchDone = nil, nil
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(root *board.Position, info engine.Info) {
	var parts []string
	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	parts = append(parts, FormatScore(info.Score))
	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))
	if info.Time > 0 {
		parts = append(parts, fmt.Sprintf("nps %d", uint64(float64(info.Nodes)/info.Time.Seconds())))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	// Stop the PV at the first move that is not legal, which only happens
	// after a key collision in the table.
	if len(info.PV) > 0 {
		pv := make([]string, 0, len(info.PV))
		p := *root
		for _, m := range info.PV {
			if !p.GenerateLegalMoves().Contains(m) {
				break
			}
			pv = append(pv, m.String())
			p.MakeMove(m)
		}
		if len(pv) > 0 {
			parts = append(parts, "pv "+strings.Join(pv, " "))
		}
	}

	u.printf("info %s\n", strings.Join(parts, " "))
}

// FormatScore renders a score as "score cp N" or "score mate N".
func FormatScore(score int) string {
	if engine.IsMateScore(score) {
		return fmt.Sprintf("score mate %d", engine.MateIn(score))
	}
	return fmt.Sprintf("score cp %d", score)
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}

	key := strings.ToLower(strings.Join(name, " "))
	val := strings.Join(value, " ")
	switch key {
	case "hash":
		mb, err := strconv.Atoi(val)
		if err != nil || mb < 1 || mb > maxHashMB {
			u.printf("info string bad Hash value %q\n", val)
			return
		}
		u.engine.SetHashSize(mb)
	case "threads":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > maxThreads {
			u.printf("info string bad Threads value %q\n", val)
			return
		}
		u.engine.SetThreads(n)
	case "clear hash":
		u.engine.Clear()
	default:
		u.log.Warn().Str("option", key).Msg("unknown option")
		u.printf("info string unknown option %s\n", strings.Join(name, " "))
		return
	}
	u.log.Debug().Str("option", key).Str("value", val).Msg("option set")
}
