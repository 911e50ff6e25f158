// Command perftcheck compares the engine's perft divide against an
// independent move generator on a list of positions and reports every root
// move whose count differs. Reference counts are cached in a badger store.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/perftdb"
	"github.com/hailam/chesscore/internal/refcheck"
)

var defaultPositions = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
}

var (
	minDepth = flag.Int("min-depth", 1, "first depth to check")
	maxDepth = flag.Int("max-depth", 3, "last depth to check")
	threads  = flag.Int("threads", 4, "engine threads and reference workers")
	dbDir    = flag.String("db", "", "reference cache directory (default: user data dir)")
	noCache  = flag.Bool("no-cache", false, "do not read or write the reference cache")
	file     = flag.String("positions", "", "file with one FEN per line (default: built-in list)")
	verbose  = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fens := defaultPositions
	if *file != "" {
		var err error
		if fens, err = readPositions(*file); err != nil {
			log.Error().Err(err).Msg("reading positions")
			return 2
		}
	}

	var store *perftdb.Store
	if !*noCache {
		var err error
		if store, err = perftdb.Open(*dbDir); err != nil {
			log.Error().Err(err).Msg("opening reference cache")
			return 2
		}
		defer store.Close()
	}

	cfg := engine.DefaultConfig()
	cfg.Threads = *threads
	cfg.Logger = log
	c := &checker{
		eng:   engine.NewEngine(cfg),
		store: store,
		log:   log,
	}

	failed := 0
	for _, fen := range fens {
		for depth := *minDepth; depth <= *maxDepth; depth++ {
			ok, err := c.check(ctx, fen, depth)
			if err != nil {
				log.Error().Err(err).Str("fen", fen).Int("depth", depth).Msg("check failed")
				return 2
			}
			if !ok {
				failed++
			}
		}
	}
	if failed > 0 {
		fmt.Printf("%d mismatching runs\n", failed)
		return 1
	}
	fmt.Println("all counts match")
	return 0
}

type checker struct {
	eng   *engine.Engine
	store *perftdb.Store
	log   zerolog.Logger
}

func (c *checker) check(ctx context.Context, fen string, depth int) (bool, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return false, err
	}
	res, err := c.eng.Perft(ctx, pos, depth)
	if err != nil {
		return false, err
	}
	got := perftdb.FromResult(fen, res).Counts()

	ref, err := c.reference(ctx, fen, depth)
	if err != nil {
		return false, err
	}

	diff := refcheck.Diff(got, ref)
	c.log.Info().
		Str("fen", perftdb.NormalizeFEN(fen)).
		Int("depth", depth).
		Uint64("nodes", res.Total).
		Dur("elapsed", res.Elapsed).
		Int("mismatches", len(diff)).
		Msg("checked")
	for _, m := range diff {
		switch m.Missing {
		case "":
			fmt.Printf("%s depth %d: %s engine %d reference %d\n", fen, depth, m.Move, m.Engine, m.Reference)
		default:
			fmt.Printf("%s depth %d: %s missing from %s\n", fen, depth, m.Move, m.Missing)
		}
	}
	return len(diff) == 0, nil
}

// reference returns the cached reference divide, computing and storing it
// on a miss.
func (c *checker) reference(ctx context.Context, fen string, depth int) (map[string]uint64, error) {
	if c.store != nil {
		rec, ok, err := c.store.Get(fen, depth)
		if err != nil {
			return nil, err
		}
		if ok {
			c.log.Debug().Int("depth", depth).Msg("reference cache hit")
			return rec.Counts(), nil
		}
	}

	start := time.Now()
	counts, err := refcheck.Divide(ctx, fen, depth, *threads)
	if err != nil {
		return nil, err
	}
	if c.store == nil {
		return counts, nil
	}

	rec := &perftdb.Record{
		FEN:      fen,
		Depth:    depth,
		Source:   perftdb.SourceReference,
		Elapsed:  time.Since(start),
		Recorded: time.Now(),
	}
	for mv, n := range counts {
		rec.Divide = append(rec.Divide, perftdb.Entry{Move: mv, Nodes: n})
		rec.Total += n
	}
	if err := c.store.Put(rec); err != nil {
		return nil, errors.WithMessage(err, "caching reference")
	}
	return counts, nil
}

func readPositions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open positions")
	}
	defer f.Close()

	var fens []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fens = append(fens, line)
	}
	return fens, errors.Wrap(sc.Err(), "read positions")
}
