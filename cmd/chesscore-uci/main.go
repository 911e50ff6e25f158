package main

import (
	"flag"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	threads    = flag.Int("threads", envInt("CHESSCORE_THREADS", 1), "search threads")
	hashMB     = flag.Int("hash", envInt("CHESSCORE_HASH", 64), "transposition table size in MB")
	perftMB    = flag.Int("perft-hash", 16, "perft cache size in MB, 0 disables it")
	logLevel   = flag.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
)

func envInt(name string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("level", *logLevel).Msg("unknown log level, using warn")
	}

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	cfg := engine.DefaultConfig()
	cfg.Threads = *threads
	cfg.HashMB = *hashMB
	cfg.PerftHashMB = *perftMB
	cfg.Logger = log
	eng := engine.NewEngine(cfg)

	if err := uci.New(eng, os.Stdout, log).Run(os.Stdin); err != nil {
		log.Error().Err(err).Msg("uci loop ended")
	}
}
