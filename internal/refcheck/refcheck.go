// Package refcheck cross-checks perft counts against an independent move
// generator (github.com/notnil/chess). It is slow and meant for shallow
// depths in tests and the perftcheck tool.
package refcheck

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/notnil/chess"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Divide counts leaves below each root move of fen to depth using the
// reference generator. Moves are keyed by their UCI string.
func Divide(ctx context.Context, fen string, depth, parallel int) (map[string]uint64, error) {
	if depth < 1 {
		return nil, errors.Errorf("refcheck: depth %d must be positive", depth)
	}
	pos, err := parseFEN(fen)
	if err != nil {
		return nil, err
	}

	moves := pos.ValidMoves()
	counts := make([]uint64, len(moves))
	var stopped atomic.Bool

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, m := range moves {
		i, m := i, m
		g.Go(func() error {
			counts[i] = perft(ctx, &stopped, pos.Update(m), depth-1)
			if stopped.Load() {
				return errors.Wrap(ctx.Err(), "refcheck: canceled")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]uint64, len(moves))
	notation := chess.UCINotation{}
	for i, m := range moves {
		out[notation.Encode(pos, m)] = counts[i]
	}
	return out, nil
}

func perft(ctx context.Context, stopped *atomic.Bool, pos *chess.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	if stopped.Load() {
		return 0
	}
	if ctx.Err() != nil {
		stopped.Store(true)
		return 0
	}
	moves := pos.ValidMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var n uint64
	for _, m := range moves {
		n += perft(ctx, stopped, pos.Update(m), depth-1)
	}
	return n
}

// parseFEN accepts four-field FENs by supplying default move clocks.
func parseFEN(fen string) (*chess.Position, error) {
	fields := strings.Fields(fen)
	switch len(fields) {
	case 4:
		fields = append(fields, "0", "1")
	case 5:
		fields = append(fields, "1")
	}
	if len(fields) == 6 && fields[5] == "0" {
		fields[5] = "1"
	}
	opt, err := chess.FEN(strings.Join(fields, " "))
	if err != nil {
		return nil, errors.Wrapf(err, "refcheck: bad fen %q", fen)
	}
	return chess.NewGame(opt).Position(), nil
}

// Mismatch is a root move whose counts disagree. A move missing on one
// side has Missing set to that side's name.
type Mismatch struct {
	Move      string
	Engine    uint64
	Reference uint64
	Missing   string
}

// Diff compares two divides and returns the disagreeing moves sorted by
// move string.
func Diff(engine, reference map[string]uint64) []Mismatch {
	var out []Mismatch
	for mv, n := range engine {
		ref, ok := reference[mv]
		switch {
		case !ok:
			out = append(out, Mismatch{Move: mv, Engine: n, Missing: "reference"})
		case ref != n:
			out = append(out, Mismatch{Move: mv, Engine: n, Reference: ref})
		}
	}
	for mv, ref := range reference {
		if _, ok := engine[mv]; !ok {
			out = append(out, Mismatch{Move: mv, Reference: ref, Missing: "engine"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Move < out[j].Move })
	return out
}
