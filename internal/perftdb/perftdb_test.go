package perftdb

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTest(t)

	_, ok, err := s.Get(startFEN, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	rec := &Record{
		FEN:    startFEN,
		Depth:  1,
		Total:  2,
		Divide: []Entry{{"e2e4", 1}, {"d2d4", 1}},
		Source: SourceReference,
	}
	require.NoError(t, s.Put(rec))

	// Move clocks are not part of the key.
	got, ok, err := s.Get("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 5 30", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -", got.FEN)
	assert.EqualValues(t, 2, got.Total)
	assert.Equal(t, SourceReference, got.Source)
	assert.Equal(t, map[string]uint64{"e2e4": 1, "d2d4": 1}, got.Counts())
}

func TestDepthsAndDelete(t *testing.T) {
	s := openTest(t)
	for _, d := range []int{3, 1, 12} {
		require.NoError(t, s.Put(&Record{FEN: startFEN, Depth: d}))
	}
	require.NoError(t, s.Put(&Record{FEN: "8/8/8/8/8/8/8/K6k w - - 0 1", Depth: 2}))

	depths, err := s.Depths(startFEN)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 12}, depths)

	require.NoError(t, s.Delete(startFEN, 3))
	depths, err = s.Depths(startFEN)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 12}, depths)
}

func TestFromEngineResult(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.HashMB = 1
	cfg.PerftHashMB = 1
	res, err := engine.NewEngine(cfg).Perft(context.Background(), board.NewPosition(), 2)
	require.NoError(t, err)

	s := openTest(t)
	require.NoError(t, s.Put(FromResult(startFEN, res)))

	got, ok, err := s.Get(startFEN, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 400, got.Total)
	assert.Len(t, got.Divide, 20)
	assert.Equal(t, "a2a3", got.Divide[0].Move)
	assert.EqualValues(t, 20, got.Counts()["g1f3"])
	assert.Equal(t, SourceEngine, got.Source)
}

func TestOpenOnDisk(t *testing.T) {
	dir, err := os.MkdirTemp("", "chesscore-perftdb-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(&Record{FEN: startFEN, Depth: 4, Total: 197281}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get(startFEN, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 197281, got.Total)
}

func TestDataDir(t *testing.T) {
	tmp, err := os.MkdirTemp("", "chesscore-data-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmp)
	t.Setenv("XDG_DATA_HOME", tmp)
	t.Setenv("HOME", tmp)
	t.Setenv("APPDATA", tmp)

	dir, err := DefaultDir()
	require.NoError(t, err)
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}
