package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewMove(board.E2, board.E4, board.DoublePush)

	_, ok := tt.Probe(0xABCDEF)
	assert.False(t, ok)

	tt.Store(0xABCDEF, 7, -1234, BoundLower, m)
	e, ok := tt.Probe(0xABCDEF)
	require.True(t, ok)
	assert.Equal(t, 7, e.Depth)
	assert.Equal(t, -1234, e.Score)
	assert.Equal(t, BoundLower, e.Bound)
	assert.Equal(t, m, e.Move)

	// Same index, different key.
	_, ok = tt.Probe(0xABCDEF + tt.Size())
	assert.False(t, ok)
}

func TestTTSizeIsPowerOfTwo(t *testing.T) {
	for _, mb := range []int{1, 3, 16, 100} {
		n := NewTranspositionTable(mb).Size()
		assert.NotZero(t, n)
		assert.Zero(t, n&(n-1), "%d MB gives %d slots", mb, n)
		assert.LessOrEqual(t, n*ttSlotSize, uint64(mb)*1024*1024)
	}
}

func TestTTPromotionMoveFits(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewPromotion(board.G7, board.H8, board.Knight, true)
	tt.Store(42, 3, MateScore-5, BoundExact, m)
	e, ok := tt.Probe(42)
	require.True(t, ok)
	assert.Equal(t, m, e.Move)
	assert.Equal(t, MateScore-5, e.Score)
}

func TestTTReplacement(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(99)
	other := key + tt.Size()

	tt.Store(key, 8, 10, BoundExact, board.NoMove)
	tt.Store(other, 3, 20, BoundExact, board.NoMove)
	e, ok := tt.Probe(key)
	require.True(t, ok, "shallower entry of the same search must not evict")
	assert.Equal(t, 8, e.Depth)

	tt.Store(other, 8, 20, BoundExact, board.NoMove)
	_, ok = tt.Probe(key)
	assert.False(t, ok, "equal depth replaces")

	tt.NewSearch()
	tt.Store(key, 1, 30, BoundUpper, board.NoMove)
	e, ok = tt.Probe(key)
	require.True(t, ok, "entries from an older search are replaced")
	assert.Equal(t, 1, e.Depth)
}

func TestTTSameKeyAlwaysRefreshes(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(42, 6, 50, BoundLower, board.NoMove)
	tt.Store(42, 2, 10, BoundExact, board.NoMove)
	e, ok := tt.Probe(42)
	require.True(t, ok)
	assert.Equal(t, 2, e.Depth)
	assert.Equal(t, BoundExact, e.Bound)
	assert.Equal(t, 10, e.Score)
}

func TestTTHitRate(t *testing.T) {
	tt := NewTranspositionTable(1)
	assert.Zero(t, tt.HitRate())
	tt.Store(9, 1, 0, BoundExact, board.NoMove)
	tt.Probe(9)
	tt.Probe(10)
	assert.InDelta(t, 50.0, tt.HitRate(), 1e-9)
	tt.Clear()
	assert.Zero(t, tt.HitRate())
}

func TestTTClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(5, 1, 1, BoundExact, board.NoMove)
	tt.Clear()
	_, ok := tt.Probe(5)
	assert.False(t, ok)
	assert.Zero(t, tt.HashFull())
}

func TestMateScoreAdjustment(t *testing.T) {
	for _, ply := range []int{0, 1, 7, 40} {
		for _, score := range []int{MateScore - 3, -MateScore + 6, 250, -90} {
			stored := AdjustScoreToTT(score, ply)
			assert.Equal(t, score, AdjustScoreFromTT(stored, ply))
		}
	}
	// A mate found 3 plies below a node at ply 2 is 3 plies from that node.
	assert.Equal(t, MateScore-3, AdjustScoreToTT(MateScore-5, 2))
}

// Writers store entries whose fields are all derived from the key. A
// reader that ever sees fields from two different writes has observed a
// torn record.
func TestTTConcurrentNoTornReads(t *testing.T) {
	tt := NewTranspositionTable(1)
	size := tt.Size()

	const variants = 64
	keyFor := func(i int) uint64 { return uint64(i)*size + 17 } // all in slot 17
	depthFor := func(key uint64) int { return int(key/size) % 60 }
	scoreFor := func(key uint64) int { return int(key/size)*37 - 1000 }
	moveFor := func(key uint64) board.Move {
		i := int(key / size)
		return board.NewMove(board.Square(i%64), board.Square((i*7)%64), board.Quiet)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 20000; n++ {
				key := keyFor((n*13 + g) % variants)
				if n%2 == 0 {
					tt.Store(key, depthFor(key), scoreFor(key), BoundExact, moveFor(key))
					if n%1000 == 0 {
						tt.NewSearch()
					}
					continue
				}
				e, ok := tt.Probe(key)
				if !ok {
					continue
				}
				if e.Depth != depthFor(key) || e.Score != scoreFor(key) || e.Move != moveFor(key) || e.Bound != BoundExact {
					select {
					case errs <- "torn entry":
					default:
					}
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatal(msg)
	}
}

func TestPerftCache(t *testing.T) {
	pc := NewPerftCache(1)
	_, ok := pc.Probe(7, 3)
	assert.False(t, ok)

	pc.Store(7, 3, 8902)
	n, ok := pc.Probe(7, 3)
	require.True(t, ok)
	assert.EqualValues(t, 8902, n)

	_, ok = pc.Probe(7, 2)
	assert.False(t, ok, "depth must match exactly")

	pc.Store(7, 2, 400)
	n, ok = pc.Probe(7, 3)
	require.True(t, ok, "shallower result must not evict a deeper one")
	assert.EqualValues(t, 8902, n)

	pc.Clear()
	_, ok = pc.Probe(7, 3)
	assert.False(t, ok)
}
