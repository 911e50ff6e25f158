package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func orderedMoves(t *testing.T, fen string, mo *MoveOrderer, ply int, ttMove board.Move) []board.Move {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	ml := pos.GenerateLegalMoves()
	scores := make([]int, ml.Len())
	mo.ScoreMoves(pos, ml, scores, ply, ttMove)
	out := make([]board.Move, ml.Len())
	for i := range out {
		out[i] = PickMove(ml, scores, i)
	}
	return out
}

func TestOrderingPriorities(t *testing.T) {
	// White can take the queen with the pawn or the rook, promote, or play
	// quiet moves.
	fen := "3qk3/P7/8/8/8/8/2P5/3RK3 w - - 0 1"
	mo := NewMoveOrderer()
	moves := orderedMoves(t, fen, mo, 0, board.NoMove)
	require.NotEmpty(t, moves)
	assert.Equal(t, "d1d8", moves[0].String(), "only capture first")
	assert.Equal(t, "a7a8q", moves[1].String(), "queen promotion next")

	pos, _ := board.ParseFEN(fen)
	tt, err := board.ParseMove("e1f2", pos)
	require.NoError(t, err)
	moves = orderedMoves(t, fen, mo, 0, tt)
	assert.Equal(t, tt, moves[0], "table move beats captures")
}

func TestOrderingKillersAndHistory(t *testing.T) {
	mo := NewMoveOrderer()
	pos := board.NewPosition()
	killer, err := board.ParseMove("b1c3", pos)
	require.NoError(t, err)
	quiet, err := board.ParseMove("h2h3", pos)
	require.NoError(t, err)

	mo.UpdateKillers(killer, 2)
	mo.UpdateHistory(quiet, 5)
	assert.Equal(t, 25, mo.HistoryScore(quiet))

	moves := orderedMoves(t, board.StartFEN, mo, 2, board.NoMove)
	assert.Equal(t, killer, moves[0])
	assert.Equal(t, quiet, moves[1])

	// Killers are per ply.
	moves = orderedMoves(t, board.StartFEN, mo, 3, board.NoMove)
	assert.Equal(t, quiet, moves[0])

	mo.Clear()
	assert.Equal(t, 12, mo.HistoryScore(quiet), "history is halved between searches")
	moves = orderedMoves(t, board.StartFEN, mo, 2, board.NoMove)
	assert.Equal(t, quiet, moves[0], "killers are forgotten")
}

func TestPickMoveKeepsGenerationOrderOnTies(t *testing.T) {
	pos := board.NewPosition()
	ml := pos.GenerateLegalMoves()
	want := append([]board.Move(nil), ml.Slice()...)
	scores := make([]int, ml.Len())
	for i := range want {
		assert.Equal(t, want[i], PickMove(ml, scores, i))
	}
}
