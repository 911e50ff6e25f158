package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var walkPositions = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1",
}

// walk visits every node of the move tree to depth and calls visit
// before descending into each move.
func walk(t *testing.T, p *Position, depth int, visit func(p *Position, m Move)) {
	if depth == 0 {
		return
	}
	var ml MoveList
	p.GenerateLegalMovesInto(&ml)
	for _, m := range ml.Slice() {
		visit(p, m)
		undo := p.MakeMove(m)
		walk(t, p, depth-1, visit)
		p.UnmakeMove(m, undo)
	}
}

func TestMakeUnmakeRoundTrip(t *testing.T) {
	for _, fen := range walkPositions {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		walk(t, pos, 3, func(p *Position, m Move) {
			before := *p
			undo := p.MakeMove(m)
			p.UnmakeMove(m, undo)
			if *p != before {
				t.Fatalf("%s: make/unmake %s changed the position to %s", before.ToFEN(), m, p.ToFEN())
			}
		})
	}
}

func TestIncrementalHashMatchesFullHash(t *testing.T) {
	for _, fen := range walkPositions {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		walk(t, pos, 3, func(p *Position, m Move) {
			undo := p.MakeMove(m)
			if p.Hash != p.ComputeHash() {
				t.Fatalf("after %s in %s: incremental %016x, full %016x", m, p.ToFEN(), p.Hash, p.ComputeHash())
			}
			p.UnmakeMove(m, undo)
		})
	}
}

// Every generated move keeps the mover's king safe, and every
// pseudo-legal move that keeps it safe was generated.
func TestLegalityClosure(t *testing.T) {
	for _, fen := range walkPositions {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		walk(t, pos, 2, func(p *Position, m Move) {
			us := p.SideToMove
			undo := p.MakeMove(m)
			if p.IsSquareAttacked(p.KingSquare[us], us.Other()) {
				t.Errorf("%s leaves the %s king attacked", m, us)
			}
			p.UnmakeMove(m, undo)
		})
	}
}

func TestDebugValidationAgreesWithGenerator(t *testing.T) {
	DebugMoveValidation = true
	defer func() { DebugMoveValidation = false }()

	for _, fen := range walkPositions {
		pos, err := ParseFEN(fen)
		require.NoError(t, err)
		assert.NotPanics(t, func() { perft(pos, 3) }, fen)
	}
}

func TestGenerationOrderIsStable(t *testing.T) {
	pos := NewPosition()
	first := pos.GenerateLegalMoves().Slice()
	second := pos.GenerateLegalMoves().Slice()
	assert.Equal(t, first, second)
	assert.Equal(t, "a2a3", first[0].String())
	assert.Equal(t, "a2a4", first[1].String())
}

func TestCastlingRules(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		castles []string
	}{
		{"both wings", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", []string{"e1g1", "e1c1"}},
		{"in check", "r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1", nil},
		{"f1 attacked", "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1", []string{"e1c1"}},
		{"b1 attacked only", "r3k2r/8/8/8/8/8/1r6/R3K2R w KQkq - 0 1", []string{"e1g1", "e1c1"}},
		{"blocked", "r3k2r/8/8/8/8/8/8/RN2K1NR w KQkq - 0 1", nil},
		{"no rights", "r3k2r/8/8/8/8/8/8/R3K2R w kq - 0 1", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			require.NoError(t, err)
			var got []string
			for _, m := range pos.GenerateLegalMoves().Slice() {
				if m.IsCastling() {
					got = append(got, m.String())
				}
			}
			assert.Equal(t, tc.castles, got)
		})
	}
}

func TestCastlingMovesRook(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	m, err := ParseMove("e1c1", pos)
	require.NoError(t, err)
	pos.MakeMove(m)
	assert.Equal(t, "r3k2r/8/8/8/8/8/8/2KR3R b kq - 1 1", pos.ToFEN())
}

func TestPromotions(t *testing.T) {
	pos, err := ParseFEN("1n5k/P7/8/8/8/8/8/K7 w - - 0 1")
	require.NoError(t, err)
	var promos []string
	for _, m := range pos.GenerateLegalMoves().Slice() {
		if m.IsPromotion() {
			promos = append(promos, m.String())
		}
	}
	assert.Equal(t, []string{"a7a8q", "a7a8r", "a7a8b", "a7a8n", "a7b8q", "a7b8r", "a7b8b", "a7b8n"}, promos)
}

func TestDoubleCheckOnlyKingMoves(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/5n2/8/R2QK3 w - - 0 1")
	require.NoError(t, err)
	require.Equal(t, 1, pos.Checkers.PopCount())

	pos, err = ParseFEN("4k3/8/8/8/1b6/5n2/8/R2QK3 w - - 0 1")
	require.NoError(t, err)
	require.True(t, pos.Checkers.MoreThanOne())
	for _, m := range pos.GenerateLegalMoves().Slice() {
		assert.Equal(t, E1, m.From(), "move %s", m)
	}
}

func TestCheckmate(t *testing.T) {
	pos, err := ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)
	assert.True(t, pos.InCheck())
	assert.Equal(t, 0, pos.GenerateLegalMoves().Len())
	assert.True(t, pos.IsCheckmate())
	assert.False(t, pos.IsStalemate())
}

func TestNotCheckmate(t *testing.T) {
	// The king can take the rook.
	pos, err := ParseFEN("6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)
	assert.True(t, pos.InCheck())
	assert.False(t, pos.IsCheckmate())
	assert.True(t, pos.GenerateLegalMoves().Contains(NewMove(H8, G8, Capture)))
}

func TestStalemate(t *testing.T) {
	pos, err := ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	assert.True(t, pos.IsStalemate())
	assert.False(t, pos.IsCheckmate())
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"8/8/8/4k3/8/8/8/4K3 w - - 0 1", true},
		{"8/8/8/4k3/8/8/8/2B1K3 w - - 0 1", true},
		{"8/8/8/4k3/8/8/8/1NB1K3 w - - 0 1", false},
		{"8/8/8/4k3/8/8/4P3/4K3 w - - 0 1", false},
		{"8/8/8/4k3/8/8/8/R3K3 w - - 0 1", false},
	}
	for _, tc := range tests {
		pos, err := ParseFEN(tc.fen)
		require.NoError(t, err)
		assert.Equal(t, tc.want, pos.IsInsufficientMaterial(), tc.fen)
	}
}

func TestNullMoveRestoresState(t *testing.T) {
	pos, err := ParseFEN("rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3")
	require.NoError(t, err)
	before := *pos
	undo := pos.MakeNullMove()
	assert.Equal(t, Black, pos.SideToMove)
	assert.Equal(t, NoSquare, pos.EnPassant)
	assert.Equal(t, pos.ComputeHash(), pos.Hash)
	pos.UnmakeNullMove(undo)
	assert.Equal(t, before, *pos)
}

func TestSliderTablesMatchRayCasting(t *testing.T) {
	rng := newPRNG(42)
	for i := 0; i < 2000; i++ {
		occ := Bitboard(rng.sparse() | rng.sparse())
		sq := Square(rng.next() % 64)
		require.Equal(t, rookAttacksSlow(sq, occ), RookAttacks(sq, occ), "rook %s", sq)
		require.Equal(t, bishopAttacksSlow(sq, occ), BishopAttacks(sq, occ), "bishop %s", sq)
	}
}
