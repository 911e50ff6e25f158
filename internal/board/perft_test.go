package board

import "testing"

// perft counts leaf nodes of the legal move tree to the given depth.
func perft(p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}
	var ml MoveList
	p.GenerateLegalMovesInto(&ml)
	if depth == 1 {
		return int64(ml.Len())
	}
	var nodes int64
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

type perftCase struct {
	depth    int
	expected int64
	slow     bool
}

func runPerft(t *testing.T, fen string, cases []perftCase) {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	for _, tc := range cases {
		if tc.slow && testing.Short() {
			continue
		}
		got := perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

func TestPerftStartingPosition(t *testing.T) {
	runPerft(t, StartFEN, []perftCase{
		{1, 20, false},
		{2, 400, false},
		{3, 8902, false},
		{4, 197281, false},
		{5, 4865609, true},
	})
}

// Kiwipete exercises castling, pins, promotions and en passant together.
func TestPerftKiwipete(t *testing.T) {
	runPerft(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 0", []perftCase{
		{1, 48, false},
		{2, 2039, false},
		{3, 97862, false},
		{4, 4085603, true},
	})
}

func TestPerftPosition3(t *testing.T) {
	runPerft(t, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -", []perftCase{
		{1, 14, false},
		{2, 191, false},
		{3, 2812, false},
		{4, 43238, false},
		{5, 674624, true},
	})
}

func TestPerftPosition4(t *testing.T) {
	runPerft(t, "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", []perftCase{
		{1, 6, false},
		{2, 264, false},
		{3, 9467, false},
		{4, 422333, true},
	})
}

func TestPerftPosition5(t *testing.T) {
	runPerft(t, "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", []perftCase{
		{1, 44, false},
		{2, 1486, false},
		{3, 62379, false},
		{4, 2103487, true},
	})
}

func TestPerftPosition6(t *testing.T) {
	runPerft(t, "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10", []perftCase{
		{1, 46, false},
		{2, 2079, false},
		{3, 89890, false},
		{4, 3894594, true},
	})
}

// The black pawn on e4 may not take en passant on d3: both pawns would
// leave the fourth rank and expose the king on a4 to the rook on h4.
func TestPerftEnPassantPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	moves := pos.GenerateLegalMoves()
	for _, m := range moves.Slice() {
		if m.IsEnPassant() {
			t.Errorf("en passant %v should be illegal", m)
		}
	}
	runPerft(t, "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []perftCase{
		{1, 6, false},
		{2, 94, false},
	})
}
