package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSAN(t *testing.T) {
	tests := []struct {
		fen  string
		move string
		want string
	}{
		{StartFEN, "e2e4", "e4"},
		{StartFEN, "g1f3", "Nf3"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", "O-O"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1c1", "O-O-O"},
		{"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2", "e4d5", "exd5"},
		{"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3", "e5f6", "exf6"},
		{"1n5k/P7/8/8/8/8/8/K7 w - - 0 1", "a7a8q", "a8=Q"},
		{"1n5k/P7/8/8/8/8/8/K7 w - - 0 1", "a7b8n", "axb8=N"},
		{"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "a1a8", "Ra8#"},
		{"1n5k/P7/8/8/8/8/8/K7 w - - 0 1", "a1b1", "Kb1"},
		{"4k3/8/8/8/8/8/4K3/R6R w - - 0 1", "a1d1", "Rad1"},
		{"4k3/8/8/8/8/8/4K3/R6R w - - 0 1", "h1f1", "Rhf1"},
		{"4k3/8/8/8/8/8/4K3/R6R w - - 0 1", "a1a8", "Ra8+"},
		{"4k3/8/8/R7/8/8/8/R3K3 w - - 0 1", "a1a3", "R1a3"},
		{"4k3/8/8/8/8/Q1Q5/8/Q3K3 w - - 0 1", "a3b2", "Qa3b2"},
	}
	for _, tc := range tests {
		pos, err := ParseFEN(tc.fen)
		require.NoError(t, err, tc.fen)
		m, err := ParseMove(tc.move, pos)
		require.NoError(t, err, tc.move)
		assert.Equal(t, tc.want, m.ToSAN(pos), "%s in %s", tc.move, tc.fen)
	}
}

func TestMovesToSAN(t *testing.T) {
	pos := NewPosition()
	var line []Move
	p := *pos
	for _, s := range []string{"e2e4", "e7e5", "g1f3", "b8c6"} {
		m, err := ParseMove(s, &p)
		require.NoError(t, err)
		line = append(line, m)
		p.MakeMove(m)
	}
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6"}, MovesToSAN(pos, line))
	assert.Equal(t, StartFEN, pos.ToFEN(), "input position is untouched")
}
