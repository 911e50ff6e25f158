package board

// Fancy magic bitboards. The multipliers are searched for at start-up from
// a fixed seed, so every run builds identical tables, and each candidate is
// checked against ray casting over every relevant occupancy before use.

type magic struct {
	mask    Bitboard
	magic   uint64
	shift   uint8
	attacks []Bitboard
}

func (m *magic) index(occ Bitboard) uint64 {
	return (uint64(occ&m.mask) * m.magic) >> m.shift
}

var (
	bishopMagics [64]magic
	rookMagics   [64]magic

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

const magicSeed = 0x6A09E667F3BCC909

func initMagics() {
	rng := newPRNG(magicSeed)
	fillMagics(&bishopMagics, bishopTable[:], bishopMask, bishopAttacksSlow, rng)
	fillMagics(&rookMagics, rookTable[:], rookMask, rookAttacksSlow, rng)
}

func fillMagics(magics *[64]magic, table []Bitboard, maskFn func(Square) Bitboard,
	slow func(Square, Bitboard) Bitboard, rng *prng) {

	var (
		occupancy [4096]Bitboard
		reference [4096]Bitboard
		epoch     [4096]int
		attempt   int
	)

	offset := 0
	for sq := A1; sq <= H8; sq++ {
		m := &magics[sq]
		m.mask = maskFn(sq)
		n := m.mask.PopCount()
		m.shift = uint8(64 - n)
		size := 1 << n
		m.attacks = table[offset : offset+size]
		offset += size

		// Carry-rippler walk over every subset of the mask.
		count := 0
		var sub Bitboard
		for {
			occupancy[count] = sub
			reference[count] = slow(sq, sub)
			count++
			sub = (sub - m.mask) & m.mask
			if sub == 0 {
				break
			}
		}

		for {
			m.magic = rng.sparse()
			if ((uint64(m.mask) * m.magic) >> 56) < 6 {
				continue
			}
			attempt++
			ok := true
			for i := 0; i < count; i++ {
				idx := m.index(occupancy[i])
				if epoch[idx] < attempt {
					epoch[idx] = attempt
					m.attacks[idx] = reference[i]
				} else if m.attacks[idx] != reference[i] {
					ok = false
					break
				}
			}
			if ok {
				break
			}
		}
	}
}

// bishopMask is the diagonal ray set from sq minus the board edge.
func bishopMask(sq Square) Bitboard {
	return bishopAttacksSlow(sq, 0) &^ (Rank1 | Rank8 | FileA | FileH)
}

// rookMask is the orthogonal ray set from sq minus the far edge of each ray.
func rookMask(sq Square) Bitboard {
	file, rank := sq.File(), sq.Rank()
	var mask Bitboard
	for f := 1; f < 7; f++ {
		if f != file {
			mask |= SquareBB(NewSquare(f, rank))
		}
	}
	for r := 1; r < 7; r++ {
		if r != rank {
			mask |= SquareBB(NewSquare(file, r))
		}
	}
	return mask
}

var (
	diagonalDirs   = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	orthogonalDirs = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

func bishopAttacksSlow(sq Square, occ Bitboard) Bitboard {
	return rayAttacks(sq, occ, diagonalDirs)
}

func rookAttacksSlow(sq Square, occ Bitboard) Bitboard {
	return rayAttacks(sq, occ, orthogonalDirs)
}

// rayAttacks walks each direction until it leaves the board or hits a
// blocker, which is included.
func rayAttacks(sq Square, occ Bitboard, dirs [4][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			s := SquareBB(NewSquare(f, r))
			attacks |= s
			if occ&s != 0 {
				break
			}
			f += d[0]
			r += d[1]
		}
	}
	return attacks
}
