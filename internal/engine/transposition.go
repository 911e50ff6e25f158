package engine

import (
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// Bound says how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundExact       // score is the value
	BoundLower       // search failed high, value >= score
	BoundUpper       // search failed low, value <= score
)

// TTEntry is the decoded content of a table slot.
type TTEntry struct {
	Key   uint64
	Move  board.Move
	Score int
	Depth int
	Bound Bound
	Age   uint8
}

// Data word layout:
//
//	bits 0-15  score (int16)
//	bits 16-23 depth
//	bits 24-25 bound
//	bits 26-33 age
//	bits 34-51 move
func packEntry(score, depth int, bound Bound, age uint8, move board.Move) uint64 {
	return uint64(uint16(int16(score))) |
		uint64(uint8(depth))<<16 |
		uint64(bound&3)<<24 |
		uint64(age)<<26 |
		uint64(move&0x3FFFF)<<34
}

func unpackEntry(key, data uint64) TTEntry {
	return TTEntry{
		Key:   key,
		Score: int(int16(uint16(data))),
		Depth: int(uint8(data >> 16)),
		Bound: Bound((data >> 24) & 3),
		Age:   uint8(data >> 26),
		Move:  board.Move((data >> 34) & 0x3FFFF),
	}
}

// ttSlot is guarded by a sequence counter. Even means stable, odd means a
// writer holds the slot. A reader that sees an odd value, or a different
// value after loading, treats the slot as a miss.
type ttSlot struct {
	seq  atomic.Uint32
	key  atomic.Uint64
	data atomic.Uint64
}

// TranspositionTable is a fixed-size, lock-free hash table of search
// results shared by all workers.
type TranspositionTable struct {
	slots []ttSlot
	mask  uint64
	age   atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

const ttSlotSize = 24

// NewTranspositionTable allocates about sizeMB megabytes, rounded down to
// a power-of-two slot count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / ttSlotSize)
	return &TranspositionTable{
		slots: make([]ttSlot, n),
		mask:  n - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe returns the entry stored for key. Torn or contended reads are
// reported as misses.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	tt.probes.Add(1)
	s := &tt.slots[key&tt.mask]

	seq := s.seq.Load()
	if seq&1 != 0 {
		return TTEntry{}, false
	}
	k := s.key.Load()
	d := s.data.Load()
	if s.seq.Load() != seq || k != key {
		return TTEntry{}, false
	}
	e := unpackEntry(k, d)
	if e.Bound == BoundNone {
		return TTEntry{}, false
	}
	tt.hits.Add(1)
	return e, true
}

// Store records a result. A result for the same key, an entry from an
// older search, or a result at least as deep as the stored one replaces
// the slot. If another writer
// holds the slot the store is dropped.
func (tt *TranspositionTable) Store(key uint64, depth, score int, bound Bound, move board.Move) {
	s := &tt.slots[key&tt.mask]

	seq := s.seq.Load()
	if seq&1 != 0 || !s.seq.CompareAndSwap(seq, seq+1) {
		return
	}

	age := uint8(tt.age.Load())
	old := unpackEntry(s.key.Load(), s.data.Load())
	if old.Bound == BoundNone || old.Key == key || old.Age != age || depth >= old.Depth {
		s.key.Store(key)
		s.data.Store(packEntry(score, depth, bound, age, move))
	}
	s.seq.Store(seq + 2)
}

// NewSearch starts a new generation so stale entries lose replacement priority.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear empties the table. It must not run concurrently with a search.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].key.Store(0)
		tt.slots[i].data.Store(0)
	}
	tt.age.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull returns the permille of sampled slots written this generation.
func (tt *TranspositionTable) HashFull() int {
	sample := 1000
	if uint64(sample) > uint64(len(tt.slots)) {
		sample = len(tt.slots)
	}
	age := uint8(tt.age.Load())
	used := 0
	for i := 0; i < sample; i++ {
		e := unpackEntry(0, tt.slots[i].data.Load())
		if e.Bound != BoundNone && e.Age == age {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns the percentage of probes that found an entry.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.slots))
}

// AdjustScoreFromTT converts a node-relative mate score back to root-relative.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT makes a mate score relative to the node being stored.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
