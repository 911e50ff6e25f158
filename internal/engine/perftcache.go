package engine

// PerftCache memoizes subtree leaf counts by position key and depth. A
// hit needs both to match exactly. When two results compete for a slot
// the deeper one stays.
//
// Slots use the same sequence-counter protocol as the transposition table.
type PerftCache struct {
	slots []ttSlot
	mask  uint64
}

// NewPerftCache allocates about sizeMB megabytes.
func NewPerftCache(sizeMB int) *PerftCache {
	if sizeMB < 1 {
		sizeMB = 1
	}
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / ttSlotSize)
	return &PerftCache{slots: make([]ttSlot, n), mask: n - 1}
}

// Data word: low 8 bits depth, high 56 bits node count.
const perftCountShift = 8

// Probe returns the stored count for key at exactly depth.
func (pc *PerftCache) Probe(key uint64, depth int) (uint64, bool) {
	s := &pc.slots[key&pc.mask]
	seq := s.seq.Load()
	if seq&1 != 0 {
		return 0, false
	}
	k := s.key.Load()
	d := s.data.Load()
	if s.seq.Load() != seq || k != key || d == 0 || int(uint8(d)) != depth {
		return 0, false
	}
	return d >> perftCountShift, true
}

// Store records nodes for key at depth unless the slot holds a deeper result.
func (pc *PerftCache) Store(key uint64, depth int, nodes uint64) {
	s := &pc.slots[key&pc.mask]
	seq := s.seq.Load()
	if seq&1 != 0 || !s.seq.CompareAndSwap(seq, seq+1) {
		return
	}
	old := s.data.Load()
	if old == 0 || int(uint8(old)) <= depth {
		s.key.Store(key)
		s.data.Store(nodes<<perftCountShift | uint64(uint8(depth)))
	}
	s.seq.Store(seq + 2)
}

// Clear empties the cache. It must not run concurrently with perft.
func (pc *PerftCache) Clear() {
	for i := range pc.slots {
		pc.slots[i].key.Store(0)
		pc.slots[i].data.Store(0)
	}
}
