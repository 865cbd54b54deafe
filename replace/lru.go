package replace

import "github.com/sarchlab/coresim/request"

// LRU picks the way whose last-use cycle is most distant, mirroring
// original_source/replacement/lru/lru.cc's std::min_element over a flat
// per-(set,way) last-used-cycle array.
type LRU struct {
	numWays       int
	lastUsedCycle []uint64
	clock         uint64
}

// NewLRU creates an LRU policy for a cache with numSets sets and numWays
// ways.
func NewLRU(numSets, numWays int) *LRU {
	return &LRU{
		numWays:       numWays,
		lastUsedCycle: make([]uint64, numSets*numWays),
	}
}

// FindVictim returns the way with the smallest last-used-cycle value in
// the given set.
func (l *LRU) FindVictim(
	cpu int,
	instrID uint64,
	set int,
	blockRow []BlockMeta,
	ip, addr uint64,
	typ request.AccessType,
) int {
	base := set * l.numWays

	victim := 0
	oldest := l.lastUsedCycle[base]

	for way := 1; way < l.numWays; way++ {
		v := l.lastUsedCycle[base+way]
		if v < oldest {
			oldest = v
			victim = way
		}
	}

	return victim
}

// UpdateReplacementState marks (set, way) as used on the current
// logical cycle. Writeback hits are skipped, matching lru.cc's
// `if (!hit || type != WRITE)` guard.
func (l *LRU) UpdateReplacementState(
	cpu, set, way int,
	addr, ip, victimAddr uint64,
	typ request.AccessType,
	hit bool,
) {
	if hit && typ == request.Write {
		return
	}

	l.lastUsedCycle[set*l.numWays+way] = l.clock
	l.clock++
}
