package replace

import "github.com/sarchlab/coresim/request"

// SHiP implements the signature-based hit predictor from
// original_source/replacement/ship/ship.cc: an RRPV array per (set,way),
// a small set-sampler that tracks per-signature reuse, and a
// signature-history counter table (SHCT) indexed by ip mod a small
// prime.
type SHiP struct {
	numSets, numWays int
	sampledSets      int

	maxRRPV uint8

	rrpv []uint8

	// sampleSets is the fixed, LCG-seeded selection of sets the sampler
	// tracks, matching spec.md §9 Determinism ("Random sampler-set
	// selection (SHIP) uses a fixed LCG seed").
	sampleSets []int
	sampler    [][]sampleEntry

	shctPrime int
	shct      map[int][]uint8 // keyed by cpu

	accessCount uint64
}

type sampleEntry struct {
	valid    bool
	used     bool
	addr     uint64
	ip       uint64
	lastUsed uint64
}

// NewSHiP creates a SHiP policy. sampledSets is the number of sets the
// sampler tracks (SAMPLER_SET in the source); shctPrime is the SHCT
// table size.
func NewSHiP(numSets, numWays, sampledSets, shctPrime int) *SHiP {
	s := &SHiP{
		numSets:     numSets,
		numWays:     numWays,
		sampledSets: sampledSets,
		maxRRPV:     3,
		rrpv:        make([]uint8, numSets*numWays),
		shctPrime:   shctPrime,
		shct:        make(map[int][]uint8),
	}

	for i := range s.rrpv {
		s.rrpv[i] = s.maxRRPV
	}

	s.sampleSets = lcgSampleSets(sampledSets, numSets)
	s.sampler = make([][]sampleEntry, sampledSets)
	for i := range s.sampler {
		s.sampler[i] = make([]sampleEntry, numWays)
	}

	return s
}

// lcgSampleSets reproduces ship.cc's fixed-seed LCG selection of
// distinct sample sets, without duplicates, in ascending insertion
// order.
func lcgSampleSets(count, numSets int) []int {
	const a = 1103515245
	const c = 12345

	seed := uint64(a + c)
	seen := make(map[int]bool, count)
	result := make([]int, 0, count)

	for len(result) < count {
		seed = seed*a + c
		val := int((seed / 65536) % uint64(numSets))

		if seen[val] {
			continue
		}

		seen[val] = true
		result = append(result, val)
	}

	return result
}

func (s *SHiP) sampleIndex(set int) (int, bool) {
	for i, v := range s.sampleSets {
		if v == set {
			return i, true
		}
	}

	return 0, false
}

func (s *SHiP) shctFor(cpu int) []uint8 {
	table, ok := s.shct[cpu]
	if !ok {
		table = make([]uint8, s.shctPrime)
		s.shct[cpu] = table
	}

	return table
}

// FindVictim returns the first way at maxRRPV, aging every way in the
// set until one qualifies (ship.cc's aging loop).
func (s *SHiP) FindVictim(
	cpu int,
	instrID uint64,
	set int,
	blockRow []BlockMeta,
	ip, addr uint64,
	typ request.AccessType,
) int {
	base := set * s.numWays

	for {
		for way := 0; way < s.numWays; way++ {
			if s.rrpv[base+way] == s.maxRRPV {
				return way
			}
		}

		for way := 0; way < s.numWays; way++ {
			s.rrpv[base+way]++
		}
	}
}

// UpdateReplacementState updates the sampler, SHCT, and RRPV state per
// ship.cc.
func (s *SHiP) UpdateReplacementState(
	cpu, set, way int,
	addr, ip, victimAddr uint64,
	typ request.AccessType,
	hit bool,
) {
	idx := set*s.numWays + way

	if typ == request.Write {
		if !hit {
			s.rrpv[idx] = s.maxRRPV - 1
		}

		return
	}

	shct := s.shctFor(cpu)

	if sIdx, ok := s.sampleIndex(set); ok {
		sampleSet := s.sampler[sIdx]

		matchWay := -1

		for w := range sampleSet {
			if sampleSet[w].valid && sameSample(sampleSet[w].addr, addr, s.numWays) {
				matchWay = w
				break
			}
		}

		if matchWay == -1 {
			matchWay = lruWay(sampleSet)

			if sampleSet[matchWay].used {
				shct[sampleSet[matchWay].ip%uint64(s.shctPrime)]++
			}

			sampleSet[matchWay] = sampleEntry{
				valid: true,
				addr:  addr,
				ip:    ip,
				used:  false,
			}
		} else {
			signature := sampleSet[matchWay].ip % uint64(s.shctPrime)
			if shct[signature] > 0 {
				shct[signature]--
			}

			sampleSet[matchWay].used = true
		}

		sampleSet[matchWay].lastUsed = s.accessCount
		s.accessCount++
	}

	if hit {
		s.rrpv[idx] = 0
		return
	}

	s.rrpv[idx] = s.maxRRPV - 1

	signature := ip % uint64(s.shctPrime)
	if shct[signature] == 255 {
		s.rrpv[idx] = s.maxRRPV
	}
}

func sameSample(a, b uint64, numWays int) bool {
	shamt := uint(8)
	for numWays > 1 {
		shamt++
		numWays >>= 1
	}

	return a>>shamt == b>>shamt
}

func lruWay(entries []sampleEntry) int {
	best := 0

	for i := 1; i < len(entries); i++ {
		if entries[i].lastUsed < entries[best].lastUsed {
			best = i
		}
	}

	return best
}
