package prefetch

import "github.com/sarchlab/coresim/request"

const (
	gaspNumClasses      = 4
	gaspSequenceSize    = 4
	gaspPrefetchDegree  = 3
	gaspConfidenceMax   = 15
	gaspConfidenceThres = 12
)

// gaspInputEntry is one per-IP row of the input buffer described in
// spec.md §4.7: last observed address, the recent delta-class sequence,
// the class predicted last time, and a saturating confidence counter.
type gaspInputEntry struct {
	lastAddr      uint64
	classSequence [gaspSequenceSize]uint8
	predictedClass uint8
	confidence    uint8
}

// gaspLookahead tracks an active stream of stride-based prefetches
// issued along a predicted delta, counting down PREFETCH_DEGREE.
type gaspLookahead struct {
	active  bool
	addr    uint64
	stride  int64
	degree  int
}

// GASP is a lookahead prefetcher: a single dictionary, shared by all IPs,
// of observed address deltas mapped to a small number of classes, and a
// lightweight
// sequence predictor standing in for the source's SVM (see DESIGN.md —
// no SVM library appears anywhere in the retrieval pack, so the
// confidence/lookahead state machine this package fixes is preserved
// exactly while the predictor itself is a small trained linear model).
type GASP struct {
	inputBuffer map[uint64]*gaspInputEntry
	dictionary  *deltaDictionary
	predictor   *sequencePredictor

	lookahead map[uint64]*gaspLookahead // keyed by ip

	log2BlockSize int
	log2PageSize  int
}

// NewGASP creates a GASP prefetcher for a cache with the given block and
// page shift amounts (needed for the page-boundary stop in
// advance_lookahead).
func NewGASP(log2BlockSize, log2PageSize int) *GASP {
	return &GASP{
		inputBuffer:   make(map[uint64]*gaspInputEntry),
		dictionary:    newDeltaDictionary(gaspNumClasses),
		predictor:     newSequencePredictor(gaspSequenceSize, gaspNumClasses),
		lookahead:     make(map[uint64]*gaspLookahead),
		log2BlockSize: log2BlockSize,
		log2PageSize:  log2PageSize,
	}
}

// predict implements gasp.h's GASP::predict: given ip and the current
// (already block-shifted) address, returns the predicted next address,
// or false if no prediction crosses the confidence threshold.
func (g *GASP) predict(ip, clAddr uint64) (uint64, bool) {
	entry, found := g.inputBuffer[ip]
	if !found {
		g.inputBuffer[ip] = &gaspInputEntry{
			lastAddr:       clAddr,
			classSequence:  [gaspSequenceSize]uint8{},
			predictedClass: gaspNumClasses,
			confidence:     0,
		}

		return 0, false
	}

	delta := int64(clAddr) - int64(entry.lastAddr)
	class := g.dictionary.write(delta)

	sequence := entry.classSequence
	for i := 1; i < gaspSequenceSize; i++ {
		sequence[i-1] = sequence[i]
	}
	sequence[gaspSequenceSize-1] = class

	predictedClass := entry.predictedClass
	confidence := entry.confidence

	if predictedClass == class {
		confidence = incrementConfidence(confidence)
		newPredictedClass := g.predictor.predict(sequence)

		next := &gaspInputEntry{
			lastAddr:       clAddr,
			classSequence:  sequence,
			predictedClass: newPredictedClass,
			confidence:     confidence,
		}

		if confidence >= gaspConfidenceThres {
			if d, ok := g.dictionary.read(newPredictedClass); ok {
				g.inputBuffer[ip] = next
				return clAddr + uint64(d), true
			}
		}

		g.inputBuffer[ip] = next

		return 0, false
	}

	var newPredictedClass uint8

	if predictedClass != gaspNumClasses {
		confidence = decrementConfidence(confidence)
		g.predictor.fit(sequence, class)
		newPredictedClass = gaspNumClasses

		g.inputBuffer[ip] = &gaspInputEntry{
			lastAddr:       clAddr,
			classSequence:  sequence,
			predictedClass: newPredictedClass,
			confidence:     confidence,
		}

		return 0, false
	}

	// Sentinel re-entry: no class was predicted for this access (a fresh
	// entry, or the previous access missed its prediction). Confidence is
	// left untouched (a miss already decremented it), the predictor is
	// trained on the observed class and re-run, and the access can emit a
	// prefetch on this very access if confidence is at or above threshold.
	g.predictor.fit(sequence, class)
	newPredictedClass = g.predictor.predict(sequence)

	g.inputBuffer[ip] = &gaspInputEntry{
		lastAddr:       clAddr,
		classSequence:  sequence,
		predictedClass: newPredictedClass,
		confidence:     confidence,
	}

	if confidence >= gaspConfidenceThres {
		if d, ok := g.dictionary.read(newPredictedClass); ok {
			return clAddr + uint64(d), true
		}
	}

	return 0, false
}

func incrementConfidence(c uint8) uint8 {
	if c >= gaspConfidenceMax {
		return c
	}

	return c + 1
}

func decrementConfidence(c uint8) uint8 {
	if c == 0 {
		return c
	}

	return c - 1
}

// CacheOperate runs the predictor on every access, matching gasp.cc's
// hook into prefetcher_cache_operate, and starts a lookahead for ip only
// when the prediction is confident and its stride is non-zero.
func (g *GASP) CacheOperate(
	ops CacheOps,
	addr, ip uint64,
	hit, useful bool,
	typ request.AccessType,
	metadata uint32,
) uint32 {
	clAddr := addr >> uint(g.log2BlockSize)

	predicted, ok := g.predict(ip, clAddr)
	if !ok {
		return metadata
	}

	stride := int64(predicted) - int64(clAddr)
	if stride == 0 {
		return metadata
	}

	g.lookahead[ip] = &gaspLookahead{
		active: true,
		addr:   clAddr << uint(g.log2BlockSize),
		stride: stride,
		degree: gaspPrefetchDegree,
	}

	return metadata
}

// CacheFill returns the metadata unchanged; GASP does not tag fills.
func (g *GASP) CacheFill(
	ops CacheOps,
	addr uint64,
	set, way int,
	evicted bool,
	evictedAddr uint64,
	metadata uint32,
) uint32 {
	return metadata
}

// CycleOperate advances every active lookahead by one step, matching
// gasp.h's advance_lookahead: stop at page boundaries unless virtual
// prefetch is enabled, retry next cycle on refusal.
func (g *GASP) CycleOperate(ops CacheOps) {
	for ip, la := range g.lookahead {
		if !la.active {
			delete(g.lookahead, ip)
			continue
		}

		blockSize := uint64(1) << uint(g.log2BlockSize)
		addrDelta := la.stride * int64(blockSize)
		pfAddr := uint64(int64(la.addr) + addrDelta)

		samePage := (pfAddr >> uint(g.log2PageSize)) == (la.addr >> uint(g.log2PageSize))
		if !ops.VirtualPrefetch() && !samePage {
			la.active = false
			continue
		}

		success := ops.PrefetchLine(pfAddr, ops.MSHROccupancyRatio() < 0.5, 0)
		if success {
			la.addr = pfAddr
			la.degree--

			if la.degree == 0 {
				la.active = false
			}
		}
		// on failure, retry next cycle with the same state (spec.md §4.7)
	}
}
