package prefetch

// deltaDictionary is GASP's delta-to-class map from gasp.h, shared by all
// IPs: a
// small, fixed-size table of recently seen address deltas, each bound to
// one of NUM_CLASSES slots on a least-recently-written basis.
type deltaDictionary struct {
	numClasses int
	deltas     []int64
	valid      []bool
	lastWrite  []uint64
	clock      uint64
}

func newDeltaDictionary(numClasses int) *deltaDictionary {
	return &deltaDictionary{
		numClasses: numClasses,
		deltas:     make([]int64, numClasses),
		valid:      make([]bool, numClasses),
		lastWrite:  make([]uint64, numClasses),
	}
}

// write returns the class bound to delta, creating or reusing the
// least-recently-written slot if delta is unseen.
func (d *deltaDictionary) write(delta int64) uint8 {
	for class, v := range d.valid {
		if v && d.deltas[class] == delta {
			d.lastWrite[class] = d.clock
			d.clock++

			return uint8(class)
		}
	}

	slot := 0
	oldest := d.lastWrite[0]

	for class := 1; class < d.numClasses; class++ {
		if !d.valid[class] {
			slot = class
			break
		}

		if d.lastWrite[class] < oldest {
			oldest = d.lastWrite[class]
			slot = class
		}
	}

	d.deltas[slot] = delta
	d.valid[slot] = true
	d.lastWrite[slot] = d.clock
	d.clock++

	return uint8(slot)
}

// read returns the delta bound to class, or false if that class has
// never been written.
func (d *deltaDictionary) read(class uint8) (int64, bool) {
	if int(class) >= d.numClasses || !d.valid[class] {
		return 0, false
	}

	return d.deltas[class], true
}

// sequencePredictor stands in for gasp.h's SVM: a per-class perceptron
// over the one-hot encoded class sequence. No SVM library appears
// anywhere in the retrieval pack (see DESIGN.md), so the predictor is
// reimplemented as a bounded linear model while the confidence/lookahead
// state machine around it is preserved exactly.
type sequencePredictor struct {
	sequenceSize int
	numClasses   int
	weights      [][]int32 // [class][position*numClasses+observedClass]
}

func newSequencePredictor(sequenceSize, numClasses int) *sequencePredictor {
	p := &sequencePredictor{
		sequenceSize: sequenceSize,
		numClasses:   numClasses,
		weights:      make([][]int32, numClasses),
	}

	for c := range p.weights {
		p.weights[c] = make([]int32, sequenceSize*numClasses)
	}

	return p
}

func (p *sequencePredictor) feature(sequence []uint8) []int32 {
	f := make([]int32, p.sequenceSize*p.numClasses)

	for pos, class := range sequence {
		if int(class) < p.numClasses {
			f[pos*p.numClasses+int(class)] = 1
		}
	}

	return f
}

// predict returns the highest-scoring class, or numClasses (the
// sentinel, "no prediction") when every class scores at or below zero.
func (p *sequencePredictor) predict(sequence [gaspSequenceSize]uint8) uint8 {
	f := p.feature(sequence[:])

	best := -1
	var bestScore int64

	for class := 0; class < p.numClasses; class++ {
		var score int64

		for i, v := range f {
			score += int64(v) * int64(p.weights[class][i])
		}

		if best == -1 || score > bestScore {
			best = class
			bestScore = score
		}
	}

	if best == -1 || bestScore <= 0 {
		return uint8(p.numClasses)
	}

	return uint8(best)
}

// fit nudges the weight vector for actualClass toward the observed
// sequence (a single perceptron update).
func (p *sequencePredictor) fit(sequence [gaspSequenceSize]uint8, actualClass uint8) {
	if int(actualClass) >= p.numClasses {
		return
	}

	f := p.feature(sequence[:])

	for i, v := range f {
		if v != 0 {
			p.weights[actualClass][i]++
		}
	}
}
