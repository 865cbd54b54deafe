package dram

// Bank is a single DRAM bank's row-buffer state (spec.md §3 "DRAM bank
// state"). Timing fields record the earliest cycle each command kind
// may next be issued to this bank.
type Bank struct {
	OpenRow      uint64
	OpenRowValid bool

	NextActivate  uint64
	NextPrecharge uint64
	NextRead      uint64
	NextWrite     uint64
}

// isRowHit reports whether row is already open in this bank.
func (b *Bank) isRowHit(row uint64) bool {
	return b.OpenRowValid && b.OpenRow == row
}

// readyAt returns the earliest cycle this bank could service a request
// targeting row, given its current row-buffer state and timing
// constraints, along with the CommandKind that would need to issue
// first.
func (b *Bank) readyAt(now uint64, row uint64, t Timing) (uint64, CommandKind) {
	if b.isRowHit(row) {
		ready := max64(now, b.NextRead, b.NextWrite)
		return ready, CommandRead
	}

	if !b.OpenRowValid {
		return max64(now, b.NextActivate), CommandActivate
	}

	// A different row is open: it must be precharged (earliest once tRAS
	// has elapsed) before the new row can be activated, tRP later.
	prechargeAt := max64(now, b.NextPrecharge)
	activateAt := max64(prechargeAt+t.TRP, b.NextActivate)

	return activateAt, CommandActivate
}

// startActivate opens row, advancing the bank's timing state by tRCD and
// tRAS (spec.md §4.4 step 2).
func (b *Bank) startActivate(now uint64, row uint64, t Timing) {
	b.OpenRow = row
	b.OpenRowValid = true
	b.NextPrecharge = now + t.TRAS
	b.NextRead = now + t.TRCD
	b.NextWrite = now + t.TRCD
}

// startCommand issues a READ/WRITE and advances timing by tCAS/tCWD
// (spec.md §4.4 step 3). It returns the cycle the data becomes
// available.
func (b *Bank) startCommand(now uint64, kind CommandKind, t Timing) (completionCycle uint64) {
	switch kind {
	case CommandRead:
		b.NextRead = now + 1
		return now + t.TCAS
	case CommandWrite:
		b.NextWrite = now + 1
		return now + t.TCWD
	default:
		return now
	}
}

func max64(vs ...uint64) uint64 {
	m := vs[0]

	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}

	return m
}
