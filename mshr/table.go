// Package mshr implements the miss-status-holding-register table a cache
// uses to track in-flight misses and the requests merged onto them
// (spec.md §3 "MSHR", §4.3 "MSHR state machine").
package mshr

import (
	"fmt"

	"github.com/sarchlab/coresim/request"
)

// State is the MSHR entry state machine: FREE -> ISSUED -> RETURNED ->
// FREE. FREE entries are not stored in the table at all.
type State int

// The two live states an entry can occupy.
const (
	Issued State = iota
	Returned
)

// Entry is one outstanding miss and its waiters.
type Entry struct {
	State   State
	Addr    uint64
	ASID    request.ASID
	Primary *request.Request

	// Waiters holds every request that has merged onto this entry,
	// including Primary itself. On fill, each waiter's ReturnTo list is
	// notified exactly once (spec.md §8 property 2).
	Waiters []*request.Request

	// EventCycle is set when the entry transitions to Returned; it marks
	// the cycle at which the fill becomes visible to the cache's retire
	// step (spec.md §4.3).
	EventCycle uint64
}

// Table is a bounded set of in-flight miss entries, indexed by (ASID,
// block address). At most one entry exists per (ASID, address) pair at
// a time (spec.md §3 MSHR invariant).
type Table struct {
	capacity int
	entries  []*Entry
}

// New creates an empty Table with the given capacity.
func New(capacity int) *Table {
	return &Table{capacity: capacity}
}

// Lookup returns the entry tracking (asid, addr), if any.
func (t *Table) Lookup(asid request.ASID, addr uint64) (*Entry, bool) {
	for _, e := range t.entries {
		if e.ASID == asid && e.Addr == addr {
			return e, true
		}
	}

	return nil, false
}

// IsFull reports whether the table has no room for a new entry.
func (t *Table) IsFull() bool {
	return len(t.entries) >= t.capacity
}

// Occupancy returns the number of live entries, used by the prefetch
// throttling check in spec.md §4.6.
func (t *Table) Occupancy() int {
	return len(t.entries)
}

// Capacity returns the table's configured capacity.
func (t *Table) Capacity() int {
	return t.capacity
}

// Allocate creates a new ISSUED entry for a miss to the given
// block-aligned address. It is an invariant violation (programmer bug,
// not backpressure) to allocate a duplicate or to allocate into a full
// table — callers must check Lookup/IsFull first, exactly as spec.md
// §4.2 step 3 prescribes.
func (t *Table) Allocate(addr uint64, r *request.Request) *Entry {
	if _, found := t.Lookup(r.ASID, addr); found {
		panic(fmt.Sprintf("mshr: duplicate allocation for asid %d addr 0x%x", r.ASID, addr))
	}

	if t.IsFull() {
		panic("mshr: allocate into a full table")
	}

	e := &Entry{
		State:   Issued,
		Addr:    addr,
		ASID:    r.ASID,
		Primary: r,
		Waiters: []*request.Request{r},
	}
	t.entries = append(t.entries, e)

	return e
}

// Merge appends req's return destinations onto the existing entry's
// waiter list, ORing in any prefetch-origin-level metadata (spec.md §3,
// §4.2 step 3 "merge").
func (e *Entry) Merge(req *request.Request) {
	e.Waiters = append(e.Waiters, req)

	e.Primary.Prefetch.OriginLevel |= req.Prefetch.OriginLevel
}

// MarkReturned transitions e to RETURNED, to be drained by the cache's
// fill-retire step no sooner than now+fillLatency.
func (e *Entry) MarkReturned(now, fillLatency uint64) {
	e.State = Returned
	e.EventCycle = now + fillLatency
}

// DrainReady returns, and removes from the table, the oldest RETURNED
// entry whose EventCycle <= now. Ties are broken by arrival order in the
// entries slice (spec.md §4.2 invariant (c)).
func (t *Table) DrainReady(now uint64) (*Entry, bool) {
	best := -1

	for i, e := range t.entries {
		if e.State != Returned || e.EventCycle > now {
			continue
		}

		if best == -1 || e.EventCycle < t.entries[best].EventCycle {
			best = i
		}
	}

	if best == -1 {
		return nil, false
	}

	e := t.entries[best]
	t.entries = append(t.entries[:best], t.entries[best+1:]...)

	return e, true
}

// Reset clears every entry (used between simulation phases).
func (t *Table) Reset() {
	t.entries = nil
}
