// Package channel provides the bounded, latency-modelled FIFO that
// carries requests and responses between two units (spec.md §4.1).
package channel

import "github.com/sarchlab/coresim/request"

// Channel is a typed set of request queues (read, write, prefetch) plus a
// response queue, each bounded in capacity and delayed by a fixed
// one-way latency.
type Channel struct {
	latency uint64

	rqCapacity int
	wqCapacity int
	pqCapacity int
	rspCapacity int

	rq  []*request.Request
	wq  []*request.Request
	pq  []*request.Request
	rsp []*request.Request
}

// Config describes the capacities of a Channel's four queues.
type Config struct {
	Latency     uint64
	RQCapacity  int
	WQCapacity  int
	PQCapacity  int
	RSPCapacity int
}

// New creates a Channel with the given one-way latency and queue
// capacities.
func New(cfg Config) *Channel {
	return &Channel{
		latency:     cfg.Latency,
		rqCapacity:  cfg.RQCapacity,
		wqCapacity:  cfg.WQCapacity,
		pqCapacity:  cfg.PQCapacity,
		rspCapacity: cfg.RSPCapacity,
	}
}

// stamp computes the event_cycle a request becomes visible at: no sooner
// than now+latency, and never earlier than the request's own current
// event_cycle (spec.md §4.1).
func (c *Channel) stamp(now uint64, r *request.Request) uint64 {
	earliest := now + c.latency
	if r.EventCycle > earliest {
		return r.EventCycle
	}

	return earliest
}

func push(now, latencyStamp uint64, q []*request.Request, cap int, r *request.Request) ([]*request.Request, bool) {
	if cap >= 0 && len(q) >= cap {
		return q, false
	}

	r.EventCycle = latencyStamp

	return append(q, r), true
}

// AddRQ enqueues a read request. Returns false (backpressure, not an
// error per spec.md §7) if the read queue is full.
func (c *Channel) AddRQ(now uint64, r *request.Request) bool {
	q, ok := push(now, c.stamp(now, r), c.rq, c.rqCapacity, r)
	if ok {
		c.rq = q
	}

	return ok
}

// AddWQ enqueues a write request.
func (c *Channel) AddWQ(now uint64, r *request.Request) bool {
	q, ok := push(now, c.stamp(now, r), c.wq, c.wqCapacity, r)
	if ok {
		c.wq = q
	}

	return ok
}

// AddPQ enqueues a prefetch request.
func (c *Channel) AddPQ(now uint64, r *request.Request) bool {
	q, ok := push(now, c.stamp(now, r), c.pq, c.pqCapacity, r)
	if ok {
		c.pq = q
	}

	return ok
}

// Notify implements request.ReturnDestination: it enqueues r onto this
// channel's response queue, stamped the same way any other entry is.
func (c *Channel) Notify(now uint64, r *request.Request) {
	q, ok := push(now, c.stamp(now, r), c.rsp, c.rspCapacity, r)
	if ok {
		c.rsp = q
	}
}

// peekReady returns the oldest entry in q whose EventCycle <= now,
// without removing it. Queues are never reordered here (spec.md §4.1) —
// the oldest-arrival entry is simply the head of the slice, since
// entries are only ever appended.
func peekReady(q []*request.Request, now uint64) (*request.Request, bool) {
	if len(q) == 0 {
		return nil, false
	}

	head := q[0]
	if head.EventCycle > now {
		return nil, false
	}

	return head, true
}

// PopReadyRQ removes and returns the oldest ready read-queue entry.
func (c *Channel) PopReadyRQ(now uint64) (*request.Request, bool) {
	r, ok := peekReady(c.rq, now)
	if ok {
		c.rq = c.rq[1:]
	}

	return r, ok
}

// PeekReadyRQ returns the oldest ready read-queue entry without
// dequeuing it — used when a cache cannot consume the request this
// cycle and must retry (spec.md §4.2 step 3, "stall").
func (c *Channel) PeekReadyRQ(now uint64) (*request.Request, bool) {
	return peekReady(c.rq, now)
}

// DropPeekedRQ removes the current head of the read queue, used after a
// PeekReadyRQ succeeds in being consumed.
func (c *Channel) DropPeekedRQ() {
	if len(c.rq) > 0 {
		c.rq = c.rq[1:]
	}
}

// PopReadyWQ removes and returns the oldest ready write-queue entry.
func (c *Channel) PopReadyWQ(now uint64) (*request.Request, bool) {
	r, ok := peekReady(c.wq, now)
	if ok {
		c.wq = c.wq[1:]
	}

	return r, ok
}

// PeekReadyWQ returns the oldest ready write-queue entry without
// dequeuing it.
func (c *Channel) PeekReadyWQ(now uint64) (*request.Request, bool) {
	return peekReady(c.wq, now)
}

// DropPeekedWQ removes the current head of the write queue.
func (c *Channel) DropPeekedWQ() {
	if len(c.wq) > 0 {
		c.wq = c.wq[1:]
	}
}

// PeekReadyPQ returns the oldest ready prefetch-queue entry without
// dequeuing it.
func (c *Channel) PeekReadyPQ(now uint64) (*request.Request, bool) {
	return peekReady(c.pq, now)
}

// DropPeekedPQ removes the current head of the prefetch queue.
func (c *Channel) DropPeekedPQ() {
	if len(c.pq) > 0 {
		c.pq = c.pq[1:]
	}
}

// PopReadyResponse removes and returns the oldest ready response-queue
// entry.
func (c *Channel) PopReadyResponse(now uint64) (*request.Request, bool) {
	r, ok := peekReady(c.rsp, now)
	if ok {
		c.rsp = c.rsp[1:]
	}

	return r, ok
}

// RQLen, WQLen, PQLen, RSPLen report the current occupancy of each
// queue.
func (c *Channel) RQLen() int  { return len(c.rq) }
func (c *Channel) WQLen() int  { return len(c.wq) }
func (c *Channel) PQLen() int  { return len(c.pq) }
func (c *Channel) RSPLen() int { return len(c.rsp) }
