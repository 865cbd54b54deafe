package dram

import "github.com/sarchlab/coresim/request"

// Config describes one DRAM channel: its bank organization, address
// decode, timing parameters, queue capacities, and write-queue
// watermarks (spec.md §4.4 step 4).
type Config struct {
	NumBanks int
	NumRanks int
	Decode   Decode
	Timing   Timing

	RQCapacity int
	WQCapacity int

	// WriteHighWatermark/WriteLowWatermark implement the write-drain
	// hysteresis: once the write queue fills past High, the scheduler
	// preempts reads to drain writes until occupancy falls back to Low.
	WriteHighWatermark int
	WriteLowWatermark  int
}

// Channel is one physical DRAM channel: its banks and the two
// pending-access queues a Controller admits requests into. A Channel
// never touches the upstream link directly — Controller owns routing
// and completion notification, since several Channels can share one
// upstream link (spec.md §4.4's Channel address field).
type Channel struct {
	cfg   Config
	banks []Bank

	readQueue  []*PendingAccess
	writeQueue []*PendingAccess

	draining bool // true once WriteHighWatermark is crossed, until WriteLowWatermark

	refreshNext         []uint64 // next cycle each rank's refresh window opens
	refreshBlockedUntil []uint64 // cycle each rank's current refresh window ends
}

// NewChannel creates an empty Channel ready to accept admitted accesses.
func NewChannel(cfg Config) *Channel {
	c := &Channel{
		cfg:   cfg,
		banks: make([]Bank, cfg.NumBanks),
	}

	if cfg.Timing.RefreshPeriod > 0 {
		c.refreshNext = make([]uint64, cfg.NumRanks)
		c.refreshBlockedUntil = make([]uint64, cfg.NumRanks)

		for r := range c.refreshNext {
			c.refreshNext[r] = cfg.Timing.RefreshPeriod
		}
	}

	return c
}

// rankBlocked reports whether rank is inside its refresh window at now,
// advancing its next-refresh schedule as windows open (spec.md §4.4
// step 4, "periodic per-rank refresh-blocking windows").
func (c *Channel) rankBlocked(now uint64, rank int) bool {
	if c.refreshNext == nil {
		return false
	}

	if now >= c.refreshNext[rank] {
		c.refreshBlockedUntil[rank] = now + c.cfg.Timing.RefreshDuration
		c.refreshNext[rank] += c.cfg.Timing.RefreshPeriod
	}

	return now < c.refreshBlockedUntil[rank]
}

// ReadQueueLen and WriteQueueLen report current occupancy, used by tests
// and by the watermark logic.
func (c *Channel) ReadQueueLen() int  { return len(c.readQueue) }
func (c *Channel) WriteQueueLen() int { return len(c.writeQueue) }

// Operate drives one cycle of the channel: complete finished commands,
// then issue the next command per spec.md §4.4's FR-FCFS scheduling
// rule. It reports whether any work was done. Admission is the
// Controller's job, since a request's target Channel is only known
// after decoding.
func (c *Channel) Operate(now uint64) bool {
	madeProgress := c.completeFinished(now)
	madeProgress = c.issue(now) || madeProgress

	return madeProgress
}

func (c *Channel) canAdmitRead() bool  { return len(c.readQueue) < c.cfg.RQCapacity }
func (c *Channel) canAdmitWrite() bool { return len(c.writeQueue) < c.cfg.WQCapacity }

func (c *Channel) admitRead(now uint64, r *request.Request, f Fields) {
	c.readQueue = append(c.readQueue, &PendingAccess{Req: r, Fields: f, Arrived: now})
}

func (c *Channel) admitWrite(now uint64, r *request.Request, f Fields) {
	c.writeQueue = append(c.writeQueue, &PendingAccess{Req: r, Fields: f, Arrived: now})
}

// completeFinished notifies and removes every queue entry whose command
// has reached its completion cycle.
func (c *Channel) completeFinished(now uint64) bool {
	progress := false

	remaining := c.readQueue[:0]

	for _, p := range c.readQueue {
		if p.state == stateIssued && p.completeAt <= now {
			c.notify(now, p.Req)
			progress = true

			continue
		}

		remaining = append(remaining, p)
	}

	c.readQueue = remaining

	remainingW := c.writeQueue[:0]

	for _, p := range c.writeQueue {
		if p.state == stateIssued && p.completeAt <= now {
			c.notify(now, p.Req)
			progress = true

			continue
		}

		remainingW = append(remainingW, p)
	}

	c.writeQueue = remainingW

	return progress
}

func (c *Channel) notify(now uint64, r *request.Request) {
	r.EventCycle = now

	for _, dest := range r.ReturnTo {
		dest.Notify(now, r)
	}
}
