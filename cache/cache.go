// Package cache implements the set-associative cache component from
// spec.md §4.2: a tag/data array, an MSHR-backed miss path, and the
// pluggable replacement/prefetch modules that hang off it.
//
// Grounded on sarchlab-akita's mem/cache package (comp.go, read.go,
// storage.go, bottominteraction.go, builder.go) for the overall shape —
// a component driven by a single per-cycle Operate call over a strategy
// pipeline — and on syifan-m2sim2's timing/cache/cache.go for the flat
// set*ways+way data-array index.
package cache

import (
	"github.com/sarchlab/coresim/channel"
	"github.com/sarchlab/coresim/mshr"
	"github.com/sarchlab/coresim/prefetch"
	"github.com/sarchlab/coresim/replace"
	"github.com/sarchlab/coresim/request"
)

// BlockMeta is one tag-array entry (spec.md §3 "Cache block"). Replacement
// state is deliberately not embedded here; it lives in the policy's own
// storage, indexed by (set, way), so block data and policy data have
// independent lifetimes.
type BlockMeta struct {
	Valid bool
	Dirty bool

	Addr  uint64
	VAddr uint64
	IP    uint64
	CPU   uint32

	PFMeta uint32
}

// pendingFill is the miss-time bookkeeping a cache keeps between issuing a
// miss and its MSHR entry returning: which way the victim occupies, and
// whether that victim needs a writeback.
type pendingFill struct {
	set, way    int
	victimAddr  uint64
	victimDirty bool
	origReq     *request.Request
}

// Config holds a Cache's fixed parameters (spec.md §4.2).
type Config struct {
	NumSets       int
	NumWays       int
	Log2BlockSize int
	HitLatency    uint64
	FillLatency   uint64
	MaxRead       int
	MaxWrite      int

	// MSHRCapacity is independent of the tag-array geometry (spec.md
	// §4.2: "parameterised by block size, line size, fill latency, hit
	// latency, and MSHR capacity").
	MSHRCapacity int

	// NonInclusive drops write misses instead of issuing an RFO,
	// matching spec.md §4.2 step 2's "dropped at non-inclusive levels".
	NonInclusive bool

	// VirtualPrefetch permits the attached prefetcher's lookahead to
	// cross page boundaries (spec.md §4.6/§4.7).
	VirtualPrefetch bool
}

// Statistics accumulates the hit/miss counters and MSHR latency totals
// spec.md §6's out-of-scope JSON printer would consume.
type Statistics struct {
	Hits   map[request.AccessType]uint64
	Misses map[request.AccessType]uint64

	FillLatencySum   uint64
	FillLatencyCount uint64
}

func newStatistics() *Statistics {
	return &Statistics{
		Hits:   make(map[request.AccessType]uint64),
		Misses: make(map[request.AccessType]uint64),
	}
}

func (s *Statistics) recordHit(typ request.AccessType) {
	s.Hits[typ]++
}

func (s *Statistics) recordMiss(typ request.AccessType) {
	s.Misses[typ]++
}

// Cache is a set-associative array with an MSHR-backed miss path, a
// pluggable replacement policy, and a pluggable prefetch module.
type Cache struct {
	cfg Config

	sets [][]BlockMeta
	data [][]byte

	mshr *mshr.Table

	policy     replace.Policy
	prefetcher prefetch.Module

	// upper carries this cache's inbound RQ/WQ/PQ from the level above and
	// its outbound response queue back to it.
	upper *channel.Channel

	// lower is the channel to the next level: this cache's miss traffic
	// goes out on it, and fills come back on its response queue.
	lower *channel.Channel

	// pending tracks the way and victim chosen at miss-issue time, keyed
	// by the MSHR-block address, so the fill-retire step (§4.2 step 1)
	// knows where to write without re-running find_victim.
	pending map[uint64]*pendingFill

	stats *Statistics

	// now mirrors the cycle argument of the current Operate call, so that
	// prefetchLine (invoked indirectly by the prefetcher module, which
	// only sees the narrow CacheOps view) can stamp its enqueue correctly.
	now uint64
}

// New creates an empty Cache. policy and prefetcher must not be nil.
func New(cfg Config, policy replace.Policy, prefetcher prefetch.Module, upper, lower *channel.Channel) *Cache {
	blockSize := 1 << cfg.Log2BlockSize

	c := &Cache{
		cfg:        cfg,
		sets:       make([][]BlockMeta, cfg.NumSets),
		data:       make([][]byte, cfg.NumSets*cfg.NumWays),
		mshr:       mshr.New(cfg.MSHRCapacity),
		policy:     policy,
		prefetcher: prefetcher,
		upper:      upper,
		lower:      lower,
		pending:    make(map[uint64]*pendingFill),
		stats:      newStatistics(),
	}

	for s := range c.sets {
		c.sets[s] = make([]BlockMeta, cfg.NumWays)
	}

	for i := range c.data {
		c.data[i] = make([]byte, blockSize)
	}

	return c
}

// Statistics returns the cache's live counters.
func (c *Cache) Statistics() *Statistics { return c.stats }

func (c *Cache) blockIndex(set, way int) int {
	return set*c.cfg.NumWays + way
}

// Data returns the block-sized storage slice backing (set, way). Payload
// bytes are opaque to the timing model; this exists so callers (and
// tests) can observe that a fill actually occupies a distinct slot.
func (c *Cache) Data(set, way int) []byte {
	return c.data[c.blockIndex(set, way)]
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr &^ (uint64(1<<c.cfg.Log2BlockSize) - 1)
}

func (c *Cache) setIndex(addr uint64) int {
	block := addr >> uint(c.cfg.Log2BlockSize)
	return int(block % uint64(c.cfg.NumSets))
}

// BlockAt returns a copy of the tag-array entry at (set, way), used by
// tests to check tag-array invariants directly.
func (c *Cache) BlockAt(set, way int) BlockMeta {
	return c.sets[set][way]
}

// Probe reports whether addr is currently resident, and where. It is a
// read-only observation with no timing side effects, used by tests and
// by an out-of-scope statistics printer to inspect tag-array occupancy.
func (c *Cache) Probe(addr uint64) (set, way int, ok bool) {
	return c.lookup(addr)
}

// lookup returns the way holding addr in its set, if valid.
func (c *Cache) lookup(addr uint64) (set, way int, ok bool) {
	set = c.setIndex(addr)
	blk := c.blockAddr(addr)

	for w, b := range c.sets[set] {
		if b.Valid && b.Addr == blk {
			return set, w, true
		}
	}

	return set, 0, false
}

// cacheOpsView adapts *Cache to prefetch.CacheOps.
type cacheOpsView struct{ c *Cache }

func (v cacheOpsView) PrefetchLine(addr uint64, fillThisLevel bool, metadata uint32) bool {
	return v.c.prefetchLine(addr, fillThisLevel, metadata)
}

func (v cacheOpsView) MSHROccupancyRatio() float64 {
	if v.c.mshr.Capacity() == 0 {
		return 1
	}

	return float64(v.c.mshr.Occupancy()) / float64(v.c.mshr.Capacity())
}

func (v cacheOpsView) VirtualPrefetch() bool { return v.c.cfg.VirtualPrefetch }

// prefetchLine implements spec.md §4.6: quantise to the block address,
// refuse under MSHR pressure unless fillThisLevel, otherwise enqueue as a
// non-allocating insert into this cache's own prefetch queue.
func (c *Cache) prefetchLine(addr uint64, fillThisLevel bool, metadata uint32) bool {
	blk := c.blockAddr(addr)

	if _, _, hit := c.lookup(blk); hit {
		return false
	}

	if !fillThisLevel && c.mshr.IsFull() {
		return false
	}

	r := request.New(blk, request.Prefetch, 0)
	r.PAddr = blk
	r.Prefetch.OriginLevel = 1

	return c.upper.AddPQ(c.now, r)
}

// Operate runs the four ordered steps of spec.md §4.2 for one cycle.
// The first three steps (fill retirement, writes, reads) each report
// whether they made progress and Operate reports whether any of them did,
// matching the teacher's madeProgress idiom; the prefetcher step is not
// counted as progress.
func (c *Cache) Operate(now uint64) bool {
	c.now = now

	progress := c.retireFills(now)
	progress = c.processWrites(now) || progress
	progress = c.processReads(now) || progress

	c.prefetcher.CycleOperate(cacheOpsView{c})

	return progress
}

// receiveFills drains the lower channel's response queue, transitioning
// each corresponding MSHR entry ISSUED -> RETURNED (spec.md §4.3).
func (c *Cache) receiveFills(now uint64) {
	for {
		r, ok := c.lower.PopReadyResponse(now)
		if !ok {
			break
		}

		entry, found := c.mshr.Lookup(r.ASID, r.PAddr)
		if !found {
			continue
		}

		entry.MarkReturned(now, c.cfg.FillLatency)
	}
}

// retireFills implements spec.md §4.2 step 1.
func (c *Cache) retireFills(now uint64) bool {
	c.receiveFills(now)

	progress := false

	for {
		entry, ok := c.mshr.DrainReady(now)
		if !ok {
			break
		}

		progress = true

		pf, ok := c.pending[entry.Addr]
		if ok {
			delete(c.pending, entry.Addr)
			c.installFill(now, entry, pf)
		}

		c.stats.FillLatencySum += entry.EventCycle - entry.Primary.CycleEnqueued
		c.stats.FillLatencyCount++

		for _, waiter := range entry.Waiters {
			c.notifyWaiter(now, waiter)
		}
	}

	return progress
}

func (c *Cache) installFill(now uint64, entry *mshr.Entry, pf *pendingFill) {
	if pf.victimDirty {
		wb := request.New(pf.victimAddr, request.Write, entry.ASID)
		wb.PAddr = pf.victimAddr
		c.lower.AddWQ(now, wb)
	}

	block := BlockMeta{
		Valid: true,
		Dirty: entry.Primary.Type == request.RFO,
		Addr:  entry.Addr,
		VAddr: entry.Primary.VAddr,
		IP:    entry.Primary.IP,
		CPU:   uint32(entry.ASID),
	}

	block.PFMeta = c.prefetcher.CacheFill(
		cacheOpsView{c}, entry.Addr, pf.set, pf.way, pf.victimDirty, pf.victimAddr, block.PFMeta,
	)

	c.sets[pf.set][pf.way] = block

	c.policy.UpdateReplacementState(
		int(entry.ASID), pf.set, pf.way, entry.Addr, entry.Primary.IP, pf.victimAddr, entry.Primary.Type, false,
	)
}

func (c *Cache) notifyWaiter(now uint64, r *request.Request) {
	r.EventCycle = now

	for _, dest := range r.ReturnTo {
		dest.Notify(now, r)
	}
}

// processWrites implements spec.md §4.2 step 2.
func (c *Cache) processWrites(now uint64) bool {
	progress := false

	for i := 0; i < c.cfg.MaxWrite; i++ {
		r, ok := c.upper.PeekReadyWQ(now)
		if !ok {
			break
		}

		set, way, hit := c.lookup(r.PAddr)
		if hit {
			c.sets[set][way].Dirty = true
			c.policy.UpdateReplacementState(
				int(r.ASID), set, way, r.PAddr, r.IP, 0, request.Write, true,
			)
			c.upper.DropPeekedWQ()
			progress = true

			continue
		}

		if c.cfg.NonInclusive {
			c.upper.DropPeekedWQ()
			progress = true

			continue
		}

		blk := c.blockAddr(r.PAddr)

		if entry, found := c.mshr.Lookup(r.ASID, blk); found {
			entry.Merge(r)
			c.upper.DropPeekedWQ()
			progress = true

			continue
		}

		if c.mshr.IsFull() {
			break
		}

		if !c.issueMiss(now, r, set, request.RFO) {
			break
		}

		c.upper.DropPeekedWQ()
		progress = true
	}

	return progress
}

// processReads implements spec.md §4.2 step 3, covering both the read and
// prefetch queues bounded together by MaxRead.
func (c *Cache) processReads(now uint64) bool {
	progress := false

	for i := 0; i < c.cfg.MaxRead; i++ {
		r, fromPQ, ok := c.peekNextRead(now)
		if !ok {
			break
		}

		if c.serviceRead(now, r) {
			if fromPQ {
				c.upper.DropPeekedPQ()
			} else {
				c.upper.DropPeekedRQ()
			}

			progress = true
		} else {
			break
		}
	}

	return progress
}

func (c *Cache) peekNextRead(now uint64) (*request.Request, bool, bool) {
	if r, ok := c.upper.PeekReadyRQ(now); ok {
		return r, false, true
	}

	if r, ok := c.upper.PeekReadyPQ(now); ok {
		return r, true, true
	}

	return nil, false, false
}

// serviceRead handles one read/prefetch. It returns false when the
// request must be retried next cycle (stall, per spec.md §4.2 step 3).
func (c *Cache) serviceRead(now uint64, r *request.Request) bool {
	set, way, hit := c.lookup(r.PAddr)

	if hit {
		block := &c.sets[set][way]
		block.PFMeta = c.prefetcher.CacheOperate(
			cacheOpsView{c}, r.PAddr, r.IP, true, block.PFMeta != 0, r.Type, block.PFMeta,
		)
		c.policy.UpdateReplacementState(int(r.ASID), set, way, r.PAddr, r.IP, 0, r.Type, true)
		c.stats.recordHit(r.Type)

		r.EventCycle = now + c.cfg.HitLatency

		for _, dest := range r.ReturnTo {
			dest.Notify(now, r)
		}

		return true
	}

	c.stats.recordMiss(r.Type)

	blk := c.blockAddr(r.PAddr)

	if entry, found := c.mshr.Lookup(r.ASID, blk); found {
		entry.Merge(r)
		return true
	}

	if c.mshr.IsFull() {
		return false
	}

	return c.issueMiss(now, r, set, r.Type)
}

// issueMiss allocates an MSHR entry and sends the miss to the lower
// level, choosing and locking a victim way up front so the fill-retire
// step knows where to land. downType is the access type carried on the
// downstream copy — spec.md §4.2 step 2 requires a write miss to be
// issued as an RFO at inclusive levels, distinct from the local request's
// own Type.
func (c *Cache) issueMiss(now uint64, r *request.Request, set int, downType request.AccessType) bool {
	blk := c.blockAddr(r.PAddr)

	blockRow := make([]replace.BlockMeta, c.cfg.NumWays)
	for w, b := range c.sets[set] {
		blockRow[w] = replace.BlockMeta{Valid: b.Valid, Dirty: b.Dirty, Addr: b.Addr}
	}

	way := c.policy.FindVictim(int(r.ASID), r.InstrID, set, blockRow, r.IP, r.PAddr, r.Type)
	victim := c.sets[set][way]

	if !c.lower.AddRQ(now, downstreamCopy(r, blk, downType, c.lower)) {
		return false
	}

	entry := c.mshr.Allocate(blk, r)
	entry.Primary.CycleEnqueued = now

	c.pending[blk] = &pendingFill{
		set:         set,
		way:         way,
		victimAddr:  victim.Addr,
		victimDirty: victim.Dirty,
		origReq:     r,
	}

	return true
}

// downstreamCopy builds the request sent to the lower level: same
// address space and access type, and a single return destination (this
// cache's lower channel itself) so the lower level's completion notifies
// this channel's response queue rather than the original requester's
// (the MSHR's waiter list is what gets notified on retire, not the
// downstream request).
func downstreamCopy(r *request.Request, blockAddr uint64, downType request.AccessType, lower request.ReturnDestination) *request.Request {
	down := request.New(blockAddr, downType, r.ASID)
	down.PAddr = blockAddr
	down.IP = r.IP
	down.InstrID = r.InstrID
	down.ReturnTo = []request.ReturnDestination{lower}

	return down
}
