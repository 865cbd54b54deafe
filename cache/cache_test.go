package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coresim/cache"
	"github.com/sarchlab/coresim/channel"
	"github.com/sarchlab/coresim/prefetch"
	"github.com/sarchlab/coresim/replace"
	"github.com/sarchlab/coresim/request"
)

// fakeReturn records every request handed back to it, standing in for the
// LSQ entry a real core would fill.
type fakeReturn struct {
	notified []*request.Request
}

func (f *fakeReturn) Notify(now uint64, r *request.Request) {
	f.notified = append(f.notified, r)
}

func newTestCache(numSets, numWays int, upper, lower *channel.Channel) *cache.Cache {
	return cache.MakeBuilder().
		WithNumSets(numSets).
		WithNumWays(numWays).
		WithLog2BlockSize(6).
		WithHitLatency(1).
		WithFillLatency(1).
		WithMaxRead(4).
		WithMaxWrite(4).
		WithUpper(upper).
		WithLower(lower).
		WithPolicy(replace.NewLRU(numSets, numWays)).
		WithPrefetcher(prefetch.NoOp{}).
		Build()
}

func chanCfg() channel.Config {
	return channel.Config{Latency: 1, RQCapacity: 8, WQCapacity: 8, PQCapacity: 8, RSPCapacity: 8}
}

// completeLowerMiss pops the oldest ready request on lower's RQ and
// notifies its return destinations, standing in for a real lower level
// that would eventually complete the same request.
func completeLowerMiss(now uint64, lower *channel.Channel) {
	req, ok := lower.PeekReadyRQ(now)
	Expect(ok).To(BeTrue())
	lower.DropPeekedRQ()

	for _, dest := range req.ReturnTo {
		dest.Notify(now, req)
	}
}

var _ = Describe("Cache", func() {
	It("keeps the tag array exclusive under eviction pressure", func() {
		upper := channel.New(chanCfg())
		lower := channel.New(chanCfg())
		// A single set forces every one of these three distinct blocks to
		// contend for the same 2 ways, exercising eviction.
		c := newTestCache(1, 2, upper, lower)

		ret := &fakeReturn{}

		addrs := []uint64{0x1000, 0x2000, 0x3000}

		var now uint64

		for _, addr := range addrs {
			r := request.New(addr, request.Load, 0)
			r.PAddr = addr
			r.ReturnTo = []request.ReturnDestination{ret}
			upper.AddRQ(now, r)

			for i := 0; i < 5; i++ {
				c.Operate(now)

				if _, ready := lower.PeekReadyRQ(now); ready {
					completeLowerMiss(now, lower)
				}

				now++
			}
		}

		seen := map[uint64]int{}

		for way := 0; way < 2; way++ {
			b := c.BlockAt(0, way)
			if b.Valid {
				seen[b.Addr]++
			}
		}

		for _, count := range seen {
			Expect(count).To(Equal(1))
		}
	})

	It("merges a second read miss onto the same MSHR entry into a single lower request", func() {
		upper := channel.New(chanCfg())
		lower := channel.New(chanCfg())
		c := newTestCache(4, 2, upper, lower)

		ret1 := &fakeReturn{}
		ret2 := &fakeReturn{}

		r1 := request.New(0x2000, request.Load, 0)
		r1.PAddr = 0x2000
		r1.ReturnTo = []request.ReturnDestination{ret1}

		r2 := request.New(0x2000, request.Load, 0)
		r2.PAddr = 0x2000
		r2.ReturnTo = []request.ReturnDestination{ret2}

		upper.AddRQ(0, r1)
		upper.AddRQ(0, r2)

		var now uint64 = 1 // both requests become ready at cycle 1 (channel latency 1)

		c.Operate(now) // r1 issues the miss, r2 merges onto its MSHR entry in the same cycle

		Expect(lower.RQLen()).To(Equal(1))

		now++

		for i := 0; i < 5 && (len(ret1.notified) == 0 || len(ret2.notified) == 0); i++ {
			c.Operate(now)

			if lower.RQLen() > 0 {
				completeLowerMiss(now, lower)
			}

			now++
		}

		Expect(ret1.notified).To(HaveLen(1))
		Expect(ret2.notified).To(HaveLen(1))
	})

	It("coalesces two misses to the same block arriving in the same cycle", func() {
		upper := channel.New(chanCfg())
		lower := channel.New(chanCfg())
		c := newTestCache(4, 2, upper, lower)

		ret1 := &fakeReturn{}
		ret2 := &fakeReturn{}

		r1 := request.New(0x4000, request.Load, 0)
		r1.PAddr = 0x4000
		r1.ReturnTo = []request.ReturnDestination{ret1}

		r2 := request.New(0x4000, request.Load, 0)
		r2.PAddr = 0x4000
		r2.ReturnTo = []request.ReturnDestination{ret2}

		upper.AddRQ(0, r1)
		upper.AddRQ(0, r2)

		var now uint64

		for i := 0; i < 6; i++ {
			c.Operate(now)

			if _, ready := lower.PeekReadyRQ(now); ready {
				completeLowerMiss(now, lower)
			}

			now++
		}

		Expect(ret1.notified).To(HaveLen(1))
		Expect(ret2.notified).To(HaveLen(1))
	})

	It("never returns a fill sooner than fill latency after enqueue", func() {
		upper := channel.New(chanCfg())
		lower := channel.New(chanCfg())

		const fillLatency = uint64(2)

		c := cache.MakeBuilder().
			WithNumSets(4).
			WithNumWays(2).
			WithLog2BlockSize(6).
			WithHitLatency(3).
			WithFillLatency(fillLatency).
			WithMaxRead(4).
			WithMaxWrite(4).
			WithUpper(upper).
			WithLower(lower).
			WithPolicy(replace.NewLRU(4, 2)).
			WithPrefetcher(prefetch.NoOp{}).
			Build()

		ret := &fakeReturn{}
		r := request.New(0x8000, request.Load, 0)
		r.PAddr = 0x8000
		r.CycleEnqueued = 0
		r.ReturnTo = []request.ReturnDestination{ret}

		upper.AddRQ(0, r)

		var now uint64

		for i := 0; i < 10 && len(ret.notified) == 0; i++ {
			c.Operate(now)

			if _, ready := lower.PeekReadyRQ(now); ready {
				completeLowerMiss(now, lower)
			}

			now++
		}

		Expect(ret.notified).To(HaveLen(1))
		Expect(ret.notified[0].EventCycle).To(BeNumerically(">=", fillLatency))
	})

	It("merges a write miss onto an outstanding read-miss MSHR entry for the same block instead of panicking", func() {
		upper := channel.New(chanCfg())
		lower := channel.New(chanCfg())
		c := newTestCache(4, 2, upper, lower)

		loadRet := &fakeReturn{}
		load := request.New(0x2000, request.Load, 0)
		load.PAddr = 0x2000
		load.ReturnTo = []request.ReturnDestination{loadRet}
		upper.AddRQ(0, load)

		var now uint64 = 1
		c.Operate(now) // load issues the miss, allocating the MSHR entry

		Expect(lower.RQLen()).To(Equal(1))

		storeRet := &fakeReturn{}
		store := request.New(0x2000, request.Write, 0)
		store.PAddr = 0x2000
		store.ReturnTo = []request.ReturnDestination{storeRet}
		upper.AddWQ(now, store)

		now++

		Expect(func() { c.Operate(now) }).NotTo(Panic())
		Expect(lower.RQLen()).To(Equal(1), "the write miss must merge onto the existing MSHR entry, not issue a second lower request")
	})
})
