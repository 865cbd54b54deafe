package ptw_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coresim/channel"
	"github.com/sarchlab/coresim/ptw"
	"github.com/sarchlab/coresim/request"
)

func newTestWalker(levels int) (*ptw.Walker, *channel.Channel, *channel.Channel) {
	upper := channel.New(channel.Config{Latency: 0, RQCapacity: 16, WQCapacity: 16, PQCapacity: 1, RSPCapacity: 16})
	lower := channel.New(channel.Config{Latency: 0, RQCapacity: 16, WQCapacity: 1, PQCapacity: 1, RSPCapacity: 16})

	w := ptw.MakeBuilder().
		WithLevels(levels).
		WithLog2PageSize(12).
		WithLog2PTEPageSize(12).
		WithLog2PTEBytes(3).
		WithUpper(upper).
		WithLower(lower).
		Build()

	return w, upper, lower
}

// driveMemory acts as the next-level cache the walker re-enters on each
// level: it completes every ready PTE read immediately and reports how
// many it served, so tests can count lower-level traffic.
func driveMemory(now uint64, lower *channel.Channel) int {
	served := 0

	for {
		r, ok := lower.PopReadyRQ(now)
		if !ok {
			break
		}

		lower.Notify(now, r)
		served++
	}

	return served
}

func runUntilDrained(w *ptw.Walker, lower *channel.Channel, maxCycles uint64) int {
	served := 0

	for now := uint64(0); now < maxCycles; now++ {
		w.Operate(now)
		served += driveMemory(now, lower)
	}

	return served
}

var _ = Describe("Walker", func() {
	It("computes the shift amount as log2PageSize + 9*(level-1)", func() {
		w := ptw.MakeBuilder().
			WithLevels(5).
			WithLog2PageSize(12).
			WithLog2PTEPageSize(12).
			WithLog2PTEBytes(3).
			Build()

		for level := 1; level <= 5; level++ {
			expected := uint64(12 + 9*(level-1))
			Expect(w.ShiftAmount(level)).To(Equal(expected), "level %d", level)
		}
	})

	It("extracts the per-level index from the virtual address", func() {
		w := ptw.MakeBuilder().
			WithLevels(5).
			WithLog2PageSize(12).
			WithLog2PTEPageSize(12).
			WithLog2PTEBytes(3).
			Build()

		for level := 1; level <= 5; level++ {
			vaddr := uint64(level) << w.ShiftAmount(level)
			Expect(w.Offset(vaddr, level)).To(Equal(uint64(level)), "level %d", level)
		}
	})

	It("completes a fresh walk after exactly LEVELS rounds", func() {
		const levels = 3
		w, upper, lower := newTestWalker(levels)

		req := request.New(0x1000, request.Translation, 0)
		upper.AddRQ(0, req)

		served := runUntilDrained(w, lower, 10)

		Expect(served).To(Equal(levels), "a fresh walk issues exactly LEVELS lower-level reads")

		_, ok := upper.PopReadyRQ(100)
		Expect(ok).To(BeFalse(), "the original request was consumed, not re-queued")
	})

	It("merges two same-ASID walks to the same page into a single walk", func() {
		const levels = 4
		w, upper, lower := newTestWalker(levels)

		a := request.New(0x2000, request.Translation, 7)
		b := request.New(0x2004, request.Translation, 7) // same page, different offset

		upper.AddRQ(0, a)
		upper.AddRQ(0, b)

		served := runUntilDrained(w, lower, 10)

		Expect(served).To(Equal(levels), "a merged same-ASID same-page walk issues only LEVELS reads total")
	})

	It("keeps different-ASID walks to the same vaddr independent", func() {
		const levels = 4
		w, upper, lower := newTestWalker(levels)

		a := request.New(0xdeadbeefdeadbeef, request.Translation, 0)
		upper.AddRQ(0, a)

		served := 0
		for now := uint64(0); now < 10; now++ {
			w.Operate(now)
			served += driveMemory(now, lower)
		}

		b := request.New(0xdeadbeefdeadbeef, request.Translation, 1)
		upper.AddRQ(10000, b)

		for now := uint64(10000); now < 10010; now++ {
			w.Operate(now)
			served += driveMemory(now, lower)
		}

		Expect(served).To(Equal(2*levels), "two different-ASID walks to the same vaddr never merge")
	})

	It("mints a fresh frame on a translation miss without surfacing an error", func() {
		const levels = 2
		w, upper, lower := newTestWalker(levels)

		req := request.New(0x3000, request.Translation, 0)
		upper.AddRQ(0, req)

		served := runUntilDrained(w, lower, 10)

		Expect(served).To(Equal(levels), "a translation miss still drains to completion, never surfaced as an error")
	})

	It("gives both merged waiters the same physical address", func() {
		const levels = 2
		w, upper, lower := newTestWalker(levels)

		resp := channel.New(channel.Config{Latency: 0, RQCapacity: 4, WQCapacity: 1, PQCapacity: 1, RSPCapacity: 4})

		a := request.New(0x4000, request.Translation, 3)
		a.ReturnTo = []request.ReturnDestination{resp}
		b := request.New(0x4000, request.Translation, 3)
		b.ReturnTo = []request.ReturnDestination{resp}

		upper.AddRQ(0, a)
		upper.AddRQ(0, b)

		runUntilDrained(w, lower, 10)

		first, ok := resp.PopReadyResponse(100)
		Expect(ok).To(BeTrue())
		second, ok := resp.PopReadyResponse(100)
		Expect(ok).To(BeTrue())

		Expect(first.PAddr).To(Equal(second.PAddr))
		Expect(first.PAddr).NotTo(BeZero())
	})
})
