// Package vmem implements the simulated physical-frame allocator and the
// multi-level page-table node storage the page-table walker consults
// (spec.md §3 "Page table", §4.5's frame-allocation half).
//
// Grounded on sarchlab-akita's mem/vm/pagetable.go (the processTable
// doubly-linked-list-plus-map structure, carried over almost line for
// line) and mem/vm/mmu/mmu.go's on-demand frame allocation.
package vmem

import "github.com/sarchlab/coresim/request"

// Allocator hands out physical page frames from a configured range and
// remembers each address space's page-table root frame, minting one on
// first use (spec.md §4.5: "each node is a simulated page allocated on
// first access").
type Allocator struct {
	log2PageSize uint64
	next         uint64
	limit        uint64
	roots        map[request.ASID]uint64
}

// NewAllocator creates an Allocator handing out numFrames frames
// starting at physical frame number baseFrame.
func NewAllocator(log2PageSize, baseFrame, numFrames uint64) *Allocator {
	return &Allocator{
		log2PageSize: log2PageSize,
		next:         baseFrame,
		limit:        baseFrame + numFrames,
		roots:        make(map[request.ASID]uint64),
	}
}

// AllocateFrame returns the physical address of the next free frame.
func (a *Allocator) AllocateFrame() uint64 {
	if a.next >= a.limit {
		panic("vmem: physical frame space exhausted")
	}

	frame := a.next << a.log2PageSize
	a.next++

	return frame
}

// RootFrame returns asid's page-table root frame, allocating one the
// first time asid is seen.
func (a *Allocator) RootFrame(asid request.ASID) uint64 {
	root, ok := a.roots[asid]
	if !ok {
		root = a.AllocateFrame()
		a.roots[asid] = root
	}

	return root
}
