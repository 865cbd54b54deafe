// Package ptw implements the page-table walker of spec.md §4.5: a
// multi-level walk that re-enters the memory hierarchy at each level,
// merging same-ASID same-page walks and minting fresh frames on a
// translation miss.
//
// Grounded on sarchlab-akita's mem/vm/mmu/mmu.go (the walk-entry table
// and on-demand frame allocation) and
// mem/vm/addresstranslator/addresstranslator.go's per-level re-entry
// into the memory hierarchy, reimplemented against integer cycles and
// coresim's channel/request primitives instead of an event-driven port.
package ptw

import (
	"github.com/sarchlab/coresim/channel"
	"github.com/sarchlab/coresim/request"
	"github.com/sarchlab/coresim/vmem"
)

// pageKey identifies one in-progress walk: same ASID and same page merge
// (spec.md §4.5, "with the same ASID and same page, the second is merged
// into the first").
type pageKey struct {
	asid request.ASID
	page uint64
}

// walkEntry is one in-progress translation, tracking the level currently
// being resolved and every requester waiting on its result.
type walkEntry struct {
	ASID         request.ASID
	VAddr        uint64
	Level        int
	CurrentFrame uint64
	Waiters      []*request.Request
}

// Walker holds every in-progress walk plus the shared physical-frame
// allocator and page-table node storage.
type Walker struct {
	levels          int
	log2PageSize    uint64
	log2PTEPageSize uint64
	log2PTEBytes    uint64

	alloc *vmem.Allocator
	pt    *vmem.PageTable

	upper *channel.Channel
	lower *channel.Channel

	inProgress map[pageKey]*walkEntry
	inflight   map[string]*walkEntry // keyed by the outstanding lower-level request's ID
}

// NewWalker builds a Walker with the given radix depth and per-level
// geometry, wired to upper (where Translation requests arrive) and lower
// (the memory hierarchy the per-level PTE reads are issued into).
func NewWalker(
	levels int,
	log2PageSize, log2PTEPageSize, log2PTEBytes uint64,
	alloc *vmem.Allocator,
	pt *vmem.PageTable,
	upper, lower *channel.Channel,
) *Walker {
	return &Walker{
		levels:          levels,
		log2PageSize:    log2PageSize,
		log2PTEPageSize: log2PTEPageSize,
		log2PTEBytes:    log2PTEBytes,
		alloc:           alloc,
		pt:              pt,
		upper:           upper,
		lower:           lower,
		inProgress:      make(map[pageKey]*walkEntry),
		inflight:        make(map[string]*walkEntry),
	}
}

// ShiftAmount implements spec.md §4.5's per-level shift formula verbatim:
// LOG2_PAGE_SIZE + (log2_pte_page_size - log2(PTE_BYTES))*(level-1).
func (w *Walker) ShiftAmount(level int) uint64 {
	return w.log2PageSize + (w.log2PTEPageSize-w.log2PTEBytes)*uint64(level-1)
}

// indexBits is the number of index bits a single page-table node
// consumes: log2(node size / entry size).
func (w *Walker) indexBits() uint64 {
	return w.log2PTEPageSize - w.log2PTEBytes
}

// Offset extracts the per-level index out of vaddr: (vaddr >>
// ShiftAmount(level)) & mask, spec.md §4.5.
func (w *Walker) Offset(vaddr uint64, level int) uint64 {
	mask := (uint64(1) << w.indexBits()) - 1
	return (vaddr >> w.ShiftAmount(level)) & mask
}

// Operate drains ready translation requests off upper and ready
// per-level responses off lower, advancing every walk they touch. It
// reports whether any work was done.
func (w *Walker) Operate(now uint64) bool {
	madeProgress := w.receiveResponses(now)
	madeProgress = w.admit(now) || madeProgress

	return madeProgress
}

func (w *Walker) admit(now uint64) bool {
	progress := false

	for {
		r, ok := w.upper.PopReadyRQ(now)
		if !ok {
			break
		}

		w.translate(now, r)
		progress = true
	}

	return progress
}

// translate starts a new walk for r, or merges r into an already
// in-progress walk for the same ASID and page.
func (w *Walker) translate(now uint64, r *request.Request) {
	key := pageKey{asid: r.ASID, page: r.VAddr >> w.log2PageSize}

	if entry, ok := w.inProgress[key]; ok {
		entry.Waiters = append(entry.Waiters, r)
		return
	}

	entry := &walkEntry{
		ASID:         r.ASID,
		VAddr:        r.VAddr,
		Level:        w.levels,
		CurrentFrame: w.alloc.RootFrame(r.ASID),
		Waiters:      []*request.Request{r},
	}
	w.inProgress[key] = entry

	w.issueLevelRead(now, entry)
}

// pteAddress is the byte address of the PTE slot entry.Level's index
// selects within the node currently open at entry.CurrentFrame.
func (w *Walker) pteAddress(entry *walkEntry) uint64 {
	return entry.CurrentFrame + w.Offset(entry.VAddr, entry.Level)*(uint64(1)<<w.log2PTEBytes)
}

func (w *Walker) issueLevelRead(now uint64, entry *walkEntry) {
	down := request.New(entry.VAddr, request.Translation, entry.ASID)
	down.PAddr = w.pteAddress(entry)
	down.ReturnTo = []request.ReturnDestination{w.lower}

	w.lower.AddRQ(now, down)
	w.inflight[down.ID] = entry
}

func (w *Walker) receiveResponses(now uint64) bool {
	progress := false

	for {
		r, ok := w.lower.PopReadyResponse(now)
		if !ok {
			break
		}

		entry, found := w.inflight[r.ID]
		if !found {
			continue
		}

		delete(w.inflight, r.ID)
		w.advance(now, entry)
		progress = true
	}

	return progress
}

// advance resolves the PTE the just-completed read targeted, minting a
// fresh frame on a translation miss (spec.md §4.5, "never surfaced as an
// error"), then either drops to the next level down or, at level 1,
// completes the walk.
func (w *Walker) advance(now uint64, entry *walkEntry) {
	key := w.pteAddress(entry)

	pte, ok := w.pt.Find(entry.ASID, key)
	if !ok {
		pte = vmem.Entry{ASID: entry.ASID, Key: key, Frame: w.alloc.AllocateFrame(), Valid: true}
		w.pt.Insert(pte)
	}

	if entry.Level == 1 {
		w.complete(now, entry, pte.Frame)
		return
	}

	entry.Level--
	entry.CurrentFrame = pte.Frame

	w.issueLevelRead(now, entry)
}

func (w *Walker) complete(now uint64, entry *walkEntry, frame uint64) {
	pageOffsetMask := (uint64(1) << w.log2PageSize) - 1
	paddr := frame | (entry.VAddr & pageOffsetMask)

	delete(w.inProgress, pageKey{asid: entry.ASID, page: entry.VAddr >> w.log2PageSize})

	for _, waiter := range entry.Waiters {
		waiter.PAddr = paddr
		waiter.EventCycle = now

		for _, dest := range waiter.ReturnTo {
			dest.Notify(now, waiter)
		}
	}
}
