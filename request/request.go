// Package request defines the Request record that flows through the
// memory hierarchy: channels, MSHRs, caches, the DRAM controller, and the
// page-table walker all operate on *Request values.
package request

import "github.com/rs/xid"

// AccessType classifies a Request the way spec.md §3 requires.
type AccessType int

// The access-type family. Two requests are only mergeable if their
// families match exactly (spec.md §3 "Two requests are mergeable").
const (
	Load AccessType = iota
	RFO
	Prefetch
	Write
	Translation
)

func (t AccessType) String() string {
	switch t {
	case Load:
		return "LOAD"
	case RFO:
		return "RFO"
	case Prefetch:
		return "PREFETCH"
	case Write:
		return "WRITE"
	case Translation:
		return "TRANSLATION"
	default:
		return "UNKNOWN"
	}
}

// ASID is an address-space id.
type ASID uint32

// PrefetchMetadata carries the extra bookkeeping a prefetch request needs
// as it threads through the hierarchy (spec.md §3).
type PrefetchMetadata struct {
	Degree      int
	Signature   uint32
	Confidence  uint8
	OriginLevel int
}

// ReturnDestination is any unit that wants to be notified when a Request
// completes. channel.Channel implements this; the page-table walker keeps
// its own internal notification path for in-progress translation waiters.
type ReturnDestination interface {
	Notify(now uint64, r *Request)
}

// Request is the record that flows between units. Fields not relevant to
// a given access type are left at their zero value.
type Request struct {
	ID string

	VAddr uint64
	PAddr uint64

	InstrID uint64
	IP      uint64

	Type AccessType
	ASID ASID

	Prefetch PrefetchMetadata

	// ReturnTo holds the upper-level units to notify on completion. A
	// request with zero ReturnTo entries still runs to completion; it
	// simply has no one to tell (e.g. a pure prefetch with
	// fill_this_level == false, per spec.md §4.6).
	ReturnTo []ReturnDestination

	// Dependents is a set of stable indices into the originating core's
	// instruction window, replacing the source's iterator back-references
	// per the Design Note on ooo_model_instr dependency chains. coresim
	// does not implement the OoO core itself (Non-goal), so this field is
	// opaque payload threaded through unchanged.
	Dependents []int

	// EventCycle is the earliest cycle at which this request becomes
	// eligible for further processing (spec.md §4.1).
	EventCycle uint64

	// CycleEnqueued records when the request first entered the
	// hierarchy, used to compute round-trip latency statistics.
	CycleEnqueued uint64
}

// New creates a Request with a fresh globally unique ID.
func New(vaddr uint64, typ AccessType, asid ASID) *Request {
	return &Request{
		ID:    xid.New().String(),
		VAddr: vaddr,
		Type:  typ,
		ASID:  asid,
	}
}

// family groups access types that are allowed to merge with one another
// in an MSHR. LOAD and PREFETCH share a family: a demand load arriving
// behind an outstanding prefetch to the same block merges into it (and
// vice versa), matching ChampSim's MSHR-merge behavior. RFO and WRITE
// retain read-modify-write semantics and mergeability is restricted to
// identical types.
func (t AccessType) family() int {
	switch t {
	case Load, Prefetch:
		return 0
	case RFO:
		return 1
	case Write:
		return 2
	case Translation:
		return 3
	default:
		return -1
	}
}

// BlockAddress returns the block-aligned physical address used as the
// merge key, given the block size in bytes.
func (r *Request) BlockAddress(blockSize uint64) uint64 {
	return r.PAddr &^ (blockSize - 1)
}

// Mergeable reports whether r and other may be coalesced into the same
// MSHR entry: same block address, same access-type family, same address
// space (spec.md §3).
func Mergeable(r, other *Request, blockSize uint64) bool {
	return r.BlockAddress(blockSize) == other.BlockAddress(blockSize) &&
		r.Type.family() == other.Type.family() &&
		r.ASID == other.ASID
}
