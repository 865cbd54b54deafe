package ptw

import (
	"github.com/sarchlab/coresim/channel"
	"github.com/sarchlab/coresim/vmem"
)

// Builder is a fluent, immutable Walker builder in the teacher's With*
// idiom (mem/cache/builder.go), mirroring cache.Builder.
type Builder struct {
	levels          int
	log2PageSize    uint64
	log2PTEPageSize uint64
	log2PTEBytes    uint64
	alloc           *vmem.Allocator
	pt              *vmem.PageTable
	upper           *channel.Channel
	lower           *channel.Channel
}

// MakeBuilder returns a Builder seeded with a 4-level, 4KiB-page,
// 8-byte-PTE radix tree — a typical multi-level page-table shape.
func MakeBuilder() Builder {
	return Builder{
		levels:          4,
		log2PageSize:    12,
		log2PTEPageSize: 12,
		log2PTEBytes:    3,
	}
}

// WithLevels sets the radix-tree depth.
func (b Builder) WithLevels(n int) Builder { b.levels = n; return b }

// WithLog2PageSize sets the log2 of the leaf page size in bytes.
func (b Builder) WithLog2PageSize(n uint64) Builder { b.log2PageSize = n; return b }

// WithLog2PTEPageSize sets the log2 of a page-table node's size in bytes.
func (b Builder) WithLog2PTEPageSize(n uint64) Builder { b.log2PTEPageSize = n; return b }

// WithLog2PTEBytes sets the log2 of one page-table entry's size in bytes.
func (b Builder) WithLog2PTEBytes(n uint64) Builder { b.log2PTEBytes = n; return b }

// WithAllocator sets the physical-frame allocator.
func (b Builder) WithAllocator(a *vmem.Allocator) Builder { b.alloc = a; return b }

// WithPageTable sets the page-table node storage.
func (b Builder) WithPageTable(pt *vmem.PageTable) Builder { b.pt = pt; return b }

// WithUpper sets the channel translation requests arrive on.
func (b Builder) WithUpper(c *channel.Channel) Builder { b.upper = c; return b }

// WithLower sets the channel per-level PTE reads are issued into.
func (b Builder) WithLower(c *channel.Channel) Builder { b.lower = c; return b }

// Build constructs the Walker. alloc and pt default to fresh, empty
// instances if unset.
func (b Builder) Build() *Walker {
	alloc := b.alloc
	if alloc == nil {
		alloc = vmem.NewAllocator(b.log2PageSize, 0, 1<<20)
	}

	pt := b.pt
	if pt == nil {
		pt = vmem.NewPageTable()
	}

	return NewWalker(b.levels, b.log2PageSize, b.log2PTEPageSize, b.log2PTEBytes, alloc, pt, b.upper, b.lower)
}
