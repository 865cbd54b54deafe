package addr

// Layout carries the shift amounts that turn a raw address into the named
// slices the memory hierarchy operates on. It is produced once from
// config.System and threaded to every component that needs to decode an
// address — mirroring the source's BLOCK_SIZE/PAGE_SIZE build-time
// constants, but as a runtime value (spec.md §6).
type Layout struct {
	Log2BlockSize int
	Log2PageSize  int
}

// FullExtent is the extent of a complete 64-bit address.
var FullExtent = Extent{Upper: 64, Lower: 0}

// Address wraps a full 64-bit address as a Slice over FullExtent.
func (l Layout) Address(v uint64) Slice {
	return NewSlice(FullExtent, v)
}

// BlockNumberExtent is the extent of the block-number slice.
func (l Layout) BlockNumberExtent() Extent {
	return Extent{Upper: 64, Lower: l.Log2BlockSize}
}

// BlockOffsetExtent is the extent of the block-offset slice.
func (l Layout) BlockOffsetExtent() Extent {
	return Extent{Upper: l.Log2BlockSize, Lower: 0}
}

// PageNumberExtent is the extent of the page-number slice.
func (l Layout) PageNumberExtent() Extent {
	return Extent{Upper: 64, Lower: l.Log2PageSize}
}

// PageOffsetExtent is the extent of the page-offset slice.
func (l Layout) PageOffsetExtent() Extent {
	return Extent{Upper: l.Log2PageSize, Lower: 0}
}

// BlockNumber extracts the block-number slice from a full address.
func (l Layout) BlockNumber(a Slice) Slice {
	return a.Slice(Extent{Upper: FullExtent.Upper, Lower: l.Log2BlockSize})
}

// BlockOffset extracts the block-offset slice from a full address.
func (l Layout) BlockOffset(a Slice) Slice {
	return a.Slice(Extent{Upper: l.Log2BlockSize, Lower: 0})
}

// PageNumber extracts the page-number slice from a full address.
func (l Layout) PageNumber(a Slice) Slice {
	return a.Slice(Extent{Upper: FullExtent.Upper, Lower: l.Log2PageSize})
}

// PageOffset extracts the page-offset slice from a full address.
func (l Layout) PageOffset(a Slice) Slice {
	return a.Slice(Extent{Upper: l.Log2PageSize, Lower: 0})
}

// BlockAddress rounds a is down to its containing block address.
func (l Layout) BlockAddress(a Slice) uint64 {
	return l.Splice(l.BlockNumber(a), NewSlice(l.BlockOffsetExtent(), 0)).To()
}

// Splice is a convenience wrapper around the package-level Splice for
// layout-derived slices.
func (l Layout) Splice(slices ...Slice) Slice {
	return Splice(slices...)
}
