package dram

import "github.com/sarchlab/coresim/addr"

// Decode carries the bit-widths of every field in a DRAM physical
// address, low to high: block offset, channel, bank, column, rank, row —
// spec.md §4.4's exact decode order, matching
// original_source/test/cpp/src/701-dram-scheduler.cc's slice layout.
type Decode struct {
	Log2BlockSize int
	Log2Channels  int
	Log2Banks     int
	Log2Columns   int
	Log2Ranks     int
}

// Fields is one address fully decoded into its named components.
type Fields struct {
	BlockOffset uint64
	Channel     int
	Bank        int
	Column      uint64
	Rank        int
	Row         uint64
}

func (d Decode) extents() (blockOff, channel, bank, column, rank, row addr.Extent) {
	off := 0

	blockOff = addr.Extent{Upper: off + d.Log2BlockSize, Lower: off}
	off += d.Log2BlockSize

	channel = addr.Extent{Upper: off + d.Log2Channels, Lower: off}
	off += d.Log2Channels

	bank = addr.Extent{Upper: off + d.Log2Banks, Lower: off}
	off += d.Log2Banks

	column = addr.Extent{Upper: off + d.Log2Columns, Lower: off}
	off += d.Log2Columns

	rank = addr.Extent{Upper: off + d.Log2Ranks, Lower: off}
	off += d.Log2Ranks

	row = addr.Extent{Upper: 64, Lower: off}

	return
}

// extractField reads e out of full, or returns 0 for a zero-width field
// (e.g. Log2Channels == 0 for a single-channel configuration) — Extent
// rejects zero-width ranges, so those fields never reach Slice at all.
func extractField(full addr.Slice, e addr.Extent) uint64 {
	if e.Bits() == 0 {
		return 0
	}

	return full.Slice(e).Aligned()
}

// Decode splits a physical address into its DRAM fields. Extents are
// relative to a full 64-bit address whose own lower bound is 0, so they
// can be passed to Slice.Slice unmodified.
func (d Decode) Decode(paddr uint64) Fields {
	blockOffE, channelE, bankE, columnE, rankE, rowE := d.extents()
	full := addr.NewSlice(addr.Extent{Upper: 64, Lower: 0}, paddr)

	return Fields{
		BlockOffset: extractField(full, blockOffE),
		Channel:     int(extractField(full, channelE)),
		Bank:        int(extractField(full, bankE)),
		Column:      extractField(full, columnE),
		Rank:        int(extractField(full, rankE)),
		Row:         extractField(full, rowE),
	}
}

// injectField builds the contribution of one field to a full address, or
// the empty slice for a zero-width field.
func injectField(e addr.Extent, value uint64) (addr.Slice, bool) {
	if e.Bits() == 0 {
		return addr.Slice{}, false
	}

	return addr.NewSlice(e, value<<uint(e.Lower)), true
}

// Address reconstructs a physical address from its DRAM fields, the
// inverse of Decode. Only the package's tests call it; the scheduler does
// not use it.
func (d Decode) Address(f Fields) uint64 {
	blockOffE, channelE, bankE, columnE, rankE, rowE := d.extents()

	values := []struct {
		e addr.Extent
		v uint64
	}{
		{rowE, f.Row},
		{rankE, uint64(f.Rank)},
		{columnE, f.Column},
		{bankE, uint64(f.Bank)},
		{channelE, uint64(f.Channel)},
		{blockOffE, f.BlockOffset},
	}

	var slices []addr.Slice

	for _, fv := range values {
		if s, ok := injectField(fv.e, fv.v); ok {
			slices = append(slices, s)
		}
	}

	if len(slices) == 0 {
		return 0
	}

	return addr.Splice(slices...).To()
}
