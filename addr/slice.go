// Package addr provides strongly typed bit-field arithmetic over 64-bit
// addresses: slicing, splicing, and offset arithmetic are total operations
// that preserve the invariant that a slice's value never carries bits
// outside its extent.
package addr

import "fmt"

// Extent is an (upper, lower) bit range on a 64-bit address. Upper is
// exclusive, Lower is inclusive, so a full 64-bit extent is {64, 0}.
type Extent struct {
	Upper int
	Lower int
}

// Bits returns the width of the extent.
func (e Extent) Bits() int {
	return e.Upper - e.Lower
}

func (e Extent) mask() uint64 {
	if e.Bits() >= 64 {
		return ^uint64(0)
	}

	return (uint64(1)<<uint(e.Bits()) - 1) << uint(e.Lower)
}

func (e Extent) validate() {
	if e.Upper <= e.Lower {
		panic(fmt.Sprintf("addr: invalid extent {%d, %d}", e.Upper, e.Lower))
	}

	if e.Lower < 0 || e.Upper > 64 {
		panic(fmt.Sprintf("addr: extent {%d, %d} out of range", e.Upper, e.Lower))
	}
}

// Slice is a value restricted to the bit range described by Extent. The
// zero value is not meaningful; construct with NewSlice.
type Slice struct {
	Extent Extent
	Value  uint64
}

// NewSlice masks v into ext's bit range and returns the resulting Slice.
// This is the only constructor that performs masking implicitly; all
// other operations assume their inputs already satisfy the invariant.
func NewSlice(ext Extent, v uint64) Slice {
	ext.validate()

	return Slice{Extent: ext, Value: v & ext.mask()}
}

// mustMatch panics unless two slices share an extent. Most operations
// in this package are total only when extents match; this is the one
// runtime check that stands between "address bug" and silent corruption.
func mustMatch(a, b Slice) {
	if a.Extent != b.Extent {
		panic(fmt.Sprintf(
			"addr: extent mismatch {%d,%d} vs {%d,%d}",
			a.Extent.Upper, a.Extent.Lower, b.Extent.Upper, b.Extent.Lower))
	}
}

// Slice re-slices s to a sub-extent of s's own extent, relative to s's
// lower bound. sub.Lower and sub.Upper are offsets from s.Extent.Lower,
// not absolute bit positions.
func (s Slice) Slice(sub Extent) Slice {
	abs := Extent{Upper: s.Extent.Lower + sub.Upper, Lower: s.Extent.Lower + sub.Lower}
	if abs.Upper > s.Extent.Upper || abs.Lower < s.Extent.Lower {
		panic("addr: sub-extent exceeds parent extent")
	}

	return NewSlice(abs, s.Value)
}

// SliceUpper returns the top `bits` bits of s.
func (s Slice) SliceUpper(bits int) Slice {
	return s.Slice(Extent{Upper: s.Extent.Bits(), Lower: s.Extent.Bits() - bits})
}

// SliceLower returns the bottom `bits` bits of s.
func (s Slice) SliceLower(bits int) Slice {
	return s.Slice(Extent{Upper: bits, Lower: 0})
}

// Widen reinterprets s under a wider extent, zero-filling the newly
// exposed high bits. ext must be a superset of s.Extent.
func (s Slice) Widen(ext Extent) Slice {
	ext.validate()

	if ext.Upper < s.Extent.Upper || ext.Lower > s.Extent.Lower {
		panic("addr: Widen requires a superset extent")
	}

	return Slice{Extent: ext, Value: s.Value}
}

// To returns the raw numeric value of the slice, still positioned at its
// original bit offset (i.e. not right-shifted to bit 0).
func (s Slice) To() uint64 {
	return s.Value
}

// Aligned returns the slice's value shifted down so that its lowest bit
// sits at bit 0 — useful for using a slice as an array index.
func (s Slice) Aligned() uint64 {
	return s.Value >> uint(s.Extent.Lower)
}

// Add returns a new slice with d added to the value, masked back into
// the same extent (wrapping, matching the source's unchecked += on the
// underlying integer type).
func (s Slice) Add(d int64) Slice {
	return NewSlice(s.Extent, uint64(int64(s.Value)+d))
}

// Offset returns the signed difference (other - base) for two slices of
// matching extent, as a difference_type. It panics if the difference
// does not fit in an int64 (an overflow-checking offset, per spec).
func Offset(base, other Slice) int64 {
	mustMatch(base, other)

	bi := base.Aligned()
	oi := other.Aligned()

	d := int64(oi) - int64(bi)

	// Detect overflow: the magnitude of the true difference must fit in
	// an int64 (at most 2^63-1 upward, 2^63 downward); otherwise the
	// domain has been violated by the caller.
	if oi >= bi {
		if oi-bi > uint64(1)<<63-1 {
			panic("addr: Offset overflow")
		}
	} else {
		if bi-oi > uint64(1)<<63 {
			panic("addr: Offset overflow")
		}
	}

	return d
}

// UnsignedOffset returns the unsigned difference (other - base). It
// requires base <= other and panics otherwise.
func UnsignedOffset(base, other Slice) uint64 {
	mustMatch(base, other)

	bi := base.Aligned()
	oi := other.Aligned()

	if bi > oi {
		panic("addr: UnsignedOffset requires base <= other")
	}

	return oi - bi
}

// Splice combines multiple slices into one whose extent is the union of
// all argument extents. Later arguments take priority over earlier ones
// wherever their extents overlap.
func Splice(slices ...Slice) Slice {
	if len(slices) == 0 {
		panic("addr: Splice requires at least one slice")
	}

	result := slices[0].Extent

	for _, s := range slices[1:] {
		if s.Extent.Upper > result.Upper {
			result.Upper = s.Extent.Upper
		}

		if s.Extent.Lower < result.Lower {
			result.Lower = s.Extent.Lower
		}
	}

	var value uint64

	for _, s := range slices {
		value &^= s.Extent.mask()
		value |= s.Value
	}

	return NewSlice(result, value)
}
