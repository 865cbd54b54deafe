// Package config implements coresim's declarative system configuration
// (spec.md §6, "free to replace the build-time generator with runtime
// configuration as long as the constants are fixed for the lifetime of
// a run").
//
// Grounded on sarchlab-akita's mem/cache/builder.go fluent With* pattern
// and sarchlab-akkalat's config.WaferScaleGPUBuilder for the same idiom
// at system scope.
package config

import (
	"fmt"

	"github.com/sarchlab/coresim/dram"
)

// AddressLayout fixes the block and page shift amounts every component
// that decodes an address agrees on.
type AddressLayout struct {
	Log2BlockSize int
	Log2PageSize  uint64
}

// CacheConfig names one level of the cache hierarchy and carries its
// fixed parameters plus the MSHR capacity that level is built with.
type CacheConfig struct {
	Name         string
	NumSets      int
	NumWays      int
	HitLatency   uint64
	FillLatency  uint64
	MaxRead      int
	MaxWrite     int
	MSHRCapacity int
	NonInclusive bool
}

// PageTableConfig fixes the page-table walker's radix-tree geometry.
type PageTableConfig struct {
	Levels          int
	Log2PTEPageSize uint64
	Log2PTEBytes    uint64
}

// System is the one immutable record every component constructor is
// built from. Caches is ordered from the level closest to the core (L1)
// to the level closest to memory (the LLC).
type System struct {
	Layout  AddressLayout
	Caches  []CacheConfig
	DRAM    dram.Config
	PTW     PageTableConfig
	NumCPUs int
}

// Error wraps a configuration failure, matching the teacher's
// fmt.Errorf %w-wrapping idiom (spec.md §7, "Configuration error").
type Error struct {
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(msg string, cause error) *Error {
	return &Error{msg: msg, cause: cause}
}

// Validate checks the invariants spec.md §7 treats as fatal
// configuration errors: power-of-two sizes, non-zero associativity, and
// the MSHR-capacity ordering decided for Open Question (b) — an issuing
// level's MSHR capacity must be at least as large as every level below
// it that eventually returns a fill to it, otherwise a lower level could
// have more outstanding misses in flight than the level above it has
// fill slots to absorb.
func (s *System) Validate() error {
	if s.NumCPUs <= 0 {
		return newError("NumCPUs must be positive", nil)
	}

	if !isPowerOfTwo(uint64(1) << s.Layout.Log2BlockSize) {
		return newError("block size must be a power of two", nil)
	}

	if !isPowerOfTwo(uint64(1) << s.Layout.Log2PageSize) {
		return newError("page size must be a power of two", nil)
	}

	for i, c := range s.Caches {
		if err := validateCache(c); err != nil {
			return newError(fmt.Sprintf("cache %q (index %d)", c.Name, i), err)
		}

		if i > 0 && c.MSHRCapacity > s.Caches[i-1].MSHRCapacity {
			return newError(
				fmt.Sprintf(
					"cache %q's MSHR capacity (%d) exceeds issuing level %q's (%d)",
					c.Name, c.MSHRCapacity, s.Caches[i-1].Name, s.Caches[i-1].MSHRCapacity,
				),
				nil,
			)
		}
	}

	if s.PTW.Levels <= 0 {
		return newError("PTW.Levels must be positive", nil)
	}

	return nil
}

func validateCache(c CacheConfig) error {
	if !isPowerOfTwo(uint64(c.NumSets)) {
		return newError("NumSets must be a power of two", nil)
	}

	if c.NumWays <= 0 {
		return newError("NumWays must be positive", nil)
	}

	if c.MSHRCapacity <= 0 {
		return newError("MSHRCapacity must be positive", nil)
	}

	return nil
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}
