// Package prefetch defines the prefetcher plug-in bridge (spec.md §4.2
// "Prefetcher contract", §4.6 "prefetch_line") and the GASP lookahead
// prefetcher that fixes the contract's shape (spec.md §4.7).
//
// The source feature-detects three historical call signatures at
// compile time. Per the Design Notes ("Dynamic dispatch on modules"),
// coresim exposes a single canonical Go signature instead of replicating
// that detection machinery; CacheOperate/CacheFill/CycleOperate are the
// one shape every module implements.
package prefetch

import "github.com/sarchlab/coresim/request"

// CacheOps is the narrow, non-owning view a prefetch module gets onto
// its owning cache (Design Note "Shared ownership of plug-in modules").
type CacheOps interface {
	// PrefetchLine implements spec.md §4.6: quantise to block address,
	// refuse under MSHR pressure unless fillThisLevel, otherwise enqueue.
	PrefetchLine(addr uint64, fillThisLevel bool, metadata uint32) bool

	// MSHROccupancyRatio returns MSHR_occupancy / MSHR_capacity.
	MSHROccupancyRatio() float64

	// VirtualPrefetch reports whether this cache allows prefetches to
	// cross page boundaries using virtual addresses.
	VirtualPrefetch() bool
}

// Module is the uniform prefetcher plug-in contract.
type Module interface {
	// CacheOperate is invoked on every tag lookup (hit or miss) before
	// the request leaves the cache; it returns the prefetch metadata to
	// carry forward.
	CacheOperate(
		ops CacheOps,
		addr, ip uint64,
		hit, useful bool,
		typ request.AccessType,
		metadata uint32,
	) uint32

	// CacheFill is invoked when a block is filled; it returns the
	// prefetch metadata to store in the newly filled block.
	CacheFill(
		ops CacheOps,
		addr uint64,
		set, way int,
		evicted bool,
		evictedAddr uint64,
		metadata uint32,
	) uint32

	// CycleOperate is the per-cycle hook that may call
	// ops.PrefetchLine (spec.md §4.2 step 4).
	CycleOperate(ops CacheOps)
}

// NoOp is a Module that never prefetches, for cache levels built with no
// prefetcher attached.
type NoOp struct{}

// CacheOperate returns metadata unchanged.
func (NoOp) CacheOperate(_ CacheOps, _, _ uint64, _, _ bool, _ request.AccessType, metadata uint32) uint32 {
	return metadata
}

// CacheFill returns metadata unchanged.
func (NoOp) CacheFill(_ CacheOps, _ uint64, _, _ int, _ bool, _ uint64, metadata uint32) uint32 {
	return metadata
}

// CycleOperate does nothing.
func (NoOp) CycleOperate(CacheOps) {}
