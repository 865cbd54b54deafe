// Package replace implements the cache replacement plug-in contract from
// spec.md §4.2 "Replacement contract": find_victim and
// update_replacement_state, kept outside the cache block itself so block
// data and policy data have independent lifetimes (spec.md §3).
package replace

import "github.com/sarchlab/coresim/request"

// BlockMeta is the subset of a cache block's tag-array state a
// replacement policy needs to make its decision.
type BlockMeta struct {
	Valid bool
	Dirty bool
	Addr  uint64
}

// Policy is the uniform contract every replacement module satisfies.
// FindVictim is total: it must return a way in [0, numWays).
type Policy interface {
	FindVictim(
		cpu int,
		instrID uint64,
		set int,
		blockRow []BlockMeta,
		ip, addr uint64,
		typ request.AccessType,
	) int

	// UpdateReplacementState is called exactly once per access, whether
	// it was a hit or a fill (spec.md §4.2).
	UpdateReplacementState(
		cpu, set, way int,
		addr, ip, victimAddr uint64,
		typ request.AccessType,
		hit bool,
	)
}
