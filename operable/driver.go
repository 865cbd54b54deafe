// Package operable implements the cycle-driven round-robin driver that
// steps every component of the memory hierarchy in lockstep (spec.md
// §4.8/§5).
//
// Grounded on sarchlab-akita's sim/timing Ticker/TickScheduler concept,
// radically simplified: spec.md's model has one global cycle counter
// and no cross-unit event-scheduling latency beyond what channel.Channel
// already encodes, so coresim does not need akita's VTimeInSec
// float-time event heap. Units keep the "return whether progress was
// made" idiom shared by mem/dram/memcontroller.go's middleware.Tick and
// mem/vm/tlb/tlb.go's Comp.Tick, but Run ignores those reports: it stops
// only when its done predicate is satisfied.
package operable

// Unit is any component the driver steps once per cycle. Operate
// reports whether it did any work this cycle; units never yield
// mid-cycle (spec.md §5, "Suspension points: None").
type Unit interface {
	Operate(now uint64) bool
}

// Driver steps a fixed, ordered list of units once per cycle.
type Driver struct {
	units []Unit
	cycle uint64
}

// NewDriver creates a Driver that steps units in the given order every
// cycle (spec.md §5, "the driver's fixed list order").
func NewDriver(units ...Unit) *Driver {
	return &Driver{units: units}
}

// Cycle returns the current cycle count.
func (d *Driver) Cycle() uint64 {
	return d.cycle
}

// Run advances the driver one cycle at a time, calling every unit's
// Operate exactly once per cycle in registration order, until done
// reports the phase's target has been reached. It returns the cycle
// count at which the run stopped.
func (d *Driver) Run(done func(cycle uint64) bool) uint64 {
	for !done(d.cycle) {
		for _, u := range d.units {
			u.Operate(d.cycle)
		}

		d.cycle++
	}

	return d.cycle
}
