package dram

// CommandKind enumerates the DRAM commands the scheduler can issue.
type CommandKind int

const (
	CommandActivate CommandKind = iota
	CommandPrecharge
	CommandRead
	CommandWrite
)

// Timing holds the cycle-count DRAM timing parameters referenced by
// spec.md §4.4. Values are deliberately simple integers rather than the
// nanosecond-denominated constants the original's MEMORY_CONTROLLER
// constructor takes (see DESIGN.md's dram entry: dram_controller.h and
// defaults.hpp, which hold the exact conversion from those nanosecond
// values to cycles, are absent from the retrieved original_source
// subset).
type Timing struct {
	TRCD uint64 // activate -> read/write
	TRAS uint64 // activate -> precharge
	TRP  uint64 // precharge -> activate
	TCAS uint64 // read issue -> data ready
	TCWD uint64 // write issue -> data committed

	RefreshPeriod   uint64 // cycles between refresh windows, per rank
	RefreshDuration uint64 // length of a refresh window, in cycles
}
