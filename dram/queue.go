package dram

import "github.com/sarchlab/coresim/request"

// accessState tracks a PendingAccess through DRAM's two-phase access
// (ACTIVATE, then READ/WRITE) per spec.md §4.4 step 2-3.
type accessState int

const (
	stateWaiting accessState = iota
	stateIssued
)

// PendingAccess is one request admitted into a DRAM channel's read or
// write queue, together with the bookkeeping the scheduler needs: its
// decoded address fields, arrival cycle (for oldest-first tiebreaks),
// and current state in the two-phase access sequence.
type PendingAccess struct {
	Req     *request.Request
	Fields  Fields
	Arrived uint64

	state      accessState
	completeAt uint64
}
