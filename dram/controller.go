// Package dram implements the DRAM channel and FR-FCFS memory
// controller of spec.md §4.4: per-bank row-buffer state, address
// decoding, and the read/write queue scheduler.
//
// Grounded on sarchlab-akita's mem/dram/memcontroller.go (top-level Tick
// sequencing: respond, tick channel, issue, tick queue, parse-top) and
// mem/dram/internal/org/bank.go's GetReadyCommand/StartCommand/
// UpdateTiming/Tick shape, reimplemented against integer cycles instead
// of VTimeInSec.
package dram

import (
	"github.com/sarchlab/coresim/channel"
)

// Controller is the top of the DRAM subsystem: it owns every physical
// Channel, accepts requests off a single upstream link, decodes each
// one's target channel, and routes completions back the same way
// (spec.md §4.4).
type Controller struct {
	decode   Decode
	channels []*Channel
	upper    *channel.Channel
}

// NewController builds a Controller with len(cfgs) channels, one per
// cfgs entry, all fed by the same upstream link.
func NewController(decode Decode, cfgs []Config, upper *channel.Channel) *Controller {
	chans := make([]*Channel, len(cfgs))
	for i, cfg := range cfgs {
		chans[i] = NewChannel(cfg)
	}

	return &Controller{decode: decode, channels: chans, upper: upper}
}

// Channel returns the i'th physical channel, for tests and statistics.
func (ctl *Controller) Channel(i int) *Channel {
	return ctl.channels[i]
}

// Operate drives one cycle: admit newly arrived requests into their
// decoded target channel (stalling, not reordering, if that channel's
// queue is full), then let every channel complete finished commands and
// issue its next one.
func (ctl *Controller) Operate(now uint64) bool {
	madeProgress := ctl.admit(now)

	for _, ch := range ctl.channels {
		madeProgress = ch.Operate(now) || madeProgress
	}

	return madeProgress
}

// admit pulls ready requests off the upstream link's RQ/WQ in arrival
// order, routing each to its decoded channel. A request whose target
// channel queue is full blocks further admission from that same queue
// this cycle (spec.md §4.1: a queue's head-of-line request is never
// skipped over).
func (ctl *Controller) admit(now uint64) bool {
	progress := false

	for {
		r, ok := ctl.upper.PeekReadyRQ(now)
		if !ok {
			break
		}

		f := ctl.decode.Decode(r.PAddr)

		ch := ctl.channels[f.Channel%len(ctl.channels)]
		if !ch.canAdmitRead() {
			break
		}

		ctl.upper.DropPeekedRQ()
		ch.admitRead(now, r, f)
		progress = true
	}

	for {
		r, ok := ctl.upper.PeekReadyWQ(now)
		if !ok {
			break
		}

		f := ctl.decode.Decode(r.PAddr)

		ch := ctl.channels[f.Channel%len(ctl.channels)]
		if !ch.canAdmitWrite() {
			break
		}

		ctl.upper.DropPeekedWQ()
		ch.admitWrite(now, r, f)
		progress = true
	}

	return progress
}
