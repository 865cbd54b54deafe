package dram

// candidateEntry is one pending access under consideration for the next
// command slot, together with the command it would need next.
type candidateEntry struct {
	p       *PendingAccess
	isWrite bool
	kind    CommandKind
}

func oldestArrival(cands []*candidateEntry) *candidateEntry {
	best := cands[0]

	for _, c := range cands[1:] {
		if c.p.Arrived < best.p.Arrived {
			best = c
		}
	}

	return best
}

// issue implements spec.md §4.4's FR-FCFS scheduling rule: among entries
// ready to act this cycle, row-hits (a READ/WRITE the open row already
// satisfies) win over entries that still need ACTIVATE, with ties broken
// by oldest arrival in both groups. Above WriteHighWatermark the write
// queue holds exclusive access to the command slot until occupancy falls
// back to WriteLowWatermark (spec.md §4.4 step 4).
func (c *Channel) issue(now uint64) bool {
	if len(c.writeQueue) > c.cfg.WriteHighWatermark {
		c.draining = true
	} else if c.draining && len(c.writeQueue) <= c.cfg.WriteLowWatermark {
		c.draining = false
	}

	var rowHit, other []*candidateEntry

	scan := func(q []*PendingAccess, isWrite bool) {
		for _, p := range q {
			if p.state == stateIssued {
				continue
			}

			if c.rankBlocked(now, p.Fields.Rank) {
				continue
			}

			bank := &c.banks[p.Fields.Bank]

			ready, kind := bank.readyAt(now, p.Fields.Row, c.cfg.Timing)
			if ready > now {
				continue
			}

			ce := &candidateEntry{p: p, isWrite: isWrite, kind: kind}
			if kind == CommandActivate {
				other = append(other, ce)
			} else {
				rowHit = append(rowHit, ce)
			}
		}
	}

	if c.draining {
		scan(c.writeQueue, true)
	} else {
		scan(c.readQueue, false)
		scan(c.writeQueue, true)
	}

	var chosen *candidateEntry

	switch {
	case len(rowHit) > 0:
		chosen = oldestArrival(rowHit)
	case len(other) > 0:
		chosen = oldestArrival(other)
	default:
		return false
	}

	bank := &c.banks[chosen.p.Fields.Bank]

	if chosen.kind == CommandActivate {
		bank.startActivate(now, chosen.p.Fields.Row, c.cfg.Timing)
		return true
	}

	kind := CommandRead
	if chosen.isWrite {
		kind = CommandWrite
	}

	chosen.p.completeAt = bank.startCommand(now, kind, c.cfg.Timing)
	chosen.p.state = stateIssued

	return true
}
