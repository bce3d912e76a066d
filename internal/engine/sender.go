package engine

import (
	"github.com/heistp/homaflow/internal/flowtable"
	"github.com/heistp/homaflow/internal/wire"
)

// SenderTick admits flows whose configured start time has arrived, retries
// grant requests that have gone unanswered too long, and flushes whatever
// got queued. See flowgen.c's start_new_flow and the grant-request
// retransmission loop in main_flowgen.
func (e *Engine) SenderTick() {
	e.admitNewFlows()
	e.retransmitStalledRequests()
	e.flushSenderTX()
}

// admitNewFlows starts locally-sourced flows in flow table order for as
// long as the next one's configured start time has elapsed; a flow is not
// admitted ahead of an earlier local flow whose start time is still to come.
func (e *Engine) admitNewFlows() {
	elapsed := e.now - float64(e.start)
	st := e.cfg.SenderTable
	for e.nextUnstart < st.Len() && st.Flows[e.nextUnstart].StartCfg <= elapsed {
		e.admitFlow(e.nextUnstart)
		e.nextUnstart = e.findNextUnstartFlowID(e.nextUnstart)
	}
}

// admitFlow sends a flow's GRANT_REQUEST announcing the full flow size,
// then its unscheduled initial burst, matching flowgen.c's start_new_flow
// order (construct_grant_request always runs first, unconditionally,
// before the unscheduled-data loop). The GRANT_REQUEST is always sent; if
// the unscheduled burst alone finishes the flow, closing it removes it from
// the retransmission set again.
func (e *Engine) admitFlow(idx int) {
	f := &e.cfg.SenderTable.Flows[idx]
	if f.DataSeqnum == 0 {
		f.DataSeqnum = 1
	}

	e.sendGrantRequest(f)
	e.cfg.Metrics.GrantRequestsSent.Inc()
	f.State = flowtable.SenderGrantRequestSent
	if !e.senderActive.Add(int(f.ID)) {
		e.cfg.Metrics.ActiveSetFull.Inc()
		e.logf("sender active set full, flow %d grant request retransmission untracked", f.ID)
	}

	burst := uint32(RTTBytes)
	if uint32(f.FlowSize) < burst {
		burst = uint32(f.FlowSize)
	}
	priority := mapToUnscheduledPriority(f.FlowSize)
	e.sendDataBurst(f, burst, priority)
}

// retransmitStalledRequests resends the GRANT_REQUEST for any flow whose
// request has been outstanding longer than RetransmitTimeout, up to
// MaxRequestRetransmitOneTime per tick (spec.md §4.7).
func (e *Engine) retransmitStalledRequests() {
	sent := 0
	idx := -1
	for sent < MaxRequestRetransmitOneTime {
		idx = e.senderActive.NextIndex(idx)
		if idx == -1 {
			break
		}
		id := e.senderActive.At(idx)
		f := e.cfg.SenderTable.Get(flowtable.FlowID(id))
		if f.State != flowtable.SenderGrantRequestSent {
			continue
		}
		if e.now-f.LastGrantRequestSentTime <= RetransmitTimeout {
			continue
		}
		e.sendGrantRequest(f)
		e.cfg.Metrics.GrantRequestsResent.Inc()
		sent++
	}
}

// sendGrantRequest emits a GRANT_REQUEST announcing f's full size and
// stamps the retransmission timer.
func (e *Engine) sendGrantRequest(f *flowtable.SenderFlow) {
	frame := e.buildFrame(f.SrcIP, f.DstIP, f.SrcPort, f.DstPort, wire.GrantRequest, f.ID, 0, 0)
	frame.GrantRequest = &wire.GrantRequestPayload{FlowSize: uint32(f.FlowSize)}
	e.emit(frame, true)
	f.LastGrantRequestSentTime = e.now
}

// sendDataBurst sends DATA packets for f starting at its current
// DataSeqnum, stopping at limitSeqnum (inclusive) or when the flow runs
// out of bytes, whichever comes first. Each chunk is capped at
// DefaultPktSize, following spec.md §8 Scenario B's worked arithmetic.
func (e *Engine) sendDataBurst(f *flowtable.SenderFlow, limitSeqnum uint32, priority uint8) {
	for f.DataSeqnum <= limitSeqnum && f.RemainSize > 0 {
		window := flowtable.Bytes(limitSeqnum - f.DataSeqnum + 1)
		chunk := DefaultPktSize
		if window < chunk {
			chunk = window
		}
		if f.RemainSize < chunk {
			chunk = f.RemainSize
		}
		if chunk == 0 {
			break
		}

		frame := e.buildFrame(f.SrcIP, f.DstIP, f.SrcPort, f.DstPort, wire.Data, f.ID, f.DataSeqnum, priority)
		frame.Data = &wire.DataPayload{DataLen: uint16(chunk), Payload: make([]byte, chunk)}
		e.emit(frame, true)

		f.DataSeqnum += uint32(chunk)
		f.RemainSize -= chunk
		e.cfg.Metrics.DataPacketsSent.Inc()
		e.cfg.Metrics.BytesSent.Add(float64(chunk))

		if f.RemainSize == 0 {
			f.State = flowtable.SenderClosed
			f.FlowFinished = true
			e.senderActive.Remove(int(f.ID))
			e.senderFinished++
			break
		}
	}
}

// onGrantReceived applies an incoming GRANT to the sender side of a flow:
// it records the new granted window and priority, preempts any lower-
// priority data still sitting in the TX burst, and sends as much of the
// newly-granted window as the flow has left (spec.md §4.5, §4.7).
func (e *Engine) onGrantReceived(frame *wire.Frame) {
	f := e.cfg.SenderTable.Get(flowtable.FlowID(frame.FlowID))
	if f.FlowFinished {
		return
	}
	e.cfg.Metrics.GrantsReceived.Inc()

	f.GrantedSeqnum = frame.Grant.SeqGranted
	f.GrantedPriority = frame.Grant.Priority
	f.State = flowtable.SenderGrantReceiving
	e.senderActive.Remove(int(f.ID))

	e.srptPreempt(f)
	e.sendDataBurst(f, f.GrantedSeqnum, f.GrantedPriority)
}

// srptPreempt flushes the sender TX burst early if its queued tail holds a
// DATA packet for some other flow whose remain_size exceeds f's remain_size
// (spec.md §4.7, flowgen.c's recv_grant). Strict SRPT ordering only binds
// packets once they're on the wire; this keeps a newly-favored, smaller-
// remaining flow's data from idling behind an already-queued packet for a
// flow with more bytes left (spec.md's Open Question 1 on empty-tail
// behavior; a non-empty, lower-priority-by-remain_size tail is the case it
// leaves for the implementation to decide, resolved here as early-flush).
func (e *Engine) srptPreempt(f *flowtable.SenderFlow) {
	if len(e.senderTXBurst) == 0 {
		return
	}
	tail := e.senderTXBurst[len(e.senderTXBurst)-1]
	typ, flowID, err := wire.PeekHeader(tail.Data[:tail.Len])
	if err != nil || typ != wire.Data || flowtable.FlowID(flowID) == f.ID {
		return
	}
	other := e.cfg.SenderTable.Get(flowtable.FlowID(flowID))
	if other.RemainSize > f.RemainSize {
		e.flushSenderTX()
	}
}
