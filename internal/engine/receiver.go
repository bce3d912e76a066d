package engine

import (
	"github.com/heistp/homaflow/internal/flowtable"
	"github.com/heistp/homaflow/internal/pktio"
	"github.com/heistp/homaflow/internal/wire"
)

// Dispatch decodes every received packet and routes it to the sender-side
// or receiver-side handler by type, then returns the packet to the plane's
// mempool. See flowgen.c's recv_pkt.
func (e *Engine) Dispatch(pkts []*pktio.Packet) {
	for _, pkt := range pkts {
		frame, err := wire.Decode(pkt.Data[:pkt.Len])
		if err != nil {
			e.logf("decode error: %v", err)
			e.cfg.Plane.FreePacket(pkt)
			continue
		}

		switch frame.Type {
		case wire.GrantRequest:
			e.recvGrantRequest(frame)
		case wire.Grant:
			e.onGrantReceived(frame)
		case wire.Data:
			e.recvData(frame)
		default:
			e.logf("dropping packet with unrecognized type %d", frame.Type)
		}

		e.cfg.Plane.FreePacket(pkt)
	}
	e.flushSenderTX()
}

// recvGrantRequest starts the receiver side of a flow the first time its
// GRANT_REQUEST arrives; retransmitted requests for an already-started flow
// are a no-op, since the flow is already in the active set awaiting its
// grant or already past it (spec.md §4.6).
func (e *Engine) recvGrantRequest(frame *wire.Frame) {
	f := e.cfg.ReceiverTable.Get(flowtable.FlowID(frame.FlowID))
	if f.State != flowtable.ReceiverPending {
		return
	}

	f.SrcIP, f.DstIP = frame.SrcIP, frame.DstIP
	f.SrcPort, f.DstPort = frame.SrcPort, frame.DstPort
	f.FlowSize = flowtable.Bytes(frame.GrantRequest.FlowSize)
	f.RemainSize = f.FlowSize
	f.DataRecvNext = 1
	f.StartTime = e.now
	f.State = flowtable.ReceiverGrantSending

	if !e.receiverActive.Add(int(f.ID)) {
		e.cfg.Metrics.ActiveSetFull.Inc()
		e.logf("receiver active set full, flow %d grant delayed", f.ID)
	}
	e.receiverTotal++
}

// recvData advances a flow's receive cursor and closes it once every byte
// has arrived. DATA arriving for a flow not in GRANT_SENDING is silently
// dropped (spec.md §4.6) — this covers both a flow that hasn't registered
// yet (still PENDING) and one that's already CLOSED. A sent_seq that
// doesn't match the expected DataRecvNext is treated as a resync point
// rather than a stall (spec.md §9 Open Question 2): the gap or overlap is
// logged and counted, and the cursor jumps to where this packet says it
// ends.
func (e *Engine) recvData(frame *wire.Frame) {
	f := e.cfg.ReceiverTable.Get(flowtable.FlowID(frame.FlowID))
	if f.State != flowtable.ReceiverGrantSending {
		return
	}

	dataLen := uint32(frame.Data.DataLen)
	if frame.SentSeq != f.DataRecvNext {
		e.cfg.Metrics.SequenceMismatches.Inc()
		e.logf("flow %d: expected sent_seq %d, got %d, resyncing", f.ID, f.DataRecvNext, frame.SentSeq)
	}
	f.DataRecvNext = frame.SentSeq + dataLen

	if flowtable.Bytes(dataLen) >= f.RemainSize {
		f.RemainSize = 0
	} else {
		f.RemainSize -= flowtable.Bytes(dataLen)
	}
	e.cfg.Metrics.DataPacketsReceived.Inc()
	e.cfg.Metrics.BytesReceived.Add(float64(dataLen))

	if f.RemainSize == 0 {
		f.State = flowtable.ReceiverClosed
		f.FlowFinished = true
		f.FinishTime = e.now
		e.receiverFinished++
		e.cfg.Metrics.FlowsCompleted.Inc()
		e.cfg.Metrics.FCTSeconds.Observe(f.FinishTime - f.StartTime)
		e.receiverActive.Remove(int(f.ID))
	}
}

// ReceiverTick sorts the active set by remaining size (smallest first) and
// grants the top ScheduledPriority flows their entire remaining window in
// one shot, each at a distinct priority rank. See flowgen.c's
// sort_receiver_active_flow_by_remaining_size and send_grant.
func (e *Engine) ReceiverTick() {
	less := func(a, b int) bool {
		fa := e.cfg.ReceiverTable.Get(flowtable.FlowID(a))
		fb := e.cfg.ReceiverTable.Get(flowtable.FlowID(b))
		return fa.RemainSize < fb.RemainSize
	}
	e.receiverActive.CompactSortBy(less)

	granted := 0
	idx := -1
	for granted < ScheduledPriority {
		idx = e.receiverActive.NextIndex(idx)
		if idx == -1 {
			break
		}
		id := e.receiverActive.At(idx)
		f := e.cfg.ReceiverTable.Get(flowtable.FlowID(id))
		if f.State != flowtable.ReceiverGrantSending {
			continue
		}
		e.sendGrant(f, uint8(granted))
		e.receiverActive.Remove(id)
		granted++
	}
	e.flushReceiverTX()
}

// sendGrant emits a GRANT authorizing f's sender to send its entire
// remaining window at the given priority rank.
func (e *Engine) sendGrant(f *flowtable.ReceiverFlow, priorityRank uint8) {
	seqGranted := f.DataRecvNext - 1 + uint32(f.RemainSize)
	frame := e.buildFrame(f.DstIP, f.SrcIP, f.DstPort, f.SrcPort, wire.Grant, f.ID, 0, priorityRank)
	frame.Grant = &wire.GrantPayload{SeqGranted: seqGranted, Priority: priorityRank}
	e.emit(frame, false)
	e.cfg.Metrics.GrantsSent.Inc()
}
