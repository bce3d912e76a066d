package engine

import (
	"time"

	"github.com/heistp/homaflow/internal/directory"
	"github.com/heistp/homaflow/internal/flowtable"
	"github.com/heistp/homaflow/internal/pktio"
	"github.com/heistp/homaflow/internal/wire"
)

// allocPacket allocates from the plane's mempool, counting exhaustion.
func (e *Engine) allocPacket() *pktio.Packet {
	pkt := e.cfg.Plane.AllocPacket()
	if pkt == nil {
		e.cfg.Metrics.MempoolExhausted.Inc()
		e.logf("mempool exhausted")
	}
	return pkt
}

// buildFrame fills in the header fields common to every packet type.
// Control packets (GRANT_REQUEST, GRANT) stamp TOS 0; DATA stamps priority.
func (e *Engine) buildFrame(srcIP, dstIP uint32, srcPort, dstPort uint16, typ wire.Type, flowID flowtable.FlowID, sentSeq uint32, priority uint8) *wire.Frame {
	dstServer := e.cfg.Directory.ServerID(dstIP)
	if dstServer == directory.Unknown {
		e.logf("directory miss constructing packet for flow %d, using zeroed MAC", flowID)
	}
	f := &wire.Frame{
		DstMAC:  e.cfg.Directory.MACOf(dstServer),
		SrcMAC:  e.cfg.Directory.MACOf(e.cfg.LocalServerID),
		SrcIP:   srcIP,
		DstIP:   dstIP,
		SrcPort: srcPort,
		DstPort: dstPort,
		SentSeq: sentSeq,
		Type:    typ,
		FlowID:  uint16(flowID),
	}
	if typ == wire.Data {
		f.TOS = priority
	}
	return f
}

// emit allocates a packet, encodes frame into it, and appends it to the
// sender or receiver TX burst buffer, flushing at BurstThreshold.
func (e *Engine) emit(frame *wire.Frame, sender bool) {
	pkt := e.allocPacket()
	if pkt == nil {
		return
	}
	n, err := wire.Encode(pkt.Data, frame)
	if err != nil {
		e.logf("encode error: %v", err)
		e.cfg.Plane.FreePacket(pkt)
		return
	}
	pkt.Len = n
	if sender {
		e.senderTXBurst = append(e.senderTXBurst, pkt)
		if len(e.senderTXBurst) >= BurstThreshold {
			e.flushSenderTX()
		}
	} else {
		e.receiverTXBurst = append(e.receiverTXBurst, pkt)
		if len(e.receiverTXBurst) >= BurstThreshold {
			e.flushReceiverTX()
		}
	}
}

func (e *Engine) flushSenderTX()   { e.flush(&e.senderTXBurst) }
func (e *Engine) flushReceiverTX() { e.flush(&e.receiverTXBurst) }

// flush transmits every packet in *buf, retrying the un-accepted tail per
// cfg.BurstTXRetry/BurstTXDelay, and frees whatever remains undelivered
// after retries are exhausted (spec.md §4.9, §7's transmission-loss kind).
func (e *Engine) flush(buf *[]*pktio.Packet) {
	pkts := *buf
	if len(pkts) == 0 {
		return
	}
	accepted := e.cfg.Plane.TxBurst(pkts)
	for retries := 0; accepted < len(pkts) && retries < e.cfg.BurstTXRetry; retries++ {
		time.Sleep(e.cfg.BurstTXDelay)
		accepted += e.cfg.Plane.TxBurst(pkts[accepted:])
	}
	if accepted < len(pkts) {
		dropped := pkts[accepted:]
		for _, p := range dropped {
			e.cfg.Plane.FreePacket(p)
		}
		e.logf("dropped %d packets after retry", len(dropped))
	}
	*buf = (*buf)[:0]
}
