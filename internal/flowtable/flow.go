// Package flowtable holds the per-flow state records the scheduler reads
// and mutates, split into a sender-side table and a receiver-side table as
// described in spec.md §3/§4.3. See flowgen.c's struct flow_info and init.
package flowtable

// FlowID identifies a flow across the whole configuration, shared between
// the sender and receiver tables.
type FlowID uint16

// SenderState is the sender-side flow_state enum (spec.md §4.5).
type SenderState int

const (
	// SenderPending is the implicit "no state yet" value for a flow the
	// sender scheduler hasn't admitted. It has no on-wire representation;
	// flowgen.c relies on zero-initialized memory here, which this type
	// makes explicit instead.
	SenderPending SenderState = iota
	SenderGrantRequestSent
	SenderGrantReceiving
	SenderClosed
)

func (s SenderState) String() string {
	switch s {
	case SenderPending:
		return "PENDING"
	case SenderGrantRequestSent:
		return "GRANT_REQUEST_SENT"
	case SenderGrantReceiving:
		return "GRANT_RECEIVING"
	case SenderClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ReceiverState is the receiver-side flow_state enum (spec.md §4.6).
type ReceiverState int

const (
	ReceiverPending ReceiverState = iota
	ReceiverGrantSending
	ReceiverClosed
)

func (s ReceiverState) String() string {
	switch s {
	case ReceiverPending:
		return "PENDING"
	case ReceiverGrantSending:
		return "GRANT_SENDING"
	case ReceiverClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SenderFlow is one sender-side flow record.
type SenderFlow struct {
	ID       FlowID
	SrcIP    uint32
	DstIP    uint32
	SrcPort  uint16
	DstPort  uint16
	FlowSize Bytes
	StartCfg float64 // configured start_time, relative to process start

	RemainSize               Bytes
	State                    SenderState
	DataSeqnum               uint32 // next byte sequence number to send, starts at 1
	GrantedSeqnum            uint32
	GrantedPriority          uint8
	LastGrantRequestSentTime float64
	FlowFinished             bool
}

// ReceiverFlow is one receiver-side flow record.
type ReceiverFlow struct {
	ID       FlowID
	SrcIP    uint32
	DstIP    uint32
	SrcPort  uint16
	DstPort  uint16
	FlowSize Bytes
	StartCfg float64

	RemainSize   Bytes
	State        ReceiverState
	StartTime    float64 // wall time of first GRANT_REQUEST
	FinishTime   float64
	DataRecvNext uint32 // starts at 1
	FlowFinished bool
	FCTPrinted   bool
}
