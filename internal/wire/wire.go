// Package wire implements the Homa packet codec: a TCP-shaped transport
// header, repurposed field-for-field, carried over standard Ethernet and
// IPv4 headers. See flowgen.c's construct_grant_request, construct_grant
// and construct_data for the byte layout this mirrors.
package wire

import "encoding/binary"

// Type is the one-byte packet-type discriminant carried in the transport
// header's tcp_flags byte.
type Type uint8

const (
	GrantRequest Type = 0x10
	Grant        Type = 0x11
	Data         Type = 0x12
)

func (t Type) String() string {
	switch t {
	case GrantRequest:
		return "GRANT_REQUEST"
	case Grant:
		return "GRANT"
	case Data:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

const (
	EthernetLen  = 14
	IPv4Len      = 20
	TransportLen = 20
	HeaderLen    = EthernetLen + IPv4Len + TransportLen // 54

	EtherTypeIPv4 = 0x0800
	ProtoTCP      = 6

	ipVersionIHL = 0x45
	ipTTL        = 64
)

// FlowSize and SeqGranted both reuse the same low/high 32-bit wire
// encoding: the low 16 bits travel in network byte order in what the
// transport header calls tcp_urp, the high 16 bits travel in native byte
// order in what the transport header calls cksum. This is the asymmetry
// spec.md's Wire Codec section and Design Notes both call out as an
// interop-critical detail that must not be "fixed up".

// GrantRequestPayload is the GRANT_REQUEST variant's fields.
type GrantRequestPayload struct {
	FlowSize uint32
}

// GrantPayload is the GRANT variant's fields.
type GrantPayload struct {
	SeqGranted uint32
	Priority   uint8
}

// DataPayload is the DATA variant's fields.
type DataPayload struct {
	DataLen uint16
	Payload []byte
}

// Frame is a decoded Homa packet: Ethernet + IPv4 + transport header,
// plus exactly one of the three type-specific payloads.
type Frame struct {
	DstMAC, SrcMAC [6]byte

	SrcIP, DstIP uint32
	TOS          uint8

	SrcPort, DstPort uint16
	SentSeq          uint32
	Type             Type
	FlowID           uint16

	GrantRequest *GrantRequestPayload
	Grant        *GrantPayload
	Data         *DataPayload
}

// Len returns the total on-wire length of f once encoded.
func (f *Frame) Len() int {
	n := HeaderLen
	if f.Data != nil {
		n += len(f.Data.Payload)
	}
	return n
}

// Encode serializes f into buf, which must be at least f.Len() bytes.
// Returns the number of bytes written.
func Encode(buf []byte, f *Frame) (int, error) {
	n := f.Len()
	if len(buf) < n {
		return 0, errShortBuffer
	}

	// Ethernet
	copy(buf[0:6], f.DstMAC[:])
	copy(buf[6:12], f.SrcMAC[:])
	binary.BigEndian.PutUint16(buf[12:14], EtherTypeIPv4)

	// IPv4
	ip := buf[EthernetLen : EthernetLen+IPv4Len]
	ip[0] = ipVersionIHL
	ip[1] = f.TOS
	binary.BigEndian.PutUint16(ip[2:4], uint16(IPv4Len+TransportLen+payloadLen(f)))
	binary.BigEndian.PutUint16(ip[4:6], 0) // identification
	binary.BigEndian.PutUint16(ip[6:8], 0) // flags/frag offset
	ip[8] = ipTTL
	ip[9] = ProtoTCP
	binary.BigEndian.PutUint16(ip[10:12], 0) // checksum, filled below
	binary.BigEndian.PutUint32(ip[12:16], f.SrcIP)
	binary.BigEndian.PutUint32(ip[16:20], f.DstIP)
	csum := Checksum(ip)
	binary.BigEndian.PutUint16(ip[10:12], csum)

	// Transport
	t := buf[EthernetLen+IPv4Len : HeaderLen]
	binary.BigEndian.PutUint16(t[0:2], f.SrcPort)
	binary.BigEndian.PutUint16(t[2:4], f.DstPort)
	binary.BigEndian.PutUint32(t[4:8], f.SentSeq)
	binary.BigEndian.PutUint32(t[8:12], 0) // recv_ack: unused, see DESIGN.md
	t[12] = 0                              // data_off / priority_granted
	t[13] = byte(f.Type)                   // tcp_flags / PKT_TYPE
	binary.BigEndian.PutUint16(t[14:16], f.FlowID)

	switch f.Type {
	case GrantRequest:
		if f.GrantRequest == nil {
			return 0, errMissingPayload
		}
		low := uint16(f.GrantRequest.FlowSize & 0xffff)
		high := uint16(f.GrantRequest.FlowSize >> 16)
		binary.NativeEndian.PutUint16(t[16:18], high)
		binary.BigEndian.PutUint16(t[18:20], low)
	case Grant:
		if f.Grant == nil {
			return 0, errMissingPayload
		}
		t[12] = f.Grant.Priority
		low := uint16(f.Grant.SeqGranted & 0xffff)
		high := uint16(f.Grant.SeqGranted >> 16)
		binary.NativeEndian.PutUint16(t[16:18], high)
		binary.BigEndian.PutUint16(t[18:20], low)
	case Data:
		if f.Data == nil {
			return 0, errMissingPayload
		}
		binary.BigEndian.PutUint16(t[18:20], f.Data.DataLen)
		copy(buf[HeaderLen:n], f.Data.Payload)
	default:
		return 0, errUnknownType
	}
	return n, nil
}

func payloadLen(f *Frame) int {
	if f.Data != nil {
		return len(f.Data.Payload)
	}
	return 0
}

// Decode parses a Homa packet out of buf.
func Decode(buf []byte) (*Frame, error) {
	if len(buf) < HeaderLen {
		return nil, errShortBuffer
	}
	f := &Frame{}
	copy(f.DstMAC[:], buf[0:6])
	copy(f.SrcMAC[:], buf[6:12])

	ip := buf[EthernetLen : EthernetLen+IPv4Len]
	f.TOS = ip[1]
	if ip[9] != ProtoTCP {
		return nil, errNotTCP
	}
	f.SrcIP = binary.BigEndian.Uint32(ip[12:16])
	f.DstIP = binary.BigEndian.Uint32(ip[16:20])

	t := buf[EthernetLen+IPv4Len : HeaderLen]
	f.SrcPort = binary.BigEndian.Uint16(t[0:2])
	f.DstPort = binary.BigEndian.Uint16(t[2:4])
	f.SentSeq = binary.BigEndian.Uint32(t[4:8])
	f.Type = Type(t[13])
	f.FlowID = binary.BigEndian.Uint16(t[14:16])

	switch f.Type {
	case GrantRequest:
		high := uint32(binary.NativeEndian.Uint16(t[16:18]))
		low := uint32(binary.BigEndian.Uint16(t[18:20]))
		f.GrantRequest = &GrantRequestPayload{FlowSize: high<<16 | low}
	case Grant:
		high := uint32(binary.NativeEndian.Uint16(t[16:18]))
		low := uint32(binary.BigEndian.Uint16(t[18:20]))
		f.Grant = &GrantPayload{SeqGranted: high<<16 | low, Priority: t[12]}
	case Data:
		dataLen := binary.BigEndian.Uint16(t[18:20])
		n := int(dataLen)
		if HeaderLen+n > len(buf) {
			n = len(buf) - HeaderLen
		}
		payload := make([]byte, n)
		copy(payload, buf[HeaderLen:HeaderLen+n])
		f.Data = &DataPayload{DataLen: dataLen, Payload: payload}
	default:
		return nil, errUnknownType
	}
	return f, nil
}

// PeekHeader reads just the type and flow ID out of buf without allocating
// or decoding a variant payload. Used by SRPT preemption's tail inspection.
func PeekHeader(buf []byte) (Type, uint16, error) {
	if len(buf) < HeaderLen {
		return 0, 0, errShortBuffer
	}
	ip := buf[EthernetLen : EthernetLen+IPv4Len]
	if ip[9] != ProtoTCP {
		return 0, 0, errNotTCP
	}
	t := buf[EthernetLen+IPv4Len : HeaderLen]
	return Type(t[13]), binary.BigEndian.Uint16(t[14:16]), nil
}

// PeekSentSeq reads the transport sent_seq field without a full decode.
func PeekSentSeq(buf []byte) uint32 {
	t := buf[EthernetLen+IPv4Len : HeaderLen]
	return binary.BigEndian.Uint32(t[4:8])
}

// PeekTOS reads the IPv4 TOS byte, which DATA packets carry their
// priority in (unscheduled or granted), without a full decode.
func PeekTOS(buf []byte) uint8 {
	return buf[EthernetLen+1]
}
