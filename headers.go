package mctp

// TransportHeaderSize is the fixed on-wire size of a TransportHeader.
const TransportHeaderSize = 4

// ControlMessageHeaderSize is the fixed on-wire size of a ControlMessageHeader.
const ControlMessageHeaderSize = 3

// SMBusPhysicalHeaderSize is the fixed on-wire size of a SMBusPhysicalHeader,
// not counting the trailing PEC byte.
const SMBusPhysicalHeaderSize = 4

// mctpHeaderVersion is the only header_version value this stack speaks.
const mctpHeaderVersion = 1

// TransportHeader is the 4-byte MCTP transport header. Bit-fields are packed
// little-endian, least-significant-bit-first within each byte.
type TransportHeader struct {
	HeaderVersion uint8 // 4b
	DestEID       EID
	SrcEID        EID
	MsgTag        uint8 // 3b, 0-7
	TagOwner      bool  // 1b
	PacketSeq     uint8 // 2b
	EndOfMsg      bool  // 1b
	StartOfMsg    bool  // 1b
}

// FlowTag extracts this header's correlation tuple.
func (h TransportHeader) FlowTag() MsgFlowTag {
	return MsgFlowTag{
		DestEID:  h.DestEID,
		SrcEID:   h.SrcEID,
		MsgTag:   h.MsgTag,
		TagOwner: h.TagOwner,
	}
}

// Marshal encodes h into its 4-byte wire form.
func (h TransportHeader) Marshal() []byte {
	buf := make([]byte, TransportHeaderSize)
	buf[0] = h.HeaderVersion & 0x0F
	buf[1] = uint8(h.DestEID)
	buf[2] = uint8(h.SrcEID)

	var b3 uint8
	b3 |= h.MsgTag & 0x07
	if h.TagOwner {
		b3 |= 1 << 3
	}
	b3 |= (h.PacketSeq & 0x03) << 4
	if h.EndOfMsg {
		b3 |= 1 << 6
	}
	if h.StartOfMsg {
		b3 |= 1 << 7
	}
	buf[3] = b3
	return buf
}

// UnmarshalTransportHeader decodes a TransportHeader from the front of buf.
func UnmarshalTransportHeader(buf []byte) (TransportHeader, error) {
	if len(buf) < TransportHeaderSize {
		return TransportHeader{}, newInvalidPayloadSize(TransportHeaderSize, len(buf))
	}
	b3 := buf[3]
	return TransportHeader{
		HeaderVersion: buf[0] & 0x0F,
		DestEID:       EID(buf[1]),
		SrcEID:        EID(buf[2]),
		MsgTag:        b3 & 0x07,
		TagOwner:      b3&(1<<3) != 0,
		PacketSeq:     (b3 >> 4) & 0x03,
		EndOfMsg:      b3&(1<<6) != 0,
		StartOfMsg:    b3&(1<<7) != 0,
	}, nil
}

// ControlMessageHeader is the 3-byte MCTP Control message header.
type ControlMessageHeader struct {
	MsgType        uint8 // 7b, 0 for Control
	IntegrityCheck bool  // 1b
	InstanceID     uint8 // 5b, 0-31
	DatagramBit    bool  // 1b
	RequestBit     bool  // 1b
	CommandCode    CommandCode
}

// Marshal encodes h into its 3-byte wire form.
func (h ControlMessageHeader) Marshal() []byte {
	buf := make([]byte, ControlMessageHeaderSize)

	var b0 uint8
	b0 |= h.MsgType & 0x7F
	if h.IntegrityCheck {
		b0 |= 1 << 7
	}
	buf[0] = b0

	var b1 uint8
	b1 |= h.InstanceID & 0x1F
	if h.DatagramBit {
		b1 |= 1 << 6
	}
	if h.RequestBit {
		b1 |= 1 << 7
	}
	buf[1] = b1

	buf[2] = byte(h.CommandCode)
	return buf
}

// UnmarshalControlMessageHeader decodes a ControlMessageHeader from the front
// of buf.
func UnmarshalControlMessageHeader(buf []byte) (ControlMessageHeader, error) {
	if len(buf) < ControlMessageHeaderSize {
		return ControlMessageHeader{}, newInvalidPayloadSize(ControlMessageHeaderSize, len(buf))
	}
	b0, b1 := buf[0], buf[1]
	return ControlMessageHeader{
		MsgType:        b0 & 0x7F,
		IntegrityCheck: b0&(1<<7) != 0,
		InstanceID:     b1 & 0x1F,
		DatagramBit:    b1&(1<<6) != 0,
		RequestBit:     b1&(1<<7) != 0,
		CommandCode:    CommandCode(buf[2]),
	}, nil
}

// responseHeaderFor builds the control header for the response to req, per
// the MCTP rule that a response carries the same instance_id and message
// type, with the request bit cleared.
func responseHeaderFor(req ControlMessageHeader) ControlMessageHeader {
	resp := req
	resp.RequestBit = false
	resp.DatagramBit = false
	return resp
}

// SMBusPhysicalHeader is the 4-byte SMBus framing header that every MCTP
// packet travels inside on this binding, plus the trailing PEC byte that
// follows the payload.
type SMBusPhysicalHeader struct {
	DestAddr   PhysAddr
	SrcAddr    PhysAddr
	ByteCount  uint8
}

// smbusCommandCode is the fixed SMBus command code reserved for MCTP traffic.
const smbusCommandCode = 0x0F

// Marshal encodes h into its 4-byte wire form (dest_addr, command_code,
// byte_count, src_addr). It does not include the trailing PEC byte.
func (h SMBusPhysicalHeader) Marshal() []byte {
	buf := make([]byte, SMBusPhysicalHeaderSize)
	buf[0] = byte(h.DestAddr) << 1
	buf[1] = smbusCommandCode
	buf[2] = h.ByteCount
	buf[3] = (byte(h.SrcAddr) << 1) | 1
	return buf
}

// UnmarshalSMBusPhysicalHeader decodes a SMBusPhysicalHeader from the front
// of buf. It returns ok=false (not an error) when command_code does not mark
// the frame as MCTP traffic, matching the demultiplexer's drop-silently rule.
func UnmarshalSMBusPhysicalHeader(buf []byte) (hdr SMBusPhysicalHeader, ok bool, err error) {
	if len(buf) < SMBusPhysicalHeaderSize {
		return SMBusPhysicalHeader{}, false, newInvalidPayloadSize(SMBusPhysicalHeaderSize, len(buf))
	}
	if buf[1] != smbusCommandCode {
		return SMBusPhysicalHeader{}, false, nil
	}
	hdr = SMBusPhysicalHeader{
		DestAddr:  PhysAddr(buf[0] >> 1),
		ByteCount: buf[2],
		SrcAddr:   PhysAddr(buf[3] >> 1),
	}
	return hdr, true, nil
}

// buildSMBusFrame assembles a complete wire frame: physical header, payload,
// and trailing PEC, per the external frame format (dest_addr, 0x0F,
// byte_count, src_addr, mctp payload, pec).
func buildSMBusFrame(dest, src PhysAddr, payload []byte) []byte {
	hdr := SMBusPhysicalHeader{
		DestAddr: dest,
		SrcAddr:  src,
		// byte_count counts bytes after itself up to but excluding PEC:
		// src_addr(1) + payload.
		ByteCount: uint8(1 + len(payload)),
	}
	frame := make([]byte, 0, SMBusPhysicalHeaderSize+len(payload)+1)
	frame = append(frame, hdr.Marshal()...)
	frame = append(frame, payload...)
	frame = append(frame, computePEC(frame))
	return frame
}
