package mctp

import "testing"

func TestTransportHeaderRoundTrip(t *testing.T) {
	hdr := TransportHeader{
		HeaderVersion: 1,
		DestEID:       0x08,
		SrcEID:        0x00,
		MsgTag:        5,
		TagOwner:      true,
		PacketSeq:     2,
		EndOfMsg:      true,
		StartOfMsg:    true,
	}

	buf := hdr.Marshal()
	if len(buf) != TransportHeaderSize {
		t.Fatalf("Marshal() length = %d, want %d", len(buf), TransportHeaderSize)
	}

	got, err := UnmarshalTransportHeader(buf)
	if err != nil {
		t.Fatalf("UnmarshalTransportHeader: %v", err)
	}
	if got != hdr {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, hdr)
	}
}

func TestTransportHeaderFlowTag(t *testing.T) {
	hdr := TransportHeader{DestEID: 0x08, SrcEID: 0x09, MsgTag: 3, TagOwner: true}
	tag := hdr.FlowTag()
	if tag.DestEID != hdr.DestEID || tag.SrcEID != hdr.SrcEID || tag.MsgTag != hdr.MsgTag || tag.TagOwner != hdr.TagOwner {
		t.Errorf("FlowTag() = %+v, does not reflect header fields", tag)
	}
}

func TestUnmarshalTransportHeader_ShortBuffer(t *testing.T) {
	_, err := UnmarshalTransportHeader([]byte{0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for short buffer, got nil")
	}
}

func TestControlMessageHeaderRoundTrip(t *testing.T) {
	hdr := ControlMessageHeader{
		MsgType:        0,
		IntegrityCheck: false,
		InstanceID:     17,
		DatagramBit:    false,
		RequestBit:     true,
		CommandCode:    CmdGetEndpointID,
	}

	buf := hdr.Marshal()
	if len(buf) != ControlMessageHeaderSize {
		t.Fatalf("Marshal() length = %d, want %d", len(buf), ControlMessageHeaderSize)
	}

	got, err := UnmarshalControlMessageHeader(buf)
	if err != nil {
		t.Fatalf("UnmarshalControlMessageHeader: %v", err)
	}
	if got != hdr {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, hdr)
	}
}

func TestResponseHeaderFor_ClearsRequestAndDatagramBits(t *testing.T) {
	req := ControlMessageHeader{InstanceID: 9, RequestBit: true, DatagramBit: true, CommandCode: CmdSetEndpointID}
	resp := responseHeaderFor(req)

	if resp.RequestBit {
		t.Error("responseHeaderFor did not clear RequestBit")
	}
	if resp.DatagramBit {
		t.Error("responseHeaderFor did not clear DatagramBit")
	}
	if resp.InstanceID != req.InstanceID {
		t.Errorf("InstanceID = %d, want %d (must match request)", resp.InstanceID, req.InstanceID)
	}
	if resp.CommandCode != req.CommandCode {
		t.Errorf("CommandCode = %v, want %v", resp.CommandCode, req.CommandCode)
	}
}

func TestSMBusPhysicalHeaderRoundTrip(t *testing.T) {
	hdr := SMBusPhysicalHeader{DestAddr: 0x10, SrcAddr: 0x21, ByteCount: 6}
	buf := hdr.Marshal()
	if len(buf) != SMBusPhysicalHeaderSize {
		t.Fatalf("Marshal() length = %d, want %d", len(buf), SMBusPhysicalHeaderSize)
	}
	if buf[1] != smbusCommandCode {
		t.Errorf("command_code byte = 0x%02x, want 0x%02x", buf[1], smbusCommandCode)
	}

	got, ok, err := UnmarshalSMBusPhysicalHeader(buf)
	if err != nil {
		t.Fatalf("UnmarshalSMBusPhysicalHeader: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true for a well-formed MCTP SMBus header")
	}
	if got != hdr {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, hdr)
	}
}

func TestUnmarshalSMBusPhysicalHeader_NonMCTPCommandCode(t *testing.T) {
	buf := []byte{0x20, 0x99, 0x02, 0x43}
	_, ok, err := UnmarshalSMBusPhysicalHeader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("ok = true for a non-MCTP command_code, want false (silent drop)")
	}
}

func TestBuildSMBusFrame_HeaderFieldsAndByteCount(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x0A, 0x10, 0x01, 0x05}
	frame := buildSMBusFrame(0x60, 0x10, payload)

	// dest_addr occupies bits 7:1 of byte 0, src_addr bits 7:1 of byte 3 with
	// the LSB (reserved/direction bit) set.
	if frame[0] != 0x60<<1 {
		t.Errorf("dest byte = 0x%02x, want 0x%02x", frame[0], byte(0x60<<1))
	}
	if frame[1] != smbusCommandCode {
		t.Errorf("command_code byte = 0x%02x, want 0x%02x", frame[1], smbusCommandCode)
	}
	if frame[3] != (0x10<<1)|1 {
		t.Errorf("src byte = 0x%02x, want 0x%02x", frame[3], byte((0x10<<1)|1))
	}
	wantByteCount := uint8(1 + len(payload))
	if frame[2] != wantByteCount {
		t.Errorf("byte_count = %d, want %d (src_addr + payload)", frame[2], wantByteCount)
	}
	if got := frame[len(frame)-1]; got != computePEC(frame[:len(frame)-1]) {
		t.Errorf("trailing PEC = 0x%02x, does not match recomputed value", got)
	}
}
