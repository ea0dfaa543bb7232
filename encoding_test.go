package mctp

import "testing"

func TestByteReader_SequentialReads(t *testing.T) {
	r := NewByteReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	b, err := r.ReadByte()
	if err != nil || b != 0x01 {
		t.Fatalf("ReadByte() = (0x%02x, %v), want (0x01, nil)", b, err)
	}

	chunk, err := r.ReadBytes(2)
	if err != nil {
		t.Fatalf("ReadBytes(2): %v", err)
	}
	if chunk[0] != 0x02 || chunk[1] != 0x03 {
		t.Errorf("ReadBytes(2) = %x, want [02 03]", chunk)
	}

	u16, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16: %v", err)
	}
	if u16 != uint16(0x04)|uint16(0x05)<<8 {
		t.Errorf("ReadUint16() = 0x%04x, want 0x0504", u16)
	}

	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
}

func TestByteReader_ReadPastEndReturnsError(t *testing.T) {
	r := NewByteReader([]byte{0x01})
	if _, err := r.ReadBytes(4); err == nil {
		t.Error("ReadBytes(4) on a 1-byte buffer: expected error, got nil")
	}
}

func TestByteReader_Position(t *testing.T) {
	r := NewByteReader([]byte{0x01, 0x02, 0x03})
	if r.Position() != 0 {
		t.Fatalf("Position() = %d, want 0", r.Position())
	}
	if _, err := r.ReadByte(); err != nil {
		t.Fatal(err)
	}
	if r.Position() != 1 {
		t.Errorf("Position() = %d, want 1", r.Position())
	}
}

func TestByteWriter_Accumulates(t *testing.T) {
	w := NewByteWriter(4)
	w.WriteByte(0xAB)
	w.WriteBytes([]byte{0xCD, 0xEF})
	w.WriteUint16(0x1234)

	want := []byte{0xAB, 0xCD, 0xEF, 0x34, 0x12}
	got := w.Bytes()
	if len(got) != len(want) {
		t.Fatalf("Bytes() length = %d, want %d (%x)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Bytes()[%d] = 0x%02x, want 0x%02x", i, got[i], want[i])
		}
	}
	if w.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", w.Len(), len(want))
	}
}
