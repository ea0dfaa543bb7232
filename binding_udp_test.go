package mctp

import (
	"testing"
	"time"
)

func TestUDPBinding_RoundTrip(t *testing.T) {
	b, err := NewUDPBinding("127.0.0.1:0", "127.0.0.1:0", 0x20, 0x10, nil)
	if err != nil {
		t.Fatalf("NewUDPBinding(b): %v", err)
	}
	defer b.Close()

	// a is only discoverable once b's ephemeral port is known, so it is
	// constructed pointed at b's actual bound address.
	a, err := NewUDPBinding("127.0.0.1:0", b.conn.LocalAddr().String(), 0x10, 0x20, nil)
	if err != nil {
		t.Fatalf("NewUDPBinding(a): %v", err)
	}
	defer a.Close()

	rx := make(chan Frame, 1)
	handle, err := b.Bind(1, rx)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer handle.Close()

	payload := []byte{0x01, 0x02, 0x03}
	if err := a.Transmit(payload, 0x20); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	select {
	case f := <-rx:
		if f.BindingID != 1 {
			t.Errorf("BindingID = %d, want 1", f.BindingID)
		}
		body := f.Bytes[SMBusPhysicalHeaderSize : len(f.Bytes)-1]
		if len(body) != len(payload) {
			t.Fatalf("delivered payload length = %d, want %d", len(body), len(payload))
		}
		for i := range payload {
			if body[i] != payload[i] {
				t.Errorf("body[%d] = 0x%02x, want 0x%02x", i, body[i], payload[i])
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for UDP delivery")
	}
}

func TestUDPBinding_TransmitRejectsInvalidAddress(t *testing.T) {
	a, err := NewUDPBinding("127.0.0.1:0", "127.0.0.1:0", 0x10, 0x20, nil)
	if err != nil {
		t.Fatalf("NewUDPBinding: %v", err)
	}
	defer a.Close()

	if err := a.Transmit([]byte{0x01}, 0x00); err == nil {
		t.Error("Transmit to physical address 0x00: expected error, got nil")
	}
}

func TestUDPBinding_LocalAddr(t *testing.T) {
	a, err := NewUDPBinding("127.0.0.1:0", "127.0.0.1:0", 0x15, 0x20, nil)
	if err != nil {
		t.Fatalf("NewUDPBinding: %v", err)
	}
	defer a.Close()

	if a.LocalAddr() != 0x15 {
		t.Errorf("LocalAddr() = 0x%02x, want 0x15", uint8(a.LocalAddr()))
	}
}
