package mctp

import "testing"

func TestComputePEC_SpecScenario(t *testing.T) {
	// Concrete scenario: frame bytes without PEC, expected trailing PEC byte
	// verified against a reference SMBus CRC-8/poly-0x07 implementation.
	frame := []byte{0xC0, 0x0F, 0x05, 0x21, 0x01, 0x02, 0x0A, 0x10, 0x01, 0x05}
	if got := computePEC(frame); got != 0x9F {
		t.Errorf("computePEC(%x) = 0x%02x, want 0x9f", frame, got)
	}
}

func TestComputePEC_EmptyInput(t *testing.T) {
	if got := computePEC(nil); got != 0x00 {
		t.Errorf("computePEC(nil) = 0x%02x, want 0x00", got)
	}
}

func TestBuildSMBusFrame_PECRoundTrips(t *testing.T) {
	payload := []byte{0x01, 0x00, 0x02, 0x00, 0x02}
	frame := buildSMBusFrame(0x21, 0x10, payload)

	body := frame[:len(frame)-1]
	pec := frame[len(frame)-1]
	if got := computePEC(body); got != pec {
		t.Errorf("recomputed PEC = 0x%02x, want 0x%02x (trailing byte)", got, pec)
	}
}
