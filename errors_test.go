package mctp

import (
	"errors"
	"testing"
)

func TestParseErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *ParseError
		want string
	}{
		{
			name: "invalid payload size",
			err:  newInvalidPayloadSize(4, 2),
			want: "invalid payload size: expected 4, found 2",
		},
		{
			name: "unknown value",
			err:  &ParseError{Kind: ParseUnknownValue, Value: 0x7f},
			want: "unknown value: 0x7f",
		},
		{
			name: "other",
			err:  newParseOther("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhysicalErrorUnwrap(t *testing.T) {
	base := errors.New("no route")
	err := &PhysicalError{Kind: PhysicalTransmitError, Addr: 0x10, Err: base}

	if !errors.Is(err, base) {
		t.Error("errors.Is() failed to find base error through PhysicalError")
	}

	invalid := &PhysicalError{Kind: PhysicalInvalidAddress, Addr: 0x01}
	if invalid.Error() == "" {
		t.Error("PhysicalInvalidAddress.Error() returned empty string")
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	base := errors.New("socket gone")
	err := &NetworkError{Kind: NetworkWrapped, SD: 3, Err: base}

	if !errors.Is(err, base) {
		t.Error("errors.Is() failed to find base error through NetworkError")
	}

	invalidSD := &NetworkError{Kind: NetworkInvalidSocket, SD: 99}
	if invalidSD.Error() == "" {
		t.Error("NetworkInvalidSocket.Error() returned empty string")
	}
}

func TestCompletionErrorMessage(t *testing.T) {
	err := &CompletionError{Command: CmdGetEndpointID, Completion: CompletionErrorUnsupportedCmd}
	if err.Error() == "" {
		t.Error("CompletionError.Error() returned empty string")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error is not retryable", err: nil, expected: false},
		{
			name:     "physical socket error is retryable",
			err:      &PhysicalError{Kind: PhysicalSocketError, Err: errors.New("x")},
			expected: true,
		},
		{
			name:     "physical transmit error is retryable",
			err:      &PhysicalError{Kind: PhysicalTransmitError, Err: errors.New("x")},
			expected: true,
		},
		{
			name:     "invalid address is not retryable",
			err:      &PhysicalError{Kind: PhysicalInvalidAddress},
			expected: false,
		},
		{name: "network closed is retryable", err: ErrNetworkClosed, expected: true},
		{name: "generic error is not retryable", err: errors.New("generic"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.expected {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestErrorConstantsAreUnique(t *testing.T) {
	vals := []error{
		ErrNotImplemented,
		ErrInvalidConfig,
		ErrFlowCancelled,
		ErrNetworkClosed,
		ErrFragmentationUnsupported,
	}

	seen := make(map[string]bool)
	for _, err := range vals {
		if err == nil {
			t.Error("error constant is nil")
			continue
		}
		msg := err.Error()
		if seen[msg] {
			t.Errorf("duplicate error message: %q", msg)
		}
		seen[msg] = true
	}
}
