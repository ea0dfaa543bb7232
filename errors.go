package mctp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented indicates a feature this emulator does not implement,
	// such as higher-layer payload types or multi-frame reassembly.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidConfig indicates the supplied configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFlowCancelled indicates the waiter for a sendto was dropped before a
	// matching response arrived.
	ErrFlowCancelled = errors.New("flow cancelled")

	// ErrNetworkClosed indicates the Network has been torn down.
	ErrNetworkClosed = errors.New("network closed")

	// ErrFragmentationUnsupported indicates a message needs more than one
	// transport frame; this emulator only carries single-frame messages.
	ErrFragmentationUnsupported = errors.New("message fragmentation is not yet supported")
)

// ParseError reports a decode failure against the wire codec.
type ParseError struct {
	Kind     ParseErrorKind
	Expected int
	Found    int
	Value    uint64
	Msg      string
}

// ParseErrorKind distinguishes the three parse failure shapes named in spec.md.
type ParseErrorKind int

const (
	// ParseInvalidPayloadSize means the buffer was shorter than sizeof(T).
	ParseInvalidPayloadSize ParseErrorKind = iota
	// ParseUnknownValue means an enum-like field held a value with no mapped
	// meaning and no Unknown fallback variant was available.
	ParseUnknownValue
	// ParseOther covers anything not captured by the two kinds above.
	ParseOther
)

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseInvalidPayloadSize:
		return fmt.Sprintf("invalid payload size: expected %d, found %d", e.Expected, e.Found)
	case ParseUnknownValue:
		return fmt.Sprintf("unknown value: %#x", e.Value)
	default:
		return e.Msg
	}
}

func newInvalidPayloadSize(expected, found int) *ParseError {
	return &ParseError{Kind: ParseInvalidPayloadSize, Expected: expected, Found: found}
}

func newParseOther(msg string) *ParseError {
	return &ParseError{Kind: ParseOther, Msg: msg}
}

// PhysicalError reports a failure from a PhysicalBinding.
type PhysicalError struct {
	Kind PhysicalErrorKind
	Addr PhysAddr
	Err  error
}

// PhysicalErrorKind distinguishes PhysicalBinding failure shapes.
type PhysicalErrorKind int

const (
	PhysicalSocketError PhysicalErrorKind = iota
	PhysicalTransmitError
	PhysicalInvalidAddress
)

func (e *PhysicalError) Error() string {
	switch e.Kind {
	case PhysicalInvalidAddress:
		return fmt.Sprintf("invalid physical address 0x%02x", uint8(e.Addr))
	case PhysicalTransmitError:
		return fmt.Sprintf("transmit error: %v", e.Err)
	default:
		return fmt.Sprintf("socket error: %v", e.Err)
	}
}

func (e *PhysicalError) Unwrap() error { return e.Err }

// NetworkError reports a failure from the Network orchestrator.
type NetworkError struct {
	Kind      NetworkErrorKind
	SD        SocketDescriptor
	BindingID BindingID
	Err       error
}

// NetworkErrorKind distinguishes Network failure shapes.
type NetworkErrorKind int

const (
	NetworkInvalidSocket NetworkErrorKind = iota
	NetworkInvalidBinding
	NetworkWrapped
)

func (e *NetworkError) Error() string {
	switch e.Kind {
	case NetworkInvalidSocket:
		return fmt.Sprintf("invalid socket descriptor %d", e.SD)
	case NetworkInvalidBinding:
		return fmt.Sprintf("invalid binding id %d", e.BindingID)
	default:
		return fmt.Sprintf("network error: %v", e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CompletionError surfaces a non-Success MCTP control completion code to the
// caller of a request. The raw response bytes are discarded; only the
// completion code value survives.
type CompletionError struct {
	Command    CommandCode
	Completion CompletionCode
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("command %s failed with completion code %s", e.Command, e.Completion)
}

// isRetryable reports whether err indicates a transient failure worth
// retrying. withRetry (retry.go) consults it, and UDPBinding.Transmit wraps
// its socket writes in withRetry.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perr *PhysicalError
	if errors.As(err, &perr) {
		return perr.Kind == PhysicalSocketError || perr.Kind == PhysicalTransmitError
	}
	return errors.Is(err, ErrNetworkClosed)
}
