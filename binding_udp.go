package mctp

import (
	"context"
	"net"
	"sync"

	"github.com/jls5177/mctp-emu/internal/mctplog"
)

// UDPBinding carries SMBus-framed MCTP traffic over a UDP datagram socket:
// each datagram is exactly one SMBus frame. The core sees it only through
// PhysicalBinding; the socket itself, per the framework's external-collaborator
// boundary, is this type's private concern.
type UDPBinding struct {
	localAddr  PhysAddr
	remoteAddr PhysAddr
	conn       *net.UDPConn
	peer       *net.UDPAddr
	log        mctplog.Logger

	// writeMu serializes concurrent Transmit calls onto the single socket.
	writeMu sync.Mutex

	// retryPolicy governs how many times a transient write failure (e.g. a
	// momentarily full socket buffer) is retried before Transmit gives up.
	retryPolicy RetryPolicy

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewUDPBinding opens a UDP socket bound to bindAddr, sending to peerAddr.
// localPhys is the SMBus 7-bit source address stamped into outgoing frames;
// remotePhys is recorded on the binding but incoming frames are not checked
// against it.
func NewUDPBinding(bindAddr, peerAddr string, localPhys, remotePhys PhysAddr, log mctplog.Logger) (*UDPBinding, error) {
	if log == nil {
		log = mctplog.Null{}
	}

	laddr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, &PhysicalError{Kind: PhysicalSocketError, Err: err}
	}
	raddr, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return nil, &PhysicalError{Kind: PhysicalSocketError, Err: err}
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, &PhysicalError{Kind: PhysicalSocketError, Err: err}
	}

	return &UDPBinding{
		localAddr:   localPhys,
		remoteAddr:  remotePhys,
		conn:        conn,
		peer:        raddr,
		log:         log,
		stopCh:      make(chan struct{}),
		retryPolicy: defaultRetryPolicy,
	}, nil
}

// LocalAddr returns the SMBus physical address this binding frames outbound
// traffic with.
func (b *UDPBinding) LocalAddr() PhysAddr {
	return b.localAddr
}

// Bind starts the receive pump goroutine. Each datagram becomes one Frame
// delivered to rx unchanged; the pump does not inspect its contents, leaving
// malformed frames to the Network's demultiplexer to drop. Socket read errors
// are logged and the pump keeps reading.
func (b *UDPBinding) Bind(id BindingID, rx chan<- Frame) (*BindHandle, error) {
	b.wg.Add(1)
	go b.receivePump(id, rx)

	return &BindHandle{close: func() { b.stopOnce.Do(func() { close(b.stopCh) }) }}, nil
}

func (b *UDPBinding) receivePump(id BindingID, rx chan<- Frame) {
	defer b.wg.Done()

	buf := make([]byte, 65535)
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		n, _, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-b.stopCh:
				return
			default:
				b.log.Warn("udp binding: read error: %v", err)
				continue
			}
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])
		rx <- Frame{BindingID: id, Bytes: frame}
	}
}

// Transmit frames payload as an SMBus packet addressed to destAddr and
// writes it as a single UDP datagram.
func (b *UDPBinding) Transmit(payload []byte, destAddr PhysAddr) error {
	if err := validatePhysAddr(destAddr); err != nil {
		return err
	}
	if len(payload) > maxMCTPPayload {
		return &PhysicalError{Kind: PhysicalTransmitError, Err: ErrFragmentationUnsupported}
	}

	frame := buildSMBusFrame(destAddr, b.localAddr, payload)

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	return withRetry(context.Background(), b.retryPolicy, func() error {
		if _, err := b.conn.WriteToUDP(frame, b.peer); err != nil {
			return &PhysicalError{Kind: PhysicalTransmitError, Err: err}
		}
		return nil
	})
}

// Close stops the receive pump and releases the socket.
func (b *UDPBinding) Close() error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	err := b.conn.Close()
	b.wg.Wait()
	return err
}
