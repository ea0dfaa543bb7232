package mctp

import "sync"

// LoopbackBinding is an in-process PhysicalBinding used by tests and by the
// simulator to run a bus owner and managed endpoints in one process without
// a real socket. Two bindings created by NewLoopbackPair are wired crosswise:
// whatever one side transmits, the other side's receive pump delivers.
type LoopbackBinding struct {
	localAddr PhysAddr
	out       chan<- []byte
	in        <-chan []byte

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewLoopbackPair builds two bindings, a and b, each addressed as given,
// connected so that a.Transmit delivers to b's receive pump and vice versa.
func NewLoopbackPair(addrA, addrB PhysAddr) (a, b *LoopbackBinding) {
	abCh := make(chan []byte, 64)
	baCh := make(chan []byte, 64)

	a = &LoopbackBinding{localAddr: addrA, out: abCh, in: baCh, stopCh: make(chan struct{})}
	b = &LoopbackBinding{localAddr: addrB, out: baCh, in: abCh, stopCh: make(chan struct{})}
	return a, b
}

// LocalAddr returns this binding's SMBus physical address.
func (l *LoopbackBinding) LocalAddr() PhysAddr {
	return l.localAddr
}

// Bind starts the receive pump, forwarding every frame the paired binding
// transmits to rx.
func (l *LoopbackBinding) Bind(id BindingID, rx chan<- Frame) (*BindHandle, error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case <-l.stopCh:
				return
			case frame, ok := <-l.in:
				if !ok {
					return
				}
				rx <- Frame{BindingID: id, Bytes: frame}
			}
		}
	}()
	return &BindHandle{close: func() { l.stopOnce.Do(func() { close(l.stopCh) }) }}, nil
}

// Transmit frames payload as an SMBus packet and hands it to the paired
// binding's receive pump.
func (l *LoopbackBinding) Transmit(payload []byte, destAddr PhysAddr) error {
	if err := validatePhysAddr(destAddr); err != nil {
		return err
	}
	if len(payload) > maxMCTPPayload {
		return &PhysicalError{Kind: PhysicalTransmitError, Err: ErrFragmentationUnsupported}
	}

	frame := buildSMBusFrame(destAddr, l.localAddr, payload)
	select {
	case l.out <- frame:
		return nil
	case <-l.stopCh:
		return &PhysicalError{Kind: PhysicalTransmitError, Err: ErrNetworkClosed}
	}
}

// Close stops the receive pump. It does not close the shared channels,
// since the paired binding may still be transmitting; NewLoopbackPair's
// channels are garbage-collected once both sides are closed and dereferenced.
func (l *LoopbackBinding) Close() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	l.wg.Wait()
	return nil
}
