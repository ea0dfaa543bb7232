package mctp

import "sync"

// LoopbackHub is a shared in-process bus: any number of HubBinding
// participants, each registered under its own physical address, can
// transmit frames to one another without a real socket. Unlike
// NewLoopbackPair's point-to-point wiring, a hub models the shared-bus
// topology a SMBus segment with more than two devices actually has.
type LoopbackHub struct {
	mu           sync.RWMutex
	participants map[PhysAddr]chan []byte
}

// NewLoopbackHub builds an empty hub.
func NewLoopbackHub() *LoopbackHub {
	return &LoopbackHub{participants: make(map[PhysAddr]chan []byte)}
}

// Register reserves addr on the hub and returns the binding a Network uses
// to join it. Registering an address already in use replaces the prior
// participant.
func (h *LoopbackHub) Register(addr PhysAddr) *HubBinding {
	rx := make(chan []byte, 64)
	h.mu.Lock()
	h.participants[addr] = rx
	h.mu.Unlock()
	return &HubBinding{hub: h, localAddr: addr, rx: rx, stopCh: make(chan struct{})}
}

func (h *LoopbackHub) unregister(addr PhysAddr, rx chan []byte) {
	h.mu.Lock()
	if h.participants[addr] == rx {
		delete(h.participants, addr)
	}
	h.mu.Unlock()
}

func (h *LoopbackHub) lookup(addr PhysAddr) (chan []byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rx, ok := h.participants[addr]
	return rx, ok
}

// HubBinding is a PhysicalBinding backed by a LoopbackHub.
type HubBinding struct {
	hub       *LoopbackHub
	localAddr PhysAddr
	rx        chan []byte

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// LocalAddr returns this participant's SMBus physical address.
func (h *HubBinding) LocalAddr() PhysAddr {
	return h.localAddr
}

// Bind starts the receive pump, forwarding every frame addressed to this
// participant to rx.
func (h *HubBinding) Bind(id BindingID, rx chan<- Frame) (*BindHandle, error) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-h.stopCh:
				return
			case frame, ok := <-h.rx:
				if !ok {
					return
				}
				rx <- Frame{BindingID: id, Bytes: frame}
			}
		}
	}()
	return &BindHandle{close: func() { h.stopOnce.Do(func() { close(h.stopCh) }) }}, nil
}

// Transmit frames payload as an SMBus packet and delivers it directly to
// whichever participant is registered at destAddr, if any. An unregistered
// destination silently has nothing deliver to it, matching a real bus where
// no device acknowledges a transaction to an absent address at this layer.
func (h *HubBinding) Transmit(payload []byte, destAddr PhysAddr) error {
	if err := validatePhysAddr(destAddr); err != nil {
		return err
	}
	if len(payload) > maxMCTPPayload {
		return &PhysicalError{Kind: PhysicalTransmitError, Err: ErrFragmentationUnsupported}
	}

	frame := buildSMBusFrame(destAddr, h.localAddr, payload)
	dest, ok := h.hub.lookup(destAddr)
	if !ok {
		return nil
	}

	select {
	case dest <- frame:
		return nil
	case <-h.stopCh:
		return &PhysicalError{Kind: PhysicalTransmitError, Err: ErrNetworkClosed}
	}
}

// Close stops the receive pump and unregisters from the hub.
func (h *HubBinding) Close() error {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
	h.hub.unregister(h.localAddr, h.rx)
	return nil
}
