package mctp

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jls5177/mctp-emu/internal/mctplog"
	"github.com/jls5177/mctp-emu/internal/metrics"
)

// Responder parses an incoming control request payload (control-message
// header followed by its command body) and produces the response payload in
// the same shape, inheriting the request's instance_id and clearing the
// request bit.
type Responder interface {
	HandleRequest(payload []byte) ([]byte, error)
}

// ClientState is the per-socket binding recorded by Network.Bind.
type ClientState struct {
	LocalEID EID
	MsgType  uint8
	Tag      uint8
}

type bindingEntry struct {
	binding PhysicalBinding
	handle  *BindHandle
}

// Network is the central orchestrator: it holds the flow table, the set of
// client sockets, and the set of bound physical links, and exposes a
// socket-like API to upper layers. It owns the demultiplexer that routes
// every received MCTP message either to a pending flow or to the responder.
type Network struct {
	log mctplog.Logger

	// id disambiguates log lines when a process hosts more than one Network,
	// as VirtualNetwork does.
	id string

	nextSD  int32
	clients sync.Map // SocketDescriptor -> *ClientState

	bindingsMu sync.RWMutex
	bindings   map[BindingID]bindingEntry
	nextBindID uint32

	flows *FlowTable

	inbound  chan Frame
	responder Responder
	metrics  *metrics.Metrics

	closed   atomic.Bool
	eg       *errgroup.Group
	egCtx    context.Context
	cancel   context.CancelFunc
}

// NewNetwork creates a Network with no bindings and no clients. The
// responder is wired separately via SetResponder, mirroring the way an
// EndpointContext is constructed before the network that serves it.
func NewNetwork(log mctplog.Logger) *Network {
	if log == nil {
		log = mctplog.Null{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)
	return &Network{
		log:      log,
		id:       uuid.NewString(),
		bindings: make(map[BindingID]bindingEntry),
		flows:    NewFlowTable(),
		inbound:  make(chan Frame, 256),
		eg:       eg,
		egCtx:    egCtx,
		cancel:   cancel,
	}
}

// ID returns a short identifier for this Network, unique within the process,
// used to disambiguate log output when more than one Network is running (for
// example under VirtualNetwork).
func (n *Network) ID() string {
	return n.id[:8]
}

// SetResponder wires the control-command dispatcher consulted by the
// demultiplexer when a received message matches no in-flight flow.
func (n *Network) SetResponder(r Responder) {
	n.responder = r
}

// SetMetrics wires optional Prometheus instrumentation. Safe to leave unset;
// every metrics call tolerates a nil *metrics.Metrics.
func (n *Network) SetMetrics(m *metrics.Metrics) {
	n.metrics = m
}

// Start launches the demultiplexer task under the network's supervising
// errgroup; a fatal demultiplexer error cancels the group's context, per the
// "wedged inbound channel" unrecoverable condition.
func (n *Network) Start() {
	n.eg.Go(func() error {
		return n.demultiplex()
	})
}

// Wait blocks until every supervised task (the demultiplexer and anything
// else started under this network) returns, surfacing the first error.
func (n *Network) Wait() error {
	return n.eg.Wait()
}

// Socket allocates a new socket descriptor.
func (n *Network) Socket() SocketDescriptor {
	sd := SocketDescriptor(atomic.AddInt32(&n.nextSD, 1) - 1)
	return sd
}

// Bind records the (local_eid, msg_type, tag) triple for sd.
func (n *Network) Bind(sd SocketDescriptor, localEID EID, msgType, tag uint8) error {
	if sd < 0 || int32(sd) >= atomic.LoadInt32(&n.nextSD) {
		return &NetworkError{Kind: NetworkInvalidSocket, SD: sd}
	}
	n.clients.Store(sd, &ClientState{LocalEID: localEID, MsgType: msgType, Tag: tag})
	return nil
}

// AddPhysicalBinding assigns a fresh binding_id to b, stores it, and starts
// its receive pump feeding the demultiplexer.
func (n *Network) AddPhysicalBinding(b PhysicalBinding) (BindingID, error) {
	id := BindingID(atomic.AddUint32(&n.nextBindID, 1))

	handle, err := b.Bind(id, n.inbound)
	if err != nil {
		return 0, err
	}

	n.bindingsMu.Lock()
	n.bindings[id] = bindingEntry{binding: b, handle: handle}
	n.bindingsMu.Unlock()

	return id, nil
}

func (n *Network) getBinding(id BindingID) (PhysicalBinding, error) {
	n.bindingsMu.RLock()
	defer n.bindingsMu.RUnlock()
	entry, ok := n.bindings[id]
	if !ok {
		return nil, &NetworkError{Kind: NetworkInvalidBinding, BindingID: id}
	}
	return entry.binding, nil
}

// BindingIDFor recovers the BindingID a previously-registered PhysicalBinding
// was assigned, for callers that hold the binding but not the id returned by
// AddPhysicalBinding (e.g. VirtualNetwork wiring a driver's target address).
func (n *Network) BindingIDFor(b PhysicalBinding) (BindingID, bool) {
	n.bindingsMu.RLock()
	defer n.bindingsMu.RUnlock()
	for id, entry := range n.bindings {
		if entry.binding == b {
			return id, true
		}
	}
	return 0, false
}

// SendTo builds a transport header from sd's bound (local_eid, tag) and
// dest's EID with tag_owner=1/som=1/eom=1, prepends it to payload, inserts a
// flow table entry, transmits through dest's binding, and awaits the
// response. It returns dest's address (EID, binding and physical address as
// passed in) and the response payload with the transport header stripped; the
// source EID carried in the response's own transport header is not reported.
// A pending call returns ErrFlowCancelled when ctx is done or the Network is
// closed.
func (n *Network) SendTo(ctx context.Context, sd SocketDescriptor, payload []byte, dest SocketAddress) (SocketAddress, []byte, error) {
	v, ok := n.clients.Load(sd)
	if !ok {
		return SocketAddress{}, nil, &NetworkError{Kind: NetworkInvalidSocket, SD: sd}
	}
	client := v.(*ClientState)

	binding, err := n.getBinding(dest.BindingID)
	if err != nil {
		return SocketAddress{}, nil, err
	}

	hdr := TransportHeader{
		HeaderVersion: mctpHeaderVersion,
		DestEID:       dest.EID,
		SrcEID:        client.LocalEID,
		MsgTag:        client.Tag,
		TagOwner:      true,
		StartOfMsg:    true,
		EndOfMsg:      true,
	}
	frame := append(hdr.Marshal(), payload...)
	tag := hdr.FlowTag()

	waiter := newResponseWaiter()
	live := n.flows.Insert(tag, waiter)
	n.metrics.SetFlowTableSize(n.flows.Size())

	if err := binding.Transmit(frame, dest.PhysAddr); err != nil {
		n.flows.Remove(tag)
		n.metrics.SetFlowTableSize(n.flows.Size())
		return SocketAddress{}, nil, err
	}

	cancel := make(chan struct{})
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-n.egCtx.Done():
		case <-done:
			return
		}
		*live = false
		close(cancel)
	}()

	resp, err := waiter.Wait(cancel)
	close(done)
	n.metrics.SetFlowTableSize(n.flows.Size())
	if err != nil {
		return SocketAddress{}, nil, err
	}

	respAddr := SocketAddress{EID: dest.EID, BindingID: dest.BindingID, PhysAddr: dest.PhysAddr}
	return respAddr, resp, nil
}

// demultiplex is the single cooperative task that consumes the merged
// receive stream from every bound physical link.
func (n *Network) demultiplex() error {
	for {
		select {
		case <-n.egCtx.Done():
			return nil
		case frame, ok := <-n.inbound:
			if !ok {
				return nil
			}
			n.handleFrame(frame)
		}
	}
}

func (n *Network) handleFrame(f Frame) {
	physHdr, ok, err := UnmarshalSMBusPhysicalHeader(f.Bytes)
	if err != nil || !ok {
		n.log.Debug("network[%s]: dropping frame from binding %d: not an MCTP SMBus frame", n.ID(), f.BindingID)
		n.metrics.RecordFrameDropped("not_mctp")
		return
	}
	if len(f.Bytes) < SMBusPhysicalHeaderSize {
		return
	}
	mctpPayload := f.Bytes[SMBusPhysicalHeaderSize:]

	hdr, err := UnmarshalTransportHeader(mctpPayload)
	if err != nil {
		n.log.Debug("network[%s]: dropping malformed transport header from binding %d: %v", n.ID(), f.BindingID, err)
		n.metrics.RecordFrameDropped("malformed_transport_header")
		return
	}
	body := mctpPayload[TransportHeaderSize:]
	recvTag := hdr.FlowTag()

	if waiter := n.flows.TakeMatch(recvTag); waiter != nil {
		n.metrics.SetFlowTableSize(n.flows.Size())
		waiter.signal(body)
		return
	}

	if n.responder == nil {
		n.log.Debug("network[%s]: no responder configured, dropping request from eid %s", n.ID(), hdr.SrcEID)
		n.metrics.RecordFrameDropped("no_responder")
		return
	}

	respBody, err := n.responder.HandleRequest(body)
	if err != nil {
		n.log.Debug("network[%s]: responder error, dropping request from eid %s: %v", n.ID(), hdr.SrcEID, err)
		n.metrics.RecordFrameDropped("responder_error")
		return
	}

	respHdr := TransportHeader{
		HeaderVersion: mctpHeaderVersion,
		DestEID:       hdr.SrcEID,
		SrcEID:        hdr.DestEID,
		MsgTag:        hdr.MsgTag,
		TagOwner:      !hdr.TagOwner,
		StartOfMsg:    true,
		EndOfMsg:      true,
	}
	respFrame := append(respHdr.Marshal(), respBody...)

	binding, err := n.getBinding(f.BindingID)
	if err != nil {
		n.log.Warn("network[%s]: cannot reply on binding %d: %v", n.ID(), f.BindingID, err)
		return
	}
	if err := binding.Transmit(respFrame, physHdr.SrcAddr); err != nil {
		n.log.Warn("network[%s]: failed sending reply on binding %d: %v", n.ID(), f.BindingID, err)
	}
}

// Close tears the network down: it stops the demultiplexer, closes every
// bound physical link, and releases all flow waiters.
func (n *Network) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	n.cancel()

	n.bindingsMu.Lock()
	for _, entry := range n.bindings {
		entry.handle.Close()
		_ = entry.binding.Close()
	}
	n.bindingsMu.Unlock()

	return n.eg.Wait()
}
