package mctp

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jls5177/mctp-emu/internal/mctplog"
	"github.com/jls5177/mctp-emu/internal/metrics"
)

// VirtualEndpointSpec describes one participant to add to a VirtualNetwork.
type VirtualEndpointSpec struct {
	Name         string
	PhysAddr     PhysAddr
	InitialEID   EID
	EndpointType EndpointType
	IsBusOwner   bool
	PoolStart    EID
	PoolSize     uint8
}

// VirtualEndpoint is one participant running inside a VirtualNetwork: its
// own Network and EndpointContext, joined to the shared hub under its own
// physical address.
type VirtualEndpoint struct {
	Name    string
	Context *EndpointContext
	Network *Network

	binding *HubBinding
}

// VirtualNetwork is an in-process fabric hosting several named endpoints
// over one LoopbackHub, used by the sim subcommand to run a bus owner and
// several managed endpoints in one process without any real UDP socket, and
// by tests wanting deterministic, timing-independent multi-endpoint setups.
type VirtualNetwork struct {
	hub *LoopbackHub
	log mctplog.Logger

	mu        sync.Mutex
	endpoints map[string]*VirtualEndpoint
	drivers   []*BusOwnerDriver
	metrics   *metrics.Metrics

	eg     *errgroup.Group
	egCtx  context.Context
	cancel context.CancelFunc
}

// SetMetrics wires optional Prometheus instrumentation onto every endpoint
// and bus-owner driver added from this point forward.
func (vn *VirtualNetwork) SetMetrics(m *metrics.Metrics) {
	vn.mu.Lock()
	defer vn.mu.Unlock()
	vn.metrics = m
}

// NewVirtualNetwork builds an empty fabric.
func NewVirtualNetwork(log mctplog.Logger) *VirtualNetwork {
	if log == nil {
		log = mctplog.Null{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)
	return &VirtualNetwork{
		hub:       NewLoopbackHub(),
		log:       log,
		endpoints: make(map[string]*VirtualEndpoint),
		eg:        eg,
		egCtx:     egCtx,
		cancel:    cancel,
	}
}

// AddEndpoint joins a new participant to the fabric at spec.PhysAddr,
// starting its own Network and control responder.
func (vn *VirtualNetwork) AddEndpoint(spec VirtualEndpointSpec) (*VirtualEndpoint, error) {
	vn.mu.Lock()
	defer vn.mu.Unlock()

	if _, exists := vn.endpoints[spec.Name]; exists {
		return nil, fmt.Errorf("virtual network: endpoint %q already exists", spec.Name)
	}

	ctx := NewEndpointContext(spec.InitialEID, spec.EndpointType, spec.IsBusOwner, spec.PoolStart, spec.PoolSize)
	net := NewNetwork(vn.log)
	responder := NewControlResponder(ctx, vn.log)
	responder.SetMetrics(vn.metrics)
	net.SetResponder(responder)
	net.SetMetrics(vn.metrics)

	binding := vn.hub.Register(spec.PhysAddr)
	if _, err := net.AddPhysicalBinding(binding); err != nil {
		return nil, err
	}

	ep := &VirtualEndpoint{Name: spec.Name, Context: ctx, Network: net, binding: binding}
	vn.endpoints[spec.Name] = ep
	return ep, nil
}

// Endpoint looks up a previously added participant by name.
func (vn *VirtualNetwork) Endpoint(name string) (*VirtualEndpoint, bool) {
	vn.mu.Lock()
	defer vn.mu.Unlock()
	ep, ok := vn.endpoints[name]
	return ep, ok
}

// AddBusOwnerLink wires a BusOwnerDriver on ownerName's network that
// discovers targetName over the fabric, addressed by targetName's physical
// address. Each owner-target pair gets its own driver, since discovery
// addressing is point-to-point even on a shared bus.
func (vn *VirtualNetwork) AddBusOwnerLink(ownerName, targetName string) (*BusOwnerDriver, error) {
	vn.mu.Lock()
	owner, ok := vn.endpoints[ownerName]
	if !ok {
		vn.mu.Unlock()
		return nil, fmt.Errorf("virtual network: unknown owner endpoint %q", ownerName)
	}
	target, ok := vn.endpoints[targetName]
	if !ok {
		vn.mu.Unlock()
		return nil, fmt.Errorf("virtual network: unknown target endpoint %q", targetName)
	}
	vn.mu.Unlock()

	bindingID, err := ownerBindingID(owner)
	if err != nil {
		return nil, err
	}

	dest := SocketAddress{EID: 0, BindingID: bindingID, PhysAddr: target.binding.LocalAddr()}
	driver := NewBusOwnerDriver(owner.Context, owner.Network, dest, vn.log)

	vn.mu.Lock()
	driver.SetMetrics(vn.metrics)
	vn.drivers = append(vn.drivers, driver)
	vn.mu.Unlock()

	return driver, nil
}

func ownerBindingID(owner *VirtualEndpoint) (BindingID, error) {
	// The owner's network was just given exactly one physical binding by
	// AddEndpoint; recover its id to address the fabric.
	id, ok := owner.Network.BindingIDFor(owner.binding)
	if !ok {
		return 0, fmt.Errorf("virtual network: owner endpoint has no registered binding")
	}
	return id, nil
}

// Start launches every endpoint's Network demultiplexer (each under its own
// Network's errgroup) and every wired bus-owner driver under the
// VirtualNetwork's supervising errgroup.
func (vn *VirtualNetwork) Start() {
	vn.mu.Lock()
	defer vn.mu.Unlock()

	for _, ep := range vn.endpoints {
		ep.Network.Start()
	}
	for _, d := range vn.drivers {
		driver := d
		vn.eg.Go(func() error {
			return driver.Run(vn.egCtx)
		})
	}
}

// Close tears down every endpoint's network and stops all bus-owner drivers.
func (vn *VirtualNetwork) Close() error {
	vn.cancel()

	vn.mu.Lock()
	endpoints := make([]*VirtualEndpoint, 0, len(vn.endpoints))
	for _, ep := range vn.endpoints {
		endpoints = append(endpoints, ep)
	}
	vn.mu.Unlock()

	var firstErr error
	for _, ep := range endpoints {
		if err := ep.Network.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := vn.eg.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
