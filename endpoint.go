package mctp

import (
	"sync"
	"sync/atomic"
)

// DiscoveredEndpoint records what the bus-owner driver has learned about one
// remote endpoint.
type DiscoveredEndpoint struct {
	EID              EID
	EndpointType     EndpointType
	EidType          EidType
	AllocationStatus AllocationStatus
	PoolStart        EID
	PoolSize         uint8
	State            DiscoveryState
}

// DiscoveryState is the per-endpoint state machine the bus-owner driver
// advances a discovered endpoint through.
type DiscoveryState int

const (
	StateAnnounced DiscoveryState = iota
	StateGetEidSent
	StateEidKnown
	StateSetEidSent
	StateEidAssigned
	StateAllocSent
	StateEnumerated
	StateFailed
)

func (s DiscoveryState) String() string {
	switch s {
	case StateAnnounced:
		return "Announced"
	case StateGetEidSent:
		return "GetEidSent"
	case StateEidKnown:
		return "EidKnown"
	case StateSetEidSent:
		return "SetEidSent"
	case StateEidAssigned:
		return "EidAssigned"
	case StateAllocSent:
		return "AllocSent"
	case StateEnumerated:
		return "Enumerated"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// EndpointContext holds per-endpoint state shared between the responder and
// the bus-owner discovery driver. Hot fields are plain atomics so neither
// side needs a lock to read or mutate them.
type EndpointContext struct {
	assignedEID      atomic.Uint32 // EID stored as uint32 for atomic.Uint32
	physAddr         PhysAddr
	endpointType     EndpointType
	isBusOwner       bool
	nextMsgTag       atomic.Uint32 // mod 8
	nextInstanceID   atomic.Uint32 // mod 32
	performDiscovery atomic.Bool

	// Bus-owner-only: the dynamic EID pool this endpoint allocates from.
	poolMu      sync.Mutex
	poolNextEID EID
	poolMaxEID  EID

	discoveredMu sync.RWMutex
	discovered   map[EID]*DiscoveredEndpoint
}

// NewEndpointContext builds a context for an endpoint starting at
// initialEID, optionally a bus owner managing [poolStart, poolStart+poolSize).
func NewEndpointContext(initialEID EID, endpointType EndpointType, isBusOwner bool, poolStart EID, poolSize uint8) *EndpointContext {
	ctx := &EndpointContext{
		physAddr:     0,
		endpointType: endpointType,
		isBusOwner:   isBusOwner,
		poolNextEID:  poolStart,
		discovered:   make(map[EID]*DiscoveredEndpoint),
	}
	ctx.assignedEID.Store(uint32(initialEID))
	if poolSize > 0 {
		ctx.poolMaxEID = EID(uint16(poolStart) + uint16(poolSize) - 1)
	}
	return ctx
}

// AssignedEID returns the endpoint's current EID.
func (c *EndpointContext) AssignedEID() EID {
	return EID(c.assignedEID.Load())
}

// SetAssignedEID atomically updates the endpoint's EID.
func (c *EndpointContext) SetAssignedEID(eid EID) {
	c.assignedEID.Store(uint32(eid))
}

// EndpointType returns whether this endpoint is Simple or a bus-owner/bridge.
func (c *EndpointContext) EndpointType() EndpointType {
	return c.endpointType
}

// IsBusOwner reports whether this context drives discovery.
func (c *EndpointContext) IsBusOwner() bool {
	return c.isBusOwner
}

// NextMsgTag allocates the next msg_tag, wrapping modulo 8.
func (c *EndpointContext) NextMsgTag() uint8 {
	return uint8(c.nextMsgTag.Add(1)-1) % 8
}

// NextInstanceID allocates the next instance_id, wrapping modulo 32.
func (c *EndpointContext) NextInstanceID() uint8 {
	return uint8(c.nextInstanceID.Add(1)-1) % 32
}

// RequestDiscovery sets the shared perform_discovery flag so the bus-owner
// driver runs on its next poll.
func (c *EndpointContext) RequestDiscovery() {
	c.performDiscovery.Store(true)
}

// TakeDiscoveryRequest clears and returns the perform_discovery flag.
func (c *EndpointContext) TakeDiscoveryRequest() bool {
	return c.performDiscovery.Swap(false)
}

// ReserveEIDPool reserves the next count EIDs from this owner's dynamic
// pool, returning the starting EID of the reservation. ok is false if count
// is 0 or the pool does not have count EIDs remaining. A context built with
// poolSize 0 has no upper bound, so reservations from it always succeed.
func (c *EndpointContext) ReserveEIDPool(count uint8) (start EID, ok bool) {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()

	if count == 0 {
		return 0, false
	}
	end := uint16(c.poolNextEID) + uint16(count) - 1
	if c.poolMaxEID != 0 && end > uint16(c.poolMaxEID) {
		return 0, false
	}

	start = c.poolNextEID
	c.poolNextEID = EID(end + 1)
	return start, true
}

// NextPoolEID returns (without reserving) the next EID this owner would
// allocate. The discovery driver itself reserves its SetEndpointID EID with
// AllocateNextEID.
func (c *EndpointContext) NextPoolEID() EID {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()
	return c.poolNextEID
}

// AllocateNextEID reserves exactly one EID from the pool and returns it.
func (c *EndpointContext) AllocateNextEID() (EID, bool) {
	return c.ReserveEIDPool(1)
}

// RecordDiscovered inserts or updates the discovered-endpoint record for eid.
func (c *EndpointContext) RecordDiscovered(rec DiscoveredEndpoint) {
	c.discoveredMu.Lock()
	defer c.discoveredMu.Unlock()
	cp := rec
	c.discovered[rec.EID] = &cp
}

// DiscoveredEndpoints returns a snapshot of every endpoint this context has
// discovered, in no particular order.
func (c *EndpointContext) DiscoveredEndpoints() []DiscoveredEndpoint {
	c.discoveredMu.RLock()
	defer c.discoveredMu.RUnlock()
	out := make([]DiscoveredEndpoint, 0, len(c.discovered))
	for _, rec := range c.discovered {
		out = append(out, *rec)
	}
	return out
}

// RoutingTableEntries reports the rows this endpoint's GetRoutingTableEntries
// response should include: empty unless this context is a bus owner tracking
// discovered endpoints, per the responder's enrichment over a plain reply.
func (c *EndpointContext) RoutingTableEntries() []RoutingTableEntrySummary {
	if !c.isBusOwner {
		return nil
	}
	c.discoveredMu.RLock()
	defer c.discoveredMu.RUnlock()
	out := make([]RoutingTableEntrySummary, 0, len(c.discovered))
	for _, rec := range c.discovered {
		out = append(out, RoutingTableEntrySummary{EID: rec.EID, EidRange: rec.PoolSize})
	}
	return out
}
