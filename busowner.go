package mctp

import (
	"context"
	"fmt"
	"time"

	"github.com/jls5177/mctp-emu/internal/mctplog"
	"github.com/jls5177/mctp-emu/internal/metrics"
)

// msgTypeControl is the MCTP message_type value for Control Protocol traffic.
const msgTypeControl = 0

// BusOwnerDriver is the long-running task that waits on an EndpointContext's
// perform_discovery flag and, when set, runs GetEID -> SetEID ->
// AllocateEndpointIDs against the newly announced device.
type BusOwnerDriver struct {
	ctx    *EndpointContext
	net    *Network
	sd     SocketDescriptor
	target SocketAddress
	log    mctplog.Logger
	metrics *metrics.Metrics

	pollInterval time.Duration
	wake         chan struct{}
}

// NewBusOwnerDriver builds a driver that discovers devices reachable at
// target (the single configured peer this emulator's physical binding
// talks to; see the process-surface configuration).
func NewBusOwnerDriver(ctx *EndpointContext, net *Network, target SocketAddress, log mctplog.Logger) *BusOwnerDriver {
	if log == nil {
		log = mctplog.Null{}
	}
	sd := net.Socket()
	return &BusOwnerDriver{
		ctx:          ctx,
		net:          net,
		sd:           sd,
		target:       target,
		log:          log,
		pollInterval: 5 * time.Second,
		wake:         make(chan struct{}, 1),
	}
}

// SetMetrics wires optional Prometheus instrumentation.
func (d *BusOwnerDriver) SetMetrics(m *metrics.Metrics) {
	d.metrics = m
}

// DiscoveredEndpoints returns a snapshot of every endpoint this driver has
// discovered, for the sim subcommand's routing-table printout and for tests
// asserting discovery outcomes.
func (d *BusOwnerDriver) DiscoveredEndpoints() []DiscoveredEndpoint {
	return d.ctx.DiscoveredEndpoints()
}

// Notify short-circuits the idle poll wait so a DiscoveryNotify is acted on
// immediately rather than waiting for the next tick.
func (d *BusOwnerDriver) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled, honouring perform_discovery triggers.
// A failed discovery attempt is logged and does not stop the loop.
func (d *BusOwnerDriver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if d.ctx.TakeDiscoveryRequest() {
			d.metrics.RecordDiscoveryAttempt()
			if err := d.runDiscovery(ctx); err != nil {
				d.metrics.RecordDiscoveryFailure()
				d.log.Warn("bus-owner: discovery attempt failed: %v", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		case <-ticker.C:
		}
	}
}

func (d *BusOwnerDriver) runDiscovery(ctx context.Context) error {
	d.log.Info("bus-owner: starting endpoint discovery")

	rec := DiscoveredEndpoint{State: StateAnnounced}

	// Step 1: GetEID, addressed to EID 0 per the newly-announced device
	// convention.
	rec.State = StateGetEidSent
	getResp, err := d.sendGetEndpointID(ctx, 0)
	if err != nil {
		return fmt.Errorf("GetEndpointID request failed: %w", err)
	}
	rec.EID = getResp.EID
	rec.EndpointType = getResp.EndpointType
	rec.EidType = getResp.EidType
	rec.State = StateEidKnown

	if rec.EidType != EidTypeDynamic {
		rec.State = StateEnumerated
		d.ctx.RecordDiscovered(rec)
		return nil
	}

	// Step 2: SetEID (conditional on Dynamic). Records are keyed by EID, so a
	// dynamic endpoint is only recorded under its pre-assignment EID if the
	// assignment fails; otherwise it would be listed twice once SetEID moves it.
	newEID, ok := d.ctx.AllocateNextEID()
	if !ok {
		rec.State = StateFailed
		d.ctx.RecordDiscovered(rec)
		return fmt.Errorf("endpoint EID pool exhausted")
	}
	rec.State = StateSetEidSent

	setResp, err := d.sendSetEndpointID(ctx, 0, newEID)
	if err != nil {
		rec.State = StateFailed
		d.ctx.RecordDiscovered(rec)
		return fmt.Errorf("SetEndpointID request failed: %w", err)
	}
	if setResp.AssignStatus != AssignmentAccepted {
		rec.State = StateFailed
		d.ctx.RecordDiscovered(rec)
		return fmt.Errorf("EID assignment rejected")
	}
	rec.EID = setResp.EIDSetting
	rec.AllocationStatus = setResp.AllocStatus
	rec.State = StateEidAssigned
	d.ctx.RecordDiscovered(rec)

	needsPool := rec.EndpointType == EndpointTypeBusOwnerOrBridge &&
		setResp.AllocStatus != AllocationNoPoolSupport &&
		setResp.EIDPoolSize > 0
	if !needsPool {
		rec.State = StateEnumerated
		d.ctx.RecordDiscovered(rec)
		return nil
	}

	poolStart, ok := d.ctx.ReserveEIDPool(setResp.EIDPoolSize)
	if !ok {
		rec.State = StateFailed
		d.ctx.RecordDiscovered(rec)
		return fmt.Errorf("not enough EIDs remaining to reserve a sub-pool of size %d", setResp.EIDPoolSize)
	}
	rec.PoolStart = poolStart
	rec.PoolSize = setResp.EIDPoolSize

	// Step 3: AllocateEndpointIDs (conditional on a pool being reserved).
	rec.State = StateAllocSent
	d.ctx.RecordDiscovered(rec)

	allocResp, err := d.sendAllocateEndpointIDs(ctx, rec.EID, poolStart, setResp.EIDPoolSize)
	if err != nil {
		rec.State = StateFailed
		d.ctx.RecordDiscovered(rec)
		return fmt.Errorf("AllocateEndpointIDs request failed: %w", err)
	}
	if allocResp.AllocStatus != AllocationAccepted {
		rec.State = StateFailed
		d.ctx.RecordDiscovered(rec)
		return fmt.Errorf("EID pool allocation rejected")
	}

	rec.State = StateEnumerated
	d.ctx.RecordDiscovered(rec)
	d.log.Info("bus-owner: discovery complete for eid %s", rec.EID)
	return nil
}

func (d *BusOwnerDriver) bindForRequest() error {
	return d.net.Bind(d.sd, d.ctx.AssignedEID(), msgTypeControl, d.ctx.NextMsgTag())
}

func (d *BusOwnerDriver) sendRequest(ctx context.Context, destEID EID, cmd CommandCode, body []byte) ([]byte, error) {
	if err := d.bindForRequest(); err != nil {
		return nil, err
	}

	hdr := ControlMessageHeader{
		MsgType:     msgTypeControl,
		InstanceID:  d.ctx.NextInstanceID(),
		RequestBit:  true,
		CommandCode: cmd,
	}
	payload := append(hdr.Marshal(), body...)

	dest := d.target
	dest.EID = destEID

	_, resp, err := d.net.SendTo(ctx, d.sd, payload, dest)
	if err != nil {
		return nil, err
	}

	respHdr, err := UnmarshalControlMessageHeader(resp)
	if err != nil {
		return nil, err
	}
	respBody := resp[ControlMessageHeaderSize:]
	if len(respBody) < 1 {
		return nil, newInvalidPayloadSize(1, 0)
	}
	completion := CompletionCode(respBody[0])
	if !completion.IsSuccess() {
		return nil, &CompletionError{Command: respHdr.CommandCode, Completion: completion}
	}
	return respBody[1:], nil
}

func (d *BusOwnerDriver) sendGetEndpointID(ctx context.Context, destEID EID) (GetEndpointIDResp, error) {
	body, err := d.sendRequest(ctx, destEID, CmdGetEndpointID, nil)
	if err != nil {
		return GetEndpointIDResp{}, err
	}
	return unmarshalGetEndpointIDResp(body)
}

func (d *BusOwnerDriver) sendSetEndpointID(ctx context.Context, destEID, newEID EID) (SetEndpointIDResp, error) {
	req := SetEndpointIDReq{Operation: 0, EID: newEID}
	body, err := d.sendRequest(ctx, destEID, CmdSetEndpointID, req.Marshal())
	if err != nil {
		return SetEndpointIDResp{}, err
	}
	return unmarshalSetEndpointIDResp(body)
}

func (d *BusOwnerDriver) sendAllocateEndpointIDs(ctx context.Context, destEID, startingEID EID, count uint8) (AllocateEndpointIDsResp, error) {
	req := AllocateEndpointIDsReq{Operation: 0, NumberOfEIDs: count, StartingEID: startingEID}
	body, err := d.sendRequest(ctx, destEID, CmdAllocateEndpointIDs, req.Marshal())
	if err != nil {
		return AllocateEndpointIDsResp{}, err
	}
	return unmarshalAllocateEndpointIDsResp(body)
}
