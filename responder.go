package mctp

import (
	"github.com/jls5177/mctp-emu/internal/mctplog"
	"github.com/jls5177/mctp-emu/internal/metrics"
)

// ControlResponder dispatches incoming MCTP Control requests against an
// EndpointContext, producing the corresponding response. It is total over
// well-formed frames: every known command code returns a response, even if
// that response is ErrorUnsupportedCmd.
type ControlResponder struct {
	ctx     *EndpointContext
	log     mctplog.Logger
	metrics *metrics.Metrics
}

// NewControlResponder builds a responder bound to ctx.
func NewControlResponder(ctx *EndpointContext, log mctplog.Logger) *ControlResponder {
	if log == nil {
		log = mctplog.Null{}
	}
	return &ControlResponder{ctx: ctx, log: log}
}

// SetMetrics wires optional Prometheus instrumentation.
func (r *ControlResponder) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// HandleRequest implements Responder.
func (r *ControlResponder) HandleRequest(payload []byte) ([]byte, error) {
	reqHdr, err := UnmarshalControlMessageHeader(payload)
	if err != nil {
		return nil, err
	}
	reqBody := payload[ControlMessageHeaderSize:]

	respHdr := responseHeaderFor(reqHdr)

	var completion CompletionCode
	var respBody []byte

	switch reqHdr.CommandCode {
	case CmdSetEndpointID:
		completion, respBody, err = r.handleSetEndpointID(reqBody)
	case CmdGetEndpointID:
		completion, respBody = r.handleGetEndpointID()
	case CmdDiscoveryNotify:
		completion, respBody = r.handleDiscoveryNotify()
	case CmdGetRoutingTableEntries:
		completion, respBody, err = r.handleGetRoutingTableEntries(reqBody)
	default:
		r.log.Debug("responder: unsupported command %s", reqHdr.CommandCode)
		completion = CompletionErrorUnsupportedCmd
	}
	if err != nil {
		return nil, err
	}
	r.metrics.RecordRequestServed(reqHdr.CommandCode.String(), completion.String())

	out := NewByteWriter(ControlMessageHeaderSize + 1 + len(respBody))
	out.WriteBytes(respHdr.Marshal())
	out.WriteByte(byte(completion))
	out.WriteBytes(respBody)
	return out.Bytes(), nil
}

func (r *ControlResponder) handleSetEndpointID(body []byte) (CompletionCode, []byte, error) {
	req, err := unmarshalSetEndpointIDReq(body)
	if err != nil {
		return 0, nil, err
	}

	// Invariant: assigned_eid updates atomically before the response is built.
	r.ctx.SetAssignedEID(req.EID)

	resp := SetEndpointIDResp{
		AllocStatus:  AllocationNoPoolSupport,
		AssignStatus: AssignmentAccepted,
		EIDSetting:   r.ctx.AssignedEID(),
		EIDPoolSize:  0,
	}
	return CompletionSuccess, resp.Marshal(), nil
}

func (r *ControlResponder) handleGetEndpointID() (CompletionCode, []byte) {
	resp := GetEndpointIDResp{
		EID:            r.ctx.AssignedEID(),
		EidType:        EidTypeDynamic,
		EndpointType:   r.ctx.EndpointType(),
		MediumSpecific: 0,
	}
	return CompletionSuccess, resp.Marshal()
}

func (r *ControlResponder) handleDiscoveryNotify() (CompletionCode, []byte) {
	r.ctx.RequestDiscovery()
	return CompletionSuccess, nil
}

func (r *ControlResponder) handleGetRoutingTableEntries(body []byte) (CompletionCode, []byte, error) {
	if _, err := unmarshalGetRoutingTableEntriesReq(body); err != nil {
		return 0, nil, err
	}

	entries := r.ctx.RoutingTableEntries()
	resp := GetRoutingTableEntriesResp{
		NextEntryHandle:   noRoutingEntryHandle,
		EntriesInResponse: uint8(len(entries)),
	}
	return CompletionSuccess, resp.Marshal(), nil
}
