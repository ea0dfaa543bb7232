package mctp

import "fmt"

// CommandCode identifies an MCTP Control command.
type CommandCode uint8

const (
	CmdSetEndpointID          CommandCode = 0x01
	CmdGetEndpointID          CommandCode = 0x02
	CmdAllocateEndpointIDs    CommandCode = 0x08
	CmdGetRoutingTableEntries CommandCode = 0x0A
	CmdDiscoveryNotify        CommandCode = 0x0D
)

func (c CommandCode) String() string {
	switch c {
	case CmdSetEndpointID:
		return "SetEndpointID"
	case CmdGetEndpointID:
		return "GetEndpointID"
	case CmdAllocateEndpointIDs:
		return "AllocateEndpointIDs"
	case CmdGetRoutingTableEntries:
		return "GetRoutingTableEntries"
	case CmdDiscoveryNotify:
		return "DiscoveryNotify"
	default:
		return fmt.Sprintf("CommandCode(0x%02x)", uint8(c))
	}
}

// CompletionCode is the first byte of every control response body.
type CompletionCode uint8

const (
	CompletionSuccess             CompletionCode = 0x00
	CompletionErrorUnsupportedCmd CompletionCode = 0x05
)

func (c CompletionCode) String() string {
	switch c {
	case CompletionSuccess:
		return "Success"
	case CompletionErrorUnsupportedCmd:
		return "ErrorUnsupportedCmd"
	default:
		return fmt.Sprintf("CompletionCode(0x%02x)", uint8(c))
	}
}

// IsSuccess reports whether c is the Success completion code.
func (c CompletionCode) IsSuccess() bool {
	return c == CompletionSuccess
}

// EidType is the 2-bit eid_type field reported by GetEndpointID.
type EidType uint8

const (
	EidTypeDynamic EidType = 0x00
	EidTypeStatic  EidType = 0x01
	// EidTypeUnknown covers the two reserved encodings; decode never fails
	// on this field, it just falls back here.
	EidTypeUnknown EidType = 0xFF
)

func eidTypeFromBits(b uint8) EidType {
	switch b & 0x03 {
	case 0x00:
		return EidTypeDynamic
	case 0x01:
		return EidTypeStatic
	default:
		return EidTypeUnknown
	}
}

// EndpointType is the 2-bit endpoint_type field reported by GetEndpointID.
type EndpointType uint8

const (
	EndpointTypeSimple           EndpointType = 0x00
	EndpointTypeBusOwnerOrBridge EndpointType = 0x01
	EndpointTypeUnknown          EndpointType = 0xFF
)

func endpointTypeFromBits(b uint8) EndpointType {
	switch b & 0x03 {
	case 0x00:
		return EndpointTypeSimple
	case 0x01:
		return EndpointTypeBusOwnerOrBridge
	default:
		return EndpointTypeUnknown
	}
}

// AllocationStatus is the 2-bit alloc_status field shared by SetEndpointID
// and AllocateEndpointIDs responses. The two commands use different values
// from the same encoding space: SetEndpointID reports pool-support
// capability, AllocateEndpointIDs reports whether the allocation itself was
// accepted.
type AllocationStatus uint8

const (
	AllocationAccepted      AllocationStatus = 0x00
	AllocationRejected      AllocationStatus = 0x01
	AllocationNoPoolSupport AllocationStatus = 0x02
	AllocationUnknown       AllocationStatus = 0xFF
)

func allocationStatusFromBits(b uint8) AllocationStatus {
	switch b & 0x03 {
	case 0x00:
		return AllocationAccepted
	case 0x01:
		return AllocationRejected
	case 0x02:
		return AllocationNoPoolSupport
	default:
		return AllocationUnknown
	}
}

// AssignmentStatus is the 2-bit assignment_status field of a SetEndpointID
// response.
type AssignmentStatus uint8

const (
	AssignmentAccepted AssignmentStatus = 0x00
	AssignmentRejected AssignmentStatus = 0x01
	AssignmentUnknown  AssignmentStatus = 0xFF
)

func assignmentStatusFromBits(b uint8) AssignmentStatus {
	switch b & 0x03 {
	case 0x00:
		return AssignmentAccepted
	case 0x01:
		return AssignmentRejected
	default:
		return AssignmentUnknown
	}
}

// SetEndpointIDReq is the SetEndpointID (0x01) request body.
type SetEndpointIDReq struct {
	Operation uint8 // 2b
	EID       EID
}

func (b SetEndpointIDReq) Marshal() []byte {
	return []byte{b.Operation & 0x03, uint8(b.EID)}
}

func unmarshalSetEndpointIDReq(buf []byte) (SetEndpointIDReq, error) {
	if len(buf) < 2 {
		return SetEndpointIDReq{}, newInvalidPayloadSize(2, len(buf))
	}
	return SetEndpointIDReq{Operation: buf[0] & 0x03, EID: EID(buf[1])}, nil
}

// SetEndpointIDResp is the SetEndpointID response body, following the
// completion code.
type SetEndpointIDResp struct {
	AllocStatus   AllocationStatus
	AssignStatus  AssignmentStatus
	EIDSetting    EID
	EIDPoolSize   uint8
}

func (b SetEndpointIDResp) Marshal() []byte {
	b0 := (uint8(b.AllocStatus) & 0x03) | ((uint8(b.AssignStatus) & 0x03) << 4)
	return []byte{b0, uint8(b.EIDSetting), b.EIDPoolSize}
}

func unmarshalSetEndpointIDResp(buf []byte) (SetEndpointIDResp, error) {
	if len(buf) < 3 {
		return SetEndpointIDResp{}, newInvalidPayloadSize(3, len(buf))
	}
	return SetEndpointIDResp{
		AllocStatus:  allocationStatusFromBits(buf[0]),
		AssignStatus: assignmentStatusFromBits(buf[0] >> 4),
		EIDSetting:   EID(buf[1]),
		EIDPoolSize:  buf[2],
	}, nil
}

// GetEndpointIDResp is the GetEndpointID (0x02) response body. The request
// body is empty.
type GetEndpointIDResp struct {
	EID            EID
	EidType        EidType
	EndpointType   EndpointType
	MediumSpecific uint8
}

func (b GetEndpointIDResp) Marshal() []byte {
	b1 := (uint8(b.EidType) & 0x03) | ((uint8(b.EndpointType) & 0x03) << 4)
	return []byte{uint8(b.EID), b1, b.MediumSpecific}
}

func unmarshalGetEndpointIDResp(buf []byte) (GetEndpointIDResp, error) {
	if len(buf) < 3 {
		return GetEndpointIDResp{}, newInvalidPayloadSize(3, len(buf))
	}
	return GetEndpointIDResp{
		EID:            EID(buf[0]),
		EidType:        eidTypeFromBits(buf[1]),
		EndpointType:   endpointTypeFromBits(buf[1] >> 4),
		MediumSpecific: buf[2],
	}, nil
}

// AllocateEndpointIDsReq is the AllocateEndpointIDs (0x08) request body.
type AllocateEndpointIDsReq struct {
	Operation     uint8 // 2b
	NumberOfEIDs  uint8
	StartingEID   EID
}

func (b AllocateEndpointIDsReq) Marshal() []byte {
	return []byte{b.Operation & 0x03, b.NumberOfEIDs, uint8(b.StartingEID)}
}

func unmarshalAllocateEndpointIDsReq(buf []byte) (AllocateEndpointIDsReq, error) {
	if len(buf) < 3 {
		return AllocateEndpointIDsReq{}, newInvalidPayloadSize(3, len(buf))
	}
	return AllocateEndpointIDsReq{
		Operation:    buf[0] & 0x03,
		NumberOfEIDs: buf[1],
		StartingEID:  EID(buf[2]),
	}, nil
}

// AllocateEndpointIDsResp is the AllocateEndpointIDs response body.
type AllocateEndpointIDsResp struct {
	AllocStatus AllocationStatus
	EIDPoolSize uint8
	FirstEID    EID
}

func (b AllocateEndpointIDsResp) Marshal() []byte {
	return []byte{uint8(b.AllocStatus) & 0x03, b.EIDPoolSize, uint8(b.FirstEID)}
}

func unmarshalAllocateEndpointIDsResp(buf []byte) (AllocateEndpointIDsResp, error) {
	if len(buf) < 3 {
		return AllocateEndpointIDsResp{}, newInvalidPayloadSize(3, len(buf))
	}
	return AllocateEndpointIDsResp{
		AllocStatus: allocationStatusFromBits(buf[0]),
		EIDPoolSize: buf[1],
		FirstEID:    EID(buf[2]),
	}, nil
}

// GetRoutingTableEntriesReq is the GetRoutingTableEntries (0x0A) request body.
type GetRoutingTableEntriesReq struct {
	EntryHandle uint8
}

func (b GetRoutingTableEntriesReq) Marshal() []byte {
	return []byte{b.EntryHandle}
}

func unmarshalGetRoutingTableEntriesReq(buf []byte) (GetRoutingTableEntriesReq, error) {
	if len(buf) < 1 {
		return GetRoutingTableEntriesReq{}, newInvalidPayloadSize(1, len(buf))
	}
	return GetRoutingTableEntriesReq{EntryHandle: buf[0]}, nil
}

// RoutingTableEntrySummary is one row this emulator can report via
// GetRoutingTableEntries, beyond the always-empty table a plain responder
// reports.
type RoutingTableEntrySummary struct {
	EID      EID
	EidRange uint8
}

// GetRoutingTableEntriesResp is the GetRoutingTableEntries response body.
// entries_in_response counts RoutingTableEntrySummary rows that would follow
// in a full implementation; this emulator reports the count but does not
// serialize per-entry bodies beyond what bus-owner visibility requires.
type GetRoutingTableEntriesResp struct {
	NextEntryHandle    uint8
	EntriesInResponse  uint8
}

func (b GetRoutingTableEntriesResp) Marshal() []byte {
	return []byte{b.NextEntryHandle, b.EntriesInResponse}
}

func unmarshalGetRoutingTableEntriesResp(buf []byte) (GetRoutingTableEntriesResp, error) {
	if len(buf) < 2 {
		return GetRoutingTableEntriesResp{}, newInvalidPayloadSize(2, len(buf))
	}
	return GetRoutingTableEntriesResp{
		NextEntryHandle:   buf[0],
		EntriesInResponse: buf[1],
	}, nil
}

// noRoutingEntryHandle is the sentinel "end of table" handle value.
const noRoutingEntryHandle = 0xFF
