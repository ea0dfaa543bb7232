package mctp

import (
	"testing"

	"github.com/jls5177/mctp-emu/internal/mctplog"
)

func TestVirtualNetwork_AddEndpoint_DuplicateNameFails(t *testing.T) {
	vn := NewVirtualNetwork(mctplog.Null{})
	spec := VirtualEndpointSpec{Name: "a", PhysAddr: 0x10}
	if _, err := vn.AddEndpoint(spec); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	if _, err := vn.AddEndpoint(spec); err == nil {
		t.Error("AddEndpoint with a duplicate name: expected error, got nil")
	}
}

func TestVirtualNetwork_Endpoint_Lookup(t *testing.T) {
	vn := NewVirtualNetwork(mctplog.Null{})
	if _, err := vn.AddEndpoint(VirtualEndpointSpec{Name: "a", PhysAddr: 0x10}); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	if _, ok := vn.Endpoint("a"); !ok {
		t.Error("Endpoint(\"a\") not found after AddEndpoint")
	}
	if _, ok := vn.Endpoint("missing"); ok {
		t.Error("Endpoint(\"missing\") found, want not found")
	}
}

func TestVirtualNetwork_StartAndCloseIsIdempotentAndClean(t *testing.T) {
	vn := NewVirtualNetwork(mctplog.Null{})
	if _, err := vn.AddEndpoint(VirtualEndpointSpec{Name: "a", PhysAddr: 0x10}); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	if _, err := vn.AddEndpoint(VirtualEndpointSpec{Name: "b", PhysAddr: 0x20}); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	vn.Start()
	if err := vn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestVirtualNetwork_SetMetrics_AppliesToSubsequentEndpoints(t *testing.T) {
	vn := NewVirtualNetwork(mctplog.Null{})
	vn.SetMetrics(nil) // nil is a valid, safe value; exercising the setter is the point

	ep, err := vn.AddEndpoint(VirtualEndpointSpec{Name: "a", PhysAddr: 0x10, InitialEID: 0x08})
	if err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	if ep.Network == nil {
		t.Fatal("endpoint has no Network")
	}
}
