package mctp

import (
	"context"
	"testing"
	"time"

	"github.com/jls5177/mctp-emu/internal/mctplog"
)

func waitForDiscoveryState(t *testing.T, driver *BusOwnerDriver, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, rec := range driver.DiscoveredEndpoints() {
			if rec.State == StateEnumerated || rec.State == StateFailed {
				return
			}
		}
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for discovery to reach a terminal state")
		case <-ticker.C:
		}
	}
}

func TestBusOwnerDriver_DiscoversSimpleEndpoint(t *testing.T) {
	vn := NewVirtualNetwork(mctplog.Null{})

	owner, err := vn.AddEndpoint(VirtualEndpointSpec{
		Name:         "bus-owner",
		PhysAddr:     0x10,
		InitialEID:   0x08,
		EndpointType: EndpointTypeBusOwnerOrBridge,
		IsBusOwner:   true,
		PoolStart:    0x10,
		PoolSize:     8,
	})
	if err != nil {
		t.Fatalf("AddEndpoint(bus-owner): %v", err)
	}

	managed, err := vn.AddEndpoint(VirtualEndpointSpec{
		Name:         "managed-1",
		PhysAddr:     0x20,
		InitialEID:   0,
		EndpointType: EndpointTypeSimple,
	})
	if err != nil {
		t.Fatalf("AddEndpoint(managed-1): %v", err)
	}

	driver, err := vn.AddBusOwnerLink("bus-owner", "managed-1")
	if err != nil {
		t.Fatalf("AddBusOwnerLink: %v", err)
	}

	vn.Start()
	defer vn.Close()

	owner.Context.RequestDiscovery()
	driver.Notify()

	waitForDiscoveryState(t, driver, 2*time.Second)

	discovered := driver.DiscoveredEndpoints()
	if len(discovered) != 1 {
		t.Fatalf("len(DiscoveredEndpoints()) = %d, want 1", len(discovered))
	}
	rec := discovered[0]
	if rec.State != StateEnumerated {
		t.Fatalf("discovery state = %v, want Enumerated", rec.State)
	}
	if rec.EID != managed.Context.AssignedEID() {
		t.Errorf("discovered EID = %s, does not match managed endpoint's assigned EID %s", rec.EID, managed.Context.AssignedEID())
	}
	if managed.Context.AssignedEID() == 0 {
		t.Error("managed endpoint's EID was never assigned by SetEndpointID")
	}
}

func TestBusOwnerDriver_UnknownTargetFails(t *testing.T) {
	vn := NewVirtualNetwork(mctplog.Null{})
	if _, err := vn.AddEndpoint(VirtualEndpointSpec{Name: "bus-owner", PhysAddr: 0x10, IsBusOwner: true}); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	if _, err := vn.AddBusOwnerLink("bus-owner", "does-not-exist"); err == nil {
		t.Error("AddBusOwnerLink with an unknown target: expected error, got nil")
	}
}
