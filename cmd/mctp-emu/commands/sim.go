package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	mctp "github.com/jls5177/mctp-emu"
	"github.com/jls5177/mctp-emu/internal/mctplog"
	"github.com/jls5177/mctp-emu/internal/metrics"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run a bus owner and a managed endpoint in one process over an in-memory fabric",
	Long: `sim wires a bus-owner endpoint and a simple managed endpoint together over
a VirtualNetwork loopback fabric (no real sockets), triggers discovery, and
prints the resulting routing table. It is a demo and test aid, not a
long-running server.`,
	RunE: runSim,
}

func runSim(cmd *cobra.Command, args []string) error {
	log := mctplog.NewDefault(false)
	vn := mctp.NewVirtualNetwork(log)
	vn.SetMetrics(metrics.NewMetrics(prometheus.NewRegistry()))

	owner, err := vn.AddEndpoint(mctp.VirtualEndpointSpec{
		Name:         "bus-owner",
		PhysAddr:     0x10,
		InitialEID:   0x08,
		EndpointType: mctp.EndpointTypeBusOwnerOrBridge,
		IsBusOwner:   true,
		PoolStart:    0x10,
		PoolSize:     8,
	})
	if err != nil {
		return err
	}

	managed, err := vn.AddEndpoint(mctp.VirtualEndpointSpec{
		Name:         "managed-1",
		PhysAddr:     0x20,
		InitialEID:   0,
		EndpointType: mctp.EndpointTypeSimple,
	})
	if err != nil {
		return err
	}

	driver, err := vn.AddBusOwnerLink("bus-owner", "managed-1")
	if err != nil {
		return err
	}

	vn.Start()
	defer vn.Close()

	owner.Context.RequestDiscovery()
	driver.Notify()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	waitForDiscovery(ctx, driver)

	fmt.Println("Routing table (bus-owner view):")
	for _, rec := range driver.DiscoveredEndpoints() {
		fmt.Printf("  eid=%s type=%s state=%s pool_start=%s pool_size=%d\n",
			rec.EID, rec.EndpointType, rec.State, rec.PoolStart, rec.PoolSize)
	}
	fmt.Printf("managed endpoint assigned_eid=%s\n", managed.Context.AssignedEID())
	return nil
}

func waitForDiscovery(ctx context.Context, driver *mctp.BusOwnerDriver) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, rec := range driver.DiscoveredEndpoints() {
			if rec.State == mctp.StateEnumerated || rec.State == mctp.StateFailed {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
