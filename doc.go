// Package mctp emulates an MCTP (DMTF DSP0236) endpoint or bus owner over a
// pluggable physical binding, for bring-up and testing of platform management
// software without real hardware.
//
// # Overview
//
// mctp implements the wire codec, SMBus physical binding, flow-table request
// correlation, and endpoint/bus-owner control logic described by DSP0236. It
// does not speak any higher-layer MCTP message type (PLDM, NVMe-MI, ...); it
// stops at the control protocol and the transport that carries it.
//
// # Basic Usage
//
// Build an EndpointContext, a Network, and a PhysicalBinding, then wire them
// together:
//
//	ctx := mctp.NewEndpointContext(0, mctp.EndpointTypeSimple, false, 0, 0)
//	net := mctp.NewNetwork(log)
//	net.SetResponder(mctp.NewControlResponder(ctx, log))
//
//	binding, err := mctp.NewUDPBinding(bindAddr, peerAddr, localPhys, peerPhys, log)
//	if err != nil {
//	    return err
//	}
//	if _, err := net.AddPhysicalBinding(binding); err != nil {
//	    return err
//	}
//	net.Start()
//	defer net.Close()
//
// # Bus Owner Discovery
//
// A bus owner drives endpoint enumeration with a BusOwnerDriver:
//
//	driver := mctp.NewBusOwnerDriver(ctx, net, targetAddr, log)
//	go driver.Run(appCtx)
//	ctx.RequestDiscovery()
//	driver.Notify()
//
// # In-Process Topologies
//
// VirtualNetwork wires multiple endpoints together over a shared in-memory
// bus for demos and tests, without opening any real socket; see cmd/mctp-emu's
// sim subcommand.
//
// # Physical Bindings
//
// Three PhysicalBinding implementations ship with this package: UDPBinding
// (datagram-per-frame over a real socket), LoopbackBinding (point-to-point,
// in-process), and LoopbackHub/HubBinding (shared-bus, in-process, used by
// VirtualNetwork).
package mctp
