package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mctp "github.com/jls5177/mctp-emu"
	"github.com/jls5177/mctp-emu/internal/config"
	"github.com/jls5177/mctp-emu/internal/mctplog"
	"github.com/jls5177/mctp-emu/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single MCTP endpoint over UDP",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Uint8("smbus-addr", 0, "local SMBus 7-bit physical address")
	runCmd.Flags().Uint8("peer-addr", 0, "peer SMBus 7-bit physical address")
	runCmd.Flags().String("udp-bind-addr", "", "UDP address to receive frames on")
	runCmd.Flags().String("udp-peer-addr", "", "UDP address to transmit frames to")
	runCmd.Flags().Uint8("initial-eid", 0, "this endpoint's EID at startup (0 = unassigned)")
	runCmd.Flags().Bool("bus-owner", false, "act as the bus owner and drive discovery")
	runCmd.Flags().String("endpoint-type", "", "simple or bus_owner")
	runCmd.Flags().Uint8("pool-start", 0, "dynamic EID pool starting value (bus owner only)")
	runCmd.Flags().Uint8("pool-size", 0, "dynamic EID pool size (bus owner only)")
	runCmd.Flags().String("log-level", "", "debug, info, warn, or error")
	runCmd.Flags().String("metrics-addr", "", "address to serve /metrics on (empty disables metrics)")
}

func runRun(cmd *cobra.Command, args []string) error {
	v := viper.New()
	bindViper(v, cmd)

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := mctplog.NewDefault(cfg.LogLevel == "debug")

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server error: %v", err)
			}
		}()
		defer srv.Close()
		log.Info("serving metrics on %s", cfg.MetricsAddr)
	}

	endpointType := mctp.EndpointTypeSimple
	if cfg.EndpointType == "bus_owner" {
		endpointType = mctp.EndpointTypeBusOwnerOrBridge
	}

	ctx := mctp.NewEndpointContext(
		mctp.EID(cfg.InitialEID),
		endpointType,
		cfg.BusOwner,
		mctp.EID(cfg.PoolStart),
		cfg.PoolSize,
	)

	net := mctp.NewNetwork(log)
	responder := mctp.NewControlResponder(ctx, log)
	responder.SetMetrics(m)
	net.SetResponder(responder)
	net.SetMetrics(m)

	binding, err := mctp.NewUDPBinding(cfg.UDPBindAddr, cfg.UDPPeerAddr, mctp.PhysAddr(cfg.SMBusAddr), mctp.PhysAddr(cfg.PeerAddr), log)
	if err != nil {
		return fmt.Errorf("opening UDP binding: %w", err)
	}
	bindingID, err := net.AddPhysicalBinding(binding)
	if err != nil {
		return fmt.Errorf("registering UDP binding: %w", err)
	}

	net.Start()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.BusOwner {
		target := mctp.SocketAddress{EID: 0, BindingID: bindingID, PhysAddr: mctp.PhysAddr(cfg.PeerAddr)}
		driver := mctp.NewBusOwnerDriver(ctx, net, target, log)
		driver.SetMetrics(m)
		go func() {
			if err := driver.Run(appCtx); err != nil {
				log.Warn("bus-owner driver stopped: %v", err)
			}
		}()
		log.Info("bus-owner driver started, targeting peer 0x%02x", cfg.PeerAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("mctp-emu running; smbus_addr=0x%02x udp_bind=%s udp_peer=%s", cfg.SMBusAddr, cfg.UDPBindAddr, cfg.UDPPeerAddr)

	<-sigCh
	log.Info("shutdown signal received")
	cancel()

	if err := net.Close(); err != nil {
		return fmt.Errorf("network shutdown: %w", err)
	}
	return nil
}
