// Package config resolves the mctp-emu process configuration from flags,
// environment variables, and an optional config file, in that precedence
// order, producing a fully-resolved Config handed to the core's Network and
// EndpointContext constructors.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete process configuration. There is no runtime
// reconfiguration protocol: everything here is resolved once at startup.
type Config struct {
	// SMBusAddr is this endpoint's local SMBus 7-bit physical address.
	SMBusAddr uint8 `mapstructure:"smbus_addr"`

	// PeerAddr is the remote SMBus 7-bit physical address this emulator
	// exchanges frames with.
	PeerAddr uint8 `mapstructure:"peer_addr"`

	// UDPBindAddr is the local UDP address the binding listens on.
	UDPBindAddr string `mapstructure:"udp_bind_addr"`

	// UDPPeerAddr is the UDP address frames are transmitted to.
	UDPPeerAddr string `mapstructure:"udp_peer_addr"`

	// InitialEID is this endpoint's EID at startup; 0 means unassigned.
	InitialEID uint8 `mapstructure:"initial_eid"`

	// BusOwner selects whether this endpoint drives discovery.
	BusOwner bool `mapstructure:"bus_owner"`

	// EndpointType is "simple" or "bus_owner" and determines the value
	// this endpoint reports from GetEndpointID.
	EndpointType string `mapstructure:"endpoint_type"`

	// PoolStart and PoolSize describe the dynamic EID pool this endpoint
	// manages when BusOwner is true. PoolSize of 0 disables pool tracking.
	PoolStart uint8 `mapstructure:"pool_start"`
	PoolSize  uint8 `mapstructure:"pool_size"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log_level"`

	// MetricsAddr, if non-empty, is the address the /metrics HTTP handler
	// listens on.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("smbus_addr", 0x10)
	v.SetDefault("peer_addr", 0x20)
	v.SetDefault("udp_bind_addr", "127.0.0.1:16900")
	v.SetDefault("udp_peer_addr", "127.0.0.1:16901")
	v.SetDefault("initial_eid", 0)
	v.SetDefault("bus_owner", false)
	v.SetDefault("endpoint_type", "simple")
	v.SetDefault("pool_start", 0)
	v.SetDefault("pool_size", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
}

// Load resolves configuration from, in ascending precedence, defaults, an
// optional config file at configPath, and MCTP_EMU_-prefixed environment
// variables. Flags are expected to already be bound into v by the caller
// (see cmd/mctp-emu) before Load is called.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("MCTP_EMU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects a configuration the core cannot run with.
func (c *Config) Validate() error {
	if c.SMBusAddr < 0x08 || c.SMBusAddr > 0x7F || (c.SMBusAddr>>3) == 0b1111 {
		return fmt.Errorf("invalid config: smbus_addr 0x%02x is not a valid SMBus physical address", c.SMBusAddr)
	}
	if c.PeerAddr < 0x08 || c.PeerAddr > 0x7F || (c.PeerAddr>>3) == 0b1111 {
		return fmt.Errorf("invalid config: peer_addr 0x%02x is not a valid SMBus physical address", c.PeerAddr)
	}
	if c.UDPBindAddr == "" {
		return fmt.Errorf("invalid config: udp_bind_addr is required")
	}
	if c.UDPPeerAddr == "" {
		return fmt.Errorf("invalid config: udp_peer_addr is required")
	}
	switch c.EndpointType {
	case "simple", "bus_owner":
	default:
		return fmt.Errorf("invalid config: endpoint_type must be \"simple\" or \"bus_owner\", got %q", c.EndpointType)
	}
	if c.BusOwner && c.PoolSize > 0 {
		if int(c.PoolStart)+int(c.PoolSize)-1 > 0xFE {
			return fmt.Errorf("invalid config: pool_start+pool_size overruns the unicast EID range")
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: log_level must be one of debug/info/warn/error, got %q", c.LogLevel)
	}
	return nil
}
