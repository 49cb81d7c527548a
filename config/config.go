// Package config loads the RDP negotiation defaults (spec §6) from a YAML
// file, the way the teacher's test binaries load config.yaml into
// config.AppConfig before constructing their core.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

// Config holds the process-wide RDP defaults and the buffer-pool sizing
// knobs. YAML-tagged so it round-trips through config.yaml the way the
// teacher's PcpCoreConfig.PayloadPoolSize/PreferredMSS do.
type Config struct {
	WindowSize      uint32 `yaml:"window_size"`
	ConnTimeoutMs   uint32 `yaml:"conn_timeout_ms"`
	PacketTimeoutMs uint32 `yaml:"packet_timeout_ms"`
	DelayedAcks     bool   `yaml:"delayed_acks"`
	AckTimeoutMs    uint32 `yaml:"ack_timeout_ms"`
	AckDelayCount   uint32 `yaml:"ack_delay_count"`
	PayloadPoolSize int    `yaml:"payload_pool_size"`
	Debug           bool   `yaml:"debug"`
}

// AppConfig is the process-wide loaded configuration, assigned once at
// startup by the caller from ReadConfig's result (ReadConfig itself does
// not set it). Mirrors the teacher's config.AppConfig package variable.
var AppConfig *Config

var mu sync.Mutex

// Default returns the built-in defaults (spec §6), used when no config
// file is present.
func Default() *Config {
	return &Config{
		WindowSize:      10,
		ConnTimeoutMs:   10000,
		PacketTimeoutMs: 1000,
		DelayedAcks:     true,
		AckTimeoutMs:    500,
		AckDelayCount:   5,
		PayloadPoolSize: 2000,
	}
}

// ReadConfig loads a YAML config file, falling back to Default() field by
// field for any numeric field the file leaves zero-valued. delayed_acks and
// debug are taken from the file as written, so an absent delayed_acks is
// false. A missing file yields Default().
func ReadConfig(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if loaded.WindowSize != 0 {
		cfg.WindowSize = loaded.WindowSize
	}
	if loaded.ConnTimeoutMs != 0 {
		cfg.ConnTimeoutMs = loaded.ConnTimeoutMs
	}
	if loaded.PacketTimeoutMs != 0 {
		cfg.PacketTimeoutMs = loaded.PacketTimeoutMs
	}
	cfg.DelayedAcks = loaded.DelayedAcks
	if loaded.AckTimeoutMs != 0 {
		cfg.AckTimeoutMs = loaded.AckTimeoutMs
	}
	if loaded.AckDelayCount != 0 {
		cfg.AckDelayCount = loaded.AckDelayCount
	}
	if loaded.PayloadPoolSize != 0 {
		cfg.PayloadPoolSize = loaded.PayloadPoolSize
	}
	cfg.Debug = loaded.Debug

	return cfg, nil
}
