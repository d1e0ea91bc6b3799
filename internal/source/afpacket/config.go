// Package afpacket captures live traffic from a Linux AF_PACKET socket.
package afpacket

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/hpsdrdump/internal/core"
)

const Name = "afpacket"

type Config struct {
	Interface    string `mapstructure:"interface"`
	SnapLen      int    `mapstructure:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	UDPOnly      bool   `mapstructure:"udp_only"`
}

func decodeConfig(in map[string]any) (Config, error) {
	cfg := Config{SnapLen: 65535, BufferSizeMB: 8, TimeoutMs: 100, UDPOnly: true}
	if err := mapstructure.Decode(in, &cfg); err != nil {
		return cfg, fmt.Errorf("afpacket: %w", err)
	}
	if cfg.Interface == "" {
		return cfg, fmt.Errorf("afpacket: %w: interface is required", core.ErrConfigInvalid)
	}
	if cfg.SnapLen <= 0 || cfg.BufferSizeMB <= 0 || cfg.TimeoutMs <= 0 {
		return cfg, fmt.Errorf("afpacket: %w: snap_len, buffer_size_mb and timeout_ms must be positive", core.ErrConfigInvalid)
	}
	return cfg, nil
}
