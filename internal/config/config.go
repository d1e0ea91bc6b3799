// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
	"firestige.xyz/hpsdrdump/internal/log"
)

// Root is the top-level YAML key. Environment variables use the
// HPSDRDUMP_ prefix, e.g. HPSDRDUMP_LOG_LEVEL.
const Root = "hpsdrdump"

// Config is the complete static configuration.
type Config struct {
	Log       log.Config      `mapstructure:"log"`
	Dissector DissectorConfig `mapstructure:"dissector"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

// ─── Dissector ───

// DissectorConfig holds the decode preferences.
type DissectorConfig struct {
	StrictSize            bool `mapstructure:"strict_size"`
	StrictPad             bool `mapstructure:"strict_pad"`
	StrictProgramDataSize bool `mapstructure:"strict_program_data_size"`
	DDCIQMTUCheck         bool `mapstructure:"ddciq_mtu_check"`
	SequenceCheck         bool `mapstructure:"sequence_check"`
}

// Prefs converts the section into dissector preferences.
func (c DissectorConfig) Prefs() hpsdr.Prefs {
	return hpsdr.Prefs{
		StrictSize:            c.StrictSize,
		StrictPad:             c.StrictPad,
		StrictProgramDataSize: c.StrictProgramDataSize,
		DDCIQMTUCheck:         c.DDCIQMTUCheck,
		SequenceCheck:         c.SequenceCheck,
	}
}

// ─── Capture ───

const (
	SourceFile     = "file"
	SourceAFPacket = "afpacket"
)

// CaptureConfig selects and tunes the packet source.
type CaptureConfig struct {
	Source       string `mapstructure:"source"` // file | afpacket
	File         string `mapstructure:"file"`
	Interface    string `mapstructure:"interface"`
	SnapLen      int    `mapstructure:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	UDPOnly      bool   `mapstructure:"udp_only"`
}

// PluginConfig returns the Init map for the selected capturer.
func (c CaptureConfig) PluginConfig() map[string]any {
	if c.Source == SourceFile {
		return map[string]any{"path": c.File}
	}
	return map[string]any{
		"interface":      c.Interface,
		"snap_len":       c.SnapLen,
		"buffer_size_mb": c.BufferSizeMB,
		"timeout_ms":     c.TimeoutMs,
		"udp_only":       c.UDPOnly,
	}
}

// ─── Output ───

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// OutputConfig controls console rendering and filtering.
type OutputConfig struct {
	Format       string   `mapstructure:"format"`
	Subprotocols []string `mapstructure:"subprotocols"` // empty = all
	MinSeverity  string   `mapstructure:"min_severity"` // "" | warn | error
	Bits         bool     `mapstructure:"bits"`
	MaxChildren  int      `mapstructure:"max_children"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Kafka ───

// KafkaConfig configures the Kafka tree exporter.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	Compression  string        `mapstructure:"compression"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// PluginConfig returns the Init map for the kafka reporter.
func (c KafkaConfig) PluginConfig() map[string]any {
	return map[string]any{
		"brokers":       c.Brokers,
		"topic":         c.Topic,
		"batch_size":    c.BatchSize,
		"batch_timeout": c.BatchTimeout.String(),
		"compression":   c.Compression,
		"max_attempts":  c.MaxAttempts,
	}
}

// ─── Loading ───

type configRoot struct {
	HPSDRDump Config `mapstructure:"hpsdrdump"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. An empty path yields the defaults
// plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// "hpsdrdump.log.level" maps to HPSDRDUMP_LOG_LEVEL.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.HPSDRDump

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the validated default configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var root configRoot
	// Defaults always decode.
	_ = v.Unmarshal(&root)
	cfg := root.HPSDRDump
	_ = cfg.ValidateAndApplyDefaults()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault(Root+".log.level", "info")
	v.SetDefault(Root+".log.format", log.FormatText)
	v.SetDefault(Root+".log.pattern", log.DefaultPattern)
	v.SetDefault(Root+".log.time", log.DefaultTime)
	v.SetDefault(Root+".log.file.enabled", false)
	v.SetDefault(Root+".log.file.path", "/var/log/hpsdrdump/hpsdrdump.log")
	v.SetDefault(Root+".log.file.max_size_mb", 100)
	v.SetDefault(Root+".log.file.max_backups", 5)
	v.SetDefault(Root+".log.file.max_age_days", 30)
	v.SetDefault(Root+".log.file.compress", true)

	// Dissector preferences
	p := hpsdr.DefaultPrefs()
	v.SetDefault(Root+".dissector.strict_size", p.StrictSize)
	v.SetDefault(Root+".dissector.strict_pad", p.StrictPad)
	v.SetDefault(Root+".dissector.strict_program_data_size", p.StrictProgramDataSize)
	v.SetDefault(Root+".dissector.ddciq_mtu_check", p.DDCIQMTUCheck)
	v.SetDefault(Root+".dissector.sequence_check", p.SequenceCheck)

	// Capture defaults
	v.SetDefault(Root+".capture.source", SourceFile)
	v.SetDefault(Root+".capture.file", "")
	v.SetDefault(Root+".capture.interface", "")
	v.SetDefault(Root+".capture.snap_len", 65535)
	v.SetDefault(Root+".capture.buffer_size_mb", 8)
	v.SetDefault(Root+".capture.timeout_ms", 100)
	v.SetDefault(Root+".capture.udp_only", true)

	// Output defaults
	v.SetDefault(Root+".output.format", OutputText)
	v.SetDefault(Root+".output.subprotocols", []string{})
	v.SetDefault(Root+".output.min_severity", "")
	v.SetDefault(Root+".output.bits", false)
	v.SetDefault(Root+".output.max_children", 0)

	// Metrics defaults
	v.SetDefault(Root+".metrics.enabled", false)
	v.SetDefault(Root+".metrics.listen", ":9091")
	v.SetDefault(Root+".metrics.path", "/metrics")

	// Kafka defaults
	v.SetDefault(Root+".kafka.enabled", false)
	v.SetDefault(Root+".kafka.brokers", []string{})
	v.SetDefault(Root+".kafka.topic", "hpsdr-trees")
	v.SetDefault(Root+".kafka.batch_size", 100)
	v.SetDefault(Root+".kafka.batch_timeout", "100ms")
	v.SetDefault(Root+".kafka.compression", "snappy")
	v.SetDefault(Root+".kafka.max_attempts", 3)
}

var (
	validLevels       = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats   = map[string]bool{log.FormatText: true, log.FormatJSON: true, log.FormatPattern: true}
	validSources      = map[string]bool{SourceFile: true, SourceAFPacket: true}
	validOutputs      = map[string]bool{OutputText: true, OutputJSON: true, OutputYAML: true}
	validCompressions = map[string]bool{"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true}
)

// ValidateAndApplyDefaults validates the configuration and normalises
// case-insensitive enumerations.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if !validLogFormats[cfg.Log.Format] {
		return fmt.Errorf("%w: invalid log format: %s (must be text/json/pattern)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Capture ──
	cfg.Capture.Source = strings.ToLower(cfg.Capture.Source)
	if !validSources[cfg.Capture.Source] {
		return fmt.Errorf("%w: invalid capture source: %s (must be file/afpacket)", core.ErrConfigInvalid, cfg.Capture.Source)
	}
	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("%w: capture.snap_len must be positive", core.ErrConfigInvalid)
	}

	// ── Output ──
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if !validOutputs[cfg.Output.Format] {
		return fmt.Errorf("%w: invalid output format: %s (must be text/json/yaml)", core.ErrConfigInvalid, cfg.Output.Format)
	}
	if _, err := hpsdr.ParseSeverity(cfg.Output.MinSeverity); err != nil {
		return fmt.Errorf("%w: output.min_severity: %v", core.ErrConfigInvalid, err)
	}
	for i, name := range cfg.Output.Subprotocols {
		sub, err := hpsdr.ParseSubprotocol(name)
		if err != nil {
			return fmt.Errorf("%w: output.subprotocols: %v", core.ErrConfigInvalid, err)
		}
		cfg.Output.Subprotocols[i] = sub.String()
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// ── Kafka ──
	if cfg.Kafka.Compression == "" {
		cfg.Kafka.Compression = "none"
	}
	if !validCompressions[cfg.Kafka.Compression] {
		return fmt.Errorf("%w: invalid kafka compression: %s", core.ErrConfigInvalid, cfg.Kafka.Compression)
	}
	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: kafka.brokers is required when kafka.enabled=true", core.ErrConfigInvalid)
		}
		if cfg.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka.topic is required when kafka.enabled=true", core.ErrConfigInvalid)
		}
	}
	return nil
}
