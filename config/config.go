package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/led"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/telemetry"
)

// EnvConfig names the config file when no -config flag is given
const EnvConfig = "LEDCUE_CONFIG"

// Telemetry transports
const (
	TransportMAVLink = "mavlink"
	TransportOSC     = "osc"
	TransportReplay  = "replay"
)

// Sink kinds
const (
	SinkCommand = "command"
	SinkOSC     = "osc"
	SinkLog     = "log"
)

// Config is the runtime configuration of the LED cue player
type Config struct {
	PlansDir  string          `yaml:"plans_dir"`
	Plan      string          `yaml:"plan"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Sink      SinkConfig      `yaml:"sink"`
	Log       LogConfig       `yaml:"log"`
}

// TelemetryConfig selects where mission telemetry comes from
type TelemetryConfig struct {
	Transport      string        `yaml:"transport"`
	Endpoint       string        `yaml:"endpoint"`
	Trigger        string        `yaml:"trigger"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	SystemID       int           `yaml:"system_id"`
	ReplayFile     string        `yaml:"replay_file"`
	ReplayInterval time.Duration `yaml:"replay_interval"`
}

// SinkConfig selects how colors reach the strip
type SinkConfig struct {
	Kind      string        `yaml:"kind"`
	Command   []string      `yaml:"command"`
	OSCTarget string        `yaml:"osc_target"` // host:port
	OSCStrip  string        `yaml:"osc_strip"`
	Settle    time.Duration `yaml:"settle"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LogConfig holds logger settings. File is optional.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		PlansDir: "/home/led_plans",
		Telemetry: TelemetryConfig{
			Transport:      TransportMAVLink,
			Endpoint:       telemetry.DefaultEndpoint,
			Trigger:        string(messages.MsgMissionCurrent),
			PollTimeout:    5 * time.Second,
			SystemID:       telemetry.DefaultSystemID,
			ReplayInterval: time.Second,
		},
		Sink: SinkConfig{
			Kind:     SinkCommand,
			Command:  append([]string(nil), led.DefaultCommand...),
			OSCStrip: led.DefaultStrip,
			Settle:   100 * time.Millisecond,
			Timeout:  10 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load builds the configuration from defaults, then path (or $LEDCUE_CONFIG
// when path is empty), then LEDCUE_* environment overrides. The result is
// not validated so callers can apply flags first.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies LEDCUE_* environment variables
func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"LEDCUE_PLANS_DIR":   &cfg.PlansDir,
		"LEDCUE_PLAN":        &cfg.Plan,
		"LEDCUE_TRANSPORT":   &cfg.Telemetry.Transport,
		"LEDCUE_ENDPOINT":    &cfg.Telemetry.Endpoint,
		"LEDCUE_TRIGGER":     &cfg.Telemetry.Trigger,
		"LEDCUE_REPLAY_FILE": &cfg.Telemetry.ReplayFile,
		"LEDCUE_SINK":        &cfg.Sink.Kind,
		"LEDCUE_OSC_TARGET":  &cfg.Sink.OSCTarget,
		"LEDCUE_OSC_STRIP":   &cfg.Sink.OSCStrip,
		"LEDCUE_LOG_LEVEL":   &cfg.Log.Level,
		"LEDCUE_LOG_FILE":    &cfg.Log.File,
	}
	for name, field := range str {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("LEDCUE_COMMAND"); v != "" {
		cfg.Sink.Command = strings.Fields(v)
	}

	dur := map[string]*time.Duration{
		"LEDCUE_POLL_TIMEOUT": &cfg.Telemetry.PollTimeout,
		"LEDCUE_SETTLE":       &cfg.Sink.Settle,
		"LEDCUE_SINK_TIMEOUT": &cfg.Sink.Timeout,
	}
	for name, field := range dur {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*field = d
		}
	}

	if v := os.Getenv("LEDCUE_SYSTEM_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LEDCUE_SYSTEM_ID %q: %w", v, err)
		}
		cfg.Telemetry.SystemID = id
	}
	return nil
}

// Validate checks the configuration for the play subcommand
func (c *Config) Validate() error {
	switch c.Telemetry.Transport {
	case TransportMAVLink, TransportOSC:
		if _, err := telemetry.ParseEndpoint(c.Telemetry.Endpoint); err != nil {
			return fmt.Errorf("telemetry.endpoint: %w", err)
		}
	case TransportReplay:
		if c.Telemetry.ReplayFile == "" {
			return fmt.Errorf("telemetry.replay_file is required for the replay transport")
		}
		if c.Telemetry.ReplayInterval < 0 {
			return fmt.Errorf("telemetry.replay_interval must not be negative")
		}
	default:
		return fmt.Errorf("invalid telemetry.transport %q, must be one of: %v",
			c.Telemetry.Transport, []string{TransportMAVLink, TransportOSC, TransportReplay})
	}

	trigger, err := messages.ParseMessageType(c.Telemetry.Trigger)
	if err != nil || !trigger.IsWaypoint() {
		return fmt.Errorf("invalid telemetry.trigger %q, must be %s or %s",
			c.Telemetry.Trigger, messages.MsgMissionCurrent, messages.MsgMissionItemReached)
	}

	if c.Telemetry.PollTimeout <= 0 {
		return fmt.Errorf("telemetry.poll_timeout must be positive, got %v", c.Telemetry.PollTimeout)
	}
	if c.Telemetry.SystemID < 1 || c.Telemetry.SystemID > 255 {
		return fmt.Errorf("telemetry.system_id %d is outside [1, 255]", c.Telemetry.SystemID)
	}

	if err := c.ValidateSink(); err != nil {
		return err
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation settings must not be negative")
	}
	return nil
}

// ValidateSink checks only the sink settings, for subcommands that drive the strip without telemetry
func (c *Config) ValidateSink() error {
	switch c.Sink.Kind {
	case SinkCommand:
		if len(c.Sink.Command) == 0 {
			return fmt.Errorf("sink.command must not be empty")
		}
	case SinkOSC:
		if c.Sink.OSCTarget == "" {
			return fmt.Errorf("sink.osc_target is required for the osc sink")
		}
	case SinkLog:
	default:
		return fmt.Errorf("invalid sink.kind %q, must be one of: %v", c.Sink.Kind, []string{SinkCommand, SinkOSC, SinkLog})
	}

	if c.Sink.Settle < 0 {
		return fmt.Errorf("sink.settle must not be negative")
	}
	if c.Sink.Timeout <= 0 {
		return fmt.Errorf("sink.timeout must be positive, got %v", c.Sink.Timeout)
	}
	return nil
}

// TriggerType returns the parsed trigger. Call after Validate.
func (c *Config) TriggerType() messages.MessageType {
	t, err := messages.ParseMessageType(c.Telemetry.Trigger)
	if err != nil {
		return messages.MsgMissionCurrent
	}
	return t
}
