package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/config"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/led"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/logging"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/telemetry"
)

// commonFlags are shared by the subcommands that load a config
type commonFlags struct {
	configPath string
	sinkKind   string
	dryRun     bool
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default $"+config.EnvConfig+")")
	fs.StringVar(&c.sinkKind, "sink", "", "LED sink: command, osc or log")
	fs.BoolVar(&c.dryRun, "dry-run", false, "log colors instead of driving the strip")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// apply overlays the flags on cfg
func (c *commonFlags) apply(cfg *config.Config) {
	if c.sinkKind != "" {
		cfg.Sink.Kind = c.sinkKind
	}
	if c.dryRun {
		cfg.Sink.Kind = config.SinkLog
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("ledcue "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags returns the exit code to use when parsing did not succeed
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}

// loadConfig loads the config, applies flags and starts logging
func loadConfig(flags *commonFlags, stderr io.Writer) (*config.Config, io.Closer, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	flags.apply(cfg)

	_, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Output:     stderr,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

// buildSink creates the configured LED sink
func buildSink(cfg config.SinkConfig) (led.Sink, error) {
	logger := log.Default().WithPrefix("LED")
	switch cfg.Kind {
	case config.SinkCommand:
		return led.NewCommandSink(cfg.Command, cfg.Timeout, logger)
	case config.SinkOSC:
		return led.NewOSCSinkForTarget(cfg.OSCTarget, cfg.OSCStrip, logger)
	case config.SinkLog:
		return led.NewDryRunSink(logger), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
}

// buildChannel opens the configured telemetry channel
func buildChannel(cfg config.TelemetryConfig) (telemetry.Channel, error) {
	logger := log.Default().WithPrefix("MAV")
	switch cfg.Transport {
	case config.TransportReplay:
		return telemetry.OpenReplay(cfg.ReplayFile, cfg.ReplayInterval)
	case config.TransportMAVLink, config.TransportOSC:
		ep, err := telemetry.ParseEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		if cfg.Transport == config.TransportOSC {
			return telemetry.NewOSCChannel(ep, logger)
		}
		return telemetry.NewMAVLinkChannel(ep, uint8(cfg.SystemID), logger)
	default:
		return nil, fmt.Errorf("unknown telemetry transport %q", cfg.Transport)
	}
}

func colorList() string {
	return strings.Join(led.Names(), ", ")
}
