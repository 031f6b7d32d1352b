package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/config"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/cue"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/led"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/planselect"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/playback"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/templates"
)

func runPlay(ctx context.Context, args []string, stderr io.Writer) int {
	fs := newFlagSet("play", stderr)
	var flags commonFlags
	flags.register(fs)
	planPath := fs.String("plan", "", "plan file (skips the picker)")
	plansDir := fs.String("dir", "", "directory of *.led.json / *.led.yaml plans")
	transport := fs.String("transport", "", "telemetry transport: mavlink, osc or replay")
	endpoint := fs.String("endpoint", "", "telemetry endpoint, e.g. udpin:0.0.0.0:14550")
	trigger := fs.String("trigger", "", "waypoint message: mission_current or mission_item_reached")
	replay := fs.String("replay", "", "replay file (implies -transport replay)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, closer, err := loadConfig(&flags, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer closer.Close()

	if *planPath != "" {
		cfg.Plan = *planPath
	}
	if *plansDir != "" {
		cfg.PlansDir = *plansDir
	}
	if *transport != "" {
		cfg.Telemetry.Transport = *transport
	}
	if *endpoint != "" {
		cfg.Telemetry.Endpoint = *endpoint
	}
	if *trigger != "" {
		cfg.Telemetry.Trigger = *trigger
	}
	if *replay != "" {
		cfg.Telemetry.Transport = config.TransportReplay
		cfg.Telemetry.ReplayFile = *replay
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		return exitUsage
	}

	path, err := planselect.Resolve(cfg.Plan, cfg.PlansDir)
	if err != nil {
		log.Error("No LED plan selected", "error", err)
		return exitUsage
	}
	plan, err := cue.LoadFile(path)
	if err != nil {
		log.Error("Cannot use LED plan", "error", err)
		return exitUsage
	}
	for _, c := range plan.Colors() {
		if !led.Known(c) {
			log.Warnf("Plan uses unknown color %q, it will be skipped", c)
		}
	}

	sink, err := buildSink(cfg.Sink)
	if err != nil {
		log.Error("Failed to create LED sink", "error", err)
		return exitUsage
	}
	channel, err := buildChannel(cfg.Telemetry)
	if err != nil {
		log.Error("Failed to open telemetry", "error", err)
		return exitUsage
	}
	defer func() {
		if err := channel.Close(); err != nil {
			log.Warn("Failed to close telemetry", "error", err)
		}
	}()

	engine, err := playback.New(plan, channel, sink, playback.Options{
		Trigger:     cfg.TriggerType(),
		PollTimeout: cfg.Telemetry.PollTimeout,
		Settle:      cfg.Sink.Settle,
		Logger:      log.Default().WithPrefix("LED"),
	})
	if err != nil {
		log.Error("Failed to start playback", "error", err)
		return exitUsage
	}

	if err := engine.Run(ctx); err != nil {
		log.Error("Playback aborted", "error", err)
		if errors.Is(err, playback.ErrEmptyPlan) {
			return exitUsage
		}
		return exitFailure
	}

	st := engine.State()
	log.Info("Exiting", "dispatches", st.Dispatches, "failed", st.FailedDispatch)
	return exitOK
}

func runSet(ctx context.Context, args []string, stderr io.Writer) int {
	fs := newFlagSet("set", stderr)
	var flags commonFlags
	flags.register(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ledcue set [flags] <color>\n\nColors: %s\n\n", colorList())
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	cfg, closer, err := loadConfig(&flags, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer closer.Close()
	if err := cfg.ValidateSink(); err != nil {
		log.Error("Invalid configuration", "error", err)
		return exitUsage
	}

	sink, err := buildSink(cfg.Sink)
	if err != nil {
		log.Error("Failed to create LED sink", "error", err)
		return exitUsage
	}

	name := led.Normalize(fs.Arg(0))
	if err := sink.Set(ctx, name); err != nil {
		log.Error("Failed to set LEDs", "color", name, "error", err)
		if errors.Is(err, led.ErrUnknownColor) {
			fmt.Fprintf(stderr, "Available: %s\n", colorList())
			return exitUsage
		}
		return exitFailure
	}
	log.Info("LEDs set", "color", name)
	return exitOK
}

func runColors(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("colors", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	for _, name := range led.Names() {
		c := led.Colors[name]
		fmt.Fprintf(stdout, "%-10s #%02x%02x%02x\n", name, c.R, c.G, c.B)
	}
	return exitOK
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("check", stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: ledcue check <plan>")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	path := fs.Arg(0)
	plan, err := cue.LoadFile(path)
	if err != nil && !errors.Is(err, cue.ErrEmptyPlan) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	for _, wp := range plan.Waypoints() {
		d := plan.Lookup(wp)
		note := ""
		if target, ok := d.Target(); ok && !led.Known(target) {
			note = "  (unknown color, will be skipped)"
		}
		fmt.Fprintf(stdout, "%4d  %s%s\n", wp, d, note)
	}
	for _, w := range plan.Warnings() {
		fmt.Fprintf(stdout, "warning: %s\n", w)
	}

	if plan.Len() == 0 {
		fmt.Fprintf(stderr, "Error: %s has no entries\n", path)
		return exitUsage
	}
	fmt.Fprintf(stdout, "%s: %d entries, %d warnings\n", path, plan.Len(), len(plan.Warnings()))
	return exitOK
}

func runMake(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("make", stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: ledcue make <from:to:color[:mode]>... <out.led.json|out.led.yaml>")
		fmt.Fprintln(fs.Output(), "A blank color (5:9:) leaves those waypoints unchanged. The mode field is ignored.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return exitUsage
	}

	rest := fs.Args()
	out := rest[len(rest)-1]
	var ranges []templates.RangeTemplate
	for _, s := range rest[:len(rest)-1] {
		r, err := templates.ParseRange(s)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		if target, ok := cue.ParseDirective(r.Color).Target(); ok && !led.Known(target) {
			fmt.Fprintf(stderr, "Warning: unknown color %q in %s\n", r.Color, s)
		}
		ranges = append(ranges, r)
	}

	result, err := templates.Expand(ranges)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	for _, wp := range result.Overwritten {
		fmt.Fprintf(stderr, "Warning: waypoint %d set by more than one range, last one wins\n", wp)
	}

	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := result.Document.Write(f, cue.FormatForPath(out)); err != nil {
		_ = f.Close()
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "Wrote LED cues to %s\n", out)
	return exitOK
}

// runTest cycles colors so the strip wiring can be checked before a flight
func runTest(ctx context.Context, args []string, stderr io.Writer) int {
	fs := newFlagSet("test", stderr)
	var flags commonFlags
	flags.register(fs)
	interval := fs.Duration("interval", time.Second, "time each color is shown")
	cycles := fs.Int("cycles", 0, "number of cycles, 0 runs until interrupted")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *interval <= 0 || *cycles < 0 {
		fmt.Fprintln(stderr, "-interval must be positive and -cycles must not be negative")
		return exitUsage
	}

	cfg, closer, err := loadConfig(&flags, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer closer.Close()
	if err := cfg.ValidateSink(); err != nil {
		log.Error("Invalid configuration", "error", err)
		return exitUsage
	}

	sink, err := buildSink(cfg.Sink)
	if err != nil {
		log.Error("Failed to create LED sink", "error", err)
		return exitUsage
	}

	log.Info("Starting LED test cycle, press Ctrl+C to stop")
	sequence := []string{"red", "green", "blue", cue.OffColor}
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

loop:
	for n := 0; *cycles == 0 || n < *cycles; n++ {
		for _, name := range sequence {
			if err := sink.Set(ctx, name); err != nil && ctx.Err() == nil {
				log.Error("Failed to set LEDs", "color", name, "error", err)
			}
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
			}
		}
	}

	offCtx, cancel := context.WithTimeout(context.Background(), cfg.Sink.Timeout)
	defer cancel()
	if err := sink.Set(offCtx, cue.OffColor); err != nil {
		log.Error("Failed to turn LEDs off", "error", err)
		return exitFailure
	}
	log.Info("LEDs off")
	return exitOK
}
