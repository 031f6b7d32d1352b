package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/cue"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/led"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/telemetry"
)

// ErrEmptyPlan is returned by Run when the plan has no entries
var ErrEmptyPlan = cue.ErrEmptyPlan

const (
	DefaultPollTimeout     = 5 * time.Second
	DefaultSettle          = 100 * time.Millisecond
	DefaultShutdownTimeout = 5 * time.Second
)

// Phase is the engine's position in its lifecycle
type Phase int

const (
	AwaitingFirstEvent Phase = iota
	Tracking
	ShuttingDown
)

func (p Phase) String() string {
	switch p {
	case AwaitingFirstEvent:
		return "awaiting-first-event"
	case Tracking:
		return "tracking"
	case ShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the engine's view of the mission and the strip
type State struct {
	Phase          Phase
	HasWaypoint    bool
	Waypoint       int // last waypoint observed, valid when HasWaypoint
	HasColor       bool
	Color          string // last color successfully dispatched, valid when HasColor
	Dispatches     int    // successful sink calls
	FailedDispatch int    // sink calls that returned an error
}

// Options configures an Engine
type Options struct {
	// Trigger is the message type that moves the current waypoint:
	// MsgMissionCurrent (default) or MsgMissionItemReached.
	Trigger messages.MessageType
	// PollTimeout bounds each wait for telemetry.
	PollTimeout time.Duration
	// Settle is a pause after each successful dispatch.
	Settle time.Duration
	// ShutdownTimeout bounds the final Off dispatch.
	ShutdownTimeout time.Duration
	Logger          *log.Logger
}

// Engine plays a cue plan against mission telemetry. It is not safe for concurrent use.
type Engine struct {
	plan    *cue.Plan
	channel telemetry.Channel
	sink    led.Sink
	opts    Options
	logger  *log.Logger

	state         State
	heartbeatSeen bool
}

// New creates an engine. Zero option fields take their defaults.
func New(plan *cue.Plan, channel telemetry.Channel, sink led.Sink, opts Options) (*Engine, error) {
	if channel == nil {
		return nil, errors.New("telemetry channel is required")
	}
	if sink == nil {
		return nil, errors.New("LED sink is required")
	}
	if opts.Trigger == "" {
		opts.Trigger = messages.MsgMissionCurrent
	}
	if !opts.Trigger.IsWaypoint() {
		return nil, fmt.Errorf("trigger %q is not a waypoint message type", opts.Trigger)
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Engine{
		plan:    plan,
		channel: channel,
		sink:    sink,
		opts:    opts,
		logger:  opts.Logger,
	}, nil
}

// State returns a copy of the current state
func (e *Engine) State() State {
	return e.state
}

// Run consumes telemetry until ctx is cancelled or the channel closes, then
// turns the strip off. It returns ErrEmptyPlan without touching the sink or
// the channel when the plan has no entries. Cancellation and a closed channel
// both return nil.
func (e *Engine) Run(ctx context.Context) error {
	if e.plan.Len() == 0 {
		return fmt.Errorf("%w, nothing to do", ErrEmptyPlan)
	}

	e.logger.Infof("Waiting for %s messages (trigger) ...", e.opts.Trigger)
	for {
		if ctx.Err() != nil {
			e.logger.Info("Stopping, turning LEDs off")
			e.shutdown()
			return nil
		}

		msg, ok, err := e.channel.Next(ctx, e.opts.PollTimeout)
		if ctx.Err() != nil {
			// Drop anything received once cancelled; the loop top shuts down
			continue
		}
		if err != nil {
			if errors.Is(err, telemetry.ErrClosed) {
				e.logger.Info("Telemetry stream ended, turning LEDs off")
				e.shutdown()
				return nil
			}
			e.logger.Error("Telemetry receive failed", "error", err)
			e.pause(ctx, min(e.opts.PollTimeout, time.Second))
			continue
		}
		if !ok {
			e.logger.Infof("No message for %v, still listening...", e.opts.PollTimeout)
			continue
		}

		e.Step(ctx, msg)
	}
}

// Step applies one telemetry message to the engine state and dispatches to
// the sink when the message moves the mission to a waypoint with a new color.
func (e *Engine) Step(ctx context.Context, msg telemetry.Message) {
	if e.state.Phase == ShuttingDown {
		return
	}
	if e.state.Phase == AwaitingFirstEvent {
		e.state.Phase = Tracking
		e.logger.Info("Telemetry connected", "first", msg.String())
	}

	if msg.Type == messages.MsgHeartbeat && !e.heartbeatSeen {
		e.heartbeatSeen = true
		e.logger.Infof("HEARTBEAT received from sys %d comp %d", msg.SystemID, msg.ComponentID)
	}

	if msg.Type != e.opts.Trigger {
		return
	}

	wp := msg.Index
	if e.state.HasWaypoint && e.state.Waypoint == wp {
		return
	}

	if e.state.HasWaypoint {
		e.logger.Infof("Waypoint changed: %d -> %d", e.state.Waypoint, wp)
	} else {
		e.logger.Infof("Waypoint changed: none -> %d", wp)
	}
	e.state.HasWaypoint = true
	e.state.Waypoint = wp

	directive := e.plan.Lookup(wp)
	target, ok := directive.Target()
	if !ok {
		e.logger.Debug("No command for this waypoint (no change)", "waypoint", wp)
		return
	}

	if e.Apply(ctx, target) && e.opts.Settle > 0 {
		e.pause(ctx, e.opts.Settle)
	}
}

// Apply dispatches color to the sink unless it is already the current color
// or not in the color table. It reports whether the sink was called successfully.
// A failed dispatch leaves the current color unchanged so the next differing
// directive retries.
func (e *Engine) Apply(ctx context.Context, color string) bool {
	name := led.Normalize(color)
	if !led.Known(name) {
		e.logger.Warnf("Unknown color %q, skipping", color)
		return false
	}
	if e.state.HasColor && e.state.Color == name {
		e.logger.Debug("Command same as current color, skipping", "color", name)
		return false
	}

	if err := e.sink.Set(ctx, name); err != nil {
		e.state.FailedDispatch++
		e.logger.Error("Failed to set LEDs", "color", name, "error", err)
		return false
	}

	e.state.HasColor = true
	e.state.Color = name
	e.state.Dispatches++
	return true
}

func (e *Engine) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// shutdown sends Off regardless of the current color. The run context is
// already done here, so the dispatch gets its own deadline.
func (e *Engine) shutdown() {
	e.state.Phase = ShuttingDown

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.ShutdownTimeout)
	defer cancel()

	if err := e.sink.Set(ctx, cue.OffColor); err != nil {
		e.state.FailedDispatch++
		e.logger.Error("Failed to turn LEDs off", "error", err)
		return
	}
	e.state.HasColor = true
	e.state.Color = cue.OffColor
	e.state.Dispatches++
}
