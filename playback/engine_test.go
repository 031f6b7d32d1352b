package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/cue"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/led"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/telemetry"
)

// recordingSink captures every Set call and can fail selected calls
type recordingSink struct {
	calls  []string
	failOn map[int]error // call number (0-based) -> error
}

func (s *recordingSink) Set(_ context.Context, name string) error {
	n := len(s.calls)
	s.calls = append(s.calls, name)
	if err, ok := s.failOn[n]; ok {
		return err
	}
	if !led.Known(name) {
		return fmt.Errorf("%w: %q", led.ErrUnknownColor, name)
	}
	return nil
}

// scriptedChannel replays fixed results and then calls onEnd to decide the final result
type scriptedChannel struct {
	steps []scriptedStep
	pos   int
	polls int
	onEnd func(ctx context.Context) error
}

type scriptedStep struct {
	msg telemetry.Message
	ok  bool
	err error
}

func (c *scriptedChannel) Next(ctx context.Context, _ time.Duration) (telemetry.Message, bool, error) {
	c.polls++
	if err := ctx.Err(); err != nil {
		return telemetry.Message{}, false, err
	}
	if c.pos < len(c.steps) {
		s := c.steps[c.pos]
		c.pos++
		return s.msg, s.ok, s.err
	}
	if c.onEnd != nil {
		return telemetry.Message{}, false, c.onEnd(ctx)
	}
	return telemetry.Message{}, false, telemetry.ErrClosed
}

func (c *scriptedChannel) Close() error { return nil }

func current(seq ...int) []scriptedStep {
	steps := make([]scriptedStep, 0, len(seq))
	for _, s := range seq {
		steps = append(steps, scriptedStep{msg: telemetry.Message{Type: messages.MsgMissionCurrent, Index: s}, ok: true})
	}
	return steps
}

func loadPlan(t *testing.T, doc string) *cue.Plan {
	t.Helper()
	plan, err := cue.Load(strings.NewReader(doc), cue.FormatJSON)
	if err != nil {
		t.Fatalf("Failed to load plan: %v", err)
	}
	return plan
}

func newTestEngine(t *testing.T, plan *cue.Plan, ch telemetry.Channel, sink led.Sink, opts Options) *Engine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel})
	}
	if opts.PollTimeout == 0 {
		opts.PollTimeout = 10 * time.Millisecond
	}
	e, err := New(plan, ch, sink, opts)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return e
}

func expectCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected sink calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected sink calls %v, got %v", want, got)
		}
	}
}

const scenarioPlan = `{"0":"OFF","1":"","2":"red","3":"","4":"green"}`

// TestScenarioDispatchSequence runs the reference mission through Step
func TestScenarioDispatchSequence(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), &scriptedChannel{}, sink, Options{})

	for _, s := range current(0, 0, 1, 2, 2, 3, 4) {
		e.Step(context.Background(), s.msg)
	}

	expectCalls(t, sink.calls, "off", "red", "green")

	st := e.State()
	if st.Phase != Tracking {
		t.Errorf("Expected tracking phase, got %s", st.Phase)
	}
	if !st.HasWaypoint || st.Waypoint != 4 {
		t.Errorf("Expected current waypoint 4, got %+v", st)
	}
	if !st.HasColor || st.Color != "green" {
		t.Errorf("Expected current color green, got %+v", st)
	}
}

// TestRunEndsWithOffWhenStreamCloses verifies the closed-stream path sends the safety Off
func TestRunEndsWithOffWhenStreamCloses(t *testing.T) {
	sink := &recordingSink{}
	ch := &scriptedChannel{steps: current(0, 0, 1, 2, 2, 3, 4)}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), ch, sink, Options{})

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Expected nil error on stream end, got %v", err)
	}

	expectCalls(t, sink.calls, "off", "red", "green", "off")
	if e.State().Phase != ShuttingDown {
		t.Errorf("Expected shutting-down phase, got %s", e.State().Phase)
	}
}

// TestCancellationDispatchesOffOnce verifies exactly one final Off after cancellation mid-loop
func TestCancellationDispatchesOffOnce(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	ch := &scriptedChannel{
		steps: current(2),
		onEnd: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		},
	}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), ch, sink, Options{})

	if err := e.Run(ctx); err != nil {
		t.Fatalf("Expected nil error on cancellation, got %v", err)
	}

	expectCalls(t, sink.calls, "red", "off")

	// Nothing is processed after shutdown
	polls := ch.polls
	e.Step(context.Background(), telemetry.Message{Type: messages.MsgMissionCurrent, Index: 4})
	if len(sink.calls) != 2 || ch.polls != polls {
		t.Errorf("Expected no activity after shutdown, got calls %v", sink.calls)
	}
}

// TestMessageAfterCancellationIsDropped verifies telemetry delivered as cancellation lands is not processed
func TestMessageAfterCancellationIsDropped(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	ch := &cancellingChannel{cancel: cancel, msg: current(2)[0].msg}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), ch, sink, Options{})

	if err := e.Run(ctx); err != nil {
		t.Fatalf("Expected nil error on cancellation, got %v", err)
	}

	expectCalls(t, sink.calls, "off")
	if e.State().HasWaypoint {
		t.Errorf("Expected no waypoint to be recorded, got %+v", e.State())
	}
}

// cancellingChannel cancels the run and then still returns a message
type cancellingChannel struct {
	cancel context.CancelFunc
	msg    telemetry.Message
}

func (c *cancellingChannel) Next(context.Context, time.Duration) (telemetry.Message, bool, error) {
	c.cancel()
	return c.msg, true, nil
}

func (c *cancellingChannel) Close() error { return nil }

// TestRunStopsWhenOSCChannelClosed verifies a closed socket ends playback with Off
func TestRunStopsWhenOSCChannelClosed(t *testing.T) {
	ep, err := telemetry.ParseEndpoint("udpin:127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to parse endpoint: %v", err)
	}
	ch, err := telemetry.NewOSCChannel(ep, log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel}))
	if err != nil {
		t.Fatalf("Failed to start OSC channel: %v", err)
	}
	_ = ch.Close()

	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), ch, sink, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Expected Run to stop on the closed channel, not the deadline")
	}
	expectCalls(t, sink.calls, "off")
}

// TestCancelledBeforeStartStillTurnsOff verifies the safety Off even when no telemetry was seen
func TestCancelledBeforeStartStillTurnsOff(t *testing.T) {
	sink := &recordingSink{}
	ch := &scriptedChannel{steps: current(2)}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), ch, sink, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Run(ctx); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	expectCalls(t, sink.calls, "off")
	if ch.polls != 0 {
		t.Errorf("Expected no telemetry to be read after cancellation, got %d polls", ch.polls)
	}
}

// TestDeviceErrorRetriesNextWaypoint verifies a failed dispatch does not advance the current color
func TestDeviceErrorRetriesNextWaypoint(t *testing.T) {
	sink := &recordingSink{failOn: map[int]error{1: fmt.Errorf("%w: strip not responding", led.ErrDevice)}}
	e := newTestEngine(t, loadPlan(t, `{"0":"red","1":"blue","2":"blue"}`), &scriptedChannel{}, sink, Options{})

	ctx := context.Background()
	e.Step(ctx, current(0)[0].msg)
	e.Step(ctx, current(1)[0].msg)

	st := e.State()
	if st.Color != "red" {
		t.Fatalf("Expected color to stay red after a failed dispatch, got %q", st.Color)
	}
	if st.FailedDispatch != 1 {
		t.Errorf("Expected 1 failed dispatch, got %d", st.FailedDispatch)
	}

	e.Step(ctx, current(2)[0].msg)
	expectCalls(t, sink.calls, "red", "blue", "blue")
	if e.State().Color != "blue" {
		t.Errorf("Expected retry to set blue, got %q", e.State().Color)
	}
}

// TestApplyIsIdempotent verifies a repeated color is not sent twice
func TestApplyIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), &scriptedChannel{}, sink, Options{})

	ctx := context.Background()
	if !e.Apply(ctx, "red") {
		t.Fatal("Expected first Apply to dispatch")
	}
	before := e.State()
	if e.Apply(ctx, "RED") {
		t.Error("Expected second Apply to be skipped")
	}
	if e.State() != before {
		t.Errorf("Expected state unchanged, got %+v", e.State())
	}
	expectCalls(t, sink.calls, "red")
}

// TestUnknownColorIsSkipped verifies unknown colors never reach the sink nor change state
func TestUnknownColorIsSkipped(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, `{"1":"chartreuse","2":"red","3":"chartreuse"}`), &scriptedChannel{}, sink, Options{})

	ctx := context.Background()
	e.Step(ctx, current(1)[0].msg)
	if e.State().HasColor {
		t.Errorf("Expected no color after unknown directive, got %+v", e.State())
	}
	e.Step(ctx, current(2)[0].msg)
	e.Step(ctx, current(3)[0].msg)

	expectCalls(t, sink.calls, "red")
	if e.State().Color != "red" {
		t.Errorf("Expected red to remain, got %q", e.State().Color)
	}
}

// TestMissingWaypointIsNoChange verifies indices absent from the plan leave the strip alone
func TestMissingWaypointIsNoChange(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, `{"2":"red"}`), &scriptedChannel{}, sink, Options{})

	for _, s := range current(7, 8, 2, 9) {
		e.Step(context.Background(), s.msg)
	}
	expectCalls(t, sink.calls, "red")
	if e.State().Waypoint != 9 {
		t.Errorf("Expected waypoint 9, got %d", e.State().Waypoint)
	}
}

// TestOffSkippedWhenAlreadyOff verifies the Off directive is de-duplicated like colors
func TestOffSkippedWhenAlreadyOff(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, `{"0":"off","1":"OFF","2":"red","3":"off"}`), &scriptedChannel{}, sink, Options{})

	for _, s := range current(0, 1, 2, 3) {
		e.Step(context.Background(), s.msg)
	}
	expectCalls(t, sink.calls, "off", "red", "off")
}

// TestEmptyPlanAbortsBeforeLoop verifies Run refuses to start with an empty plan
func TestEmptyPlanAbortsBeforeLoop(t *testing.T) {
	plan, err := cue.Load(strings.NewReader(`{}`), cue.FormatJSON)
	if !errors.Is(err, cue.ErrEmptyPlan) {
		t.Fatalf("Expected plan load to report ErrEmptyPlan, got %v", err)
	}

	sink := &recordingSink{}
	ch := &scriptedChannel{steps: current(0)}
	e := newTestEngine(t, plan, ch, sink, Options{})

	err = e.Run(context.Background())
	if !errors.Is(err, ErrEmptyPlan) {
		t.Fatalf("Expected ErrEmptyPlan, got %v", err)
	}
	if len(sink.calls) != 0 || ch.polls != 0 {
		t.Errorf("Expected no sink calls or polls, got calls=%v polls=%d", sink.calls, ch.polls)
	}
}

// TestTriggerSelectsMessageType verifies only the configured waypoint message moves the engine
func TestTriggerSelectsMessageType(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, `{"1":"red","2":"green"}`), &scriptedChannel{}, sink, Options{
		Trigger: messages.MsgMissionItemReached,
	})

	ctx := context.Background()
	e.Step(ctx, telemetry.Message{Type: messages.MsgMissionCurrent, Index: 1})
	if len(sink.calls) != 0 {
		t.Fatalf("Expected mission_current to be ignored, got %v", sink.calls)
	}
	e.Step(ctx, telemetry.Message{Type: messages.MsgMissionItemReached, Index: 2})
	expectCalls(t, sink.calls, "green")
}

func TestNewRejectsNonWaypointTrigger(t *testing.T) {
	_, err := New(cue.NewPlan(nil), &scriptedChannel{}, &recordingSink{}, Options{Trigger: messages.MsgHeartbeat})
	if err == nil {
		t.Error("Expected error for heartbeat trigger")
	}
	if _, err := New(cue.NewPlan(nil), nil, &recordingSink{}, Options{}); err == nil {
		t.Error("Expected error for nil channel")
	}
	if _, err := New(cue.NewPlan(nil), &scriptedChannel{}, nil, Options{}); err == nil {
		t.Error("Expected error for nil sink")
	}
}

// TestNonWaypointMessagesOnlyAffectPhase verifies heartbeats and other kinds move the engine to tracking only
func TestNonWaypointMessagesOnlyAffectPhase(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), &scriptedChannel{}, sink, Options{})

	if e.State().Phase != AwaitingFirstEvent {
		t.Fatalf("Expected awaiting-first-event, got %s", e.State().Phase)
	}

	e.Step(context.Background(), telemetry.Message{Type: messages.MsgHeartbeat, SystemID: 1, ComponentID: 1})
	e.Step(context.Background(), telemetry.Message{Type: messages.MsgOther, Name: "ATTITUDE"})

	st := e.State()
	if st.Phase != Tracking {
		t.Errorf("Expected tracking, got %s", st.Phase)
	}
	if st.HasWaypoint || st.HasColor || len(sink.calls) != 0 {
		t.Errorf("Expected no waypoint or dispatch, got %+v calls=%v", st, sink.calls)
	}
}

// TestTimeoutsAndErrorsDoNotStopTheLoop verifies liveness polls and transport errors are survivable
func TestTimeoutsAndErrorsDoNotStopTheLoop(t *testing.T) {
	sink := &recordingSink{}
	steps := []scriptedStep{
		{ok: false},
		{ok: false},
		{err: errors.New("socket hiccup")},
	}
	steps = append(steps, current(2)...)
	steps = append(steps, scriptedStep{ok: false})
	steps = append(steps, current(4)...)
	ch := &scriptedChannel{steps: steps}
	e := newTestEngine(t, loadPlan(t, scenarioPlan), ch, sink, Options{})

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	expectCalls(t, sink.calls, "red", "green", "off")
}

// TestDispatchCountBoundedByColorChanges checks random sequences with repeats against a simple model
func TestDispatchCountBoundedByColorChanges(t *testing.T) {
	plan := loadPlan(t, `{"0":"off","1":"","2":"red","3":"red","4":"blue","5":"","6":"off","7":"green"}`)
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 50; trial++ {
		var seq []int
		for i := 0; i < 40; i++ {
			wp := rng.Intn(9)
			for r := rng.Intn(4); r >= 0; r-- {
				seq = append(seq, wp)
			}
		}

		// Model: count changes of the resolved target color across distinct waypoint transitions
		changes := 0
		color := ""
		last := -1
		for _, wp := range seq {
			if wp == last {
				continue
			}
			last = wp
			target, ok := plan.Lookup(wp).Target()
			if !ok || target == color {
				continue
			}
			color = target
			changes++
		}

		sink := &recordingSink{}
		e := newTestEngine(t, plan, &scriptedChannel{}, sink, Options{})
		for _, wp := range seq {
			e.Step(context.Background(), telemetry.Message{Type: messages.MsgMissionCurrent, Index: wp})
		}

		if len(sink.calls) != changes {
			t.Fatalf("Trial %d: expected %d dispatches for %v, got %d (%v)", trial, changes, seq, len(sink.calls), sink.calls)
		}
		for i := 1; i < len(sink.calls); i++ {
			if sink.calls[i] == sink.calls[i-1] {
				t.Fatalf("Trial %d: consecutive duplicate dispatch %v", trial, sink.calls)
			}
		}
	}
}
