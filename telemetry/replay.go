package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
)

// ReplayChannel plays back a recorded or hand-written telemetry script, one
// message per line:
//
//	# comment
//	heartbeat 1 1
//	mission_current 0
//	reached 2
//
// It returns ErrClosed after the last message.
type ReplayChannel struct {
	msgs     []Message
	pos      int
	interval time.Duration
	owed     time.Duration
}

// NewReplayChannel plays msgs with interval between consecutive messages
func NewReplayChannel(msgs []Message, interval time.Duration) *ReplayChannel {
	return &ReplayChannel{
		msgs:     append([]Message(nil), msgs...),
		interval: interval,
	}
}

// OpenReplay parses a replay script from disk
func OpenReplay(path string, interval time.Duration) (*ReplayChannel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	msgs, err := ParseReplay(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("Loaded %d replay messages from %s", len(msgs), path)
	return NewReplayChannel(msgs, interval), nil
}

// ParseReplay reads a replay script. Lines with an unknown kind or a bad
// argument are skipped with a warning.
func ParseReplay(r io.Reader) ([]Message, error) {
	var msgs []Message
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		msg, err := parseReplayLine(line)
		if err != nil {
			log.Warnf("Skipping replay line %d: %v", ln, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func parseReplayLine(line string) (Message, error) {
	f := strings.Fields(line)
	t, err := messages.ParseMessageType(f[0])
	if err != nil {
		return Message{}, err
	}

	switch {
	case t.IsWaypoint():
		if len(f) != 2 {
			return Message{}, fmt.Errorf("%s needs exactly one sequence number", t)
		}
		seq, err := strconv.Atoi(f[1])
		if err != nil || seq < 0 {
			return Message{}, fmt.Errorf("bad sequence number %q", f[1])
		}
		return Message{Type: t, Index: seq}, nil
	case t == messages.MsgHeartbeat:
		m := Message{Type: t}
		if len(f) > 1 {
			sys, err := strconv.ParseUint(f[1], 10, 8)
			if err != nil {
				return Message{}, fmt.Errorf("bad system id %q", f[1])
			}
			m.SystemID = uint8(sys)
		}
		if len(f) > 2 {
			comp, err := strconv.ParseUint(f[2], 10, 8)
			if err != nil {
				return Message{}, fmt.Errorf("bad component id %q", f[2])
			}
			m.ComponentID = uint8(comp)
		}
		return m, nil
	default:
		return Message{Type: t}, nil
	}
}

func (c *ReplayChannel) Next(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, false, err
	}
	if c.pos >= len(c.msgs) {
		return Message{}, false, ErrClosed
	}

	if c.owed == 0 {
		c.owed = c.interval
	}
	wait := min(c.owed, timeout)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Message{}, false, ctx.Err()
		case <-timer.C:
		}
	}
	c.owed -= wait
	if c.owed > 0 {
		return Message{}, false, nil
	}

	msg := c.msgs[c.pos]
	c.pos++
	return msg, true, nil
}

func (c *ReplayChannel) Close() error {
	c.pos = len(c.msgs)
	return nil
}
