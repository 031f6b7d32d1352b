package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
)

// OSCChannel receives mission telemetry that a ground-station bridge forwards as OSC:
//
//	/mission/current i   current mission sequence
//	/mission/reached i   mission item reached
//	/heartbeat ii        system and component id
//
// Packets are read synchronously so messages are delivered in arrival order.
type OSCChannel struct {
	conn    net.PacketConn
	pending []*osc.Message
	buf     []byte
	logger  *log.Logger
}

// NewOSCChannel binds the endpoint's local address. Only udpin endpoints are supported.
func NewOSCChannel(endpoint Endpoint, logger *log.Logger) (*OSCChannel, error) {
	if endpoint.Mode != ModeListen {
		return nil, fmt.Errorf("OSC telemetry only supports udpin endpoints, got %s", endpoint)
	}
	if logger == nil {
		logger = log.Default()
	}

	conn, err := net.ListenPacket("udp", endpoint.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to start OSC listener on %s: %w", endpoint.Address, err)
	}
	logger.Infof("OSC listener started on %s", conn.LocalAddr())

	return &OSCChannel{
		conn:   conn,
		buf:    make([]byte, 65535),
		logger: logger,
	}, nil
}

// LocalAddr returns the bound address, useful when listening on port 0
func (c *OSCChannel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *OSCChannel) Next(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, false, err
	}

	// Wake a blocked read as soon as ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	deadline := time.Now().Add(timeout)
	for {
		for len(c.pending) > 0 {
			msg := c.pending[0]
			c.pending = c.pending[1:]
			if m, ok := c.convert(msg); ok {
				return m, true, nil
			}
		}

		if err := c.conn.SetReadDeadline(deadline); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return Message{}, false, ErrClosed
			}
			return Message{}, false, fmt.Errorf("failed to set read deadline: %w", err)
		}
		// The deadline above may have overwritten the cancellation wake-up
		if err := ctx.Err(); err != nil {
			return Message{}, false, err
		}
		n, _, err := c.conn.ReadFrom(c.buf)
		if err != nil {
			if ctx.Err() != nil {
				return Message{}, false, ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return Message{}, false, nil
			}
			if errors.Is(err, net.ErrClosed) {
				return Message{}, false, ErrClosed
			}
			return Message{}, false, fmt.Errorf("OSC read failed: %w", err)
		}

		packet, err := osc.ParsePacket(string(c.buf[:n]))
		if err != nil {
			c.logger.Warnf("Dropping malformed OSC packet: %v", err)
			continue
		}
		c.pending = append(c.pending, flatten(packet)...)
	}
}

func (c *OSCChannel) Close() error {
	return c.conn.Close()
}

func (c *OSCChannel) convert(msg *osc.Message) (Message, bool) {
	m, err := FromOSC(msg)
	if err != nil {
		c.logger.Warnf("Ignoring OSC message %s %v: %v", msg.Address, msg.Arguments, err)
		return Message{}, false
	}
	return m, true
}

// flatten returns the messages of a packet in order, descending into bundles
func flatten(packet osc.Packet) []*osc.Message {
	switch p := packet.(type) {
	case *osc.Message:
		return []*osc.Message{p}
	case *osc.Bundle:
		var out []*osc.Message
		out = append(out, p.Messages...)
		for _, b := range p.Bundles {
			out = append(out, flatten(b)...)
		}
		return out
	default:
		return nil
	}
}

// FromOSC converts a bridge OSC message into a telemetry message
func FromOSC(msg *osc.Message) (Message, error) {
	t := messages.TypeForAddress(msg.Address)
	switch t {
	case messages.MsgMissionCurrent, messages.MsgMissionItemReached:
		if len(msg.Arguments) == 0 {
			return Message{}, errors.New("missing mission sequence argument")
		}
		seq, err := intArg(msg.Arguments[0])
		if err != nil {
			return Message{}, fmt.Errorf("mission sequence: %w", err)
		}
		if seq < 0 {
			return Message{}, fmt.Errorf("negative mission sequence %d", seq)
		}
		return Message{Type: t, Index: seq, Name: msg.Address}, nil
	case messages.MsgHeartbeat:
		m := Message{Type: t, Name: msg.Address}
		if len(msg.Arguments) > 0 {
			if sys, err := intArg(msg.Arguments[0]); err == nil {
				m.SystemID = uint8(sys)
			}
		}
		if len(msg.Arguments) > 1 {
			if comp, err := intArg(msg.Arguments[1]); err == nil {
				m.ComponentID = uint8(comp)
			}
		}
		return m, nil
	default:
		return Message{Type: messages.MsgOther, Name: msg.Address}, nil
	}
}

func intArg(arg any) (int, error) {
	switch v := arg.(type) {
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported argument type %T", arg)
	}
}
