package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
)

// ErrClosed is returned by Next once the stream has ended
var ErrClosed = errors.New("telemetry channel closed")

// Message is one decoded telemetry event from the vehicle
type Message struct {
	Type        messages.MessageType
	Index       int    // mission sequence number for waypoint types
	SystemID    uint8  // source system, set for heartbeats
	ComponentID uint8  // source component, set for heartbeats
	Name        string // transport-level name, e.g. the MAVLink message name
}

func (m Message) String() string {
	switch {
	case m.Type.IsWaypoint():
		return fmt.Sprintf("%s seq=%d", m.Type, m.Index)
	case m.Type == messages.MsgHeartbeat:
		return fmt.Sprintf("%s sys=%d comp=%d", m.Type, m.SystemID, m.ComponentID)
	case m.Name != "":
		return fmt.Sprintf("%s (%s)", m.Type, m.Name)
	default:
		return string(m.Type)
	}
}

// Channel is a source of telemetry messages.
//
// Next waits at most timeout for the next message. It returns ok=false when
// nothing arrived in time, and ErrClosed once no more messages will arrive.
// Next must return promptly when ctx is cancelled.
type Channel interface {
	Next(ctx context.Context, timeout time.Duration) (msg Message, ok bool, err error)
	Close() error
}
