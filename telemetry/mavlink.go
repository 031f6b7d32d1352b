package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/charmbracelet/log"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
)

// DefaultSystemID identifies this node when it emits MAVLink heartbeats
const DefaultSystemID = 254

// MAVLinkChannel receives MAVLink frames over UDP
type MAVLinkChannel struct {
	endpoint Endpoint
	node     *gomavlib.Node
	events   chan gomavlib.Event
	logger   *log.Logger
}

// NewMAVLinkChannel opens a MAVLink node on the endpoint. In udpout mode the
// node announces itself with heartbeats so that the remote side starts streaming.
func NewMAVLinkChannel(endpoint Endpoint, systemID uint8, logger *log.Logger) (*MAVLinkChannel, error) {
	if logger == nil {
		logger = log.Default()
	}

	var conf gomavlib.EndpointConf
	switch endpoint.Mode {
	case ModeListen:
		conf = gomavlib.EndpointUDPServer{Address: endpoint.Address}
	case ModeConnect:
		conf = gomavlib.EndpointUDPClient{Address: endpoint.Address}
	default:
		return nil, fmt.Errorf("unsupported endpoint mode %q", endpoint.Mode)
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:        []gomavlib.EndpointConf{conf},
		Dialect:          common.Dialect,
		OutVersion:       gomavlib.V2,
		OutSystemID:      systemID,
		HeartbeatDisable: endpoint.Mode == ModeListen,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open MAVLink endpoint %s: %w", endpoint, err)
	}

	logger.Infof("Connecting (%s) on %s ...", endpoint.Mode, endpoint.Address)
	return &MAVLinkChannel{
		endpoint: endpoint,
		node:     node,
		events:   node.Events(),
		logger:   logger,
	}, nil
}

func (c *MAVLinkChannel) Next(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Message{}, false, ctx.Err()
		case <-timer.C:
			return Message{}, false, nil
		case evt, open := <-c.events:
			if !open {
				return Message{}, false, ErrClosed
			}
			switch e := evt.(type) {
			case *gomavlib.EventFrame:
				return FromMAVLink(e.Message(), e.SystemID(), e.ComponentID()), true, nil
			case *gomavlib.EventChannelOpen:
				c.logger.Infof("Link open: %v", e.Channel)
			case *gomavlib.EventChannelClose:
				c.logger.Warnf("Link closed: %v", e.Channel)
			case *gomavlib.EventParseError:
				c.logger.Debug("Dropped unparseable frame", "error", e.Error)
			}
		}
	}
}

func (c *MAVLinkChannel) Close() error {
	c.node.Close()
	return nil
}

// FromMAVLink converts a decoded MAVLink message into a telemetry message
func FromMAVLink(msg message.Message, systemID, componentID uint8) Message {
	switch m := msg.(type) {
	case *common.MessageHeartbeat:
		return Message{Type: messages.MsgHeartbeat, SystemID: systemID, ComponentID: componentID, Name: "HEARTBEAT"}
	case *common.MessageMissionCurrent:
		return Message{Type: messages.MsgMissionCurrent, Index: int(m.Seq), SystemID: systemID, ComponentID: componentID, Name: "MISSION_CURRENT"}
	case *common.MessageMissionItemReached:
		return Message{Type: messages.MsgMissionItemReached, Index: int(m.Seq), SystemID: systemID, ComponentID: componentID, Name: "MISSION_ITEM_REACHED"}
	case nil:
		return Message{Type: messages.MsgOther}
	default:
		return Message{Type: messages.MsgOther, SystemID: systemID, ComponentID: componentID, Name: fmt.Sprintf("msg#%d", msg.GetID())}
	}
}
