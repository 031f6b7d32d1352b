package led

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/messages"
)

// DefaultStrip is the strip name used in OSC output addresses
const DefaultStrip = "strip"

// OSCSink drives a networked LED controller. Each Set sends the color name to
// /led/{strip}/color followed by the RGB triple to /led/{strip}/rgb.
type OSCSink struct {
	host           string
	port           int
	client         *osc.Client
	addressBuilder *messages.OSCAddressBuilder
	logger         *log.Logger
}

// NewOSCSink creates a sink that sends to host:port
func NewOSCSink(host string, port int, strip string, logger *log.Logger) *OSCSink {
	if strip == "" {
		strip = DefaultStrip
	}
	if logger == nil {
		logger = log.Default()
	}
	return &OSCSink{
		host:           host,
		port:           port,
		client:         osc.NewClient(host, port),
		addressBuilder: messages.NewOSCAddressBuilder(strip),
		logger:         logger,
	}
}

// NewOSCSinkForTarget parses a host:port target
func NewOSCSinkForTarget(target, strip string, logger *log.Logger) (*OSCSink, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, fmt.Errorf("invalid OSC target %q: %w", target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid OSC target port %q", portStr)
	}
	return NewOSCSink(host, port, strip, logger), nil
}

func (s *OSCSink) Set(ctx context.Context, name string) error {
	normalized, rgb, err := resolve(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return deviceError(err)
	}

	colorMsg := osc.NewMessage(s.addressBuilder.ColorAddress())
	colorMsg.Append(normalized)

	rgbMsg := osc.NewMessage(s.addressBuilder.RGBAddress())
	rgbMsg.Append(int32(rgb.R))
	rgbMsg.Append(int32(rgb.G))
	rgbMsg.Append(int32(rgb.B))

	s.logger.Infof("Setting LEDs: %s", normalized)
	for _, msg := range []*osc.Message{colorMsg, rgbMsg} {
		s.logger.Debugf("Sending message without reply: %s %v", msg.Address, msg.Arguments)
		if err := s.client.Send(msg); err != nil {
			return deviceError(fmt.Errorf("send to %s:%d: %w", s.host, s.port, err))
		}
	}
	return nil
}
