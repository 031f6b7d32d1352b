package telemetry

import (
	"fmt"
	"net"
	"strings"
)

// EndpointMode says whether the channel binds a local port or connects out
type EndpointMode string

const (
	// Listen on a local UDP address (e.g. Mission Planner forwarding to us)
	ModeListen EndpointMode = "udpin"
	// Send to a remote UDP address and receive its replies
	ModeConnect EndpointMode = "udpout"
)

// DefaultEndpoint listens for telemetry forwarded by the ground station
const DefaultEndpoint = "udpin:0.0.0.0:14550"

// Endpoint is a parsed connection string such as udpin:0.0.0.0:14550
type Endpoint struct {
	Mode    EndpointMode
	Address string // host:port
}

func (e Endpoint) String() string {
	return string(e.Mode) + ":" + e.Address
}

// ParseEndpoint parses udpin:host:port, udpout:host:port or udp:host:port (same as udpin)
func ParseEndpoint(s string) (Endpoint, error) {
	scheme, address, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: expected udpin:host:port or udpout:host:port", s)
	}

	var mode EndpointMode
	switch strings.ToLower(scheme) {
	case "udpin", "udp":
		mode = ModeListen
	case "udpout":
		mode = ModeConnect
	default:
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: unsupported scheme %q", s, scheme)
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	if port == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: missing port", s)
	}
	if mode == ModeConnect && host == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: udpout needs a host", s)
	}

	return Endpoint{Mode: mode, Address: net.JoinHostPort(host, port)}, nil
}
