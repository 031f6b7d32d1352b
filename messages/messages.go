package messages

import (
	"fmt"
	"strings"
)

// Telemetry message types and OSC address constants shared by the
// telemetry channels and the LED output sinks.

// Message types
type MessageType string

const (
	// Vehicle liveness
	MsgHeartbeat MessageType = "heartbeat"

	// Mission progress
	MsgMissionCurrent     MessageType = "mission_current"
	MsgMissionItemReached MessageType = "mission_item_reached"

	// Anything the engine does not act on
	MsgOther MessageType = "other"
)

// OSC address patterns
const (
	// Telemetry forwarded by a ground-station bridge
	AddrHeartbeat      = "/heartbeat"
	AddrMissionCurrent = "/mission/current"
	AddrMissionReached = "/mission/reached"

	// LED output
	AddrLEDColor = "/led/{strip}/color"
	AddrLEDRGB   = "/led/{strip}/rgb"
)

// typeAliases maps accepted spellings onto message types
var typeAliases = map[string]MessageType{
	"heartbeat":            MsgHeartbeat,
	"mission_current":      MsgMissionCurrent,
	"current":              MsgMissionCurrent,
	"mission_item_reached": MsgMissionItemReached,
	"item_reached":         MsgMissionItemReached,
	"reached":              MsgMissionItemReached,
	"other":                MsgOther,
}

// ParseMessageType resolves a message type from its tag, its MAVLink
// message name (MISSION_CURRENT) or a short alias (current, reached).
func ParseMessageType(s string) (MessageType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown message type %q", s)
}

// IsWaypoint reports whether the type carries a mission sequence number.
func (t MessageType) IsWaypoint() bool {
	return t == MsgMissionCurrent || t == MsgMissionItemReached
}

// TypeForAddress maps an inbound telemetry OSC address to a message type
func TypeForAddress(address string) MessageType {
	switch address {
	case AddrHeartbeat:
		return MsgHeartbeat
	case AddrMissionCurrent:
		return MsgMissionCurrent
	case AddrMissionReached:
		return MsgMissionItemReached
	default:
		return MsgOther
	}
}

// OSCAddressBuilder builds LED output addresses for a named strip
type OSCAddressBuilder struct {
	strip string
}

// NewOSCAddressBuilder creates a new address builder
func NewOSCAddressBuilder(strip string) *OSCAddressBuilder {
	return &OSCAddressBuilder{
		strip: strip,
	}
}

// BuildAddress replaces {strip} and any other {key} placeholders in pattern
func (b *OSCAddressBuilder) BuildAddress(pattern string, params map[string]string) string {
	address := pattern

	if strings.Contains(address, "{strip}") && b.strip != "" {
		address = strings.ReplaceAll(address, "{strip}", b.strip)
	}

	for key, value := range params {
		placeholder := fmt.Sprintf("{%s}", key)
		address = strings.ReplaceAll(address, placeholder, value)
	}

	return address
}

// ColorAddress returns the color-name address for the strip
func (b *OSCAddressBuilder) ColorAddress() string {
	return b.BuildAddress(AddrLEDColor, nil)
}

// RGBAddress returns the RGB triple address for the strip
func (b *OSCAddressBuilder) RGBAddress() string {
	return b.BuildAddress(AddrLEDRGB, nil)
}
