package messages

import "testing"

func TestParseMessageType(t *testing.T) {
	cases := map[string]MessageType{
		"heartbeat":            MsgHeartbeat,
		"HEARTBEAT":            MsgHeartbeat,
		"mission_current":      MsgMissionCurrent,
		"MISSION_CURRENT":      MsgMissionCurrent,
		" current ":            MsgMissionCurrent,
		"mission_item_reached": MsgMissionItemReached,
		"MISSION_ITEM_REACHED": MsgMissionItemReached,
		"reached":              MsgMissionItemReached,
		"item_reached":         MsgMissionItemReached,
		"other":                MsgOther,
	}
	for in, want := range cases {
		got, err := ParseMessageType(in)
		if err != nil {
			t.Errorf("ParseMessageType(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseMessageType(%q): expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseMessageType("attitude"); err == nil {
		t.Error("Expected error for unknown type")
	}
}

func TestIsWaypoint(t *testing.T) {
	if !MsgMissionCurrent.IsWaypoint() || !MsgMissionItemReached.IsWaypoint() {
		t.Error("Expected mission types to carry waypoints")
	}
	if MsgHeartbeat.IsWaypoint() || MsgOther.IsWaypoint() {
		t.Error("Expected heartbeat and other not to carry waypoints")
	}
}

func TestTypeForAddress(t *testing.T) {
	if TypeForAddress(AddrMissionCurrent) != MsgMissionCurrent {
		t.Errorf("Expected %s for %s", MsgMissionCurrent, AddrMissionCurrent)
	}
	if TypeForAddress(AddrMissionReached) != MsgMissionItemReached {
		t.Errorf("Expected %s for %s", MsgMissionItemReached, AddrMissionReached)
	}
	if TypeForAddress(AddrHeartbeat) != MsgHeartbeat {
		t.Errorf("Expected %s for %s", MsgHeartbeat, AddrHeartbeat)
	}
	if TypeForAddress("/mission/current/extra") != MsgOther {
		t.Error("Expected unknown address to map to other")
	}
}

// TestOSCAddressBuilder tests LED output address construction
func TestOSCAddressBuilder(t *testing.T) {
	b := NewOSCAddressBuilder("wing")

	if got := b.ColorAddress(); got != "/led/wing/color" {
		t.Errorf("Expected /led/wing/color, got %s", got)
	}
	if got := b.RGBAddress(); got != "/led/wing/rgb" {
		t.Errorf("Expected /led/wing/rgb, got %s", got)
	}
	if got := b.BuildAddress("/led/{strip}/segment/{n}", map[string]string{"n": "3"}); got != "/led/wing/segment/3" {
		t.Errorf("Expected /led/wing/segment/3, got %s", got)
	}

	empty := NewOSCAddressBuilder("")
	if got := empty.ColorAddress(); got != AddrLEDColor {
		t.Errorf("Expected placeholder to remain without a strip, got %s", got)
	}
}
