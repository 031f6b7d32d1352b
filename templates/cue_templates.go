package templates

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yashk1729/Autonomous-Drone-for-Light-Painting/cue"
)

// RangeTemplate assigns one directive to an inclusive range of waypoints
type RangeTemplate struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Color string `json:"color"` // blank means no change, "off" turns the strip off
}

func (r RangeTemplate) String() string {
	return fmt.Sprintf("%d:%d:%s", r.From, r.To, r.Color)
}

// Validate checks the range bounds
func (r RangeTemplate) Validate() error {
	if r.From < 0 || r.To < 0 {
		return fmt.Errorf("range %s: waypoint indices must not be negative", r)
	}
	if r.From > r.To {
		return fmt.Errorf("range %s: from is after to", r)
	}
	return nil
}

// ExpansionResult is the outcome of expanding a set of ranges
type ExpansionResult struct {
	Document    cue.Document `json:"document"`
	Overwritten []int        `json:"overwritten,omitempty"` // waypoints assigned by more than one range
}

// ParseRange parses "from:to:color". A single index ("7:red") is also accepted,
// as is a trailing mode field ("0:25:red:solid"), which is ignored since the
// strip only shows solid colors.
func ParseRange(s string) (RangeTemplate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var from, to, color string
	switch len(parts) {
	case 2:
		from, to, color = parts[0], parts[0], parts[1]
	case 3, 4:
		from, to, color = parts[0], parts[1], parts[2]
	default:
		return RangeTemplate{}, fmt.Errorf("invalid range %q, expected from:to:color[:mode]", s)
	}

	a, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return RangeTemplate{}, fmt.Errorf("invalid range %q: bad start index: %w", s, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return RangeTemplate{}, fmt.Errorf("invalid range %q: bad end index: %w", s, err)
	}

	r := RangeTemplate{From: a, To: b, Color: strings.ToLower(strings.TrimSpace(color))}
	if err := r.Validate(); err != nil {
		return RangeTemplate{}, err
	}
	return r, nil
}

// Expand builds a plan document from ranges. Later ranges overwrite earlier ones.
func Expand(ranges []RangeTemplate) (*ExpansionResult, error) {
	result := &ExpansionResult{Document: cue.Document{}}
	seen := make(map[int]bool)

	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		for wp := r.From; wp <= r.To; wp++ {
			if _, exists := result.Document[wp]; exists && !seen[wp] {
				seen[wp] = true
				result.Overwritten = append(result.Overwritten, wp)
			}
			result.Document[wp] = r.Color
		}
	}
	return result, nil
}
