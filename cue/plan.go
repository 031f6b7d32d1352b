package cue

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	// ErrNotAMapping is returned when the plan document's top level is not a key/value mapping
	ErrNotAMapping = errors.New("plan document is not a mapping")
	// ErrEmptyPlan is returned alongside a valid plan that has no entries
	ErrEmptyPlan = errors.New("plan has no entries")
)

// Action is the kind of directive attached to a waypoint
type Action int

const (
	NoChange Action = iota // keep the current LED color
	Off                    // turn the strip off
	SetColor               // set the strip to Directive.Color
)

// OffColor is the color-table name dispatched for Off
const OffColor = "off"

func (a Action) String() string {
	switch a {
	case NoChange:
		return "no-change"
	case Off:
		return "off"
	case SetColor:
		return "set-color"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Directive is the cue for one waypoint
type Directive struct {
	Action Action
	Color  string // normalized color name, set only for SetColor
}

// Target returns the color name the directive dispatches and false for NoChange.
func (d Directive) Target() (string, bool) {
	switch d.Action {
	case Off:
		return OffColor, true
	case SetColor:
		return d.Color, true
	default:
		return "", false
	}
}

func (d Directive) String() string {
	if d.Action == SetColor {
		return fmt.Sprintf("set-color(%s)", d.Color)
	}
	return d.Action.String()
}

// ParseDirective normalizes a plan value: blank is NoChange, "off" in any case is Off,
// anything else is SetColor.
func ParseDirective(value string) Directive {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return Directive{Action: NoChange}
	case OffColor:
		return Directive{Action: Off}
	default:
		return Directive{Action: SetColor, Color: v}
	}
}

// Plan maps waypoint indices to directives. It is not modified after loading.
type Plan struct {
	directives map[int]Directive
	waypoints  []int
	warnings   []string
}

// NewPlan builds a plan from already-parsed directives
func NewPlan(directives map[int]Directive) *Plan {
	p := &Plan{directives: make(map[int]Directive, len(directives))}
	for wp, d := range directives {
		p.directives[wp] = d
	}
	p.sortWaypoints()
	return p
}

func (p *Plan) sortWaypoints() {
	p.waypoints = make([]int, 0, len(p.directives))
	for wp := range p.directives {
		p.waypoints = append(p.waypoints, wp)
	}
	sort.Ints(p.waypoints)
}

// Lookup returns the directive for a waypoint. Indices missing from the plan are NoChange.
func (p *Plan) Lookup(waypoint int) Directive {
	if p == nil {
		return Directive{Action: NoChange}
	}
	d, ok := p.directives[waypoint]
	if !ok {
		return Directive{Action: NoChange}
	}
	return d
}

// Len returns the number of entries, NoChange entries included
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.directives)
}

// Waypoints returns the plan's indices in ascending order
func (p *Plan) Waypoints() []int {
	if p == nil {
		return nil
	}
	return append([]int(nil), p.waypoints...)
}

// Warnings returns the non-fatal problems found while loading
func (p *Plan) Warnings() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.warnings...)
}

// Colors returns the distinct SetColor names used by the plan, sorted
func (p *Plan) Colors() []string {
	seen := make(map[string]bool)
	var colors []string
	for _, wp := range p.Waypoints() {
		d := p.directives[wp]
		if d.Action == SetColor && !seen[d.Color] {
			seen[d.Color] = true
			colors = append(colors, d.Color)
		}
	}
	sort.Strings(colors)
	return colors
}

// Parse builds a plan from a decoded document. The document must be a mapping;
// entries whose key is not an integer >= 0 are skipped with a warning.
// A plan with no entries is returned together with ErrEmptyPlan.
func Parse(doc any) (*Plan, error) {
	entries, err := mappingEntries(doc)
	if err != nil {
		return nil, err
	}

	p := &Plan{directives: make(map[int]Directive, len(entries))}
	for _, e := range entries {
		key := strings.TrimSpace(e.key)
		wp, err := strconv.Atoi(key)
		if err != nil || wp < 0 {
			p.warn("Skipping invalid key (not a waypoint index): %q", e.key)
			continue
		}
		if _, dup := p.directives[wp]; dup {
			p.warn("Duplicate waypoint %d, keeping the later value", wp)
		}
		p.directives[wp] = ParseDirective(e.value)
	}
	p.sortWaypoints()

	if len(p.directives) == 0 {
		return p, ErrEmptyPlan
	}
	return p, nil
}

func (p *Plan) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, msg)
	log.Warn(msg)
}

type entry struct {
	key   string
	value string
}

// mappingEntries flattens the mapping shapes produced by encoding/json and yaml.v2
func mappingEntries(doc any) ([]entry, error) {
	var entries []entry
	switch m := doc.(type) {
	case map[string]any:
		for k, v := range m {
			entries = append(entries, entry{key: k, value: scalarString(v)})
		}
	case map[any]any:
		for k, v := range m {
			entries = append(entries, entry{key: fmt.Sprint(k), value: scalarString(v)})
		}
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotAMapping, doc)
	}
	// Keep warning order stable for a given document
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries, nil
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
