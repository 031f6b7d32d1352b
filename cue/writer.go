package cue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Document is the raw form of a plan: waypoint index to directive text.
// The caller can serialize it as JSON or YAML.
type Document map[int]string

func (d Document) sortedKeys() []int {
	keys := make([]int, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ToJSON renders the document with keys in numeric order, which encoding/json
// cannot do for a map with string keys.
func (d Document) ToJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	keys := d.sortedKeys()
	for i, k := range keys {
		value, err := json.Marshal(d[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value for waypoint %d: %w", k, err)
		}
		fmt.Fprintf(&buf, "  %q: %s", strconv.Itoa(k), value)
		if i < len(keys)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// ToYAML renders the document as an ordered YAML mapping
func (d Document) ToYAML() ([]byte, error) {
	slice := make(yaml.MapSlice, 0, len(d))
	for _, k := range d.sortedKeys() {
		slice = append(slice, yaml.MapItem{Key: strconv.Itoa(k), Value: d[k]})
	}
	out, err := yaml.Marshal(slice)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan YAML: %w", err)
	}
	return out, nil
}

// Write serializes the document to w in the given format
func (d Document) Write(w io.Writer, format Format) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = d.ToJSON()
	case FormatYAML:
		out, err = d.ToYAML()
	default:
		return fmt.Errorf("unsupported plan format %d", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
