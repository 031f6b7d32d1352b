package cue

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v2"
)

// Format selects the plan document syntax
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks JSON for .json files and YAML for everything else
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load decodes a plan document from r. See Parse for the validation rules.
func Load(r io.Reader, format Format) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
		}
		if _, ok := doc.(map[any]any); ok {
			// Decode again keeping raw scalar text, so off, on and yes are not read as booleans
			var raw map[string]yamlScalar
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
			}
			m := make(map[string]any, len(raw))
			for k, v := range raw {
				m[k] = string(v)
			}
			doc = m
		}
	default:
		return nil, fmt.Errorf("unsupported plan format %d", format)
	}

	return Parse(doc)
}

// LoadFile reads and parses the plan at path
func LoadFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("plan file not found: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	plan, err := Load(f, FormatForPath(path))
	if err != nil {
		return plan, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("Loaded plan with %d entries from %s", plan.Len(), path)
	return plan, nil
}

// yamlScalar holds a YAML value as written. Non-scalar values fall back to their printed form.
type yamlScalar string

func (s *yamlScalar) UnmarshalYAML(unmarshal func(any) error) error {
	var text string
	if err := unmarshal(&text); err == nil {
		*s = yamlScalar(text)
		return nil
	}
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}
	*s = yamlScalar(scalarString(v))
	return nil
}
