package led

import (
	"image/color"
	"sort"
	"strings"
)

// Colors is the fixed color table understood by every sink. Names are lower-case.
var Colors = map[string]color.RGBA{
	"red":       {R: 255, G: 0, B: 0, A: 255},
	"green":     {R: 0, G: 255, B: 0, A: 255},
	"blue":      {R: 0, G: 0, B: 255, A: 255},
	"brown":     {R: 255, G: 100, B: 20, A: 255},
	"white":     {R: 255, G: 255, B: 255, A: 255},
	"yellow":    {R: 255, G: 255, B: 0, A: 255},
	"cyan":      {R: 0, G: 255, B: 255, A: 255},
	"magenta":   {R: 255, G: 0, B: 255, A: 255},
	"orange":    {R: 255, G: 165, B: 0, A: 255},
	"purple":    {R: 128, G: 0, B: 128, A: 255},
	"pink":      {R: 255, G: 105, B: 180, A: 255},
	"warmwhite": {R: 255, G: 244, B: 229, A: 255},
	"coldwhite": {R: 200, G: 220, B: 255, A: 255},
	"off":       {R: 0, G: 0, B: 0, A: 255},
}

// Normalize lower-cases and trims a color name
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the RGB value for a color name, ignoring case
func Lookup(name string) (color.RGBA, bool) {
	c, ok := Colors[Normalize(name)]
	return c, ok
}

// Known reports whether name is in the color table
func Known(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Names returns the table's color names sorted alphabetically
func Names() []string {
	names := make([]string, 0, len(Colors))
	for name := range Colors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
