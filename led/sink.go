package led

import (
	"context"
	"errors"
	"fmt"
	"image/color"
)

var (
	// ErrUnknownColor is returned when a color name is not in the table
	ErrUnknownColor = errors.New("unknown color")
	// ErrDevice is returned when the strip could not be driven
	ErrDevice = errors.New("led device error")
)

// Sink sets every LED on the strip to one named color.
// Implementations must return ErrUnknownColor for names outside Colors
// and wrap driver failures in ErrDevice.
type Sink interface {
	Set(ctx context.Context, name string) error
}

// resolve validates name against the table and returns its normalized form and RGB value
func resolve(name string) (string, color.RGBA, error) {
	normalized := Normalize(name)
	rgb, ok := Colors[normalized]
	if !ok {
		return "", color.RGBA{}, fmt.Errorf("%w: %q", ErrUnknownColor, name)
	}
	return normalized, rgb, nil
}

func deviceError(err error) error {
	return fmt.Errorf("%w: %w", ErrDevice, err)
}
