package led

import (
	"context"

	"github.com/charmbracelet/log"
)

// DryRunSink validates colors and logs what would be sent without touching hardware
type DryRunSink struct {
	logger *log.Logger
}

func NewDryRunSink(logger *log.Logger) *DryRunSink {
	if logger == nil {
		logger = log.Default()
	}
	return &DryRunSink{logger: logger}
}

func (s *DryRunSink) Set(_ context.Context, name string) error {
	normalized, rgb, err := resolve(name)
	if err != nil {
		return err
	}
	s.logger.Infof("[DRY RUN] Would set LEDs: %s (%d,%d,%d)", normalized, rgb.R, rgb.G, rgb.B)
	return nil
}
