package led

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCommand is the strip driver invocation used on the vehicle's companion computer
var DefaultCommand = []string{"sudo", "python3", "/home/led25.py"}

// CommandSink drives the strip through an external driver program that takes
// the color name as its final argument.
type CommandSink struct {
	argv    []string
	timeout time.Duration
	logger  *log.Logger
}

// NewCommandSink creates a sink that runs argv followed by the color name.
// A zero timeout means the driver may run for as long as ctx allows.
func NewCommandSink(argv []string, timeout time.Duration, logger *log.Logger) (*CommandSink, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("led command is empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CommandSink{
		argv:    append([]string(nil), argv...),
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (s *CommandSink) Set(ctx context.Context, name string) error {
	normalized, _, err := resolve(name)
	if err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(s.argv))
	args = append(args, s.argv[1:]...)
	args = append(args, normalized)

	s.logger.Infof("Setting LEDs: %s", normalized)
	start := time.Now()
	out, err := exec.CommandContext(ctx, s.argv[0], args...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return deviceError(fmt.Errorf("%s: %w: %s", s.argv[0], err, output))
		}
		return deviceError(fmt.Errorf("%s: %w", s.argv[0], err))
	}

	s.logger.Debug("LED driver finished", "color", normalized, "duration", time.Since(start), "output", output)
	return nil
}
