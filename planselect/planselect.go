package planselect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
)

// Suffixes of plan files shown by the picker
var Suffixes = []string{".led.json", ".led.yaml", ".led.yml"}

// ErrNoPlans is returned when a plans directory holds no plan files
var ErrNoPlans = errors.New("no LED plans found")

// IsPlanFile reports whether name has a plan suffix
func IsPlanFile(name string) bool {
	for _, s := range Suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// List returns the plan files in dir sorted by name
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsPlanFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPlans, dir)
	}
	sort.Strings(files)
	return files, nil
}

// Choose asks the operator to pick one of files. A single file is returned without prompting.
func Choose(files []string) (string, error) {
	switch len(files) {
	case 0:
		return "", ErrNoPlans
	case 1:
		log.Infof("Using plan: %s", files[0])
		return files[0], nil
	}

	options := make([]huh.Option[string], 0, len(files))
	for _, f := range files {
		options = append(options, huh.NewOption(filepath.Base(f), f))
	}

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select LED plan").
				Description(fmt.Sprintf("%d plans in %s", len(files), filepath.Dir(files[0]))).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("failed to get plan selection: %w", err)
	}

	log.Infof("Using plan: %s", choice)
	return choice, nil
}

// Resolve returns explicit when set and otherwise lists dir and prompts
func Resolve(explicit, dir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	files, err := List(dir)
	if err != nil {
		return "", err
	}
	return Choose(files)
}
