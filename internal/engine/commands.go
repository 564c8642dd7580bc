package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operator commands. Producers outside the frame loop (HTTP, file watcher,
// cron) only enqueue them; the loop applies them between frames.
const (
	CommandReload = "afz-reload" // Reset the config store, if hot reload is enabled
	CommandFlush  = "flush"      // Hand buffered telemetry to the sink
	CommandReport = "report"     // Log a one-line summary
	CommandSpeed  = "speed"      // Change the pacing multiplier
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("command queue full")
)

// Command is one queued operator request.
type Command struct {
	Name   string  `json:"command"`
	Value  float64 `json:"value,omitempty"`
	Source string  `json:"source,omitempty"` // Who asked: "api", "watcher", "cron"
}

// ParseCommand reads the text form, e.g. "afz-reload" or "speed 4".
func ParseCommand(text string) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("parse command: %w", ErrUnknownCommand)
	}

	cmd := Command{Name: strings.ToLower(fields[0])}
	switch cmd.Name {
	case CommandReload, CommandFlush, CommandReport:
		if len(fields) > 1 {
			return Command{}, fmt.Errorf("parse command %q: takes no arguments", cmd.Name)
		}
	case CommandSpeed:
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("parse command %q: want one value", cmd.Name)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Command{}, fmt.Errorf("parse speed: %w", err)
		}
		cmd.Value = v
	default:
		return Command{}, fmt.Errorf("parse command %q: %w", cmd.Name, ErrUnknownCommand)
	}
	return cmd, cmd.Validate()
}

// Text renders c in the form ParseCommand reads. A bare speed name carries
// Value as its argument.
func (c Command) Text() string {
	name := strings.TrimSpace(c.Name)
	if strings.EqualFold(name, CommandSpeed) {
		return name + " " + strconv.FormatFloat(c.Value, 'g', -1, 64)
	}
	return name
}

// Validate checks the name and value range.
func (c Command) Validate() error {
	switch c.Name {
	case CommandReload, CommandFlush, CommandReport:
		return nil
	case CommandSpeed:
		if math.IsNaN(c.Value) || c.Value < 0 || c.Value > 1000 {
			return fmt.Errorf("speed must be 0-1000, got %g", c.Value)
		}
		return nil
	}
	return fmt.Errorf("command %q: %w", c.Name, ErrUnknownCommand)
}
