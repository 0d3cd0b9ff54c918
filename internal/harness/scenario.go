package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wtas/internal/headless"
	"github.com/roach88/wtas/internal/protocol"
)

// Scenario defines a playback test scenario.
// A scenario plays scripts against the headless host, sending controller
// commands at chosen host steps, and asserts on the resulting frames,
// events and recorded runs.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scripts maps script names to inline sources.
	Scripts map[string]string `yaml:"scripts,omitempty"`

	// ScriptFiles lists script files to load, relative to the scenario
	// file. Each is available under its base name.
	ScriptFiles []string `yaml:"script_files,omitempty"`

	// Saves are written to the host's save directory before the run.
	Saves map[string]headless.Save `yaml:"saves,omitempty"`

	// WarmupTicks overrides the engine's skip warm-up.
	WarmupTicks *uint32 `yaml:"warmup_ticks,omitempty"`

	// Steps is the number of host steps to run.
	Steps uint32 `yaml:"steps"`

	// Commands are submitted to the player at the start of their step.
	Commands []CommandStep `yaml:"commands"`

	// Assertions validate the frames, events and runs.
	Assertions []Assertion `yaml:"assertions"`

	// RunIDs are handed out to runs in order. Defaults to run-1, run-2, ...
	RunIDs []string `yaml:"run_ids,omitempty"`

	// dir is the scenario file's directory, for resolving ScriptFiles.
	dir string
}

// CommandStep is one controller command sent at a host step.
// Type and Data use the wire names, e.g. type: SkipTo, data: {tick: 40}.
type CommandStep struct {
	At   uint32         `yaml:"at"`
	Type string         `yaml:"type"`
	Data map[string]any `yaml:"data,omitempty"`
}

// Command decodes the step through the wire codec.
func (c CommandStep) Command() (protocol.Command, error) {
	env := protocol.Envelope{Type: c.Type}
	if len(c.Data) > 0 {
		data, err := json.Marshal(c.Data)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", c.Type, err)
		}
		env.Data = data
	}
	return protocol.DecodeCommand(env)
}

// Assertion validates part of a scenario result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "input": the input injected at Tick has exactly Keys pressed
	// - "final_state": the player ends in State
	// - "event_count": Event was emitted exactly Count times
	// - "event_order": Events appear in this order (not necessarily adjacent)
	// - "unlocks": PuzzleUnlocked ticks equal Ticks
	// - "parse_error": some ParseErrors message contains Contains
	// - "run": run number Index (0-based) ended with Reason after Tick
	// - "position": the final position is within Tolerance of Position
	Type string `yaml:"type"`

	Tick      *uint32   `yaml:"tick,omitempty"`
	Keys      string    `yaml:"keys,omitempty"`
	State     string    `yaml:"state,omitempty"`
	Event     string    `yaml:"event,omitempty"`
	Events    []string  `yaml:"events,omitempty"`
	Count     int       `yaml:"count,omitempty"`
	Ticks     []uint32  `yaml:"ticks,omitempty"`
	Contains  string    `yaml:"contains,omitempty"`
	Index     int       `yaml:"index,omitempty"`
	Reason    string    `yaml:"reason,omitempty"`
	Position  []float64 `yaml:"position,omitempty"`
	Tolerance float64   `yaml:"tolerance,omitempty"`
}

// Assertion type constants.
const (
	AssertInput      = "input"
	AssertFinalState = "final_state"
	AssertEventCount = "event_count"
	AssertEventOrder = "event_order"
	AssertUnlocks    = "unlocks"
	AssertParseError = "parse_error"
	AssertRun        = "run"
	AssertPosition   = "position"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Scripts) == 0 && len(s.ScriptFiles) == 0 {
		return fmt.Errorf("scripts or script_files is required")
	}

	if s.Steps == 0 {
		return fmt.Errorf("steps must be positive")
	}

	if len(s.Commands) == 0 {
		return fmt.Errorf("commands list is required and must be non-empty")
	}

	for i, c := range s.Commands {
		if c.At >= s.Steps {
			return fmt.Errorf("commands[%d]: at %d is past the last step %d", i, c.At, s.Steps-1)
		}
		if _, err := c.Command(); err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertInput:
		if a.Tick == nil || a.Keys == "" {
			return fmt.Errorf("input requires tick and keys")
		}
	case AssertFinalState:
		if a.State == "" {
			return fmt.Errorf("final_state requires state")
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("event_count requires event")
		}
	case AssertEventOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("event_order requires at least 2 events")
		}
	case AssertUnlocks:
	case AssertParseError:
		if a.Contains == "" {
			return fmt.Errorf("parse_error requires contains")
		}
	case AssertRun:
		if a.Reason == "" {
			return fmt.Errorf("run requires reason")
		}
	case AssertPosition:
		if len(a.Position) != 3 {
			return fmt.Errorf("position requires [x, y, z]")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
