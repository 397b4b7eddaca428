package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tapdance/internal/ir"
)

// Scenario is a scripted run of the engine against one keymap, with
// assertions over the resulting trace and host state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Keymap is "builtin:NAME" or a directory of CUE files. Relative
	// directories are resolved against the scenario's base path.
	Keymap string `yaml:"keymap"`

	// TappingTermMs and SettleMs override the engine defaults.
	TappingTermMs *uint32 `yaml:"tapping_term_ms,omitempty"`
	SettleMs      *uint32 `yaml:"settle_ms,omitempty"`

	// Events is the input script.
	Events []Step `yaml:"events"`

	// Assertions validate the final trace and host state.
	Assertions []Assertion `yaml:"assertions"`

	baseDir string
}

// Step is one scripted input. Exactly one of Press, Release and Tick is set.
//
// The key name in Press/Release is a dance or macro name from the keymap,
// or a keycode name for a plain key that is neither. Pos names the physical
// key and defaults to the key name.
//
// At places the event at an absolute time; After places it relative to the
// previous event. With neither, the event happens at the previous time.
type Step struct {
	At      *uint32 `yaml:"at,omitempty"`
	After   *uint32 `yaml:"after,omitempty"`
	Press   string  `yaml:"press,omitempty"`
	Release string  `yaml:"release,omitempty"`
	Tick    bool    `yaml:"tick,omitempty"`
	Pos     string  `yaml:"pos,omitempty"`
}

// Kind returns the input kind the step describes.
func (s Step) Kind() ir.InputKind {
	switch {
	case s.Press != "":
		return ir.InputPress
	case s.Release != "":
		return ir.InputRelease
	default:
		return ir.InputTick
	}
}

// Key returns the key name of a press or release step.
func (s Step) Key() string {
	if s.Press != "" {
		return s.Press
	}
	return s.Release
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "classified": categories finalized, in order (optionally for one dance)
	// - "effects": every effect sent to the host, in order
	// - "effect_count": number of effects sent to the host
	// - "balanced": host ends with no keys down and no layers on
	// - "idle": every slot ends idle
	// - "layers": layers active on the host at the end
	Type string `yaml:"type"`

	// Dance restricts "classified" to one dance.
	Dance string `yaml:"dance,omitempty"`

	// Categories are the expected categories (used by classified).
	Categories []string `yaml:"categories,omitempty"`

	// Effects are the expected effects (used by effects), written like
	// "down KC_A" or "layer_on ILSTR".
	Effects []string `yaml:"effects,omitempty"`

	// Count is the expected number of effects (used by effect_count).
	Count *int `yaml:"count,omitempty"`

	// Layers are the expected active layers, by name or number (used by layers).
	Layers []string `yaml:"layers,omitempty"`

	// Want is the expected truth value for balanced and idle. Defaults to true.
	Want *bool `yaml:"want,omitempty"`
}

// want returns the expected truth value of a boolean assertion.
func (a Assertion) want() bool {
	return a.Want == nil || *a.Want
}

// Assertion type constants.
const (
	AssertClassified  = "classified"
	AssertEffects     = "effects"
	AssertEffectCount = "effect_count"
	AssertBalanced    = "balanced"
	AssertIdle        = "idle"
	AssertLayers      = "layers"
)

// LoadScenario reads and parses a scenario YAML file. Keymap directories
// are resolved relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving keymap directories relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.baseDir = basePath
	return scenario, nil
}

// ParseScenario parses scenario YAML held in memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScript reads an event script: a scenario file where only keymap and
// events are required. Assertions, if present, are still validated.
func LoadScript(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	var script Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if script.Name == "" {
		script.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := validateScript(&script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	script.baseDir = filepath.Dir(path)
	return &script, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	return validateScript(s)
}

// validateScript checks the keymap reference, events and any assertions.
func validateScript(s *Scenario) error {
	if s.Keymap == "" {
		return fmt.Errorf("keymap is required")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	for i, step := range s.Events {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Press != "" {
		set++
	}
	if s.Release != "" {
		set++
	}
	if s.Tick {
		set++
	}
	if set != 1 {
		return fmt.Errorf("events[%d]: exactly one of press, release or tick is required", index)
	}
	if s.At != nil && s.After != nil {
		return fmt.Errorf("events[%d]: at and after are mutually exclusive", index)
	}
	if s.Tick && s.Pos != "" {
		return fmt.Errorf("events[%d]: pos is not allowed on tick", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertClassified:
		for _, c := range a.Categories {
			if _, err := ir.ParseCategory(c); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertEffects:
		// Effects may name layers, so they are parsed against the table at run time.
	case AssertEffectCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for effect_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for effect_count", index)
		}
	case AssertBalanced, AssertIdle, AssertLayers:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
