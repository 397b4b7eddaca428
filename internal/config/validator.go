package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.tapping_term_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Timing bounds. A term above MaxTappingTermMs makes every dance feel stuck.
const (
	MaxTappingTermMs = 5000
	MaxSettleMs      = 1000
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateKeymap()...)

	return errors
}

func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	if c.Engine.TappingTermMs == 0 || c.Engine.TappingTermMs > MaxTappingTermMs {
		errors = append(errors, ValidationError{
			Field:   "engine.tapping_term_ms",
			Value:   c.Engine.TappingTermMs,
			Message: fmt.Sprintf("must be between 1 and %d", MaxTappingTermMs),
		})
	}
	if c.Engine.SettleMs > MaxSettleMs {
		errors = append(errors, ValidationError{
			Field:   "engine.settle_ms",
			Value:   c.Engine.SettleMs,
			Message: fmt.Sprintf("must be at most %d", MaxSettleMs),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateStore() []ValidationError {
	if strings.TrimSpace(c.Store.Path) == "" {
		return []ValidationError{{
			Field:   "store.path",
			Value:   c.Store.Path,
			Message: "must not be empty",
		}}
	}
	return nil
}

func (c *Config) validateKeymap() []ValidationError {
	if c.Keymap.Dir == "" && c.Keymap.Builtin == "" {
		return []ValidationError{{
			Field:   "keymap",
			Value:   "",
			Message: "either dir or builtin must be set",
		}}
	}
	return nil
}
