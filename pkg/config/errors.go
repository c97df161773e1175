// Package config loads animation models from INI-style or YAML files, with
// per-option access tracking so unknown keys can be reported.
package config

import (
	"fmt"

	"rotanim/pkg/errors"
)

// ConfigError is a configuration problem tied to a section and option.
type ConfigError struct {
	Section string
	Option  string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("option '%s' in section '%s': %s", e.Option, e.Section, e.Message)
	}
	if e.Section != "" {
		return fmt.Sprintf("section '%s': %s", e.Section, e.Message)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Coded converts e into the shared error type.
func (e *ConfigError) Coded() *errors.AnimError {
	code := errors.ErrConfigValidation
	switch {
	case e.Option != "":
		code = errors.ErrConfigOption
	case e.Section != "":
		code = errors.ErrConfigSection
	}
	ae := errors.Wrap(e, code, e.Message)
	if e.Section != "" {
		ae.SetSection(e.Section)
	}
	if e.Option != "" {
		ae.SetOption(e.Option)
	}
	return ae
}

// NewConfigError creates a new ConfigError.
func NewConfigError(section, option, message string) *ConfigError {
	return &ConfigError{Section: section, Option: option, Message: message}
}

// WrapError wraps err with config context.
func WrapError(section, option string, err error) *ConfigError {
	return &ConfigError{Section: section, Option: option, Message: err.Error(), Cause: err}
}

// ErrMissingOption returns an error for a required but missing option.
func ErrMissingOption(section, option string) *ConfigError {
	return &ConfigError{Section: section, Option: option, Message: "must be specified"}
}

// ErrMissingSection returns an error for a missing section.
func ErrMissingSection(section string) *ConfigError {
	return &ConfigError{Section: section, Message: "section not found"}
}

// ErrInvalidValue returns an error for a value of the wrong shape.
func ErrInvalidValue(section, option, value, expected string) *ConfigError {
	return &ConfigError{
		Section: section,
		Option:  option,
		Message: fmt.Sprintf("invalid value '%s', expected %s", value, expected),
	}
}

// ErrOutOfRange returns an error for a value outside the allowed range.
func ErrOutOfRange(section, option string, value float64, constraint string) *ConfigError {
	return &ConfigError{
		Section: section,
		Option:  option,
		Message: fmt.Sprintf("value %v %s", value, constraint),
	}
}

