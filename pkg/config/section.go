package config

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Section is one [header] block. Option names are case-insensitive and
// every getter marks the option as read, so leftovers can be reported as
// unknown.
type Section struct {
	name    string
	options map[string]string

	mu       sync.RWMutex
	accessed map[string]struct{}
}

func newSection(name string, options map[string]string) *Section {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[strings.ToLower(k)] = v
	}
	return &Section{name: name, options: opts, accessed: make(map[string]struct{})}
}

// GetName returns the section header.
func (s *Section) GetName() string {
	return s.name
}

// GetUnusedOptions returns the options no getter has read.
func (s *Section) GetUnusedOptions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var unused []string
	for opt := range s.options {
		if _, ok := s.accessed[opt]; !ok {
			unused = append(unused, opt)
		}
	}
	return unused
}

// RawOptions returns a copy of the option map.
func (s *Section) RawOptions() map[string]string {
	out := make(map[string]string, len(s.options))
	for k, v := range s.options {
		out[k] = v
	}
	return out
}

// lookup returns the option's raw text and marks it read whether or not it
// is present.
func (s *Section) lookup(option string) (string, bool) {
	key := strings.ToLower(option)
	s.mu.Lock()
	s.accessed[key] = struct{}{}
	s.mu.Unlock()
	v, ok := s.options[key]
	return v, ok
}

// typed reads option through parse. A missing option falls back to the
// first fallback, or is an error without one. want names the expected form
// in parse errors.
func typed[T any](s *Section, option string, fallback []T, want string, parse func(string) (T, bool)) (T, error) {
	var zero T
	raw, ok := s.lookup(option)
	if !ok {
		if len(fallback) > 0 {
			return fallback[0], nil
		}
		return zero, ErrMissingOption(s.name, option)
	}
	v, ok := parse(strings.TrimSpace(raw))
	if !ok {
		return zero, ErrInvalidValue(s.name, option, raw, want)
	}
	return v, nil
}

// Get returns a string option.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	return typed(s, option, fallback, "string", func(v string) (string, bool) { return v, true })
}

// GetInt returns an integer option.
func (s *Section) GetInt(option string, fallback ...int) (int, error) {
	return typed(s, option, fallback, "integer", func(v string) (int, bool) {
		i, err := strconv.Atoi(v)
		return i, err == nil
	})
}

func parseFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// GetFloat returns a finite float option.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	return typed(s, option, fallback, "float", parseFloat)
}

// GetNonNegative is GetFloat for quantities such as hit points and radii
// that cannot go below zero.
func (s *Section) GetNonNegative(option string, fallback ...float64) (float64, error) {
	v, err := s.GetFloat(option, fallback...)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrOutOfRange(s.name, option, v, "must not be negative")
	}
	return v, nil
}

// GetDuration returns a time option. Plain numbers are seconds; values with
// a unit ("250ms", "1m30s") are parsed as Go durations.
func (s *Section) GetDuration(option string, fallback ...time.Duration) (time.Duration, error) {
	return typed(s, option, fallback, "seconds", func(v string) (time.Duration, bool) {
		if f, ok := parseFloat(v); ok {
			return secondsToDuration(f), true
		}
		d, err := time.ParseDuration(v)
		return d, err == nil
	})
}

// GetDegrees returns a pitch, heading, bank triple written in degrees as a
// vector in radians. Components may be separated by commas or spaces.
func (s *Section) GetDegrees(option string, fallback ...mgl64.Vec3) (mgl64.Vec3, error) {
	return typed(s, option, fallback, "three angles in degrees (pitch, heading, bank)", func(v string) (mgl64.Vec3, bool) {
		var out mgl64.Vec3
		parts := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
		if len(parts) != 3 {
			return out, false
		}
		for i, p := range parts {
			f, ok := parseFloat(p)
			if !ok {
				return mgl64.Vec3{}, false
			}
			out[i] = mgl64.DegToRad(f)
		}
		return out, true
	})
}

// GetBool accepts 1/0, true/false, yes/no and on/off.
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	return typed(s, option, fallback, "boolean", func(v string) (bool, bool) {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
		return false, false
	})
}

// GetList splits an option on sep, dropping empty items. An empty value is
// an empty, non-nil list.
func (s *Section) GetList(option string, sep string, fallback ...[]string) ([]string, error) {
	return typed(s, option, fallback, "list", func(v string) ([]string, bool) {
		out := []string{}
		for _, p := range strings.Split(v, sep) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	})
}

func secondsToDuration(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}
