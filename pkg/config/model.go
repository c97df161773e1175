// Animation model loading
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"rotanim/pkg/anim"
	"rotanim/pkg/log"
)

var logger = log.GetLogger("config")

// Section name prefixes understood by ModelFromConfig.
const (
	PartPrefix      = "submodel "
	AnimationPrefix = "animation "
	ObjectPrefix    = "object "
)

// PartSpec describes one animated sub-part and its motion templates.
type PartSpec struct {
	Name        string
	MaxHits     float64
	CurrentHits float64
	Templates   []anim.QueuedMotion

	// RealEnd is the forward duration of each template, filled in by
	// FixReverseTimes.
	RealEnd []time.Duration
}

// ObjectSpec names an object instance and the parts it is built from.
type ObjectSpec struct {
	Name  string
	Parts []string
}

// Model is everything a model file declares.
type Model struct {
	Parts   []*PartSpec
	Objects []ObjectSpec
}

// Part looks up a part by name.
func (m *Model) Part(name string) (*PartSpec, bool) {
	for _, p := range m.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (m *Model) partOrNew(name string) *PartSpec {
	if p, ok := m.Part(name); ok {
		return p
	}
	p := &PartSpec{Name: name}
	m.Parts = append(m.Parts, p)
	return p
}

// LoadModelFile reads a model from path, choosing the YAML loader for .yaml
// and .yml files and the INI loader otherwise.
func LoadModelFile(path string) (*Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAMLFile(path)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return ModelFromConfig(cfg)
}

// ModelFromConfig builds a model from the submodel, animation and object
// sections of cfg. Other sections are left for the caller.
func ModelFromConfig(cfg *Config) (*Model, error) {
	m := &Model{}
	for _, sec := range cfg.GetPrefixSections(PartPrefix) {
		cfg.GetSectionOptional(sec.GetName())
		if err := parsePartSection(m, sec); err != nil {
			return nil, err
		}
	}
	for _, sec := range cfg.GetPrefixSections(AnimationPrefix) {
		cfg.GetSectionOptional(sec.GetName())
		if err := parseAnimationSection(m, sec); err != nil {
			return nil, err
		}
	}
	for _, sec := range cfg.GetPrefixSections(ObjectPrefix) {
		cfg.GetSectionOptional(sec.GetName())
		if err := parseObjectSection(m, sec); err != nil {
			return nil, err
		}
	}
	for _, prefix := range []string{PartPrefix, AnimationPrefix, ObjectPrefix} {
		for _, sec := range cfg.GetPrefixSections(prefix) {
			if unused := sec.GetUnusedOptions(); len(unused) > 0 {
				return nil, NewConfigError(sec.GetName(), unused[0], "unknown option")
			}
		}
	}
	if err := m.finish(); err != nil {
		return nil, err
	}
	return m, nil
}

func parsePartSection(m *Model, sec *Section) error {
	name := strings.TrimSpace(strings.TrimPrefix(sec.GetName(), PartPrefix))
	if name == "" {
		return NewConfigError(sec.GetName(), "", "missing part name")
	}
	maxHits, err := sec.GetNonNegative("max_hits", 0)
	if err != nil {
		return err
	}
	hits, err := sec.GetFloat("current_hits", maxHits)
	if err != nil {
		return err
	}
	p := m.partOrNew(name)
	p.MaxHits = maxHits
	p.CurrentHits = hits
	return nil
}

// parseAnimationSection reads [animation <part> <label>].
func parseAnimationSection(m *Model, sec *Section) error {
	fields := strings.Fields(strings.TrimPrefix(sec.GetName(), AnimationPrefix))
	if len(fields) != 2 {
		return NewConfigError(sec.GetName(), "", "expected [animation <part> <label>]")
	}

	typeName, err := sec.Get("type")
	if err != nil {
		return err
	}
	kind, note := ParseTrigger(typeName)
	if !kind.Valid() {
		return ErrInvalidValue(sec.GetName(), "type", typeName, "trigger name")
	}
	if note != "" {
		logger.WithField("section", sec.GetName()).Warn("%s", note)
	}

	t := anim.QueuedMotion{Kind: kind, Instance: -1}
	if t.Subtype, err = sec.GetInt("subtype", anim.SubtypeAll); err != nil {
		return err
	}
	if t.Angle, err = sec.GetDegrees("angle"); err != nil {
		return err
	}
	if t.Velocity, err = sec.GetDegrees("velocity", mgl64.Vec3{}); err != nil {
		return err
	}
	if t.Accel, err = sec.GetDegrees("acceleration", mgl64.Vec3{}); err != nil {
		return err
	}
	if t.Absolute, err = sec.GetBool("absolute", false); err != nil {
		return err
	}
	if t.StartDelay, err = sec.GetDuration("start_delay", 0); err != nil {
		return err
	}
	if t.DurationHint, err = sec.GetDuration("duration", 0); err != nil {
		return err
	}
	if t.ReverseStartDelay, err = sec.GetDuration("reverse_delay", anim.DeriveReverseDelay); err != nil {
		return err
	}
	if t.StartDelay < 0 || t.DurationHint < 0 {
		return NewConfigError(sec.GetName(), "", "delays must not be negative")
	}
	if t.Sound.Start, err = sec.Get("start_sound", ""); err != nil {
		return err
	}
	if t.Sound.Loop, err = sec.Get("loop_sound", ""); err != nil {
		return err
	}
	if t.Sound.End, err = sec.Get("end_sound", ""); err != nil {
		return err
	}
	if t.Sound.Radius, err = sec.GetNonNegative("sound_radius", 0); err != nil {
		return err
	}

	p := m.partOrNew(fields[0])
	p.Templates = append(p.Templates, t)
	return nil
}

func parseObjectSection(m *Model, sec *Section) error {
	name := strings.TrimSpace(strings.TrimPrefix(sec.GetName(), ObjectPrefix))
	if name == "" {
		return NewConfigError(sec.GetName(), "", "missing object name")
	}
	parts, err := sec.GetList("parts", ",", nil)
	if err != nil {
		return err
	}
	m.Objects = append(m.Objects, ObjectSpec{Name: name, Parts: parts})
	return nil
}

// finish validates cross references and applies load-time corrections.
func (m *Model) finish() error {
	for i := range m.Objects {
		o := &m.Objects[i]
		if o.Parts == nil {
			for _, p := range m.Parts {
				o.Parts = append(o.Parts, p.Name)
			}
			continue
		}
		for _, name := range o.Parts {
			if _, ok := m.Part(name); !ok {
				return NewConfigError(ObjectPrefix+o.Name, "parts", fmt.Sprintf("unknown part %q", name))
			}
		}
	}
	for _, p := range m.Parts {
		for i := range p.Templates {
			p.Templates[i].Instance = i
			if CorrectVelocity(&p.Templates[i]) {
				logger.WithFields(log.Fields{
					"part":  p.Name,
					"index": strconv.Itoa(i),
				}).Debug("cruise speed reduced to fit travel")
			}
		}
	}
	FixReverseTimes(m)
	return nil
}

// CorrectVelocity lowers each axis's cruise speed to sqrt(|a·θ|) when the
// motion is too short to reach it, i.e. v²/a > |θ|. It reports whether any
// axis changed.
func CorrectVelocity(m *anim.QueuedMotion) bool {
	changed := false
	for i := 0; i < 3; i++ {
		a := m.Accel[i]
		if a == 0 {
			continue
		}
		v := m.Velocity[i]
		if v*v/a > math.Abs(m.Angle[i]) {
			m.Velocity[i] = math.Sqrt(math.Abs(a * m.Angle[i]))
			changed = true
		}
	}
	return changed
}

// FixReverseTimes fills in derived reverse start delays. Playing a kind
// backwards, each template waits for the longest template of that kind
// minus its own length, so that all parts arrive home together.
func FixReverseTimes(m *Model) {
	longest := make(map[anim.TriggerKind]time.Duration)
	for _, p := range m.Parts {
		for i := range p.Templates {
			t := &p.Templates[i]
			if !t.Kind.Valid() {
				continue
			}
			if d := anim.TotalDuration(*t); d > longest[t.Kind] {
				longest[t.Kind] = d
			}
		}
	}

	for _, p := range m.Parts {
		p.RealEnd = make([]time.Duration, len(p.Templates))
		for i := range p.Templates {
			t := &p.Templates[i]
			own := anim.TotalDuration(*t)
			p.RealEnd[i] = own
			if !t.Kind.Valid() || t.ReverseStartDelay >= 0 {
				continue
			}
			rev := longest[t.Kind] - own
			if rev < 0 {
				logger.WithFields(log.Fields{
					"part": p.Name,
					"kind": t.Kind.String(),
				}).Warn("derived reverse delay %v is negative, using 0", rev)
				rev = 0
			}
			t.ReverseStartDelay = rev
		}
	}
}
