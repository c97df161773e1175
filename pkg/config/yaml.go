package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"rotanim/pkg/anim"
)

// yamlModel mirrors the INI sections one to one.
type yamlModel struct {
	Parts   []yamlPart   `yaml:"parts"`
	Objects []yamlObject `yaml:"objects"`
}

type yamlPart struct {
	Name        string          `yaml:"name"`
	MaxHits     float64         `yaml:"max_hits"`
	CurrentHits *float64        `yaml:"current_hits"`
	Animations  []yamlAnimation `yaml:"animations"`
}

type yamlAnimation struct {
	Type         string     `yaml:"type"`
	Subtype      *int       `yaml:"subtype"`
	Angle        [3]float64 `yaml:"angle"`
	Velocity     [3]float64 `yaml:"velocity"`
	Acceleration [3]float64 `yaml:"acceleration"`
	Absolute     bool       `yaml:"absolute"`
	StartDelay   float64    `yaml:"start_delay"`
	Duration     float64    `yaml:"duration"`
	ReverseDelay *float64   `yaml:"reverse_delay"`
	Sound        yamlSound  `yaml:"sound"`
}

type yamlSound struct {
	Start  string  `yaml:"start"`
	Loop   string  `yaml:"loop"`
	End    string  `yaml:"end"`
	Radius float64 `yaml:"radius"`
}

type yamlObject struct {
	Name  string   `yaml:"name"`
	Parts []string `yaml:"parts"`
}

// LoadYAMLFile reads a model from a YAML file.
func LoadYAMLFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to open %s: %w", path, err)
	}
	m, err := LoadYAML(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return m, nil
}

// LoadYAML decodes a model document. Unknown keys are rejected.
func LoadYAML(r io.Reader) (*Model, error) {
	var doc yamlModel
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	m := &Model{}
	for _, yp := range doc.Parts {
		if yp.Name == "" {
			return nil, NewConfigError("parts", "name", "must be specified")
		}
		if yp.MaxHits < 0 {
			return nil, ErrOutOfRange(PartPrefix+yp.Name, "max_hits", yp.MaxHits, "must have minimum of 0")
		}
		p := m.partOrNew(yp.Name)
		p.MaxHits = yp.MaxHits
		p.CurrentHits = yp.MaxHits
		if yp.CurrentHits != nil {
			p.CurrentHits = *yp.CurrentHits
		}
		for i, ya := range yp.Animations {
			t, err := ya.motion(fmt.Sprintf("%s%s %d", AnimationPrefix, yp.Name, i))
			if err != nil {
				return nil, err
			}
			p.Templates = append(p.Templates, t)
		}
	}
	for _, yo := range doc.Objects {
		if yo.Name == "" {
			return nil, NewConfigError("objects", "name", "must be specified")
		}
		m.Objects = append(m.Objects, ObjectSpec{Name: yo.Name, Parts: yo.Parts})
	}
	if err := m.finish(); err != nil {
		return nil, err
	}
	return m, nil
}

func degrees(v [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{mgl64.DegToRad(v[0]), mgl64.DegToRad(v[1]), mgl64.DegToRad(v[2])}
}

func (ya *yamlAnimation) motion(section string) (anim.QueuedMotion, error) {
	kind, note := ParseTrigger(ya.Type)
	if !kind.Valid() {
		return anim.QueuedMotion{}, ErrInvalidValue(section, "type", ya.Type, "trigger name")
	}
	if note != "" {
		logger.WithField("section", section).Warn("%s", note)
	}
	if ya.StartDelay < 0 || ya.Duration < 0 {
		return anim.QueuedMotion{}, NewConfigError(section, "", "delays must not be negative")
	}
	t := anim.QueuedMotion{
		Kind:              kind,
		Subtype:           anim.SubtypeAll,
		Instance:          -1,
		Angle:             degrees(ya.Angle),
		Velocity:          degrees(ya.Velocity),
		Accel:             degrees(ya.Acceleration),
		Absolute:          ya.Absolute,
		StartDelay:        secondsToDuration(ya.StartDelay),
		DurationHint:      secondsToDuration(ya.Duration),
		ReverseStartDelay: anim.DeriveReverseDelay,
		Sound: anim.SoundHandles{
			Start:  ya.Sound.Start,
			Loop:   ya.Sound.Loop,
			End:    ya.Sound.End,
			Radius: ya.Sound.Radius,
		},
	}
	if ya.Subtype != nil {
		t.Subtype = *ya.Subtype
	}
	if ya.ReverseDelay != nil {
		t.ReverseStartDelay = secondsToDuration(*ya.ReverseDelay)
	}
	return t, nil
}
