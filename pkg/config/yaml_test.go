package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rotanim/pkg/anim"
)

const carrierYAML = `
parts:
  - name: door01
    max_hits: 40
    animations:
      - type: fighterbay
        subtype: 1
        angle: [90, 0, 0]
        velocity: [45, 0, 0]
        acceleration: [90, 0, 0]
        start_delay: 0.5
        duration: 2.5
        sound:
          start: hatch-start
          radius: 150
  - name: door02
    animations:
      - type: fighterbay
        subtype: 2
        angle: [45, 0, 0]
        velocity: [45, 0, 0]
        acceleration: [90, 0, 0]
        reverse_delay: 0.1
objects:
  - name: carrier
`

func TestLoadYAML(t *testing.T) {
	m, err := LoadYAML(strings.NewReader(carrierYAML))
	if err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}
	door, ok := m.Part("door01")
	if !ok || len(door.Templates) != 1 {
		t.Fatalf("door01 = %+v", door)
	}
	if door.CurrentHits != 40 {
		t.Errorf("current hits default = %v", door.CurrentHits)
	}
	tpl := door.Templates[0]
	if tpl.Kind != anim.KindBayDoor || tpl.Subtype != 1 {
		t.Errorf("template = %+v", tpl)
	}
	if math.Abs(tpl.Accel[0]-math.Pi/2) > 1e-12 {
		t.Errorf("accel = %v", tpl.Accel)
	}
	if tpl.Sound.Start != "hatch-start" || tpl.Sound.Radius != 150 {
		t.Errorf("sound = %+v", tpl.Sound)
	}
	if tpl.ReverseStartDelay != 0 {
		t.Errorf("derived reverse delay = %v", tpl.ReverseStartDelay)
	}

	door2, _ := m.Part("door02")
	if got := door2.Templates[0].ReverseStartDelay; got != 100*time.Millisecond {
		t.Errorf("explicit reverse delay = %v", got)
	}
	if len(m.Objects) != 1 || len(m.Objects[0].Parts) != 2 {
		t.Errorf("objects = %+v", m.Objects)
	}
}

func TestLoadYAMLMatchesINI(t *testing.T) {
	ini, _ := LoadString(`
[animation door01 open]
type: fighterbay
subtype: 1
angle: 90 0 0
velocity: 45 0 0
acceleration: 90 0 0
start_delay: 0.5
duration: 2.5
`)
	a, err := ModelFromConfig(ini)
	if err != nil {
		t.Fatal(err)
	}
	b, err := LoadYAML(strings.NewReader(`
parts:
  - name: door01
    animations:
      - type: fighterbay
        subtype: 1
        angle: [90, 0, 0]
        velocity: [45, 0, 0]
        acceleration: [90, 0, 0]
        start_delay: 0.5
        duration: 2.5
`))
	if err != nil {
		t.Fatal(err)
	}
	pa, _ := a.Part("door01")
	pb, _ := b.Part("door01")
	if pa.Templates[0] != pb.Templates[0] {
		t.Errorf("INI %+v\nYAML %+v", pa.Templates[0], pb.Templates[0])
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "parts:\n  - name: a\n    speed: 3\n",
		"unknown trigger": "parts:\n  - name: a\n    animations:\n      - type: warp\n",
		"missing name":    "parts:\n  - max_hits: 3\n",
		"negative hits":   "parts:\n  - name: a\n    max_hits: -1\n",
		"bad object part": "parts:\n  - name: a\nobjects:\n  - name: o\n    parts: [b]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadYAML(strings.NewReader(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.yaml")
	os.WriteFile(path, []byte(carrierYAML), 0644)
	m, err := LoadModelFile(path)
	if err != nil {
		t.Fatalf("LoadModelFile failed: %v", err)
	}
	if len(m.Parts) != 2 {
		t.Errorf("parts = %d", len(m.Parts))
	}

	if _, err := LoadYAML(strings.NewReader("")); err != nil {
		t.Errorf("empty document: %v", err)
	}
}
