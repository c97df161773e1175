package host

import (
	"time"

	"rotanim/pkg/subsys"
)

// PartStatus is a snapshot of one part. Angles are radians.
type PartStatus struct {
	Name      string     `json:"name"`
	Angle     [3]float64 `json:"angle"`
	Velocity  [3]float64 `json:"velocity"`
	EndAngle  [3]float64 `json:"end_angle"`
	Moving    bool       `json:"moving"`
	Kind      string     `json:"kind,omitempty"`
	Pending   int        `json:"pending"`
	TurnRate  float64    `json:"turn_rate"`
	Remaining float64    `json:"remaining"`
	Hits      float64    `json:"hits"`
	MaxHits   float64    `json:"max_hits"`
	Destroyed bool       `json:"destroyed"`
}

// ObjectStatus is a snapshot of one object.
type ObjectStatus struct {
	Name  string       `json:"name"`
	Time  float64      `json:"eventtime"`
	Parts []PartStatus `json:"parts"`
}

// Part returns the named part's snapshot.
func (s ObjectStatus) Part(name string) (PartStatus, bool) {
	for _, p := range s.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return PartStatus{}, false
}

func snapshot(o *subsys.Object, now time.Duration) ObjectStatus {
	s := ObjectStatus{Name: o.Name, Time: now.Seconds(), Parts: make([]PartStatus, 0, len(o.Parts))}
	for _, p := range o.Parts {
		ps := PartStatus{
			Name:      p.Name,
			Hits:      p.CurrentHits,
			MaxHits:   p.MaxHits,
			Destroyed: p.Destroyed(),
		}
		if st, ok := o.Arena().Get(p.Slot); ok {
			ps.Angle = st.Angle()
			ps.Velocity = st.Velocity()
			ps.EndAngle = st.EndAngle()
			ps.Moving = st.Moving()
			ps.Pending = st.PendingLen()
			ps.TurnRate = st.TurnRate()
			if prof, ok := st.Active(); ok {
				ps.Kind = prof.Motion.Kind.String()
				ps.Remaining = st.RemainingDuration(now).Seconds()
			}
		}
		s.Parts = append(s.Parts, ps)
	}
	return s
}
