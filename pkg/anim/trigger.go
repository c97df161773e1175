// Trigger kinds
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package anim

// TriggerKind is the event class that starts a motion.
type TriggerKind int

const (
	KindNone TriggerKind = iota - 1
	KindInitial
	KindDockingStage1
	KindDockingStage2
	KindDockingStage3
	KindDocked
	KindPrimaryBank
	KindSecondaryBank
	KindBayDoor
	KindAfterburner
	KindTurretFiring
	KindScripted
	KindTurretFired

	numKinds
)

// SubtypeAll matches every subtype of a trigger kind.
const SubtypeAll = -1

var kindNames = [numKinds]string{
	KindInitial:       "initial",
	KindDockingStage1: "docking-stage-1",
	KindDockingStage2: "docking-stage-2",
	KindDockingStage3: "docking-stage-3",
	KindDocked:        "docked",
	KindPrimaryBank:   "primary-bank",
	KindSecondaryBank: "secondary-bank",
	KindBayDoor:       "fighterbay",
	KindAfterburner:   "afterburner",
	KindTurretFiring:  "turret-firing",
	KindScripted:      "scripted",
	KindTurretFired:   "turret-fired",
}

func (k TriggerKind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return "none"
}

// Valid reports whether k names a real trigger kind.
func (k TriggerKind) Valid() bool {
	return k >= 0 && k < numKinds
}

// Instant reports whether motions of this kind normally snap to their final
// pose instead of being animated. Only the initial pose does.
func (k TriggerKind) Instant() bool {
	return k == KindInitial
}

// Kinds returns every valid trigger kind in declaration order.
func Kinds() []TriggerKind {
	out := make([]TriggerKind, 0, numKinds)
	for k := TriggerKind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// ParseTriggerKind looks up a canonical kind name.
func ParseTriggerKind(name string) (TriggerKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return TriggerKind(k), true
		}
	}
	return KindNone, false
}
