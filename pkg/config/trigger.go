package config

import (
	"fmt"
	"strings"

	"rotanim/pkg/anim"
)

// legacy trigger names still accepted, checked after the canonical ones.
var legacyTriggers = []struct {
	name string
	kind anim.TriggerKind
}{
	{"docking", anim.KindDockingStage2},
	{"primary_bank", anim.KindPrimaryBank},
	{"secondary_bank", anim.KindSecondaryBank},
	{"door", anim.KindBayDoor},
	{"turret firing", anim.KindTurretFiring},
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// ParseTrigger maps a trigger name from a model file to its kind. Matching
// is case-insensitive on the name's prefix. Misspelled, deprecated and
// quoted names still resolve, with a note describing the preferred
// spelling. Unknown names yield KindNone.
func ParseTrigger(name string) (kind anim.TriggerKind, note string) {
	name = strings.TrimSpace(name)
	for _, k := range anim.Kinds() {
		if hasPrefixFold(name, k.String()) {
			return k, ""
		}
	}

	if hasPrefixFold(name, "inital") || hasPrefixFold(name, `"inital"`) {
		return anim.KindInitial, `spelling error, change "inital" to "initial"`
	}

	for _, l := range legacyTriggers {
		if hasPrefixFold(name, l.name) || hasPrefixFold(name, `"`+l.name+`"`) {
			return l.kind, fmt.Sprintf("trigger name %q is deprecated, use %q", l.name, l.kind.String())
		}
	}

	for _, k := range anim.Kinds() {
		quoted := `"` + k.String() + `"`
		if hasPrefixFold(name, quoted) {
			return k, fmt.Sprintf("remove the quotes from trigger name %s", quoted)
		}
	}
	return anim.KindNone, ""
}
