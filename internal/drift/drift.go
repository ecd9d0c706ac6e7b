// Package drift detects disagreement between the profile store's view
// of each family and what the family's configuration surface actually
// holds. External edits to an auth file, a deleted environment
// variable, or a credential written behind credshift's back all show up
// as findings. Findings describe the mismatch without ever quoting
// secret values.
package drift

import (
	"github.com/credshift/credshift/internal/backend"
	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/store"
)

// State classifies one family's surface against the store.
type State string

const (
	// StateInSync means the surface matches the active profile.
	StateInSync State = "in_sync"

	// StateMissing means a profile is active but the surface is empty.
	StateMissing State = "missing"

	// StateDiverged means the surface holds different values than the
	// active profile.
	StateDiverged State = "diverged"

	// StateOrphaned means the surface holds a credential while no
	// profile is active.
	StateOrphaned State = "orphaned"

	// StateClear means no profile is active and the surface is empty.
	StateClear State = "clear"

	// StateUnknown means the surface could not be inspected.
	StateUnknown State = "unknown"
)

// Finding is one family's drift verdict.
type Finding struct {
	Family  core.Family `json:"family"`
	State   State       `json:"state"`
	Profile string      `json:"profile_id,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// Check inspects every family's surface and reports one finding per
// family, in the fixed family order.
func Check(st *store.Store, backends map[core.Family]backend.Backend) []Finding {
	findings := make([]Finding, 0, len(backends))

	for _, meta := range core.Families() {
		b, ok := backends[meta.Family]
		if !ok {
			continue
		}

		active, hasActive := st.ActiveByFamily(meta.Family)

		f := Finding{Family: meta.Family}
		if hasActive {
			f.Profile = active.ID
		}

		snap, err := b.Inspect()
		if err != nil {
			f.State = StateUnknown
			f.Detail = err.Error()
			findings = append(findings, f)
			continue
		}

		switch {
		case hasActive && !snap.Present:
			f.State = StateMissing
			f.Detail = "active profile has no credential on the surface"
		case hasActive && (snap.Secret != active.Secret || snap.Endpoint != active.Endpoint):
			f.State = StateDiverged
			f.Detail = "surface credential differs from the active profile"
		case hasActive:
			f.State = StateInSync
		case snap.Present:
			f.State = StateOrphaned
			f.Detail = "surface carries a credential but no profile is active"
		default:
			f.State = StateClear
		}
		findings = append(findings, f)
	}

	return findings
}
