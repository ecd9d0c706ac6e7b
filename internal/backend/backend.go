// Package backend writes profiles into each tool family's real
// configuration surface. One backend exists per family; the engine
// drives them through the Backend interface so the same activation
// logic covers the environment store and the JSON file surfaces.
package backend

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/envstore"
)

// Snapshot reports what a surface currently holds.
type Snapshot struct {
	// Present is false when the surface carries no credential at all.
	Present bool

	Secret   string
	Endpoint string
}

// Backend applies and clears credentials on one family's surface.
type Backend interface {
	// Family identifies the tool family this backend serves.
	Family() core.Family

	// Apply writes the profile's credential onto the surface,
	// replacing whatever was there.
	Apply(rec core.ProfileRecord) error

	// Clear removes the credential from the surface. Clearing an
	// already-empty surface succeeds.
	Clear() error

	// Inspect reads the surface without modifying it.
	Inspect() (Snapshot, error)

	// Paths lists filesystem locations backing the surface, empty for
	// non-file surfaces. Used by drift watching.
	Paths() []string
}

// NewAll builds one backend per known family. File surfaces resolve
// relative to homeDir; the env surface uses the supplied store handle.
func NewAll(env envstore.Store, homeDir string) map[core.Family]Backend {
	backends := make(map[core.Family]Backend)
	for _, meta := range core.Families() {
		switch meta.Surface {
		case core.SurfaceEnvStore:
			backends[meta.Family] = &envBackend{meta: meta, env: env}
		case core.SurfaceJSONFile:
			backends[meta.Family] = &fileBackend{meta: meta, path: filepath.Join(homeDir, meta.FilePath)}
		}
	}
	return backends
}

// classify wraps a raw surface failure into a BackendError with the
// closest matching kind.
func classify(family core.Family, surface string, err error) error {
	kind := core.BackendIO
	switch {
	case errors.Is(err, envstore.ErrUnsupported):
		kind = core.BackendUnsupported
	case os.IsPermission(err):
		kind = core.BackendPermission
	}
	return &core.BackendError{Family: family, Kind: kind, Surface: surface, Err: err}
}
