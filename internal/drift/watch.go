package drift

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/credshift/credshift/internal/backend"
	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/store"
)

// Watcher re-runs drift checks when a file-backed surface changes on
// disk. Watches attach to the parent directories because tools replace
// auth files by rename, which would silently drop a watch on the file
// itself. Environment store surfaces have no filesystem presence and
// are only covered by explicit checks.
type Watcher struct {
	fsw      *fsnotify.Watcher
	store    *store.Store
	backends map[core.Family]backend.Backend
	logger   zerolog.Logger
	paths    map[string]bool

	// Notify, when set, receives the findings of every re-check.
	Notify func([]Finding)
}

// NewWatcher builds a watcher over every file-backed surface.
func NewWatcher(st *store.Store, backends map[core.Family]backend.Backend, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		store:    st,
		backends: backends,
		logger:   logger,
		paths:    make(map[string]bool),
	}

	dirs := make(map[string]bool)
	for _, b := range backends {
		for _, p := range b.Paths() {
			w.paths[p] = true
			dirs[filepath.Dir(p)] = true
		}
	}
	for dir := range dirs {
		// The directory may not exist until a first activation; skip
		// it rather than fail startup.
		if err := fsw.Add(dir); err != nil {
			logger.Debug().Err(err).Str("dir", dir).Msg("Not watching directory")
		}
	}

	return w, nil
}

// Run processes filesystem events until the context is canceled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.paths[event.Name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug().
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("Surface file changed")
			w.recheck()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) recheck() {
	findings := Check(w.store, w.backends)
	for _, f := range findings {
		if f.State == StateInSync || f.State == StateClear {
			continue
		}
		w.logger.Warn().
			Str("family", string(f.Family)).
			Str("state", string(f.State)).
			Str("detail", f.Detail).
			Msg("Drift detected")
	}
	if w.Notify != nil {
		w.Notify(findings)
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
