// Package engine wires together the profile store, the per-family
// configuration backends, the merge writer and the audit log. It is the
// only writer of active flags: every activation path runs under a
// per-family lock, so switches within one family serialize while
// different families proceed independently.
package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/credshift/credshift/internal/audit"
	"github.com/credshift/credshift/internal/backend"
	"github.com/credshift/credshift/internal/config"
	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/db"
	"github.com/credshift/credshift/internal/drift"
	"github.com/credshift/credshift/internal/envstore"
	"github.com/credshift/credshift/internal/logging"
	"github.com/credshift/credshift/internal/merge"
	"github.com/credshift/credshift/internal/store"
)

// Options configures Open. Zero fields fall back to the current user's
// defaults; Env is the injection point for a fake environment store in
// tests.
type Options struct {
	DataDir  string
	HomeDir  string
	Env      envstore.Store
	Logger   zerolog.Logger
	Redactor *logging.RedactingWriter
	Operator string
}

// Engine is the central coordinator for all credshift subsystems.
type Engine struct {
	Store    *store.Store
	Backends map[core.Family]backend.Backend
	Merge    *merge.Writer
	AuditDB  *sql.DB
	Audit    *audit.Logger
	Logger   zerolog.Logger

	operator string
	redactor *logging.RedactingWriter
	locks    map[core.Family]*sync.Mutex
}

// AddInput carries the fields for a new profile.
type AddInput struct {
	Name     string
	Family   core.Family
	Secret   string
	Endpoint string
}

// UpdateInput carries a profile update. A nil Secret keeps the stored
// secret; Endpoint always replaces, with empty meaning none.
type UpdateInput struct {
	ID       string
	Name     string
	Secret   *string
	Endpoint string
}

// Open initializes the engine over the given data directory.
func Open(opts Options) (*Engine, error) {
	if opts.DataDir == "" {
		opts.DataDir = config.DefaultDataDir()
	}
	if opts.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		opts.HomeDir = home
	}
	if opts.Env == nil {
		opts.Env = envstore.OpenUser()
	}
	if opts.Operator == "" {
		opts.Operator = "local"
	}

	if err := db.EnsureDataDir(opts.DataDir); err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(opts.DataDir, store.StoreFileName))
	if err != nil {
		return nil, fmt.Errorf("opening profile store: %w", err)
	}

	auditDB, err := db.OpenAuditDB(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	al, err := audit.NewLogger(auditDB)
	if err != nil {
		auditDB.Close()
		return nil, fmt.Errorf("creating audit logger: %w", err)
	}

	if opts.Redactor != nil {
		for _, rec := range st.List() {
			opts.Redactor.Protect(rec.Secret)
		}
	}

	locks := make(map[core.Family]*sync.Mutex)
	for _, meta := range core.Families() {
		locks[meta.Family] = &sync.Mutex{}
	}

	return &Engine{
		Store:    st,
		Backends: backend.NewAll(opts.Env, opts.HomeDir),
		Merge:    merge.NewWriter(st, filepath.Join(opts.DataDir, merge.MergedFileName)),
		AuditDB:  auditDB,
		Audit:    al,
		Logger:   opts.Logger,
		operator: opts.Operator,
		redactor: opts.Redactor,
		locks:    locks,
	}, nil
}

// Close shuts down engine resources.
func (e *Engine) Close() error {
	if e.AuditDB != nil {
		return e.AuditDB.Close()
	}
	return nil
}

// List returns all profiles in insertion order.
func (e *Engine) List() []core.ProfileRecord {
	return e.Store.List()
}

// Get returns one profile by id.
func (e *Engine) Get(id string) (core.ProfileRecord, error) {
	return e.Store.Get(id)
}

// Active returns the family's currently active profile, if any.
func (e *Engine) Active(family core.Family) (core.ProfileRecord, bool) {
	return e.Store.ActiveByFamily(family)
}

// Add stores a new inactive profile.
func (e *Engine) Add(in AddInput) (core.ProfileRecord, error) {
	rec, err := e.Store.Add(in.Name, in.Family, in.Secret, in.Endpoint)
	if err != nil {
		return core.ProfileRecord{}, err
	}
	e.protect(rec.Secret)

	e.auditLog(audit.EventProfileAdded, rec.ID, rec.Family, map[string]string{
		"name":       rec.Name,
		"secret_ref": logging.RedactValue(rec.Secret),
		"endpoint":   rec.Endpoint,
	})
	e.Logger.Info().
		Str("profile_id", rec.ID).
		Str("family", string(rec.Family)).
		Str("name", rec.Name).
		Msg("Profile added")
	return rec, nil
}

// Update modifies a profile. When the profile is currently active, the
// new values are applied to the family's surface before the store
// commits, so a surface failure leaves the stored profile unchanged.
func (e *Engine) Update(in UpdateInput) (core.ProfileRecord, error) {
	if in.Name == "" {
		return core.ProfileRecord{}, &core.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	rec, err := e.Store.Get(in.ID)
	if err != nil {
		return core.ProfileRecord{}, err
	}

	lock := e.locks[rec.Family]
	lock.Lock()
	defer lock.Unlock()

	rec, err = e.Store.Get(in.ID)
	if err != nil {
		return core.ProfileRecord{}, err
	}

	candidate := rec
	candidate.Name = in.Name
	candidate.Endpoint = in.Endpoint
	if in.Secret != nil {
		candidate.Secret = *in.Secret
	}

	if rec.Active {
		if err := e.Backends[rec.Family].Apply(candidate); err != nil {
			return core.ProfileRecord{}, err
		}
	}

	updated, err := e.Store.Update(in.ID, candidate.Name, candidate.Secret, candidate.Endpoint)
	if err != nil {
		return core.ProfileRecord{}, err
	}
	e.protect(updated.Secret)

	e.auditLog(audit.EventProfileUpdated, updated.ID, updated.Family, map[string]string{
		"name":       updated.Name,
		"secret_ref": logging.RedactValue(updated.Secret),
		"endpoint":   updated.Endpoint,
		"reapplied":  fmt.Sprintf("%t", rec.Active),
	})
	e.Logger.Info().
		Str("profile_id", updated.ID).
		Str("family", string(updated.Family)).
		Bool("reapplied", rec.Active).
		Msg("Profile updated")
	return updated, nil
}

// Delete removes a profile. An active profile's surface is cleared
// first; if the clear fails the record stays, still marked active.
func (e *Engine) Delete(id string) error {
	rec, err := e.Store.Get(id)
	if err != nil {
		return err
	}

	lock := e.locks[rec.Family]
	lock.Lock()
	defer lock.Unlock()

	rec, err = e.Store.Get(id)
	if err != nil {
		return err
	}

	if rec.Active {
		if err := e.Backends[rec.Family].Clear(); err != nil {
			return err
		}
	}

	if err := e.Store.Delete(id); err != nil {
		return err
	}

	e.auditLog(audit.EventProfileDeleted, rec.ID, rec.Family, map[string]string{
		"name":       rec.Name,
		"was_active": fmt.Sprintf("%t", rec.Active),
	})
	e.Logger.Info().
		Str("profile_id", rec.ID).
		Str("family", string(rec.Family)).
		Msg("Profile deleted")
	return nil
}

// Activate makes the profile its family's active one and writes it onto
// the family's surface. The previous profile's surface entries are
// cleared before the new ones go in; if applying the new profile fails,
// the previous profile's active flag is restored.
func (e *Engine) Activate(id string) (core.ProfileRecord, error) {
	rec, err := e.Store.Get(id)
	if err != nil {
		return core.ProfileRecord{}, err
	}

	lock := e.locks[rec.Family]
	lock.Lock()
	defer lock.Unlock()

	rec, err = e.Store.Get(id)
	if err != nil {
		return core.ProfileRecord{}, err
	}
	b := e.Backends[rec.Family]

	prev, hadPrev := e.Store.ActiveByFamily(rec.Family)
	if hadPrev && prev.ID == rec.ID {
		// Re-activation refreshes the surface without a clear.
		if err := b.Apply(rec); err != nil {
			return core.ProfileRecord{}, err
		}
		e.auditLog(audit.EventProfileActivated, rec.ID, rec.Family, map[string]string{
			"name":      rec.Name,
			"refreshed": "true",
		})
		return rec, nil
	}

	if hadPrev {
		if err := b.Clear(); err != nil {
			return core.ProfileRecord{}, err
		}
		if err := e.Store.SetActive(prev.ID, false); err != nil {
			return core.ProfileRecord{}, err
		}
	}

	if err := b.Apply(rec); err != nil {
		if hadPrev {
			if rerr := e.Store.SetActive(prev.ID, true); rerr != nil {
				e.Logger.Error().Err(rerr).
					Str("profile_id", prev.ID).
					Msg("Failed to restore active flag after apply failure")
			}
		}
		return core.ProfileRecord{}, err
	}

	if err := e.Store.SetActive(rec.ID, true); err != nil {
		return core.ProfileRecord{}, err
	}
	rec.Active = true

	detail := map[string]string{"name": rec.Name}
	if hadPrev {
		detail["previous"] = prev.ID
	}
	e.auditLog(audit.EventProfileActivated, rec.ID, rec.Family, detail)
	e.Logger.Info().
		Str("profile_id", rec.ID).
		Str("family", string(rec.Family)).
		Str("name", rec.Name).
		Msg("Profile activated")
	return rec, nil
}

// Deactivate clears the family's surface and unmarks its active
// profile. Deactivating a family with nothing active still clears the
// surface and succeeds.
func (e *Engine) Deactivate(family core.Family) error {
	if _, ok := core.LookupFamily(family); !ok {
		return &core.ValidationError{Field: "family", Reason: fmt.Sprintf("unknown family: %s", family)}
	}

	lock := e.locks[family]
	lock.Lock()
	defer lock.Unlock()

	if err := e.Backends[family].Clear(); err != nil {
		return err
	}

	rec, ok := e.Store.ActiveByFamily(family)
	if !ok {
		return nil
	}
	if err := e.Store.SetActive(rec.ID, false); err != nil {
		return err
	}

	e.auditLog(audit.EventProfileDeactivated, rec.ID, rec.Family, map[string]string{
		"name": rec.Name,
	})
	e.Logger.Info().
		Str("profile_id", rec.ID).
		Str("family", string(family)).
		Msg("Profile deactivated")
	return nil
}

// ApplyMerged writes the combined config for a per-family profile
// selection and returns its path.
func (e *Engine) ApplyMerged(selection map[core.Family]string) (string, error) {
	path, err := e.Merge.Apply(selection)
	if err != nil {
		return "", err
	}

	families := make([]string, 0, len(selection))
	for _, meta := range core.Families() {
		if id, ok := selection[meta.Family]; ok && id != "" {
			families = append(families, string(meta.Family))
		}
	}
	e.auditLog(audit.EventMergeApplied, "", "", map[string]any{
		"families": families,
		"path":     path,
	})
	e.Logger.Info().Strs("families", families).Msg("Merged config written")
	return path, nil
}

// CheckDrift compares each family's surface against the store's view
// and reports mismatches. A check that finds drift leaves one audit
// record summarizing the affected families.
func (e *Engine) CheckDrift() []drift.Finding {
	findings := drift.Check(e.Store, e.Backends)

	var drifted []string
	for _, f := range findings {
		if f.State != drift.StateInSync && f.State != drift.StateClear {
			drifted = append(drifted, string(f.Family))
		}
	}
	if len(drifted) > 0 {
		e.auditLog(audit.EventDriftDetected, "", "", map[string]any{"families": drifted})
	}
	return findings
}

// VerifyAudit checks the audit chain's integrity.
func (e *Engine) VerifyAudit() (bool, int, error) {
	return audit.Verify(e.AuditDB)
}

func (e *Engine) protect(secret string) {
	if e.redactor != nil {
		e.redactor.Protect(secret)
	}
}

// auditLog records an event. Audit write failures are logged as
// warnings and do not fail the operation being audited.
func (e *Engine) auditLog(eventType audit.EventType, profileID string, family core.Family, detail any) {
	if err := e.Audit.Log(eventType, e.operator, profileID, family, detail); err != nil {
		e.Logger.Warn().Err(err).Str("event", string(eventType)).Msg("Audit write failed")
	}
}
