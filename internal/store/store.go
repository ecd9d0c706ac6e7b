// Package store implements the file-backed profile collection. The full
// collection is rewritten on every mutating call; writes go to a
// temporary file first and are renamed into place, so a reader never
// observes a truncated or half-written store.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/credshift/credshift/internal/core"
)

const (
	StoreFileName = "profiles.json"

	storeVersion = 1
)

// storeFile is the on-disk representation.
type storeFile struct {
	Version  int                  `json:"version"`
	Profiles []core.ProfileRecord `json:"profiles"`
}

// Store owns the authoritative profile collection. Records keep their
// insertion order; every mutating method persists before returning.
type Store struct {
	mu       sync.RWMutex
	path     string
	profiles []core.ProfileRecord
}

// Open loads the store at path. A missing file yields an empty store; a
// file that cannot be read or parsed yields a StorageError.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, &core.StorageError{Op: "read", Path: path, Err: err}
	}

	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, &core.StorageError{Op: "parse", Path: path, Err: err}
	}

	s.profiles = sf.Profiles
	return s, nil
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// List returns a snapshot of all profiles in insertion order.
func (s *Store) List() []core.ProfileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.ProfileRecord, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Get returns the profile with the given id.
func (s *Store) Get(id string) (core.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.ProfileRecord{}, &core.NotFoundError{ID: id}
	}
	return s.profiles[i], nil
}

// Add creates a new profile with a fresh id and active=false, appends it
// to the collection and persists.
func (s *Store) Add(name string, family core.Family, secret, endpoint string) (core.ProfileRecord, error) {
	if name == "" {
		return core.ProfileRecord{}, &core.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, ok := core.LookupFamily(family); !ok {
		return core.ProfileRecord{}, &core.ValidationError{Field: "family", Reason: fmt.Sprintf("unknown family: %s", family)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := core.ProfileRecord{
		ID:       uuid.New().String(),
		Name:     name,
		Family:   family,
		Secret:   secret,
		Endpoint: endpoint,
	}
	s.profiles = append(s.profiles, rec)

	if err := s.flush(); err != nil {
		s.profiles = s.profiles[:len(s.profiles)-1]
		return core.ProfileRecord{}, err
	}
	return rec, nil
}

// Update replaces the name, secret and endpoint of an existing profile.
// The family and active flag are untouched.
func (s *Store) Update(id, name, secret, endpoint string) (core.ProfileRecord, error) {
	if name == "" {
		return core.ProfileRecord{}, &core.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.ProfileRecord{}, &core.NotFoundError{ID: id}
	}

	prev := s.profiles[i]
	s.profiles[i].Name = name
	s.profiles[i].Secret = secret
	s.profiles[i].Endpoint = endpoint

	if err := s.flush(); err != nil {
		s.profiles[i] = prev
		return core.ProfileRecord{}, err
	}
	return s.profiles[i], nil
}

// Delete removes a profile from the collection and persists.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return &core.NotFoundError{ID: id}
	}

	prev := s.profiles
	s.profiles = append(append([]core.ProfileRecord{}, s.profiles[:i]...), s.profiles[i+1:]...)

	if err := s.flush(); err != nil {
		s.profiles = prev
		return err
	}
	return nil
}

// SetActive flips a single record's active flag and persists. This is a
// low-level primitive: the single-active-per-family invariant is the
// activation engine's job, not enforced here.
func (s *Store) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return &core.NotFoundError{ID: id}
	}

	prev := s.profiles[i].Active
	s.profiles[i].Active = active

	if err := s.flush(); err != nil {
		s.profiles[i].Active = prev
		return err
	}
	return nil
}

// ActiveByFamily returns the family's active profile, if any.
func (s *Store) ActiveByFamily(family core.Family) (core.ProfileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.profiles {
		if rec.Family == family && rec.Active {
			return rec, true
		}
	}
	return core.ProfileRecord{}, false
}

// Count returns the number of stored profiles.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

func (s *Store) indexOf(id string) int {
	for i, rec := range s.profiles {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

// flush serializes the collection and atomically replaces the store
// file. Callers must hold the write lock.
func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &core.StorageError{Op: "mkdir", Path: s.path, Err: err}
	}

	sf := storeFile{
		Version:  storeVersion,
		Profiles: s.profiles,
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return &core.StorageError{Op: "encode", Path: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &core.StorageError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &core.StorageError{Op: "replace", Path: s.path, Err: err}
	}
	return nil
}
