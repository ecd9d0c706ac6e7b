// Package merge produces a single combined JSON config from a
// per-family profile selection. The output is a read model for tools
// that want one file with every family's credential; building it never
// touches activation state.
package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/store"
)

const MergedFileName = "merged.json"

// Writer renders merge selections into a file.
type Writer struct {
	mu    sync.Mutex
	store *store.Store
	path  string
}

// NewWriter returns a Writer that reads profiles from st and writes the
// combined config to path.
func NewWriter(st *store.Store, path string) *Writer {
	return &Writer{store: st, path: path}
}

// Path returns the merged config location.
func (w *Writer) Path() string {
	return w.path
}

// Apply writes the combined config for the given family to profile id
// selection and returns the output path. Families mapped to an empty id
// are skipped; a selection with nothing in it is rejected. Active flags
// play no part: the caller picks the profiles, active or not.
func (w *Writer) Apply(selection map[core.Family]string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := make(map[string]map[string]string)
	for _, meta := range core.Families() {
		id, ok := selection[meta.Family]
		if !ok || id == "" {
			continue
		}

		rec, err := w.store.Get(id)
		if err != nil {
			return "", err
		}
		if rec.Family != meta.Family {
			return "", &core.ValidationError{
				Field:  "selection",
				Reason: fmt.Sprintf("profile %s belongs to family %s, not %s", id, rec.Family, meta.Family),
			}
		}

		section := map[string]string{meta.SecretKey: rec.Secret}
		if rec.Endpoint != "" {
			section[meta.EndpointKey] = rec.Endpoint
		}
		doc[string(meta.Family)] = section
	}

	if len(doc) == 0 {
		return "", &core.ValidationError{Field: "selection", Reason: "merge selection is empty"}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &core.StorageError{Op: "encode", Path: w.path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0700); err != nil {
		return "", &core.StorageError{Op: "mkdir", Path: w.path, Err: err}
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", &core.StorageError{Op: "write", Path: w.path, Err: err}
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return "", &core.StorageError{Op: "replace", Path: w.path, Err: err}
	}
	return w.path, nil
}
