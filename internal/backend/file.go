package backend

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/credshift/credshift/internal/core"
)

// fileBackend projects a profile into a tool's JSON auth file, for
// example ~/.codex/auth.json. The whole file is owned by credshift and
// rewritten on every apply.
type fileBackend struct {
	meta core.FamilyMeta
	path string
}

func (b *fileBackend) Family() core.Family {
	return b.meta.Family
}

// Apply rewrites the auth file with the profile's credential. The
// endpoint key is omitted entirely when the profile has no endpoint, so
// the tool falls back to its default.
func (b *fileBackend) Apply(rec core.ProfileRecord) error {
	doc := map[string]string{b.meta.SecretKey: rec.Secret}
	if rec.Endpoint != "" {
		doc[b.meta.EndpointKey] = rec.Endpoint
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &core.BackendError{Family: b.meta.Family, Kind: core.BackendEncoding, Surface: b.path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return classify(b.meta.Family, b.path, err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return classify(b.meta.Family, b.path, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return classify(b.meta.Family, b.path, err)
	}
	return nil
}

// Clear removes the auth file. A file that is already gone counts as
// cleared.
func (b *fileBackend) Clear() error {
	err := os.Remove(b.path)
	if err != nil && !os.IsNotExist(err) {
		return classify(b.meta.Family, b.path, err)
	}
	return nil
}

func (b *fileBackend) Inspect() (Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, classify(b.meta.Family, b.path, err)
	}

	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, &core.BackendError{Family: b.meta.Family, Kind: core.BackendEncoding, Surface: b.path, Err: err}
	}

	secret, hasSecret := doc[b.meta.SecretKey]
	return Snapshot{Present: hasSecret, Secret: secret, Endpoint: doc[b.meta.EndpointKey]}, nil
}

func (b *fileBackend) Paths() []string {
	return []string{b.path}
}
