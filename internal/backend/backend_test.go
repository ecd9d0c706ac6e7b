package backend

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/envstore"
)

func newTestBackends(t *testing.T) (map[core.Family]Backend, *envstore.Memory, string) {
	t.Helper()
	env := envstore.NewMemory()
	home := t.TempDir()
	return NewAll(env, home), env, home
}

func TestNewAllCoversEveryFamily(t *testing.T) {
	backends, _, _ := newTestBackends(t)

	for _, meta := range core.Families() {
		b, ok := backends[meta.Family]
		if !ok {
			t.Errorf("no backend for family %s", meta.Family)
			continue
		}
		if b.Family() != meta.Family {
			t.Errorf("backend for %s reports family %s", meta.Family, b.Family())
		}
	}
}

func TestEnvApplyWritesBothVariablesAndBroadcastsOnce(t *testing.T) {
	backends, env, _ := newTestBackends(t)
	b := backends[core.FamilyClaude]

	rec := core.ProfileRecord{
		ID:       "p1",
		Name:     "work",
		Family:   core.FamilyClaude,
		Secret:   "sk-ant-test",
		Endpoint: "https://proxy.example.com",
	}
	if err := b.Apply(rec); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if v, ok, _ := env.Get("ANTHROPIC_AUTH_TOKEN"); !ok || v != "sk-ant-test" {
		t.Errorf("ANTHROPIC_AUTH_TOKEN = (%q, %v)", v, ok)
	}
	if v, ok, _ := env.Get("ANTHROPIC_BASE_URL"); !ok || v != "https://proxy.example.com" {
		t.Errorf("ANTHROPIC_BASE_URL = (%q, %v)", v, ok)
	}
	if env.Broadcasts != 1 {
		t.Errorf("Broadcasts = %d, want 1", env.Broadcasts)
	}
}

func TestEnvApplyEmptyEndpointDeletesVariable(t *testing.T) {
	backends, env, _ := newTestBackends(t)
	b := backends[core.FamilyClaude]

	if err := env.Set("ANTHROPIC_BASE_URL", "https://stale.example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	rec := core.ProfileRecord{ID: "p1", Name: "work", Family: core.FamilyClaude, Secret: "sk-ant-test"}
	if err := b.Apply(rec); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, ok, _ := env.Get("ANTHROPIC_BASE_URL"); ok {
		t.Error("empty endpoint left ANTHROPIC_BASE_URL behind")
	}
	if v, ok, _ := env.Get("ANTHROPIC_AUTH_TOKEN"); !ok || v != "sk-ant-test" {
		t.Errorf("ANTHROPIC_AUTH_TOKEN = (%q, %v)", v, ok)
	}
}

func TestEnvApplyRollsBackSecretOnEndpointFailure(t *testing.T) {
	backends, env, _ := newTestBackends(t)
	b := backends[core.FamilyClaude]

	if err := env.Set("ANTHROPIC_AUTH_TOKEN", "sk-ant-old"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	env.FailSet = map[string]error{"ANTHROPIC_BASE_URL": errors.New("disk full")}

	rec := core.ProfileRecord{
		ID:       "p2",
		Name:     "new",
		Family:   core.FamilyClaude,
		Secret:   "sk-ant-new",
		Endpoint: "https://proxy.example.com",
	}
	err := b.Apply(rec)
	if err == nil {
		t.Fatal("Apply succeeded despite endpoint write failure")
	}
	var berr *core.BackendError
	if !errors.As(err, &berr) || berr.Kind != core.BackendIO {
		t.Errorf("error = %v, want io backend error", err)
	}

	if v, _, _ := env.Get("ANTHROPIC_AUTH_TOKEN"); v != "sk-ant-old" {
		t.Errorf("ANTHROPIC_AUTH_TOKEN = %q after failed apply, want previous value", v)
	}
	if env.Broadcasts != 0 {
		t.Errorf("Broadcasts = %d after failed apply, want 0", env.Broadcasts)
	}
}

func TestEnvApplyRemovesFreshSecretOnEndpointFailure(t *testing.T) {
	backends, env, _ := newTestBackends(t)
	b := backends[core.FamilyClaude]

	env.FailSet = map[string]error{"ANTHROPIC_BASE_URL": errors.New("disk full")}

	rec := core.ProfileRecord{
		ID:       "p1",
		Name:     "work",
		Family:   core.FamilyClaude,
		Secret:   "sk-ant-test",
		Endpoint: "https://proxy.example.com",
	}
	if err := b.Apply(rec); err == nil {
		t.Fatal("Apply succeeded despite endpoint write failure")
	}

	if _, ok, _ := env.Get("ANTHROPIC_AUTH_TOKEN"); ok {
		t.Error("failed apply left a fresh secret on an empty surface")
	}
}

func TestEnvClearIsIdempotentAndSilent(t *testing.T) {
	backends, env, _ := newTestBackends(t)
	b := backends[core.FamilyClaude]

	env.Set("ANTHROPIC_AUTH_TOKEN", "sk-ant-test")
	env.Set("ANTHROPIC_BASE_URL", "https://proxy.example.com")

	for i := 0; i < 2; i++ {
		if err := b.Clear(); err != nil {
			t.Fatalf("Clear #%d: %v", i+1, err)
		}
	}

	if env.Len() != 0 {
		t.Errorf("%d variables survived Clear", env.Len())
	}
	if env.Broadcasts != 0 {
		t.Errorf("Clear broadcast %d times, want 0", env.Broadcasts)
	}
}

func TestEnvUnsupportedPlatformKind(t *testing.T) {
	backends, env, _ := newTestBackends(t)
	b := backends[core.FamilyClaude]

	env.FailSet = map[string]error{"ANTHROPIC_AUTH_TOKEN": envstore.ErrUnsupported}

	rec := core.ProfileRecord{ID: "p1", Name: "work", Family: core.FamilyClaude, Secret: "sk-ant-test"}
	err := b.Apply(rec)

	var berr *core.BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("error = %v, want *core.BackendError", err)
	}
	if berr.Kind != core.BackendUnsupported {
		t.Errorf("Kind = %s, want %s", berr.Kind, core.BackendUnsupported)
	}
}

func TestEnvInspect(t *testing.T) {
	backends, env, _ := newTestBackends(t)
	b := backends[core.FamilyClaude]

	snap, err := b.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if snap.Present {
		t.Error("empty surface reported Present")
	}

	env.Set("ANTHROPIC_AUTH_TOKEN", "sk-ant-test")
	env.Set("ANTHROPIC_BASE_URL", "https://proxy.example.com")

	snap, err = b.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !snap.Present || snap.Secret != "sk-ant-test" || snap.Endpoint != "https://proxy.example.com" {
		t.Errorf("Snapshot = %+v", snap)
	}
}

func TestFileApplyWritesAuthFile(t *testing.T) {
	backends, _, home := newTestBackends(t)
	b := backends[core.FamilyCodex]

	rec := core.ProfileRecord{
		ID:       "p1",
		Name:     "work",
		Family:   core.FamilyCodex,
		Secret:   "sk-codex-test",
		Endpoint: "https://proxy.example.com/v1",
	}
	if err := b.Apply(rec); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	path := filepath.Join(home, ".codex", "auth.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc["OPENAI_API_KEY"] != "sk-codex-test" {
		t.Errorf("OPENAI_API_KEY = %q", doc["OPENAI_API_KEY"])
	}
	if doc["OPENAI_BASE_URL"] != "https://proxy.example.com/v1" {
		t.Errorf("OPENAI_BASE_URL = %q", doc["OPENAI_BASE_URL"])
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("auth file mode = %o, want 0600", perm)
	}
}

func TestFileApplyOmitsEmptyEndpoint(t *testing.T) {
	backends, _, home := newTestBackends(t)
	b := backends[core.FamilyGemini]

	rec := core.ProfileRecord{ID: "p1", Name: "work", Family: core.FamilyGemini, Secret: "AIza-test"}
	if err := b.Apply(rec); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, ".gemini", "auth.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := doc["GOOGLE_GEMINI_BASE_URL"]; ok {
		t.Error("empty endpoint was written to the auth file")
	}
}

func TestFileApplyReplacesExistingFile(t *testing.T) {
	backends, _, _ := newTestBackends(t)
	b := backends[core.FamilyCodex]

	first := core.ProfileRecord{ID: "p1", Name: "a", Family: core.FamilyCodex, Secret: "sk-1", Endpoint: "https://a.example.com"}
	second := core.ProfileRecord{ID: "p2", Name: "b", Family: core.FamilyCodex, Secret: "sk-2"}

	if err := b.Apply(first); err != nil {
		t.Fatalf("Apply first: %v", err)
	}
	if err := b.Apply(second); err != nil {
		t.Fatalf("Apply second: %v", err)
	}

	snap, err := b.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if snap.Secret != "sk-2" || snap.Endpoint != "" {
		t.Errorf("Snapshot = %+v, want second profile only", snap)
	}
}

func TestFileClearRemovesFile(t *testing.T) {
	backends, _, home := newTestBackends(t)
	b := backends[core.FamilyCodex]

	rec := core.ProfileRecord{ID: "p1", Name: "work", Family: core.FamilyCodex, Secret: "sk-test"}
	if err := b.Apply(rec); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := b.Clear(); err != nil {
			t.Fatalf("Clear #%d: %v", i+1, err)
		}
	}

	if _, err := os.Stat(filepath.Join(home, ".codex", "auth.json")); !os.IsNotExist(err) {
		t.Errorf("auth file still present after Clear: %v", err)
	}
}

func TestFileInspectMissingFile(t *testing.T) {
	backends, _, _ := newTestBackends(t)
	b := backends[core.FamilyGemini]

	snap, err := b.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if snap.Present {
		t.Error("missing file reported Present")
	}
}

func TestFileInspectCorruptFile(t *testing.T) {
	backends, _, home := newTestBackends(t)
	b := backends[core.FamilyCodex]

	path := filepath.Join(home, ".codex", "auth.json")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := b.Inspect()
	var berr *core.BackendError
	if !errors.As(err, &berr) || berr.Kind != core.BackendEncoding {
		t.Errorf("error = %v, want encoding backend error", err)
	}
}

func TestFilePathsReportAuthFile(t *testing.T) {
	backends, _, home := newTestBackends(t)

	if paths := backends[core.FamilyClaude].Paths(); len(paths) != 0 {
		t.Errorf("env backend Paths = %v, want none", paths)
	}

	want := filepath.Join(home, ".codex", "auth.json")
	paths := backends[core.FamilyCodex].Paths()
	if len(paths) != 1 || paths[0] != want {
		t.Errorf("Paths = %v, want [%s]", paths, want)
	}
}
