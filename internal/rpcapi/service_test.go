package rpcapi

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/credshift/credshift/internal/drift"
	"github.com/credshift/credshift/internal/engine"
	"github.com/credshift/credshift/internal/envstore"
)

func setupTestEngine(t *testing.T) *engine.Engine {
	t.Helper()

	eng, err := engine.Open(engine.Options{
		DataDir: t.TempDir(),
		HomeDir: t.TempDir(),
		Env:     envstore.NewMemory(),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestServiceProfileLifecycle(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	added, err := svc.AddProfile(AddParams{
		Name:   "work",
		Family: "claude",
		Secret: "sk-ant-test-1234567890",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Active {
		t.Error("new profile is active")
	}

	profiles := svc.ListProfiles()
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}

	got, err := svc.GetProfile(added.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "work" || got.Family != "claude" {
		t.Errorf("got %+v", got)
	}

	updated, err := svc.UpdateProfile(UpdateParams{
		ID:       added.ID,
		Name:     "renamed",
		Endpoint: "https://proxy.example.com",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed" || updated.Endpoint != "https://proxy.example.com" {
		t.Errorf("updated %+v", updated)
	}

	if err := svc.DeleteProfile(added.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if profiles := svc.ListProfiles(); len(profiles) != 0 {
		t.Errorf("expected 0 profiles after delete, got %d", len(profiles))
	}
}

func TestServiceResponsesNeverCarrySecrets(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	secret := "sk-ant-REDACTED"
	added, err := svc.AddProfile(AddParams{Name: "work", Family: "claude", Secret: secret})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	data, err := json.Marshal(added)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), secret) {
		t.Errorf("response carries the raw secret: %s", data)
	}
	if !strings.HasPrefix(added.SecretRef, "[REDACTED:sha256:") {
		t.Errorf("SecretRef = %q", added.SecretRef)
	}
	if added.SecretHint != "sk-a...8765" {
		t.Errorf("SecretHint = %q", added.SecretHint)
	}
}

func TestSecretHint(t *testing.T) {
	tests := []struct {
		secret string
		want   string
	}{
		{"", "..."},
		{"short", "..."},
		{"12345678", "..."},
		{"sk-ant-test-1234", "sk-a...1234"},
	}

	for _, tt := range tests {
		if got := secretHint(tt.secret); got != tt.want {
			t.Errorf("secretHint(%q) = %q, want %q", tt.secret, got, tt.want)
		}
	}
}

func TestServiceAddValidation(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	if _, err := svc.AddProfile(AddParams{Name: "x", Family: "slack", Secret: "s"}); err == nil {
		t.Error("expected error for unknown family")
	}
	if _, err := svc.AddProfile(AddParams{Name: "", Family: "claude", Secret: "s"}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestServiceActivateAndDeactivate(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	p1, _ := svc.AddProfile(AddParams{Name: "p1", Family: "claude", Secret: "sk-one-12345"})
	p2, _ := svc.AddProfile(AddParams{Name: "p2", Family: "claude", Secret: "sk-two-12345"})

	activated, err := svc.ActivateProfile(p1.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !activated.Active {
		t.Error("activate returned an inactive profile")
	}

	// Switch to p2
	if _, err := svc.ActivateProfile(p2.ID); err != nil {
		t.Fatalf("activate p2: %v", err)
	}

	active, err := svc.ActiveProfiles("claude")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != p2.ID {
		t.Errorf("active = %+v, want p2 only", active)
	}

	// All-families form skips families with nothing active.
	all, err := svc.ActiveProfiles("")
	if err != nil {
		t.Fatalf("active all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 active profile across families, got %d", len(all))
	}

	if err := svc.DeactivateFamily("claude"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ = svc.ActiveProfiles("claude")
	if len(active) != 0 {
		t.Errorf("expected no active profile, got %+v", active)
	}

	if err := svc.DeactivateFamily("slack"); err == nil {
		t.Error("expected error for unknown family")
	}
}

func TestServiceListFamilies(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	families := svc.ListFamilies()
	if len(families) != 3 {
		t.Fatalf("expected 3 families, got %d", len(families))
	}

	p, _ := svc.AddProfile(AddParams{Name: "work", Family: "codex", Secret: "sk-codex-12345"})
	if _, err := svc.ActivateProfile(p.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	families = svc.ListFamilies()
	for _, f := range families {
		switch f.Family {
		case "codex":
			if f.Profiles != 1 {
				t.Errorf("codex profile count = %d, want 1", f.Profiles)
			}
			if f.ActiveProfileID != p.ID || f.ActiveProfileName != "work" {
				t.Errorf("codex active = (%q, %q)", f.ActiveProfileID, f.ActiveProfileName)
			}
		case "claude":
			if f.Surface != "env_store" {
				t.Errorf("claude surface = %q", f.Surface)
			}
			if f.ActiveProfileID != "" {
				t.Error("claude reports an active profile")
			}
		}
	}
}

func TestServiceApplyMerge(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	claude, _ := svc.AddProfile(AddParams{Name: "c", Family: "claude", Secret: "sk-ant-12345"})

	result, err := svc.ApplyMerge(MergeParams{Selection: map[string]string{"claude": claude.ID}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if result.Path == "" {
		t.Error("merge result has no path")
	}

	if _, err := svc.ApplyMerge(MergeParams{Selection: map[string]string{"slack": "x"}}); err == nil {
		t.Error("expected error for unknown family in selection")
	}
	if _, err := svc.ApplyMerge(MergeParams{}); err == nil {
		t.Error("expected error for empty selection")
	}
}

func TestServiceCheckDrift(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	findings := svc.CheckDrift()
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(findings))
	}
	for _, f := range findings {
		if f.State != drift.StateClear {
			t.Errorf("family %s state = %s on a fresh engine", f.Family, f.State)
		}
	}
}

func TestServiceVerifyAuditChain(t *testing.T) {
	svc := NewService(setupTestEngine(t))

	if _, err := svc.AddProfile(AddParams{Name: "work", Family: "claude", Secret: "sk-ant-12345"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	valid, count, err := svc.VerifyAuditChain()
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !valid {
		t.Error("expected valid audit chain")
	}
	if count < 1 {
		t.Errorf("expected at least 1 audit record, got %d", count)
	}
}

// --- Handler (JSON-RPC dispatch) tests ---

func TestHandlerProfileFlow(t *testing.T) {
	handler := NewHandler(NewService(setupTestEngine(t)))
	ctx := context.Background()

	params, _ := json.Marshal(AddParams{Name: "work", Family: "claude", Secret: "sk-ant-12345"})
	resp := handler.Handle(ctx, &RPCRequest{Method: "profile.add", Params: params})
	if resp.Error != "" {
		t.Fatalf("add error: %s", resp.Error)
	}

	var added ProfileInfo
	json.Unmarshal(resp.Result, &added)
	if added.ID == "" {
		t.Fatal("add returned no id")
	}

	params, _ = json.Marshal(idParam{ID: added.ID})
	resp = handler.Handle(ctx, &RPCRequest{Method: "profile.activate", Params: params})
	if resp.Error != "" {
		t.Fatalf("activate error: %s", resp.Error)
	}

	resp = handler.Handle(ctx, &RPCRequest{Method: "profile.active"})
	if resp.Error != "" {
		t.Fatalf("active error: %s", resp.Error)
	}
	var active []ProfileInfo
	json.Unmarshal(resp.Result, &active)
	if len(active) != 1 || active[0].ID != added.ID {
		t.Errorf("active = %+v", active)
	}

	resp = handler.Handle(ctx, &RPCRequest{Method: "profile.list"})
	if resp.Error != "" {
		t.Fatalf("list error: %s", resp.Error)
	}
	var profiles []ProfileInfo
	json.Unmarshal(resp.Result, &profiles)
	if len(profiles) != 1 || !profiles[0].Active {
		t.Errorf("profiles = %+v", profiles)
	}
}

func TestHandlerUnknownMethod(t *testing.T) {
	handler := NewHandler(NewService(setupTestEngine(t)))

	resp := handler.Handle(context.Background(), &RPCRequest{Method: "nonexistent.method"})
	if resp.Error == "" {
		t.Error("expected error for unknown method")
	}
	if resp.Code != "unknown_method" {
		t.Errorf("code = %q, want unknown_method", resp.Code)
	}
}

func TestHandlerErrorCodes(t *testing.T) {
	handler := NewHandler(NewService(setupTestEngine(t)))
	ctx := context.Background()

	params, _ := json.Marshal(idParam{ID: "no-such-id"})
	resp := handler.Handle(ctx, &RPCRequest{Method: "profile.get", Params: params})
	if resp.Code != "not_found" {
		t.Errorf("get unknown id code = %q, want not_found", resp.Code)
	}

	params, _ = json.Marshal(AddParams{Name: "", Family: "claude", Secret: "s"})
	resp = handler.Handle(ctx, &RPCRequest{Method: "profile.add", Params: params})
	if resp.Code != "validation" {
		t.Errorf("invalid add code = %q, want validation", resp.Code)
	}
}

func TestHandlerListFamilies(t *testing.T) {
	handler := NewHandler(NewService(setupTestEngine(t)))

	resp := handler.Handle(context.Background(), &RPCRequest{Method: "family.list"})
	if resp.Error != "" {
		t.Fatalf("handler error: %s", resp.Error)
	}

	var families []FamilyInfo
	json.Unmarshal(resp.Result, &families)
	if len(families) != 3 {
		t.Errorf("expected 3 families, got %d", len(families))
	}
}

func TestHandlerVerifyAudit(t *testing.T) {
	handler := NewHandler(NewService(setupTestEngine(t)))

	resp := handler.Handle(context.Background(), &RPCRequest{Method: "audit.verify"})
	if resp.Error != "" {
		t.Fatalf("handler error: %s", resp.Error)
	}

	var result map[string]any
	json.Unmarshal(resp.Result, &result)
	if result["valid"] != true {
		t.Error("expected valid audit chain")
	}
}

func TestHandlerResponsesNeverCarrySecrets(t *testing.T) {
	handler := NewHandler(NewService(setupTestEngine(t)))
	ctx := context.Background()

	secret := "sk-ant-wire-secret-55555"
	params, _ := json.Marshal(AddParams{Name: "work", Family: "claude", Secret: secret})
	handler.Handle(ctx, &RPCRequest{Method: "profile.add", Params: params})

	for _, method := range []string{"profile.list", "profile.active", "family.list", "drift.check"} {
		resp := handler.Handle(ctx, &RPCRequest{Method: method})
		if strings.Contains(string(resp.Result), secret) {
			t.Errorf("%s response carries the raw secret", method)
		}
	}
}
