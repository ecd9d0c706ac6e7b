// Package core defines the foundational types for credshift: the profile
// record, the tool-family enumeration with its surface metadata, and the
// error taxonomy shared by the store, the activation backends and the engine.
package core

// Family groups profiles that share one activation mechanism.
type Family string

const (
	FamilyClaude Family = "claude"
	FamilyCodex  Family = "codex"
	FamilyGemini Family = "gemini"
)

// SurfaceKind describes where a family's activation backend writes.
type SurfaceKind string

const (
	SurfaceEnvStore SurfaceKind = "env_store"
	SurfaceJSONFile SurfaceKind = "json_file"
)

// ProfileRecord is the persisted unit: one named credential/endpoint pair
// for a tool family. The secret is opaque and must never appear in log
// output or error messages; an empty endpoint means "use the tool default".
type ProfileRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Family   Family `json:"family"`
	Secret   string `json:"secret"`
	Endpoint string `json:"endpoint,omitempty"`
	Active   bool   `json:"active"`
}

// FamilyMeta describes one tool family: the presentation labels, the
// tool-specific keys its surface uses, and where that surface lives.
// FilePath is relative to the user home directory and only set for
// file-backed surfaces.
type FamilyMeta struct {
	Family        Family      `json:"family"`
	Title         string      `json:"title"`
	Surface       SurfaceKind `json:"surface"`
	SecretKey     string      `json:"secret_key"`
	EndpointKey   string      `json:"endpoint_key"`
	SecretLabel   string      `json:"secret_label"`
	EndpointLabel string      `json:"endpoint_label"`
	FilePath      string      `json:"file_path,omitempty"`
}

// familyTable is the single source of truth for family dispatch. The
// presentation layer renders per-family labels from it instead of
// carrying its own switch statements.
var familyTable = []FamilyMeta{
	{
		Family:        FamilyClaude,
		Title:         "Claude Code",
		Surface:       SurfaceEnvStore,
		SecretKey:     "ANTHROPIC_AUTH_TOKEN",
		EndpointKey:   "ANTHROPIC_BASE_URL",
		SecretLabel:   "Auth Token",
		EndpointLabel: "Base URL",
	},
	{
		Family:        FamilyCodex,
		Title:         "Codex CLI",
		Surface:       SurfaceJSONFile,
		SecretKey:     "OPENAI_API_KEY",
		EndpointKey:   "OPENAI_BASE_URL",
		SecretLabel:   "API Key",
		EndpointLabel: "Base URL",
		FilePath:      ".codex/auth.json",
	},
	{
		Family:        FamilyGemini,
		Title:         "Gemini CLI",
		Surface:       SurfaceJSONFile,
		SecretKey:     "GEMINI_API_KEY",
		EndpointKey:   "GOOGLE_GEMINI_BASE_URL",
		SecretLabel:   "API Key",
		EndpointLabel: "Base URL",
		FilePath:      ".gemini/auth.json",
	},
}

// Families returns metadata for every known family in display order.
func Families() []FamilyMeta {
	out := make([]FamilyMeta, len(familyTable))
	copy(out, familyTable)
	return out
}

// LookupFamily returns the metadata for a family.
func LookupFamily(f Family) (FamilyMeta, bool) {
	for _, meta := range familyTable {
		if meta.Family == f {
			return meta, true
		}
	}
	return FamilyMeta{}, false
}

// ParseFamily converts a user-supplied family name into a Family,
// failing with ErrValidation on unknown input.
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if _, ok := LookupFamily(f); !ok {
		return "", &ValidationError{Field: "family", Reason: "unknown family: " + s}
	}
	return f, nil
}
