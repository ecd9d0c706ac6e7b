// service.go implements the credshift API service layer, the business
// logic surface shared by the RPC handler and the CLI. Profile secrets
// never leave the process through this layer: responses carry a
// redacted reference and a short hint instead of the value.
package rpcapi

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/drift"
	"github.com/credshift/credshift/internal/engine"
	"github.com/credshift/credshift/internal/logging"
)

// Service is the unified API service backed by the engine.
type Service struct {
	engine *engine.Engine
	logger zerolog.Logger
}

// NewService creates an API service backed by the given engine.
func NewService(eng *engine.Engine) *Service {
	return &Service{
		engine: eng,
		logger: eng.Logger,
	}
}

// ProfileInfo is a transport-safe profile representation.
type ProfileInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Family     string `json:"family"`
	SecretRef  string `json:"secret_ref"`
	SecretHint string `json:"secret_hint"`
	Endpoint   string `json:"endpoint,omitempty"`
	Active     bool   `json:"active"`
}

// secretHint masks a secret down to its first and last four characters.
func secretHint(secret string) string {
	if len(secret) <= 8 {
		return "..."
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func profileToInfo(rec core.ProfileRecord) ProfileInfo {
	return ProfileInfo{
		ID:         rec.ID,
		Name:       rec.Name,
		Family:     string(rec.Family),
		SecretRef:  logging.RedactValue(rec.Secret),
		SecretHint: secretHint(rec.Secret),
		Endpoint:   rec.Endpoint,
		Active:     rec.Active,
	}
}

// --- Profile operations ---

func (s *Service) ListProfiles() []ProfileInfo {
	recs := s.engine.List()
	result := make([]ProfileInfo, 0, len(recs))
	for _, rec := range recs {
		result = append(result, profileToInfo(rec))
	}
	return result
}

func (s *Service) GetProfile(id string) (*ProfileInfo, error) {
	rec, err := s.engine.Get(id)
	if err != nil {
		return nil, err
	}
	info := profileToInfo(rec)
	return &info, nil
}

// AddParams holds the fields for a new profile.
type AddParams struct {
	Name     string `json:"name"`
	Family   string `json:"family"`
	Secret   string `json:"secret"`
	Endpoint string `json:"endpoint,omitempty"`
}

func (s *Service) AddProfile(p AddParams) (*ProfileInfo, error) {
	family, err := core.ParseFamily(p.Family)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.Add(engine.AddInput{
		Name:     p.Name,
		Family:   family,
		Secret:   p.Secret,
		Endpoint: p.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	info := profileToInfo(rec)
	return &info, nil
}

// UpdateParams holds a profile update. A nil Secret keeps the stored
// secret.
type UpdateParams struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Secret   *string `json:"secret,omitempty"`
	Endpoint string  `json:"endpoint,omitempty"`
}

func (s *Service) UpdateProfile(p UpdateParams) (*ProfileInfo, error) {
	rec, err := s.engine.Update(engine.UpdateInput{
		ID:       p.ID,
		Name:     p.Name,
		Secret:   p.Secret,
		Endpoint: p.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	info := profileToInfo(rec)
	return &info, nil
}

func (s *Service) DeleteProfile(id string) error {
	return s.engine.Delete(id)
}

func (s *Service) ActivateProfile(id string) (*ProfileInfo, error) {
	rec, err := s.engine.Activate(id)
	if err != nil {
		return nil, err
	}
	info := profileToInfo(rec)
	return &info, nil
}

func (s *Service) DeactivateFamily(family string) error {
	f, err := core.ParseFamily(family)
	if err != nil {
		return err
	}
	return s.engine.Deactivate(f)
}

// ActiveProfiles returns the active profile of one family, or of every
// family when family is empty. Families with nothing active contribute
// no entry.
func (s *Service) ActiveProfiles(family string) ([]ProfileInfo, error) {
	var families []core.Family
	if family != "" {
		f, err := core.ParseFamily(family)
		if err != nil {
			return nil, err
		}
		families = []core.Family{f}
	} else {
		for _, meta := range core.Families() {
			families = append(families, meta.Family)
		}
	}

	result := make([]ProfileInfo, 0, len(families))
	for _, f := range families {
		if rec, ok := s.engine.Active(f); ok {
			result = append(result, profileToInfo(rec))
		}
	}
	return result, nil
}

// --- Family operations ---

// FamilyInfo describes one tool family and its activation state.
type FamilyInfo struct {
	Family            string `json:"family"`
	Title             string `json:"title"`
	Surface           string `json:"surface"`
	SecretKey         string `json:"secret_key"`
	EndpointKey       string `json:"endpoint_key"`
	FilePath          string `json:"file_path,omitempty"`
	Profiles          int    `json:"profiles"`
	ActiveProfileID   string `json:"active_profile_id,omitempty"`
	ActiveProfileName string `json:"active_profile_name,omitempty"`
}

func (s *Service) ListFamilies() []FamilyInfo {
	counts := make(map[core.Family]int)
	for _, rec := range s.engine.List() {
		counts[rec.Family]++
	}

	metas := core.Families()
	result := make([]FamilyInfo, 0, len(metas))
	for _, meta := range metas {
		info := FamilyInfo{
			Family:      string(meta.Family),
			Title:       meta.Title,
			Surface:     string(meta.Surface),
			SecretKey:   meta.SecretKey,
			EndpointKey: meta.EndpointKey,
			FilePath:    meta.FilePath,
			Profiles:    counts[meta.Family],
		}
		if rec, ok := s.engine.Active(meta.Family); ok {
			info.ActiveProfileID = rec.ID
			info.ActiveProfileName = rec.Name
		}
		result = append(result, info)
	}
	return result
}

// --- Merge operations ---

// MergeParams selects a profile per family for the combined config.
type MergeParams struct {
	Selection map[string]string `json:"selection"`
}

// MergeResult reports where the combined config was written.
type MergeResult struct {
	Path string `json:"path"`
}

func (s *Service) ApplyMerge(p MergeParams) (*MergeResult, error) {
	selection := make(map[core.Family]string, len(p.Selection))
	for name, id := range p.Selection {
		family, err := core.ParseFamily(name)
		if err != nil {
			return nil, &core.ValidationError{Field: "selection", Reason: fmt.Sprintf("unknown family: %s", name)}
		}
		selection[family] = id
	}

	path, err := s.engine.ApplyMerged(selection)
	if err != nil {
		return nil, err
	}
	return &MergeResult{Path: path}, nil
}

// --- Drift operations ---

func (s *Service) CheckDrift() []drift.Finding {
	return s.engine.CheckDrift()
}

// --- Audit operations ---

func (s *Service) VerifyAuditChain() (bool, int, error) {
	return s.engine.VerifyAudit()
}
