package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/credshift/credshift/internal/config"
	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/drift"
	"github.com/credshift/credshift/internal/engine"
	"github.com/credshift/credshift/internal/logging"
)

// loadEngine opens the engine against the configured data directory.
func loadEngine() (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, redactor := logging.NewLogger(cfg.LogLevel)

	eng, err := engine.Open(engine.Options{
		DataDir:  cfg.DataDir,
		Logger:   logger,
		Redactor: redactor,
	})
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	return eng, nil
}

// resolveProfile accepts a full id, an id prefix, or a profile name.
func resolveProfile(eng *engine.Engine, ref string) (core.ProfileRecord, error) {
	if rec, err := eng.Get(ref); err == nil {
		return rec, nil
	}

	var matches []core.ProfileRecord
	for _, rec := range eng.List() {
		if strings.HasPrefix(rec.ID, ref) || rec.Name == ref {
			matches = append(matches, rec)
		}
	}

	switch len(matches) {
	case 0:
		return core.ProfileRecord{}, &core.NotFoundError{ID: ref}
	case 1:
		return matches[0], nil
	default:
		return core.ProfileRecord{}, fmt.Errorf("%q matches %d profiles; use a longer id prefix", ref, len(matches))
	}
}

// promptSecret reads a secret from the terminal without echoing it.
func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label+": ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	fmt.Fprintln(os.Stderr)
	return string(raw), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// maskSecret keeps the edges of a secret for recognition without
// exposing it.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "..."
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func activeMarker(active bool) string {
	if active {
		return color.GreenString("*")
	}
	return ""
}

// stateColor renders a drift state by severity.
func stateColor(state drift.State) string {
	switch state {
	case drift.StateInSync, drift.StateClear:
		return color.GreenString(string(state))
	case drift.StateMissing, drift.StateOrphaned:
		return color.YellowString(string(state))
	default:
		return color.RedString(string(state))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
