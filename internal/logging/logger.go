// Package logging provides structured logging with automatic secret redaction.
package logging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Known secret field names that must be redacted in all log output.
var secretFieldNames = []string{
	"secret",
	"token",
	"password",
	"api_key",
	"apikey",
	"auth_token",
	"authtoken",
	"credentials",
	"secret_key",
	"secretkey",
	"access_token",
	"accesstoken",
}

// RedactingWriter wraps an io.Writer and masks registered secret values
// in everything written through it. Values are registered as profiles
// are loaded or created, so a secret that leaks into a message or error
// string still comes out as its hash reference.
type RedactingWriter struct {
	mu      sync.RWMutex
	inner   io.Writer
	secrets [][]byte
}

// NewRedactingWriter creates a writer that redacts registered secret
// values from log output.
func NewRedactingWriter(inner io.Writer) *RedactingWriter {
	return &RedactingWriter{inner: inner}
}

// Protect registers secret values to be masked in all subsequent output.
// Empty values are ignored.
func (rw *RedactingWriter) Protect(values ...string) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	for _, v := range values {
		if v == "" {
			continue
		}
		rw.secrets = append(rw.secrets, []byte(v))
	}
}

func (rw *RedactingWriter) Write(p []byte) (n int, err error) {
	rw.mu.RLock()
	secrets := rw.secrets
	rw.mu.RUnlock()

	out := p
	for _, s := range secrets {
		if bytes.Contains(out, s) {
			out = bytes.ReplaceAll(out, s, []byte(RedactValue(string(s))))
		}
	}

	if _, err := rw.inner.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// NewLogger creates a console logger whose output runs through a
// RedactingWriter. The writer is returned so callers can register
// profile secrets as they are loaded.
func NewLogger(level string) (zerolog.Logger, *RedactingWriter) {
	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return newLogger(&writer, level)
}

// NewJSONLogger creates a JSON-formatted logger for file output or
// machine consumption, with the same redaction wrapper.
func NewJSONLogger(w io.Writer, level string) (zerolog.Logger, *RedactingWriter) {
	return newLogger(w, level)
}

func newLogger(w io.Writer, level string) (zerolog.Logger, *RedactingWriter) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	rw := NewRedactingWriter(w)
	logger := zerolog.New(rw).
		Level(lvl).
		With().
		Timestamp().
		Str("component", "credshift").
		Logger()

	return logger, rw
}

// IsSecretField checks if a field name is a known secret field that should be redacted.
func IsSecretField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, secret := range secretFieldNames {
		if strings.Contains(lower, secret) {
			return true
		}
	}
	return false
}

// RedactValue replaces a secret value with a safe placeholder containing a hash prefix.
func RedactValue(value string) string {
	if value == "" {
		return ""
	}
	h := sha256.Sum256([]byte(value))
	return "[REDACTED:sha256:" + hex.EncodeToString(h[:])[:8] + "]"
}
