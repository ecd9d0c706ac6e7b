// errors.go defines the error taxonomy for profile operations. Callers
// match categories with errors.Is against the sentinels or pull details
// out of the typed errors with errors.As.
package core

import (
	"errors"
	"fmt"
)

// Category sentinels. The typed errors below report themselves as these
// through errors.Is.
var (
	ErrNotFound   = errors.New("profile not found")
	ErrValidation = errors.New("invalid input")
)

// NotFoundError reports an unknown profile id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile not found: %s", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// BackendKind classifies failures writing or clearing a real
// configuration surface.
type BackendKind string

const (
	BackendPermission  BackendKind = "permission"
	BackendIO          BackendKind = "io"
	BackendEncoding    BackendKind = "encoding"
	BackendUnsupported BackendKind = "unsupported"
)

// BackendError reports a failure against a family's real configuration
// surface. Surface names the target (a file path or the environment
// store), never a credential value.
type BackendError struct {
	Family  Family
	Kind    BackendKind
	Surface string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend (%s): %s: %v", e.Family, e.Surface, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// StorageError reports a failure persisting or loading a managed
// document: the profile collection file or the merged output file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
