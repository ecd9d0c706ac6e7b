// Package envstore abstracts the persistent per-user environment
// variable store. On Windows this is the user's Environment registry
// hive; other platforms have no equivalent surface and report
// ErrUnsupported. The engine takes the store as an injected handle so
// activation logic can run against an in-memory fake in tests.
package envstore

import "errors"

// ErrUnsupported is returned on platforms without a persistent user
// environment store.
var ErrUnsupported = errors.New("persistent environment store not supported on this platform")

// Store reads and writes persistent user environment variables.
type Store interface {
	// Get returns the variable's value and whether it exists.
	Get(name string) (string, bool, error)

	// Set writes the variable, creating it if needed.
	Set(name, value string) error

	// Delete removes the variable. Deleting a missing variable is not
	// an error.
	Delete(name string) error

	// Broadcast tells running applications that the environment
	// changed, so new shells pick the values up without a relogin.
	Broadcast() error
}
