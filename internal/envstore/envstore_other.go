//go:build !windows

package envstore

// unsupportedStore is the fallback for platforms without a persistent
// user environment surface. Every operation fails with ErrUnsupported;
// callers surface that as a backend error for the affected family.
type unsupportedStore struct{}

// OpenUser returns the current user's persistent environment store.
func OpenUser() Store {
	return unsupportedStore{}
}

func (unsupportedStore) Get(name string) (string, bool, error) {
	return "", false, ErrUnsupported
}

func (unsupportedStore) Set(name, value string) error {
	return ErrUnsupported
}

func (unsupportedStore) Delete(name string) error {
	return ErrUnsupported
}

func (unsupportedStore) Broadcast() error {
	return ErrUnsupported
}
