package backend

import (
	"github.com/credshift/credshift/internal/core"
	"github.com/credshift/credshift/internal/envstore"
)

const envSurface = "user environment store"

// envBackend projects a profile into the persistent user environment
// store as two variables, the secret and an optional endpoint.
type envBackend struct {
	meta core.FamilyMeta
	env  envstore.Store
}

func (b *envBackend) Family() core.Family {
	return b.meta.Family
}

// Apply writes both variables, then broadcasts once so running shells
// learn about the change. If the endpoint write fails after the secret
// went in, the secret entry is restored to its previous value so the
// surface is not left half-updated.
func (b *envBackend) Apply(rec core.ProfileRecord) error {
	prevSecret, hadSecret, err := b.env.Get(b.meta.SecretKey)
	if err != nil {
		return classify(b.meta.Family, envSurface, err)
	}

	if err := b.env.Set(b.meta.SecretKey, rec.Secret); err != nil {
		return classify(b.meta.Family, envSurface, err)
	}

	if rec.Endpoint == "" {
		err = b.env.Delete(b.meta.EndpointKey)
	} else {
		err = b.env.Set(b.meta.EndpointKey, rec.Endpoint)
	}
	if err != nil {
		if hadSecret {
			b.env.Set(b.meta.SecretKey, prevSecret)
		} else {
			b.env.Delete(b.meta.SecretKey)
		}
		return classify(b.meta.Family, envSurface, err)
	}

	if err := b.env.Broadcast(); err != nil {
		return classify(b.meta.Family, envSurface, err)
	}
	return nil
}

// Clear deletes both variables. Only Apply broadcasts; a clear leaves
// running applications untouched.
func (b *envBackend) Clear() error {
	if err := b.env.Delete(b.meta.SecretKey); err != nil {
		return classify(b.meta.Family, envSurface, err)
	}
	if err := b.env.Delete(b.meta.EndpointKey); err != nil {
		return classify(b.meta.Family, envSurface, err)
	}
	return nil
}

func (b *envBackend) Inspect() (Snapshot, error) {
	secret, hasSecret, err := b.env.Get(b.meta.SecretKey)
	if err != nil {
		return Snapshot{}, classify(b.meta.Family, envSurface, err)
	}
	endpoint, _, err := b.env.Get(b.meta.EndpointKey)
	if err != nil {
		return Snapshot{}, classify(b.meta.Family, envSurface, err)
	}
	return Snapshot{Present: hasSecret, Secret: secret, Endpoint: endpoint}, nil
}

func (b *envBackend) Paths() []string {
	return nil
}
