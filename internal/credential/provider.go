package credential

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrMissing is returned when a provider has no credential configured.
var ErrMissing = errors.New("credential not configured")

// Provider supplies the bearer credential used by a client before it connects.
type Provider interface {
	Credential(ctx context.Context) (*Secret, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Secret, error)

// Credential implements Provider.
func (f ProviderFunc) Credential(ctx context.Context) (*Secret, error) {
	return f(ctx)
}

type staticProvider struct {
	secret *Secret
}

// Static returns a provider that always yields the given key.
func Static(key string) Provider {
	return &staticProvider{secret: NewSecret(strings.TrimSpace(key))}
}

func (p *staticProvider) Credential(context.Context) (*Secret, error) {
	if p.secret.IsEmpty() {
		return nil, ErrMissing
	}
	return p.secret, nil
}

// Env returns a provider reading the named environment variable on every call.
func Env(name string) Provider {
	return ProviderFunc(func(context.Context) (*Secret, error) {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return nil, ErrMissing
		}
		return NewSecret(value), nil
	})
}

// Resolve fetches a credential and rejects empty values.
func Resolve(ctx context.Context, p Provider) (*Secret, error) {
	if p == nil {
		return nil, ErrMissing
	}
	secret, err := p.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if secret.IsEmpty() {
		return nil, ErrMissing
	}
	return secret, nil
}
