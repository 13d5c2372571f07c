package storage

import (
	"context"
	"errors"
)

// Keys written by the console. Everything a visitor's browser would keep in
// local storage lives under these names in the visitor's namespace.
const (
	KeyToken              = "jwtToken"
	KeyRole               = "authorized_role"
	KeyUsername           = "authorized_username"
	KeyUser               = "authorized_user"
	KeyUniversityID       = "authorized_university_id"
	KeySelectedUniversity = "selectedUniversityId"
	KeyCustomLogo         = "customLogo"

	// Older builds wrote the session under these names. They are only read
	// to migrate a stored session onto the canonical keys.
	LegacyKeyToken = "authToken"
	LegacyKeyRole  = "authRole"
)

var ErrNotFound = errors.New("key not found")

// Store is a flat string key/value namespace. A write is visible to every
// reader of the same namespace as soon as it returns.
type Store interface {
	// Get returns ErrNotFound when the key has no value.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove is a no-op for a missing key.
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Provider hands out one Store per visitor.
type Provider interface {
	Scope(id string) Store
	Close() error
}

// Lookup is Get with ErrNotFound folded into ok=false.
func Lookup(ctx context.Context, s Store, key string) (string, bool, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
