// Package uuid generates record identities.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a time-ordered UUIDv7 string suitable for primary keys and
// document ids. It falls back to a random v4 if the clock source fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// FromKey derives a stable id from an arbitrary key. The same key always maps
// to the same id, which lets stores detect a repeated insert.
func FromKey(key string) string {
	return googleuuid.NewSHA1(googleuuid.NameSpaceOID, []byte(key)).String()
}

// Parse validates and normalizes a UUID string
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
