// Package auth guards the ask endpoint with static API keys.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
)

// Identity names the client a key was issued to.
type Identity struct {
	Client string
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys []staticKey
}

type staticKey struct {
	key      []byte
	identity Identity
}

// NewStaticAPIKeyValidator parses comma-separated key:client entries.
func NewStaticAPIKeyValidator(entries string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{}
	seen := map[string]bool{}
	entries = strings.TrimSpace(entries)
	if entries == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(entries, ",") {
		key, client, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:client", entry)
		}
		key = strings.TrimSpace(key)
		client = strings.TrimSpace(client)
		if key == "" || client == "" || strings.Contains(client, ":") {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:client", entry)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate static key entry for client %q", client)
		}
		seen[key] = true
		validator.keys = append(validator.keys, staticKey{key: []byte(key), identity: Identity{Client: client}})
	}

	return validator, nil
}

// Validate compares apiKey against every configured key in constant time.
func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	candidate := []byte(apiKey)
	var (
		found   Identity
		matched bool
	)
	for _, entry := range v.keys {
		if subtle.ConstantTimeCompare(entry.key, candidate) == 1 {
			found = entry.identity
			matched = true
		}
	}
	return found, matched
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}
