// Package credential keeps the dashboard's access token in the system
// keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const (
	serviceName = "docflow"

	// TokenKey is the keyring entry holding the access token.
	TokenKey = "access-token"

	// TokenEnv overrides the stored token when set.
	TokenEnv = "DOCFLOW_TOKEN"
)

// ErrNoToken is returned when no token has been stored.
var ErrNoToken = errors.New("no access token stored; run docflow login")

// Store reads and writes the access token.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the platform keyring, falling back to
// an encrypted file under dir.
func Open(dir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("docflow-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// NewStore wraps an existing keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// SaveToken stores token, replacing any previous one.
func (s *Store) SaveToken(token string) error {
	if err := s.ring.Set(keyring.Item{Key: TokenKey, Data: []byte(token), Label: "DocFlow access token"}); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	return nil
}

// Token returns the stored token, or ErrNoToken.
func (s *Store) Token() (string, error) {
	item, err := s.ring.Get(TokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading access token: %w", err)
	}
	return string(item.Data), nil
}

// DeleteToken removes the stored token. Deleting a missing token is not
// an error.
func (s *Store) DeleteToken() error {
	if err := s.ring.Remove(TokenKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting access token: %w", err)
	}
	return nil
}

// ResolveToken prefers the DOCFLOW_TOKEN environment variable and falls
// back to the stored token.
func (s *Store) ResolveToken() (string, error) {
	if tok := os.Getenv(TokenEnv); tok != "" {
		return tok, nil
	}
	return s.Token()
}
