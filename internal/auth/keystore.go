package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/practicehub/ledger/internal/domain"
)

// KeyStore resolves an API key to an identity.
type KeyStore interface {
	Resolve(ctx context.Context, rawKey string) (Identity, error)
}

// StaticKeyStore holds keys configured at startup. Keys are kept hashed.
type StaticKeyStore struct {
	keys map[[32]byte]Identity
}

// NewStaticKeyStore creates an empty in-memory key store.
func NewStaticKeyStore() *StaticKeyStore {
	return &StaticKeyStore{keys: make(map[[32]byte]Identity)}
}

func (s *StaticKeyStore) Add(rawKey string, id Identity) {
	s.keys[sha256.Sum256([]byte(rawKey))] = id
}

func (s *StaticKeyStore) Resolve(_ context.Context, rawKey string) (Identity, error) {
	want := sha256.Sum256([]byte(rawKey))
	for hash, id := range s.keys {
		if subtle.ConstantTimeCompare(hash[:], want[:]) == 1 {
			return id, nil
		}
	}
	return Identity{}, fmt.Errorf("invalid API key: %w", domain.ErrAuth)
}
