package clientstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the length of a sealing key in bytes.
const KeySize = 32

const nonceSize = 24

// ErrUnseal is reported when a sealed value cannot be opened with the current key.
var ErrUnseal = errors.New("sealed value cannot be opened")

// SealedStore wraps a Store and encrypts selected keys at rest with NaCl secretbox.
// Values that fail to open are dropped from Get results, so a rotated key reads as absent state.
type SealedStore struct {
	inner  Store
	key    [KeySize]byte
	sealed map[string]bool
}

// NewSealedStore seals the listed keys before they reach inner.
// PRE: key is KeySize bytes
func NewSealedStore(inner Store, key []byte, sealedKeys ...string) (*SealedStore, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(key))
	}
	s := &SealedStore{inner: inner, sealed: make(map[string]bool, len(sealedKeys))}
	copy(s.key[:], key)
	for _, k := range sealedKeys {
		s.sealed[k] = true
	}
	return s, nil
}

// Get reads through inner and opens sealed values.
// POST: sealed values that do not open are omitted
func (s *SealedStore) Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error) {
	raw, err := s.inner.Get(ctx, clientID, keys...)
	if err != nil {
		return nil, err
	}
	for k, v := range raw {
		if !s.sealed[k] {
			continue
		}
		plain, err := s.open(v)
		if err != nil {
			delete(raw, k)
			continue
		}
		raw[k] = plain
	}
	return raw, nil
}

// SetMany seals the configured keys and writes everything through inner.
func (s *SealedStore) SetMany(ctx context.Context, clientID string, values map[string]string) error {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if !s.sealed[k] {
			out[k] = v
			continue
		}
		sealed, err := s.seal(v)
		if err != nil {
			return err
		}
		out[k] = sealed
	}
	return s.inner.SetMany(ctx, clientID, out)
}

// Delete passes through to inner.
func (s *SealedStore) Delete(ctx context.Context, clientID string, keys ...string) error {
	return s.inner.Delete(ctx, clientID, keys...)
}

func (s *SealedStore) seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *SealedStore) open(encoded string) (string, error) {
	box, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}
