package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealBroken is returned when a sealed object fails authentication
var ErrSealBroken = errors.New("sealed object could not be opened")

// SealedStorage encrypts objects with NaCl secretbox before handing them to
// the wrapped storage. Stored layout is nonce || box.
type SealedStorage struct {
	inner Storage
	key   [32]byte
}

// NewSealedStorage derives a box key from passphrase and wraps inner
func NewSealedStorage(inner Storage, passphrase string) (*SealedStorage, error) {
	if passphrase == "" {
		return nil, errors.New("sealed storage requires a passphrase")
	}

	s := &SealedStorage{inner: inner}
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("coldsend sealed storage v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return s, nil
}

// Put seals data and stores it
func (s *SealedStorage) Put(ctx context.Context, key string, data io.Reader) error {
	plain, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)
	return s.inner.Put(ctx, key, bytes.NewReader(sealed))
}

// Get loads and opens a sealed object
func (s *SealedStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	sealed, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read sealed object: %w", err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrSealBroken
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealBroken
	}
	return io.NopCloser(bytes.NewReader(plain)), nil
}

// Delete removes the sealed object
func (s *SealedStorage) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
