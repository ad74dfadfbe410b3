package session

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var b64 = base64.RawURLEncoding

// ErrSealedToken is returned when a stored token cannot be opened with the current key.
var ErrSealedToken = errors.New("sealed token cannot be opened")

// SealedStore encrypts tokens before handing them to the wrapped store.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealedStore derives an XChaCha20-Poly1305 key from secret with HKDF.
func NewSealedStore(inner Store, secret string) (*SealedStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("session key is required")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("mobcash-session-tokens"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

// Load opens the tokens held by the wrapped store.
func (s *SealedStore) Load(ctx context.Context) (Tokens, error) {
	sealed, err := s.inner.Load(ctx)
	if err != nil {
		return Tokens{}, err
	}
	access, err := s.open(sealed.AccessToken, "access")
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := s.open(sealed.RefreshToken, "refresh")
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Save seals both tokens.
func (s *SealedStore) Save(ctx context.Context, tokens Tokens) error {
	access, err := s.seal(tokens.AccessToken, "access")
	if err != nil {
		return err
	}
	refresh, err := s.seal(tokens.RefreshToken, "refresh")
	if err != nil {
		return err
	}
	return s.inner.Save(ctx, Tokens{AccessToken: access, RefreshToken: refresh})
}

// Clear delegates to the wrapped store.
func (s *SealedStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

func (s *SealedStore) seal(plain, field string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("seal %s token: %w", field, err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plain), []byte(field))
	return b64.EncodeToString(out), nil
}

func (s *SealedStore) open(sealed, field string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := b64.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrSealedToken
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(field))
	if err != nil {
		return "", ErrSealedToken
	}
	return string(plain), nil
}
