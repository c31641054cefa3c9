package repository

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	sealedPrefix = "sealed:"
	saltSize     = 16
	nonceSize    = 24
	keySize      = 32
)

// Sealer encrypts individual secret values with a key derived from a passphrase.
type Sealer struct {
	secret []byte
}

// NewSealer returns nil when secret is empty, leaving values in clear text.
func NewSealer(secret string) *Sealer {
	if secret == "" {
		return nil
	}
	return &Sealer{secret: []byte(secret)}
}

// IsSealed reports whether v was produced by Seal.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}

// Seal encrypts plain. Empty values stay empty.
func (s *Sealer) Seal(plain string) (string, error) {
	if s == nil || plain == "" {
		return plain, nil
	}

	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", oops.With("context", "failed to generate salt").Wrap(err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", oops.With("context", "failed to generate nonce").Wrap(err)
	}
	key, err := s.key(salt[:])
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(plain), &nonce, key)

	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed value. Values without the sealed prefix are returned as is.
func (s *Sealer) Open(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	if s == nil {
		return "", oops.Errorf("sealed settings value found but no settings secret is configured")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, sealedPrefix))
	if err != nil {
		return "", oops.With("context", "failed to decode sealed value").Wrap(err)
	}
	if len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return "", oops.Errorf("sealed value is truncated")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])
	key, err := s.key(raw[:saltSize])
	if err != nil {
		return "", err
	}

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return "", oops.Errorf("failed to open sealed value: wrong settings secret or corrupted data")
	}
	return string(plain), nil
}

func (s *Sealer) key(salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key(s.secret, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, oops.With("context", "failed to derive key").Wrap(err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}
