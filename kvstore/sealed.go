package kvstore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltKey   = "_seal_salt"
	saltLen   = 16
	nonceLen  = 24
	keyLen    = 32
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	sealedTag = "sb1:"
)

var _ Store = (*SealedStore)(nil)

// SealedStore encrypts values with NaCl secretbox before handing them to the
// underlying store. The key is derived from a passphrase with scrypt and a
// per-store random salt kept alongside the data.
type SealedStore struct {
	inner Store
	key   [keyLen]byte
}

// Sealed wraps inner so every value is encrypted at rest.
func Sealed(inner Store, passphrase string) (*SealedStore, error) {
	salt, err := loadOrCreateSalt(inner)
	if err != nil {
		return nil, err
	}
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive store key: %w", err)
	}
	s := &SealedStore{inner: inner}
	copy(s.key[:], derived)
	return s, nil
}

func loadOrCreateSalt(inner Store) ([]byte, error) {
	encoded, ok, err := inner.Get(saltKey)
	if err != nil {
		return nil, fmt.Errorf("read store salt: %w", err)
	}
	if ok {
		salt, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode store salt: %w", err)
		}
		return salt, nil
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate store salt: %w", err)
	}
	if err := inner.Set(saltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("write store salt: %w", err)
	}
	return salt, nil
}

func (s *SealedStore) Get(key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}
	if len(raw) < len(sealedTag) || raw[:len(sealedTag)] != sealedTag {
		return "", false, fmt.Errorf("value for %q is not sealed", key)
	}
	box, err := base64.StdEncoding.DecodeString(raw[len(sealedTag):])
	if err != nil || len(box) < nonceLen {
		return "", false, fmt.Errorf("value for %q is corrupt", key)
	}
	var nonce [nonceLen]byte
	copy(nonce[:], box[:nonceLen])
	plain, ok := secretbox.Open(nil, box[nonceLen:], &nonce, &s.key)
	if !ok {
		return "", false, fmt.Errorf("value for %q could not be opened", key)
	}
	return string(plain), true, nil
}

func (s *SealedStore) Set(key, value string) error {
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.inner.Set(key, sealedTag+base64.StdEncoding.EncodeToString(box))
}

func (s *SealedStore) Delete(keys ...string) error {
	return s.inner.Delete(keys...)
}
