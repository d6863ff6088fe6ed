// Package cryptox seals cached blobs at rest on the client. Keys are derived
// from a passphrase with argon2id; values are sealed with AES-256-GCM and
// stored as nonce||ciphertext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the random salt fed to argon2id.
const SaltSize = 16

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Sealer turns plaintext into an opaque value and back.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// DeriveKey stretches a passphrase into a 32-byte key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// AESSealer is a Sealer over AES-GCM.
type AESSealer struct {
	aead cipher.AEAD
}

// NewAESSealer builds a sealer for a 16, 24 or 32 byte key.
func NewAESSealer(key []byte) (*AESSealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &AESSealer{aead: aead}, nil
}

// NewPassphraseSealer derives the key from passphrase and salt. The derived
// key is wiped once the cipher is built.
func NewPassphraseSealer(passphrase, salt []byte) (*AESSealer, error) {
	key := DeriveKey(passphrase, salt)
	defer Wipe(key)
	return NewAESSealer(key)
}

// Wipe overwrites b with zeros. It is meant for passphrases and keys that
// should not linger in memory. A nil slice is ignored.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (s *AESSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *AESSealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], nil)
}
