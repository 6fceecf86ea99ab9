package session

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealMagic = "AAS1"
	saltSize  = 16
)

var errNotSealed = errors.New("file is not sealed")

// Sealer encrypts the cookie file under a key derived from a passphrase
// (Argon2id, XChaCha20-Poly1305).
type Sealer struct {
	passphrase []byte
	time       uint32
	memory     uint32
	threads    uint8
}

// NewSealer creates a Sealer for passphrase
func NewSealer(passphrase string) *Sealer {
	return &Sealer{
		passphrase: []byte(passphrase),
		time:       1,
		memory:     64 * 1024,
		threads:    4,
	}
}

func (s *Sealer) key(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, s.time, s.memory, s.threads, chacha20poly1305.KeySize)
}

// Seal encrypts plain. Output layout: magic | salt | nonce | ciphertext.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+len(salt)+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, []byte(sealMagic)), nil
}

// Open decrypts data produced by Seal. A wrong passphrase or a modified file fails authentication.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return nil, errNotSealed
	}
	rest := data[len(sealMagic):]
	if len(rest) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, errors.New("sealed file is truncated")
	}
	salt := rest[:saltSize]
	nonce := rest[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	ciphertext := rest[saltSize+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(sealMagic))
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed session: %w", err)
	}
	return plain, nil
}

// IsSealed reports whether data starts with the sealed-file header
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(sealMagic))
}
