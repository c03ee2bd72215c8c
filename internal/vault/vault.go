package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the required symmetric key length (AES-256).
	KeySize = 32

	payloadVersion = "v1."
)

var (
	ErrKeyLength            = errors.New("vault: key must be exactly 32 bytes")
	ErrInvalidPayload       = errors.New("vault: invalid encrypted payload")
	ErrAuthenticationFailed = errors.New("vault: authentication failed")
)

// Vault encrypts provider credentials at rest with AES-256-GCM and produces
// a non-reversible fingerprint for lookup and audit correlation.
type Vault struct {
	key []byte
}

// New returns a Vault for the given 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}
	v := &Vault{key: make([]byte, KeySize)}
	copy(v.key, key)
	return v, nil
}

// NewFromHex decodes a 64-hex-char key and returns a Vault for it.
func NewFromHex(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("vault: decode hex key: %w", err)
	}
	return New(key)
}

// Encrypt seals plaintext into a versioned payload: "v1." + base64(nonce‖ciphertext‖tag).
func (v *Vault) Encrypt(plaintext []byte) (string, error) {
	gcm, err := v.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return payloadVersion + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt. A wrong version prefix or
// corrupted base64 fails with ErrInvalidPayload; a wrong key or tampered
// ciphertext fails with ErrAuthenticationFailed. Garbage is never returned.
func (v *Vault) Decrypt(payload string) ([]byte, error) {
	if !strings.HasPrefix(payload, payloadVersion) {
		return nil, ErrInvalidPayload
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, payloadVersion))
	if err != nil {
		return nil, ErrInvalidPayload
	}

	gcm, err := v.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrInvalidPayload
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Fingerprint returns a deterministic, one-way, fixed-length digest of the
// plaintext. It is used only for lookup and audit; it cannot be reversed.
func Fingerprint(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: create GCM: %w", err)
	}
	return gcm, nil
}
