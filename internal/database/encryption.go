package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	nonceSize     = 12
	keyIterations = 100000
	keyLength     = 32
)

// encryptor provides optional at-rest encryption of message text and
// sender names. When REEFOPS_ENABLE_ENCRYPTION is unset, every method is a
// pass-through.
type encryptor struct {
	gcm cipher.AEAD
}

func NewEncryptor() (*encryptor, error) {
	if os.Getenv("REEFOPS_ENABLE_ENCRYPTION") != "true" {
		return &encryptor{gcm: nil}, nil
	}

	key, err := deriveKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm}, nil
}

// EncryptIfEnabled encrypts plaintext when encryption is configured,
// otherwise returns it unchanged.
func (e *encryptor) EncryptIfEnabled(plaintext string) (string, error) {
	if plaintext == "" || e.gcm == nil {
		return plaintext, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

// DecryptIfEnabled reverses EncryptIfEnabled.
func (e *encryptor) DecryptIfEnabled(ciphertext string) (string, error) {
	if ciphertext == "" || e.gcm == nil {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, enc := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, enc, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

func deriveKey() ([]byte, error) {
	secret := os.Getenv("REEFOPS_ENCRYPTION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("REEFOPS_ENCRYPTION_SECRET environment variable is required when encryption is enabled")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("encryption secret must be at least 32 characters")
	}

	salt := []byte("reefops-message-store-v1")
	return pbkdf2.Key([]byte(secret), salt, keyIterations, keyLength, sha256.New), nil
}
