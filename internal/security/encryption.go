package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

const (
	// PBKDF2 iterations for key derivation
	pbkdf2Iterations = 10000

	// AES-256 requires 32 byte key
	aes256KeySize = 32

	// StoreKeySize is the ChaCha20-Poly1305 key size used for settings values
	StoreKeySize = chacha20poly1305.KeySize
)

// sealSecret is mixed with the machine ID to derive the key that seals
// the store key file. It only binds the file to this machine; it is not a
// secret in any stronger sense.
const sealSecret = "tgconfig-store-key-seal/v1"

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidKey        = errors.New("invalid encryption key")
)

// MachineSealer encrypts small blobs with AES-256-GCM under a key derived
// from the machine ID. It seals the store key at rest.
type MachineSealer struct {
	machineID string
	key       []byte
}

// NewMachineSealer derives the sealing key from the machine ID
func NewMachineSealer(machineID string) (*MachineSealer, error) {
	if machineID == "" {
		return nil, errors.New("machine ID cannot be empty")
	}

	key := pbkdf2.Key(
		[]byte(sealSecret),
		[]byte(machineID),
		pbkdf2Iterations,
		aes256KeySize,
		sha3.New256,
	)

	return &MachineSealer{
		machineID: machineID,
		key:       key,
	}, nil
}

// Encrypt encrypts data using AES-256-GCM
// Returns base64-encoded nonce||ciphertext
func (ms *MachineSealer) Encrypt(plaintext []byte) (string, error) {
	gcm, err := ms.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64-encoded ciphertext produced by Encrypt
func (ms *MachineSealer) Decrypt(ciphertextB64 string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	gcm, err := ms.aead()
	if err != nil {
		return nil, err
	}

	return open(gcm, ciphertext)
}

func (ms *MachineSealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(ms.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// ValueCipher encrypts settings values with ChaCha20-Poly1305 under the
// store key
type ValueCipher struct {
	aead cipher.AEAD
}

// NewValueCipher creates a value cipher; storeKey must be StoreKeySize bytes
func NewValueCipher(storeKey []byte) (*ValueCipher, error) {
	if len(storeKey) != StoreKeySize {
		return nil, fmt.Errorf("%w: store key must be %d bytes", ErrInvalidKey, StoreKeySize)
	}

	aead, err := chacha20poly1305.New(storeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create chacha20poly1305: %w", err)
	}

	return &ValueCipher{aead: aead}, nil
}

// Encrypt returns base64-encoded nonce||ciphertext
func (vc *ValueCipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, vc.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := vc.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64-encoded ciphertext produced by Encrypt
func (vc *ValueCipher) Decrypt(ciphertextB64 string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	return open(vc.aead, ciphertext)
}

// open splits nonce||ciphertext and authenticates it
func open(aead cipher.AEAD, data []byte) ([]byte, error) {
	nonceSize := aead.NonceSize()
	if len(data) < nonceSize+aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	return plaintext, nil
}

// GenerateStoreKey generates a new random 256-bit store key
func GenerateStoreKey() ([]byte, error) {
	key := make([]byte, StoreKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate store key: %w", err)
	}
	return key, nil
}

// StoreKeyToBase64 converts a store key to base64
func StoreKeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// StoreKeyFromBase64 converts a base64 string back to store key bytes
func StoreKeyFromBase64(keyB64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode store key: %w", err)
	}

	if len(key) != StoreKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, StoreKeySize, len(key))
	}

	return key, nil
}
