package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreateStoreKey returns the settings store key kept at path.
// The file holds the key sealed with a MachineSealer for machineID; when it
// does not exist a new key is generated and written.
func LoadOrCreateStoreKey(path, machineID string) ([]byte, error) {
	sealer, err := NewMachineSealer(machineID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err == nil {
		plain, err := sealer.Decrypt(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to unseal store key %s: %w", path, err)
		}
		return StoreKeyFromBase64(string(plain))
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read store key: %w", err)
	}

	key, err := GenerateStoreKey()
	if err != nil {
		return nil, err
	}

	sealed, err := sealer.Encrypt([]byte(StoreKeyToBase64(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to seal store key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	// Write to temp file + rename for atomicity
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(sealed), 0600); err != nil {
		return nil, fmt.Errorf("failed to write temp key file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to rename key file: %w", err)
	}

	return key, nil
}
