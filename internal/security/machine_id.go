package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/professor93/tgconfig/pkg/constants"
)

const (
	registryPath = constants.RegistryBasePath // Windows only
	machineIDKey = "MachineID"
)

// idSource is one host property mixed into the machine ID
type idSource struct {
	name string
	read func() (string, error)
}

var (
	machineIDMu     sync.Mutex
	cachedMachineID string
)

// hostSources is swapped in tests
var hostSources = defaultHostSources

// GetMachineID returns a stable identifier for this host. The first call
// reads the persisted ID or derives one from host properties and persists
// it; later calls return the cached value. A failed save is logged
// through the global zap logger.
func GetMachineID() (string, error) {
	return machineID(zap.L())
}

// MachineIDForDir returns the machine ID pinned in dir. On first use the
// host ID is written there, so the ID, and anything sealed with it, stays
// readable after the hostname or network interfaces change, and when the
// system-wide location is not writable.
func MachineIDForDir(dir string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(dir, constants.MachineIDFileName)
	if id, err := readIDFile(path); err == nil && id != "" {
		return id, nil
	}

	id, err := machineID(logger)
	if err != nil {
		return "", err
	}

	if err := writeIDFile(path, id); err != nil {
		logger.Warn("Failed to pin machine ID in data directory; a host change will invalidate the store key",
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return id, nil
}

func machineID(logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	machineIDMu.Lock()
	defer machineIDMu.Unlock()

	if cachedMachineID != "" {
		return cachedMachineID, nil
	}

	if id, err := readStoredMachineID(); err == nil && id != "" {
		cachedMachineID = id
		return id, nil
	}

	id, err := generateMachineID(hostSources())
	if err != nil {
		return "", fmt.Errorf("failed to generate machine ID: %w", err)
	}

	if err := storeMachineID(id); err != nil {
		logger.Warn("Failed to persist machine ID system-wide", zap.Error(err))
	}

	cachedMachineID = id
	return id, nil
}

// defaultHostSources lists the platform sources followed by the portable ones
func defaultHostSources() []idSource {
	return append(platformSources(),
		idSource{name: "mac", read: primaryMACAddress},
		idSource{name: "hostname", read: os.Hostname},
	)
}

// generateMachineID hashes "name=value" for every source that answers.
// Sources that fail or return nothing are skipped.
func generateMachineID(sources []idSource) (string, error) {
	h := sha256.New()
	used := 0

	for _, src := range sources {
		value, err := src.read()
		value = strings.TrimSpace(value)
		if err != nil || value == "" {
			continue
		}
		fmt.Fprintf(h, "%s=%s\n", src.name, value)
		used++
	}

	if used == 0 {
		return "", fmt.Errorf("no host properties available")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func readIDFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// writeIDFile writes through a temp file and rename
func writeIDFile(path, id string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(id+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write machine ID file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename machine ID file: %w", err)
	}
	return nil
}

// primaryMACAddress returns the MAC of the first non-loopback interface that is up
func primaryMACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" {
			return mac, nil
		}
	}

	return "", fmt.Errorf("no valid network interface found")
}
