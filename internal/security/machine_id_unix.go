//go:build !windows

package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/professor93/tgconfig/pkg/constants"
)

// machineIDDir holds the persisted machine ID on non-Windows hosts
var machineIDDir = "/var/lib/tgconfig"

func readFirstFile(paths ...string) func() (string, error) {
	return func() (string, error) {
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err == nil && len(strings.TrimSpace(string(data))) > 0 {
				return string(data), nil
			}
		}
		return "", os.ErrNotExist
	}
}

// cpuInfo reads the CPU model and, on boards that expose it, the serial
func cpuInfo() (string, error) {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return "", err
	}

	var model, serial string
	for _, line := range strings.Split(string(data), "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(name) {
		case "model name":
			if model == "" {
				model = strings.TrimSpace(value)
			}
		case "Serial":
			serial = strings.TrimSpace(value)
		}
	}

	if model == "" {
		return "", fmt.Errorf("could not determine CPU info")
	}
	if serial != "" {
		return model + "|" + serial, nil
	}
	return model, nil
}

func platformSources() []idSource {
	return []idSource{
		{name: "machine_id", read: readFirstFile("/etc/machine-id", "/var/lib/dbus/machine-id")},
		{name: "cpu", read: cpuInfo},
	}
}

func readStoredMachineID() (string, error) {
	return readIDFile(filepath.Join(machineIDDir, constants.MachineIDFileName))
}

func storeMachineID(machineID string) error {
	return writeIDFile(filepath.Join(machineIDDir, constants.MachineIDFileName), machineID)
}
