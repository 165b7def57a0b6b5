//go:build windows

package security

import (
	"golang.org/x/sys/windows/registry"
)

func readRegistryString(path, name string) (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()

	value, _, err := k.GetStringValue(name)
	return value, err
}

func platformSources() []idSource {
	const (
		ntVersion = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`
		cpu0      = `HARDWARE\DESCRIPTION\System\CentralProcessor\0`
	)

	return []idSource{
		{name: "product_id", read: func() (string, error) { return readRegistryString(ntVersion, "ProductId") }},
		{name: "cpu", read: func() (string, error) { return readRegistryString(cpu0, "ProcessorNameString") }},
		{name: "cpu_id", read: func() (string, error) { return readRegistryString(cpu0, "Identifier") }},
	}
}

// readStoredMachineID reads HKLM\SOFTWARE\TGConfig\MachineID
func readStoredMachineID() (string, error) {
	return readRegistryString(registryPath, machineIDKey)
}

func storeMachineID(machineID string) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, registryPath, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.SetStringValue(machineIDKey, machineID)
}
