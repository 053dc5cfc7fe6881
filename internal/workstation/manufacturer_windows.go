//go:build windows

package workstation

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const systemInformationKey = `SYSTEM\CurrentControlSet\Control\SystemInformation`

// SystemManufacturer reads the lower-cased system manufacturer from the registry.
func SystemManufacturer() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, systemInformationKey, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", systemInformationKey, err)
	}
	defer func() { _ = k.Close() }()

	v, _, err := k.GetStringValue("SystemManufacturer")
	if err != nil {
		return "", fmt.Errorf("reading SystemManufacturer: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(v)), nil
}
