//go:build !windows

package workstation

import (
	"fmt"
	"os"
	"strings"
)

const dmiVendorPath = "/sys/class/dmi/id/sys_vendor"

// SystemManufacturer reads the lower-cased system vendor from DMI.
func SystemManufacturer() (string, error) {
	data, err := os.ReadFile(dmiVendorPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dmiVendorPath, err)
	}
	return strings.ToLower(strings.TrimSpace(string(data))), nil
}
