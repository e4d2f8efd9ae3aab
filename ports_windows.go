//go:build windows

package serial

import (
	"errors"
	"sort"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// ListPorts returns the COM port names registered under
// HKLM\HARDWARE\DEVICEMAP\SERIALCOMM, sorted.
func ListPorts() ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `HARDWARE\DEVICEMAP\SERIALCOMM`, registry.QUERY_VALUE)
	if err != nil {
		// the key only exists while at least one port is present
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
			return []string{}, nil
		}
		return nil, err
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, err
	}
	ports := make([]string, 0, len(names))
	for _, name := range names {
		port, _, err := k.GetStringValue(name)
		if err != nil {
			continue
		}
		ports = append(ports, port)
	}
	sort.Strings(ports)
	return ports, nil
}
