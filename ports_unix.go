//go:build linux || darwin

package serial

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
)

const devDir = "/dev"

var devicePattern = func() *regexp.Regexp {
	if runtime.GOOS == "darwin" {
		return regexp.MustCompile(`^(cu|tty)\..+$`)
	}
	return regexp.MustCompile(`^(ttyS|ttyUSB|ttyACM|ttyAMA|ttyO|ttyXRUSB|rfcomm)[0-9]+$`)
}()

// ListPorts returns the serial device nodes found under /dev, sorted by
// name. It does not open them.
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}
	ports := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !devicePattern.MatchString(e.Name()) {
			continue
		}
		ports = append(ports, filepath.Join(devDir, e.Name()))
	}
	return ports, nil
}
