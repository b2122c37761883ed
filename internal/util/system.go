package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// SystemInfo contains information about the host system.
type SystemInfo struct {
	Hostname string
	NumCPU   int
	OS       string
	Arch     string
}

// GetSystemInfo collects system information.
func GetSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	return SystemInfo{
		Hostname: hostname,
		NumCPU:   runtime.NumCPU(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// LogicalCores returns the number of logical CPU cores.
func LogicalCores() int {
	return runtime.NumCPU()
}

// PhysicalCores returns the number of physical CPU cores, falling back to
// half the logical count when the topology cannot be read.
func PhysicalCores() int {
	switch runtime.GOOS {
	case "linux":
		if cores := physicalCoresLinux(); cores > 0 {
			return cores
		}
	default:
		if cores := physicalCoresSysctl(); cores > 0 {
			return cores
		}
	}
	logical := LogicalCores()
	if logical > 1 {
		return logical / 2
	}
	return 1
}

// sysfsCPUDir holds the per-cpu topology on Linux.
const sysfsCPUDir = "/sys/devices/system/cpu"

func physicalCoresLinux() int {
	return countSysfsCores(sysfsCPUDir)
}

// countSysfsCores counts distinct (package, core) pairs under a sysfs cpu
// directory. It returns 0 when no topology can be read.
func countSysfsCores(cpuDir string) int {
	entries, err := os.ReadDir(cpuDir)
	if err != nil {
		return 0
	}

	cores := make(map[string]struct{})
	for _, entry := range entries {
		suffix, ok := strings.CutPrefix(entry.Name(), "cpu")
		if !ok || suffix == "" {
			continue
		}
		if _, err := strconv.Atoi(suffix); err != nil {
			continue
		}

		topology := filepath.Join(cpuDir, entry.Name(), "topology")
		coreID, err := readTrimmed(filepath.Join(topology, "core_id"))
		if err != nil {
			continue
		}
		// Missing on some single socket systems.
		pkgID, _ := readTrimmed(filepath.Join(topology, "physical_package_id"))
		cores[pkgID+":"+coreID] = struct{}{}
	}
	return len(cores)
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
