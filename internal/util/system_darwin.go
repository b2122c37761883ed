//go:build darwin

package util

import "golang.org/x/sys/unix"

// physicalCoresSysctl reads hw.physicalcpu. Returns 0 if detection fails.
func physicalCoresSysctl() int {
	cores, err := unix.SysctlUint32("hw.physicalcpu")
	if err != nil || cores == 0 {
		return 0
	}
	return int(cores)
}
