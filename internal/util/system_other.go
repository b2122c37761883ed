//go:build !darwin

package util

func physicalCoresSysctl() int {
	return 0
}
