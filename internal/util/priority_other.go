//go:build !unix

package util

// LowerPriority is a no-op on platforms without setpriority.
func LowerPriority(pid, niceness int) error {
	return nil
}
