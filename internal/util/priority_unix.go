//go:build unix

package util

import "golang.org/x/sys/unix"

// LowerPriority sets the scheduling niceness of a running process.
// Used to keep the desktop responsive while probe encodes run.
func LowerPriority(pid, niceness int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, niceness)
}
