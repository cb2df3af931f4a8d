package proc

import (
	"os"

	"golang.org/x/sys/unix"
)

// PathUID returns the owner of name, or -1 if it cannot be determined.
func PathUID(name string) int {
	var stat unix.Stat_t
	if err := unix.Stat(name, &stat); err != nil {
		return -1
	}
	return int(stat.Uid)
}

// Exists sends signal 0 to pid. EPERM still means the process exists.
func Exists(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

func Stop(pid int) error {
	return unix.Kill(pid, unix.SIGSTOP)
}

func Continue(pid int) error {
	return unix.Kill(pid, unix.SIGCONT)
}

var selfPID = os.Getpid()
