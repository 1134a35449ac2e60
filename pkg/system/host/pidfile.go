//go:build linux

package host

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning means the pidfile names a live process.
var ErrAlreadyRunning = errors.New("host: another instance is running")

// CheckAndCreatePidfile writes our pid to path unless it names a live process.
// Stale or unreadable pidfiles are overwritten. The returned func removes it.
func CheckAndCreatePidfile(path string) (func(), error) {
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if old, perr := strconv.Atoi(strings.TrimSpace(string(b))); perr == nil && old != os.Getpid() && alive(old) {
			return nil, fmt.Errorf("%w: pid %d (%s)", ErrAlreadyRunning, old, path)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("pidfile: %w", err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("pidfile: %w", err)
	}
	return func() { _ = os.Remove(path) }, nil
}

// alive sends signal 0; EPERM still means the process exists.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
