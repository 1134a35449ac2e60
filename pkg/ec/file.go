//go:build linux

package ec

import (
	"sync"

	"golang.org/x/sys/unix"
)

// File is a RegisterFile backed by an EC io file.
// The descriptor is opened once and every access is a positioned single-byte
// pread/pwrite made under mu, so concurrent callers never see each other's offsets.
type File struct {
	path string

	mu sync.Mutex
	fd int
}

// Open opens path for reading and writing.
func Open(path string) (*File, error) {
	return open(path, unix.O_RDWR)
}

// OpenReadOnly opens path for reads only; writes fail with EBADF.
func OpenReadOnly(path string) (*File, error) {
	return open(path, unix.O_RDONLY)
}

func open(path string, mode int) (*File, error) {
	fd, err := unix.Open(path, mode|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &RegisterError{Op: "open", Path: path, Err: err}
	}
	return &File{path: path, fd: fd}, nil
}

// Path returns the file the registers are read from.
func (f *File) Path() string { return f.path }

func (f *File) ReadRegister(off Offset) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd < 0 {
		return 0, &RegisterError{Op: "read", Path: f.path, Offset: off, Err: ErrClosed}
	}
	var buf [1]byte
	n, err := unix.Pread(f.fd, buf[:], int64(off))
	if err != nil {
		return 0, &RegisterError{Op: "read", Path: f.path, Offset: off, Err: err}
	}
	if n != 1 {
		return 0, &RegisterError{Op: "read", Path: f.path, Offset: off, Err: ErrShortIO}
	}
	return buf[0], nil
}

func (f *File) WriteRegister(off Offset, value byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd < 0 {
		return &RegisterError{Op: "write", Path: f.path, Offset: off, Err: ErrClosed}
	}
	n, err := unix.Pwrite(f.fd, []byte{value}, int64(off))
	if err != nil {
		return &RegisterError{Op: "write", Path: f.path, Offset: off, Err: err}
	}
	if n != 1 {
		return &RegisterError{Op: "write", Path: f.path, Offset: off, Err: ErrShortIO}
	}
	return nil
}

// Close releases the descriptor. It is safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd < 0 {
		return nil
	}
	err := unix.Close(f.fd)
	f.fd = -1
	return err
}
