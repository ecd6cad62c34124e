// Package pid guards against two daemons sharing one card.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/acclogger/internal/errors"
)

const defaultName = "acclogger.pid"

// File is a PID file at a fixed path.
type File struct {
	path string
}

// New returns a PID file at path, or in the temp dir when path is empty.
func New(path string) *File {
	if path == "" {
		path = filepath.Join(os.TempDir(), defaultName)
	}

	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Acquire writes the current PID. It fails with ErrAlreadyRunning when the
// file names a live process other than this one; stale files are replaced.
func (f *File) Acquire() error {
	errFactory := errors.New()

	if data, err := os.ReadFile(f.path); err == nil {
		if other, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && other != os.Getpid() && alive(other) {
			return errFactory.WithData(errors.ErrAlreadyRunning, other)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Release removes the file. A missing file is not an error.
func (f *File) Release() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
