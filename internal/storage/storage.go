// Package storage exposes the removable card as a flat file namespace.
// All names are relative to the card root; the volume never reaches outside
// of it.
package storage

import (
	"io"
	"os"
	"sort"
	"strings"

	"codeberg.org/mutker/acclogger/internal/errors"
	"github.com/spf13/afero"
)

const defaultFilePerm = 0o644

// File is a writable handle. Sync forces buffered data to the medium.
type File interface {
	io.Writer
	Sync() error
	Close() error
}

// Reader is a readable handle used for downloads.
type Reader interface {
	io.ReadSeekCloser
	Stat() (os.FileInfo, error)
}

// Entry describes one file in the card root.
type Entry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Volume is the card. The filesystem is rooted at the card's mount point.
type Volume struct {
	fs afero.Fs
}

// New wraps an already-rooted filesystem. Tests pass afero.NewMemMapFs().
func New(fs afero.Fs) *Volume {
	return &Volume{fs: fs}
}

// NewOS returns a volume rooted at the card mount point on the host.
func NewOS(root string) *Volume {
	return New(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// Present reports whether a medium is mounted and usable.
func (v *Volume) Present() bool {
	ok, err := afero.DirExists(v.fs, "/")
	return err == nil && ok
}

// Exists reports whether name exists. Invalid names never exist.
func (v *Volume) Exists(name string) bool {
	p, err := Clean(name)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(v.fs, p)

	return err == nil && ok
}

// Create opens name for writing, truncating any existing content.
func (v *Volume) Create(name string) (File, error) {
	errFactory := errors.New()

	p, err := Clean(name)
	if err != nil {
		return nil, err
	}

	f, err := v.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrFileOpen, err)
	}

	return f, nil
}

// Open opens name for reading.
func (v *Volume) Open(name string) (Reader, error) {
	errFactory := errors.New()

	p, err := Clean(name)
	if err != nil {
		return nil, err
	}

	info, err := v.fs.Stat(p)
	if err != nil || info.IsDir() {
		return nil, errFactory.WithData(errors.ErrNotFound, strings.TrimPrefix(p, "/"))
	}

	f, err := v.fs.Open(p)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrFileOpen, err)
	}

	return f, nil
}

// Remove deletes name.
func (v *Volume) Remove(name string) error {
	errFactory := errors.New()

	p, err := Clean(name)
	if err != nil {
		return err
	}

	if ok, _ := afero.Exists(v.fs, p); !ok {
		return errFactory.WithData(errors.ErrNotFound, strings.TrimPrefix(p, "/"))
	}

	if err := v.fs.Remove(p); err != nil {
		return errFactory.Wrap(errors.ErrRemoveFailed, err)
	}

	return nil
}

// List returns plain files in the card root, sorted by name.
func (v *Volume) List() ([]Entry, error) {
	if !v.Present() {
		return nil, errors.New().New(errors.ErrStorageUnavailable)
	}

	infos, err := afero.ReadDir(v.fs, "/")
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrStorageUnavailable, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		entries = append(entries, Entry{Name: info.Name(), Size: info.Size()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

// Clean maps a client-supplied name to an absolute path inside the root.
// Leading separators are stripped; dot entries and nested paths are rejected
// since the card namespace is flat.
func Clean(name string) (string, error) {
	trimmed := strings.TrimLeft(name, "/\\")
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(trimmed, "/\\") {
		return "", errors.New().WithData(errors.ErrInvalidName, name)
	}

	return "/" + trimmed, nil
}
