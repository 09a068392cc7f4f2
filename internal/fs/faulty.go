package fs

import (
	"errors"
	"os"
	"sync"
)

// FaultyFS wraps a FileSystem and fails writes once a byte budget is
// exhausted, simulating a full disk. Test utility.
type FaultyFS struct {
	FS FileSystem

	mu      sync.Mutex
	written int64
	limit   int64 // -1 means unlimited
	err     error
}

// NewFaultyFS creates a FaultyFS wrapping fs (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:    fs,
		limit: -1,
		err:   errors.New("injected fault error"),
	}
}

// SetLimit makes all writes fail after n total bytes.
func (f *FaultyFS) SetLimit(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = n
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f}, nil
}

func (f *FaultyFS) Remove(name string) error                     { return f.FS.Remove(name) }
func (f *FaultyFS) Rename(oldpath, newpath string) error         { return f.FS.Rename(oldpath, newpath) }
func (f *FaultyFS) Stat(name string) (os.FileInfo, error)        { return f.FS.Stat(name) }
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error { return f.FS.MkdirAll(path, perm) }
func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error)   { return f.FS.ReadDir(name) }

type faultyFile struct {
	File
	fs *FaultyFS
}

func (f *faultyFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.fs.limit >= 0 && f.fs.written+int64(len(p)) > f.fs.limit {
		return 0, f.fs.err
	}
	n, err := f.File.Write(p)
	f.fs.written += int64(n)
	return n, err
}
