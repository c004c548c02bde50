// Package mmapio provides the "map-or-read" file backing for the gvdb
// codec: Open maps a GVDB file read-only for parsing, and WriteFile
// performs an atomic-rename write of a freshly serialized file.
//
// The codec itself (internal/codec) only ever operates on a []byte;
// this package's job ends at handing one over.
package mmapio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dconf/gvdb/internal/utils"
)

// Mapping is an open, memory-mapped (or read, on platforms without the
// native backing) view of a file's contents.
type Mapping struct {
	data   []byte
	file   *os.File
	native bool
}

// Bytes returns the mapping's contents. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Close releases the mapping and the underlying file descriptor.
func (m *Mapping) Close() error {
	var err error
	if m.native {
		err = unmap(m)
	}
	if m.file != nil {
		if cerr := m.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Open maps path read-only for parsing. On platforms where mmap is
// unavailable it falls back to reading the whole file into memory
// (mmapio_other.go); the codec sees no difference either way.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("mmapio: opening %s", path), err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, utils.WrapError(fmt.Sprintf("mmapio: stat %s", path), err)
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("mmapio: %s is not a regular file", path)
	}
	if fi.Size() == 0 {
		_ = f.Close()
		return &Mapping{data: nil, file: nil}, nil
	}

	return mapFile(f, fi.Size())
}

// WriteFile atomically replaces path with data: it writes to a sibling
// temp file in the same directory, syncs it, then renames it over
// path, so a reader never observes a partially written file.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".gvdb-tmp-*")
	if err != nil {
		return utils.WrapError(fmt.Sprintf("mmapio: creating temp file in %s", dir), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return utils.WrapError(fmt.Sprintf("mmapio: writing %s", tmpName), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return utils.WrapError(fmt.Sprintf("mmapio: syncing %s", tmpName), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return utils.WrapError(fmt.Sprintf("mmapio: closing %s", tmpName), err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return utils.WrapError(fmt.Sprintf("mmapio: chmod %s", tmpName), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return utils.WrapError(fmt.Sprintf("mmapio: renaming %s to %s", tmpName, path), err)
	}
	return nil
}
