package gvdb

import (
	"os"

	"github.com/dconf/gvdb/internal/mmapio"
)

// ParseFile maps path (mmap-or-read, via internal/mmapio) and parses
// its contents as a GVDB blob. The mapping is released before
// ParseFile returns: the parser fully materializes the tree, so
// nothing in the returned Tree depends on path's bytes outliving this
// call.
func ParseFile(path string, trusted bool) (*Tree, error) {
	mapping, err := mmapio.Open(path)
	if err != nil {
		return nil, newErr(Io, "opening gvdb file "+path, err)
	}
	defer mapping.Close()

	tree, err := Parse(mapping.Bytes(), trusted)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// WriteFile serializes t and atomically replaces path with the result
// (internal/mmapio's rename-into-place write), so a concurrent reader
// never observes a partially written file.
func (t *Tree) WriteFile(path string, perm os.FileMode) error {
	data, err := Write(t)
	if err != nil {
		return err
	}
	if err := mmapio.WriteFile(path, data, perm); err != nil {
		return newErr(Io, "writing gvdb file "+path, err)
	}
	return nil
}
