//go:build linux || darwin

package mmapio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/dconf/gvdb/internal/utils"
)

// mapFile mmaps f read-only for its entire size.
func mapFile(f *os.File, size int64) (*Mapping, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, utils.WrapError(fmt.Sprintf("mmapio: mmap %s", f.Name()), err)
	}
	return &Mapping{data: data, file: f, native: true}, nil
}

func unmap(m *Mapping) error {
	if err := unix.Munmap(m.data); err != nil {
		return utils.WrapError("mmapio: munmap", err)
	}
	return nil
}
