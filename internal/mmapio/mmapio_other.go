//go:build !linux && !darwin

package mmapio

import (
	"fmt"
	"io"
	"os"

	"github.com/dconf/gvdb/internal/utils"
)

// mapFile falls back to reading the whole file into memory on
// platforms without a native mmap(2); the codec (internal/codec) only
// ever needs a []byte, so this is transparent to every caller above
// this package.
func mapFile(f *os.File, size int64) (*Mapping, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		_ = f.Close()
		return nil, utils.WrapError(fmt.Sprintf("mmapio: reading %s", f.Name()), err)
	}
	if err := f.Close(); err != nil {
		return nil, utils.WrapError(fmt.Sprintf("mmapio: closing %s", f.Name()), err)
	}
	return &Mapping{data: data, file: nil, native: false}, nil
}

// unmap is unreachable on this build (native is always false here) but
// must exist for mmapio.go's unconditional reference to compile.
func unmap(*Mapping) error {
	return nil
}
