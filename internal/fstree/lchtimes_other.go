//go:build !unix

package fstree

import (
	"io/fs"
	"os"
	"time"
)

// lchtimes sets the modification time on path. Symbolic links are left
// untouched: there is no portable way to set a link's own time without
// following it, and following would retime the target instead.
func lchtimes(path string, mtime time.Time) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil
	}
	return os.Chtimes(path, mtime, mtime)
}
