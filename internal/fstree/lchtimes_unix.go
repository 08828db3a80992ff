//go:build unix

package fstree

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// lchtimes sets the modification time on path without following symlinks.
func lchtimes(path string, mtime time.Time) error {
	ts := unix.NsecToTimespec(mtime.UnixNano())
	err := unix.UtimesNanoAt(unix.AT_FDCWD, path, []unix.Timespec{ts, ts}, unix.AT_SYMLINK_NOFOLLOW)
	if err != nil {
		return &fs.PathError{Op: "lchtimes", Path: path, Err: err}
	}
	return nil
}
