// Package fstree tracks desired modification times while an archive is
// materialized onto the filesystem and applies them once all content
// writes have completed.
//
// Writing into a directory bumps that directory's own modification time,
// so timestamps set during content writes would not survive. A TimeTracker
// records the desired final time for every path touched during a single
// materialization and applies the table afterwards, deepest paths first,
// so no later write can clobber an already-applied ancestor time.
package fstree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrInsecurePath is returned for archive entry names whose cleaned path
// would resolve outside the destination root.
var ErrInsecurePath = errors.New("entry path escapes destination root")

// Epoch is the sentinel time given to directories synthesized without an
// explicit archive entry of their own.
var Epoch = time.Unix(0, 0).UTC()

// TimeTracker accumulates the path-to-timestamp table for one
// materialization. It is not safe for concurrent use and must not be
// reused across materializations.
type TimeTracker struct {
	root  string
	times map[string]time.Time
}

// NewTimeTracker returns a tracker for a materialization rooted at root.
func NewTimeTracker(root string) *TimeTracker {
	return &TimeTracker{
		root:  filepath.Clean(root),
		times: make(map[string]time.Time),
	}
}

// Join resolves a slash-separated archive entry name beneath the root.
// Names that clean to a path outside the root are rejected with
// ErrInsecurePath before anything is written.
func (t *TimeTracker) Join(name string) (string, error) {
	target := filepath.Join(t.root, filepath.FromSlash(name))
	if target != t.root && !strings.HasPrefix(target, t.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrInsecurePath, name)
	}
	return target, nil
}

// EnsureParents creates any missing ancestor directories of target below
// the root. Each directory it creates is recorded with the Epoch sentinel
// as its provisional final time; an explicit Record for the same path
// later overrides the sentinel. Ancestors that already exist on disk but
// were not created by this tracker keep their filesystem times.
func (t *TimeTracker) EnsureParents(target string) error {
	dir := filepath.Dir(target)
	if !strings.HasPrefix(dir, t.root+string(os.PathSeparator)) {
		return nil
	}
	rel, err := filepath.Rel(t.root, dir)
	if err != nil {
		return err
	}
	cur := t.root
	for part := range strings.SplitSeq(rel, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		if _, ok := t.times[cur]; ok {
			continue
		}
		info, err := os.Lstat(cur)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if err := os.Mkdir(cur, 0o755); err != nil {
				return err
			}
			t.times[cur] = Epoch
		case err != nil:
			return err
		case !info.IsDir():
			return fmt.Errorf("ancestor %q is not a directory", cur)
		}
	}
	return nil
}

// Record sets the desired final modification time for target, overriding
// any provisional sentinel recorded earlier.
func (t *TimeTracker) Record(target string, mtime time.Time) {
	t.times[target] = mtime
}

// Apply sets every recorded time, deepest paths first. Symbolic links
// receive their time without being followed. Apply stops at the first
// failure; already-applied times are left in place.
func (t *TimeTracker) Apply() error {
	paths := make([]string, 0, len(t.times))
	for p := range t.times {
		paths = append(paths, p)
	}
	sep := string(os.PathSeparator)
	sort.Slice(paths, func(i, j int) bool {
		di, dj := strings.Count(paths[i], sep), strings.Count(paths[j], sep)
		if di != dj {
			return di > dj
		}
		return paths[i] < paths[j]
	})
	for _, p := range paths {
		if err := lchtimes(p, t.times[p]); err != nil {
			return err
		}
	}
	return nil
}
