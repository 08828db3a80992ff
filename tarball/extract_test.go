package tarball

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	typeflag byte
	content  string
	linkname string
	modTime  time.Time
}

func buildTarBytes(t *testing.T, entries []tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			ModTime:  e.modTime,
			Format:   tar.FormatPAX,
		}
		switch e.typeflag {
		case tar.TypeDir:
			hdr.Mode = 0o755
		case tar.TypeSymlink:
			hdr.Mode = 0o777
			hdr.Linkname = e.linkname
		default:
			hdr.Mode = 0o644
			hdr.Size = int64(len(e.content))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err := io.WriteString(tw, e.content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func buildTar(t *testing.T, entries []tarEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archive.tar")
	require.NoError(t, os.WriteFile(path, buildTarBytes(t, entries), 0o644))
	return path
}

func mtime(t *testing.T, path string) time.Time {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.ModTime().UTC()
}

func instant(t *testing.T, value string) time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestExtract(t *testing.T) {
	t.Parallel()

	source := buildTar(t, []tarEntry{
		{name: "file A", typeflag: tar.TypeReg, content: "Hello", modTime: instant(t, "2019-08-01T16:13:09Z")},
		{name: "file B", typeflag: tar.TypeReg, content: "world", modTime: instant(t, "2019-08-01T16:12:00Z")},
		{name: "folder/", typeflag: tar.TypeDir, modTime: instant(t, "2019-08-01T16:12:33Z")},
		{name: "folder/nested folder/", typeflag: tar.TypeDir, modTime: instant(t, "2019-08-01T16:13:30Z")},
		{name: "folder/nested folder/file C", typeflag: tar.TypeReg, content: "nested", modTime: instant(t, "2019-08-01T16:12:21Z")},
	})
	destination := t.TempDir()

	require.NoError(t, Extract(source, destination))

	content, err := os.ReadFile(filepath.Join(destination, "file A"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(content))
	content, err = os.ReadFile(filepath.Join(destination, "folder", "nested folder", "file C"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(content))

	for path, want := range map[string]string{
		"file A":                      "2019-08-01T16:13:09Z",
		"file B":                      "2019-08-01T16:12:00Z",
		"folder":                      "2019-08-01T16:12:33Z",
		"folder/nested folder":        "2019-08-01T16:13:30Z",
		"folder/nested folder/file C": "2019-08-01T16:12:21Z",
	} {
		got := mtime(t, filepath.Join(destination, filepath.FromSlash(path)))
		assert.True(t, got.Equal(instant(t, want)), "path %s: got %v, want %s", path, got, want)
	}
}

func TestExtract_MissingDirectoryEntries(t *testing.T) {
	t.Parallel()

	source := buildTar(t, []tarEntry{
		{name: "world", typeflag: tar.TypeReg, content: "world", modTime: instant(t, "2019-08-01T16:12:00Z")},
		{name: "a/b/c/world", typeflag: tar.TypeReg, content: "world", modTime: instant(t, "2019-08-01T16:12:00Z")},
	})
	destination := t.TempDir()

	require.NoError(t, Extract(source, destination))

	for _, dir := range []string{"a", "a/b", "a/b/c"} {
		info, err := os.Stat(filepath.Join(destination, filepath.FromSlash(dir)))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	content, err := os.ReadFile(filepath.Join(destination, "a", "b", "c", "world"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(content))
}

func TestExtract_ImpliedDirectoriesGetEpochTime(t *testing.T) {
	t.Parallel()

	fileTime := instant(t, "2021-01-29T21:10:02Z")
	source := buildTar(t, []tarEntry{
		{name: "level-1/level-2/level-3/file.txt", typeflag: tar.TypeReg, content: "hello", modTime: fileTime},
	})
	destination := t.TempDir()

	require.NoError(t, Extract(source, destination))

	epoch := time.Unix(0, 0)
	for _, dir := range []string{"level-1", "level-1/level-2", "level-1/level-2/level-3"} {
		got := mtime(t, filepath.Join(destination, filepath.FromSlash(dir)))
		assert.True(t, got.Equal(epoch), "dir %s: got %v, want epoch", dir, got)
	}
	got := mtime(t, filepath.Join(destination, "level-1", "level-2", "level-3", "file.txt"))
	assert.True(t, got.Equal(fileTime))
}

func TestExtract_ExplicitDirectoryEntryOverridesEpoch(t *testing.T) {
	t.Parallel()

	dirTime := instant(t, "2020-06-08T14:54:36Z")
	source := buildTar(t, []tarEntry{
		// Children first: the directory is synthesized with the epoch
		// sentinel, then its explicit entry must override it.
		{name: "dir/file.txt", typeflag: tar.TypeReg, content: "x", modTime: instant(t, "2020-06-08T14:54:00Z")},
		{name: "dir/", typeflag: tar.TypeDir, modTime: dirTime},
		{name: "dir/later.txt", typeflag: tar.TypeReg, content: "y", modTime: instant(t, "2020-06-08T14:55:00Z")},
	})
	destination := t.TempDir()

	require.NoError(t, Extract(source, destination))

	got := mtime(t, filepath.Join(destination, "dir"))
	assert.True(t, got.Equal(dirTime), "got %v, want %v", got, dirTime)
}

func TestExtract_Symlinks(t *testing.T) {
	t.Parallel()

	source := buildTar(t, []tarEntry{
		{name: "directory1/", typeflag: tar.TypeDir, modTime: instant(t, "2020-10-16T21:09:46Z")},
		{name: "directory2/", typeflag: tar.TypeDir, modTime: instant(t, "2020-10-16T21:09:30Z")},
		{name: "directory2/regular", typeflag: tar.TypeReg, content: "regular", modTime: instant(t, "2020-10-16T21:09:54Z")},
		{name: "directory-symlink", typeflag: tar.TypeSymlink, linkname: "directory1", modTime: instant(t, "2020-10-16T21:09:23Z")},
		{name: "directory1/file-symlink", typeflag: tar.TypeSymlink, linkname: "../directory2/regular", modTime: instant(t, "2020-10-16T21:09:23Z")},
	})
	destination := t.TempDir()

	require.NoError(t, Extract(source, destination))

	info, err := os.Lstat(filepath.Join(destination, "directory-symlink"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeSymlink)

	// Link targets are stored verbatim, never resolved or normalized.
	target, err := os.Readlink(filepath.Join(destination, "directory1", "file-symlink"))
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("../directory2/regular"), target)

	// Stat follows the link, so the observed time is the target's.
	followed := mtime(t, filepath.Join(destination, "directory1", "file-symlink"))
	assert.True(t, followed.Equal(instant(t, "2020-10-16T21:09:54Z")))
	followed = mtime(t, filepath.Join(destination, "directory-symlink"))
	assert.True(t, followed.Equal(instant(t, "2020-10-16T21:09:46Z")))
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()

	entries := []tarEntry{
		{name: "app/classes/Main.class", typeflag: tar.TypeReg, content: "cafebabe", modTime: instant(t, "2021-01-29T21:10:02Z")},
		{name: "app/", typeflag: tar.TypeDir, modTime: instant(t, "2021-01-29T21:11:00Z")},
		{name: "app/resources/config.yaml", typeflag: tar.TypeReg, content: "a: 1", modTime: instant(t, "2021-01-29T21:09:00Z")},
	}
	source := buildTar(t, entries)
	first, second := t.TempDir(), t.TempDir()

	require.NoError(t, Extract(source, first))
	require.NoError(t, Extract(source, second))

	assert.Equal(t, snapshotTree(t, first), snapshotTree(t, second))
}

type treeEntry struct {
	mode    string
	modTime time.Time
	sum     [sha256.Size]byte
}

func snapshotTree(t *testing.T, root string) map[string]treeEntry {
	t.Helper()

	tree := make(map[string]treeEntry)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entry := treeEntry{mode: info.Mode().String(), modTime: info.ModTime().UTC()}
		if info.Mode().IsRegular() {
			content, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			entry.sum = sha256.Sum256(content)
		}
		tree[filepath.ToSlash(rel)] = entry
		return nil
	})
	require.NoError(t, err)
	return tree
}

func TestExtract_GzipCompressed(t *testing.T) {
	t.Parallel()

	raw := buildTarBytes(t, []tarEntry{
		{name: "greeting.txt", typeflag: tar.TypeReg, content: "hello", modTime: instant(t, "2019-08-01T16:13:09Z")},
	})
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	source := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, os.WriteFile(source, buf.Bytes(), 0o644))
	destination := t.TempDir()

	require.NoError(t, Extract(source, destination))

	content, err := os.ReadFile(filepath.Join(destination, "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	got := mtime(t, filepath.Join(destination, "greeting.txt"))
	assert.True(t, got.Equal(instant(t, "2019-08-01T16:13:09Z")))
}

func TestExtract_RejectsTraversalPaths(t *testing.T) {
	t.Parallel()

	source := buildTar(t, []tarEntry{
		{name: "../escape.txt", typeflag: tar.TypeReg, content: "pwned", modTime: instant(t, "2019-08-01T16:13:09Z")},
	})
	parent := t.TempDir()
	destination := filepath.Join(parent, "dest")

	err := Extract(source, destination)
	require.ErrorIs(t, err, ErrInsecurePath)
	_, statErr := os.Stat(filepath.Join(parent, "escape.txt"))
	require.Error(t, statErr)
}

func TestExtract_MissingSource(t *testing.T) {
	t.Parallel()

	err := Extract(filepath.Join(t.TempDir(), "nope.tar"), t.TempDir())
	require.ErrorIs(t, err, ErrOpen)
}

func TestExtract_CorruptArchive(t *testing.T) {
	t.Parallel()

	source := filepath.Join(t.TempDir(), "corrupt.tar")
	require.NoError(t, os.WriteFile(source, bytes.Repeat([]byte{0xab}, 1024), 0o644))

	err := Extract(source, t.TempDir())
	require.ErrorIs(t, err, ErrOpen)
}

func TestExtract_EmptyArchive(t *testing.T) {
	t.Parallel()

	source := buildTar(t, nil)
	destination := t.TempDir()

	require.NoError(t, Extract(source, destination))

	entries, err := os.ReadDir(destination)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
