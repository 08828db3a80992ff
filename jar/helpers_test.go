package jar

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name     string
	content  string
	modified time.Time
}

// buildJar writes a jar with the given entries into dir and returns its
// path. Entries whose name ends in "/" become directory entries.
func buildJar(t *testing.T, dir, name string, entries []zipEntry) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: e.modified,
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// stubCaches satisfies CacheDirectories with a fixed directory.
type stubCaches struct {
	dir string
}

func (s stubCaches) ExplodedJarCache() string {
	return s.dir
}

func testInstant(t *testing.T, value string) time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}
