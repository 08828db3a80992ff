package jar

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const manifestPath = "META-INF/MANIFEST.MF"

// classPath reads the Class-Path attribute from the manifest inside an
// exploded jar tree. A missing manifest or a manifest without the
// attribute yields no entries, not an error.
func classPath(explodedDir string) ([]string, error) {
	f, err := os.Open(filepath.Join(explodedDir, filepath.FromSlash(manifestPath)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return parseClassPath(f)
}

// parseClassPath extracts the Class-Path main-attribute values from a
// manifest body. Manifest lines are wrapped at 72 bytes; a line starting
// with a single space continues the previous one.
func parseClassPath(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, " ") && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, line := range lines {
		if value, ok := strings.CutPrefix(line, "Class-Path:"); ok {
			return strings.Fields(value), nil
		}
	}
	return nil, nil
}
