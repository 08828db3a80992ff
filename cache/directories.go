// Package cache resolves the on-disk locations a build reuses between
// runs.
package cache

import (
	"fmt"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// explodedJarsDir is the subdirectory of the cache base that holds
// exploded jar trees.
const explodedJarsDir = "exploded-jars"

// Directories resolves cache paths for building one jar under a single
// base directory. The zero value is not usable; construct with
// NewDirectories.
type Directories struct {
	base    string
	jarPath string
}

// NewDirectories returns the cache locations for building jarPath with
// base as the cache root. The jar path is resolved to an absolute path so
// the same jar maps to the same cache regardless of working directory.
func NewDirectories(base, jarPath string) (Directories, error) {
	abs, err := filepath.Abs(jarPath)
	if err != nil {
		return Directories{}, fmt.Errorf("cache: resolve jar path %q: %w", jarPath, err)
	}
	return Directories{base: base, jarPath: abs}, nil
}

// Base returns the cache root.
func (d Directories) Base() string {
	return d.base
}

// ExplodedJarCache returns the exploded-jar directory for this jar.
// Distinct jars map to distinct directories, keyed by the digest of the
// jar's absolute path, so one application's exploded tree can never be
// mistaken for another's.
func (d Directories) ExplodedJarCache() string {
	key := digest.SHA256.FromString(d.jarPath).Encoded()
	return filepath.Join(d.base, explodedJarsDir, key)
}
