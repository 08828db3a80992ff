package jar

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/mpeddada1/jib/layer"
)

// appRoot is where application content lands in the container.
const appRoot = "/app"

// Layer names, matching the layer vocabulary of the surrounding build
// pipeline.
const (
	layerJar                  = "jar"
	layerDependencies         = "dependencies"
	layerSnapshotDependencies = "snapshot dependencies"
	layerResources            = "resources"
	layerClasses              = "classes"
	layerSpringBootLoader     = "spring boot loader"
	layerClassesAndResources  = "classes and resources"
)

// collectEntries plans an entry for every regular file in the exploded
// tree whose slash-relative path satisfies pred, preserving the tree's
// layout under appRoot. WalkDir's lexical order keeps plans
// deterministic.
func collectEntries(explodedDir string, pred func(rel string) bool) ([]layer.Entry, error) {
	var entries []layer.Entry
	err := filepath.WalkDir(explodedDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(explodedDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !pred(rel) {
			return nil
		}
		entries = append(entries, layer.Entry{
			Source:  p,
			Path:    path.Join(appRoot, rel),
			Mode:    0o644,
			ModTime: layer.DefaultModTime,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// appendLayer adds a named layer unless its plan is empty.
func appendLayer(layers []layer.Layer, name string, entries []layer.Entry) []layer.Layer {
	if len(entries) == 0 {
		return layers
	}
	return append(layers, layer.Layer{
		Name:      name,
		MediaType: layer.DefaultMediaType,
		Entries:   entries,
	})
}

// isSnapshot reports whether a dependency file name follows the Maven
// snapshot-version naming convention.
func isSnapshot(name string) bool {
	return strings.Contains(name, "SNAPSHOT")
}
