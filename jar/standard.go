package jar

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mpeddada1/jib/layer"
)

// StandardPackagedProcessor layers a standard jar as a single opaque
// artifact.
type StandardPackagedProcessor struct {
	jarPath string
}

// CreateLayers returns one layer placing the jar itself in the container.
func (p *StandardPackagedProcessor) CreateLayers() ([]layer.Layer, error) {
	if _, err := os.Stat(p.jarPath); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrOpen, p.jarPath, err)
	}
	return appendLayer(nil, layerJar, []layer.Entry{{
		Source:  p.jarPath,
		Path:    path.Join(appRoot, filepath.Base(p.jarPath)),
		Mode:    0o644,
		ModTime: layer.DefaultModTime,
	}}), nil
}

// StandardExplodedProcessor expands a standard jar into the prepared
// cache directory and splits it into dependency, resource, and class
// layers. Dependencies come from the manifest's Class-Path attribute,
// resolved relative to the jar's directory.
type StandardExplodedProcessor struct {
	jarPath     string
	explodedDir string
	logger      *slog.Logger
}

// CreateLayers explodes the jar and plans its layers. Layers that would
// be empty are omitted.
func (p *StandardExplodedProcessor) CreateLayers() ([]layer.Layer, error) {
	if err := explode(p.jarPath, p.explodedDir, p.log()); err != nil {
		return nil, err
	}

	dependencies, snapshots, err := p.dependencyEntries()
	if err != nil {
		return nil, err
	}
	resources, err := collectEntries(p.explodedDir, func(rel string) bool {
		return !strings.HasSuffix(rel, ".class")
	})
	if err != nil {
		return nil, err
	}
	classes, err := collectEntries(p.explodedDir, func(rel string) bool {
		return strings.HasSuffix(rel, ".class")
	})
	if err != nil {
		return nil, err
	}

	layers := appendLayer(nil, layerDependencies, dependencies)
	layers = appendLayer(layers, layerSnapshotDependencies, snapshots)
	layers = appendLayer(layers, layerResources, resources)
	layers = appendLayer(layers, layerClasses, classes)
	return layers, nil
}

// dependencyEntries resolves the manifest Class-Path against the jar's
// directory and splits the result into release and snapshot plans.
// Listed dependencies that are not present on disk are skipped; the jar
// may legitimately be built for a runtime that provides them.
func (p *StandardExplodedProcessor) dependencyEntries() (dependencies, snapshots []layer.Entry, err error) {
	classPathEntries, err := classPath(p.explodedDir)
	if err != nil {
		return nil, nil, fmt.Errorf("jar: read manifest of %q: %w", p.jarPath, err)
	}
	jarDir := filepath.Dir(p.jarPath)
	for _, cp := range classPathEntries {
		source := filepath.Join(jarDir, filepath.FromSlash(cp))
		if _, statErr := os.Stat(source); statErr != nil {
			p.log().Debug("skipping missing Class-Path dependency", "entry", cp, "jar", p.jarPath)
			continue
		}
		base := path.Base(filepath.ToSlash(cp))
		entry := layer.Entry{
			Source:  source,
			Path:    path.Join(appRoot, "dependencies", base),
			Mode:    0o644,
			ModTime: layer.DefaultModTime,
		}
		if isSnapshot(base) {
			snapshots = append(snapshots, entry)
		} else {
			dependencies = append(dependencies, entry)
		}
	}
	return dependencies, snapshots, nil
}

func (p *StandardExplodedProcessor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}
