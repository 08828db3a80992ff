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

// SpringBootPackagedProcessor layers a Spring Boot fat jar as a single
// opaque artifact. The jar's embedded launcher runs it as-is.
type SpringBootPackagedProcessor struct {
	jarPath string
}

// CreateLayers returns one layer placing the jar itself in the container.
func (p *SpringBootPackagedProcessor) CreateLayers() ([]layer.Layer, error) {
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

// SpringBootExplodedProcessor expands a Spring Boot fat jar into the
// prepared cache directory and splits it along the fat-jar layout:
// BOOT-INF/lib dependencies (release and snapshot separately), the
// loader classes under org/, and the application's own classes and
// resources. Splitting dependencies from application code keeps the
// frequently-changing layers small.
type SpringBootExplodedProcessor struct {
	jarPath     string
	explodedDir string
	logger      *slog.Logger
}

const bootLib = "BOOT-INF/lib/"

// CreateLayers explodes the jar and plans its layers. Layers that would
// be empty are omitted.
func (p *SpringBootExplodedProcessor) CreateLayers() ([]layer.Layer, error) {
	logger := p.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := explode(p.jarPath, p.explodedDir, logger); err != nil {
		return nil, err
	}

	dependencies, err := collectEntries(p.explodedDir, func(rel string) bool {
		return strings.HasPrefix(rel, bootLib) && !isSnapshot(path.Base(rel))
	})
	if err != nil {
		return nil, err
	}
	snapshots, err := collectEntries(p.explodedDir, func(rel string) bool {
		return strings.HasPrefix(rel, bootLib) && isSnapshot(path.Base(rel))
	})
	if err != nil {
		return nil, err
	}
	loader, err := collectEntries(p.explodedDir, func(rel string) bool {
		return strings.HasPrefix(rel, "org/")
	})
	if err != nil {
		return nil, err
	}
	classesAndResources, err := collectEntries(p.explodedDir, func(rel string) bool {
		return strings.HasPrefix(rel, "BOOT-INF/classes/") || strings.HasPrefix(rel, "META-INF/")
	})
	if err != nil {
		return nil, err
	}

	layers := appendLayer(nil, layerDependencies, dependencies)
	layers = appendLayer(layers, layerSnapshotDependencies, snapshots)
	layers = appendLayer(layers, layerSpringBootLoader, loader)
	layers = appendLayer(layers, layerClassesAndResources, classesAndResources)
	return layers, nil
}
