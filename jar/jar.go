// Package jar turns an application jar into a plan of container image
// layers.
//
// A jar is classified by its packaging layout (standard or Spring Boot)
// and processed in one of two modes: packaged, which treats the jar as a
// single opaque artifact, or exploded, which expands it into a reusable
// cache directory and splits the tree into finer-grained layers.
// NewProcessor combines classification and mode into one of four
// processors.
package jar

import (
	"errors"

	"github.com/mpeddada1/jib/internal/fstree"
	"github.com/mpeddada1/jib/layer"
)

// Type identifies a jar's packaging layout.
type Type uint8

const (
	// TypeStandard is a plain jar: classes and resources at the root.
	TypeStandard Type = iota

	// TypeSpringBoot is a Spring Boot fat jar, marked by a BOOT-INF
	// entry in its table of contents.
	TypeSpringBoot
)

// String returns the layout name.
func (t Type) String() string {
	switch t {
	case TypeSpringBoot:
		return "spring-boot"
	default:
		return "standard"
	}
}

// ProcessingMode selects how a jar is turned into layers.
type ProcessingMode uint8

const (
	// ModePackaged keeps the jar as a single opaque artifact.
	ModePackaged ProcessingMode = iota

	// ModeExploded expands the jar into the exploded-jar cache and
	// layers its contents individually.
	ModeExploded
)

// String returns the mode name.
func (m ProcessingMode) String() string {
	switch m {
	case ModeExploded:
		return "exploded"
	default:
		return "packaged"
	}
}

// CacheDirectories resolves the build cache locations a processor may
// use. Implementations own creation and cleanup policy of the base
// location; this package only reads the resolved path and deletes
// beneath it before an exploded build.
type CacheDirectories interface {
	// ExplodedJarCache returns the directory that holds the exploded
	// contents of the application jar between builds.
	ExplodedJarCache() string
}

// Processor produces the layer plan for one jar. Implementations are
// bound to a jar path at construction and, for exploded modes, to a
// prepared cache directory.
type Processor interface {
	CreateLayers() ([]layer.Layer, error)
}

var (
	// ErrOpen is returned when the jar cannot be opened or its entry
	// table cannot be read.
	ErrOpen = errors.New("jar: open jar")

	// ErrCacheClear is returned when the exploded-jar cache cannot be
	// cleared before an exploded build. The cache may be left partially
	// deleted; the build must not proceed against it.
	ErrCacheClear = errors.New("jar: clear exploded cache")

	// ErrInsecurePath is returned for jar entries whose path would
	// resolve outside the explosion root.
	ErrInsecurePath = fstree.ErrInsecurePath
)
