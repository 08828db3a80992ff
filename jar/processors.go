package jar

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

type processorConfig struct {
	logger *slog.Logger
}

// ProcessorOption configures processor construction.
type ProcessorOption func(*processorConfig)

// WithLogger sets the logger processors report progress to.
// By default nothing is logged.
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(cfg *processorConfig) {
		cfg.logger = l
	}
}

// NewProcessor classifies the jar at jarPath and returns the processor
// for its layout and the requested mode.
//
// Packaged modes select a processor with no side effects. Exploded modes
// first resolve the exploded-jar cache from dirs and recursively delete
// it if it exists, so the returned processor always starts against an
// empty cache: stale files surviving from a previous build would silently
// corrupt the produced layers. If clearing fails the cache may be left
// partially deleted and the error wraps ErrCacheClear; no retry is
// attempted.
//
// The clear-then-populate sequence is not atomic. Callers running builds
// concurrently must serialize access per cache directory themselves.
func NewProcessor(jarPath string, dirs CacheDirectories, mode ProcessingMode, opts ...ProcessorOption) (Processor, error) {
	cfg := processorConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	jarType, err := Classify(jarPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("selected jar processor", "jar", jarPath, "type", jarType.String(), "mode", mode.String())

	if mode == ModePackaged {
		if jarType == TypeSpringBoot {
			return &SpringBootPackagedProcessor{jarPath: jarPath}, nil
		}
		return &StandardPackagedProcessor{jarPath: jarPath}, nil
	}

	explodedDir := dirs.ExplodedJarCache()
	if err := clearExplodedCache(explodedDir); err != nil {
		return nil, err
	}
	logger.Debug("prepared exploded-jar cache", "dir", explodedDir)

	if jarType == TypeSpringBoot {
		return &SpringBootExplodedProcessor{jarPath: jarPath, explodedDir: explodedDir, logger: logger}, nil
	}
	return &StandardExplodedProcessor{jarPath: jarPath, explodedDir: explodedDir, logger: logger}, nil
}

// clearExplodedCache removes dir and everything beneath it. Deletion
// never follows symlinks out of the tree. A missing directory already
// satisfies the postcondition.
func clearExplodedCache(dir string) error {
	if _, err := os.Lstat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w %q: %w", ErrCacheClear, dir, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w %q: %w", ErrCacheClear, dir, err)
	}
	return nil
}
