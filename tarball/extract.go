// Package tarball materializes tar archives into real directory trees
// with exact content, structure, and timestamp fidelity.
//
// Extraction is deterministic: identical archive bytes always produce an
// identical tree, including modification times, independent of the host
// clock or prior filesystem state. Downstream layer hashing and build
// caching depend on that guarantee.
package tarball

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/mpeddada1/jib/internal/fstree"
)

var (
	// ErrOpen is returned when the archive cannot be opened or its
	// stream cannot be read.
	ErrOpen = errors.New("tarball: open archive")

	// ErrWrite is returned when the destination cannot be written.
	ErrWrite = errors.New("tarball: write entry")

	// ErrInsecurePath is returned for entries whose path would resolve
	// outside the destination root.
	ErrInsecurePath = fstree.ErrInsecurePath
)

type extractConfig struct {
	logger *slog.Logger
}

// ExtractOption configures extraction.
type ExtractOption func(*extractConfig)

// WithLogger sets the logger extraction reports progress to.
// By default nothing is logged.
func WithLogger(l *slog.Logger) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.logger = l
	}
}

// Extract materializes the tar archive at source into destination.
//
// Entries are processed in stream order. Ancestor directories missing an
// explicit archive entry are synthesized with the Unix epoch as their
// modification time; an explicit directory entry overrides the sentinel
// with its own time. Symbolic links are created with the archive's
// link-target text verbatim, never resolved or normalized.
//
// Timestamps are applied in a second pass, deepest paths first, after all
// content writes complete. Writing into a directory bumps the directory's
// own modification time, so applying times during the content pass would
// not survive later writes beneath them.
//
// Gzip-compressed archives are detected by their magic bytes and
// decompressed transparently.
//
// On failure extraction aborts at the point of error; the destination may
// hold a partial tree. There is no rollback.
func Extract(source, destination string, opts ...ExtractOption) error {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrOpen, source, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var stream io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrOpen, source, err)
		}
		defer gz.Close()
		stream = gz
	}

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("%w %q: %w", ErrWrite, destination, err)
	}

	logger.Debug("extracting archive", "source", source, "destination", destination)

	tracker := fstree.NewTimeTracker(destination)
	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrOpen, source, err)
		}

		target, err := tracker.Join(hdr.Name)
		if err != nil {
			return fmt.Errorf("tarball: entry %q: %w", hdr.Name, err)
		}
		if err := tracker.EnsureParents(target); err != nil {
			return fmt.Errorf("%w %q: %w", ErrWrite, target, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w %q: %w", ErrWrite, target, err)
			}
		case tar.TypeSymlink:
			// A leftover object at the link path would make Symlink
			// fail with EEXIST.
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("%w %q: %w", ErrWrite, target, err)
			}
		default:
			// Regular files, plus any other entry kind, carry their
			// byte stream to a file at the entry path.
			if err := writeFile(target, tr, hdr); err != nil {
				return err
			}
		}
		tracker.Record(target, hdr.ModTime)
	}

	if err := tracker.Apply(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func writeFile(target string, r io.Reader, hdr *tar.Header) error {
	perm := hdr.FileInfo().Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrWrite, target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("%w %q: %w", ErrWrite, target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w %q: %w", ErrWrite, target, err)
	}
	return nil
}
