package jar

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mpeddada1/jib/internal/fstree"
)

// explode expands the jar at jarPath into destination with the same
// determinism contract as tar extraction: entry timestamps are preserved,
// ancestor directories synthesized without an explicit entry get the
// epoch sentinel, and timestamps are applied deepest-first after all
// content writes so directory times survive.
func explode(jarPath, destination string, logger *slog.Logger) error {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrOpen, jarPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("jar: explode %q: %w", jarPath, err)
	}
	logger.Debug("exploding jar", "jar", jarPath, "destination", destination)

	tracker := fstree.NewTimeTracker(destination)
	for _, f := range r.File {
		target, err := tracker.Join(f.Name)
		if err != nil {
			return fmt.Errorf("jar: entry %q: %w", f.Name, err)
		}
		if err := tracker.EnsureParents(target); err != nil {
			return fmt.Errorf("jar: explode %q: %w", jarPath, err)
		}

		if strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("jar: explode %q: %w", jarPath, err)
			}
		} else if err := explodeFile(target, f); err != nil {
			return fmt.Errorf("jar: explode %q: %w", jarPath, err)
		}
		tracker.Record(target, f.Modified)
	}

	if err := tracker.Apply(); err != nil {
		return fmt.Errorf("jar: explode %q: %w", jarPath, err)
	}
	return nil
}

func explodeFile(target string, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
