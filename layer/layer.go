// Package layer models the file layers a jar processor plans for a
// container image.
//
// A layer plan names the files that will make up one image layer: where
// each file lives on the local filesystem and where it lands in the
// container. Plans carry fixed modification times so their digests depend
// only on content, never on when the build ran.
package layer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"
)

// DefaultModTime is the fixed timestamp given to planned entries. One
// second past the epoch rather than the epoch itself: some tooling treats
// an exact zero time as "unset" and substitutes the current time, which
// would break reproducibility.
var DefaultModTime = time.Unix(1, 0).UTC()

// DefaultMediaType is the media type assigned to planned layers before
// downstream assembly compresses them.
const DefaultMediaType = ocispec.MediaTypeImageLayer

// Entry is one file placed into an image layer.
type Entry struct {
	// Source is the path of the file on the local filesystem.
	Source string

	// Path is the absolute, slash-separated destination in the container.
	Path string

	// Mode holds the permission bits the file gets in the container.
	Mode fs.FileMode

	// ModTime is the modification time recorded for the file in the
	// container. Usually DefaultModTime.
	ModTime time.Time
}

// Layer is a named, ordered plan of files for one image layer.
type Layer struct {
	Name      string
	MediaType string
	Entries   []Entry
}

// Digest returns a canonical digest over the layer plan: every entry's
// container path, mode, timestamp, and file content, in plan order. Two
// plans with identical entries and identical file bytes produce identical
// digests on any host.
func (l Layer) Digest() (digest.Digest, error) {
	digester := digest.Canonical.Digester()
	h := digester.Hash()
	for _, e := range l.Entries {
		fmt.Fprintf(h, "%s\x00%o\x00%d\x00", e.Path, e.Mode, e.ModTime.Unix())
		if err := hashFile(h, e.Source); err != nil {
			return "", fmt.Errorf("layer %q: %w", l.Name, err)
		}
	}
	return digester.Digest(), nil
}

func hashFile(w io.Writer, source string) error {
	f, err := os.Open(source)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Digests computes the digest of each layer concurrently, bounded by the
// number of CPUs, and returns them in layer order. Any failure fails the
// whole call.
func Digests(layers []Layer) ([]digest.Digest, error) {
	out := make([]digest.Digest, len(layers))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, l := range layers {
		g.Go(func() error {
			d, err := l.Digest()
			if err != nil {
				return err
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
