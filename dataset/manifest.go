package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ManifestPath gets the manifest file of a split.
func ManifestPath(dir string, s Split) string {
	return filepath.Join(dir, s.String()+".txt")
}

// A Manifest records the "<path>, <label>" line of every
// written sample of one split.
type Manifest struct {
	f *os.File
	w *bufio.Writer
}

// CreateManifest creates (or truncates) a split manifest.
func CreateManifest(dir string, s Split) (*Manifest, error) {
	f, err := os.Create(ManifestPath(dir, s))
	if err != nil {
		return nil, errors.Wrap(err, "create manifest")
	}
	return &Manifest{f: f, w: bufio.NewWriter(f)}, nil
}

// Add appends a line for a written pair.
func (m *Manifest) Add(p Pair) error {
	_, err := fmt.Fprintf(m.w, "%s, %d\n", p.Name(), p.Label)
	return errors.Wrap(err, "write manifest")
}

// Close flushes and closes the file.
func (m *Manifest) Close() error {
	err := m.w.Flush()
	if closeErr := m.f.Close(); err == nil {
		err = closeErr
	}
	return errors.Wrap(err, "close manifest")
}
