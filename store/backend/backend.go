// Package backend picks a sample container implementation
// by format name or file extension.
package backend

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/modelnet-voxels/store"
	"github.com/unixpickle/modelnet-voxels/store/h5store"
)

// Create creates a container in the given format.
func Create(path, format string, layout store.Layout) (store.Writer, error) {
	switch format {
	case store.FormatHDF5:
		return h5store.Create(path, layout)
	case store.FormatNPZ:
		return store.CreateNPZ(path, layout)
	}
	return nil, errors.Errorf("create store: unknown format %q", format)
}

// Open opens a container, choosing the format from the file
// extension.
func Open(path string) (store.Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hdf5", ".h5":
		return h5store.Open(path)
	case ".npz":
		return store.OpenNPZ(path)
	}
	return nil, errors.Errorf("open store: unknown extension for %s", path)
}
