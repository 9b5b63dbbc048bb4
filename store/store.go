// Package store defines fixed-shape sample containers for
// voxel datasets and implements an npz backend.
//
// A container holds one group per split. Each group has
// three datasets: "<group>_mat" of shape (count, N, N, N),
// "<group>_label" of shape (count, 1) and "<group>_valid"
// of shape (count, 1), all int8. Slots that are never
// written stay zero, including their valid flag.
package store

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// Supported container formats.
const (
	FormatHDF5 = "hdf5"
	FormatNPZ  = "npz"
)

// Path joins a directory, base name and format extension.
func Path(dir, name, format string) string {
	return filepath.Join(dir, name+"."+format)
}

var (
	ErrUnknownGroup = errors.New("unknown group")
	ErrIndexRange   = errors.New("sample index out of range")
	ErrSampleSize   = errors.New("sample has the wrong number of cells")
)

// Dataset name suffixes.
const (
	MatSuffix   = "_mat"
	LabelSuffix = "_label"
	ValidSuffix = "_valid"
)

// A Group describes the samples of one split.
type Group struct {
	Name  string
	Count int
}

// A Layout describes every dataset in a container.
type Layout struct {
	Resolution int
	Groups     []Group
}

// SampleSize gets the number of cells in one sample.
func (l *Layout) SampleSize() int {
	return l.Resolution * l.Resolution * l.Resolution
}

// Group looks up a group by name.
func (l *Layout) Group(name string) (Group, error) {
	for _, g := range l.Groups {
		if g.Name == name {
			return g, nil
		}
	}
	return Group{}, errors.Wrap(ErrUnknownGroup, name)
}

// CheckSample validates the arguments of a sample read or
// write.
func (l *Layout) CheckSample(group string, index int, voxels []int8) error {
	g, err := l.Group(group)
	if err != nil {
		return err
	}
	if index < 0 || index >= g.Count {
		return errors.Wrapf(ErrIndexRange, "%s[%d] with %d samples", group, index, g.Count)
	}
	if voxels != nil && len(voxels) != l.SampleSize() {
		return errors.Wrapf(ErrSampleSize, "got %d, expected %d", len(voxels), l.SampleSize())
	}
	return nil
}

// A Writer stores samples by absolute index.
type Writer interface {
	Layout() Layout
	WriteSample(group string, index int, voxels []int8, label int8) error
	Close() error
}

// A Reader loads samples by absolute index.
type Reader interface {
	Layout() Layout
	ReadSample(group string, index int) (voxels []int8, label int8, valid bool, err error)
	Close() error
}
