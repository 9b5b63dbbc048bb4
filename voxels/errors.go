package voxels

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/modelnet-voxels/meshrec"
)

var (
	ErrEmptyMesh  = meshrec.ErrEmpty
	ErrBadFace    = meshrec.ErrFaceIndex
	ErrDegenerate = errors.New("mesh has zero extent along an axis")
	ErrNonFinite  = meshrec.ErrNonFinite
	ErrOversized  = errors.New("grid exceeds target resolution")
)

// An InvalidMeshError indicates that a mesh cannot be
// turned into a grid. Callers are expected to skip the
// mesh rather than abort.
type InvalidMeshError struct {
	Err error
}

func (i *InvalidMeshError) Error() string {
	return "invalid mesh: " + i.Err.Error()
}

func (i *InvalidMeshError) Unwrap() error {
	return i.Err
}

// IsInvalid checks if err (or anything it wraps) is an
// InvalidMeshError.
func IsInvalid(err error) bool {
	var invalid *InvalidMeshError
	return errors.As(err, &invalid)
}

func invalid(err error) error {
	return &InvalidMeshError{Err: err}
}
