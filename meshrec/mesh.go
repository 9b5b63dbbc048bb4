// Package meshrec reads and writes indexed triangle meshes,
// either from OFF text files or from npz mesh records.
package meshrec

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
)

var (
	ErrEmpty      = errors.New("mesh has no vertices or no faces")
	ErrFaceIndex  = errors.New("face index out of range")
	ErrNonFinite  = errors.New("non-finite vertex coordinate")
	ErrUnknownExt = errors.New("unknown mesh file extension")
)

// Record extensions understood by Load.
const (
	RecordExt = ".npz"
	OFFExt    = ".off"
)

// A Mesh is an indexed triangle mesh.
type Mesh struct {
	Vertices []model3d.Coord3D
	Faces    [][3]int
}

// Validate checks that the mesh has at least one vertex
// and one face, and that every face refers to an existing
// vertex.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Faces) == 0 {
		return ErrEmpty
	}
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return errors.Wrapf(ErrFaceIndex, "face %d: index %d with %d vertices",
					i, idx, len(m.Vertices))
			}
		}
	}
	return nil
}

// Finite checks that every vertex coordinate is finite.
func (m *Mesh) Finite() bool {
	for _, v := range m.Vertices {
		for _, x := range v.Array() {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
	}
	return true
}

// Triangles resolves the faces into triangles.
//
// The mesh must be valid.
func (m *Mesh) Triangles() []*model3d.Triangle {
	res := make([]*model3d.Triangle, len(m.Faces))
	for i, f := range m.Faces {
		res[i] = &model3d.Triangle{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
	}
	return res
}

// Bounds computes the per-axis bounding box of the
// vertices.
func (m *Mesh) Bounds() (min, max model3d.Coord3D) {
	if len(m.Vertices) == 0 {
		return
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min = min.Min(v)
		max = max.Max(v)
	}
	return
}

// MapCoords creates a new mesh with every vertex passed
// through f. Faces are shared with m.
func (m *Mesh) MapCoords(f func(model3d.Coord3D) model3d.Coord3D) *Mesh {
	verts := make([]model3d.Coord3D, len(m.Vertices))
	for i, v := range m.Vertices {
		verts[i] = f(v)
	}
	return &Mesh{Vertices: verts, Faces: m.Faces}
}

// Load reads a mesh from an npz record or an OFF file,
// depending on the file extension.
func Load(path string) (*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case RecordExt:
		return ReadRecord(path)
	case OFFExt:
		return ReadOFFFile(path)
	default:
		return nil, errors.Wrap(ErrUnknownExt, path)
	}
}
