package voxels

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/modelnet-voxels/meshrec"
	"gonum.org/v1/gonum/floats"
)

// Normalize maps every axis of the mesh independently from
// [min, max] onto [0, n-1].
//
// The scaling is not isotropic: a flat or elongated mesh is
// stretched to fill the cube along every axis.
func Normalize(m *meshrec.Mesh, n int) (*meshrec.Mesh, error) {
	if len(m.Vertices) == 0 {
		return nil, ErrEmptyMesh
	}

	var axes [3][]float64
	for i := range axes {
		axes[i] = make([]float64, len(m.Vertices))
	}
	for i, v := range m.Vertices {
		axes[0][i], axes[1][i], axes[2][i] = v.X, v.Y, v.Z
	}

	var offset, scale [3]float64
	for i, values := range axes {
		min, max := floats.Min(values), floats.Max(values)
		if max == min {
			return nil, errors.Wrapf(ErrDegenerate, "axis %d", i)
		}
		offset[i] = min
		scale[i] = float64(n-1) / (max - min)
	}

	res := m.MapCoords(func(c model3d.Coord3D) model3d.Coord3D {
		return c.Sub(model3d.NewCoord3DArray(offset)).Mul(model3d.NewCoord3DArray(scale))
	})
	if !res.Finite() {
		return nil, ErrNonFinite
	}
	return res, nil
}
