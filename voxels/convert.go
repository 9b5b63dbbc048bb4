package voxels

import (
	"math/rand"

	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/modelnet-voxels/meshrec"
)

// A Converter turns meshes into n x n x n occupancy grids.
type Converter struct {
	Resolution int
	Interior   Interior
	Resample   ResamplePolicy
}

// Convert normalizes, rasterizes, resamples and pads a
// mesh.
//
// The result is always exactly Resolution cells along every
// axis. Any mesh that cannot produce such a grid yields an
// *InvalidMeshError instead.
func (c *Converter) Convert(m *meshrec.Mesh) (*Grid, error) {
	if err := m.Validate(); err != nil {
		return nil, invalid(err)
	}
	normalized, err := Normalize(m, c.Resolution)
	if err != nil {
		return nil, invalid(err)
	}
	raw, err := Rasterize(normalized, c.Interior)
	if err != nil {
		return nil, invalid(err)
	}
	padded, err := Pad(Resample(raw, c.Resolution, c.Resample), c.Resolution)
	if err != nil {
		return nil, invalid(err)
	}
	return padded, nil
}

// RandomRotation creates a random rotation (without
// mirroring) drawn from rng.
func RandomRotation(rng *rand.Rand) *model3d.Matrix3Transform {
	v1 := randomUnit(rng)
	v2 := randomUnit(rng).ProjectOut(v1).Normalize()
	v3 := randomUnit(rng).ProjectOut(v1).ProjectOut(v2).Normalize()
	transform := &model3d.Matrix3Transform{
		Matrix: model3d.NewMatrix3Columns(v1, v2, v3),
	}

	// Only use rotations, not mirrors.
	if transform.Matrix.Det() < 0 {
		for i := 0; i < 3; i++ {
			transform.Matrix[i] *= -1
		}
	}

	return transform
}

// Rotate applies a random rotation drawn from rng to the
// mesh.
func Rotate(m *meshrec.Mesh, rng *rand.Rand) *meshrec.Mesh {
	return m.MapCoords(RandomRotation(rng).Apply)
}

func randomUnit(rng *rand.Rand) model3d.Coord3D {
	for {
		c := model3d.XYZ(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		if norm := c.Norm(); norm > 1e-8 {
			return c.Scale(1 / norm)
		}
	}
}
