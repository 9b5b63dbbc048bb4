package main

import (
	"encoding/json"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/modelnet-voxels/store/backend"
	"github.com/unixpickle/modelnet-voxels/voxels"
)

// A VoxelGrid is a solid whose voxel at (x, y, z) is
// centered at the point (x, y, z). Space outside the grid
// is empty.
type VoxelGrid struct {
	Grid *voxels.Grid

	// Threshold can be set to change the behavior of the
	// solid containment check.
	Threshold float64
}

// ReadVoxelGrid reads a grid as a JSON array with x on the
// outer dimension, then y, then z.
func ReadVoxelGrid(r io.Reader) (*voxels.Grid, error) {
	var object [][][]float64
	dec := json.NewDecoder(r)
	if err := dec.Decode(&object); err != nil {
		return nil, errors.Wrap(err, "read voxel grid")
	}
	if len(object) == 0 || len(object[0]) == 0 || len(object[0][0]) == 0 {
		return nil, errors.New("read voxel grid: empty grid")
	}
	g := voxels.NewGrid(len(object), len(object[0]), len(object[0][0]))
	for x, yPlane := range object {
		if len(yPlane) != g.Shape[1] {
			return nil, errors.New("read voxel grid: invalid dimensions")
		}
		for y, zLine := range yPlane {
			if len(zLine) != g.Shape[2] {
				return nil, errors.New("read voxel grid: invalid dimensions")
			}
			for z, value := range zLine {
				g.Set(x, y, z, float32(value))
			}
		}
	}
	return g, nil
}

// ReadStoreSample reads one written sample from an array
// store.
func ReadStoreSample(path, group string, index int) (*voxels.Grid, int8, error) {
	r, err := backend.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()
	data, label, valid, err := r.ReadSample(group, index)
	if err != nil {
		return nil, 0, err
	}
	if !valid {
		return nil, 0, errors.Errorf("read sample: %s[%d] was never written", group, index)
	}
	n := r.Layout().Resolution
	return voxels.GridFromInt8([3]int{n, n, n}, data), label, nil
}

// Min gets the minimum of the bounding box, one voxel
// beyond the grid so that surfaces are closed.
func (v *VoxelGrid) Min() model3d.Coord3D {
	return model3d.XYZ(-1, -1, -1)
}

// Max gets the maximum of the bounding box.
func (v *VoxelGrid) Max() model3d.Coord3D {
	s := v.Grid.Shape
	return model3d.XYZ(float64(s[0]), float64(s[1]), float64(s[2]))
}

// Contains checks if the value at the point is greater
// than the threshold.
func (v *VoxelGrid) Contains(c model3d.Coord3D) bool {
	return v.Interp(c) >= v.Threshold
}

// Interp gets a trilinear interpolated value for the grid
// at the given point.
func (v *VoxelGrid) Interp(c model3d.Coord3D) float64 {
	xs, xFracs := roundedCoords(c.X)
	ys, yFracs := roundedCoords(c.Y)
	zs, zFracs := roundedCoords(c.Z)
	var value float64
	for i, x := range xs {
		xFrac := xFracs[i]
		for j, y := range ys {
			yFrac := yFracs[j]
			for k, z := range zs {
				zFrac := zFracs[k]
				value += xFrac * yFrac * zFrac * v.Get(x, y, z)
			}
		}
	}
	return value
}

// Get gets the exact value at integer coordinates.
// If a coordinate is out of bounds, 0 is returned.
func (v *VoxelGrid) Get(x, y, z int) float64 {
	s := v.Grid.Shape
	if x < 0 || y < 0 || z < 0 || x >= s[0] || y >= s[1] || z >= s[2] {
		return 0
	}
	return float64(v.Grid.At(x, y, z))
}

func roundedCoords(c float64) (vals [2]int, fracs [2]float64) {
	min := int(math.Floor(c))
	max := min + 1
	minFrac := float64(max) - c
	maxFrac := 1 - minFrac
	return [2]int{min, max}, [2]float64{minFrac, maxFrac}
}
