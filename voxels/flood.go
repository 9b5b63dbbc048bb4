package voxels

import (
	"github.com/unixpickle/model3d/model3d"
)

type VoxelCoord [3]int

// A VoxelSpace maps integer cell coordinates to points in
// mesh space at a pitch of one unit. Cell centers sit on
// integer coordinates starting at Origin.
type VoxelSpace struct {
	Origin VoxelCoord
	Shape  [3]int
}

// Coord gets the center of a cell.
func (v *VoxelSpace) Coord(vc VoxelCoord) model3d.Coord3D {
	return model3d.XYZ(
		float64(v.Origin[0]+vc[0]),
		float64(v.Origin[1]+vc[1]),
		float64(v.Origin[2]+vc[2]),
	)
}

// A VoxelConnector finds the cells that are reachable from
// outside a mesh by moving between neighboring cells
// without crossing the surface.
type VoxelConnector struct {
	Space    *VoxelSpace
	Collider model3d.Collider
}

// Reachable runs a breadth-first search from a corner of a
// one-cell border around the space.
//
// The result is indexed like a Grid of the space's shape
// and excludes the border.
func (v *VoxelConnector) Reachable() []bool {
	reachable := NewBorderVoxels(v.Space.Shape)

	queue := []VoxelCoord{{-1, -1, -1}}
	*reachable.At(queue[0]) = true

	for len(queue) > 0 {
		coord := queue[0]
		queue = queue[1:]
		reachable.Neighbors(coord, func(neighbor VoxelCoord) {
			r := reachable.At(neighbor)
			if *r {
				return
			}
			if v.Connect(coord, neighbor) {
				*r = true
				queue = append(queue, neighbor)
			}
		})
	}

	return reachable.Unbordered()
}

// Connect checks if the straight path between the centers
// of two cells avoids the surface.
func (v *VoxelConnector) Connect(v1, v2 VoxelCoord) bool {
	c1 := v.Space.Coord(v1)
	c2 := v.Space.Coord(v2)

	// If the sphere containing the line segment does
	// not contain anything, no surface can be in the
	// way.
	//
	// This is faster than a ray collision, since it
	// only has to check a local neighborhood.
	if !v.Collider.SphereCollision(c1.Mid(c2), c1.Dist(c2)/(2-1e-8)) {
		return true
	}

	ray := &model3d.Ray{
		Origin:    c1,
		Direction: c2.Sub(c1),
	}
	coll, ok := v.Collider.FirstRayCollision(ray)
	return !ok || coll.Scale > 1
}

// BorderVoxels is a boolean grid padded by one cell on
// every side, addressed with coordinates from -1 to
// Shape[i] inclusive.
type BorderVoxels struct {
	Shape [3]int
	Data  []bool
}

func NewBorderVoxels(shape [3]int) *BorderVoxels {
	return &BorderVoxels{
		Shape: shape,
		Data:  make([]bool, (shape[0]+2)*(shape[1]+2)*(shape[2]+2)),
	}
}

func (b *BorderVoxels) At(coord VoxelCoord) *bool {
	sy, sz := b.Shape[1]+2, b.Shape[2]+2
	return &b.Data[(coord[2]+1)+((coord[1]+1)+(coord[0]+1)*sy)*sz]
}

func (b *BorderVoxels) Neighbors(coord VoxelCoord, f func(VoxelCoord)) {
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -1; z <= 1; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				newCoord := VoxelCoord{coord[0] + x, coord[1] + y, coord[2] + z}
				if b.InBounds(newCoord) {
					f(newCoord)
				}
			}
		}
	}
}

func (b *BorderVoxels) InBounds(c VoxelCoord) bool {
	for i, x := range c {
		if x < -1 || x > b.Shape[i] {
			return false
		}
	}
	return true
}

func (b *BorderVoxels) Unbordered() []bool {
	res := make([]bool, 0, b.Shape[0]*b.Shape[1]*b.Shape[2])
	for x := 0; x < b.Shape[0]; x++ {
		for y := 0; y < b.Shape[1]; y++ {
			for z := 0; z < b.Shape[2]; z++ {
				res = append(res, *b.At(VoxelCoord{x, y, z}))
			}
		}
	}
	return res
}
