package voxels

import (
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/modelnet-voxels/meshrec"
)

// Interior selects how cells enclosed by the surface are
// found.
type Interior int

const (
	// InteriorParity casts rays from each cell center and
	// counts surface crossings.
	InteriorParity Interior = iota

	// InteriorFlood marks every cell that cannot be reached
	// from outside the mesh without crossing the surface.
	InteriorFlood
)

// ParseInterior parses "parity" or "flood".
func ParseInterior(s string) (Interior, error) {
	switch s {
	case "parity":
		return InteriorParity, nil
	case "flood":
		return InteriorFlood, nil
	}
	return 0, errors.Errorf("unknown interior mode: %q", s)
}

func (i Interior) String() string {
	if i == InteriorFlood {
		return "flood"
	}
	return "parity"
}

// surfaceRadius is the distance from a cell center within
// which the surface marks the cell as occupied.
const surfaceRadius = 0.5

// Rasterize fills a solid occupancy grid from a mesh at a
// pitch of one unit.
//
// Cell centers lie on integer coordinates spanning the
// rounded bounding box of the mesh, so the result shape is
// determined by the mesh and not by any target size. A cell
// is occupied if the surface passes within half a pitch of
// its center, or if its center is inside the surface.
func Rasterize(m *meshrec.Mesh, interior Interior) (*Grid, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !m.Finite() {
		return nil, ErrNonFinite
	}

	collider := model3d.MeshToCollider(model3d.NewMeshTriangles(m.Triangles()))
	space := unitSpace(m)
	grid := NewGrid(space.Shape[0], space.Shape[1], space.Shape[2])

	var inside func(idx int, c VoxelCoord) bool
	if interior == InteriorFlood {
		reachable := (&VoxelConnector{Space: space, Collider: collider}).Reachable()
		inside = func(idx int, c VoxelCoord) bool {
			return !reachable[idx]
		}
	} else {
		parity := newParityClassifier(space, collider)
		inside = func(idx int, c VoxelCoord) bool {
			return parity.Inside(c)
		}
	}

	// Rows along x are independent.
	essentials.ConcurrentMap(0, space.Shape[0], func(x int) {
		for y := 0; y < space.Shape[1]; y++ {
			for z := 0; z < space.Shape[2]; z++ {
				c := VoxelCoord{x, y, z}
				idx := grid.Index(x, y, z)
				if collider.SphereCollision(space.Coord(c), surfaceRadius) || inside(idx, c) {
					grid.Data[idx] = 1
				}
			}
		}
	})

	return grid, nil
}

func unitSpace(m *meshrec.Mesh) *VoxelSpace {
	min, max := m.Bounds()
	lo, hi := min.Array(), max.Array()
	space := &VoxelSpace{}
	for i := range lo {
		start := int(math.Round(lo[i]))
		space.Origin[i] = start
		space.Shape[i] = int(math.Round(hi[i])) - start + 1
	}
	return space
}
