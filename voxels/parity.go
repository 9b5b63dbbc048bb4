package voxels

import (
	"sort"

	"github.com/unixpickle/model3d/model3d"
)

// mergeDistance is the distance along a ray, in cells,
// below which consecutive surface hits are one crossing.
const mergeDistance = 1e-6

// parityDirections are fixed, irregular unit vectors so
// that rays rarely graze edges of axis-aligned meshes.
var parityDirections = []model3d.Coord3D{
	model3d.XYZ(-0.40475415, 0.86174632, -0.30588783),
	model3d.XYZ(-0.81025101, 0.38452447, -0.44230559),
	model3d.XYZ(-0.09226702, -0.74875317, -0.65639584),
	model3d.XYZ(-0.99668947, 0.08087344, 0.00834144),
	model3d.XYZ(0.67074042, -0.60098173, 0.43465877),
}

// A parityClassifier finds the cells of a space whose
// centers are enclosed by a surface. A center is inside
// when a ray along every direction crosses the surface an
// odd number of times.
//
// Meshes in the wild repeat faces and split faces along
// shared edges, so hits within mergeDistance of each other
// are counted once.
type parityClassifier struct {
	Space      *VoxelSpace
	Collider   model3d.Collider
	Directions []model3d.Coord3D
}

func newParityClassifier(space *VoxelSpace, collider model3d.Collider) *parityClassifier {
	return &parityClassifier{
		Space:      space,
		Collider:   collider,
		Directions: parityDirections,
	}
}

// Inside checks if the center of a cell is enclosed.
func (p *parityClassifier) Inside(c VoxelCoord) bool {
	point := p.Space.Coord(c)
	if !model3d.InBounds(p.Collider, point) {
		return false
	}
	for _, d := range p.Directions {
		if p.Crossings(point, d)%2 == 0 {
			return false
		}
	}
	return true
}

// Crossings counts the distinct surface crossings of a ray.
// A hit at the ray origin counts as a crossing.
func (p *parityClassifier) Crossings(origin, direction model3d.Coord3D) int {
	var scales []float64
	p.Collider.RayCollisions(&model3d.Ray{
		Origin:    origin,
		Direction: direction,
	}, func(r model3d.RayCollision) {
		scales = append(scales, r.Scale*direction.Norm())
	})
	return distinctHits(scales, mergeDistance)
}

// distinctHits counts the groups of hit distances that are
// separated by more than merge.
func distinctHits(distances []float64, merge float64) int {
	if len(distances) == 0 {
		return 0
	}
	sort.Float64s(distances)
	count := 1
	for i := 1; i < len(distances); i++ {
		if distances[i]-distances[i-1] > merge {
			count++
		}
	}
	return count
}
