// Package voxels turns triangle meshes into fixed-size
// binary occupancy grids.
package voxels

// A Grid is a dense 3D occupancy grid.
//
// Data is stored with x on the outer dimension and z on
// the inner dimension, matching a C-ordered array of
// shape (X, Y, Z).
type Grid struct {
	Shape [3]int
	Data  []float32
}

// NewGrid creates an empty grid of the given shape.
func NewGrid(x, y, z int) *Grid {
	return &Grid{
		Shape: [3]int{x, y, z},
		Data:  make([]float32, x*y*z),
	}
}

// NewCubeGrid creates an empty n x n x n grid.
func NewCubeGrid(n int) *Grid {
	return NewGrid(n, n, n)
}

// GridFromInt8 creates a grid from narrowed storage
// values.
func GridFromInt8(shape [3]int, data []int8) *Grid {
	g := NewGrid(shape[0], shape[1], shape[2])
	for i, x := range data {
		g.Data[i] = float32(x)
	}
	return g
}

func (g *Grid) Index(x, y, z int) int {
	return (x*g.Shape[1]+y)*g.Shape[2] + z
}

func (g *Grid) At(x, y, z int) float32 {
	return g.Data[g.Index(x, y, z)]
}

func (g *Grid) Set(x, y, z int, v float32) {
	g.Data[g.Index(x, y, z)] = v
}

// IsCube checks if the grid is exactly n x n x n.
func (g *Grid) IsCube(n int) bool {
	return g.Shape == [3]int{n, n, n}
}

// Int8 narrows the grid for storage.
func (g *Grid) Int8() []int8 {
	res := make([]int8, len(g.Data))
	for i, x := range g.Data {
		if x != 0 {
			res[i] = 1
		}
	}
	return res
}

// Count gets the number of occupied cells.
func (g *Grid) Count() int {
	var n int
	for _, x := range g.Data {
		if x != 0 {
			n++
		}
	}
	return n
}

// Occupancy gets the fraction of occupied cells.
func (g *Grid) Occupancy() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	return float64(g.Count()) / float64(len(g.Data))
}
