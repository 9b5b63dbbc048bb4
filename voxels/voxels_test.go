package voxels

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/modelnet-voxels/meshrec"
)

// boxMesh creates a closed box with 12 triangular faces.
func boxMesh(min, max model3d.Coord3D) *meshrec.Mesh {
	m := &meshrec.Mesh{}
	for i := 0; i < 8; i++ {
		c := min
		if i&1 != 0 {
			c.X = max.X
		}
		if i&2 != 0 {
			c.Y = max.Y
		}
		if i&4 != 0 {
			c.Z = max.Z
		}
		m.Vertices = append(m.Vertices, c)
	}
	m.Faces = [][3]int{
		{0, 2, 1}, {1, 2, 3}, // z min
		{4, 5, 6}, {5, 7, 6}, // z max
		{0, 1, 4}, {1, 5, 4}, // y min
		{2, 6, 3}, {3, 6, 7}, // y max
		{0, 4, 2}, {2, 4, 6}, // x min
		{1, 3, 5}, {3, 7, 5}, // x max
	}
	return m
}

func tetraMesh() *meshrec.Mesh {
	return &meshrec.Mesh{
		Vertices: []model3d.Coord3D{
			model3d.XYZ(0, 0, 0),
			model3d.XYZ(1, 0, 0),
			model3d.XYZ(0, 1, 0),
			model3d.XYZ(0, 0, 1),
		},
		Faces: [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
	}
}

func TestNormalizeAnisotropic(t *testing.T) {
	m := boxMesh(model3d.XYZ(-1, 10, 0), model3d.XYZ(1, 11, 100))
	res, err := Normalize(m, 32)
	require.NoError(t, err)
	min, max := res.Bounds()
	assert.Equal(t, model3d.XYZ(0, 0, 0), min)
	assert.Equal(t, model3d.XYZ(31, 31, 31), max)
	assert.Equal(t, m.Faces, res.Faces)
}

func TestNormalizeIdempotent(t *testing.T) {
	m := tetraMesh()
	m.Vertices[1] = model3d.XYZ(7, 2.5, 0)
	m.Vertices[2] = model3d.XYZ(3, 7, 1.25)
	m.Vertices[3] = model3d.XYZ(0.5, 1, 7)
	res, err := Normalize(m, 8)
	require.NoError(t, err)
	for i, v := range m.Vertices {
		assert.InDelta(t, 0, v.Dist(res.Vertices[i]), 1e-9)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	_, err := Normalize(&meshrec.Mesh{}, 8)
	assert.ErrorIs(t, err, ErrEmptyMesh)

	flat := tetraMesh()
	for i := range flat.Vertices {
		flat.Vertices[i].Z = 3
	}
	_, err = Normalize(flat, 8)
	assert.ErrorIs(t, err, ErrDegenerate)

	nan := tetraMesh()
	nan.Vertices[2].Y = math.NaN()
	_, err = Normalize(nan, 8)
	assert.ErrorIs(t, err, ErrNonFinite)

	inf := tetraMesh()
	inf.Vertices[1].X = math.Inf(1)
	_, err = Normalize(inf, 8)
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestRasterizeCube(t *testing.T) {
	g, err := Rasterize(boxMesh(model3d.XYZ(0, 0, 0), model3d.XYZ(7, 7, 7)), InteriorParity)
	require.NoError(t, err)
	assert.Equal(t, [3]int{8, 8, 8}, g.Shape)
	assert.Equal(t, 512, g.Count())
}

func TestRasterizeShape(t *testing.T) {
	g, err := Rasterize(boxMesh(model3d.XYZ(2, -1, 0), model3d.XYZ(5, 3.4, 10.6)), InteriorParity)
	require.NoError(t, err)
	assert.Equal(t, [3]int{4, 5, 12}, g.Shape)
}

func TestRasterizeFloodMatchesParity(t *testing.T) {
	m := boxMesh(model3d.XYZ(0.31, 0.22, 0.43), model3d.XYZ(6.73, 6.61, 6.84))
	parity, err := Rasterize(m, InteriorParity)
	require.NoError(t, err)
	flood, err := Rasterize(m, InteriorFlood)
	require.NoError(t, err)

	require.Equal(t, parity.Shape, flood.Shape)
	assert.Equal(t, parity.Data, flood.Data)
	for x := 1; x < 7; x++ {
		for y := 1; y < 7; y++ {
			for z := 1; z < 7; z++ {
				assert.Equal(t, float32(1), flood.At(x, y, z))
			}
		}
	}
	assert.Equal(t, float32(0), flood.At(0, 0, 0))
}

func doubledFaces(m *meshrec.Mesh) *meshrec.Mesh {
	faces := append([][3]int{}, m.Faces...)
	for _, f := range m.Faces {
		faces = append(faces, [3]int{f[1], f[2], f[0]})
	}
	return &meshrec.Mesh{Vertices: m.Vertices, Faces: faces}
}

func TestRasterizeDuplicateFaces(t *testing.T) {
	m := doubledFaces(boxMesh(model3d.XYZ(0, 0, 0), model3d.XYZ(7, 7, 7)))
	for _, interior := range []Interior{InteriorParity, InteriorFlood} {
		g, err := Rasterize(m, interior)
		require.NoError(t, err, interior.String())
		assert.Equal(t, [3]int{8, 8, 8}, g.Shape, interior.String())
		assert.Equal(t, 512, g.Count(), interior.String())
	}

	conv := &Converter{Resolution: 8}
	g, err := conv.Convert(doubledFaces(boxMesh(model3d.XYZ(-1, 2, 3), model3d.XYZ(4, 3.5, 9))))
	require.NoError(t, err)
	assert.Equal(t, 512, g.Count())
}

func TestParityMergesDuplicateHits(t *testing.T) {
	m := doubledFaces(boxMesh(model3d.XYZ(0, 0, 0), model3d.XYZ(4, 4, 4)))
	collider := model3d.MeshToCollider(model3d.NewMeshTriangles(m.Triangles()))
	space := &VoxelSpace{Origin: VoxelCoord{-2, -2, -2}, Shape: [3]int{9, 9, 9}}
	p := newParityClassifier(space, collider)

	var raw int
	origin := model3d.XYZ(-1, 2.3, 1.2)
	collider.RayCollisions(&model3d.Ray{Origin: origin, Direction: model3d.X(1)}, func(model3d.RayCollision) {
		raw++
	})
	assert.Equal(t, 4, raw)
	assert.Equal(t, 2, p.Crossings(origin, model3d.X(1)))
	assert.Equal(t, 2, p.Crossings(origin, model3d.X(2)))

	// Starting exactly on the x-max face, pointing outward.
	assert.Equal(t, 1, p.Crossings(model3d.XYZ(4, 2.3, 1.2), model3d.X(1)))

	assert.False(t, p.Inside(VoxelCoord{0, 0, 0}))
	assert.False(t, p.Inside(VoxelCoord{8, 4, 4}))
	assert.True(t, p.Inside(VoxelCoord{3, 5, 4}))
}

func TestDistinctHits(t *testing.T) {
	assert.Equal(t, 0, distinctHits(nil, 1e-6))
	assert.Equal(t, 1, distinctHits([]float64{0}, 1e-6))
	assert.Equal(t, 1, distinctHits([]float64{0, 0, 0}, 1e-6))
	assert.Equal(t, 3, distinctHits([]float64{5, 3 + 1e-9, 0, 3, 0}, 1e-6))
	assert.Equal(t, 2, distinctHits([]float64{1, 1.5}, 1e-6))
}

func TestResampleBlockMax(t *testing.T) {
	g := NewCubeGrid(64)
	g.Set(0, 0, 1, 1)
	g.Set(63, 62, 63, 1)
	g.Set(10, 11, 12, 1)

	res := Resample(g, 32, ResampleFit)
	assert.Equal(t, [3]int{32, 32, 32}, res.Shape)
	assert.Equal(t, 3, res.Count())
	assert.Equal(t, float32(1), res.At(0, 0, 0))
	assert.Equal(t, float32(1), res.At(31, 31, 31))
	assert.Equal(t, float32(1), res.At(5, 5, 6))

	legacy := Resample(g, 32, ResampleLegacy)
	assert.Equal(t, res.Data, legacy.Data)
}

func TestResampleNoOp(t *testing.T) {
	g := NewCubeGrid(8)
	assert.True(t, Resample(g, 8, ResampleFit) == g)

	small := NewGrid(5, 8, 3)
	res := Resample(small, 8, ResampleFit)
	assert.Equal(t, [3]int{5, 8, 3}, res.Shape)
}

func TestResamplePolicies(t *testing.T) {
	for raw := 1; raw <= 200; raw++ {
		assert.LessOrEqual(t, ResampleFit.OutputSize(raw, 32), 32, "raw=%d", raw)
		if raw%32 == 0 || raw <= 32 {
			assert.Equal(t, ResampleLegacy.BlockSize(raw, 32), ResampleFit.BlockSize(raw, 32))
		}
	}

	g := NewGrid(70, 32, 32)
	g.Set(69, 0, 0, 1)

	fit := Resample(g, 32, ResampleFit)
	assert.Equal(t, [3]int{24, 32, 32}, fit.Shape)
	assert.Equal(t, float32(1), fit.At(23, 0, 0))

	legacy := Resample(g, 32, ResampleLegacy)
	assert.Equal(t, [3]int{35, 32, 32}, legacy.Shape)
	assert.Equal(t, 1, legacy.Count())
	_, err := Pad(legacy, 32)
	assert.ErrorIs(t, err, ErrOversized)
}

func TestPad(t *testing.T) {
	g := NewGrid(2, 3, 1)
	g.Set(1, 2, 0, 1)
	g.Set(0, 0, 0, 1)
	res, err := Pad(g, 4)
	require.NoError(t, err)
	assert.Equal(t, [3]int{4, 4, 4}, res.Shape)
	assert.Equal(t, 2, res.Count())
	assert.Equal(t, float32(1), res.At(1, 2, 0))
	assert.Equal(t, float32(1), res.At(0, 0, 0))

	_, err = Pad(NewGrid(5, 1, 1), 4)
	assert.ErrorIs(t, err, ErrOversized)
}

func TestConvertCube(t *testing.T) {
	c := &Converter{Resolution: 8}
	g, err := c.Convert(boxMesh(model3d.XYZ(-1, -1, -1), model3d.XYZ(1, 1, 1)))
	require.NoError(t, err)
	assert.True(t, g.IsCube(8))
	for _, x := range g.Data {
		require.Equal(t, float32(1), x)
	}
	for _, x := range g.Int8() {
		require.Equal(t, int8(1), x)
	}
}

func TestConvertShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{8, 16, 32} {
		for _, interior := range []Interior{InteriorParity, InteriorFlood} {
			c := &Converter{Resolution: n, Interior: interior}
			g, err := c.Convert(Rotate(tetraMesh(), rng))
			require.NoError(t, err)
			assert.True(t, g.IsCube(n))
			assert.Greater(t, g.Occupancy(), 0.0)
			assert.Less(t, g.Occupancy(), 1.0)
		}
	}
}

func TestConvertInvalid(t *testing.T) {
	c := &Converter{Resolution: 8}
	meshes := map[string]*meshrec.Mesh{
		"empty":    {},
		"no-faces": {Vertices: tetraMesh().Vertices},
		"no-verts": {Faces: tetraMesh().Faces},
		"index":    {Vertices: tetraMesh().Vertices, Faces: [][3]int{{0, 1, 4}}},
		"flat": {
			Vertices: []model3d.Coord3D{{}, model3d.XYZ(1, 0, 0), model3d.XYZ(0, 1, 0)},
			Faces:    [][3]int{{0, 1, 2}},
		},
	}
	nan := tetraMesh()
	nan.Vertices[0].X = math.NaN()
	meshes["nan"] = nan

	for name, m := range meshes {
		t.Run(name, func(t *testing.T) {
			g, err := c.Convert(m)
			assert.Nil(t, g)
			assert.True(t, IsInvalid(err), "error: %v", err)
		})
	}

	_, err := c.Convert(nan)
	assert.ErrorIs(t, err, meshrec.ErrNonFinite)
	_, err = c.Convert(meshes["index"])
	assert.ErrorIs(t, err, meshrec.ErrFaceIndex)
}

func TestRandomRotation(t *testing.T) {
	rng := rand.New(rand.NewSource(448))
	for i := 0; i < 10; i++ {
		r := RandomRotation(rng)
		assert.InDelta(t, 1, r.Matrix.Det(), 1e-8)
		a, b := model3d.XYZ(1, 2, 3), model3d.XYZ(-2, 0.5, 4)
		assert.InDelta(t, a.Dist(b), r.Apply(a).Dist(r.Apply(b)), 1e-8)
	}
}
