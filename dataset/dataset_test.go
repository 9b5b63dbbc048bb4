package dataset

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/modelnet-voxels/meshrec"
	"github.com/unixpickle/modelnet-voxels/store"
	"github.com/unixpickle/modelnet-voxels/voxels"
)

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
		{0, 2, 1}, {1, 2, 3},
		{4, 5, 6}, {5, 7, 6},
		{0, 1, 4}, {1, 5, 4},
		{2, 6, 3}, {3, 6, 7},
		{0, 4, 2}, {2, 4, 6},
		{1, 3, 5}, {3, 7, 5},
	}
	return m
}

// writeTree creates root/<cat>/{train,test}/<n>.npz records
// and returns the root.
func writeTree(t *testing.T, counts map[string][2]int) string {
	root := t.TempDir()
	for cat, c := range counts {
		for i, sub := range []string{"train", "test"} {
			dir := filepath.Join(root, cat, sub)
			require.NoError(t, os.MkdirAll(dir, 0755))
			for j := 0; j < c[i]; j++ {
				mesh := boxMesh(model3d.XYZ(0, 0, 0), model3d.XYZ(1, 2, 3+float64(j)))
				path := filepath.Join(dir, cat+"_"+strconv.Itoa(j)+".npz")
				require.NoError(t, meshrec.WriteRecord(path, mesh))
			}
		}
	}
	return root
}

func TestDiscoverCategories(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"table", "bed", ".hidden", "desk"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.txt"), nil, 0644))

	labels, err := DiscoverCategories(root, []string{"desk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bed", "table"}, labels.Names())
	assert.Equal(t, 2, labels.Len())
	for i, name := range labels.Names() {
		id, ok := labels.ID(name)
		assert.True(t, ok)
		assert.Equal(t, i, id)
		back, ok := labels.Name(id)
		assert.True(t, ok)
		assert.Equal(t, name, back)
	}
	_, ok := labels.Name(2)
	assert.False(t, ok)
	_, ok = labels.ID("desk")
	assert.False(t, ok)

	_, err = DiscoverCategories(filepath.Join(root, "desk"), nil)
	assert.Error(t, err)
}

func TestNewLabelMapErrors(t *testing.T) {
	_, err := NewLabelMap([]string{"a", "b", "a"})
	assert.Error(t, err)

	names := make([]string, MaxLabels+1)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	_, err = NewLabelMap(names)
	assert.Error(t, err)
	_, err = NewLabelMap(names[:MaxLabels])
	assert.NoError(t, err)
}

func TestLabelMapWriteFile(t *testing.T) {
	labels, err := NewLabelMap([]string{"bathtub", "bed"})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, labels.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0 bathtub\n1 bed\n", string(data))
}

func TestCollectPairs(t *testing.T) {
	root := writeTree(t, map[string][2]int{"bed": {2, 1}, "chair": {1, 2}})
	labels, err := DiscoverCategories(root, nil)
	require.NoError(t, err)

	train, test, err := CollectPairs(root, labels, ".npz", 2)
	require.NoError(t, err)
	assert.Len(t, train, 6)
	assert.Len(t, test, 3)
	for _, p := range append(train, test...) {
		name, _ := labels.Name(p.Label)
		assert.True(t, strings.HasPrefix(filepath.Base(p.Path), name+"_"), p.Path)
	}
	assert.Equal(t, train[0].Path, train[1].Path)
	assert.Equal(t, train[0].Path, train[0].Name())
	assert.Equal(t, train[1].Path+"@rot1", train[1].Name())

	_, test, err = CollectPairs(root, labels, ".off", 1)
	require.NoError(t, err)
	assert.Empty(t, test)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "chair", "test")))
	_, _, err = CollectPairs(root, labels, ".npz", 1)
	assert.Error(t, err)
}

func TestShuffleAndSplit(t *testing.T) {
	var train, test []Pair
	for i := 0; i < 20; i++ {
		train = append(train, Pair{Path: "train" + strconv.Itoa(i), Label: i % 3})
	}
	for i := 0; i < 7; i++ {
		test = append(test, Pair{Path: "test" + strconv.Itoa(i), Label: i % 3})
	}

	splits := ShuffleAndSplit(train, test, 448)
	assert.Len(t, splits[Train], 20)
	assert.Len(t, splits[Test], 3)
	assert.Len(t, splits[Validation], 4)
	assert.ElementsMatch(t, train, splits[Train])
	assert.ElementsMatch(t, test, append(append([]Pair{}, splits[Test]...), splits[Validation]...))
	assert.Equal(t, "train0", train[0].Path, "inputs must not be modified")

	again := ShuffleAndSplit(train, test, 448)
	if diff := cmp.Diff(splits, again); diff != "" {
		t.Errorf("split is not deterministic (-first +second):\n%s", diff)
	}
	other := ShuffleAndSplit(train, test, 449)
	assert.NotEqual(t, splits[Train], other[Train])

	empty := ShuffleAndSplit(nil, nil, 1)
	assert.Empty(t, empty[Test])
	assert.Empty(t, empty[Validation])
}

func TestShuffleAndSplitStreams(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 10; i++ {
		pairs = append(pairs, Pair{Path: "mesh" + strconv.Itoa(i)})
	}
	splits := ShuffleAndSplit(pairs, pairs, 448)

	rng := rand.New(rand.NewSource(448))
	trainOrder := shuffled(rng, pairs)
	testOrder := shuffled(rng, pairs)
	perm := rng.Perm(len(pairs))
	var wantTest, wantVal []Pair
	for i, j := range perm {
		if i < 5 {
			wantTest = append(wantTest, testOrder[j])
		} else {
			wantVal = append(wantVal, testOrder[j])
		}
	}

	assert.Equal(t, trainOrder, splits[Train])
	assert.Equal(t, wantTest, splits[Test])
	assert.Equal(t, wantVal, splits[Validation])
	assert.NotEqual(t, trainOrder, testOrder, "train and test shuffles must not repeat")
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, "validation", Validation.String())
	assert.Equal(t, "val", Validation.DatasetName())
	assert.Equal(t, "test", Test.DatasetName())
	assert.Equal(t, "train", Train.DatasetName())
	assert.Equal(t, filepath.Join("out", "validation.txt"), ManifestPath("out", Validation))
}

type memRecorder struct {
	rows map[string]int
}

func (m *memRecorder) Record(split string, index int, path string, label int, occupancy float64) error {
	m.rows[split]++
	return nil
}

func TestAssemblerRun(t *testing.T) {
	root := writeTree(t, map[string][2]int{"bed": {3, 2}, "chair": {2, 3}})
	broken := boxMesh(model3d.XYZ(0, 0, 0), model3d.XYZ(1, 1, 1))
	broken.Vertices[3].Y = math.NaN()
	brokenPath := filepath.Join(root, "chair", "test", "chair_nan.npz")
	require.NoError(t, meshrec.WriteRecord(brokenPath, broken))

	labels, err := DiscoverCategories(root, nil)
	require.NoError(t, err)
	train, test, err := CollectPairs(root, labels, ".npz", 1)
	require.NoError(t, err)
	splits := ShuffleAndSplit(train, test, 448)

	out := t.TempDir()
	storePath := store.Path(out, "object", store.FormatNPZ)
	recorder := &memRecorder{rows: map[string]int{}}
	a := &Assembler{
		Converter: &voxels.Converter{Resolution: 8},
		Create: func(layout store.Layout) (store.Writer, error) {
			return store.CreateNPZ(storePath, layout)
		},
		ManifestDir: out,
		Workers:     3,
		Recorder:    recorder,
	}
	report, err := a.Run(splits)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped())
	assert.Equal(t, 5+5, report.Written())
	assert.Equal(t, 5, report.Splits[0].Written)
	assert.InDelta(t, 1.0, report.Splits[0].MeanOccupancy, 1e-9)
	assert.InDelta(t, 0.0, report.Splits[0].StdOccupancy, 1e-9)

	r, err := store.OpenNPZ(storePath)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 8, r.Layout().Resolution)

	for _, s := range Splits {
		data, err := os.ReadFile(ManifestPath(out, s))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(data) == 0 {
			lines = nil
		}
		var written []string
		for i, pair := range splits[s] {
			cells, label, valid, err := r.ReadSample(s.DatasetName(), i)
			require.NoError(t, err)
			var sum int
			for _, v := range cells {
				sum += int(v)
			}
			if pair.Path == brokenPath {
				assert.False(t, valid)
				assert.Equal(t, 0, sum)
				assert.Equal(t, int8(0), label)
				continue
			}
			assert.True(t, valid)
			assert.Equal(t, 512, sum)
			assert.Equal(t, int8(pair.Label), label)
			written = append(written, pair.Path+", "+strconv.Itoa(pair.Label))
		}
		assert.Equal(t, written, lines, s.String())
		assert.Equal(t, len(written), recorder.rows[s.String()])
	}
}

func TestAssemblerLoadError(t *testing.T) {
	a := &Assembler{
		Converter: &voxels.Converter{Resolution: 4},
		Create: func(layout store.Layout) (store.Writer, error) {
			return store.CreateNPZ(filepath.Join(t.TempDir(), "x.npz"), layout)
		},
		ManifestDir: t.TempDir(),
	}
	_, err := a.Run(map[Split][]Pair{Train: {{Path: "/does/not/exist.npz"}}})
	assert.Error(t, err)
}

func TestAssemblerVariations(t *testing.T) {
	mesh := boxMesh(model3d.XYZ(0, 0, 0), model3d.XYZ(1, 3, 5))
	a := &Assembler{
		Converter: &voxels.Converter{Resolution: 8},
		Load: func(path string) (*meshrec.Mesh, error) {
			return mesh, nil
		},
		Seed: 3,
	}
	p := Pair{Path: "box.npz", Variation: 1}
	first := a.convert(p)
	second := a.convert(p)
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, first.grid.Data, second.grid.Data)

	seeds := map[int64]bool{}
	for v := 0; v < 4; v++ {
		seeds[pairSeed(3, Pair{Path: "box.npz", Variation: v})] = true
	}
	assert.Len(t, seeds, 4)
}
