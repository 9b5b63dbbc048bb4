package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// A Split is one of the three partitions of a dataset.
type Split int

const (
	Train Split = iota
	Test
	Validation
)

// Splits lists every split in the order they are written.
var Splits = []Split{Train, Test, Validation}

// String gets the split name used for manifests and logs.
func (s Split) String() string {
	switch s {
	case Train:
		return "train"
	case Test:
		return "test"
	case Validation:
		return "validation"
	}
	return fmt.Sprintf("Split(%d)", int(s))
}

// DatasetName gets the group name used in the array store.
func (s Split) DatasetName() string {
	if s == Validation {
		return "val"
	}
	return s.String()
}

// A Pair is one mesh file with its label.
//
// Variation 0 is the mesh itself; higher variations are
// randomly rotated copies.
type Pair struct {
	Path      string
	Label     int
	Variation int
}

// Name identifies the pair in manifests.
func (p Pair) Name() string {
	if p.Variation == 0 {
		return p.Path
	}
	return fmt.Sprintf("%s@rot%d", p.Path, p.Variation)
}

// CollectPairs finds the train and test mesh files of every
// category, in label order and sorted by path within each
// category. Train pairs are repeated once per variation.
//
// Every category must have both a train and a test
// directory.
func CollectPairs(root string, labels *LabelMap, ext string, variations int) (train, test []Pair, err error) {
	if variations < 1 {
		variations = 1
	}
	for id, name := range labels.Names() {
		for _, sub := range []string{"train", "test"} {
			dir := filepath.Join(root, name, sub)
			paths, err := globDir(dir, ext)
			if err != nil {
				return nil, nil, err
			}
			for _, path := range paths {
				if sub == "test" {
					test = append(test, Pair{Path: path, Label: id})
					continue
				}
				for v := 0; v < variations; v++ {
					train = append(train, Pair{Path: path, Label: id, Variation: v})
				}
			}
		}
	}
	return train, test, nil
}

func globDir(dir, ext string) ([]string, error) {
	if !isDir(dir) {
		return nil, errors.Errorf("collect pairs: missing directory %s", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return nil, errors.Wrap(err, "collect pairs")
	}
	sort.Strings(paths)
	return paths, nil
}

// ShuffleAndSplit shuffles the train and test pairs, then
// moves a random half of the test pairs (rounded up) into
// the validation split. One generator seeded with seed
// drives every step, so the same inputs and seed always
// give the same result.
func ShuffleAndSplit(train, test []Pair, seed int64) map[Split][]Pair {
	rng := rand.New(rand.NewSource(seed))
	train = shuffled(rng, train)
	test = shuffled(rng, test)

	perm := rng.Perm(len(test))
	numTest := len(test) / 2
	var testPart, valPart []Pair
	for i, j := range perm {
		if i < numTest {
			testPart = append(testPart, test[j])
		} else {
			valPart = append(valPart, test[j])
		}
	}
	return map[Split][]Pair{
		Train:      train,
		Test:       testPart,
		Validation: valPart,
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func shuffled(rng *rand.Rand, pairs []Pair) []Pair {
	res := append([]Pair{}, pairs...)
	rng.Shuffle(len(res), func(i, j int) {
		res[i], res[j] = res[j], res[i]
	})
	return res
}
