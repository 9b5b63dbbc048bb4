package dataset

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/modelnet-voxels/logging"
	"github.com/unixpickle/modelnet-voxels/meshrec"
	"github.com/unixpickle/modelnet-voxels/store"
	"github.com/unixpickle/modelnet-voxels/voxels"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const DefaultProgressEvery = 50

// A Recorder is notified of every sample written to the
// store.
type Recorder interface {
	Record(split string, index int, path string, label int, occupancy float64) error
}

// An Assembler converts shuffled pairs and writes them to an
// array store, one group per split, along with a text
// manifest per split.
type Assembler struct {
	Converter *voxels.Converter

	// Create opens the array store once the group sizes are
	// known.
	Create func(layout store.Layout) (store.Writer, error)

	// Load reads a mesh file. Defaults to meshrec.Load.
	Load func(path string) (*meshrec.Mesh, error)

	// ManifestDir receives train.txt, test.txt and
	// validation.txt.
	ManifestDir string

	// Workers is the number of meshes converted at once.
	Workers int

	// Seed determines the rotations of augmented pairs.
	Seed int64

	// Recorder is optional.
	Recorder Recorder

	Logger        *zap.Logger
	ProgressEvery int
}

// A SplitReport summarizes the samples of one split.
type SplitReport struct {
	Split   Split
	Total   int
	Written int
	Skipped int

	MeanOccupancy float64
	StdOccupancy  float64
}

// A Report summarizes a run.
type Report struct {
	Splits []SplitReport
}

// Written gets the number of samples written to all splits.
func (r *Report) Written() int {
	var n int
	for _, s := range r.Splits {
		n += s.Written
	}
	return n
}

// Skipped gets the number of invalid meshes across splits.
func (r *Report) Skipped() int {
	var n int
	for _, s := range r.Splits {
		n += s.Skipped
	}
	return n
}

type conversion struct {
	grid *voxels.Grid
	err  error
}

// Run converts every pair and writes the result.
//
// Each pair is written at its index within its split, so a
// skipped mesh leaves a zero-filled slot that is never
// marked valid and never appears in the manifest. Invalid
// meshes are skipped; any other error stops the run.
func (a *Assembler) Run(splits map[Split][]Pair) (report *Report, err error) {
	logger := logging.OrNop(a.Logger)
	layout := store.Layout{Resolution: a.Converter.Resolution}
	for _, s := range Splits {
		layout.Groups = append(layout.Groups, store.Group{Name: s.DatasetName(), Count: len(splits[s])})
	}
	w, err := a.Create(layout)
	if err != nil {
		return nil, errors.Wrap(err, "create store")
	}
	defer func() {
		if closeErr := w.Close(); err == nil && closeErr != nil {
			report, err = nil, errors.Wrap(closeErr, "close store")
		}
	}()

	report = &Report{}
	for _, s := range Splits {
		sr, err := a.runSplit(w, s, splits[s], logger)
		if err != nil {
			return nil, err
		}
		logger.Info("split complete",
			zap.Stringer("split", s),
			zap.Int("written", sr.Written),
			zap.Int("skipped", sr.Skipped),
			zap.Float64("mean_occupancy", sr.MeanOccupancy))
		report.Splits = append(report.Splits, sr)
	}
	return report, nil
}

func (a *Assembler) runSplit(w store.Writer, s Split, pairs []Pair, logger *zap.Logger) (sr SplitReport, err error) {
	sr = SplitReport{Split: s, Total: len(pairs)}
	manifest, err := CreateManifest(a.ManifestDir, s)
	if err != nil {
		return sr, err
	}
	defer func() {
		if closeErr := manifest.Close(); err == nil {
			err = closeErr
		}
	}()

	workers := essentials.MaxInt(a.Workers, 1)
	progress := a.ProgressEvery
	if progress <= 0 {
		progress = DefaultProgressEvery
	}

	var occupancies []float64
	for start := 0; start < len(pairs); start += workers * 4 {
		window := pairs[start:essentials.MinInt(len(pairs), start+workers*4)]
		results := make([]conversion, len(window))
		essentials.ConcurrentMap(workers, len(window), func(i int) {
			results[i] = a.convert(window[i])
		})

		for i, res := range results {
			index := start + i
			pair := window[i]
			if (index+1)%progress == 0 {
				logger.Info("progress", zap.Stringer("split", s), zap.Int("index", index+1),
					zap.Int("total", len(pairs)))
			}
			if res.err != nil {
				if !voxels.IsInvalid(res.err) {
					return sr, errors.Wrapf(res.err, "convert %s", pair.Name())
				}
				logger.Warn("skipping invalid mesh", zap.String("path", pair.Name()),
					zap.Stringer("split", s), zap.Int("index", index), zap.Error(res.err))
				sr.Skipped++
				continue
			}
			if err := w.WriteSample(s.DatasetName(), index, res.grid.Int8(), int8(pair.Label)); err != nil {
				return sr, errors.Wrapf(err, "write %s[%d]", s.DatasetName(), index)
			}
			if err := manifest.Add(pair); err != nil {
				return sr, err
			}
			occupancy := res.grid.Occupancy()
			if a.Recorder != nil {
				err := a.Recorder.Record(s.String(), index, pair.Name(), pair.Label, occupancy)
				if err != nil {
					return sr, err
				}
			}
			logger.Debug("wrote sample", zap.String("path", pair.Name()), zap.Stringer("split", s),
				zap.Int("index", index), zap.Int("label", pair.Label))
			occupancies = append(occupancies, occupancy)
			sr.Written++
		}
	}

	switch len(occupancies) {
	case 0:
	case 1:
		sr.MeanOccupancy = occupancies[0]
	default:
		sr.MeanOccupancy, sr.StdOccupancy = stat.MeanStdDev(occupancies, nil)
	}
	return sr, nil
}

func (a *Assembler) convert(p Pair) conversion {
	load := a.Load
	if load == nil {
		load = meshrec.Load
	}
	mesh, err := load(p.Path)
	if err != nil {
		return conversion{err: err}
	}
	if p.Variation > 0 {
		mesh = voxels.Rotate(mesh, rand.New(rand.NewSource(pairSeed(a.Seed, p))))
	}
	grid, err := a.Converter.Convert(mesh)
	return conversion{grid: grid, err: err}
}

// pairSeed derives a rotation seed from the pair alone, so
// rotations do not depend on scheduling.
func pairSeed(seed int64, p Pair) int64 {
	h := fnv.New64a()
	h.Write([]byte(p.Path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(p.Variation)))
	return seed ^ int64(h.Sum64())
}
