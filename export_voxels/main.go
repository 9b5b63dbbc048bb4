// Command export_voxels converts a ModelNet tree of mesh
// records into a voxel dataset.
//
// The input directory holds one directory per category,
// each with train/ and test/ subdirectories of meshes. The
// output is a single array store with train, test and val
// groups plus one text manifest per split.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/unixpickle/modelnet-voxels/catalog"
	"github.com/unixpickle/modelnet-voxels/config"
	"github.com/unixpickle/modelnet-voxels/dataset"
	"github.com/unixpickle/modelnet-voxels/logging"
	"github.com/unixpickle/modelnet-voxels/store"
	"github.com/unixpickle/modelnet-voxels/store/backend"
	"go.uber.org/zap"
)

func main() {
	cfg, opts, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.Interactive {
		config.Prompt(os.Stdin, os.Stdout, cfg)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
	})
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run", runID))
	if err := Export(cfg, runID, logger); err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}
}

// Export runs the whole build described by cfg.
func Export(cfg *config.Config, runID string, logger *zap.Logger) error {
	labels, err := dataset.DiscoverCategories(cfg.InputDir, cfg.Exclude)
	if err != nil {
		return err
	}
	logger.Info("discovered categories", zap.Int("count", labels.Len()),
		zap.Strings("names", labels.Names()))

	train, test, err := dataset.CollectPairs(cfg.InputDir, labels, cfg.Extension, cfg.Variations)
	if err != nil {
		return err
	}
	splits := dataset.ShuffleAndSplit(train, test, cfg.Seed)
	for _, s := range dataset.Splits {
		logger.Info("split", zap.Stringer("split", s), zap.Int("count", len(splits[s])))
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	if err := labels.WriteFile(filepath.Join(cfg.OutputDir, "labels.txt")); err != nil {
		return err
	}

	assembler := &dataset.Assembler{
		Converter: cfg.Converter(),
		Create: func(layout store.Layout) (store.Writer, error) {
			return backend.Create(cfg.StorePath(), cfg.Format, layout)
		},
		ManifestDir: cfg.OutputDir,
		Workers:     cfg.Workers,
		Seed:        cfg.Seed,
		Logger:      logger,
	}
	if cfg.Catalog != "" {
		c, err := catalog.Open(cfg.Catalog, runID)
		if err != nil {
			return err
		}
		defer c.Close()
		assembler.Recorder = c
	}

	report, err := assembler.Run(splits)
	if err != nil {
		return err
	}
	for _, s := range report.Splits {
		logger.Info("summary",
			zap.Stringer("split", s.Split),
			zap.Int("total", s.Total),
			zap.Int("written", s.Written),
			zap.Int("skipped", s.Skipped),
			zap.Float64("mean_occupancy", s.MeanOccupancy),
			zap.Float64("std_occupancy", s.StdOccupancy))
	}
	logger.Info("wrote dataset", zap.String("path", cfg.StorePath()),
		zap.Int("written", report.Written()), zap.Int("skipped", report.Skipped()))
	return nil
}
