// Package config holds the settings of the dataset build.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/modelnet-voxels/store"
	"github.com/unixpickle/modelnet-voxels/voxels"
	"gopkg.in/yaml.v3"
)

// Defaults used when a value is missing or invalid.
const (
	DefaultResolution = 32
	DefaultFilename   = "object40"
	DefaultInputDir   = "ModelNet40/ModelNet40_Mat"
	DefaultOutputDir  = "."
	DefaultSeed       = 448
)

// Config holds every setting of a build.
type Config struct {
	InputDir   string   `yaml:"input_dir"`
	OutputDir  string   `yaml:"output_dir"`
	Filename   string   `yaml:"filename"`
	Format     string   `yaml:"format"`
	Resolution int      `yaml:"resolution"`
	Extension  string   `yaml:"extension"`
	Exclude    []string `yaml:"exclude"`
	Seed       int64    `yaml:"seed"`
	Workers    int      `yaml:"workers"`
	Variations int      `yaml:"variations"`
	Interior   string   `yaml:"interior"`
	Resample   string   `yaml:"resample"`
	Catalog    string   `yaml:"catalog"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		InputDir:   DefaultInputDir,
		OutputDir:  DefaultOutputDir,
		Filename:   DefaultFilename,
		Format:     store.FormatHDF5,
		Resolution: DefaultResolution,
		Extension:  ".npz",
		Seed:       DefaultSeed,
		Workers:    1,
		Variations: 1,
		Interior:   "parity",
		Resample:   "fit",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "save config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "save config")
}

// BindFlags registers a flag for every setting, using the
// current values as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.InputDir, "input", c.InputDir, "directory of category/{train,test} mesh records")
	fs.StringVar(&c.OutputDir, "output", c.OutputDir, "directory for the store and manifests")
	fs.StringVar(&c.Filename, "filename", c.Filename, "store file name without extension")
	fs.StringVar(&c.Format, "format", c.Format, "store format (hdf5 or npz)")
	fs.IntVar(&c.Resolution, "resolution", c.Resolution, "number of voxels along each dimension")
	fs.StringVar(&c.Extension, "ext", c.Extension, "mesh file extension (.npz or .off)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for shuffling and splitting")
	fs.IntVar(&c.Workers, "workers", c.Workers, "number of concurrent conversions")
	fs.IntVar(&c.Variations, "variations", c.Variations, "number of random rotations per training mesh")
	fs.StringVar(&c.Interior, "interior", c.Interior, "interior fill mode (parity or flood)")
	fs.StringVar(&c.Resample, "resample", c.Resample, "resample policy (fit or legacy)")
	fs.StringVar(&c.Catalog, "catalog", c.Catalog, "optional SQLite catalog path")
	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Logging.File, "log-file", c.Logging.File, "optional log file")
	fs.Func("exclude", "comma-separated categories to skip", func(s string) error {
		for _, name := range strings.Split(s, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Exclude = append(c.Exclude, name)
			}
		}
		return nil
	})
}

// Options are the command-line switches that are not part
// of the configuration itself.
type Options struct {
	ConfigPath  string
	Interactive bool
}

// Parse builds a configuration from command-line arguments.
// Values come from the defaults, then the -config file if
// one is given, then the remaining flags.
func Parse(name string, args []string) (*Config, *Options, error) {
	parse := func(cfg *Config) (*Options, error) {
		opts := &Options{}
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.StringVar(&opts.ConfigPath, "config", "", "YAML configuration file")
		fs.BoolVar(&opts.Interactive, "interactive", false, "prompt for the main settings on stdin")
		cfg.BindFlags(fs)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() > 0 {
			return nil, errors.Errorf("unexpected arguments: %v", fs.Args())
		}
		return opts, nil
	}

	cfg := Default()
	opts, err := parse(cfg)
	if err != nil {
		return nil, nil, err
	}
	if opts.ConfigPath == "" {
		return cfg, opts, nil
	}
	cfg, err = Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	// Flags take priority over the file, and the file's
	// exclude list is extended rather than replaced.
	opts, err = parse(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, opts, nil
}

// Validate checks every setting, returning the first
// problem found.
func (c *Config) Validate() error {
	if c.Resolution <= 0 {
		return errors.Errorf("resolution must be positive, got %d", c.Resolution)
	}
	if c.Format != store.FormatHDF5 && c.Format != store.FormatNPZ {
		return errors.Errorf("unknown format %q", c.Format)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Variations < 1 {
		return errors.Errorf("variations must be at least 1, got %d", c.Variations)
	}
	if _, err := voxels.ParseInterior(c.Interior); err != nil {
		return err
	}
	if _, err := voxels.ParseResamplePolicy(c.Resample); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Extension, ".") {
		return errors.Errorf("extension must start with a dot, got %q", c.Extension)
	}
	if c.Filename == "" || strings.ContainsRune(c.Filename, filepath.Separator) {
		return errors.Errorf("invalid filename %q", c.Filename)
	}
	return nil
}

// Converter creates the mesh converter described by the
// configuration. The configuration must be valid.
func (c *Config) Converter() *voxels.Converter {
	interior, _ := voxels.ParseInterior(c.Interior)
	policy, _ := voxels.ParseResamplePolicy(c.Resample)
	return &voxels.Converter{
		Resolution: c.Resolution,
		Interior:   interior,
		Resample:   policy,
	}
}

// StorePath gets the path of the output container.
func (c *Config) StorePath() string {
	return store.Path(c.OutputDir, c.Filename, c.Format)
}
