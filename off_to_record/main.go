// Command off_to_record converts a tree of OFF meshes into
// npz mesh records, mirroring the directory structure.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/modelnet-voxels/logging"
	"github.com/unixpickle/modelnet-voxels/meshrec"
	"go.uber.org/zap"
)

const (
	DefaultInputDir  = "ModelNet40/ModelNet40_off"
	DefaultOutputDir = "ModelNet40/ModelNet40_Mat"
)

func main() {
	var inDir, outDir, logLevel string
	var interactive bool
	flag.StringVar(&inDir, "input", DefaultInputDir, "directory of OFF files")
	flag.StringVar(&outDir, "output", DefaultOutputDir, "directory for mesh records")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&interactive, "interactive", false, "prompt for the directories on stdin")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "[flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()
	if len(flag.Args()) != 0 {
		flag.Usage()
	}
	if interactive {
		inDir, outDir = promptDirs(bufio.NewReader(os.Stdin), inDir, outDir)
	}

	logger := logging.New(logging.Options{Level: logLevel, Console: true})
	defer logger.Sync()

	converted, failed, err := ConvertTree(inDir, outDir, logger)
	essentials.Must(err)
	logger.Info("done", zap.Int("converted", converted), zap.Int("failed", failed))
}

// ConvertTree walks inDir and writes an npz record into
// outDir for every OFF file, at the same relative path.
//
// Files that fail to parse are logged and counted, not
// fatal.
func ConvertTree(inDir, outDir string, logger *zap.Logger) (converted, failed int, err error) {
	logger = logging.OrNop(logger)
	err = filepath.Walk(inDir, func(inPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(inDir, inPath)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, relPath)

		if info.IsDir() {
			return os.MkdirAll(outPath, 0755)
		}
		if !strings.EqualFold(filepath.Ext(inPath), meshrec.OFFExt) {
			return nil
		}

		mesh, err := meshrec.ReadOFFFile(inPath)
		if err != nil {
			logger.Warn("skipping unreadable mesh", zap.String("path", inPath), zap.Error(err))
			failed++
			return nil
		}
		outPath = strings.TrimSuffix(outPath, filepath.Ext(outPath)) + meshrec.RecordExt
		if err := meshrec.WriteRecord(outPath, mesh); err != nil {
			return err
		}
		logger.Debug("converted", zap.String("path", inPath), zap.Int("vertices", len(mesh.Vertices)),
			zap.Int("faces", len(mesh.Faces)))
		converted++
		return nil
	})
	return converted, failed, errors.Wrap(err, "convert tree")
}

func promptDirs(r *bufio.Reader, inDir, outDir string) (string, string) {
	ask := func(question, def string, mustExist bool) string {
		fmt.Printf("%s (Default Path is '%s'): ", question, def)
		line, _ := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return def
		}
		if mustExist {
			if info, err := os.Stat(line); err != nil || !info.IsDir() {
				fmt.Printf("Invalid directory: %q. Using default path: %s\n", line, def)
				return def
			}
		}
		return line
	}
	return ask("Please enter the directory path containing OFF files", inDir, true),
		ask("Please enter the directory path to save mesh records", outDir, false)
}
