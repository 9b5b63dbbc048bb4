package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Prompt asks for the input directory, output directory,
// resolution and store file name, one line each. Blank or
// invalid answers keep the default for that setting and
// print a notice; they never fail.
func Prompt(in io.Reader, out io.Writer, c *Config) {
	r := bufio.NewReader(in)
	ask := func(question string) string {
		fmt.Fprint(out, question)
		line, _ := r.ReadString('\n')
		return strings.TrimSpace(line)
	}

	if dir := ask(fmt.Sprintf("Please enter the directory path containing mesh records (Default Path is '%s'): ", DefaultInputDir)); isDir(dir) {
		c.InputDir = dir
	} else {
		fmt.Fprintf(out, "Invalid input directory: %q. Using default input path: %s\n", dir, DefaultInputDir)
		c.InputDir = DefaultInputDir
	}

	if dir := ask(fmt.Sprintf("Please enter the output directory path (Default Path is '%s'): ", DefaultOutputDir)); isDir(dir) {
		c.OutputDir = dir
	} else {
		fmt.Fprintf(out, "Invalid output directory: %q. Using default output path: %s\n", dir, DefaultOutputDir)
		c.OutputDir = DefaultOutputDir
	}

	answer := ask(fmt.Sprintf("Please enter the target voxel size (Default Value is %d): ", DefaultResolution))
	if size, ok := ParseResolution(answer); ok {
		c.Resolution = size
	} else {
		fmt.Fprintf(out, "Invalid input. Using default box size value of '%d'.\n", DefaultResolution)
		c.Resolution = DefaultResolution
	}

	name := ask(fmt.Sprintf("Please enter the name of the file to save the dataset to without extension (Default file name is '%s'): ", DefaultFilename))
	c.Filename = ParseFilename(name)
	if c.Filename == DefaultFilename && name != DefaultFilename {
		fmt.Fprintf(out, "Using default file name '%s'.\n", DefaultFilename)
	}
}

// ParseResolution parses a voxel size. Fractional values
// are truncated; non-positive values are rejected.
func ParseResolution(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 1 || f > 1<<12 {
		return 0, false
	}
	return int(f), true
}

// ParseFilename cleans a store file name, dropping a known
// container extension and falling back to DefaultFilename.
func ParseFilename(s string) string {
	s = strings.TrimSpace(s)
	for _, ext := range []string{".hdf5", ".h5", ".npz"} {
		s = strings.TrimSuffix(s, ext)
	}
	if s == "" || strings.ContainsAny(s, `/\`) {
		return DefaultFilename
	}
	return s
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
