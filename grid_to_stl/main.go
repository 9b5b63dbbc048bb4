// Command grid_to_stl converts a voxel grid into a triangle
// mesh and saves it as an STL file.
//
// The grid is either one sample of an array store, chosen
// with -input, -split and -index, or a JSON-encoded 3D
// array read from stdin with x on the outer dimension,
// then y, then z.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/modelnet-voxels/voxels"
)

func main() {
	var inputPath string
	var split string
	var index int
	var threshold float64
	var outputPath string
	flag.StringVar(&inputPath, "input", "", "array store to read (default: JSON grid on stdin)")
	flag.StringVar(&split, "split", "train", "store group (train, test or val)")
	flag.IntVar(&index, "index", 0, "sample index within the group")
	flag.Float64Var(&threshold, "threshold", 0.5, "minimum value for containment")
	flag.StringVar(&outputPath, "output", "output.stl", "output STL file")
	flag.Parse()

	var grid *voxels.Grid
	var err error
	if inputPath == "" {
		grid, err = ReadVoxelGrid(os.Stdin)
	} else {
		var label int8
		grid, label, err = ReadStoreSample(inputPath, split, index)
		if err == nil {
			log.Printf("Sample %s[%d] has label %d and occupancy %.3f", split, index, label,
				grid.Occupancy())
		}
	}
	essentials.Must(err)

	solid := &VoxelGrid{Grid: grid, Threshold: threshold}
	mesh := model3d.MarchingCubesSearch(solid, 0.5, 8)
	essentials.Must(mesh.SaveGroupedSTL(outputPath))
}
