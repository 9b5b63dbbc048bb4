package voxels

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
)

// A ResamplePolicy decides how oversized grids are reduced
// towards the target resolution.
type ResamplePolicy int

const (
	// ResampleFit picks the smallest block size that
	// brings every axis to at most n cells, keeping the
	// partial trailing block.
	ResampleFit ResamplePolicy = iota

	// ResampleLegacy uses a block size of max(1, raw/n) and
	// drops the trailing partial block. The result may
	// still exceed n, in which case Pad rejects it.
	ResampleLegacy
)

// ParseResamplePolicy parses "fit" or "legacy".
func ParseResamplePolicy(s string) (ResamplePolicy, error) {
	switch s {
	case "fit":
		return ResampleFit, nil
	case "legacy":
		return ResampleLegacy, nil
	}
	return 0, errors.Errorf("unknown resample policy: %q", s)
}

func (r ResamplePolicy) String() string {
	if r == ResampleLegacy {
		return "legacy"
	}
	return "fit"
}

// BlockSize gets the pooling block size for an axis with
// raw cells and a target of n cells.
func (r ResamplePolicy) BlockSize(raw, n int) int {
	if r == ResampleLegacy {
		return essentials.MaxInt(1, raw/n)
	}
	return essentials.MaxInt(1, (raw+n-1)/n)
}

// OutputSize gets the pooled length of an axis.
func (r ResamplePolicy) OutputSize(raw, n int) int {
	block := r.BlockSize(raw, n)
	if r == ResampleLegacy {
		return raw / block
	}
	return (raw + block - 1) / block
}

// Resample reduces a grid with block-wise max pooling.
//
// Grids that are already n x n x n are returned as-is.
// Resampling never increases an axis, so an undersized
// axis is left for Pad to fill.
func Resample(g *Grid, n int, policy ResamplePolicy) *Grid {
	if g.IsCube(n) {
		return g
	}
	var block, out [3]int
	for i, raw := range g.Shape {
		block[i] = policy.BlockSize(raw, n)
		out[i] = policy.OutputSize(raw, n)
	}
	res := NewGrid(out[0], out[1], out[2])
	for x := 0; x < out[0]*block[0] && x < g.Shape[0]; x++ {
		for y := 0; y < out[1]*block[1] && y < g.Shape[1]; y++ {
			for z := 0; z < out[2]*block[2] && z < g.Shape[2]; z++ {
				v := g.At(x, y, z)
				idx := res.Index(x/block[0], y/block[1], z/block[2])
				if v > res.Data[idx] {
					res.Data[idx] = v
				}
			}
		}
	}
	return res
}

// Pad extends a grid with empty cells on the high side of
// each axis until it is n x n x n.
func Pad(g *Grid, n int) (*Grid, error) {
	if g.IsCube(n) {
		return g, nil
	}
	for i, size := range g.Shape {
		if size > n {
			return nil, errors.Wrapf(ErrOversized, "axis %d has %d cells, target is %d", i, size, n)
		}
	}
	res := NewCubeGrid(n)
	for x := 0; x < g.Shape[0]; x++ {
		for y := 0; y < g.Shape[1]; y++ {
			src := g.Index(x, y, 0)
			copy(res.Data[res.Index(x, y, 0):], g.Data[src:src+g.Shape[2]])
		}
	}
	return res, nil
}
