// Package h5store implements the sample container on top
// of HDF5, so samples can be written and read by index
// without holding a dataset in memory.
package h5store

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/modelnet-voxels/store"
	"gonum.org/v1/hdf5"
)

type datasets struct {
	mat   *hdf5.Dataset
	label *hdf5.Dataset
	valid *hdf5.Dataset
}

// File is an HDF5 sample container. It implements both
// store.Writer and store.Reader.
type File struct {
	file   *hdf5.File
	layout store.Layout
	groups map[string]*datasets
}

// Create creates (or truncates) an HDF5 container with
// zero-filled datasets for every group.
func Create(path string, layout store.Layout) (*File, error) {
	if layout.Resolution <= 0 {
		return nil, errors.New("create hdf5 store: resolution must be positive")
	}
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, errors.Wrap(err, "create hdf5 store")
	}
	res := &File{file: f, layout: layout, groups: map[string]*datasets{}}
	n := uint(layout.Resolution)
	for _, g := range layout.Groups {
		count := uint(g.Count)
		ds := &datasets{}
		res.groups[g.Name] = ds
		entries := []struct {
			target **hdf5.Dataset
			suffix string
			dims   []uint
		}{
			{&ds.mat, store.MatSuffix, []uint{count, n, n, n}},
			{&ds.label, store.LabelSuffix, []uint{count, 1}},
			{&ds.valid, store.ValidSuffix, []uint{count, 1}},
		}
		for _, e := range entries {
			dset, err := createDataset(f, g.Name+e.suffix, e.dims)
			if err != nil {
				res.Close()
				return nil, errors.Wrapf(err, "create hdf5 store: %s%s", g.Name, e.suffix)
			}
			*e.target = dset
		}
	}
	return res, nil
}

// Open opens an existing container for reading, inferring
// the layout from its "<group>_mat" datasets.
func Open(path string) (*File, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrap(err, "open hdf5 store")
	}
	res := &File{file: f, groups: map[string]*datasets{}}
	names, err := groupNames(f)
	if err != nil {
		res.Close()
		return nil, errors.Wrap(err, "open hdf5 store")
	}
	for _, name := range names {
		ds := &datasets{}
		res.groups[name] = ds
		for _, item := range []struct {
			target **hdf5.Dataset
			suffix string
		}{
			{&ds.mat, store.MatSuffix},
			{&ds.label, store.LabelSuffix},
			{&ds.valid, store.ValidSuffix},
		} {
			dset, err := f.OpenDataset(name + item.suffix)
			if err != nil {
				res.Close()
				return nil, errors.Wrapf(err, "open hdf5 store: %s%s", name, item.suffix)
			}
			*item.target = dset
		}
		space := ds.mat.Space()
		dims, _, err := space.SimpleExtentDims()
		space.Close()
		if err != nil || len(dims) != 4 {
			res.Close()
			return nil, errors.Errorf("open hdf5 store: bad shape for %s%s", name, store.MatSuffix)
		}
		res.layout.Resolution = int(dims[1])
		res.layout.Groups = append(res.layout.Groups, store.Group{Name: name, Count: int(dims[0])})
	}
	return res, nil
}

func groupNames(f *hdf5.File) ([]string, error) {
	num, err := f.NumObjects()
	if err != nil {
		return nil, err
	}
	var names []string
	for i := uint(0); i < num; i++ {
		name, err := f.ObjectNameByIndex(i)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(name, store.MatSuffix) {
			names = append(names, strings.TrimSuffix(name, store.MatSuffix))
		}
	}
	return names, nil
}

func (f *File) Layout() store.Layout {
	return f.layout
}

func (f *File) WriteSample(group string, index int, voxels []int8, label int8) error {
	if err := f.layout.CheckSample(group, index, voxels); err != nil {
		return errors.Wrap(err, "write sample")
	}
	ds := f.groups[group]
	n := uint(f.layout.Resolution)
	if err := writeRow(ds.mat, index, []uint{1, n, n, n}, voxels); err != nil {
		return errors.Wrapf(err, "write sample %s[%d]", group, index)
	}
	if err := writeRow(ds.label, index, []uint{1, 1}, []int8{label}); err != nil {
		return errors.Wrapf(err, "write label %s[%d]", group, index)
	}
	if err := writeRow(ds.valid, index, []uint{1, 1}, []int8{1}); err != nil {
		return errors.Wrapf(err, "write valid flag %s[%d]", group, index)
	}
	return nil
}

func (f *File) ReadSample(group string, index int) ([]int8, int8, bool, error) {
	if err := f.layout.CheckSample(group, index, nil); err != nil {
		return nil, 0, false, errors.Wrap(err, "read sample")
	}
	ds := f.groups[group]
	n := uint(f.layout.Resolution)
	voxels := make([]int8, f.layout.SampleSize())
	label := make([]int8, 1)
	valid := make([]int8, 1)
	if err := readRow(ds.mat, index, []uint{1, n, n, n}, voxels); err != nil {
		return nil, 0, false, errors.Wrapf(err, "read sample %s[%d]", group, index)
	}
	if err := readRow(ds.label, index, []uint{1, 1}, label); err != nil {
		return nil, 0, false, errors.Wrapf(err, "read label %s[%d]", group, index)
	}
	if err := readRow(ds.valid, index, []uint{1, 1}, valid); err != nil {
		return nil, 0, false, errors.Wrapf(err, "read valid flag %s[%d]", group, index)
	}
	return voxels, label[0], valid[0] != 0, nil
}

// Close closes every dataset and the file.
func (f *File) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, ds := range f.groups {
		for _, d := range []*hdf5.Dataset{ds.mat, ds.label, ds.valid} {
			if d != nil {
				keep(d.Close())
			}
		}
	}
	keep(f.file.Close())
	return errors.Wrap(firstErr, "close hdf5 store")
}

func createDataset(f *hdf5.File, name string, dims []uint) (*hdf5.Dataset, error) {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return nil, err
	}
	defer space.Close()
	return f.CreateDataset(name, hdf5.T_NATIVE_INT8, space)
}

// rowSpaces selects one row of a dataset in file space and
// creates a matching memory space.
func rowSpaces(dset *hdf5.Dataset, index int, count []uint) (mem, file *hdf5.Dataspace, err error) {
	file = dset.Space()
	offset := make([]uint, len(count))
	offset[0] = uint(index)
	if err := file.SelectHyperslab(offset, nil, count, nil); err != nil {
		file.Close()
		return nil, nil, err
	}
	mem, err = hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return mem, file, nil
}

func writeRow(dset *hdf5.Dataset, index int, count []uint, data []int8) error {
	mem, file, err := rowSpaces(dset, index, count)
	if err != nil {
		return err
	}
	defer mem.Close()
	defer file.Close()
	return dset.WriteSubset(&data, mem, file)
}

func readRow(dset *hdf5.Dataset, index int, count []uint, data []int8) error {
	mem, file, err := rowSpaces(dset, index, count)
	if err != nil {
		return err
	}
	defer mem.Close()
	defer file.Close()
	return dset.ReadSubset(&data, mem, file)
}
