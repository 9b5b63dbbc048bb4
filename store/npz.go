package store

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
)

// NPZWriter buffers every dataset in memory and writes an
// npz archive when closed.
type NPZWriter struct {
	path   string
	layout Layout

	mats   map[string][]int8
	labels map[string][]int8
	valid  map[string][]int8
}

// CreateNPZ creates an npz container. Nothing is written
// to path until Close.
func CreateNPZ(path string, layout Layout) (*NPZWriter, error) {
	if layout.Resolution <= 0 {
		return nil, errors.New("create npz store: resolution must be positive")
	}
	n := &NPZWriter{
		path:   path,
		layout: layout,
		mats:   map[string][]int8{},
		labels: map[string][]int8{},
		valid:  map[string][]int8{},
	}
	for _, g := range layout.Groups {
		if _, ok := n.mats[g.Name]; ok {
			return nil, errors.Errorf("create npz store: duplicate group %q", g.Name)
		}
		n.mats[g.Name] = make([]int8, g.Count*layout.SampleSize())
		n.labels[g.Name] = make([]int8, g.Count)
		n.valid[g.Name] = make([]int8, g.Count)
	}
	return n, nil
}

func (n *NPZWriter) Layout() Layout {
	return n.layout
}

func (n *NPZWriter) WriteSample(group string, index int, voxels []int8, label int8) error {
	if err := n.layout.CheckSample(group, index, voxels); err != nil {
		return errors.Wrap(err, "write sample")
	}
	size := n.layout.SampleSize()
	copy(n.mats[group][index*size:(index+1)*size], voxels)
	n.labels[group][index] = label
	n.valid[group][index] = 1
	return nil
}

// Close writes the archive.
func (n *NPZWriter) Close() error {
	if err := n.save(); err != nil {
		return errors.Wrap(err, "save npz store")
	}
	return nil
}

func (n *NPZWriter) save() error {
	w, err := os.Create(n.path)
	if err != nil {
		return err
	}
	defer w.Close()
	zipWriter := zip.NewWriter(w)
	res := n.layout.Resolution
	for _, g := range n.layout.Groups {
		arrays := []struct {
			suffix string
			shape  []int
			data   []int8
		}{
			{MatSuffix, []int{g.Count, res, res, res}, n.mats[g.Name]},
			{LabelSuffix, []int{g.Count, 1}, n.labels[g.Name]},
			{ValidSuffix, []int{g.Count, 1}, n.valid[g.Name]},
		}
		for _, arr := range arrays {
			fileWriter, err := zipWriter.Create(g.Name + arr.suffix + ".npy")
			if err != nil {
				return err
			}
			if _, err := fileWriter.Write(EncodeNumpy(arr.shape, arr.data)); err != nil {
				return err
			}
		}
	}
	if err := zipWriter.Close(); err != nil {
		return err
	}
	return w.Close()
}

// EncodeNumpy encodes a C-ordered int8 array as a version
// 1.0 .npy file.
func EncodeNumpy(shape []int, data []int8) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	dict := fmt.Sprintf("{'descr': '|i1', 'fortran_order': False, 'shape': (%s), }", shapeStr)

	// Magic, version and length take 10 bytes; the whole
	// header is padded to a multiple of 64 and ends with a
	// newline.
	headerLen := len(dict) + 1
	for (10+headerLen)%64 != 0 {
		headerLen++
	}
	header := make([]byte, 0, 10+headerLen+len(data))
	header = append(header, "\x93NUMPY\x01\x00"...)
	header = append(header, byte(headerLen), byte(headerLen>>8))
	header = append(header, dict...)
	for len(header) < 10+headerLen-1 {
		header = append(header, ' ')
	}
	header = append(header, '\n')
	for _, x := range data {
		header = append(header, byte(x))
	}
	return header
}

// NPZReader reads a container written by NPZWriter.
//
// Datasets are decoded lazily, one whole dataset at a time.
type NPZReader struct {
	file   *os.File
	zip    *zip.Reader
	layout Layout
	cache  map[string][]int8
}

// OpenNPZ opens an npz container and infers its layout
// from the dataset headers.
func OpenNPZ(path string) (*NPZReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open npz store")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "open npz store")
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "open npz store")
	}
	r := &NPZReader{file: f, zip: zr, cache: map[string][]int8{}}
	for _, entry := range zr.File {
		name := strings.TrimSuffix(entry.Name, ".npy")
		if !strings.HasSuffix(name, MatSuffix) {
			continue
		}
		shape, err := r.shape(entry)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "open npz store: %s", name)
		}
		if len(shape) != 4 {
			f.Close()
			return nil, errors.Errorf("open npz store: %s has shape %v", name, shape)
		}
		r.layout.Resolution = shape[1]
		r.layout.Groups = append(r.layout.Groups, Group{
			Name:  strings.TrimSuffix(name, MatSuffix),
			Count: shape[0],
		})
	}
	return r, nil
}

func (r *NPZReader) Layout() Layout {
	return r.layout
}

func (r *NPZReader) ReadSample(group string, index int) ([]int8, int8, bool, error) {
	if err := r.layout.CheckSample(group, index, nil); err != nil {
		return nil, 0, false, errors.Wrap(err, "read sample")
	}
	mat, err := r.dataset(group + MatSuffix)
	if err != nil {
		return nil, 0, false, err
	}
	labels, err := r.dataset(group + LabelSuffix)
	if err != nil {
		return nil, 0, false, err
	}
	valid, err := r.dataset(group + ValidSuffix)
	if err != nil {
		return nil, 0, false, err
	}
	size := r.layout.SampleSize()
	voxels := append([]int8{}, mat[index*size:(index+1)*size]...)
	return voxels, labels[index], valid[index] != 0, nil
}

func (r *NPZReader) Close() error {
	return r.file.Close()
}

func (r *NPZReader) shape(entry *zip.File) ([]int, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	npy, err := npyio.NewReader(rc)
	if err != nil {
		return nil, err
	}
	return npy.Header.Descr.Shape, nil
}

func (r *NPZReader) dataset(name string) ([]int8, error) {
	if data, ok := r.cache[name]; ok {
		return data, nil
	}
	for _, entry := range r.zip.File {
		if entry.Name != name+".npy" {
			continue
		}
		data, err := readInt8(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "read dataset %s", name)
		}
		r.cache[name] = data
		return data, nil
	}
	return nil, errors.Errorf("read dataset %s: not found", name)
}

func readInt8(entry *zip.File) ([]int8, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	npy, err := npyio.NewReader(rc)
	if err != nil {
		return nil, err
	}
	size := 1
	for _, d := range npy.Header.Descr.Shape {
		size *= d
	}
	data := make([]int8, size)
	if err := npy.Read(&data); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}
