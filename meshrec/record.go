package meshrec

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio/npz"
	"github.com/unixpickle/model3d/model3d"
)

// Array names inside a mesh record.
const (
	VerticesKey = "vertices"
	FacesKey    = "faces"
)

// WriteRecord saves a mesh as an npz archive with a
// flattened float64 "vertices" array (x, y, z per vertex)
// and a flattened int64 "faces" array (three indices per
// face).
func WriteRecord(path string, m *Mesh) (err error) {
	defer func() {
		err = errors.Wrap(err, "write mesh record")
	}()

	verts := make([]float64, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		verts = append(verts, v.X, v.Y, v.Z)
	}
	faces := make([]int64, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		faces = append(faces, int64(f[0]), int64(f[1]), int64(f[2]))
	}

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	zw := npz.NewWriter(w)
	if err := zw.Write(VerticesKey, verts); err != nil {
		return err
	}
	if err := zw.Write(FacesKey, faces); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return w.Close()
}

// ReadRecord loads a mesh written by WriteRecord.
//
// Face indices are not checked against the vertex count;
// use Validate for that.
func ReadRecord(path string) (m *Mesh, err error) {
	defer func() {
		err = errors.Wrapf(err, "read mesh record %s", path)
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r, err := npz.NewReader(f, info.Size())
	if err != nil {
		return nil, err
	}

	var verts []float64
	var faces []int64
	if err := r.Read(VerticesKey, &verts); err != nil {
		return nil, err
	}
	if err := r.Read(FacesKey, &faces); err != nil {
		return nil, err
	}
	if len(verts)%3 != 0 {
		return nil, errors.Errorf("vertex array length %d is not a multiple of 3", len(verts))
	}
	if len(faces)%3 != 0 {
		return nil, errors.Errorf("face array length %d is not a multiple of 3", len(faces))
	}

	m = &Mesh{
		Vertices: make([]model3d.Coord3D, len(verts)/3),
		Faces:    make([][3]int, len(faces)/3),
	}
	for i := range m.Vertices {
		m.Vertices[i] = model3d.XYZ(verts[i*3], verts[i*3+1], verts[i*3+2])
	}
	for i := range m.Faces {
		m.Faces[i] = [3]int{int(faces[i*3]), int(faces[i*3+1]), int(faces[i*3+2])}
	}
	return m, nil
}
