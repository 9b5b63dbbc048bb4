package meshrec

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
)

// ReadOFFFile reads an OFF file from disk.
func ReadOFFFile(path string) (*Mesh, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read OFF")
	}
	defer r.Close()
	m, err := ReadOFF(r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return m, nil
}

// ReadOFF decodes an OFF mesh with triangular faces.
//
// The element counts may follow the OFF keyword on the
// header line itself (e.g. "OFF490 518 0"), which is
// common in ModelNet.
//
// Each vertex must be on its own line. Values after the
// x, y and z coordinates of a vertex line are ignored.
func ReadOFF(r io.Reader) (*Mesh, error) {
	toks := &offTokens{scanner: bufio.NewScanner(r)}
	toks.scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)

	header, err := toks.line()
	if err != nil {
		return nil, errors.Wrap(err, "read OFF: header")
	}
	if !strings.HasPrefix(header, "OFF") {
		return nil, errors.New("read OFF: missing OFF header")
	}
	toks.pending = strings.Fields(header[3:])

	var counts [3]int
	for i := range counts {
		counts[i], err = toks.int()
		if err != nil {
			return nil, errors.Wrap(err, "read OFF: counts")
		}
		if counts[i] < 0 {
			return nil, errors.New("read OFF: negative count")
		}
	}
	numVerts, numFaces := counts[0], counts[1]

	m := &Mesh{
		Vertices: make([]model3d.Coord3D, numVerts),
		Faces:    make([][3]int, numFaces),
	}
	for i := range m.Vertices {
		var arr [3]float64
		for j := range arr {
			arr[j], err = toks.float()
			if err != nil {
				return nil, errors.Wrapf(err, "read OFF: vertex %d", i)
			}
		}
		m.Vertices[i] = model3d.NewCoord3DArray(arr)
		// Anything after the position, such as a color, is
		// ignored.
		toks.pending = nil
	}
	for i := range m.Faces {
		n, err := toks.int()
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Errorf("read OFF: file ended at face %d of %d "+
				"(vertex lines hold one vertex each; extra values on them are ignored)", i, numFaces)
		} else if err != nil {
			return nil, errors.Wrapf(err, "read OFF: face %d", i)
		}
		if n != 3 {
			return nil, errors.Errorf("read OFF: face %d has %d vertices, only triangles are supported", i, n)
		}
		for j := range m.Faces[i] {
			m.Faces[i][j], err = toks.int()
			if err != nil {
				return nil, errors.Wrapf(err, "read OFF: face %d", i)
			}
		}
		toks.pending = nil
	}
	return m, nil
}

type offTokens struct {
	scanner *bufio.Scanner
	pending []string
}

// line returns the next non-empty line with comments
// removed.
func (o *offTokens) line() (string, error) {
	for o.scanner.Scan() {
		line := o.scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
	if err := o.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

func (o *offTokens) next() (string, error) {
	for len(o.pending) == 0 {
		line, err := o.line()
		if err != nil {
			return "", err
		}
		o.pending = strings.Fields(line)
	}
	tok := o.pending[0]
	o.pending = o.pending[1:]
	return tok, nil
}

func (o *offTokens) int() (int, error) {
	tok, err := o.next()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

func (o *offTokens) float() (float64, error) {
	tok, err := o.next()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(tok, 64)
}
