// Package dataset assembles labeled voxel datasets from a
// tree of category/{train,test} mesh files.
package dataset

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MaxLabels is the number of distinct labels that fit in
// the int8 label datasets.
const MaxLabels = 128

// A LabelMap is a bijection between category names and
// label ids 0 through Len()-1.
type LabelMap struct {
	names []string
	ids   map[string]int
}

// NewLabelMap assigns ids to names in the given order.
func NewLabelMap(names []string) (*LabelMap, error) {
	if len(names) > MaxLabels {
		return nil, errors.Errorf("label map: %d categories exceeds limit of %d", len(names), MaxLabels)
	}
	l := &LabelMap{
		names: append([]string{}, names...),
		ids:   make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, ok := l.ids[name]; ok {
			return nil, errors.Errorf("label map: duplicate category %q", name)
		}
		l.ids[name] = i
	}
	return l, nil
}

// DiscoverCategories lists the category directories under
// root, sorted by name. Hidden entries, plain files and
// excluded names are skipped.
func DiscoverCategories(root string, exclude []string) (*LabelMap, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, "discover categories")
	}
	skip := map[string]bool{}
	for _, name := range exclude {
		skip[name] = true
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.IsDir() || skip[name] {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, errors.Errorf("discover categories: no categories in %s", root)
	}
	sort.Strings(names)
	return NewLabelMap(names)
}

// Len gets the number of labels.
func (l *LabelMap) Len() int {
	return len(l.names)
}

// ID looks up the label of a category.
func (l *LabelMap) ID(name string) (int, bool) {
	id, ok := l.ids[name]
	return id, ok
}

// Name looks up the category of a label.
func (l *LabelMap) Name(id int) (string, bool) {
	if id < 0 || id >= len(l.names) {
		return "", false
	}
	return l.names[id], true
}

// Names gets every category in label order.
func (l *LabelMap) Names() []string {
	return append([]string{}, l.names...)
}

// WriteFile saves the map as "<id> <name>" lines.
func (l *LabelMap) WriteFile(path string) error {
	var b strings.Builder
	for i, name := range l.names {
		fmt.Fprintf(&b, "%d %s\n", i, name)
	}
	return errors.Wrap(os.WriteFile(path, []byte(b.String()), 0644), "write label map")
}
