// Package catalog records written samples in a SQLite
// database so a dataset can be queried without scanning
// the manifests.
package catalog

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	run_id    TEXT    NOT NULL,
	split     TEXT    NOT NULL,
	idx       INTEGER NOT NULL,
	path      TEXT    NOT NULL,
	label     INTEGER NOT NULL,
	occupancy REAL    NOT NULL,
	PRIMARY KEY (run_id, split, idx)
);
CREATE INDEX IF NOT EXISTS samples_label ON samples (run_id, label);
`

// A Sample is one written dataset slot.
type Sample struct {
	Split     string
	Index     int
	Path      string
	Label     int
	Occupancy float64
}

// A Catalog stores the samples of one or more runs.
type Catalog struct {
	db    *sql.DB
	runID string
}

// Open opens (or creates) a catalog database. Rows written
// through the result are tagged with runID.
func Open(path, runID string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "open catalog: schema")
	}
	return &Catalog{db: db, runID: runID}, nil
}

// Record inserts or replaces one sample row.
func (c *Catalog) Record(split string, index int, path string, label int, occupancy float64) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO samples (run_id, split, idx, path, label, occupancy)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.runID, split, index, path, label, occupancy,
	)
	return errors.Wrap(err, "record sample")
}

// Samples lists the rows of the current run for a split,
// ordered by index.
func (c *Catalog) Samples(split string) ([]Sample, error) {
	rows, err := c.db.Query(
		`SELECT split, idx, path, label, occupancy FROM samples
		 WHERE run_id = ? AND split = ? ORDER BY idx`,
		c.runID, split,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list samples")
	}
	defer rows.Close()
	var res []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Split, &s.Index, &s.Path, &s.Label, &s.Occupancy); err != nil {
			return nil, errors.Wrap(err, "list samples")
		}
		res = append(res, s)
	}
	return res, errors.Wrap(rows.Err(), "list samples")
}

// LabelCounts counts the samples of the current run per
// label across all splits.
func (c *Catalog) LabelCounts() (map[int]int, error) {
	rows, err := c.db.Query(
		`SELECT label, COUNT(*) FROM samples WHERE run_id = ? GROUP BY label`,
		c.runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "count labels")
	}
	defer rows.Close()
	res := map[int]int{}
	for rows.Next() {
		var label, count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, errors.Wrap(err, "count labels")
		}
		res[label] = count
	}
	return res, errors.Wrap(rows.Err(), "count labels")
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
