package summary

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eurec4a/twinotter/internal/segments"
)

const schema = `
CREATE TABLE IF NOT EXISTS flights (
	filename      TEXT PRIMARY KEY,
	flight_number INTEGER NOT NULL,
	date          TEXT NOT NULL,
	start_seconds INTEGER NOT NULL,
	end_seconds   INTEGER NOT NULL,
	revision      INTEGER NOT NULL,
	frequency     INTEGER NOT NULL,
	path          TEXT
);
CREATE INDEX IF NOT EXISTS flights_by_number ON flights(flight_number);

CREATE TABLE IF NOT EXISTS segments (
	flight_id   TEXT NOT NULL,
	segment_id  TEXT NOT NULL,
	name        TEXT,
	kinds       TEXT NOT NULL,
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	PRIMARY KEY (flight_id, segment_id)
);
`

// Index is a SQLite store of summary rows and segment labels, for tools
// that want to query across flights.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (ix *Index) Close() error { return ix.db.Close() }

// PutFlights inserts or replaces summary rows keyed by file name.
func (ix *Index) PutFlights(entries []Entry) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO flights
		(filename, flight_number, date, start_seconds, end_seconds, revision, frequency, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Filename(), e.FlightNumber, e.Date.Format(dateLayout),
			int64(e.Start/time.Second), int64(e.End/time.Second), e.Revision, e.Frequency, e.Path); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.Filename(), err)
		}
	}
	return tx.Commit()
}

// Flights returns every stored row ordered by flight number then revision.
func (ix *Index) Flights() ([]Entry, error) {
	rows, err := ix.db.Query(`SELECT flight_number, date, start_seconds, end_seconds, revision, frequency, COALESCE(path, '')
		FROM flights ORDER BY flight_number, revision, frequency`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var date string
		var start, end int64
		if err := rows.Scan(&e.FlightNumber, &date, &start, &end, &e.Revision, &e.Frequency, &e.Path); err != nil {
			return nil, err
		}
		if e.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, err
		}
		e.Start = time.Duration(start) * time.Second
		e.End = time.Duration(end) * time.Second
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutSegments replaces the stored segments of c's flight.
func (ix *Index) PutSegments(c *segments.Catalog) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM segments WHERE flight_id = ?`, c.FlightID); err != nil {
		tx.Rollback()
		return err
	}
	for _, s := range c.Segments {
		kinds := strings.Join(s.Kinds, ",")
		if _, err := tx.Exec(`INSERT INTO segments (flight_id, segment_id, name, kinds, start_time, end_time)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.FlightID, s.SegmentID, s.Name, kinds,
			s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert segment %s: %w", s.SegmentID, err)
		}
	}
	return tx.Commit()
}

// CountSegments returns how many stored segments of kind each flight has.
func (ix *Index) CountSegments(kind string) (map[string]int, error) {
	rows, err := ix.db.Query(`SELECT flight_id, kinds FROM segments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var id, kinds string
		if err := rows.Scan(&id, &kinds); err != nil {
			return nil, err
		}
		for _, k := range strings.Split(kinds, ",") {
			if k == kind {
				out[id]++
			}
		}
	}
	return out, rows.Err()
}
