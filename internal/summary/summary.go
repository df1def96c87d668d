// Package summary builds the flight summary table: one row per core file
// found under a data directory, with the flight date, the recorded time
// coverage, and the file revision and sampling frequency.
package summary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/masin"
)

// Header is the column layout of the summary CSV.
var Header = []string{"Flight Number", "Date", "Start", "End", "Revision", "Frequency"}

const dateLayout = "2006-01-02"

// Entry is one summary row.
type Entry struct {
	FlightNumber int           `json:"flight_number"`
	Date         time.Time     `json:"date"`
	Start        time.Duration `json:"start"`
	End          time.Duration `json:"end"`
	Revision     int           `json:"revision"`
	Frequency    int           `json:"frequency"`

	// Path is the file the row was read from. It is empty for rows kept
	// from an existing CSV.
	Path string `json:"path,omitempty"`
}

// Filename is the core file name the entry describes.
func (e Entry) Filename() string {
	return masin.BuildFilename(e.FlightNumber, e.Date, e.Frequency, e.Revision)
}

// Record renders e as a CSV row.
func (e Entry) Record() []string {
	return []string{
		strconv.Itoa(e.FlightNumber),
		e.Date.Format(dateLayout),
		flight.FormatTimeOfDay(e.Start),
		flight.FormatTimeOfDay(e.End),
		strconv.Itoa(e.Revision),
		strconv.Itoa(e.Frequency),
	}
}

// Generator scans for core files and merges them into a summary.
type Generator struct {
	loader *flight.Loader
	log    *log.Logger
}

// NewGenerator creates a generator. A nil logger discards output.
func NewGenerator(logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Generator{loader: flight.NewLoader(flight.DefaultOptions(), nil), log: logger}
}

// Scan builds entries for every core file under dataPath.
func (g *Generator) Scan(dataPath string) ([]Entry, error) {
	paths, err := masin.FindCandidates(dataPath, masin.Pattern{})
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		e, err := g.entry(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries, nil
}

// Generate merges the core files under dataPath into the CSV at
// summaryPath. Rows already in the CSV are kept as they are; files not yet
// listed are read and appended. The result is sorted by flight number and
// written back over summaryPath.
func (g *Generator) Generate(dataPath, summaryPath string) ([]Entry, error) {
	paths, err := masin.FindCandidates(dataPath, masin.Pattern{})
	if err != nil {
		return nil, err
	}
	pending := map[string]string{}
	for _, p := range paths {
		pending[filepath.Base(p)] = p
	}

	existing, err := ReadCSV(summaryPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for _, e := range existing {
		name := e.Filename()
		if _, ok := pending[name]; ok {
			g.log.Printf("summary: %s already in %s", name, filepath.Base(summaryPath))
			delete(pending, name)
		} else {
			g.log.Printf("summary: %s not available", name)
		}
	}

	entries := existing
	for _, p := range paths {
		if _, ok := pending[filepath.Base(p)]; !ok {
			continue
		}
		e, err := g.entry(p)
		if err != nil {
			return nil, err
		}
		g.log.Printf("summary: added flight %d from %s", e.FlightNumber, filepath.Base(p))
		entries = append(entries, e)
	}

	sortEntries(entries)
	if err := WriteCSV(summaryPath, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (g *Generator) entry(path string) (Entry, error) {
	m, err := masin.ParseFilename(path)
	if err != nil {
		return Entry{}, err
	}
	attrs, err := g.loader.ReadAttributes(path)
	if err != nil {
		return Entry{}, err
	}
	start, err := flight.ParseTimeOfDay(attrs.TimeCoverageStart)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: time_coverage_start: %w", path, err)
	}
	end, err := flight.ParseTimeOfDay(attrs.TimeCoverageEnd)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: time_coverage_end: %w", path, err)
	}
	return Entry{
		FlightNumber: m.FlightNumber,
		Date:         m.Date,
		Start:        start,
		End:          end,
		Revision:     m.Revision,
		Frequency:    m.Frequency,
		Path:         path,
	}, nil
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].FlightNumber < entries[j].FlightNumber
	})
}

// ReadCSV reads a summary CSV written by WriteCSV.
func ReadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := map[string]int{}
	for i, h := range records[0] {
		col[h] = i
	}
	for _, h := range Header {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("read %s: missing column %q", path, h)
		}
	}

	entries := make([]Entry, 0, len(records)-1)
	for line, rec := range records[1:] {
		e, err := parseRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseRecord(rec []string, col map[string]int) (Entry, error) {
	var e Entry
	var err error
	if e.FlightNumber, err = strconv.Atoi(rec[col["Flight Number"]]); err != nil {
		return e, err
	}
	if e.Date, err = time.Parse(dateLayout, rec[col["Date"]]); err != nil {
		return e, err
	}
	if e.Start, err = flight.ParseTimeOfDay(rec[col["Start"]]); err != nil {
		return e, err
	}
	if e.End, err = flight.ParseTimeOfDay(rec[col["End"]]); err != nil {
		return e, err
	}
	if e.Revision, err = strconv.Atoi(rec[col["Revision"]]); err != nil {
		return e, err
	}
	if e.Frequency, err = strconv.Atoi(rec[col["Frequency"]]); err != nil {
		return e, err
	}
	return e, nil
}

// WriteCSV writes entries with a header row, replacing path atomically.
func WriteCSV(path string, entries []Entry) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	_ = w.Write(Header)
	for _, e := range entries {
		_ = w.Write(e.Record())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
