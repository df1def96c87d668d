// Package ccn reads CSV exports of the CCN-100 cloud condensation nuclei
// counter into time-indexed datasets, so they can be cut by the same
// flight segments as the core data.
package ccn

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eurec4a/twinotter/internal/flight"
)

// HeaderLines is the number of "key, value" lines before the table.
const HeaderLines = 3

// ErrNoData means a directory held no CCN files.
var ErrNoData = errors.New("no CCN data found")

// Load reads one CCN-100 CSV file.
func Load(path string) (*flight.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.Attrs.SourceFile = path
	return ds, nil
}

// Parse reads a CCN-100 CSV stream. Column names are lower-cased with
// spaces replaced by underscores; the time column is combined with the
// date from the metadata lines.
func Parse(r io.Reader) (*flight.Dataset, error) {
	br := bufio.NewReader(r)

	meta := map[string]any{}
	for i := 0; i < HeaderLines; i++ {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, fmt.Errorf("metadata line %d: %w", i+1, err)
		}
		key, value, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("metadata line %d: %q is not key,value", i+1, strings.TrimSpace(line))
		}
		meta[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	dateStr, _ := meta["date"].(string)
	day, err := time.Parse("01/02/06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("metadata date %q: %w", dateStr, err)
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("no table header")
	}

	names := make([]string, len(records[0]))
	timeCol := -1
	for i, h := range records[0] {
		names[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		if names[i] == "time" {
			timeCol = i
		}
	}
	if timeCol < 0 {
		return nil, errors.New("no time column")
	}

	rows := records[1:]
	index := make([]time.Time, len(rows))
	cols := make([][]float64, len(names))
	for i := range cols {
		cols[i] = make([]float64, len(rows))
	}
	for r, rec := range rows {
		tod, err := flight.ParseTimeOfDay(rec[timeCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r+1, err)
		}
		index[r] = day.Add(tod)
		for c, s := range rec {
			if c == timeCol {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				v = math.NaN()
			}
			cols[c][r] = v
		}
	}

	var vars []*flight.Variable
	for c, name := range names {
		if c == timeCol {
			continue
		}
		vars = append(vars, &flight.Variable{Name: name, Values: cols[c], Attrs: map[string]any{}})
	}
	return flight.NewDataset(index, nil, vars, flight.Attributes{Date: day, Global: meta})
}

// LoadAll reads every *.csv file in dir and joins them in name order.
func LoadAll(dir string) (*flight.Dataset, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoData, dir)
	}
	sort.Strings(paths)

	parts := make([]*flight.Dataset, 0, len(paths))
	for _, p := range paths {
		ds, err := Load(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ds)
	}
	return flight.Concat(parts...)
}
