// Package masin knows the on-disk naming convention of MASIN core data
// files: building names from flight metadata, parsing metadata back out of
// names, and searching a directory tree for matching files.
package masin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// ErrNoMatch is returned when a name does not follow the core file template.
var ErrNoMatch = errors.New("masin: filename does not match core_masin template")

// Any is the wildcard value for a Pattern field.
const Any = "*"

const dateLayout = "20060102"

var coreRE = regexp.MustCompile(`^core_masin_(\d{8})_r(\d{3})_flight(\d{3})_(\d+)hz\.nc$`)

// Metadata is the information embedded in a core file name.
type Metadata struct {
	Date         time.Time `json:"date"`
	Revision     int       `json:"revision"`
	FlightNumber int       `json:"flight_number"`
	Frequency    int       `json:"frequency"`
}

// Filename renders m back into the core file template.
func (m Metadata) Filename() string {
	return BuildFilename(m.FlightNumber, m.Date, m.Frequency, m.Revision)
}

// BuildFilename formats core_masin_{YYYYMMDD}_r{NNN}_flight{NNN}_{freq}hz.nc.
func BuildFilename(flightNumber int, date time.Time, frequency, revision int) string {
	return fmt.Sprintf("core_masin_%s_r%03d_flight%03d_%dhz.nc",
		date.Format(dateLayout), revision, flightNumber, frequency)
}

// ParseFilename extracts metadata from the base name of path.
func ParseFilename(path string) (Metadata, error) {
	name := filepath.Base(path)
	m := coreRE.FindStringSubmatch(name)
	if m == nil {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNoMatch, name)
	}

	date, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: bad date %q", ErrNoMatch, name, m[1])
	}
	rev, _ := strconv.Atoi(m[2])
	flight, _ := strconv.Atoi(m[3])
	freq, err := strconv.Atoi(m[4])
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: bad frequency %q", ErrNoMatch, name, m[4])
	}

	return Metadata{Date: date, Revision: rev, FlightNumber: flight, Frequency: freq}, nil
}

// Pattern is a query over core file names. Empty fields and Any match
// anything; other values are matched literally against the formatted field.
type Pattern struct {
	Date         string
	Revision     string
	FlightNumber string
	Frequency    string
}

// Revision formats a pinned revision for use in a Pattern.
func Revision(n int) string { return fmt.Sprintf("%03d", n) }

// FlightNumber formats a flight number for use in a Pattern.
func FlightNumber(n int) string { return fmt.Sprintf("%03d", n) }

// Frequency formats a sampling frequency for use in a Pattern.
func Frequency(hz int) string { return strconv.Itoa(hz) }

// Glob returns the shell pattern for p built from the core file template.
func (p Pattern) Glob() string {
	return fmt.Sprintf("core_masin_%s_r%s_flight%s_%shz.nc",
		wild(p.Date), wild(p.Revision), wild(p.FlightNumber), wild(p.Frequency))
}

func (p Pattern) String() string { return p.Glob() }

func wild(s string) string {
	if s == "" {
		return Any
	}
	return s
}

// FindCandidates walks root for files whose names match p and the core
// template. If root holds a MASIN subdirectory only that subtree is
// searched. Paths are returned sorted.
func FindCandidates(root string, p Pattern) ([]string, error) {
	if fi, err := os.Stat(filepath.Join(root, "MASIN")); err == nil && fi.IsDir() {
		root = filepath.Join(root, "MASIN")
	}

	glob := p.Glob()
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(glob, d.Name())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := ParseFilename(d.Name()); err != nil {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s for %s: %w", root, glob, err)
	}

	sort.Strings(found)
	return found, nil
}

// SelectMostRecent picks the path with the highest revision. Equal
// revisions are ordered by path string and the first is taken.
func SelectMostRecent(paths []string) (string, error) {
	type cand struct {
		path string
		rev  int
	}
	cands := make([]cand, 0, len(paths))
	for _, p := range paths {
		m, err := ParseFilename(p)
		if err != nil {
			return "", err
		}
		cands = append(cands, cand{path: p, rev: m.Revision})
	}
	if len(cands) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrNoMatch)
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].rev != cands[j].rev {
			return cands[i].rev > cands[j].rev
		}
		return cands[i].path < cands[j].path
	})
	return cands[0].path, nil
}
