package flight

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eurec4a/twinotter/internal/config"
	"github.com/eurec4a/twinotter/internal/masin"
)

// MostRecent selects the highest revision on disk.
const MostRecent = 0

// Channel names the loader depends on.
const (
	TimeChannel      = "Time"
	LongitudeChannel = "LON_OXTS"
	LatitudeChannel  = "LAT_OXTS"
	LongitudeFlag    = "LON_OXTS_FLAG"
	flagSuffix       = "_FLAG"
	rowDimension     = "data_point"
)

// Options control how a flight file is resolved and filtered.
type Options struct {
	Frequency     int
	Revision      int // MostRecent or a pinned revision number
	FilterInvalid bool
	Decoder       Decoder
}

// DefaultOptions loads the most recent 1 Hz file with filtering on.
func DefaultOptions() Options {
	return Options{Frequency: 1, Revision: MostRecent, FilterInvalid: true}
}

// OptionsFromConfig converts the [loader] section into Options.
func OptionsFromConfig(cfg config.LoaderConfig) (Options, error) {
	rev, err := cfg.RevisionNumber()
	if err != nil {
		return Options{}, err
	}
	return Options{Frequency: cfg.Frequency, Revision: rev, FilterInvalid: cfg.FilterInvalid}, nil
}

// Loader resolves paths to backing files and decodes them.
type Loader struct {
	opts Options
	log  *log.Logger
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(opts Options, logger *log.Logger) *Loader {
	if opts.Frequency == 0 {
		opts.Frequency = 1
	}
	if opts.Decoder == nil {
		opts.Decoder = NetCDF{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Loader{opts: opts, log: logger}
}

// Load is shorthand for NewLoader(opts, nil).Load(path).
func Load(path string, opts Options) (*Dataset, error) {
	return NewLoader(opts, nil).Load(path)
}

// Resolve maps path to exactly one backing file. A file path is returned
// as is; a directory is searched for files at the configured frequency.
func (l *Loader) Resolve(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Dir: filepath.Dir(path), Pattern: filepath.Base(path)}
		}
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}

	p := masin.Pattern{Frequency: masin.Frequency(l.opts.Frequency), Revision: masin.Any}
	if l.opts.Revision != MostRecent {
		p.Revision = masin.Revision(l.opts.Revision)
	}
	found, err := masin.FindCandidates(path, p)
	if err != nil {
		return "", err
	}

	switch {
	case len(found) == 0:
		return "", &NotFoundError{Dir: path, Pattern: p.Glob()}
	case l.opts.Revision == MostRecent:
		return masin.SelectMostRecent(found)
	case len(found) > 1:
		return "", &AmbiguousMatchError{Pattern: p.Glob(), Candidates: found}
	}
	return found[0], nil
}

// Load resolves path, decodes the file, drops rows with an unusable
// position when filtering is on, and indexes the rows by time.
func (l *Loader) Load(path string) (*Dataset, error) {
	file, err := l.Resolve(path)
	if err != nil {
		return nil, err
	}

	table, err := l.opts.Decoder.Decode(file)
	if err != nil {
		return nil, err
	}

	attrs := attributesOf(file, table.Global)
	ds, err := build(table, attrs)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}

	rows := ds.Len()
	if l.opts.FilterInvalid {
		keep, err := validPositions(ds)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		ds = ds.Select(keep)
	}
	if err := checkMonotonic(ds.Time); err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}

	l.log.Printf("flight: loaded %s (%d rows, %d dropped)", file, ds.Len(), rows-ds.Len())
	return ds, nil
}

// ReadAttributes decodes only the global attributes of a file.
func (l *Loader) ReadAttributes(file string) (Attributes, error) {
	global, err := l.opts.Decoder.DecodeAttributes(file)
	if err != nil {
		return Attributes{}, err
	}
	return attributesOf(file, global), nil
}

func attributesOf(file string, global map[string]any) Attributes {
	a := Attributes{
		SourceFile:        file,
		TimeCoverageStart: attrString(global, "time_coverage_start"),
		TimeCoverageEnd:   attrString(global, "time_coverage_end"),
		Comment:           attrString(global, "comment"),
		Global:            global,
	}
	if m, err := masin.ParseFilename(file); err == nil {
		a.FlightNumber = m.FlightNumber
		a.Date = m.Date
		a.Revision = m.Revision
		a.Frequency = m.Frequency
	} else if n, ok := attrInt(global, "flight_number"); ok {
		a.FlightNumber = n
	}
	if d, err := time.Parse("20060102", attrString(global, "data_date")); err == nil {
		a.Date = d
	}
	return a
}

// build turns the raw table into a dataset. Variables laid out along the
// row dimension become channels; everything else is skipped.
func build(t *Table, attrs Attributes) (*Dataset, error) {
	tv, ok := t.Variable(TimeChannel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingChannel, TimeChannel)
	}
	base := timeBase(tv.Attrs, attrs.Date)

	index := make([]time.Time, len(tv.Values))
	for i, s := range tv.Values {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: Time[%d] is %v", ErrTimeNotMonotonic, i, s)
		}
		index[i] = base.Add(time.Duration(math.Round(s * float64(time.Second))))
	}

	var vars []*Variable
	for _, rv := range t.Variables {
		if rv.Name == TimeChannel || len(rv.Values) != len(index) || !alongRows(rv.Dimensions) {
			continue
		}
		v := &Variable{Name: rv.Name, Values: rv.Values, Attrs: rv.Attrs}
		if !strings.HasSuffix(rv.Name, flagSuffix) {
			v.Values = maskFill(v)
		}
		vars = append(vars, v)
	}
	return NewDataset(index, append([]float64(nil), tv.Values...), vars, attrs)
}

// maskFill returns the values with _FillValue samples replaced by NaN. The
// input slice is never modified.
func maskFill(v *Variable) []float64 {
	fill, ok := v.FillValue()
	if !ok || math.IsNaN(fill) {
		return v.Values
	}
	out := make([]float64, len(v.Values))
	for i, x := range v.Values {
		if x == fill {
			x = math.NaN()
		}
		out[i] = x
	}
	return out
}

func alongRows(dims []string) bool {
	return len(dims) == 0 || (len(dims) == 1 && (dims[0] == rowDimension || dims[0] == TimeChannel))
}

// timeBase reads the epoch from units like "seconds since 2020-01-24
// 00:00:00 +0000 UTC". Anything unparseable falls back to midnight of the
// flight date.
func timeBase(attrs map[string]any, date time.Time) time.Time {
	units, _ := attrs["units"].(string)
	_, since, ok := strings.Cut(units, "since")
	if !ok {
		return date
	}
	since = strings.TrimSpace(since)
	for _, layout := range []string{
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, since); err == nil {
			return t.UTC()
		}
	}
	return date
}

// validPositions keeps rows whose longitude flag is 0 and whose longitude
// and latitude are set. Fill values are already NaN by now. Latitude is
// only checked when the file has it.
func validPositions(ds *Dataset) ([]bool, error) {
	lon, ok := ds.Var(LongitudeChannel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingChannel, LongitudeChannel)
	}
	flag, ok := ds.Var(LongitudeFlag)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingChannel, LongitudeFlag)
	}
	lat, hasLat := ds.Var(LatitudeChannel)

	keep := make([]bool, ds.Len())
	for i := range keep {
		keep[i] = flag.Values[i] == 0 && !math.IsNaN(lon.Values[i]) &&
			!(hasLat && math.IsNaN(lat.Values[i]))
	}
	return keep, nil
}

func checkMonotonic(index []time.Time) error {
	for i := 1; i < len(index); i++ {
		if index[i].Before(index[i-1]) {
			return fmt.Errorf("%w: %s before %s at row %d", ErrTimeNotMonotonic,
				index[i].Format(time.TimeOnly), index[i-1].Format(time.TimeOnly), i)
		}
	}
	return nil
}
