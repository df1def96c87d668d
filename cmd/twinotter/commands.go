package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/eurec4a/twinotter/internal/ccn"
	"github.com/eurec4a/twinotter/internal/config"
	"github.com/eurec4a/twinotter/internal/ctl"
	"github.com/eurec4a/twinotter/internal/derive"
	"github.com/eurec4a/twinotter/internal/export"
	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/quicklook"
	"github.com/eurec4a/twinotter/internal/satellite"
	"github.com/eurec4a/twinotter/internal/segments"
	"github.com/eurec4a/twinotter/internal/summary"
)

// loaderFlags are shared by every command that loads a flight.
type loaderFlags struct {
	revision  string
	frequency int
	raw       bool
}

func addLoaderFlags(fs *pflag.FlagSet, cfg config.Config) *loaderFlags {
	lf := &loaderFlags{}
	fs.StringVar(&lf.revision, "revision", cfg.Loader.Revision, "Revision number or most_recent")
	fs.IntVar(&lf.frequency, "frequency", cfg.Loader.Frequency, "Sampling frequency in Hz")
	fs.BoolVar(&lf.raw, "raw", !cfg.Loader.FilterInvalid, "Keep rows with invalid positions")
	return lf
}

func (lf *loaderFlags) load(e *env, path string) (*flight.Dataset, error) {
	rev, err := config.LoaderConfig{Revision: lf.revision}.RevisionNumber()
	if err != nil {
		return nil, err
	}
	opts := flight.Options{Frequency: lf.frequency, Revision: rev, FilterInvalid: !lf.raw}
	return flight.NewLoader(opts, e.log).Load(path)
}

// segmentFlags select segments from a document.
type segmentFlags struct {
	file  string
	kind  string
	index int
}

func addSegmentFlags(fs *pflag.FlagSet) *segmentFlags {
	sf := &segmentFlags{}
	fs.StringVar(&sf.file, "segments", "", "Segment document (YAML)")
	fs.StringVar(&sf.kind, "kind", "", "Segment kind")
	fs.IntVar(&sf.index, "index", -1, "Use only the Nth matching segment")
	return sf
}

func (sf *segmentFlags) indexPtr() *int {
	if sf.index < 0 {
		return nil
	}
	return &sf.index
}

func (sf *segmentFlags) catalog(e *env) (*segments.Catalog, error) {
	if sf.file == "" {
		return nil, errors.New("--segments is required")
	}
	return loadCatalog(e, sf.file)
}

// apply cuts ds down to the selected segments, or returns it unchanged
// when no document was given.
func (sf *segmentFlags) apply(e *env, ds *flight.Dataset) (*flight.Dataset, error) {
	if sf.file == "" {
		if sf.kind != "" || sf.index >= 0 {
			return nil, errors.New("--kind and --index need --segments")
		}
		return ds, nil
	}
	if sf.kind == "" {
		return nil, errors.New("--kind is required with --segments")
	}
	c, err := sf.catalog(e)
	if err != nil {
		return nil, err
	}
	return segments.Extract(ds, c, sf.kind, sf.indexPtr())
}

// loadCatalog opens name as given, falling back to the segments directory.
func loadCatalog(e *env, name string) (*segments.Catalog, error) {
	c, err := segments.Load(name)
	if errors.Is(err, os.ErrNotExist) && !filepath.IsAbs(name) {
		return segments.Load(filepath.Join(e.cfg.Data.Segments, name))
	}
	return c, err
}

func newFlags(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// pathArg returns positional argument i, or data.root when absent.
func pathArg(e *env, fs *pflag.FlagSet, i int) string {
	if fs.NArg() > i {
		return fs.Arg(i)
	}
	return e.cfg.Data.Root
}

func runInfo(e *env, args []string) error {
	fs := newFlags("info")
	lf := addLoaderFlags(fs, e.cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := lf.load(e, pathArg(e, fs, 0))
	if err != nil {
		return err
	}
	return ctl.FlightInfo(e.out, ds, e.json)
}

func runSummary(e *env, args []string) error {
	fs := newFlags("summary")
	data := fs.String("data", e.cfg.Data.Root, "Directory to scan for core files")
	out := fs.StringP("output", "o", e.cfg.Data.Summary, "Summary CSV to update")
	xlsx := fs.String("xlsx", "", "Also write an Excel workbook")
	index := fs.String("index", "", "Also store the rows in a SQLite index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries, err := summary.NewGenerator(e.log).Generate(*data, *out)
	if err != nil {
		return err
	}
	if *xlsx != "" {
		if err := summary.WriteXLSX(*xlsx, entries); err != nil {
			return err
		}
	}
	if *index != "" {
		ix, err := summary.OpenIndex(*index)
		if err != nil {
			return err
		}
		defer ix.Close()
		if err := ix.PutFlights(entries); err != nil {
			return err
		}
	}
	return ctl.Summary(e.out, entries, e.json)
}

func runSegments(e *env, args []string) error {
	fs := newFlags("segments")
	kind := fs.String("kind", "", "Only list segments of this kind")
	index := fs.String("index", "", "Store the segments in a SQLite index and show counts per flight")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: segments FILE [--kind K] [--index DB]")
	}
	c, err := loadCatalog(e, fs.Arg(0))
	if err != nil {
		return err
	}
	if *index == "" {
		return ctl.Segments(e.out, c, *kind, e.json)
	}

	ix, err := summary.OpenIndex(*index)
	if err != nil {
		return err
	}
	defer ix.Close()
	if err := ix.PutSegments(c); err != nil {
		return err
	}
	if *kind == "" {
		return ctl.Segments(e.out, c, "", e.json)
	}
	counts, err := ix.CountSegments(*kind)
	if err != nil {
		return err
	}
	return ctl.SegmentCounts(e.out, *kind, counts, e.json)
}

func runSegmentsInit(e *env, args []string) error {
	fs := newFlags("segments-init")
	lf := addLoaderFlags(fs, e.cfg)
	legs := fs.String("legs", "", "Seed segments from a legs CSV (Label/Type, Start, End)")
	version := fs.String("version", "0.1", "Document version used in the default file name")
	out := fs.StringP("output", "o", "", "Output YAML (default: segments dir + standard name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := lf.load(e, pathArg(e, fs, 0))
	if err != nil {
		return err
	}

	c := segments.NewForFlight(ds)
	if *legs != "" {
		seed, err := segments.LoadLegsCSV(*legs, ds.Attrs.Date)
		if err != nil {
			return err
		}
		for _, s := range seed.Segments {
			if _, err := c.Add(ds, s.Kinds, s.Name, s.Start.Time, s.End.Time); err != nil {
				return fmt.Errorf("leg %s: %w", s.Name, err)
			}
		}
	}

	path := *out
	if path == "" {
		path = filepath.Join(e.cfg.Data.Segments, segments.DocumentName(ds.Attrs.Date, *version))
	}
	if err := c.Save(path); err != nil {
		return err
	}
	e.log.Printf("wrote %d segments to %s", len(c.Segments), path)
	if e.json {
		return ctl.PrintJSON(e.out, map[string]any{"path": path, "segments": len(c.Segments)})
	}
	fmt.Fprintf(e.out, "wrote %s (%d segments)\n", path, len(c.Segments))
	return nil
}

func runExtract(e *env, args []string) error {
	fs := newFlags("extract")
	lf := addLoaderFlags(fs, e.cfg)
	sf := addSegmentFlags(fs)
	out := fs.StringP("output", "o", "", "Output file (.parquet or .csv)")
	vars := fs.StringSlice("vars", nil, "Variables to write (default: all channels)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if sf.kind == "" {
		return errors.New("--kind is required")
	}
	if sf.file == "" {
		return errors.New("--segments is required")
	}
	ds, err := lf.load(e, pathArg(e, fs, 0))
	if err != nil {
		return err
	}
	if ds, err = sf.apply(e, ds); err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Join(e.cfg.Export.Dir, fmt.Sprintf("flight%03d_%s.%s", ds.Attrs.FlightNumber, sf.kind, e.cfg.Export.Format))
	}
	return writeDataset(e, ds, *vars, path)
}

func runExport(e *env, args []string) error {
	fs := newFlags("export")
	lf := addLoaderFlags(fs, e.cfg)
	sf := addSegmentFlags(fs)
	out := fs.StringP("output", "o", "", "Output file (.parquet or .csv)")
	vars := fs.StringSlice("vars", nil, "Variables to write (default: all channels)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := lf.load(e, pathArg(e, fs, 0))
	if err != nil {
		return err
	}
	if ds, err = sf.apply(e, ds); err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Join(e.cfg.Export.Dir, fmt.Sprintf("flight%03d.%s", ds.Attrs.FlightNumber, e.cfg.Export.Format))
	}
	return writeDataset(e, ds, *vars, path)
}

// writeDataset exports ds, narrowed to vars when given. Names that are not
// channels are computed.
func writeDataset(e *env, ds *flight.Dataset, vars []string, path string) error {
	if len(vars) > 0 {
		cols := make([]*flight.Variable, 0, len(vars))
		for _, name := range vars {
			v, err := derive.Calculate(name, ds)
			if err != nil {
				return err
			}
			cols = append(cols, v)
		}
		var err error
		if ds, err = flight.NewDataset(ds.Time, ds.Seconds, cols, ds.Attrs); err != nil {
			return err
		}
	}
	format := export.FormatFor(path, export.Format(e.cfg.Export.Format))
	if err := export.Write(ds, path, format); err != nil {
		return err
	}
	e.log.Printf("wrote %d rows to %s", ds.Len(), path)
	if e.json {
		return ctl.PrintJSON(e.out, map[string]any{"path": path, "rows": ds.Len(), "format": format})
	}
	fmt.Fprintf(e.out, "wrote %s (%d rows, %s)\n", path, ds.Len(), format)
	return nil
}

func runDerive(e *env, args []string) error {
	fs := newFlags("derive")
	lf := addLoaderFlags(fs, e.cfg)
	sf := addSegmentFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: derive PATH NAME (known: %s)", strings.Join(derive.Names(), ", "))
	}
	ds, err := lf.load(e, fs.Arg(0))
	if err != nil {
		return err
	}
	if ds, err = sf.apply(e, ds); err != nil {
		return err
	}
	name := fs.Arg(1)
	res := derive.Resolve(name, ds)
	v, err := derive.Calculate(name, ds)
	if err != nil {
		return err
	}
	return ctl.Variable(e.out, v.Name, v.Units(), res.Kind.String(), quicklook.Describe(v.Values), e.json)
}

func runQuicklook(e *env, args []string) error {
	fs := newFlags("quicklook")
	lf := addLoaderFlags(fs, e.cfg)
	file := fs.String("segments", "", "Segment document (YAML)")
	kind := fs.String("kind", "", "Only segments of this kind")
	channels := fs.StringSlice("channels", nil, "Channels to summarise")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("--segments is required")
	}
	ds, err := lf.load(e, pathArg(e, fs, 0))
	if err != nil {
		return err
	}
	c, err := loadCatalog(e, *file)
	if err != nil {
		return err
	}
	rows, err := quicklook.Summarize(ds, c, *kind, *channels)
	if err != nil {
		return err
	}
	return ctl.Quicklook(e.out, rows, e.json)
}

func runGOES(e *env, args []string) error {
	fs := newFlags("goes")
	lf := addLoaderFlags(fs, e.cfg)
	download := fs.String("download", "", "Download missing snapshots into this directory")
	base := fs.String("base", "", "Snapshot service URL")
	abiDir := fs.String("abi-dir", "", "Look up ABI netCDF files in this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := pathArg(e, fs, 0)
	rev, err := config.LoaderConfig{Revision: lf.revision}.RevisionNumber()
	if err != nil {
		return err
	}
	loader := flight.NewLoader(flight.Options{Frequency: lf.frequency, Revision: rev}, e.log)
	file, err := loader.Resolve(path)
	if err != nil {
		return err
	}
	attrs, err := loader.ReadAttributes(file)
	if err != nil {
		return err
	}

	im := satellite.ImageryFromConfig(e.cfg.Satellite)
	images, err := im.ImagesForFlight(attrs)
	if err != nil {
		return err
	}

	local := map[time.Time]string{}
	for _, img := range images {
		switch {
		case *abiDir != "":
			p, err := satellite.FindImageFile(*abiDir, img.Time)
			if errors.Is(err, satellite.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			local[img.Time] = p
		case *download != "":
			p, err := im.Download(e.ctx, &http.Client{Timeout: 2 * time.Minute}, *base, *download, img)
			if err != nil {
				return err
			}
			local[img.Time] = p
		}
	}
	return ctl.Images(e.out, images, local, e.json)
}

func runPasses(e *env, args []string) error {
	fs := newFlags("passes")
	lf := addLoaderFlags(fs, e.cfg)
	minElev := fs.Float64("min-elevation", e.cfg.Satellite.MinElevation, "Minimum peak elevation in degrees")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := lf.load(e, pathArg(e, fs, 0))
	if err != nil {
		return err
	}
	loc, err := satellite.FlightCentre(ds)
	if err != nil {
		return err
	}
	p := satellite.NewPredictor(satellite.TLEStoreFromConfig(e.cfg.Satellite), *minElev, e.log)
	passes, err := p.Passes(e.ctx, loc, ds.Start(), ds.End())
	if err != nil {
		return err
	}
	return ctl.Passes(e.out, loc, passes, e.json)
}

func runCCN(e *env, args []string) error {
	fs := newFlags("ccn")
	out := fs.StringP("output", "o", "", "Export the joined data (.parquet or .csv)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: ccn DIR [-o FILE]")
	}
	ds, err := ccn.LoadAll(fs.Arg(0))
	if err != nil {
		return err
	}
	if *out != "" {
		return writeDataset(e, ds, nil, *out)
	}
	if e.json {
		stats := map[string]*quicklook.Stats{}
		for _, n := range ds.Names() {
			v, _ := ds.Var(n)
			stats[n] = quicklook.Describe(v.Values)
		}
		return ctl.PrintJSON(e.out, map[string]any{"rows": ds.Len(), "start": ds.Start(), "end": ds.End(), "channels": stats})
	}
	fmt.Fprintf(e.out, "%d rows from %s to %s\n", ds.Len(), ds.Start().Format(time.RFC3339), ds.End().Format(time.RFC3339))
	for _, n := range ds.Names() {
		v, _ := ds.Var(n)
		mean := math.NaN()
		if st := quicklook.Describe(v.Values); st != nil {
			mean = st.Mean
		}
		fmt.Fprintf(e.out, "  %-28s mean %.4g\n", n, mean)
	}
	return nil
}

func runConfig(e *env, _ []string) error {
	return ctl.Config(e.out, e.cfg, e.json)
}

func runWatch(e *env, _ []string) error {
	return ctl.Watch(e.ctx, e.out, e.host, ctl.WatchOptions{Filter: e.filter, JSON: e.json})
}
