// Package satellite matches flights against satellite imagery: GOES-East
// image times and file names covering a flight, lookup of downloaded ABI
// files, and polar-orbiter overpasses predicted from TLEs.
package satellite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/eurec4a/twinotter/internal/config"
	"github.com/eurec4a/twinotter/internal/flight"
)

var (
	// ErrNotFound means no image file exists for the requested time.
	ErrNotFound = errors.New("no satellite image for time")

	// ErrAmbiguousMatch means more than one image file covers a time.
	ErrAmbiguousMatch = errors.New("multiple satellite images for time")
)

// Defaults for the EUREC4A domain.
const (
	DefaultLayer      = "GOES-East_ABI_Band2_Red_Visible_1km"
	DefaultCadence    = 10 * time.Minute
	DefaultResolution = 0.01
	LabelsLayer       = "Reference_Labels"
)

// DefaultBBox is the image extent as south, west, north, east.
var DefaultBBox = [4]float64{10, -60, 15, -50}

// Imagery describes which GOES product to match and how it is gridded.
type Imagery struct {
	Layer      string
	Cadence    time.Duration
	Resolution float64
	BBox       [4]float64
}

// DefaultImagery is the EUREC4A visible channel set-up.
func DefaultImagery() Imagery {
	return Imagery{Layer: DefaultLayer, Cadence: DefaultCadence, Resolution: DefaultResolution, BBox: DefaultBBox}
}

// ImageryFromConfig converts the [satellite] section.
func ImageryFromConfig(cfg config.SatelliteConfig) Imagery {
	return Imagery{
		Layer:      cfg.Layer,
		Cadence:    time.Duration(cfg.CadenceMinutes) * time.Minute,
		Resolution: cfg.Resolution,
		BBox:       cfg.BBox,
	}
}

// Image is one expected GOES snapshot.
type Image struct {
	Time     time.Time `json:"time"`
	Filename string    `json:"filename"`
}

// FilenameAtTime is {layer}_{YYYY}-{MM}-{DD}_{hh}-{mm}.tiff.
func FilenameAtTime(t time.Time, layer string) string {
	t = t.UTC()
	return fmt.Sprintf("%s_%04d-%02d-%02d_%02d-%02d.tiff",
		layer, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// RoundDown floors t to a multiple of res.
func RoundDown(t time.Time, res time.Duration) time.Time {
	return t.Truncate(res)
}

// Round moves t to the nearest multiple of res. Exact halves round down.
func Round(t time.Time, res time.Duration) time.Time {
	down := t.Truncate(res)
	if t.Sub(down) > res/2 {
		return down.Add(res)
	}
	return down
}

// ImageTimes lists every image time from start floored to the cadence up
// to end floored plus one cadence step.
func ImageTimes(start, end time.Time, cadence time.Duration) []time.Time {
	first := RoundDown(start, cadence)
	last := RoundDown(end, cadence).Add(cadence)
	var out []time.Time
	for t := first; !t.After(last); t = t.Add(cadence) {
		out = append(out, t)
	}
	return out
}

// ImagesForFlight returns the images spanning the coverage of a flight.
func (im Imagery) ImagesForFlight(attrs flight.Attributes) ([]Image, error) {
	start, err := attrs.CoverageStart()
	if err != nil {
		return nil, err
	}
	end, err := attrs.CoverageEnd()
	if err != nil {
		return nil, err
	}
	times := ImageTimes(start, end, im.Cadence)
	out := make([]Image, len(times))
	for i, t := range times {
		out[i] = Image{Time: t, Filename: FilenameAtTime(t, im.Layer)}
	}
	return out, nil
}

const snapshotEndpoint = "https://wvs.earthdata.nasa.gov/api/v1/snapshot"

// SnapshotURL is the Worldview snapshot request for the image at t.
func (im Imagery) SnapshotURL(base string, t time.Time) string {
	if base == "" {
		base = snapshotEndpoint
	}
	b := im.BBox
	q := url.Values{}
	q.Set("REQUEST", "GetSnapshot")
	q.Set("TIME", t.UTC().Format("2006-01-02T15:04:05Z"))
	q.Set("BBOX", joinFloats(b[:]))
	q.Set("CRS", "EPSG:4326")
	q.Set("LAYERS", im.Layer+","+LabelsLayer)
	q.Set("WRAP", "none,none")
	q.Set("FORMAT", "image/tiff")
	q.Set("WIDTH", strconv.Itoa(int((b[3]-b[1])/im.Resolution+0.5)))
	q.Set("HEIGHT", strconv.Itoa(int((b[2]-b[0])/im.Resolution+0.5)))
	return base + "?" + q.Encode()
}

func joinFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Download fetches img into dir unless a file of that name is already
// there. It returns the local path.
func (im Imagery) Download(ctx context.Context, client *http.Client, base, dir string, img Image) (string, error) {
	path := filepath.Join(dir, img.Filename)
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		return path, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, im.SnapshotURL(base, img.Time), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", img.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", img.Filename, resp.StatusCode)
	}
	if err := writeAtomic(path, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic writes via a temp file and rename so readers never see a
// half-written file.
func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "img-*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ABIStartToken is the start-time field of a GOES ABI file name,
// _sYYYYJJJHHMM, truncated to the minute.
func ABIStartToken(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("_s%04d%03d%02d%02d", t.Year(), t.YearDay(), t.Hour(), t.Minute())
}

// FindImageFile returns the single netCDF file under dir whose ABI start
// time matches t to the minute.
func FindImageFile(dir string, t time.Time) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ABIStartToken(t)+"*.nc"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s in %s", ErrNotFound, t.UTC().Format(time.RFC3339), dir)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %s: %s", ErrAmbiguousMatch, t.UTC().Format(time.RFC3339), strings.Join(matches, ", "))
}
