package satellite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurec4a/twinotter/internal/flight"
)

const terraTLE = `TERRA
1 25994U 99068A   20024.50000000  .00000050  00000-0  21000-4 0  9996
2 25994  98.2000 100.0000 0001200  90.0000 270.0000 14.57100000 10001
`

func at(h, m, s int) time.Time {
	return time.Date(2020, 1, 24, h, m, s, 0, time.UTC)
}

func TestFilenameAtTime(t *testing.T) {
	assert.Equal(t, "GOES-East_ABI_Band2_Red_Visible_1km_2020-01-24_14-00.tiff",
		FilenameAtTime(at(14, 0, 0), DefaultLayer))
	assert.Equal(t, "L_2020-02-05_09-50.tiff", FilenameAtTime(time.Date(2020, 2, 5, 9, 50, 0, 0, time.UTC), "L"))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, at(14, 0, 0), RoundDown(at(14, 9, 59), DefaultCadence))
	assert.Equal(t, at(14, 10, 0), Round(at(14, 5, 1), DefaultCadence))
	assert.Equal(t, at(14, 0, 0), Round(at(14, 5, 0), DefaultCadence))
	assert.Equal(t, at(14, 0, 0), Round(at(14, 4, 59), DefaultCadence))
}

func TestImageTimes(t *testing.T) {
	times := ImageTimes(at(14, 2, 0), at(14, 31, 0), DefaultCadence)
	assert.Equal(t, []time.Time{at(14, 0, 0), at(14, 10, 0), at(14, 20, 0), at(14, 30, 0), at(14, 40, 0)}, times)

	one := ImageTimes(at(14, 0, 0), at(14, 0, 0), DefaultCadence)
	assert.Equal(t, []time.Time{at(14, 0, 0), at(14, 10, 0)}, one)
}

func TestImagesForFlight(t *testing.T) {
	attrs := flight.Attributes{
		Date:              time.Date(2020, 1, 24, 0, 0, 0, 0, time.UTC),
		TimeCoverageStart: "14:02:00 UTC",
		TimeCoverageEnd:   "14:15:00 UTC",
	}
	imgs, err := DefaultImagery().ImagesForFlight(attrs)
	require.NoError(t, err)
	require.Len(t, imgs, 3)
	assert.Equal(t, at(14, 20, 0), imgs[2].Time)
	assert.Equal(t, FilenameAtTime(at(14, 0, 0), DefaultLayer), imgs[0].Filename)

	_, err = DefaultImagery().ImagesForFlight(flight.Attributes{})
	assert.Error(t, err)
}

func TestSnapshotURL(t *testing.T) {
	u, err := url.Parse(DefaultImagery().SnapshotURL("", at(14, 0, 0)))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "wvs.earthdata.nasa.gov", u.Host)
	assert.Equal(t, "2020-01-24T14:00:00Z", q.Get("TIME"))
	assert.Equal(t, "10,-60,15,-50", q.Get("BBOX"))
	assert.Equal(t, "1000", q.Get("WIDTH"))
	assert.Equal(t, "500", q.Get("HEIGHT"))
	assert.Equal(t, DefaultLayer+","+LabelsLayer, q.Get("LAYERS"))
}

func TestDownload(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "2020-01-24T14:10:00Z", r.URL.Query().Get("TIME"))
		_, _ = w.Write([]byte("tiff bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	img := Image{Time: at(14, 10, 0), Filename: FilenameAtTime(at(14, 10, 0), DefaultLayer)}
	path, err := DefaultImagery().Download(context.Background(), srv.Client(), srv.URL, dir, img)
	require.NoError(t, err)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tiff bytes", string(body))

	_, err = DefaultImagery().Download(context.Background(), srv.Client(), srv.URL, dir, img)
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "existing file is not fetched again")
}

func TestFindImageFile(t *testing.T) {
	dir := t.TempDir()
	name := "OR_ABI-L2-CMIPF-M6C02_G16_s202002414001234_e202002414095678_c202002414101234.nc"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))

	got, err := FindImageFile(dir, at(14, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), got)

	_, err = FindImageFile(dir, at(14, 10, 0))
	assert.ErrorIs(t, err, ErrNotFound)

	dup := "OR_ABI-L2-CMIPF-M6C13_G16_s202002414001234_e202002414095678_c202002414101234.nc"
	require.NoError(t, os.WriteFile(filepath.Join(dir, dup), nil, 0o644))
	_, err = FindImageFile(dir, at(14, 0, 0))
	assert.ErrorIs(t, err, ErrAmbiguousMatch)
}

func TestParseTLEs(t *testing.T) {
	tles, err := ParseTLEs(terraTLE)
	require.NoError(t, err)
	assert.Contains(t, tles, 25994)

	_, err = ParseTLEs("nothing useful\n")
	assert.Error(t, err)
}

func TestTLEStoreFallsBackToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "tle.txt")
	require.NoError(t, os.WriteFile(path, []byte(terraTLE), 0o644))
	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	tles, err := NewTLEStore(srv.URL, path, time.Hour).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, tles, 1)

	_, err = NewTLEStore("", filepath.Join(t.TempDir(), "none.txt"), time.Hour).Fetch(context.Background())
	assert.Error(t, err)
}

func TestPassesSortedAndFiltered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tle.txt")
	require.NoError(t, os.WriteFile(path, []byte(terraTLE), 0o644))

	p := NewPredictor(NewTLEStore("", path, time.Hour), 0, nil)
	loc := Location{Lat: 13.15, Lon: -59.42}
	passes, err := p.Passes(context.Background(), loc, at(0, 0, 0), at(23, 59, 59))
	require.NoError(t, err)
	require.NotEmpty(t, passes)
	for i, ps := range passes {
		assert.Equal(t, "TERRA", ps.Orbiter.Name)
		assert.GreaterOrEqual(t, ps.MaxElev, 0.0)
		if i > 0 {
			assert.False(t, ps.AOS.Before(passes[i-1].AOS))
		}
	}

	high := NewPredictor(NewTLEStore("", path, time.Hour), 91, nil)
	none, err := high.Passes(context.Background(), loc, at(0, 0, 0), at(23, 59, 59))
	require.NoError(t, err)
	assert.Empty(t, none)
}
