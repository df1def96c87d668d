package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/eurec4a/twinotter/internal/config"
	"github.com/eurec4a/twinotter/internal/derive"
	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/masin"
	"github.com/eurec4a/twinotter/internal/segments"
	"github.com/eurec4a/twinotter/internal/summary"
	"github.com/eurec4a/twinotter/internal/telemetry"
)

// badRequest marks errors caused by the query string.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps core errors onto HTTP status codes.
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, flight.ErrAmbiguousMatch):
		return http.StatusConflict
	case errors.Is(err, flight.ErrNotFound),
		errors.Is(err, segments.ErrIndexOutOfRange),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, derive.ErrNotComputable),
		errors.Is(err, segments.ErrMalformedDocument),
		errors.Is(err, flight.ErrTimeNotMonotonic),
		errors.Is(err, flight.ErrMissingChannel),
		errors.Is(err, masin.ErrNoMatch):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"ok":false,"error":...} with the mapped status.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		a.logf("error", "%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, code, map[string]any{"ok": false, "error": err.Error()})
}

// within joins a client-supplied relative path onto root without letting
// it climb out.
func within(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.Clean("/"+rel))
}

// loaderFor applies an optional ?revision= override to the configured
// loader options.
func (a *App) loaderFor(r *http.Request) (flight.Options, error) {
	opts := a.loaderOpts
	if s := r.URL.Query().Get("revision"); s != "" {
		n, err := config.LoaderConfig{Revision: s}.RevisionNumber()
		if err != nil {
			return opts, badRequestf("revision: %v", err)
		}
		opts.Revision = n
	}
	if s := r.URL.Query().Get("frequency"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return opts, badRequestf("frequency %q is not a positive integer", s)
		}
		opts.Frequency = n
	}
	return opts, nil
}

func (a *App) loadFlight(r *http.Request) (*flight.Dataset, error) {
	opts, err := a.loaderFor(r)
	if err != nil {
		return nil, err
	}
	done := a.beginLoad()
	defer done()

	ds, err := a.loader(opts).Load(within(a.cfg.Data.Root, r.URL.Query().Get("path")))
	if err != nil {
		return nil, err
	}
	a.publish(telemetry.FlightLoaded{
		Event:        telemetry.New(telemetry.EventLoaded, component),
		File:         filepath.Base(ds.Attrs.SourceFile),
		FlightNumber: ds.Attrs.FlightNumber,
		Revision:     ds.Attrs.Revision,
		Rows:         ds.Len(),
		Start:        formatTime(ds.Start()),
		End:          formatTime(ds.End()),
	})
	return ds, nil
}

func (a *App) loadCatalog(name string) (*segments.Catalog, error) {
	if name == "" {
		return nil, badRequestf("file parameter required")
	}
	return segments.Load(within(a.cfg.Data.Segments, name))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") != "application/json" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
		return
	}

	checks := map[string]any{}
	healthy := true
	dirCheck := func(name, path string) {
		fi, err := os.Stat(path)
		switch {
		case err != nil:
			checks[name] = map[string]any{"ok": false, "error": err.Error()}
			healthy = false
		case !fi.IsDir():
			checks[name] = map[string]any{"ok": false, "error": path + " is not a directory"}
			healthy = false
		default:
			checks[name] = map[string]any{"ok": true, "path": path}
		}
	}
	dirCheck("data_root", a.cfg.Data.Root)
	dirCheck("segments_dir", a.cfg.Data.Segments)
	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			healthy = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"healthy": healthy, "checks": checks})
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"name":           component,
		"version":        Version,
		"state":          a.currentState(),
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"requests":       a.requests.Load(),
		"clients":        a.wsHub.Clients(r.Context()),
		"data_root":      a.cfg.Data.Root,
		"segments_dir":   a.cfg.Data.Segments,
		"frequency":      a.loaderOpts.Frequency,
		"revision":       a.cfg.Loader.Revision,
		"filter_invalid": a.loaderOpts.FilterInvalid,
	}
	if du := diskUsage(a.cfg.Data.Root); du != nil {
		resp["disk"] = du
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": runtime.Version(),
		"built_at":   BuiltAt,
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg)
}

func (a *App) handleFlights(w http.ResponseWriter, r *http.Request) {
	done := a.beginLoad()
	defer done()

	entries, err := summary.NewGenerator(nil).Scan(a.cfg.Data.Root)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	type row struct {
		summary.Entry
		File  string `json:"file"`
		Start string `json:"start"`
		End   string `json:"end"`
		Date  string `json:"date"`
	}
	rows := make([]row, len(entries))
	for i, e := range entries {
		rows[i] = row{
			Entry: e,
			File:  e.Filename(),
			Date:  e.Date.Format("2006-01-02"),
			Start: flight.FormatTimeOfDay(e.Start),
			End:   flight.FormatTimeOfDay(e.End),
		}
		rows[i].Path = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"flights": rows})
}

type channelJSON struct {
	Name     string `json:"name"`
	Units    string `json:"units,omitempty"`
	LongName string `json:"long_name,omitempty"`
}

func (a *App) handleFlight(w http.ResponseWriter, r *http.Request) {
	ds, err := a.loadFlight(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	channels := make([]channelJSON, 0, len(ds.Names()))
	for _, name := range ds.Names() {
		v, _ := ds.Var(name)
		long, _ := v.Attrs["long_name"].(string)
		channels = append(channels, channelJSON{Name: name, Units: v.Units(), LongName: long})
	}

	attrs := ds.Attrs
	attrs.Global = nil
	attrs.SourceFile = filepath.Base(attrs.SourceFile)
	writeJSON(w, http.StatusOK, map[string]any{
		"attributes": attrs,
		"rows":       ds.Len(),
		"start":      formatTime(ds.Start()),
		"end":        formatTime(ds.End()),
		"channels":   channels,
	})
}

func (a *App) handleSegments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := a.loadCatalog(q.Get("file"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	segs := c.Segments
	if kind := q.Get("kind"); kind != "" {
		segs = c.Matching(kind)
	}
	if segs == nil {
		segs = []segments.Segment{}
	}
	header := *c
	header.Segments = nil
	writeJSON(w, http.StatusOK, map[string]any{
		"flight":   header,
		"kinds":    c.Kinds(),
		"count":    len(segs),
		"segments": segs,
	})
}

func (a *App) handleVariables(w http.ResponseWriter, r *http.Request) {
	ds, err := a.loadFlight(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	type entry struct {
		Name       string `json:"name"`
		Resolution string `json:"resolution"`
		Channel    string `json:"channel,omitempty"`
	}
	var out []entry
	for _, name := range derive.Names() {
		res := derive.Resolve(name, ds)
		out = append(out, entry{Name: name, Resolution: res.Kind.String(), Channel: res.Channel})
	}
	writeJSON(w, http.StatusOK, map[string]any{"variables": out})
}

func (a *App) handleVariable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		a.writeError(w, r, badRequestf("name parameter required"))
		return
	}

	var index *int
	if s := q.Get("index"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			a.writeError(w, r, badRequestf("index %q is not an integer", s))
			return
		}
		index = &n
	}
	kind := q.Get("kind")
	if kind == "" && (q.Get("segments") != "" || index != nil) {
		a.writeError(w, r, badRequestf("kind parameter required with segments"))
		return
	}

	ds, err := a.loadFlight(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if kind != "" {
		c, err := a.loadCatalog(q.Get("segments"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if ds, err = segments.Extract(ds, c, kind, index); err != nil {
			a.writeError(w, r, err)
			return
		}
		a.publish(telemetry.SegmentExtracted{
			Event:       telemetry.New(telemetry.EventExtracted, component),
			File:        filepath.Base(ds.Attrs.SourceFile),
			SegmentKind: kind,
			Index:       index,
			Rows:        ds.Len(),
		})
	}

	res := derive.Resolve(name, ds)
	v, err := derive.Calculate(name, ds)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.publish(telemetry.VariableDerived{
		Event:      telemetry.New(telemetry.EventDerived, component),
		Name:       name,
		Resolution: res.Kind.String(),
		Units:      v.Units(),
		Rows:       len(v.Values),
	})

	times := make([]string, ds.Len())
	for i, t := range ds.Time {
		times[i] = t.UTC().Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       v.Name,
		"units":      v.Units(),
		"resolution": res.Kind.String(),
		"time":       times,
		"values":     nullable(v.Values),
	})
}

// nullable turns NaN into JSON null.
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
			out[i] = &values[i]
		}
	}
	return out
}
