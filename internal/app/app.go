// Package app is twinotterd: a read-only HTTP service over the flight core
// with a WebSocket event stream. Every request loads what it needs from
// disk, so no dataset is shared between handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/eurec4a/twinotter/internal/config"
	"github.com/eurec4a/twinotter/internal/flight"
	"github.com/eurec4a/twinotter/internal/telemetry"
	"github.com/eurec4a/twinotter/internal/ws"
)

const component = "twinotterd"

// Daemon states.
const (
	StateBooting = "BOOTING"
	StateIdle    = "IDLE"
	StateLoading = "LOADING"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *log.Logger
	Cfg        config.Config
	Bind       string
	ConfigPath string
}

// App owns the HTTP server, the event hub, and the daemon state.
type App struct {
	log        *log.Logger
	cfg        config.Config
	bind       string
	configPath string
	loaderOpts flight.Options
	server     *http.Server

	startedAt time.Time
	state     atomic.Value // string
	inflight  atomic.Int64
	requests  atomic.Int64

	wsHub *ws.Hub
}

// New creates an App in the BOOTING state. Call Run to start serving.
func New(opts Options) (*App, error) {
	lo, err := flight.OptionsFromConfig(opts.Cfg.Loader)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	a := &App{
		log:        logger,
		cfg:        opts.Cfg,
		bind:       opts.Bind,
		configPath: opts.ConfigPath,
		loaderOpts: lo,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
	}
	a.state.Store(StateBooting)
	return a, nil
}

// Handler returns the routing table. It is exposed so tests can serve it
// without binding a port.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/version", a.handleVersion)
	mux.HandleFunc("GET /api/config", a.handleConfig)
	mux.HandleFunc("GET /api/flights", a.handleFlights)
	mux.HandleFunc("GET /api/flight", a.handleFlight)
	mux.HandleFunc("GET /api/segments", a.handleSegments)
	mux.HandleFunc("GET /api/variable", a.handleVariable)
	mux.HandleFunc("GET /api/variables", a.handleVariables)
	mux.Handle("GET /ws", a.wsHub.Handler())
	return a.counted(mux)
}

// Run starts the HTTP server, event hub and heartbeat. It blocks until ctx
// is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" {
		bind = a.cfg.Server.Bind
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	a.log.Printf("listening on http://%s (data root %s)", ln.Addr(), a.cfg.Data.Root)

	go a.wsHub.Run(ctx)
	a.transition(StateIdle)
	go a.heartbeatLoop(ctx)

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
	}()

	if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) currentState() string {
	return a.state.Load().(string)
}

// transition updates the daemon state and broadcasts the change.
func (a *App) transition(newState string) {
	old := a.state.Swap(newState).(string)
	if old == newState {
		return
	}
	a.publish(telemetry.StateTransition{
		Event: telemetry.New(telemetry.EventState, component),
		From:  old,
		To:    newState,
	})
}

// beginLoad marks a disk load in progress; the returned func ends it.
func (a *App) beginLoad() func() {
	if a.inflight.Add(1) == 1 {
		a.transition(StateLoading)
	}
	return func() {
		if a.inflight.Add(-1) == 0 {
			a.transition(StateIdle)
		}
	}
}

func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.publish(telemetry.Heartbeat{
				Event:         telemetry.New(telemetry.EventHeartbeat, component),
				State:         a.currentState(),
				UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
				Requests:      a.requests.Load(),
			})
		}
	}
}

func (a *App) publish(ev ws.Typed) {
	if err := a.wsHub.Publish(ev); err != nil {
		a.log.Printf("event dropped: %v", err)
	}
}

// logf logs and mirrors the line onto the event stream.
func (a *App) logf(level, format string, args ...any) {
	a.log.Printf(format, args...)
	a.publish(telemetry.LogLine{
		Event:   telemetry.New(telemetry.EventLog, component),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *App) counted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

// loader builds a per-request loader. Loader chatter only reaches the log
// at debug level.
func (a *App) loader(opts flight.Options) *flight.Loader {
	var logger *log.Logger
	if a.cfg.Logging.Debug() {
		logger = a.log
	}
	return flight.NewLoader(opts, logger)
}
