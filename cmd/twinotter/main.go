// Twinotter is the command-line front end to the MASIN flight core: it
// loads flights, lists and cuts segments, computes variables, builds the
// flight summary, and talks to a running twinotterd.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/eurec4a/twinotter/internal/config"
	"github.com/eurec4a/twinotter/internal/ctl"
)

// env is what every subcommand gets.
type env struct {
	ctx    context.Context
	cfg    config.Config
	log    *log.Logger
	out    io.Writer
	host   string
	json   bool
	filter []string
}

type command func(e *env, args []string) error

var commands = map[string]command{
	"info":          runInfo,
	"summary":       runSummary,
	"segments":      runSegments,
	"segments-init": runSegmentsInit,
	"extract":       runExtract,
	"derive":        runDerive,
	"quicklook":     runQuicklook,
	"export":        runExport,
	"goes":          runGOES,
	"passes":        runPasses,
	"ccn":           runCCN,
	"config":        runConfig,
	"status":        func(e *env, _ []string) error { return ctl.Status(e.out, e.host, e.json) },
	"health":        func(e *env, _ []string) error { return ctl.Health(e.out, e.host, e.json) },
	"version":       func(e *env, _ []string) error { return ctl.VersionInfo(e.out, e.host, e.json) },
	"daemon-config": func(e *env, _ []string) error { return ctl.DaemonConfig(e.out, e.host, e.json) },
	"watch":         runWatch,
}

func main() {
	var (
		configPath = pflag.StringP("config", "c", "twinotter.toml", "Path to config TOML")
		host       = pflag.StringP("host", "H", "", "twinotterd URL (default: http://<server.bind>)")
		jsonOut    = pflag.Bool("json", false, "Output JSON instead of formatted text")
		noColor    = pflag.Bool("no-color", false, "Disable ANSI colors")
		verbose    = pflag.BoolP("verbose", "v", false, "Log loader activity to stderr")
		filter     = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter flight_loaded,log)")
	)

	// Subcommand flags follow the command name.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Usage = usage
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	run, ok := commands[pflag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *noColor {
		ctl.Color = false
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose || cfg.Logging.Debug() {
		logger = log.New(os.Stderr, "twinotter ", log.LstdFlags)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{
		ctx:    ctx,
		cfg:    cfg,
		log:    logger,
		out:    os.Stdout,
		host:   *host,
		json:   *jsonOut,
		filter: *filter,
	}
	if e.host == "" {
		e.host = "http://" + cfg.Server.Bind
	}

	if err := run(e, pflag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads path. A missing file is only an error when the user
// named it explicitly; otherwise the defaults apply.
func loadConfig(path string, explicit bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return config.Default(), nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func usage() {
	fmt.Fprint(os.Stderr, `
  twinotter: MASIN twin otter flight data tool

  USAGE
    twinotter [flags] <command> [command-flags] [args]

  COMMANDS (local)
    info [PATH]             Show attributes, channels and variables of a flight
    summary                 Update the flight summary CSV (and XLSX/SQLite)
    segments FILE           List the segments of a segment document
    segments-init [PATH]    Start a segment document for a flight
    extract PATH            Cut a flight by segment kind and export it
    derive PATH NAME        Compute a variable and show its statistics
    quicklook PATH          Per-segment statistics of the key channels
    export PATH             Write a flight to Parquet or CSV
    goes [PATH]             GOES images covering a flight
    passes [PATH]           Polar-orbiter overpasses during a flight
    ccn DIR                 Load CCN-100 CSV files
    config                  Print the effective configuration

  COMMANDS (daemon)
    status                  Show twinotterd state
    health                  Run twinotterd health checks
    version                 Show CLI and daemon versions
    daemon-config           Show the daemon's configuration
    watch                   Stream daemon events (Ctrl-C to stop)

  GLOBAL FLAGS
    -c, --config PATH       Config TOML (default: twinotter.toml)
    -H, --host URL          Daemon URL (default: http://<server.bind>)
        --json              Output JSON
        --no-color          Disable colors
    -v, --verbose           Log loader activity
        --filter TYPES      Event types for watch (comma-separated)

  PATH defaults to data.root. Loader commands accept --revision and
  --frequency; segment commands accept --segments FILE, --kind K and
  --index N.

  EXAMPLES
    twinotter info obs
    twinotter derive obs air_potential_temperature --segments obs/flight-segments/TO-0330.yaml --kind level --index 0
    twinotter extract obs --segments TO-0330.yaml --kind cloud_base -o cloud_base.parquet
    twinotter summary --xlsx flights.xlsx --index flights.db
    twinotter segments-init obs --legs legs.csv -o TO-0330.yaml
    twinotter --filter flight_loaded,log watch

`)
}
