package ctl

import (
	"fmt"
	"io"
	"runtime"
)

// Version is set via -ldflags.
var Version = "dev"

// VersionInfo prints the CLI version and, when reachable, the daemon's.
func VersionInfo(w io.Writer, baseURL string, jsonOutput bool) error {
	var daemon struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
		BuiltAt   string `json:"built_at"`
	}
	daemonErr := getJSON(baseURL, "/api/version", &daemon)

	if jsonOutput {
		resp := map[string]any{
			"cli": map[string]any{"version": Version, "go_version": runtime.Version()},
		}
		if daemonErr == nil {
			resp["daemon"] = daemon
		} else {
			resp["daemon_error"] = daemonErr.Error()
		}
		return PrintJSON(w, resp)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  TWINOTTER VERSION"))
	rule(w, 38)
	field(w, "CLI", Version+" ("+runtime.Version()+")")
	if daemonErr != nil {
		field(w, "Daemon", colorize(red, "unreachable: "+daemonErr.Error()))
	} else {
		field(w, "Daemon", daemon.Version+" ("+daemon.GoVersion+")")
		field(w, "Built", daemon.BuiltAt)
	}
	fmt.Fprintln(w)
	return nil
}
