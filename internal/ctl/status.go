package ctl

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Requests      int64  `json:"requests"`
	Clients       int    `json:"clients"`
	DataRoot      string `json:"data_root"`
	SegmentsDir   string `json:"segments_dir"`
	Frequency     int    `json:"frequency"`
	Revision      string `json:"revision"`
	FilterInvalid bool   `json:"filter_invalid"`
	Disk          *struct {
		TotalBytes     uint64 `json:"total_bytes"`
		AvailableBytes uint64 `json:"available_bytes"`
	} `json:"disk,omitempty"`
}

// Status fetches the daemon status and prints a summary.
func Status(w io.Writer, baseURL string, jsonOutput bool) error {
	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}
	if jsonOutput {
		return PrintJSON(w, s)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, header("  TWINOTTERD STATUS"))
	rule(w, 38)
	field(w, "Daemon", s.Name+" "+s.Version)
	field(w, "State", colorize(stateColor(s.State), s.State))
	field(w, "Uptime", formatDuration(time.Duration(s.UptimeSeconds)*time.Second))
	field(w, "Requests", s.Requests)
	field(w, "Watchers", s.Clients)
	field(w, "Data", s.DataRoot)
	field(w, "Segments", s.SegmentsDir)
	field(w, "Loader", fmt.Sprintf("%d Hz, revision %s, filter %t", s.Frequency, s.Revision, s.FilterInvalid))
	if s.Disk != nil {
		field(w, "Disk free", formatBytes(s.Disk.AvailableBytes)+" of "+formatBytes(s.Disk.TotalBytes))
	}
	field(w, "Host", strings.TrimRight(baseURL, "/"))
	fmt.Fprintln(w)
	return nil
}
