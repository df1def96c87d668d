package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Health asks GET /healthz for the component checks.
func Health(w io.Writer, baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	code, body, err := getRaw(baseURL, "/healthz", "application/json")
	if err != nil {
		if jsonOutput {
			return PrintJSON(w, map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}

	var resp struct {
		Healthy bool                      `json:"healthy"`
		Checks  map[string]map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("healthz: %w", err)
	}
	if jsonOutput {
		return PrintJSON(w, resp)
	}

	fmt.Fprintln(w)
	if code == http.StatusOK && resp.Healthy {
		fmt.Fprintf(w, "  %s  twinotterd is healthy at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Fprintf(w, "  %s  twinotterd returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), code, colorize(dim, baseURL))
	}
	names := make([]string, 0, len(resp.Checks))
	for n := range resp.Checks {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := resp.Checks[n]
		mark := colorize(green, "ok  ")
		detail, _ := c["path"].(string)
		if ok, _ := c["ok"].(bool); !ok {
			mark = colorize(red, "FAIL")
			detail, _ = c["error"].(string)
		}
		fmt.Fprintf(w, "    %s %-14s %s\n", mark, n, colorize(dim, detail))
	}
	fmt.Fprintln(w)
	return nil
}
