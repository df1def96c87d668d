package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command.
type WatchOptions struct {
	Filter []string // event types to show; empty shows all
	JSON   bool     // print raw JSON per event
}

// WatchURL converts the daemon base URL into its event stream URL. The
// filter is applied by the daemon.
func WatchURL(baseURL string, filter []string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	if len(filter) > 0 {
		u.RawQuery = url.Values{"types": {strings.Join(filter, ",")}}.Encode()
	}
	return u.String(), nil
}

// Watch streams daemon events to w until ctx is cancelled or the
// connection drops.
func Watch(ctx context.Context, w io.Writer, baseURL string, opts WatchOptions) error {
	target, err := WatchURL(baseURL, opts.Filter)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s %s\n", colorize(green, "connected"), colorize(dim, target))
		rule(w, 50)
		fmt.Fprintln(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if opts.JSON {
				fmt.Fprintln(w, string(msg))
			} else {
				RenderEvent(w, msg)
			}
		}
	}()

	select {
	case <-ctx.Done():
		if !opts.JSON {
			fmt.Fprintln(w)
			fmt.Fprintln(w, colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

// RenderEvent prints one event line. Unknown types are dumped as JSON.
func RenderEvent(w io.Writer, raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Fprintf(w, "  %s\n", string(raw))
		return
	}

	str := func(k string) string { s, _ := ev[k].(string); return s }
	num := func(k string) float64 { f, _ := ev[k].(float64); return f }
	ts := colorize(dim, formatEventTime(str("ts")))

	switch str("type") {
	case "heartbeat":
		fmt.Fprintf(w, "  %s %s  %s  up %s  %s requests\n",
			ts,
			colorize(dim, "heartbeat"),
			colorize(stateColor(str("state")), str("state")),
			colorize(dim, formatDuration(time.Duration(num("uptime_seconds"))*time.Second)),
			colorize(dim, fmt.Sprint(int64(num("requests")))),
		)

	case "state":
		fmt.Fprintf(w, "  %s %s  %s %s %s\n",
			ts,
			colorize(bold, "STATE"),
			colorize(stateColor(str("from")), str("from")),
			colorize(dim, "->"),
			colorize(stateColor(str("to")), str("to")),
		)

	case "log":
		src := ""
		if c := str("component"); c != "" {
			src = colorize(dim, "["+c+"] ")
		}
		fmt.Fprintf(w, "  %s %s  %s%s\n", ts, formatLogLevel(str("level")), src, str("message"))

	case "flight_loaded":
		fmt.Fprintf(w, "  %s %s  flight %d r%03d  %s  %d rows  %s-%s\n",
			ts,
			colorize(cyan, padRight("LOADED", 9)),
			int(num("flight_number")),
			int(num("revision")),
			str("file"),
			int(num("rows")),
			shortTime(str("start")),
			shortTime(str("end")),
		)

	case "segment_extracted":
		which := "all"
		if idx, ok := ev["index"].(float64); ok {
			which = fmt.Sprintf("#%d", int(idx))
		}
		fmt.Fprintf(w, "  %s %s  %s %s  %d rows  %s\n",
			ts,
			colorize(blue, padRight("EXTRACT", 9)),
			colorize(bold, str("kind")),
			which,
			int(num("rows")),
			colorize(dim, str("file")),
		)

	case "variable_derived":
		fmt.Fprintf(w, "  %s %s  %s [%s] %s  %d rows\n",
			ts,
			colorize(green, padRight("DERIVED", 9)),
			colorize(bold, str("name")),
			str("units"),
			colorize(dim, str("resolution")),
			int(num("rows")),
		)

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Fprintf(w, "  %s\n", string(raw))
			return
		}
		fmt.Fprintf(w, "  %s\n", string(pretty))
	}
}

func formatEventTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return padRight(ts, 8)
	}
	return t.Local().Format("15:04:05")
}

func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return clock(t)
}

func formatLogLevel(level string) string {
	switch level {
	case "info":
		return colorize(green, "INFO ")
	case "warn":
		return colorize(yellow, "WARN ")
	case "error":
		return colorize(red, "ERROR")
	default:
		return padRight(level, 5)
	}
}
