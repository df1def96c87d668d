package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurec4a/twinotter/internal/telemetry"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.Clients(context.Background()) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestPublishRespectsTypeFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	all := dial(t, srv, "")
	logsOnly := dial(t, srv, "?types=log")
	waitClients(t, h, 2)

	require.NoError(t, h.Publish(telemetry.StateTransition{
		Event: telemetry.New(telemetry.EventState, "test"), From: "BOOTING", To: "IDLE",
	}))
	require.NoError(t, h.Publish(telemetry.LogLine{
		Event: telemetry.New(telemetry.EventLog, "test"), Level: "info", Message: "hello",
	}))

	read := func(c *websocket.Conn) map[string]any { return readEvent(t, c) }

	assert.Equal(t, "state", read(all)["type"])
	assert.Equal(t, "log", read(all)["type"])

	ev := read(logsOnly)
	assert.Equal(t, "log", ev["type"])
	assert.Equal(t, "hello", ev["message"])
}

func TestPublishSegmentExtracted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dial(t, srv, "?types=segment_extracted")
	waitClients(t, h, 1)

	idx := 2
	ev := telemetry.SegmentExtracted{
		Event:       telemetry.New(telemetry.EventExtracted, "test"),
		File:        "core_masin_20200124_r004_flight330_1hz.nc",
		SegmentKind: "level",
		Index:       &idx,
		Rows:        10,
	}
	assert.Equal(t, telemetry.EventExtracted, ev.Kind())
	require.NoError(t, h.Publish(ev))

	got := readEvent(t, conn)
	assert.Equal(t, "segment_extracted", got["type"])
	assert.Equal(t, "level", got["kind"])
	assert.EqualValues(t, 2, got["index"])
	assert.EqualValues(t, 10, got["rows"])
}

func TestParseTypes(t *testing.T) {
	assert.Nil(t, ParseTypes(" "))
	assert.Equal(t, map[telemetry.EventType]bool{
		telemetry.EventLog:    true,
		telemetry.EventLoaded: true,
	}, ParseTypes("log, flight_loaded,"))
}
