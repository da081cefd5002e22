package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Wyydra/huddle/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/huddle/internal/core/domain"
	"github.com/Wyydra/huddle/internal/core/service"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		WS:       ws.DefaultOptions(),
		LogRate:  0,
		LogBurst: 0,
	}
}

// newTestServer runs a coordinator and the router behind httptest until the
// test ends.
func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()

	rooms := service.NewRoomService(zerolog.Nop(), 64)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = rooms.Run(ctx) }()

	h := NewHandler(rooms, opts, zerolog.Nop())
	ts := httptest.NewServer(h.NewRouter())

	t.Cleanup(func() {
		cancel()
		<-rooms.Done()
		ts.Close()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func emit(t *testing.T, c *websocket.Conn, event string, args ...any) {
	t.Helper()
	if args == nil {
		args = []any{}
	}
	require.NoError(t, c.WriteJSON(ws.Frame{Event: event, Args: args}))
}

func expectFrame(t *testing.T, c *websocket.Conn) ws.Frame {
	t.Helper()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f ws.Frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func getRooms(t *testing.T, ts *httptest.Server) []domain.RoomInfo {
	t.Helper()

	resp, err := http.Get(ts.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rooms []domain.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	return rooms
}

// waitForMembers blocks until room has exactly n members.
func waitForMembers(t *testing.T, ts *httptest.Server, room string, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("%s/rooms/%s", ts.URL, url.PathEscape(room)))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return n == 0
		}
		var info domain.RoomInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return false
		}
		return len(info.Peers) == n
	}, 2*time.Second, 10*time.Millisecond)
}
