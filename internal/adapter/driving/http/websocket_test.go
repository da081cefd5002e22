package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Wyydra/huddle/internal/adapter/driven/gateway/ws"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWS_DemoRoomScenario(t *testing.T) {
	ts := newTestServer(t, testOptions())

	a := dial(t, ts)
	emit(t, a, "join-room", "demo", "peerA")
	waitForMembers(t, ts, "demo", 1)

	b := dial(t, ts)
	emit(t, b, "join-room", "demo", "peerB")
	assert.Equal(t, ws.Frame{Event: "user-connected", Args: []any{"peerB"}}, expectFrame(t, a))

	emit(t, b, "client-log", "hello")
	assert.Equal(t, ws.Frame{Event: "broadcast-log", Args: []any{"hello"}}, expectFrame(t, a))

	emit(t, b, "log", map[string]string{"room": "demo", "message": "ICE state: checking"})
	assert.Equal(t, ws.Frame{Event: "broadcast-log", Args: []any{"ICE state: checking"}}, expectFrame(t, a))

	require.NoError(t, a.Close())

	// B's first frame proves it never heard about itself or its own logs.
	assert.Equal(t, ws.Frame{Event: "user-disconnected", Args: []any{"peerA"}}, expectFrame(t, b))
	waitForMembers(t, ts, "demo", 1)
}

func TestServeWS_RoomsAreIsolated(t *testing.T) {
	ts := newTestServer(t, testOptions())

	a := dial(t, ts)
	emit(t, a, "join-room", "one", "peerA")
	waitForMembers(t, ts, "one", 1)

	b := dial(t, ts)
	emit(t, b, "join-room", "two", "peerB")
	emit(t, b, "client-log", "not for one")
	waitForMembers(t, ts, "two", 1)
	require.NoError(t, b.Close())
	waitForMembers(t, ts, "two", 0)

	c := dial(t, ts)
	emit(t, c, "join-room", "one", "peerC")
	assert.Equal(t, ws.Frame{Event: "user-connected", Args: []any{"peerC"}}, expectFrame(t, a))
}

func TestServeWS_JoinWithoutRoomIsIgnored(t *testing.T) {
	ts := newTestServer(t, testOptions())

	a := dial(t, ts)
	emit(t, a, "join-room", "demo", "peerA")
	waitForMembers(t, ts, "demo", 1)

	c := dial(t, ts)
	emit(t, c, "join-room")
	emit(t, c, "join-room", nil, "peerX")
	emit(t, c, "client-log", "nobody hears this")
	emit(t, c, "log", map[string]string{"room": "demo", "message": "nor this"})
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("garbage")))
	emit(t, c, "unknown-event", 1, 2, 3)
	emit(t, c, "join-room", "demo", "peerC")

	// Everything before the valid join was dropped, in order.
	assert.Equal(t, ws.Frame{Event: "user-connected", Args: []any{"peerC"}}, expectFrame(t, a))
}

func TestServeWS_DisconnectWithoutJoinIsSilent(t *testing.T) {
	ts := newTestServer(t, testOptions())

	a := dial(t, ts)
	emit(t, a, "join-room", "demo", "peerA")
	waitForMembers(t, ts, "demo", 1)

	idle := dial(t, ts)
	require.NoError(t, idle.Close())

	b := dial(t, ts)
	emit(t, b, "join-room", "demo", "peerB")
	assert.Equal(t, ws.Frame{Event: "user-connected", Args: []any{"peerB"}}, expectFrame(t, a))
}

func TestServeWS_LogRelayIsRateLimited(t *testing.T) {
	opts := testOptions()
	opts.LogRate = 0.001
	opts.LogBurst = 2
	ts := newTestServer(t, opts)

	a := dial(t, ts)
	emit(t, a, "join-room", "demo", "peerA")
	waitForMembers(t, ts, "demo", 1)

	b := dial(t, ts)
	emit(t, b, "join-room", "demo", "peerB")
	assert.Equal(t, "user-connected", expectFrame(t, a).Event)

	for _, msg := range []string{"1", "2", "3", "4", "5"} {
		emit(t, b, "client-log", msg)
	}
	emit(t, b, "join-room", "demo", "peerB2")

	assert.Equal(t, ws.Frame{Event: "broadcast-log", Args: []any{"1"}}, expectFrame(t, a))
	assert.Equal(t, ws.Frame{Event: "broadcast-log", Args: []any{"2"}}, expectFrame(t, a))
	assert.Equal(t, ws.Frame{Event: "user-connected", Args: []any{"peerB2"}}, expectFrame(t, a))
}

func TestServeWS_RejectsDisallowedOrigin(t *testing.T) {
	opts := testOptions()
	opts.AllowedOrigins = []string{"https://ok.example"}
	ts := newTestServer(t, opts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	c, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"https://OK.example"}})
	require.NoError(t, err)
	_ = c.Close()
}

func TestCheckOrigin(t *testing.T) {
	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, checkOrigin(nil)(req("https://any.example")))
	assert.True(t, checkOrigin([]string{"*", "https://a.example"})(req("https://b.example")))

	check := checkOrigin([]string{" https://a.example "})
	assert.True(t, check(req("https://a.example")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("https://b.example")))
}
