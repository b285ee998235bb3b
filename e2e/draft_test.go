package e2e_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/captain-draft/internal/services/session"
)

// frame is one websocket message in either direction
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsClient is a websocket participant in a draft
type wsClient struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dial(t *testing.T, ts *testServer) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.url, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })

	return &wsClient{t: t, ctx: ctx, conn: conn}
}

// join dials, completes the handshake and returns the join snapshot
func join(t *testing.T, ts *testServer, sessionID, secret string) (*wsClient, map[string]json.RawMessage) {
	t.Helper()

	c := dial(t, ts)
	c.send("selectMatch", sessionID)
	c.send("selectRole", secret)

	snapshot := map[string]json.RawMessage{}
	for {
		f := c.next()
		snapshot[f.Event] = f.Data
		if f.Event == "connection" {
			return c, snapshot
		}
	}
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	msg, err := json.Marshal(frame{Event: event, Data: raw})
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.Write(c.ctx, websocket.MessageText, msg))
}

func (c *wsClient) next() frame {
	c.t.Helper()

	_, data, err := c.conn.Read(c.ctx)
	require.NoError(c.t, err)
	var f frame
	require.NoError(c.t, json.Unmarshal(data, &f))
	return f
}

// waitFor skips frames until one with the given event arrives
func (c *wsClient) waitFor(event string) frame {
	c.t.Helper()

	for {
		if f := c.next(); f.Event == event {
			return f
		}
	}
}

// expectClosed asserts the server closes the connection
func (c *wsClient) expectClosed() {
	c.t.Helper()

	for {
		_, _, err := c.conn.Read(c.ctx)
		if err != nil {
			assert.Equal(c.t, websocket.StatusNormalClosure, websocket.CloseStatus(err), "read error: %v", err)
			return
		}
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func createSession(t *testing.T, ts *testServer, captains ...string) createResponse {
	t.Helper()

	var created createResponse
	status := ts.doJSON(t, http.MethodPost, "/api/v1/sessions", "", map[string]any{"captains": captains}, &created)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.Secret)
	return created
}

// Tests

func TestDraft_HostAddsPlayer(t *testing.T) {
	ts := startTestServer(t, session.Config{})
	defer ts.shutdown()

	created := createSession(t, ts, "Alice", "Bob")

	host, snapshot := join(t, ts, created.ID, created.Secret)
	captains := decode[[]captainInfo](t, snapshot["captainIds"])
	require.Len(t, captains, 2)
	assert.Equal(t, "Alice", captains[0].Name)
	assert.Equal(t, captains[0].ID, decode[string](t, snapshot["picking"]))
	assert.Equal(t, "host", decode[string](t, snapshot["permission"]))

	host.send("add", "p1")

	list := host.waitFor("newList")
	assert.JSONEq(t, `[["p1","unselected"]]`, string(list.Data))
}

func TestDraft_CaptainPickPassesTurn(t *testing.T) {
	ts := startTestServer(t, session.Config{})
	defer ts.shutdown()

	created := createSession(t, ts, "Alice", "Bob")
	host, snapshot := join(t, ts, created.ID, created.Secret)
	captains := decode[[]captainInfo](t, snapshot["captainIds"])
	alice, bob := captains[0], captains[1]

	aliceConn, _ := join(t, ts, created.ID, alice.Secret)

	host.send("add", "p1")
	host.waitFor("newList")
	aliceConn.waitFor("newList")

	aliceConn.send("pick", "p1")

	list := host.waitFor("newList")
	assert.JSONEq(t, `[["p1","`+alice.ID+`"]]`, string(list.Data))
	picking := host.next()
	assert.Equal(t, "picking", picking.Event)
	assert.Equal(t, bob.ID, decode[string](t, picking.Data))
}

func TestDraft_CaptainSeesNoOtherSecrets(t *testing.T) {
	ts := startTestServer(t, session.Config{})
	defer ts.shutdown()

	created := createSession(t, ts, "Alice", "Bob", "Carol")
	_, hostSnapshot := join(t, ts, created.ID, created.Secret)
	captains := decode[[]captainInfo](t, hostSnapshot["captainIds"])
	for _, c := range captains {
		assert.NotEmpty(t, c.Secret)
	}

	_, snapshot := join(t, ts, created.ID, captains[1].Secret)
	for _, c := range decode[[]captainInfo](t, snapshot["captainIds"]) {
		assert.Empty(t, c.Secret)
	}
	assert.Equal(t, captains[1].ID, decode[string](t, snapshot["roleId"]))
}

func TestDraft_HostGraceExpiry(t *testing.T) {
	ts := startTestServer(t, session.Config{GracePeriod: 200 * time.Millisecond})
	defer ts.shutdown()

	created := createSession(t, ts, "Alice", "Bob")
	host, snapshot := join(t, ts, created.ID, created.Secret)
	captains := decode[[]captainInfo](t, snapshot["captainIds"])

	spectator, _ := join(t, ts, created.ID, decode[string](t, snapshot["spectatorSecret"]))
	host.send("add", "p1")
	spectator.waitFor("newList")

	// Host leaves and never comes back
	require.NoError(t, host.conn.Close(websocket.StatusNormalClosure, ""))

	spectator.expectClosed()
	require.Eventually(t, func() bool {
		var health healthResponse
		ts.doJSON(t, http.MethodGet, "/api/v1/health", "", nil, &health)
		return health.Sessions == 0
	}, 5*time.Second, 20*time.Millisecond)

	// The session id no longer resolves
	late := dial(t, ts)
	late.send("selectMatch", created.ID)
	late.expectClosed()

	// The archived result is readable with the host secret only
	resultPath := "/api/v1/sessions/" + created.ID + "/result"
	var result resultResponse
	require.Eventually(t, func() bool {
		return ts.doJSON(t, http.MethodGet, resultPath, created.Secret, nil, &result) == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "host_timeout", result.Reason)
	assert.Equal(t, []string{"p1"}, result.Unselected)

	var errResp errorResponse
	status := ts.doJSON(t, http.MethodGet, resultPath, captains[0].Secret, nil, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errResp.Error.Code)
}

func TestDraft_HostReconnectWithinGrace(t *testing.T) {
	ts := startTestServer(t, session.Config{GracePeriod: 500 * time.Millisecond})
	defer ts.shutdown()

	created := createSession(t, ts, "Alice", "Bob")
	host, _ := join(t, ts, created.ID, created.Secret)
	host.send("add", "p1")
	host.waitFor("newList")
	require.NoError(t, host.conn.Close(websocket.StatusNormalClosure, ""))

	_, snapshot := join(t, ts, created.ID, created.Secret)
	assert.JSONEq(t, `[["p1","unselected"]]`, string(snapshot["newList"]))

	time.Sleep(800 * time.Millisecond)
	var health healthResponse
	ts.doJSON(t, http.MethodGet, "/api/v1/health", "", nil, &health)
	assert.Equal(t, 1, health.Sessions)
}

func TestAPI_CreateValidation(t *testing.T) {
	ts := startTestServer(t, session.Config{})
	defer ts.shutdown()

	tests := []struct {
		name string
		body any
	}{
		{name: "not an array", body: map[string]any{"captains": "Alice,Bob"}},
		{name: "one captain", body: map[string]any{"captains": []string{"Alice"}}},
		{name: "missing", body: map[string]any{}},
		{name: "empty name", body: map[string]any{"captains": []string{"Alice", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp errorResponse
			status := ts.doJSON(t, http.MethodPost, "/api/v1/sessions", "", tt.body, &errResp)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "INVALID_REQUEST", errResp.Error.Code)
		})
	}
}

func TestAPI_LegacyCreateRoute(t *testing.T) {
	ts := startTestServer(t, session.Config{})
	defer ts.shutdown()

	var created createResponse
	status := ts.doJSON(t, http.MethodPost, "/api/create", "", map[string]any{"captains": []string{"Alice", "Bob"}}, &created)
	require.Equal(t, http.StatusOK, status)

	_, snapshot := join(t, ts, created.ID, created.Secret)
	assert.Equal(t, "host", decode[string](t, snapshot["roleId"]))
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	ts := startTestServer(t, session.Config{})
	defer ts.shutdown()

	createSession(t, ts, "Alice", "Bob")

	resp, err := http.Get(ts.url + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := new(strings.Builder)
	_, err = io.Copy(body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "captaindraft_sessions_created_total 1")
	assert.Contains(t, body.String(), "go_goroutines")
}
