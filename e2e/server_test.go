package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/captain-draft/internal/api"
	"github.com/mcoot/captain-draft/internal/factory"
	"github.com/mcoot/captain-draft/internal/services/session"
	"github.com/mcoot/captain-draft/internal/testutil"
)

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	server   *api.Server
	url      string
	shutdown func()
}

func startTestServer(t *testing.T, sessionCfg session.Config) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, listener.Close())

	app, err := factory.New(factory.Config{Session: sessionCfg})
	require.NoError(t, err)

	cfg := api.DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = addr.Port
	cfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(app.Router, cfg, testutil.NopLogger())

	// Start server
	go func() {
		if err := server.Start(); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + server.Addr()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:    app,
		server: server,
		url:    serverURL,
		shutdown: func() {
			_ = app.Registry.Shutdown(context.Background())
			_ = server.Shutdown(context.Background())
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// doJSON sends a JSON request and decodes the response body into result
func (ts *testServer) doJSON(t *testing.T, method, path, secret string, body, result any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.url+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if result != nil {
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, result), "body: %s", string(data))
		}
	}
	return resp.StatusCode
}

// Response types for JSON parsing
type createResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type resultResponse struct {
	ID       string `json:"id"`
	Captains []struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Players []string `json:"players"`
	} `json:"captains"`
	Unselected []string `json:"unselected"`
	Reason     string   `json:"reason"`
}

type captainInfo struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Secret string `json:"secret"`
}
