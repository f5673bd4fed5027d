package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mding5692/videre-server/config"
	"github.com/mding5692/videre-server/domain"
	"github.com/mding5692/videre-server/hub"
	"github.com/mding5692/videre-server/protocol"
)

func newTestMux() (*http.ServeMux, *hub.Hub) {
	registry := hub.New()
	return newMux(config.Default(), registry, protocol.NewHandler(registry)), registry
}

func TestHealth(t *testing.T) {
	mux, _ := newTestMux()
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	mux, registry := newTestMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/echo", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(domain.Message{
		Header: domain.Header{Event: "connect", UserID: "u1", RoomID: "r1"},
	}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply domain.Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "true", reply.Payload)

	rooms, clients := registry.Stats()
	require.Equal(t, 1, rooms)
	require.Equal(t, 1, clients)

	resp, err := http.Get(server.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, map[string]int{"rooms": 1, "clients": 1}, stats)
}

func TestSignalingPrefixSubtree(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		path   string
	}{
		{name: "exact prefix", prefix: "/echo", path: "/echo"},
		{name: "trailing slash", prefix: "/echo", path: "/echo/"},
		{name: "raw websocket endpoint", prefix: "/echo", path: "/echo/websocket"},
		{name: "prefix configured with slash", prefix: "/echo/", path: "/echo/websocket"},
		{name: "root prefix", prefix: "/", path: "/anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Prefix = tt.prefix
			registry := hub.New()
			server := httptest.NewServer(newMux(cfg, registry, protocol.NewHandler(registry)))
			defer server.Close()

			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+tt.path, nil)
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.WriteJSON(domain.Message{
				Header: domain.Header{Event: "ping", UserID: "u1", RoomID: "r1"},
			}))
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			var reply domain.Message
			require.NoError(t, conn.ReadJSON(&reply))
			assert.Equal(t, "[]", reply.Payload)
		})
	}
}

func TestRootCmd_FlagsOverrideBeforeValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Port": 0, "TLS": true}`), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "--port", "9000"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "invalid port")
	assert.ErrorContains(t, err, "TLS requires Cert and Key")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"TLS": true}`), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path})

	assert.ErrorContains(t, cmd.Execute(), "TLS requires Cert and Key")
}

func TestRun_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := config.Default()
	cfg.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRun_TLSMissingFiles(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 0
	cfg.TLS = true
	cfg.Cert = filepath.Join(t.TempDir(), "missing.pem")
	cfg.Key = filepath.Join(t.TempDir(), "missing.key")

	assert.Error(t, run(context.Background(), cfg))
}
