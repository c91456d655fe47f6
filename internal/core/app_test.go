package core

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevN0mad/FreedcampMCP/internal/config"
	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/current", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"users":[{"user_id":"3","first_name":"Ada","last_name":"Lovelace"}]}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL, journalPath string) config.Config {
	return config.Config{
		Freedcamp: freedcamp.Opts{
			BaseURL:   baseURL,
			APIKey:    "key",
			APISecret: "secret",
			Timezone:  "UTC",
		},
		Transport: config.TransportOpts{Mode: config.ModeStdio},
		Journal:   storage.JournalOpts{Path: journalPath, RetentionDays: 30},
	}
}

func TestNotConfigured(t *testing.T) {
	app := NewApp(context.Background(), quietLogger(), "test")
	assert.Nil(t, app.Tools())
	_, err := app.Call(context.Background(), "get_projects", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, app.Ping(context.Background()), ErrNotConfigured)
	assert.Nil(t, app.Journal())
}

func TestServeStdioRecordsCalls(t *testing.T) {
	up := newUpstream(t)
	app := NewApp(context.Background(), quietLogger(), "test")
	require.NoError(t, app.ApplyConfig(testConfig(up.URL, filepath.Join(t.TempDir(), "journal.db"))))
	defer app.Shutdown()

	require.Len(t, app.Tools(), 25)
	require.NoError(t, app.Ping(context.Background()))

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_workflow_help","arguments":{"task_type":"create_task"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_current_user","arguments":{}}}`,
	}, "\n") + "\n"

	var out strings.Builder
	require.NoError(t, app.ServeStdio(context.Background(), strings.NewReader(input), &out))

	results := map[string]map[string]any{}
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var msg map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &msg))
		if res, ok := msg["result"].(map[string]any); ok {
			results[string(mustMarshal(t, msg["id"]))] = res
		}
	}
	require.Len(t, results, 3)
	assert.NotContains(t, results["2"], "isError")
	user := results["3"]["structuredContent"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", user["full_name"])

	recs, err := app.Journal().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.True(t, rec.Success, rec.Tool)
		assert.Equal(t, "stdio", rec.Transport)
	}
}

func TestApplyConfigKeepsPreviousOnError(t *testing.T) {
	up := newUpstream(t)
	app := NewApp(context.Background(), quietLogger(), "test")
	require.NoError(t, app.ApplyConfig(testConfig(up.URL, "")))
	defer app.Shutdown()

	bad := testConfig(up.URL, "")
	bad.Freedcamp.APIKey = ""
	require.Error(t, app.ApplyConfig(bad))

	assert.Len(t, app.Tools(), 25)
	assert.NoError(t, app.Ping(context.Background()))
	assert.Nil(t, app.Journal())
}

func TestApplyConfigRestartsServices(t *testing.T) {
	up := newUpstream(t)
	app := NewApp(context.Background(), quietLogger(), "test")

	cfg := testConfig(up.URL, filepath.Join(t.TempDir(), "journal.db"))
	cfg.HTTPServer.Enabled = true
	cfg.HTTPServer.Address = "127.0.0.1:0"
	require.NoError(t, app.ApplyConfig(cfg))
	first := app.Journal()

	// тот же путь журнала: база не переоткрывается
	require.NoError(t, app.ApplyConfig(cfg))
	assert.Same(t, first, app.Journal())

	cfg.Journal.Path = filepath.Join(t.TempDir(), "other.db")
	require.NoError(t, app.ApplyConfig(cfg))
	assert.NotSame(t, first, app.Journal())

	app.Shutdown()
	assert.Nil(t, app.Journal())
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
