package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/DevN0mad/FreedcampMCP/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type echoMCP struct {
	got []byte
}

func (e *echoMCP) HandleMessage(_ context.Context, body []byte) []byte {
	e.got = body
	if strings.Contains(string(body), "notifications/") {
		return nil
	}
	return []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type reportStub struct{ err error }

func (r reportStub) WriteXLSX(_ context.Context, w io.Writer) (*services.Report, error) {
	if r.err != nil {
		return nil, r.err
	}
	_, err := w.Write([]byte("PK-xlsx"))
	return &services.Report{GeneratedAt: time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC)}, err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestMCPEndpoint(t *testing.T) {
	mcp := &echoMCP{}
	h := New(quietLogger(), Opts{}, mcp, pinger{}, reportStub{}).Handler()

	rec := serve(h, http.MethodPost, MCPPath, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, rec.Body.String())
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(mcp.got))

	rec = serve(h, http.MethodPost, MCPPath, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(h, http.MethodGet, MCPPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(h, http.MethodPost, MCPPath, strings.Repeat("x", maxBodySize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealth(t *testing.T) {
	cases := []struct {
		name   string
		target string
		err    error
		code   int
		want   map[string]string
	}{
		{"shallow", "/api/v1/health", errors.New("ignored"), http.StatusOK, map[string]string{"status": "ok"}},
		{"deep ok", "/api/v1/health?deep=1", nil, http.StatusOK, map[string]string{"status": "ok", "freedcamp": "ok"}},
		{"deep failing", "/api/v1/health?deep=true", errors.New("401 unauthorized"), http.StatusServiceUnavailable,
			map[string]string{"status": "unavailable", "error": "401 unauthorized"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(quietLogger(), Opts{}, &echoMCP{}, pinger{err: tc.err}, reportStub{}).Handler()
			rec := serve(h, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.code, rec.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReport(t *testing.T) {
	h := New(quietLogger(), Opts{}, &echoMCP{}, pinger{}, reportStub{}).Handler()
	rec := serve(h, http.MethodGet, "/api/v1/report", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="freedcamp_tasks_2024-03-10_0905.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK-xlsx", rec.Body.String())

	h = New(quietLogger(), Opts{}, &echoMCP{}, pinger{}, reportStub{err: errors.New("boom")}).Handler()
	rec = serve(h, http.MethodGet, "/api/v1/report", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(h, http.MethodPost, "/api/v1/report", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	srv := New(quietLogger(), Opts{Address: "127.0.0.1:0"}, &echoMCP{}, pinger{}, reportStub{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
