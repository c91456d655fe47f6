package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/models"
	"github.com/DevN0mad/FreedcampMCP/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCatalog struct {
	calls func(name string, args json.RawMessage) (any, error)
}

func (f *fakeCatalog) Tools() []tools.Tool {
	return []tools.Tool{
		{Name: "get_projects", Title: "List projects", Description: "list", ReadOnly: true, InputSchema: &tools.Schema{Type: "object"}},
		{Name: "delete_task", Description: "delete", Destructive: true, InputSchema: &tools.Schema{Type: "object"}},
	}
}

func (f *fakeCatalog) Call(_ context.Context, name string, args json.RawMessage) (any, error) {
	if name != "get_projects" && name != "delete_task" && name != "slow" && name != "panics" {
		return nil, fmt.Errorf("%w: %s", tools.ErrUnknownTool, name)
	}
	return f.calls(name, args)
}

type memRecorder struct {
	mu   sync.Mutex
	recs []models.CallRecord
}

func (m *memRecorder) Record(_ context.Context, rec models.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const initLine = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test"}}}`

// runLines прогоняет сессию и возвращает ответы по id.
func runLines(t *testing.T, srv *Server, lines ...string) map[string]map[string]any {
	t.Helper()
	var out strings.Builder
	err := srv.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	require.NoError(t, err)

	byID := make(map[string]map[string]any)
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var msg map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &msg))
		byID[fmt.Sprint(msg["id"])] = msg
	}
	return byID
}

func errorCode(msg map[string]any) float64 {
	e, _ := msg["error"].(map[string]any)
	code, _ := e["code"].(float64)
	return code
}

func TestRequiresInitialize(t *testing.T) {
	srv := NewServer(&fakeCatalog{}, quietLogger())
	resp := runLines(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	assert.Equal(t, float64(codeInvalidRequest), errorCode(resp["1"]))
	assert.Equal(t, map[string]any{}, resp["2"]["result"])
}

func TestInitializeAndList(t *testing.T) {
	srv := NewServer(&fakeCatalog{}, quietLogger(), WithVersion("1.2.3"))
	resp := runLines(t, srv,
		initLine,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, resp, 2)

	init := resp["1"]["result"].(map[string]any)
	assert.Equal(t, ProtocolVersion, init["protocolVersion"])
	assert.Equal(t, "1.2.3", init["serverInfo"].(map[string]any)["version"])

	list := resp["2"]["result"].(map[string]any)["tools"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "get_projects", first["name"])
	ann := first["annotations"].(map[string]any)
	assert.Equal(t, true, ann["readOnlyHint"])
	assert.NotContains(t, ann, "destructiveHint")
	second := list[1].(map[string]any)["annotations"].(map[string]any)
	assert.Equal(t, true, second["destructiveHint"])
}

func TestProtocolErrors(t *testing.T) {
	srv := NewServer(&fakeCatalog{}, quietLogger())
	resp := runLines(t, srv,
		`{not json`,
		`{"jsonrpc":"1.0","id":5,"method":"ping"}`,
		`{"jsonrpc":"1.0","method":"ping"}`,
		`{"jsonrpc":"2.0","id":6,"method":"resources/list"}`,
		initLine,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call"}`,
	)
	assert.Equal(t, float64(codeParseError), errorCode(resp["<nil>"]))
	assert.Equal(t, float64(codeInvalidRequest), errorCode(resp["5"]))
	assert.Equal(t, float64(codeMethodNotFound), errorCode(resp["6"]))
	assert.Equal(t, float64(codeInvalidParams), errorCode(resp["7"]))
	assert.Equal(t, float64(codeInvalidParams), errorCode(resp["8"]))
	assert.Len(t, resp, 6)
}

func TestToolCallSuccessAndFailure(t *testing.T) {
	rec := &memRecorder{}
	cat := &fakeCatalog{calls: func(name string, args json.RawMessage) (any, error) {
		if name == "delete_task" {
			return nil, &freedcamp.UpstreamError{Kind: freedcamp.KindTransport, Message: "request timed out"}
		}
		return map[string]any{"groups": []any{}}, nil
	}}
	srv := NewServer(cat, quietLogger(), WithRecorder(rec))
	resp := runLines(t, srv,
		initLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_projects","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"delete_task","arguments":{"task_id":"1"}}}`,
	)

	ok := resp["2"]["result"].(map[string]any)
	assert.NotContains(t, ok, "isError")
	assert.Equal(t, map[string]any{"groups": []any{}}, ok["structuredContent"])
	text := ok["content"].([]any)[0].(map[string]any)["text"].(string)
	assert.JSONEq(t, `{"groups":[]}`, text)

	failed := resp["3"]["result"].(map[string]any)
	assert.Equal(t, true, failed["isError"])
	assert.Equal(t, map[string]any{"category": "transient", "retryable": true}, failed["errorInfo"])
	payload := failed["structuredContent"].(map[string]any)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "transient", payload["category"])
	assert.Contains(t, payload["message"], "request timed out")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.recs, 2)
	byTool := map[string]models.CallRecord{}
	for _, r := range rec.recs {
		byTool[r.Tool] = r
		assert.NotEmpty(t, r.CallID)
		assert.Equal(t, TransportStdio, r.Transport)
	}
	assert.True(t, byTool["get_projects"].Success)
	assert.False(t, byTool["delete_task"].Success)
	assert.Equal(t, "transient", byTool["delete_task"].Category)
}

func TestToolCallsRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	cat := &fakeCatalog{calls: func(name string, _ json.RawMessage) (any, error) {
		started <- struct{}{}
		<-release
		return "done", nil
	}}
	srv := NewServer(cat, quietLogger())

	go func() {
		// оба вызова должны стартовать до того, как любой завершится
		for range 2 {
			select {
			case <-started:
			case <-time.After(5 * time.Second):
			}
		}
		close(release)
	}()

	resp := runLines(t, srv,
		initLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"slow"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"slow"}}`,
	)
	for _, id := range []string{"2", "3"} {
		res := resp[id]["result"].(map[string]any)
		assert.Equal(t, "done", res["content"].([]any)[0].(map[string]any)["text"])
		assert.NotContains(t, res, "structuredContent")
	}
}

func TestToolPanicBecomesInternalError(t *testing.T) {
	cat := &fakeCatalog{calls: func(string, json.RawMessage) (any, error) {
		panic("boom")
	}}
	srv := NewServer(cat, quietLogger())
	resp := runLines(t, srv,
		initLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"panics"}}`,
	)
	res := resp["2"]["result"].(map[string]any)
	assert.Equal(t, true, res["isError"])
	assert.Equal(t, "internal", res["errorInfo"].(map[string]any)["category"])
}

func TestHandleMessageIsStateless(t *testing.T) {
	cat := &fakeCatalog{calls: func(string, json.RawMessage) (any, error) {
		return nil, tools.Invalid("title is required")
	}}
	srv := NewServer(cat, quietLogger())

	out := srv.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"get_projects"}}`))
	var msg map[string]any
	require.NoError(t, json.Unmarshal(out, &msg))
	assert.Equal(t, "a", msg["id"])
	res := msg["result"].(map[string]any)
	assert.Equal(t, map[string]any{"category": "validation", "retryable": false}, res["errorInfo"])

	assert.Nil(t, srv.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
}

func TestRunPropagatesScannerError(t *testing.T) {
	srv := NewServer(&fakeCatalog{}, quietLogger())
	huge := strings.Repeat("x", maxMessageSize+10)
	err := srv.Run(context.Background(), strings.NewReader(huge), io.Discard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bufio.ErrTooLong))
}
