package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
	"github.com/DevN0mad/FreedcampMCP/internal/tools"
)

const (
	// ServerName имя сервера в initialize.
	ServerName = "freedcamp-mcp"

	maxMessageSize = 1024 * 1024

	instructions = "Freedcamp project management tools. Call get_workflow_help first if unsure which ids to pass; " +
		"never guess project, task or user ids, look them up with get_projects, get_project_tasks and get_users."
)

// Транспорты, под которыми пишутся записи журнала.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Catalog источник инструментов. Реализация может подменять реестр на лету.
type Catalog interface {
	Tools() []tools.Tool
	Call(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Recorder журнал вызовов инструментов.
type Recorder interface {
	Record(ctx context.Context, rec models.CallRecord) error
}

// Option настраивает сервер.
type Option func(*Server)

// WithRecorder включает запись вызовов в журнал.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithVersion задает версию в serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// Server MCP сервер поверх JSON-RPC 2.0.
type Server struct {
	catalog  Catalog
	recorder Recorder
	logger   *slog.Logger
	version  string
}

// session состояние одного соединения.
type session struct {
	transport   string
	mu          sync.Mutex
	initialized bool
}

func (s *session) isInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *session) markInitialized() {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
}

func NewServer(catalog Catalog, logger *slog.Logger, options ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{catalog: catalog, logger: logger, version: "dev"}
	for _, o := range options {
		o(s)
	}
	return s
}

// Run обслуживает одну stdio-сессию: по строке JSON на сообщение.
// Вызовы инструментов выполняются конкурентно, ответы пишутся по мере
// готовности. Возвращается после EOF и завершения всех начатых вызовов.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	var (
		writeMu  sync.Mutex
		writeErr error
		wg       sync.WaitGroup
	)
	encoder := json.NewEncoder(output)
	write := func(resp *response) {
		if resp == nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if writeErr != nil {
			return
		}
		if err := encoder.Encode(resp); err != nil {
			writeErr = fmt.Errorf("write response: %w", err)
		}
	}

	sess := &session{transport: TransportStdio}
	s.logger.Info("MCP session started", "transport", sess.transport)
	defer s.logger.Info("MCP session closed", "transport", sess.transport)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		req, resp := parse(line)
		if req == nil {
			write(resp)
			continue
		}

		if req.Method == "tools/call" {
			wg.Add(1)
			go func() {
				defer wg.Done()
				write(s.dispatch(ctx, sess, req))
			}()
			continue
		}
		write(s.dispatch(ctx, sess, req))
	}
	wg.Wait()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return writeErr
}

// HandleMessage обрабатывает одно сообщение HTTP-транспорта. HTTP работает без
// состояния, поэтому сессия считается инициализированной. Для уведомлений
// возвращает nil.
func (s *Server) HandleMessage(ctx context.Context, body []byte) []byte {
	req, resp := parse(bytes.TrimSpace(body))
	if req != nil {
		resp = s.dispatch(ctx, &session{transport: TransportHTTP, initialized: true}, req)
	}
	if resp == nil {
		return nil
	}
	out, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Encode response failed", "error", err)
		out, _ = json.Marshal(errorResponse(resp.ID, codeInternalError, "encode response"))
	}
	return out
}

// parse разбирает строку. Если сообщение некорректно, вторым значением
// возвращается готовый ответ с ошибкой; оба nil значат, что отвечать не нужно.
func parse(line []byte) (*request, *response) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, errorResponse(json.RawMessage("null"), codeParseError, "parse error: "+err.Error())
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		// на уведомления не отвечают даже ошибкой
		if req.isNotification() {
			return nil, nil
		}
		if req.JSONRPC != "2.0" {
			return nil, errorResponse(req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
		}
		return nil, errorResponse(req.ID, codeInvalidRequest, "method is required")
	}
	return &req, nil
}

func (s *Server) dispatch(ctx context.Context, sess *session, req *request) *response {
	if req.isNotification() {
		if req.Method == "notifications/initialized" {
			s.logger.Debug("Client initialized", "transport", sess.transport)
		}
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(sess, req)
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	case "tools/list":
		if !sess.isInitialized() {
			return errorResponse(req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return resultResponse(req.ID, s.toolsList())
	case "tools/call":
		if !sess.isInitialized() {
			return errorResponse(req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, sess, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(sess *session, req *request) *response {
	if len(req.Params) == 0 {
		return errorResponse(req.ID, codeInvalidParams, "params required for initialize")
	}
	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	sess.markInitialized()
	s.logger.Info("MCP client connected",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol", params.ProtocolVersion,
	)
	return resultResponse(req.ID, initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    serverCapabilities{Tools: &toolCapability{}},
		ServerInfo:      serverInfo{Name: ServerName, Version: s.version},
		Instructions:    instructions,
	})
}

func (s *Server) toolsList() toolsListResult {
	list := s.catalog.Tools()
	out := make([]toolDescription, 0, len(list))
	for _, t := range list {
		openWorld := true
		ann := &toolAnnotations{OpenWorldHint: &openWorld}
		readOnly, destructive := t.ReadOnly, t.Destructive
		ann.ReadOnlyHint = &readOnly
		if !t.ReadOnly {
			ann.DestructiveHint = &destructive
		}
		out = append(out, toolDescription{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Annotations: ann,
		})
	}
	return toolsListResult{Tools: out}
}

func (s *Server) handleToolsCall(ctx context.Context, sess *session, req *request) *response {
	if len(req.Params) == 0 {
		return errorResponse(req.ID, codeInvalidParams, "params required for tools/call")
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	callID := uuid.NewString()
	started := time.Now()
	res, err := s.call(ctx, params.Name, params.Arguments)
	if errors.Is(err, tools.ErrUnknownTool) {
		return errorResponse(req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	s.record(ctx, models.CallRecord{
		CallID:     callID,
		Tool:       params.Name,
		Transport:  sess.transport,
		Success:    err == nil,
		DurationMS: time.Since(started).Milliseconds(),
		CalledAt:   started.UTC(),
	}, err)

	return resultResponse(req.ID, buildToolResult(res, err))
}

// call вызывает инструмент; паника обработчика превращается в ошибку.
func (s *Server) call(ctx context.Context, name string, args json.RawMessage) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tool panicked", "tool", name, "panic", r)
			res, err = nil, fmt.Errorf("tool %s failed: %v", name, r)
		}
	}()
	return s.catalog.Call(ctx, name, args)
}

func (s *Server) record(ctx context.Context, rec models.CallRecord, callErr error) {
	if s.recorder == nil {
		return
	}
	if callErr != nil {
		rec.Category = string(tools.Classify(callErr))
		rec.Error = callErr.Error()
	}
	// вызов уже завершен, отмена клиента не должна терять запись
	if err := s.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("Journal write failed", "call_id", rec.CallID, "tool", rec.Tool, "error", err)
	}
}

// buildToolResult собирает ответ tools/call: текст для любого клиента и
// структурированную форму для тех, кто ее понимает.
func buildToolResult(res any, err error) toolsCallResult {
	if err != nil {
		failure := tools.FailureOf(err)
		return toolsCallResult{
			Content:           []contentBlock{{Type: "text", Text: mustJSON(failure)}},
			StructuredContent: failure,
			IsError:           true,
			ErrorInfo: &errorInfo{
				Category:  string(failure.Category),
				Retryable: failure.Category.Retryable(),
			},
		}
	}
	if text, ok := res.(string); ok {
		return toolsCallResult{Content: []contentBlock{{Type: "text", Text: text}}}
	}
	encoded, merr := json.Marshal(res)
	if merr != nil {
		return buildToolResult(nil, fmt.Errorf("encode result: %w", merr))
	}
	return toolsCallResult{
		Content:           []contentBlock{{Type: "text", Text: string(encoded)}},
		StructuredContent: json.RawMessage(encoded),
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func resultResponse(id json.RawMessage, result any) *response {
	return &response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *response {
	return &response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}
