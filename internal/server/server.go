package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DevN0mad/FreedcampMCP/internal/services"
)

const (
	APIv1Prefix = "/api/v1/"
	MCPPath     = "/mcp"

	maxBodySize = 1024 * 1024
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Opts параметры HTTP сервера.
type Opts struct {
	Enabled             bool   `mapstructure:"enabled"`
	Address             string `mapstructure:"address" validate:"required_if=Enabled true"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" validate:"min=0"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" validate:"min=0"`
	IdleTimeoutSeconds  int    `mapstructure:"idle_timeout_seconds" validate:"min=0"`
}

// MessageHandler обработчик одного сообщения MCP.
type MessageHandler interface {
	HandleMessage(ctx context.Context, body []byte) []byte
}

// HealthChecker проверка доступности Freedcamp.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ReportWriter выгрузка xlsx отчета.
type ReportWriter interface {
	WriteXLSX(ctx context.Context, w io.Writer) (*services.Report, error)
}

// Server HTTP транспорт MCP и служебные маршруты.
type Server struct {
	logger  *slog.Logger
	opts    Opts
	srv     *http.Server
	mcp     MessageHandler
	health  HealthChecker
	reports ReportWriter
}

// New создаёт HTTP сервер.
func New(logger *slog.Logger, opts Opts, mcp MessageHandler, health HealthChecker, reports ReportWriter) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger,
		opts:    opts,
		mcp:     mcp,
		health:  health,
		reports: reports,
	}
}

// Register регистрирует маршруты сервера.
func (h *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc(MCPPath, h.handleMCP)
	mux.HandleFunc(withPrefix("health"), h.handleHealth)
	mux.HandleFunc(withPrefix("report"), h.handleReport)
}

// Handler маршрутизатор со всеми маршрутами.
func (h *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

// handleMCP принимает одно JSON-RPC сообщение и отвечает одним сообщением.
func (h *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}

	out := h.mcp.HandleMessage(r.Context(), body)
	if out == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(out)
}

// handleHealth отвечает о состоянии сервиса; с deep=1 проверяет Freedcamp.
func (h *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if deep := r.URL.Query().Get("deep"); deep == "1" || deep == "true" {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Warn("Health check failed", "error", err)
			status = map[string]string{"status": "unavailable", "error": err.Error()}
			code = http.StatusServiceUnavailable
		} else {
			status["freedcamp"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// handleReport обрабатывает запросы на получение отчёта.
func (h *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	report, err := h.reports.WriteXLSX(r.Context(), &buf)
	if err != nil {
		h.logger.Error("Generate report", "error", err)
		http.Error(w, "Failed to generate report", http.StatusBadGateway)
		return
	}

	name := fmt.Sprintf("freedcamp_tasks_%s.xlsx", report.GeneratedAt.Format("2006-01-02_1504"))
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(buf.Bytes())
}

// Start запускает сервер и блокируется до отмены ctx.
func (h *Server) Start(ctx context.Context) error {
	h.logger.Info("Starting HTTP server", "address", h.opts.Address)
	h.srv = &http.Server{
		Addr:         h.opts.Address,
		ReadTimeout:  time.Duration(h.opts.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(h.opts.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(h.opts.IdleTimeoutSeconds) * time.Second,
		Handler:      h.Handler(),
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		h.logger.Info("Shutting down HTTP server (ctx canceled)")

		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("HTTP server error", "error", err)
		return err
	}
	<-stopped

	h.logger.Info("HTTP server stopped")
	return nil
}

// withPrefix добавляет префикс к пути API.
func withPrefix(postfix string) string {
	return APIv1Prefix + strings.TrimSpace(postfix)
}
