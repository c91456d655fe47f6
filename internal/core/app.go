package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DevN0mad/FreedcampMCP/internal/config"
	"github.com/DevN0mad/FreedcampMCP/internal/mcp"
	"github.com/DevN0mad/FreedcampMCP/internal/models"
	"github.com/DevN0mad/FreedcampMCP/internal/server"
	"github.com/DevN0mad/FreedcampMCP/internal/services"
	"github.com/DevN0mad/FreedcampMCP/internal/storage"
	"github.com/DevN0mad/FreedcampMCP/internal/tools"
)

const purgeInterval = 24 * time.Hour

// ErrNotConfigured конфигурация еще не применена.
var ErrNotConfigured = errors.New("application is not configured")

// App представляет основное приложение, управляющее сервисами. MCP сервер
// создается один раз, а инструменты и журнал подменяются при перечитывании
// конфигурации.
type App struct {
	logger  *slog.Logger
	rootCtx context.Context
	mcpSrv  *mcp.Server

	// state защищает то, что читают обработчики вызовов.
	state       sync.RWMutex
	toolkit     *Toolkit
	journal     *storage.Journal
	journalPath string

	mu             sync.Mutex
	servicesCancel context.CancelFunc
	servicesWG     sync.WaitGroup
}

// NewApp создает новый экземпляр приложения с заданным логгером и корневым контекстом.
func NewApp(ctx context.Context, logger *slog.Logger, version string) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a := &App{
		logger:  logger,
		rootCtx: ctx,
	}
	a.mcpSrv = mcp.NewServer(a, logger, mcp.WithRecorder(a), mcp.WithVersion(version))
	return a
}

// ApplyConfig применяет конфигурацию к приложению, инициализируя/переинициализируя сервисы.
// При ошибке остается предыдущая рабочая конфигурация.
func (a *App) ApplyConfig(cfg config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	toolkit, err := NewToolkit(cfg, a.logger)
	if err != nil {
		return err
	}

	var job *services.DigestJobService
	if cfg.Digest.Enabled {
		tg, err := services.NewTelegramBot(cfg.TelegramBot, a.logger)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		digest := cfg.Digest
		if digest.Timezone == "" {
			digest.Timezone = cfg.Freedcamp.Timezone
		}
		if job, err = services.NewDigestJobService(tg, toolkit.Reports, digest, a.logger); err != nil {
			return fmt.Errorf("init digest job: %w", err)
		}
	}

	journal, reopen, err := a.openJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}

	if a.servicesCancel != nil {
		a.logger.Info("Stopping previous services")
		a.servicesCancel()
		a.servicesWG.Wait()
		a.servicesCancel = nil
	}

	a.swapState(toolkit, journal, reopen, cfg.Journal.Path)

	ctx, cancel := context.WithCancel(a.rootCtx)

	if job != nil {
		a.goService(func() { job.Start(ctx) })
	}

	if cfg.HTTPServer.Enabled || cfg.Transport.Mode == config.ModeHTTP {
		srv := server.New(a.logger, cfg.HTTPServer, a.mcpSrv, a, a)
		a.goService(func() {
			if err := srv.Start(ctx); err != nil {
				a.logger.Error("HTTP server exited with error", "error", err)
			}
		})
	}

	if cfg.Journal.Path != "" && cfg.Journal.RetentionDays > 0 {
		retention := time.Duration(cfg.Journal.RetentionDays) * 24 * time.Hour
		a.goService(func() { a.purgeLoop(ctx, retention) })
	}

	a.servicesCancel = cancel
	a.logger.Info("Services reinitialized successfully with configuration",
		"transport", cfg.Transport.Mode,
		"http_server", cfg.HTTPServer.Enabled,
		"digest", cfg.Digest.Enabled,
		"journal", cfg.Journal.Path != "",
	)
	return nil
}

// openJournal открывает журнал, если путь изменился. reopen сообщает, что
// текущий журнал нужно заменить результатом (возможно nil).
func (a *App) openJournal(path string) (journal *storage.Journal, reopen bool, err error) {
	a.state.RLock()
	same := a.journal != nil && path == a.journalPath
	a.state.RUnlock()
	if same {
		return nil, false, nil
	}
	if path == "" {
		return nil, true, nil
	}
	if journal, err = storage.NewJournal(path, a.logger); err != nil {
		return nil, false, fmt.Errorf("init journal: %w", err)
	}
	return journal, true, nil
}

// swapState подменяет инструменты и журнал.
func (a *App) swapState(toolkit *Toolkit, journal *storage.Journal, reopen bool, path string) {
	a.state.Lock()
	defer a.state.Unlock()

	if reopen {
		if a.journal != nil {
			if err := a.journal.Close(); err != nil {
				a.logger.Warn("Failed to close previous journal", "error", err)
			}
		}
		a.journal, a.journalPath = journal, path
	}
	a.toolkit = toolkit
}

func (a *App) goService(fn func()) {
	a.servicesWG.Add(1)
	go func() {
		defer a.servicesWG.Done()
		fn()
	}()
}

// purgeLoop раз в сутки удаляет записи журнала старше retention.
func (a *App) purgeLoop(ctx context.Context, retention time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		a.state.RLock()
		journal := a.journal
		a.state.RUnlock()
		if journal != nil {
			if _, err := journal.Purge(ctx, time.Now().UTC().Add(-retention)); err != nil {
				a.logger.Warn("Journal purge failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) current() (*Toolkit, error) {
	a.state.RLock()
	defer a.state.RUnlock()
	if a.toolkit == nil {
		return nil, ErrNotConfigured
	}
	return a.toolkit, nil
}

// Tools текущий список инструментов.
func (a *App) Tools() []tools.Tool {
	tk, err := a.current()
	if err != nil {
		return nil
	}
	return tk.Registry.Tools()
}

// Call вызывает инструмент текущего реестра.
func (a *App) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tk, err := a.current()
	if err != nil {
		return nil, err
	}
	return tk.Registry.Call(ctx, name, args)
}

// Record пишет вызов в журнал, если он включен.
func (a *App) Record(ctx context.Context, rec models.CallRecord) error {
	a.state.RLock()
	defer a.state.RUnlock()
	if a.journal == nil {
		return nil
	}
	return a.journal.Record(ctx, rec)
}

// Journal текущий журнал или nil.
func (a *App) Journal() *storage.Journal {
	a.state.RLock()
	defer a.state.RUnlock()
	return a.journal
}

// Ping проверяет доступ к Freedcamp.
func (a *App) Ping(ctx context.Context) error {
	tk, err := a.current()
	if err != nil {
		return err
	}
	return tk.Service.Ping(ctx)
}

// WriteXLSX пишет отчет по задачам.
func (a *App) WriteXLSX(ctx context.Context, w io.Writer) (*services.Report, error) {
	tk, err := a.current()
	if err != nil {
		return nil, err
	}
	return tk.Reports.WriteXLSX(ctx, w)
}

// ServeStdio обслуживает MCP клиента через stdin/stdout до EOF.
func (a *App) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return a.mcpSrv.Run(ctx, in, out)
}

// Shutdown останавливает все запущенные сервисы приложения.
func (a *App) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.servicesCancel != nil {
		a.logger.Info("Stopping services on shutdown")
		a.servicesCancel()
		a.servicesWG.Wait()
		a.servicesCancel = nil
	}

	a.state.Lock()
	defer a.state.Unlock()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Failed to close journal", "error", err)
		}
		a.journal = nil
	}
}
