package core

import (
	"fmt"
	"log/slog"

	"github.com/DevN0mad/FreedcampMCP/internal/config"
	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/normalize"
	"github.com/DevN0mad/FreedcampMCP/internal/services"
	"github.com/DevN0mad/FreedcampMCP/internal/tools"
)

// Toolkit всё, что собирается из секции freedcamp: клиент, сервис
// инструментов, реестр и отчеты.
type Toolkit struct {
	Client   *freedcamp.Client
	Service  *tools.Service
	Registry *tools.Registry
	Reports  *services.ReportService
}

// NewToolkit собирает инструменты по конфигурации.
func NewToolkit(cfg config.Config, logger *slog.Logger, options ...freedcamp.Option) (*Toolkit, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := freedcamp.NewClient(cfg.Freedcamp, logger, options...)
	if err != nil {
		return nil, fmt.Errorf("init freedcamp client: %w", err)
	}
	norm, err := normalize.New(cfg.Freedcamp.Timezone)
	if err != nil {
		return nil, fmt.Errorf("init normalizer: %w", err)
	}

	svc := tools.NewService(client, norm, logger,
		tools.WithUploadDir(cfg.Freedcamp.UploadDir),
		tools.WithMaxUploadBytes(cfg.Freedcamp.MaxUploadBytes))
	reg, err := tools.NewRegistry(svc, logger)
	if err != nil {
		return nil, fmt.Errorf("init tool registry: %w", err)
	}

	return &Toolkit{
		Client:   client,
		Service:  svc,
		Registry: reg,
		Reports:  services.NewReportService(svc, cfg.Report, norm.Location(), logger),
	}, nil
}
