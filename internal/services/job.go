package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DevN0mad/FreedcampMCP/internal/view"
)

// DigestOpts параметры ежедневной рассылки.
type DigestOpts struct {
	Enabled  bool   `mapstructure:"enabled"`
	Hour     int    `mapstructure:"hour" validate:"min=0,max=23"`
	Minute   int    `mapstructure:"minute" validate:"min=0,max=59"`
	Timezone string `mapstructure:"timezone" validate:"omitempty,timezone"`
	// Scope подпись в заголовке сводки.
	Scope string `mapstructure:"scope"`
}

// Sender доставка файла с подписью.
type Sender interface {
	SendFile(ctx context.Context, path, caption string) error
}

// ReportSaver сохраняет отчет в файл.
type ReportSaver interface {
	SaveXLSX(ctx context.Context) (string, *Report, error)
}

// DigestJobService каждый день в заданное время собирает отчет и отправляет
// его со сводкой в подписи.
type DigestJobService struct {
	sender   Sender
	reports  ReportSaver
	hour     int
	minute   int
	scope    string
	timezone *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewDigestJobService создаёт сервис ежедневной сводки.
func NewDigestJobService(sender Sender, reports ReportSaver, opts DigestOpts, logger *slog.Logger) (*DigestJobService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if reports == nil {
		return nil, errors.New("report service is required")
	}

	loc := time.Local
	if opts.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(opts.Timezone); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", opts.Timezone, err)
		}
	}

	logger.Info("Digest job configured",
		"hour", opts.Hour,
		"minute", opts.Minute,
		"timezone", loc.String())

	return &DigestJobService{
		sender:   sender,
		reports:  reports,
		hour:     opts.Hour,
		minute:   opts.Minute,
		scope:    opts.Scope,
		timezone: loc,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start запускает цикл отправки и блокируется до отмены ctx.
func (d *DigestJobService) Start(ctx context.Context) {
	nextRun := d.nextRunTime()
	timer := time.NewTimer(nextRun.Sub(d.now()))
	d.logger.Info("Next digest scheduled", "at", nextRun.Format(time.RFC3339))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Digest job stopped")
			timer.Stop()
			return
		case <-timer.C:
			if err := d.RunOnce(ctx); err != nil {
				d.logger.Error("Digest sending failed", "error", err)
			} else {
				d.logger.Info("Digest sent successfully")
			}

			nextRun = d.nextRunTime()
			timer.Reset(nextRun.Sub(d.now()))
			d.logger.Info("Next digest scheduled", "at", nextRun.Format(time.RFC3339))
		}
	}
}

// RunOnce собирает отчет и отправляет его.
func (d *DigestJobService) RunOnce(ctx context.Context) error {
	path, report, err := d.reports.SaveXLSX(ctx)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	caption := view.TaskDigest(report.Tasks, len(report.Tasks), d.scope, report.GeneratedAt.In(d.timezone))
	if err := d.sender.SendFile(ctx, path, caption); err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}
	return nil
}

// nextRunTime вычисляет ближайшее время
func (d *DigestJobService) nextRunTime() time.Time {
	now := d.now().In(d.timezone)
	today := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, d.timezone)

	if now.Before(today) {
		return today
	}
	return today.AddDate(0, 0, 1)
}
