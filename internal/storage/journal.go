package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

// JournalOpts параметры журнала вызовов. Пустой путь выключает журнал.
type JournalOpts struct {
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days" validate:"min=0"`
}

// Journal журнал вызовов инструментов в sqlite. Хранит только факт вызова,
// данные Freedcamp сюда не попадают.
type Journal struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewJournal открывает базу журнала, создавая каталог и таблицу при необходимости.
func NewJournal(dbPath string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("Failed to create journal dir", "dir", dir, "error", err)
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Failed to open sqlite journal", "path", dbPath, "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&models.CallRecord{}); err != nil {
		logger.Error("Failed to auto-migrate call record model", "error", err)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	logger.Info("Sqlite call journal initialized", "path", dbPath)
	return &Journal{db: db, logger: logger}, nil
}

// Record сохраняет запись о вызове.
func (j *Journal) Record(ctx context.Context, rec models.CallRecord) error {
	if rec.CalledAt.IsZero() {
		rec.CalledAt = time.Now().UTC()
	}
	if err := j.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert call record: %w", err)
	}
	j.logger.Debug("Call recorded", "call_id", rec.CallID, "tool", rec.Tool, "success", rec.Success)
	return nil
}

// Recent последние записи, новые первыми.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.CallRecord, error) {
	var recs []models.CallRecord
	err := j.db.WithContext(ctx).
		Order("called_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("select call records: %w", err)
	}
	return recs, nil
}

// ToolStat агрегат вызовов одного инструмента.
type ToolStat struct {
	Tool     string
	Calls    int64
	Failures int64
}

// Stats количество вызовов и ошибок по инструментам начиная с since.
func (j *Journal) Stats(ctx context.Context, since time.Time) ([]ToolStat, error) {
	var stats []ToolStat
	err := j.db.WithContext(ctx).
		Model(&models.CallRecord{}).
		Select("tool, COUNT(*) AS calls, SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failures").
		Where("called_at >= ?", since).
		Group("tool").
		Order("tool").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate call records: %w", err)
	}
	return stats, nil
}

// Purge удаляет записи старше before.
func (j *Journal) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := j.db.WithContext(ctx).Where("called_at < ?", before).Delete(&models.CallRecord{})
	if res.Error != nil {
		j.logger.Error("Failed to purge call records", "before", before, "error", res.Error)
		return 0, fmt.Errorf("purge call records: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		j.logger.Info("Call records purged", "before", before.Format(time.RFC3339), "rows", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// Close закрывает соединение с базой.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
