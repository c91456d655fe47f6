package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

const (
	tasksSheet     = "Tasks"
	assigneesSheet = "Assignees"

	dueSoonDays = 2
)

// ReportOpts параметры отчета по задачам.
type ReportOpts struct {
	ProjectIDs       []string `mapstructure:"project_ids"`
	AssigneeIDs      []string `mapstructure:"assignee_ids"`
	IncludeCompleted bool     `mapstructure:"include_completed"`
	SaveDir          string   `mapstructure:"save_dir"`
}

// TaskSource выгрузка задач по фильтру со всеми страницами.
type TaskSource interface {
	AllTasks(ctx context.Context, filter freedcamp.TaskFilter) ([]models.Task, error)
}

// Report собранные данные отчета.
type Report struct {
	GeneratedAt time.Time
	Tasks       []models.Task
	Stats       []models.AssigneeStats
}

// ReportService строит xlsx отчет по задачам Freedcamp.
type ReportService struct {
	opts   ReportOpts
	source TaskSource
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewReportService создает сервис отчетов. loc задает "сегодня" для сроков.
func NewReportService(source TaskSource, opts ReportOpts, loc *time.Location, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{opts: opts, source: source, loc: loc, logger: logger, now: time.Now}
}

// Collect выгружает задачи и считает статистику по исполнителям.
func (s *ReportService) Collect(ctx context.Context) (*Report, error) {
	filter := freedcamp.TaskFilter{
		ProjectIDs:  s.opts.ProjectIDs,
		AssigneeIDs: s.opts.AssigneeIDs,
	}
	if !s.opts.IncludeCompleted {
		filter.Statuses = []int{models.StatusCodeNotStarted, models.StatusCodeInProgress}
	}

	s.logger.Info("Starting tasks export", "projects", len(s.opts.ProjectIDs), "assignees", len(s.opts.AssigneeIDs))
	tasks, err := s.source.AllTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("collect tasks: %w", err)
	}

	now := s.now().In(s.loc)
	report := &Report{
		GeneratedAt: now,
		Tasks:       tasks,
		Stats:       assigneeStats(tasks, now),
	}
	s.logger.Info("Tasks collected", "tasks", len(tasks), "assignees", len(report.Stats))
	return report, nil
}

// WriteXLSX пишет отчет в w.
func (s *ReportService) WriteXLSX(ctx context.Context, w io.Writer) (*Report, error) {
	report, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}
	f, err := buildWorkbook(report)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return report, nil
}

// SaveXLSX сохраняет отчет в save_dir и возвращает путь к файлу.
func (s *ReportService) SaveXLSX(ctx context.Context) (string, *Report, error) {
	dir := s.opts.SaveDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create report dir: %w", err)
	}

	var buf bytes.Buffer
	report, err := s.WriteXLSX(ctx, &buf)
	if err != nil {
		return "", nil, err
	}

	path := filepath.Join(dir, fmt.Sprintf("freedcamp_tasks_%s.xlsx", report.GeneratedAt.Format("2006-01-02_1504")))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", nil, fmt.Errorf("save report: %w", err)
	}
	s.logger.Info("Report saved", "path", path, "bytes", buf.Len())
	return path, report, nil
}

// assigneeStats считает статистику по исполнителям. Задачи без исполнителя
// собираются под именем Unassigned.
func assigneeStats(tasks []models.Task, now time.Time) []models.AssigneeStats {
	today := now.Format("2006-01-02")
	soon := now.AddDate(0, 0, dueSoonDays).Format("2006-01-02")

	statsMap := make(map[string]*models.AssigneeStats)
	for _, task := range tasks {
		name := task.AssignedTo
		if name == "" {
			name = models.UnassignedName
		}
		stats, ok := statsMap[name]
		if !ok {
			stats = &models.AssigneeStats{Name: name}
			statsMap[name] = stats
		}

		switch task.Status {
		case models.StatusNotStarted:
			stats.NotStarted++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			if task.CompletedAt != nil && (*task.CompletedAt)[:min(len(*task.CompletedAt), 10)] == today {
				stats.CompletedToday++
			}
			continue
		}

		if task.DueDate != nil {
			switch due := *task.DueDate; {
			case due < today:
				stats.Overdue++
			case due <= soon:
				stats.DueSoon++
			}
		}
	}

	out := make([]models.AssigneeStats, 0, len(statsMap))
	for _, st := range statsMap {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// buildWorkbook собирает книгу с листами задач и исполнителей.
func buildWorkbook(report *Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if _, err := f.NewSheet(tasksSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	headers := []string{
		"ID", "Title", "Status", "Priority", "Assignee",
		"Project", "Task list", "Start date", "Due date", "URL",
	}
	if err := writeRow(f, tasksSheet, 1, headers); err != nil {
		return nil, err
	}
	for i, task := range report.Tasks {
		row := []any{
			task.ID, task.Title, task.StatusTitle, task.PriorityTitle, task.AssignedTo,
			task.ProjectID, task.TaskListName, deref(task.StartDate), deref(task.DueDate), task.URL,
		}
		if err := writeRow(f, tasksSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(tasksSheet, col, col, 20)
	}

	statsIndex, err := f.NewSheet(assigneesSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	statsHeaders := []string{"Assignee", "Not started", "In progress", "Overdue", "Due soon", "Completed today"}
	if err := writeRow(f, assigneesSheet, 1, statsHeaders); err != nil {
		return nil, err
	}
	for i, st := range report.Stats {
		row := []any{st.Name, st.NotStarted, st.InProgress, st.Overdue, st.DueSoon, st.CompletedToday}
		if err := writeRow(f, assigneesSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	for i := range statsHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(assigneesSheet, col, col, 18)
	}

	f.SetActiveSheet(statsIndex)
	return f, nil
}

func writeRow[T any](f *excelize.File, sheet string, row int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
