package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

const (
	digestPerSection = 3
	dueSoonDays      = 2
)

var digestStatuses = []struct {
	status models.TaskStatus
	label  string
	icon   string
}{
	{models.StatusNotStarted, "NOT STARTED", "📝"},
	{models.StatusInProgress, "IN PROGRESS", "⚡"},
	{models.StatusCompleted, "COMPLETED", "✅"},
	{models.StatusUnknown, "UNKNOWN", "📌"},
}

// TaskDigest короткая текстовая сводка по задачам: просроченные, скоро
// дедлайн, высокий приоритет и разбивка по статусам. now задает "сегодня"
// и часовой пояс, в котором записаны due_date.
func TaskDigest(tasks []models.Task, total int, scope string, now time.Time) string {
	if len(tasks) == 0 {
		return "📋 No tasks found"
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var overdue, dueSoon, urgent []models.Task
	listed := make(map[string]bool)
	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			continue
		}
		days, ok := daysUntil(t.DueDate, today)
		switch {
		case ok && days < 0:
			overdue = append(overdue, t)
			listed[t.ID] = true
		case ok && days <= dueSoonDays:
			dueSoon = append(dueSoon, t)
			listed[t.ID] = true
		}
	}
	for _, t := range tasks {
		if t.Priority >= 3 && t.Status != models.StatusCompleted && !listed[t.ID] {
			urgent = append(urgent, t)
			listed[t.ID] = true
		}
	}

	var b strings.Builder
	header := "📋 Tasks"
	if scope != "" {
		header += " in " + scope
	}
	header += fmt.Sprintf(" (%d", len(tasks))
	if total > len(tasks) {
		header += fmt.Sprintf(" of %d", total)
	}
	b.WriteString(header + ")\n\n")

	section := func(title string, items []models.Task, suffix func(models.Task) string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, t := range items[:min(len(items), digestPerSection)] {
			fmt.Fprintf(&b, "  • %s → %s%s\n", t.Title, t.AssignedTo, suffix(t))
		}
		if rest := len(items) - digestPerSection; rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
		b.WriteString("\n")
	}
	due := func(t models.Task) string {
		if t.DueDate == nil {
			return ""
		}
		return " (due " + *t.DueDate + ")"
	}

	section("🚨 OVERDUE", overdue, due)
	section("⏰ DUE SOON", dueSoon, due)
	section("🔥 HIGH PRIORITY", urgent, func(t models.Task) string { return " (" + t.PriorityTitle + ")" })

	for _, s := range digestStatuses {
		var all, fresh []models.Task
		for _, t := range tasks {
			if t.Status != s.status {
				continue
			}
			all = append(all, t)
			if !listed[t.ID] {
				fresh = append(fresh, t)
			}
		}
		if len(all) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s %s (%d):\n", s.icon, s.label, len(all))
		shown := fresh[:min(len(fresh), digestPerSection)]
		for _, t := range shown {
			fmt.Fprintf(&b, "  • %s → %s%s\n", t.Title, t.AssignedTo, due(t))
		}
		if rest := len(all) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func daysUntil(date *string, today time.Time) (int, bool) {
	if date == nil {
		return 0, false
	}
	d, err := time.ParseInLocation("2006-01-02", *date, today.Location())
	if err != nil {
		return 0, false
	}
	return int(d.Sub(today).Round(24*time.Hour) / (24 * time.Hour)), true
}
