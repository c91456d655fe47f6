// Package view строит подробное и краткое представления нормализованных сущностей.
package view

import "github.com/DevN0mad/FreedcampMCP/internal/models"

// Mode режим представления.
type Mode string

const (
	Detailed Mode = "detailed"
	Minimal  Mode = "minimal"
)

// ModeFor переводит флаг include_details в режим.
func ModeFor(includeDetails bool) Mode {
	if includeDetails {
		return Detailed
	}
	return Minimal
}

// Краткие формы повторяют JSON-теги полных сущностей: одно и то же поле в
// обоих режимах называется одинаково и значит одно и то же.

// TaskSummary краткая задача.
type TaskSummary struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Status        models.TaskStatus `json:"status"`
	Priority      int               `json:"priority"`
	AssignedTo    string            `json:"assigned_to"`
	DueDate       *string           `json:"due_date,omitempty"`
	ProjectID     string            `json:"project_id"`
	ParentID      string            `json:"parent_id,omitempty"`
	URL           string            `json:"url,omitempty"`
	CommentsCount int               `json:"comments_count"`
}

// ProjectSummary краткий проект.
type ProjectSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GroupName  string `json:"group_name"`
	Active     bool   `json:"active"`
	TasksCount int    `json:"tasks_count"`
	UsersCount int    `json:"users_count"`
	URL        string `json:"url,omitempty"`
}

// UserSummary краткий пользователь.
type UserSummary struct {
	UserID   string  `json:"user_id"`
	FullName string  `json:"full_name"`
	Email    *string `json:"email,omitempty"`
}

// CommentSummary краткий комментарий.
type CommentSummary struct {
	ID           string  `json:"id"`
	UserFullName string  `json:"user_full_name"`
	CreatedAt    *string `json:"created_at,omitempty"`
	Description  string  `json:"description"`
	URL          string  `json:"url,omitempty"`
}

// FileSummary краткий файл.
type FileSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url,omitempty"`
}

// TaskListSummary краткий список задач.
type TaskListSummary struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}

// SummarizeTask сокращает задачу до полей сводки.
func SummarizeTask(t models.Task) TaskSummary {
	return TaskSummary{
		ID:            t.ID,
		Title:         t.Title,
		Status:        t.Status,
		Priority:      t.Priority,
		AssignedTo:    t.AssignedTo,
		DueDate:       t.DueDate,
		ProjectID:     t.ProjectID,
		ParentID:      t.ParentID,
		URL:           t.URL,
		CommentsCount: t.CommentsCount,
	}
}

// SummarizeProject сокращает проект до полей сводки.
func SummarizeProject(p models.Project) ProjectSummary {
	return ProjectSummary{
		ID:         p.ID,
		Name:       p.Name,
		GroupName:  p.GroupName,
		Active:     p.Active,
		TasksCount: p.TasksCount,
		UsersCount: p.UsersCount,
		URL:        p.URL,
	}
}

// SummarizeUser сокращает пользователя до id и имени.
func SummarizeUser(u models.User) UserSummary {
	return UserSummary{UserID: u.UserID, FullName: u.FullName, Email: u.Email}
}

// SummarizeComment сокращает комментарий до полей сводки.
func SummarizeComment(c models.Comment) CommentSummary {
	return CommentSummary{
		ID:           c.ID,
		UserFullName: c.UserFullName,
		CreatedAt:    c.CreatedAt,
		Description:  c.Description,
		URL:          c.URL,
	}
}

// SummarizeFile сокращает файл до полей сводки.
func SummarizeFile(f models.File) FileSummary {
	return FileSummary{ID: f.ID, Name: f.Name, Size: f.Size, URL: f.URL}
}

// SummarizeTaskList сокращает список задач до полей сводки.
func SummarizeTaskList(l models.TaskList) TaskListSummary {
	return TaskListSummary{ID: l.ID, ProjectID: l.ProjectID, Title: l.Title}
}

// project возвращает items как есть или их краткие формы. Пустой срез
// всегда сериализуется в [], а не в null.
func project[E, S any](mode Mode, items []E, summarize func(E) S) any {
	if mode == Detailed {
		if items == nil {
			return []E{}
		}
		return items
	}
	out := make([]S, 0, len(items))
	for _, it := range items {
		out = append(out, summarize(it))
	}
	return out
}

// Tasks проецирует задачи в выбранном режиме.
func Tasks(mode Mode, tasks []models.Task) any {
	return project(mode, tasks, SummarizeTask)
}

// Projects проецирует проекты в выбранном режиме.
func Projects(mode Mode, projects []models.Project) any {
	return project(mode, projects, SummarizeProject)
}

// Users проецирует пользователей в выбранном режиме.
func Users(mode Mode, users []models.User) any {
	return project(mode, users, SummarizeUser)
}

// Comments проецирует комментарии в выбранном режиме.
func Comments(mode Mode, comments []models.Comment) any {
	return project(mode, comments, SummarizeComment)
}

// Files проецирует файлы в выбранном режиме.
func Files(mode Mode, files []models.File) any {
	return project(mode, files, SummarizeFile)
}

// TaskLists проецирует списки задач в выбранном режиме.
func TaskLists(mode Mode, lists []models.TaskList) any {
	return project(mode, lists, SummarizeTaskList)
}

// Task одиночная задача в заданном режиме.
func Task(mode Mode, t models.Task) any {
	if mode == Detailed {
		return t
	}
	return SummarizeTask(t)
}

// Project одиночный проект в заданном режиме.
func Project(mode Mode, p models.Project) any {
	if mode == Detailed {
		return p
	}
	return SummarizeProject(p)
}
