// Package normalize приводит сырые записи Freedcamp к каноническому виду.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

const (
	// DateTimeLayout формат полей с датой и временем.
	DateTimeLayout = "2006-01-02 15:04:05"
	// DateLayout формат полей, где важен только день (due_date, start_date).
	DateLayout = "2006-01-02"
)

// ErrIntegrity в записи нет обязательного идентификатора.
var ErrIntegrity = errors.New("data integrity violation")

// IntegrityError описывает, какой записи и какого поля не хватило.
type IntegrityError struct {
	Entity string
	Field  string
	Index  int
}

func (e *IntegrityError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s[%d] has no %s", ErrIntegrity, e.Entity, e.Index, e.Field)
	}
	return fmt.Sprintf("%s: %s has no %s", ErrIntegrity, e.Entity, e.Field)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// Options какие дорогие поля включать в результат.
type Options struct {
	CustomFields bool
	Tags         bool
	// Nested вложенные сущности: комментарии и файлы задачи, участники и
	// уведомления проекта.
	Nested bool
}

// Normalizer без состояния, кроме часового пояса; безопасен для конкурентного использования.
type Normalizer struct {
	loc *time.Location
}

// New создает нормализатор для часового пояса tz (IANA). Пустая строка это UTC.
func New(tz string) (*Normalizer, error) {
	if tz == "" {
		return &Normalizer{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Location часовой пояс, в котором рендерятся даты.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// DateTime переводит unix-время в строку. Ноль, отрицательное, пустое или
// нечитаемое значение дает nil.
func (n *Normalizer) DateTime(ts models.FlexInt) *string {
	return n.format(ts, DateTimeLayout)
}

// Date как DateTime, но только дата.
func (n *Normalizer) Date(ts models.FlexInt) *string {
	return n.format(ts, DateLayout)
}

func (n *Normalizer) format(ts models.FlexInt, layout string) *string {
	if !ts.Set || !ts.Valid || ts.Value <= 0 {
		return nil
	}
	s := time.Unix(ts.Value, 0).In(n.loc).Format(layout)
	return &s
}

// Project нормализует проект.
func (n *Normalizer) Project(raw models.RawProject, opts Options) (models.Project, error) {
	if !raw.ID.Present() {
		return models.Project{}, &IntegrityError{Entity: "project", Field: "id", Index: -1}
	}

	p := models.Project{
		ID:               raw.ID.Value,
		Name:             raw.ProjectName.Or(""),
		Description:      raw.ProjectDescription.Or(""),
		Color:            raw.ProjectColor.Or(""),
		GroupName:        raw.GroupName.Or(models.UngroupedName),
		GroupID:          idOrEmpty(raw.GroupID),
		Active:           raw.Active.Or(true),
		CreatedAt:        n.DateTime(raw.CreatedTS),
		URL:              raw.URL.Or(""),
		UsersCount:       raw.UsersCount.Int(len(raw.Users)),
		TasksCount:       raw.TasksCount.Int(0),
		CanAddTasks:      raw.CanAddTasks.Or(false),
		AdvancedSubtasks: raw.AdvancedSubtasks.Or(false),
		TodoViewType:     raw.TodoViewType.Or(models.DefaultTodoView),
	}

	if opts.Nested {
		for i, m := range raw.Users {
			u, err := n.User(m.RawUser)
			if err != nil {
				return models.Project{}, fmt.Errorf("project %s: %w", p.ID, &IntegrityError{Entity: "project member", Field: "user_id", Index: i})
			}
			p.Users = append(p.Users, models.ProjectMember{
				User:     u,
				RoleID:   m.RoleID.Or(""),
				RoleName: m.RoleName.Or(""),
			})
		}
		for i, rn := range raw.Notifications {
			if !rn.ID.Present() {
				return models.Project{}, fmt.Errorf("project %s: %w", p.ID, &IntegrityError{Entity: "notification", Field: "id", Index: i})
			}
			p.Notifications = append(p.Notifications, models.Notification{
				ID:        rn.ID.Value,
				Type:      rn.Type.Or(""),
				Message:   rn.Message.Or(""),
				CreatedAt: n.DateTime(rn.CreatedTS),
			})
		}
	}
	return p, nil
}

// Projects нормализует список проектов; первая же битая запись валит весь список.
func (n *Normalizer) Projects(raws []models.RawProject, opts Options) ([]models.Project, error) {
	return each(raws, func(r models.RawProject) (models.Project, error) { return n.Project(r, opts) })
}

// Task нормализует задачу.
func (n *Normalizer) Task(raw models.RawTask, opts Options) (models.Task, error) {
	if !raw.ID.Present() {
		return models.Task{}, &IntegrityError{Entity: "task", Field: "id", Index: -1}
	}

	status := taskStatus(raw.Status)
	priority := raw.Priority.Int(0)
	if priority < 0 || priority > 3 {
		priority = 0
	}

	t := models.Task{
		ID:              raw.ID.Value,
		Title:           raw.Title.Or(""),
		Description:     raw.Description.Or(""),
		Status:          status,
		StatusTitle:     raw.StatusTitle.Or(statusTitles[status]),
		Priority:        priority,
		PriorityTitle:   raw.PriorityTitle.Or(priorityTitles[priority]),
		AssignedToID:    idOrEmpty(raw.AssignedToID),
		AssignedTo:      assigneeName(raw),
		CreatedByID:     idOrEmpty(raw.CreatedByID),
		ProjectID:       raw.ProjectID.Or(""),
		TaskListID:      idOrEmpty(raw.TaskGroupID),
		TaskListName:    raw.TaskGroupName.Or(""),
		CreatedAt:       n.DateTime(raw.CreatedTS),
		DueDate:         n.Date(raw.DueTS),
		StartDate:       n.Date(raw.StartTS),
		CompletedAt:     n.DateTime(raw.CompletedTS),
		ParentID:        idOrEmpty(raw.HParentID),
		TopParentID:     idOrEmpty(raw.HTopID),
		Level:           raw.HLevel.Int(0),
		AdvancedSubtask: raw.AdvancedSubtask.Or(false),
		CommentsCount:   raw.CommentsCount.Int(0),
		FilesCount:      raw.FilesCount.Int(0),
		URL:             raw.URL.Or(""),
		Order:           raw.Order.Int(0),
		RecurringRule:   raw.RRule.Or(""),
		ArchivedList:    raw.ArchivedList.Or(false),
		CanEdit:         raw.CanEdit.Or(false),
		CanDelete:       raw.CanDelete.Or(false),
		CanAssign:       raw.CanAssign.Or(false),
		CanProgress:     raw.CanProgress.Or(false),
		CanComment:      raw.CanComment.Or(false),
	}

	if opts.CustomFields && hasPayload(raw.CustomFields) {
		t.CustomFields = raw.CustomFields
		t.CustomFieldsTemplate = idOrEmpty(raw.CFTemplateID)
	}
	if opts.Tags && hasPayload(raw.Tags) {
		t.Tags = raw.Tags
	}

	if opts.Nested {
		comments, err := n.Comments(raw.Comments)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
		}
		files, err := n.Files(raw.Files)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
		}
		t.Comments = comments
		t.Files = files
	}
	return t, nil
}

// Tasks нормализует список задач.
func (n *Normalizer) Tasks(raws []models.RawTask, opts Options) ([]models.Task, error) {
	return each(raws, func(r models.RawTask) (models.Task, error) { return n.Task(r, opts) })
}

// User нормализует пользователя.
func (n *Normalizer) User(raw models.RawUser) (models.User, error) {
	if !raw.UserID.Present() {
		return models.User{}, &IntegrityError{Entity: "user", Field: "user_id", Index: -1}
	}
	first, last := raw.FirstName.Or(""), raw.LastName.Or("")
	full := raw.FullName.Or(strings.TrimSpace(first + " " + last))
	return models.User{
		UserID:    raw.UserID.Value,
		FullName:  full,
		FirstName: first,
		LastName:  last,
		Email:     optional(raw.Email),
		AvatarURL: optional(raw.AvatarURL),
		Timezone:  optional(raw.Timezone),
	}, nil
}

// Users нормализует список пользователей.
func (n *Normalizer) Users(raws []models.RawUser) ([]models.User, error) {
	return each(raws, n.User)
}

// Comment нормализует комментарий вместе с его файлами.
func (n *Normalizer) Comment(raw models.RawComment) (models.Comment, error) {
	if !raw.ID.Present() {
		return models.Comment{}, &IntegrityError{Entity: "comment", Field: "id", Index: -1}
	}
	files, err := n.Files(raw.Files)
	if err != nil {
		return models.Comment{}, fmt.Errorf("comment %s: %w", raw.ID.Value, err)
	}
	return models.Comment{
		ID:                   raw.ID.Value,
		Description:          raw.Description.Or(""),
		DescriptionProcessed: raw.DescriptionProcessed.Or(""),
		CreatedByID:          raw.CreatedByID.Or(""),
		UserFullName:         raw.UserFullName.Or(""),
		CreatedAt:            n.DateTime(raw.CreatedTS),
		LikesCount:           raw.LikesCount.Int(0),
		Liked:                raw.Liked.Or(false),
		Unread:               raw.Unread.Or(false),
		CanEdit:              raw.CanEdit.Or(false),
		Files:                files,
		URL:                  raw.URL.Or(""),
	}, nil
}

// Comments нормализует список комментариев.
func (n *Normalizer) Comments(raws []models.RawComment) ([]models.Comment, error) {
	return each(raws, n.Comment)
}

// File нормализует файл.
func (n *Normalizer) File(raw models.RawFile) (models.File, error) {
	if !raw.ID.Present() {
		return models.File{}, &IntegrityError{Entity: "file", Field: "id", Index: -1}
	}
	return models.File{
		ID:          raw.ID.Value,
		Name:        raw.Name.Or(""),
		URL:         raw.URL.Or(""),
		ThumbURL:    optional(raw.ThumbURL),
		Size:        int64(raw.Size.Int(0)),
		FileType:    raw.FileType.Or(""),
		ProjectID:   idOrEmpty(raw.ProjectID),
		ItemID:      idOrEmpty(raw.ItemID),
		CommentID:   idOrEmpty(raw.CommentID),
		UserID:      idOrEmpty(raw.UserID),
		IsImage:     raw.Image.Or(false),
		IsTemporary: raw.Temporary.Or(false),
		CreatedAt:   n.DateTime(raw.CreatedTS),
		Location:    raw.Location.Or(models.DefaultLocation),
	}, nil
}

// Files нормализует список файлов.
func (n *Normalizer) Files(raws []models.RawFile) ([]models.File, error) {
	return each(raws, n.File)
}

// TaskList нормализует список задач.
func (n *Normalizer) TaskList(raw models.RawTaskList) (models.TaskList, error) {
	if !raw.ID.Present() {
		return models.TaskList{}, &IntegrityError{Entity: "task list", Field: "id", Index: -1}
	}
	return models.TaskList{
		ID:          raw.ID.Value,
		ProjectID:   raw.ProjectID.Or(""),
		Title:       raw.Title.Or(""),
		Description: raw.Description.Or(""),
	}, nil
}

// TaskLists нормализует списки задач.
func (n *Normalizer) TaskLists(raws []models.RawTaskList) ([]models.TaskList, error) {
	return each(raws, n.TaskList)
}

// each применяет fn к каждой записи; индекс битой записи попадает в ошибку.
func each[R, E any](raws []R, fn func(R) (E, error)) ([]E, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]E, 0, len(raws))
	for i, r := range raws {
		e, err := fn(r)
		if err != nil {
			var ie *IntegrityError
			if errors.As(err, &ie) && ie.Index < 0 {
				ie.Index = i
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

var statusTitles = map[models.TaskStatus]string{
	models.StatusNotStarted: "Not Started",
	models.StatusCompleted:  "Completed",
	models.StatusInProgress: "In Progress",
	models.StatusUnknown:    "Unknown",
}

var priorityTitles = map[int]string{
	0: "None",
	1: "Low",
	2: "Medium",
	3: "High",
}

// StatusTitle человекочитаемое название статуса.
func StatusTitle(s models.TaskStatus) string {
	return statusTitles[s]
}

// PriorityTitle человекочитаемое название приоритета 0-3.
func PriorityTitle(p int) string {
	return priorityTitles[p]
}

func taskStatus(code models.FlexInt) models.TaskStatus {
	if !code.Set || !code.Valid {
		return models.StatusNotStarted
	}
	switch code.Value {
	case models.StatusCodeNotStarted:
		return models.StatusNotStarted
	case models.StatusCodeCompleted:
		return models.StatusCompleted
	case models.StatusCodeInProgress:
		return models.StatusInProgress
	default:
		return models.StatusUnknown
	}
}

func assigneeName(raw models.RawTask) string {
	if raw.AssignedToFullname.Present() {
		return raw.AssignedToFullname.Value
	}
	if raw.AssignedToID.Value == "-1" {
		return models.EveryoneName
	}
	return models.UnassignedName
}

// idOrEmpty Freedcamp обозначает "нет ссылки" нулем.
func idOrEmpty(f models.FlexString) string {
	v := f.Or("")
	if v == "0" {
		return ""
	}
	return v
}

func optional(f models.FlexString) *string {
	if !f.Present() {
		return nil
	}
	v := f.Value
	return &v
}

func hasPayload(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "[]", "{}", `""`:
		return false
	}
	return true
}
