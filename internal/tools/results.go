package tools

import (
	"encoding/json"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
	"github.com/DevN0mad/FreedcampMCP/internal/view"
)

// ProjectListResult проекты, сгруппированные по group_name.
type ProjectListResult struct {
	Groups           []view.ProjectGroup `json:"groups"`
	RecentProjectIDs []string            `json:"recent_project_ids,omitempty"`
	Pagination       view.Pagination     `json:"pagination"`
}

// ProjectResult ответ с одним проектом.
type ProjectResult struct {
	Project any `json:"project"`
}

// TaskListResult страница задач. Scope это имя проекта или пользователя,
// по которому выбраны задачи; Digest есть только в кратком режиме.
type TaskListResult struct {
	Scope       string          `json:"scope,omitempty"`
	Tasks       any             `json:"tasks"`
	Digest      string          `json:"digest,omitempty"`
	CFTemplates json.RawMessage `json:"cf_templates,omitempty"`
	Pagination  view.Pagination `json:"pagination"`
}

// TaskResult ответ с одной задачей.
type TaskResult struct {
	Task any `json:"task"`
}

// UserListResult ответ со списком пользователей.
type UserListResult struct {
	Users      any             `json:"users"`
	Pagination view.Pagination `json:"pagination"`
}

// UserResult ответ с одним пользователем.
type UserResult struct {
	User models.User `json:"user"`
}

// FileResult ответ с одним файлом.
type FileResult struct {
	File models.File `json:"file"`
}

// TaskListsResult ответ со списками задач.
type TaskListsResult struct {
	TaskLists  any             `json:"task_lists"`
	Pagination view.Pagination `json:"pagination"`
}

// Mutation результат изменения. Заполнена только сущность, которую затронул вызов.
type Mutation struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Project   *models.Project  `json:"project,omitempty"`
	Task      *models.Task     `json:"task,omitempty"`
	User      *models.User     `json:"user,omitempty"`
	Comment   *models.Comment  `json:"comment,omitempty"`
	File      *models.File     `json:"file,omitempty"`
	TaskList  *models.TaskList `json:"task_list,omitempty"`
	Token     string           `json:"token,omitempty"`
	DeletedID string           `json:"deleted_id,omitempty"`
}
