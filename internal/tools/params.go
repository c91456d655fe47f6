package tools

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// ID идентификатор Freedcamp. Агенты присылают его то строкой, то числом.
type ID string

var idType = reflect.TypeOf(ID(""))

// UnmarshalJSON принимает id строкой или числом.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

func idStrings(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// WorkflowHelpParams аргументы workflow_help.
type WorkflowHelpParams struct {
	TaskType string `json:"task_type" default:"general" validate:"oneof=general create_task assign_users project_setup" desc:"Workflow to describe"`
}

// GetProjectsParams аргументы get_projects.
type GetProjectsParams struct {
	IncludeRecent  bool `json:"include_recent" desc:"Also return ids of recently visited projects"`
	IncludeDetails bool `json:"include_details" default:"false" desc:"Full project records instead of summaries"`
}

// ProjectDetailsParams аргументы get_project_details.
type ProjectDetailsParams struct {
	ProjectID      ID   `json:"project_id" validate:"required" desc:"Project id from get_projects"`
	IncludeDetails bool `json:"include_details" default:"true" desc:"Full record with members and notifications"`
}

// ProjectUserParam участник в изменении состава проекта.
type ProjectUserParam struct {
	UserID ID     `json:"user_id" desc:"User id; either user_id or email"`
	Email  string `json:"email" validate:"omitempty,email" desc:"Email to invite"`
	RoleID ID     `json:"role_id" desc:"Project role id"`
}

// CreateProjectParams аргументы create_project.
type CreateProjectParams struct {
	Name         string             `json:"name" validate:"required" desc:"Project name"`
	Description  *string            `json:"description" desc:"Project description"`
	Color        string             `json:"color" desc:"Hex color like #E84C3D"`
	GroupID      ID                 `json:"group_id" desc:"Existing project group id"`
	GroupName    string             `json:"group_name" desc:"Project group name"`
	TodoViewType string             `json:"todo_view_type" default:"default" desc:"Task board layout"`
	UsersToAdd   []ProjectUserParam `json:"users_to_add" validate:"dive" desc:"Members to add"`
}

// UpdateProjectParams аргументы update_project.
type UpdateProjectParams struct {
	ProjectID       ID                 `json:"project_id" validate:"required" desc:"Project id"`
	Name            string             `json:"name" desc:"New project name"`
	Description     *string            `json:"description" desc:"New description; empty string clears it"`
	Color           string             `json:"color" desc:"Hex color"`
	GroupID         ID                 `json:"group_id" desc:"Move to group id"`
	GroupName       string             `json:"group_name" desc:"Move to group name"`
	Active          *bool              `json:"active" desc:"Activate or archive the project"`
	UsersToAdd      []ProjectUserParam `json:"users_to_add" validate:"dive" desc:"Members to add"`
	UsersToUpdate   []ProjectUserParam `json:"users_to_update" validate:"dive" desc:"Members whose role changes"`
	UsersToDelete   []ProjectUserParam `json:"users_to_delete" validate:"dive" desc:"Members to remove"`
	OnlyUpdateUsers bool               `json:"only_update_users" desc:"Change membership only and ignore other fields"`
}

// ProjectIDParams аргумент с id проекта.
type ProjectIDParams struct {
	ProjectID ID `json:"project_id" validate:"required" desc:"Project id"`
}

// GetAllTasksParams аргументы get_all_tasks.
type GetAllTasksParams struct {
	Limit               int      `json:"limit" default:"200" validate:"min=1,max=200" desc:"Page size"`
	Offset              int      `json:"offset" validate:"min=0" desc:"Page offset"`
	StatusFilter        []string `json:"status_filter" validate:"dive,oneof=not_started completed in_progress 0 1 2" desc:"Statuses to include"`
	ProjectIDs          []ID     `json:"project_ids" desc:"Restrict to these projects"`
	AssignedToIDs       []ID     `json:"assigned_to_ids" desc:"Restrict to these assignees"`
	CreatedByIDs        []ID     `json:"created_by_ids" desc:"Restrict to these creators"`
	DueDateFrom         string   `json:"due_date_from" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	DueDateTo           string   `json:"due_date_to" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	CreatedDateFrom     string   `json:"created_date_from" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	CreatedDateTo       string   `json:"created_date_to" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	IncludeArchived     bool     `json:"include_archived" desc:"Include tasks from archived lists"`
	ListsStatus         string   `json:"lists_status" default:"active" validate:"oneof=active archived all" desc:"Which task lists to search"`
	OrderBy             string   `json:"order_by" validate:"omitempty,oneof=priority due_date" desc:"Sort field"`
	OrderDirection      string   `json:"order_direction" default:"asc" validate:"oneof=asc desc" desc:"Sort direction"`
	IncludeCustomFields bool     `json:"include_custom_fields" desc:"Attach custom field values"`
	IncludeTags         bool     `json:"include_tags" desc:"Attach tags"`
	IncludeDetails      bool     `json:"include_details" default:"true" desc:"Full task records instead of summaries"`
}

// GetProjectTasksParams аргументы get_project_tasks.
type GetProjectTasksParams struct {
	ProjectID           ID     `json:"project_id" validate:"required" desc:"Project id"`
	Status              string `json:"status" validate:"omitempty,oneof=incomplete complete in_progress" desc:"Status filter"`
	Limit               int    `json:"limit" default:"50" validate:"min=1,max=200" desc:"Page size"`
	Offset              int    `json:"offset" validate:"min=0" desc:"Page offset"`
	IncludeCustomFields bool   `json:"include_custom_fields" desc:"Attach custom field values"`
	IncludeTags         bool   `json:"include_tags" desc:"Attach tags"`
	IncludeDetails      bool   `json:"include_details" default:"false" desc:"Full task records instead of summaries"`
}

// GetUserTasksParams аргументы get_user_tasks.
type GetUserTasksParams struct {
	UserID              ID   `json:"user_id" validate:"required" desc:"Assignee user id"`
	IncludeCompleted    bool `json:"include_completed" desc:"Include completed tasks"`
	Limit               int  `json:"limit" default:"50" validate:"min=1,max=200" desc:"Page size"`
	Offset              int  `json:"offset" validate:"min=0" desc:"Page offset"`
	IncludeCustomFields bool `json:"include_custom_fields" desc:"Attach custom field values"`
	IncludeDetails      bool `json:"include_details" default:"false" desc:"Full task records instead of summaries"`
}

// TaskDetailsParams аргументы get_task_details.
type TaskDetailsParams struct {
	TaskID              ID   `json:"task_id" validate:"required" desc:"Task id"`
	IncludeCustomFields bool `json:"include_custom_fields" default:"true" desc:"Attach custom field values"`
	IncludeDetails      bool `json:"include_details" default:"true" desc:"Full record with comments and files"`
	IncludeTags         bool `json:"include_tags" desc:"Attach tags"`
}

// CreateTaskParams аргументы create_task.
type CreateTaskParams struct {
	Title           string          `json:"title" validate:"required" desc:"Task title"`
	ProjectID       ID              `json:"project_id" validate:"required" desc:"Project id"`
	Description     *string         `json:"description" desc:"Task description"`
	TaskListID      ID              `json:"task_list_id" desc:"Task list id from get_task_lists"`
	Priority        *int            `json:"priority" validate:"omitempty,min=0,max=3" desc:"0 none, 1 low, 2 medium, 3 high"`
	AssignedToID    *ID             `json:"assigned_to_id" desc:"User id; 0 unassigned, -1 everyone"`
	DueDate         string          `json:"due_date" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	StartDate       string          `json:"start_date" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	RecurringRule   string          `json:"recurring_rule" desc:"RFC 5545 RRULE"`
	ParentTaskID    ID              `json:"parent_task_id" desc:"Parent task id for a subtask"`
	AttachedFileIDs []int64         `json:"attached_file_ids" desc:"Ids of uploaded files to attach"`
	CustomFields    json.RawMessage `json:"custom_fields" desc:"Custom field values"`
	CFTemplateID    ID              `json:"cf_template_id" desc:"Custom field template id"`
}

// UpdateTaskParams аргументы update_task. Пустая дата через указатель очищает поле.
type UpdateTaskParams struct {
	TaskID          ID              `json:"task_id" validate:"required" desc:"Task id"`
	Title           string          `json:"title" desc:"New title"`
	Description     *string         `json:"description" desc:"New description; empty string clears it"`
	TaskListID      ID              `json:"task_list_id" desc:"Move to task list id"`
	Priority        *int            `json:"priority" validate:"omitempty,min=0,max=3" desc:"0 none, 1 low, 2 medium, 3 high"`
	AssignedToID    *ID             `json:"assigned_to_id" desc:"User id; 0 unassigned, -1 everyone"`
	DueDate         *string         `json:"due_date" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	StartDate       *string         `json:"start_date" validate:"omitempty,date" desc:"YYYY-MM-DD"`
	Status          string          `json:"status" validate:"omitempty,oneof=not_started completed in_progress" desc:"New status"`
	ParentTaskID    *ID             `json:"parent_task_id" desc:"New parent task id"`
	AttachedFileIDs []int64         `json:"attached_file_ids" desc:"Ids of uploaded files to attach"`
	CustomFields    json.RawMessage `json:"custom_fields" desc:"Custom field values"`
	CFTemplateID    ID              `json:"cf_template_id" desc:"Custom field template id"`
}

// TaskIDParams аргумент с id задачи.
type TaskIDParams struct {
	TaskID ID `json:"task_id" validate:"required" desc:"Task id"`
}

// GetUsersParams аргументы get_users.
type GetUsersParams struct {
	IncludeDetails bool `json:"include_details" default:"false" desc:"Full user records instead of summaries"`
}

// NoParams для инструментов без аргументов.
type NoParams struct{}

// UserIDParams аргумент с id пользователя.
type UserIDParams struct {
	UserID ID `json:"user_id" validate:"required" desc:"User id"`
}

// UpdateCurrentUserParams аргументы update_current_user.
type UpdateCurrentUserParams struct {
	Email                string `json:"email" validate:"omitempty,email" desc:"New email"`
	Password             string `json:"password" desc:"New password"`
	FirstName            string `json:"first_name" desc:"First name"`
	LastName             string `json:"last_name" desc:"Last name"`
	ConfirmationPassword string `json:"confirmation_password" validate:"required_with=Email Password" desc:"Current password; required to change email or password"`
	Timezone             string `json:"timezone" desc:"IANA time zone"`
}

// AddCommentParams аргументы add_comment.
type AddCommentParams struct {
	ItemID          ID      `json:"item_id" validate:"required" desc:"Id of the commented item, usually a task"`
	Description     string  `json:"description" validate:"required" desc:"Comment text (HTML allowed)"`
	AppID           ID      `json:"app_id" default:"2" desc:"Application of the item; 2 is tasks"`
	AttachedFileIDs []int64 `json:"attached_file_ids" desc:"Ids of uploaded files to attach"`
}

// UpdateCommentParams аргументы update_comment.
type UpdateCommentParams struct {
	CommentID   ID     `json:"comment_id" validate:"required" desc:"Comment id"`
	Description string `json:"description" validate:"required" desc:"New comment text"`
}

// CommentIDParams аргумент с id комментария.
type CommentIDParams struct {
	CommentID ID `json:"comment_id" validate:"required" desc:"Comment id"`
}

// FileIDParams аргумент с id файла.
type FileIDParams struct {
	FileID ID `json:"file_id" validate:"required" desc:"File id"`
}

// UploadFileParams аргументы upload_file.
type UploadFileParams struct {
	ProjectID     ID     `json:"project_id" validate:"required" desc:"Project id"`
	FileName      string `json:"file_name" validate:"required" desc:"Name the file gets in Freedcamp"`
	FilePath      string `json:"file_path" validate:"required_without=ContentBase64" desc:"Path inside the server upload directory; relative paths resolve against it"`
	ContentBase64 string `json:"content_base64" validate:"omitempty,base64" desc:"File content, base64"`
	ItemID        ID     `json:"item_id" desc:"Attach to this item, usually a task"`
	AppID         ID     `json:"app_id" desc:"Application of the item; 2 is tasks"`
	CommentID     ID     `json:"comment_id" desc:"Attach to this comment"`
}

// GetTaskListsParams аргументы get_task_lists.
type GetTaskListsParams struct {
	ProjectID      ID   `json:"project_id" validate:"required" desc:"Project id"`
	IncludeDetails bool `json:"include_details" default:"false" desc:"Full task list records instead of summaries"`
}

// CreateTaskListParams аргументы create_task_list.
type CreateTaskListParams struct {
	ProjectID   ID     `json:"project_id" validate:"required" desc:"Project id"`
	Title       string `json:"title" validate:"required" desc:"Task list title"`
	Description string `json:"description" desc:"Task list description"`
}
