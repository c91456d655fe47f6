package models

import "encoding/json"

// TaskStatus статус задачи в каноническом виде.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusCompleted  TaskStatus = "completed"
	StatusInProgress TaskStatus = "in_progress"
	StatusUnknown    TaskStatus = "unknown"
)

// Коды статусов задач на стороне Freedcamp.
const (
	StatusCodeNotStarted = 0
	StatusCodeCompleted  = 1
	StatusCodeInProgress = 2
)

// Значения по умолчанию для отсутствующих полей.
const (
	UngroupedName   = "Ungrouped"
	UnassignedName  = "Unassigned"
	EveryoneName    = "Everyone"
	DefaultTodoView = "default"
	DefaultLocation = "storage"
)

// Project проект в каноническом виде.
type Project struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Color            string          `json:"color,omitempty"`
	GroupName        string          `json:"group_name"`
	GroupID          string          `json:"group_id,omitempty"`
	Active           bool            `json:"active"`
	CreatedAt        *string         `json:"created_at,omitempty"`
	URL              string          `json:"url,omitempty"`
	UsersCount       int             `json:"users_count"`
	TasksCount       int             `json:"tasks_count"`
	CanAddTasks      bool            `json:"can_add_tasks"`
	AdvancedSubtasks bool            `json:"advanced_subtasks"`
	TodoViewType     string          `json:"todo_view_type"`
	Users            []ProjectMember `json:"users,omitempty"`
	Notifications    []Notification  `json:"notifications,omitempty"`
}

// ProjectMember участник проекта с ролью.
type ProjectMember struct {
	User
	RoleID   string `json:"role_id,omitempty"`
	RoleName string `json:"role_name,omitempty"`
}

// Notification уведомление проекта.
type Notification struct {
	ID        string  `json:"id"`
	Type      string  `json:"type,omitempty"`
	Message   string  `json:"message,omitempty"`
	CreatedAt *string `json:"created_at,omitempty"`
}

// Task задача в каноническом виде.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          TaskStatus `json:"status"`
	StatusTitle     string     `json:"status_title,omitempty"`
	Priority        int        `json:"priority"`
	PriorityTitle   string     `json:"priority_title"`
	AssignedToID    string     `json:"assigned_to_id,omitempty"`
	AssignedTo      string     `json:"assigned_to"`
	CreatedByID     string     `json:"created_by_id,omitempty"`
	ProjectID       string     `json:"project_id"`
	TaskListID      string     `json:"task_list_id,omitempty"`
	TaskListName    string     `json:"task_list_name,omitempty"`
	CreatedAt       *string    `json:"created_at,omitempty"`
	DueDate         *string    `json:"due_date,omitempty"`
	StartDate       *string    `json:"start_date,omitempty"`
	CompletedAt     *string    `json:"completed_at,omitempty"`
	ParentID        string     `json:"parent_id,omitempty"`
	TopParentID     string     `json:"top_parent_id,omitempty"`
	Level           int        `json:"level"`
	AdvancedSubtask bool       `json:"advanced_subtask"`
	CommentsCount   int        `json:"comments_count"`
	FilesCount      int        `json:"files_count"`
	URL             string     `json:"url,omitempty"`
	Order           int        `json:"order"`
	RecurringRule   string     `json:"recurring_rule,omitempty"`
	ArchivedList    bool       `json:"archived_list"`
	CanEdit         bool       `json:"can_edit"`
	CanDelete       bool       `json:"can_delete"`
	CanAssign       bool       `json:"can_assign"`
	CanProgress     bool       `json:"can_progress"`
	CanComment      bool       `json:"can_comment"`

	CustomFields         json.RawMessage `json:"custom_fields,omitempty"`
	CustomFieldsTemplate string          `json:"cf_tpl_id,omitempty"`
	Tags                 json.RawMessage `json:"tags,omitempty"`
	Comments             []Comment       `json:"comments,omitempty"`
	Files                []File          `json:"files,omitempty"`
}

// User пользователь в каноническом виде.
type User struct {
	UserID    string  `json:"user_id"`
	FullName  string  `json:"full_name"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
}

// Comment комментарий в каноническом виде.
type Comment struct {
	ID                   string  `json:"id"`
	Description          string  `json:"description"`
	DescriptionProcessed string  `json:"description_processed,omitempty"`
	CreatedByID          string  `json:"created_by_id"`
	UserFullName         string  `json:"user_full_name"`
	CreatedAt            *string `json:"created_at,omitempty"`
	LikesCount           int     `json:"likes_count"`
	Liked                bool    `json:"liked"`
	Unread               bool    `json:"unread"`
	CanEdit              bool    `json:"can_edit"`
	Files                []File  `json:"files,omitempty"`
	URL                  string  `json:"url,omitempty"`
}

// File файл в каноническом виде.
type File struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	URL         string  `json:"url,omitempty"`
	ThumbURL    *string `json:"thumb_url,omitempty"`
	Size        int64   `json:"size"`
	FileType    string  `json:"file_type,omitempty"`
	ProjectID   string  `json:"project_id,omitempty"`
	ItemID      string  `json:"item_id,omitempty"`
	CommentID   string  `json:"comment_id,omitempty"`
	UserID      string  `json:"user_id,omitempty"`
	IsImage     bool    `json:"is_image"`
	IsTemporary bool    `json:"is_temporary"`
	CreatedAt   *string `json:"created_at,omitempty"`
	Location    string  `json:"location"`
}

// TaskList список задач (группа) в каноническом виде.
type TaskList struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
