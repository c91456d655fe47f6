package freedcamp

import "encoding/json"

// ProjectPayload тело создания/обновления проекта. Пустые поля не отправляются.
type ProjectPayload struct {
	Name            string        `json:"project_name,omitempty"`
	Description     *string       `json:"project_description,omitempty"`
	Color           string        `json:"project_color,omitempty"`
	GroupID         string        `json:"group_id,omitempty"`
	GroupName       string        `json:"group_name,omitempty"`
	TodoViewType    string        `json:"todo_view_type,omitempty"`
	Active          *bool         `json:"f_active,omitempty"`
	OnlyUsersUpdate bool          `json:"f_only_users_update,omitempty"`
	ChangedUsers    *ChangedUsers `json:"changed_users,omitempty"`
}

// ChangedUsers изменения состава участников проекта.
type ChangedUsers struct {
	Added   []ProjectUserChange `json:"added,omitempty"`
	Updated []ProjectUserChange `json:"updated,omitempty"`
	Deleted []ProjectUserChange `json:"deleted,omitempty"`
}

// ProjectUserChange один участник в изменении состава.
type ProjectUserChange struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	RoleID string `json:"role_id,omitempty"`
}

// TaskPayload тело создания/обновления задачи. Числовые значения
// Freedcamp ожидает строками.
type TaskPayload struct {
	Title        string          `json:"title,omitempty"`
	ProjectID    string          `json:"project_id,omitempty"`
	Description  *string         `json:"description,omitempty"`
	TaskGroupID  string          `json:"task_group_id,omitempty"`
	Priority     *string         `json:"priority,omitempty"`
	AssignedToID *string         `json:"assigned_to_id,omitempty"`
	DueDate      *string         `json:"due_date,omitempty"`
	StartDate    *string         `json:"start_date,omitempty"`
	Status       *string         `json:"status,omitempty"`
	RRule        string          `json:"r_rule,omitempty"`
	ParentID     *string         `json:"h_parent_id,omitempty"`
	AttachedIDs  []int64         `json:"attached_ids,omitempty"`
	CFTemplateID *string         `json:"cf_tpl_id,omitempty"`
	CustomFields json.RawMessage `json:"custom_fields,omitempty"`
}

// UserPayload тело обновления текущего пользователя.
type UserPayload struct {
	Email                string `json:"email,omitempty"`
	Password             string `json:"password,omitempty"`
	FirstName            string `json:"first_name,omitempty"`
	LastName             string `json:"last_name,omitempty"`
	ConfirmationPassword string `json:"confirmation_password,omitempty"`
	Timezone             string `json:"timezone,omitempty"`
}

// CommentPayload тело создания/обновления комментария.
type CommentPayload struct {
	ItemID      string  `json:"item_id,omitempty"`
	AppID       string  `json:"app_id,omitempty"`
	Description string  `json:"description"`
	AttachedIDs []int64 `json:"attached_ids,omitempty"`
}

// TaskListPayload тело создания списка задач.
type TaskListPayload struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// FileUploadMeta метаданные загружаемого файла.
type FileUploadMeta struct {
	ProjectID string `json:"project_id"`
	ItemID    string `json:"item_id,omitempty"`
	AppID     string `json:"app_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}
