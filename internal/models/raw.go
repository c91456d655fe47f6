package models

import "encoding/json"

// Envelope общий конверт ответа Freedcamp API.
type Envelope struct {
	StatusCode FlexInt         `json:"status_code"`
	HTTPCode   FlexInt         `json:"http_code"`
	Msg        string          `json:"msg"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// Text возвращает сообщение из конверта, какое бы поле ни было заполнено.
func (e Envelope) Text() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Message
}

// Meta блок метаданных списочных ответов.
type Meta struct {
	Total  FlexInt `json:"total"`
	Limit  FlexInt `json:"limit"`
	Offset FlexInt `json:"offset"`
}

// RawProject проект в том виде, в котором его отдаёт Freedcamp.
type RawProject struct {
	ID                 FlexString         `json:"id"`
	ProjectName        FlexString         `json:"project_name"`
	ProjectDescription FlexString         `json:"project_description"`
	ProjectColor       FlexString         `json:"project_color"`
	GroupName          FlexString         `json:"group_name"`
	GroupID            FlexString         `json:"group_id"`
	Active             FlexBool           `json:"f_active"`
	CreatedTS          FlexInt            `json:"created_ts"`
	URL                FlexString         `json:"url"`
	UsersCount         FlexInt            `json:"users_count"`
	TasksCount         FlexInt            `json:"tasks_count"`
	CanAddTasks        FlexBool           `json:"f_can_add_tasks"`
	AdvancedSubtasks   FlexBool           `json:"f_subtasks_adv"`
	TodoViewType       FlexString         `json:"todo_view_type"`
	Users              []RawProjectMember `json:"users"`
	Notifications      []RawNotification  `json:"notifications"`
}

// RawProjectMember участник проекта.
type RawProjectMember struct {
	RawUser
	RoleID   FlexString `json:"role_id"`
	RoleName FlexString `json:"role_name"`
}

// RawNotification уведомление проекта (приходит только в деталях проекта).
type RawNotification struct {
	ID        FlexString `json:"id"`
	Type      FlexString `json:"type"`
	Message   FlexString `json:"message"`
	CreatedTS FlexInt    `json:"created_ts"`
}

// RawTask задача в формате Freedcamp.
type RawTask struct {
	ID                 FlexString      `json:"id"`
	Title              FlexString      `json:"title"`
	Description        FlexString      `json:"description"`
	Status             FlexInt         `json:"status"`
	StatusTitle        FlexString      `json:"status_title"`
	Priority           FlexInt         `json:"priority"`
	PriorityTitle      FlexString      `json:"priority_title"`
	AssignedToID       FlexString      `json:"assigned_to_id"`
	AssignedToFullname FlexString      `json:"assigned_to_fullname"`
	CreatedByID        FlexString      `json:"created_by_id"`
	ProjectID          FlexString      `json:"project_id"`
	TaskGroupID        FlexString      `json:"task_group_id"`
	TaskGroupName      FlexString      `json:"task_group_name"`
	CreatedTS          FlexInt         `json:"created_ts"`
	DueTS              FlexInt         `json:"due_ts"`
	StartTS            FlexInt         `json:"start_ts"`
	CompletedTS        FlexInt         `json:"completed_ts"`
	CommentsCount      FlexInt         `json:"comments_count"`
	FilesCount         FlexInt         `json:"files_count"`
	URL                FlexString      `json:"url"`
	Order              FlexInt         `json:"order"`
	RRule              FlexString      `json:"r_rule"`
	ArchivedList       FlexBool        `json:"f_archived_list"`
	HLevel             FlexInt         `json:"h_level"`
	HParentID          FlexString      `json:"h_parent_id"`
	HTopID             FlexString      `json:"h_top_id"`
	AdvancedSubtask    FlexBool        `json:"f_adv_subtask"`
	CanDelete          FlexBool        `json:"can_delete"`
	CanEdit            FlexBool        `json:"can_edit"`
	CanAssign          FlexBool        `json:"can_assign"`
	CanProgress        FlexBool        `json:"can_progress"`
	CanComment         FlexBool        `json:"can_comment"`
	CustomFields       json.RawMessage `json:"custom_fields"`
	CFTemplateID       FlexString      `json:"cf_tpl_id"`
	Tags               json.RawMessage `json:"tags"`
	Comments           []RawComment    `json:"comments"`
	Files              []RawFile       `json:"files"`
}

// RawUser пользователь в формате Freedcamp.
type RawUser struct {
	UserID    FlexString `json:"user_id"`
	FullName  FlexString `json:"full_name"`
	FirstName FlexString `json:"first_name"`
	LastName  FlexString `json:"last_name"`
	Email     FlexString `json:"email"`
	AvatarURL FlexString `json:"avatar_url"`
	Timezone  FlexString `json:"timezone"`
}

// RawComment комментарий в формате Freedcamp.
type RawComment struct {
	ID                   FlexString `json:"id"`
	Description          FlexString `json:"description"`
	DescriptionProcessed FlexString `json:"description_processed"`
	CreatedByID          FlexString `json:"created_by_id"`
	UserFullName         FlexString `json:"user_full_name"`
	CreatedTS            FlexInt    `json:"created_ts"`
	LikesCount           FlexInt    `json:"likes_count"`
	Liked                FlexBool   `json:"f_liked"`
	Unread               FlexBool   `json:"f_unread"`
	CanEdit              FlexBool   `json:"can_edit"`
	Files                []RawFile  `json:"files"`
	URL                  FlexString `json:"url"`
}

// RawFile файл в формате Freedcamp.
type RawFile struct {
	ID        FlexString `json:"id"`
	Name      FlexString `json:"name"`
	URL       FlexString `json:"url"`
	ThumbURL  FlexString `json:"thumb_url"`
	Size      FlexInt    `json:"size"`
	FileType  FlexString `json:"file_type"`
	ProjectID FlexString `json:"project_id"`
	ItemID    FlexString `json:"item_id"`
	CommentID FlexString `json:"comment_id"`
	UserID    FlexString `json:"user_id"`
	Image     FlexBool   `json:"f_image"`
	Temporary FlexBool   `json:"f_temporary"`
	CreatedTS FlexInt    `json:"created_ts"`
	Location  FlexString `json:"location"`
}

// RawTaskList список задач (группа) в формате Freedcamp.
type RawTaskList struct {
	ID          FlexString `json:"id"`
	ProjectID   FlexString `json:"project_id"`
	Title       FlexString `json:"title"`
	Description FlexString `json:"description"`
}

// ProjectsData содержимое data для ответов по проектам.
type ProjectsData struct {
	Projects         []RawProject `json:"projects"`
	RecentProjectIDs []FlexString `json:"recent_project_ids"`
}

// TasksData содержимое data для ответов по задачам.
type TasksData struct {
	Tasks       []RawTask       `json:"tasks"`
	Meta        *Meta           `json:"meta"`
	CFTemplates json.RawMessage `json:"cf_templates"`
}

// UsersData содержимое data для ответов по пользователям.
type UsersData struct {
	Users []RawUser   `json:"users"`
	Token *FlexString `json:"token"`
}

// CommentsData содержимое data для ответов по комментариям.
type CommentsData struct {
	Comments []RawComment `json:"comments"`
}

// FilesData содержимое data для ответов по файлам.
type FilesData struct {
	Files []RawFile `json:"files"`
}

// TaskListsData содержимое data для ответов по спискам задач.
type TaskListsData struct {
	Lists []RawTaskList `json:"lists"`
}
