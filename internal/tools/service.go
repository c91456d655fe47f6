package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/models"
	"github.com/DevN0mad/FreedcampMCP/internal/normalize"
	"github.com/DevN0mad/FreedcampMCP/internal/view"
)

// API вызовы Freedcamp, которые использует сервис. Реализуется *freedcamp.Client.
type API interface {
	ListProjects(ctx context.Context, includeRecent bool) (*models.ProjectsData, error)
	GetProject(ctx context.Context, projectID string) (*models.ProjectsData, error)
	CreateProject(ctx context.Context, p freedcamp.ProjectPayload) (*models.ProjectsData, error)
	UpdateProject(ctx context.Context, projectID string, p freedcamp.ProjectPayload) (*models.ProjectsData, error)
	DeleteProject(ctx context.Context, projectID string) error

	ListTasks(ctx context.Context, f freedcamp.TaskFilter) (*models.TasksData, error)
	GetTask(ctx context.Context, taskID string, customFields, tags bool) (*models.TasksData, error)
	CreateTask(ctx context.Context, p freedcamp.TaskPayload) (*models.TasksData, error)
	UpdateTask(ctx context.Context, taskID string, p freedcamp.TaskPayload) (*models.TasksData, error)
	DeleteTask(ctx context.Context, taskID string) error

	ListUsers(ctx context.Context) (*models.UsersData, error)
	CurrentUser(ctx context.Context) (*models.UsersData, error)
	GetUser(ctx context.Context, userID string) (*models.UsersData, error)
	UpdateCurrentUser(ctx context.Context, p freedcamp.UserPayload) (*models.UsersData, error)

	CreateComment(ctx context.Context, p freedcamp.CommentPayload) (*models.CommentsData, error)
	UpdateComment(ctx context.Context, commentID string, p freedcamp.CommentPayload) (*models.CommentsData, error)
	DeleteComment(ctx context.Context, commentID string) error

	GetFile(ctx context.Context, fileID string) (*models.FilesData, error)
	DeleteFile(ctx context.Context, fileID string) error
	UploadFile(ctx context.Context, meta freedcamp.FileUploadMeta, fileName string, content io.Reader) (*models.FilesData, error)

	ListTaskLists(ctx context.Context, projectID string) (*models.TaskListsData, error)
	CreateTaskList(ctx context.Context, p freedcamp.TaskListPayload) (*models.TaskListsData, error)
}

// maxTaskPages ограничение на число страниц при выгрузке всех задач.
const maxTaskPages = 100

var statusCodes = map[string]int{
	"not_started": models.StatusCodeNotStarted,
	"completed":   models.StatusCodeCompleted,
	"in_progress": models.StatusCodeInProgress,
	"incomplete":  models.StatusCodeNotStarted,
	"complete":    models.StatusCodeCompleted,
	"0":           models.StatusCodeNotStarted,
	"1":           models.StatusCodeCompleted,
	"2":           models.StatusCodeInProgress,
}

// Service операции инструментов поверх Freedcamp: вызов, нормализация, проекция.
type Service struct {
	api       API
	norm      *normalize.Normalizer
	logger    *slog.Logger
	now       func() time.Time
	uploadDir string
	maxUpload int64
}

// ServiceOption настраивает сервис.
type ServiceOption func(*Service)

// WithUploadDir разрешает upload_file читать file_path внутри dir.
func WithUploadDir(dir string) ServiceOption {
	return func(s *Service) {
		s.uploadDir = dir
	}
}

// WithMaxUploadBytes ограничивает размер файла, читаемого с диска.
func WithMaxUploadBytes(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// NewService создает сервис инструментов.
func NewService(api API, norm *normalize.Normalizer, logger *slog.Logger, options ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{api: api, norm: norm, logger: logger, now: time.Now, maxUpload: freedcamp.DefaultMaxUploadBytes}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Ping проверяет доступность Freedcamp и валидность ключей.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.api.CurrentUser(ctx)
	return err
}

// ---------- проекты ----------

// GetProjects возвращает проекты, сгруппированные по группам.
func (s *Service) GetProjects(ctx context.Context, p GetProjectsParams) (*ProjectListResult, error) {
	data, err := s.api.ListProjects(ctx, p.IncludeRecent)
	if err != nil {
		return nil, err
	}
	projects, err := s.norm.Projects(data.Projects, normalize.Options{Nested: p.IncludeDetails})
	if err != nil {
		return nil, err
	}

	res := &ProjectListResult{
		Groups:     view.GroupProjects(view.ModeFor(p.IncludeDetails), projects),
		Pagination: view.NewPagination(0, len(projects), len(projects), nil),
	}
	if p.IncludeRecent {
		for _, id := range data.RecentProjectIDs {
			if id.Present() {
				res.RecentProjectIDs = append(res.RecentProjectIDs, id.Value)
			}
		}
	}
	return res, nil
}

// GetProjectDetails возвращает один проект.
func (s *Service) GetProjectDetails(ctx context.Context, p ProjectDetailsParams) (*ProjectResult, error) {
	data, err := s.api.GetProject(ctx, string(p.ProjectID))
	if err != nil {
		return nil, err
	}
	if len(data.Projects) == 0 {
		return nil, notFound("project %s not found", p.ProjectID)
	}
	project, err := s.norm.Project(data.Projects[0], normalize.Options{Nested: true})
	if err != nil {
		return nil, err
	}
	return &ProjectResult{Project: view.Project(view.ModeFor(p.IncludeDetails), project)}, nil
}

// CreateProject создает проект.
func (s *Service) CreateProject(ctx context.Context, p CreateProjectParams) (*Mutation, error) {
	payload := freedcamp.ProjectPayload{
		Name:         p.Name,
		Description:  p.Description,
		Color:        p.Color,
		GroupID:      string(p.GroupID),
		GroupName:    p.GroupName,
		TodoViewType: p.TodoViewType,
	}
	if len(p.UsersToAdd) > 0 {
		payload.ChangedUsers = &freedcamp.ChangedUsers{Added: userChanges(p.UsersToAdd)}
	}
	if payload.TodoViewType == "" {
		payload.TodoViewType = models.DefaultTodoView
	}

	data, err := s.api.CreateProject(ctx, payload)
	if err != nil {
		return nil, err
	}
	project, err := s.firstProject(data)
	if err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Project created", Project: project}, nil
}

// UpdateProject меняет поля и участников проекта.
func (s *Service) UpdateProject(ctx context.Context, p UpdateProjectParams) (*Mutation, error) {
	var payload freedcamp.ProjectPayload
	changed := membershipChanges(p)

	if p.OnlyUpdateUsers {
		if changed == nil {
			return nil, Invalid("only_update_users requires users_to_add, users_to_update or users_to_delete")
		}
		payload = freedcamp.ProjectPayload{OnlyUsersUpdate: true, ChangedUsers: changed}
	} else {
		payload = freedcamp.ProjectPayload{
			Name:         p.Name,
			Description:  p.Description,
			Color:        p.Color,
			GroupID:      string(p.GroupID),
			GroupName:    p.GroupName,
			Active:       p.Active,
			ChangedUsers: changed,
		}
		if payload == (freedcamp.ProjectPayload{}) {
			return nil, Invalid("nothing to update for project %s", p.ProjectID)
		}
	}

	data, err := s.api.UpdateProject(ctx, string(p.ProjectID), payload)
	if err != nil {
		return nil, err
	}
	project, err := s.firstProject(data)
	if err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Project updated", Project: project}, nil
}

// DeleteProject удаляет проект.
func (s *Service) DeleteProject(ctx context.Context, p ProjectIDParams) (*Mutation, error) {
	if err := s.api.DeleteProject(ctx, string(p.ProjectID)); err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Project deleted", DeletedID: string(p.ProjectID)}, nil
}

func (s *Service) firstProject(data *models.ProjectsData) (*models.Project, error) {
	if data == nil || len(data.Projects) == 0 {
		return nil, nil
	}
	project, err := s.norm.Project(data.Projects[0], normalize.Options{})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func userChanges(users []ProjectUserParam) []freedcamp.ProjectUserChange {
	out := make([]freedcamp.ProjectUserChange, 0, len(users))
	for _, u := range users {
		out = append(out, freedcamp.ProjectUserChange{
			UserID: string(u.UserID),
			Email:  u.Email,
			RoleID: string(u.RoleID),
		})
	}
	return out
}

func membershipChanges(p UpdateProjectParams) *freedcamp.ChangedUsers {
	if len(p.UsersToAdd)+len(p.UsersToUpdate)+len(p.UsersToDelete) == 0 {
		return nil
	}
	c := &freedcamp.ChangedUsers{}
	if len(p.UsersToAdd) > 0 {
		c.Added = userChanges(p.UsersToAdd)
	}
	if len(p.UsersToUpdate) > 0 {
		c.Updated = userChanges(p.UsersToUpdate)
	}
	if len(p.UsersToDelete) > 0 {
		c.Deleted = userChanges(p.UsersToDelete)
	}
	return c
}

// ---------- задачи ----------

// GetAllTasks возвращает страницу задач или все страницы подряд.
func (s *Service) GetAllTasks(ctx context.Context, p GetAllTasksParams) (*TaskListResult, error) {
	statuses, err := statusList(p.StatusFilter)
	if err != nil {
		return nil, err
	}
	filter := freedcamp.TaskFilter{
		Limit:           p.Limit,
		Offset:          p.Offset,
		Statuses:        statuses,
		ProjectIDs:      idStrings(p.ProjectIDs),
		AssigneeIDs:     idStrings(p.AssignedToIDs),
		CreatorIDs:      idStrings(p.CreatedByIDs),
		DueFrom:         p.DueDateFrom,
		DueTo:           p.DueDateTo,
		CreatedFrom:     p.CreatedDateFrom,
		CreatedTo:       p.CreatedDateTo,
		IncludeArchived: p.IncludeArchived,
		ListsStatus:     p.ListsStatus,
		OrderBy:         p.OrderBy,
		OrderDirection:  p.OrderDirection,
		CustomFields:    p.IncludeCustomFields,
		Tags:            p.IncludeTags,
	}
	opts := normalize.Options{CustomFields: p.IncludeCustomFields, Tags: p.IncludeTags}
	return s.taskPage(ctx, filter, opts, p.IncludeDetails, nil)
}

// GetProjectTasks возвращает задачи проекта с дайджестом.
func (s *Service) GetProjectTasks(ctx context.Context, p GetProjectTasksParams) (*TaskListResult, error) {
	filter := freedcamp.TaskFilter{
		Limit:        p.Limit,
		Offset:       p.Offset,
		ProjectIDs:   []string{string(p.ProjectID)},
		CustomFields: p.IncludeCustomFields,
		Tags:         p.IncludeTags,
	}
	if p.Status != "" {
		filter.Statuses = []int{statusCodes[p.Status]}
	}
	opts := normalize.Options{CustomFields: p.IncludeCustomFields, Tags: p.IncludeTags}
	scope := func(ctx context.Context) string { return s.projectName(ctx, string(p.ProjectID)) }
	return s.taskPage(ctx, filter, opts, p.IncludeDetails, scope)
}

// GetUserTasks возвращает задачи, назначенные пользователю.
func (s *Service) GetUserTasks(ctx context.Context, p GetUserTasksParams) (*TaskListResult, error) {
	filter := freedcamp.TaskFilter{
		Limit:        p.Limit,
		Offset:       p.Offset,
		AssigneeIDs:  []string{string(p.UserID)},
		CustomFields: p.IncludeCustomFields,
	}
	if !p.IncludeCompleted {
		filter.Statuses = []int{models.StatusCodeNotStarted, models.StatusCodeInProgress}
	}
	opts := normalize.Options{CustomFields: p.IncludeCustomFields}
	scope := func(ctx context.Context) string { return s.userName(ctx, string(p.UserID)) }
	return s.taskPage(ctx, filter, opts, p.IncludeDetails, scope)
}

// taskPage загружает страницу задач. Если задан scope, имя проекта или
// пользователя подтягивается параллельно; его ошибка не валит вызов.
func (s *Service) taskPage(ctx context.Context, filter freedcamp.TaskFilter, opts normalize.Options, detailed bool, scope func(context.Context) string) (*TaskListResult, error) {
	var (
		data      *models.TasksData
		scopeName string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.api.ListTasks(gctx, filter)
		return err
	})
	if scope != nil {
		g.Go(func() error {
			scopeName = scope(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tasks, err := s.norm.Tasks(data.Tasks, opts)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = freedcamp.DefaultTaskLimit
	}
	mode := view.ModeFor(detailed)
	res := &TaskListResult{
		Scope:      scopeName,
		Tasks:      view.Tasks(mode, tasks),
		Pagination: view.NewPagination(filter.Offset, limit, len(tasks), view.DeclaredTotal(data.Meta)),
	}
	if opts.CustomFields && len(bytes.TrimSpace(data.CFTemplates)) > 0 && !bytes.Equal(bytes.TrimSpace(data.CFTemplates), []byte("null")) {
		res.CFTemplates = data.CFTemplates
	}
	if mode == view.Minimal && scope != nil {
		res.Digest = view.TaskDigest(tasks, res.Pagination.Total, scopeName, s.now().In(s.norm.Location()))
	}
	return res, nil
}

// AllTasks выгружает все задачи по фильтру, проходя страницы до конца.
func (s *Service) AllTasks(ctx context.Context, filter freedcamp.TaskFilter) ([]models.Task, error) {
	if filter.Limit <= 0 {
		filter.Limit = freedcamp.DefaultTaskLimit
	}
	filter.Offset = 0

	var all []models.Task
	for page := 0; page < maxTaskPages; page++ {
		data, err := s.api.ListTasks(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list tasks at offset %d: %w", filter.Offset, err)
		}
		tasks, err := s.norm.Tasks(data.Tasks, normalize.Options{})
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)

		// без meta конец выборки определяется неполной страницей
		if len(tasks) < filter.Limit {
			return all, nil
		}
		if total := view.DeclaredTotal(data.Meta); total != nil && filter.Offset+filter.Limit >= *total {
			return all, nil
		}
		filter.Offset += filter.Limit
	}
	s.logger.Warn("Task page limit reached", "pages", maxTaskPages, "tasks", len(all))
	return all, nil
}

// GetTaskDetails возвращает задачу с комментариями и файлами.
func (s *Service) GetTaskDetails(ctx context.Context, p TaskDetailsParams) (*TaskResult, error) {
	data, err := s.api.GetTask(ctx, string(p.TaskID), p.IncludeCustomFields, p.IncludeTags)
	if err != nil {
		return nil, err
	}
	if len(data.Tasks) == 0 {
		return nil, notFound("task %s not found", p.TaskID)
	}
	task, err := s.norm.Task(data.Tasks[0], normalize.Options{
		CustomFields: p.IncludeCustomFields,
		Tags:         p.IncludeTags,
		Nested:       true,
	})
	if err != nil {
		return nil, err
	}
	return &TaskResult{Task: view.Task(view.ModeFor(p.IncludeDetails), task)}, nil
}

// CreateTask создает задачу.
func (s *Service) CreateTask(ctx context.Context, p CreateTaskParams) (*Mutation, error) {
	payload := freedcamp.TaskPayload{
		Title:        p.Title,
		ProjectID:    string(p.ProjectID),
		Description:  p.Description,
		TaskGroupID:  string(p.TaskListID),
		Priority:     intString(p.Priority),
		AssignedToID: idPtr(p.AssignedToID),
		DueDate:      nonEmpty(p.DueDate),
		StartDate:    nonEmpty(p.StartDate),
		RRule:        p.RecurringRule,
		ParentID:     nonEmpty(string(p.ParentTaskID)),
		AttachedIDs:  p.AttachedFileIDs,
		CFTemplateID: nonEmpty(string(p.CFTemplateID)),
		CustomFields: p.CustomFields,
	}
	data, err := s.api.CreateTask(ctx, payload)
	if err != nil {
		return nil, err
	}
	task, err := s.firstTask(data)
	if err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Task created", Task: task}, nil
}

// UpdateTask меняет переданные поля задачи.
func (s *Service) UpdateTask(ctx context.Context, p UpdateTaskParams) (*Mutation, error) {
	payload := freedcamp.TaskPayload{
		Title:        p.Title,
		Description:  p.Description,
		TaskGroupID:  string(p.TaskListID),
		Priority:     intString(p.Priority),
		AssignedToID: idPtr(p.AssignedToID),
		DueDate:      p.DueDate,
		StartDate:    p.StartDate,
		ParentID:     idPtr(p.ParentTaskID),
		AttachedIDs:  p.AttachedFileIDs,
		CFTemplateID: nonEmpty(string(p.CFTemplateID)),
		CustomFields: p.CustomFields,
	}
	if p.Status != "" {
		code := strconv.Itoa(statusCodes[p.Status])
		payload.Status = &code
	}
	if isEmptyTaskPayload(payload) {
		return nil, Invalid("nothing to update for task %s", p.TaskID)
	}

	data, err := s.api.UpdateTask(ctx, string(p.TaskID), payload)
	if err != nil {
		return nil, err
	}
	task, err := s.firstTask(data)
	if err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Task updated", Task: task}, nil
}

// DeleteTask удаляет задачу.
func (s *Service) DeleteTask(ctx context.Context, p TaskIDParams) (*Mutation, error) {
	if err := s.api.DeleteTask(ctx, string(p.TaskID)); err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Task deleted", DeletedID: string(p.TaskID)}, nil
}

func (s *Service) firstTask(data *models.TasksData) (*models.Task, error) {
	if data == nil || len(data.Tasks) == 0 {
		return nil, nil
	}
	task, err := s.norm.Task(data.Tasks[0], normalize.Options{})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func isEmptyTaskPayload(p freedcamp.TaskPayload) bool {
	return p.Title == "" && p.Description == nil && p.TaskGroupID == "" &&
		p.Priority == nil && p.AssignedToID == nil && p.DueDate == nil &&
		p.StartDate == nil && p.Status == nil && p.ParentID == nil &&
		len(p.AttachedIDs) == 0 && p.CFTemplateID == nil && len(p.CustomFields) == 0
}

func statusList(names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		code, ok := statusCodes[name]
		if !ok {
			return nil, Invalid("unknown status %q", name)
		}
		out = append(out, code)
	}
	return out, nil
}

// ---------- пользователи ----------

// GetUsers возвращает пользователей аккаунта.
func (s *Service) GetUsers(ctx context.Context, p GetUsersParams) (*UserListResult, error) {
	data, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.norm.Users(data.Users)
	if err != nil {
		return nil, err
	}
	return &UserListResult{
		Users:      view.Users(view.ModeFor(p.IncludeDetails), users),
		Pagination: view.NewPagination(0, len(users), len(users), nil),
	}, nil
}

// GetCurrentUser возвращает владельца ключа.
func (s *Service) GetCurrentUser(ctx context.Context, _ NoParams) (*UserResult, error) {
	data, err := s.api.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.singleUser(data, "current user not returned")
}

// GetUserDetails возвращает пользователя по id.
func (s *Service) GetUserDetails(ctx context.Context, p UserIDParams) (*UserResult, error) {
	data, err := s.api.GetUser(ctx, string(p.UserID))
	if err != nil {
		return nil, err
	}
	return s.singleUser(data, fmt.Sprintf("user %s not found", p.UserID))
}

func (s *Service) singleUser(data *models.UsersData, missing string) (*UserResult, error) {
	if len(data.Users) == 0 {
		return nil, notFound("%s", missing)
	}
	user, err := s.norm.User(data.Users[0])
	if err != nil {
		return nil, err
	}
	return &UserResult{User: user}, nil
}

// UpdateCurrentUser меняет профиль владельца ключа.
func (s *Service) UpdateCurrentUser(ctx context.Context, p UpdateCurrentUserParams) (*Mutation, error) {
	payload := freedcamp.UserPayload{
		Email:                p.Email,
		Password:             p.Password,
		FirstName:            p.FirstName,
		LastName:             p.LastName,
		ConfirmationPassword: p.ConfirmationPassword,
		Timezone:             p.Timezone,
	}
	if payload.Email == "" && payload.Password == "" && payload.FirstName == "" &&
		payload.LastName == "" && payload.Timezone == "" {
		return nil, Invalid("nothing to update for the current user")
	}

	data, err := s.api.UpdateCurrentUser(ctx, payload)
	if err != nil {
		return nil, err
	}
	res := &Mutation{Success: true, Message: "User updated"}
	if len(data.Users) > 0 {
		user, err := s.norm.User(data.Users[0])
		if err != nil {
			return nil, err
		}
		res.User = &user
	}
	if data.Token != nil && data.Token.Present() {
		res.Token = data.Token.Value
	}
	return res, nil
}

// projectName имя проекта для заголовка выборки; при ошибке заглушка.
func (s *Service) projectName(ctx context.Context, id string) string {
	data, err := s.api.GetProject(ctx, id)
	if err == nil && len(data.Projects) > 0 && data.Projects[0].ProjectName.Present() {
		return data.Projects[0].ProjectName.Value
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Project name lookup failed", "project_id", id, "error", err)
	}
	return "Project " + id
}

// userName имя пользователя для заголовка выборки; при ошибке заглушка.
func (s *Service) userName(ctx context.Context, id string) string {
	data, err := s.api.GetUser(ctx, id)
	if err == nil && len(data.Users) > 0 {
		if user, nerr := s.norm.User(data.Users[0]); nerr == nil && user.FullName != "" {
			return user.FullName
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("User name lookup failed", "user_id", id, "error", err)
	}
	return "User " + id
}

// ---------- комментарии ----------

// AddComment добавляет комментарий к элементу.
func (s *Service) AddComment(ctx context.Context, p AddCommentParams) (*Mutation, error) {
	data, err := s.api.CreateComment(ctx, freedcamp.CommentPayload{
		ItemID:      string(p.ItemID),
		AppID:       string(p.AppID),
		Description: p.Description,
		AttachedIDs: p.AttachedFileIDs,
	})
	if err != nil {
		return nil, err
	}
	comment, err := s.firstComment(data)
	if err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Comment added", Comment: comment}, nil
}

// UpdateComment меняет текст комментария.
func (s *Service) UpdateComment(ctx context.Context, p UpdateCommentParams) (*Mutation, error) {
	data, err := s.api.UpdateComment(ctx, string(p.CommentID), freedcamp.CommentPayload{Description: p.Description})
	if err != nil {
		return nil, err
	}
	comment, err := s.firstComment(data)
	if err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Comment updated", Comment: comment}, nil
}

// DeleteComment удаляет комментарий.
func (s *Service) DeleteComment(ctx context.Context, p CommentIDParams) (*Mutation, error) {
	if err := s.api.DeleteComment(ctx, string(p.CommentID)); err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "Comment deleted", DeletedID: string(p.CommentID)}, nil
}

func (s *Service) firstComment(data *models.CommentsData) (*models.Comment, error) {
	if data == nil || len(data.Comments) == 0 {
		return nil, nil
	}
	comment, err := s.norm.Comment(data.Comments[0])
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ---------- файлы ----------

// GetFileDetails возвращает метаданные файла.
func (s *Service) GetFileDetails(ctx context.Context, p FileIDParams) (*FileResult, error) {
	data, err := s.api.GetFile(ctx, string(p.FileID))
	if err != nil {
		return nil, err
	}
	if len(data.Files) == 0 {
		return nil, notFound("file %s not found", p.FileID)
	}
	file, err := s.norm.File(data.Files[0])
	if err != nil {
		return nil, err
	}
	return &FileResult{File: file}, nil
}

// DeleteFile удаляет файл.
func (s *Service) DeleteFile(ctx context.Context, p FileIDParams) (*Mutation, error) {
	if err := s.api.DeleteFile(ctx, string(p.FileID)); err != nil {
		return nil, err
	}
	return &Mutation{Success: true, Message: "File deleted", DeletedID: string(p.FileID)}, nil
}

// UploadFile загружает файл из base64 или из upload_dir.
func (s *Service) UploadFile(ctx context.Context, p UploadFileParams) (*Mutation, error) {
	var content io.Reader
	if p.ContentBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(p.ContentBase64)
		if err != nil {
			return nil, Invalid("content_base64: %v", err)
		}
		content = bytes.NewReader(raw)
	} else {
		f, err := s.openUpload(p.FilePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		content = f
	}

	data, err := s.api.UploadFile(ctx, freedcamp.FileUploadMeta{
		ProjectID: string(p.ProjectID),
		ItemID:    string(p.ItemID),
		AppID:     string(p.AppID),
		CommentID: string(p.CommentID),
	}, p.FileName, content)
	if errors.Is(err, freedcamp.ErrUploadTooLarge) {
		return nil, Invalid("%v", err)
	}
	if err != nil {
		return nil, err
	}
	res := &Mutation{Success: true, Message: "File uploaded"}
	if len(data.Files) > 0 {
		file, err := s.norm.File(data.Files[0])
		if err != nil {
			return nil, err
		}
		res.File = &file
	}
	return res, nil
}

// openUpload открывает file_path только внутри upload_dir. Симлинки
// раскрываются до проверки, поэтому ссылка наружу тоже отклоняется.
func (s *Service) openUpload(path string) (*os.File, error) {
	if s.uploadDir == "" {
		return nil, Invalid("file_path uploads are disabled; set freedcamp.upload_dir or send content_base64")
	}
	root, err := filepath.EvalSymlinks(s.uploadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload_dir: %w", err)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload_dir: %w", err)
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(target))
	if err != nil {
		return nil, Invalid("cannot read file_path: %v", err)
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, Invalid("file_path %q is outside upload_dir", path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, Invalid("cannot read file_path: %v", err)
	}
	if !info.Mode().IsRegular() {
		return nil, Invalid("file_path %q is not a regular file", path)
	}
	if info.Size() > s.maxUpload {
		return nil, Invalid("file_path %q is %d bytes, limit is %d", path, info.Size(), s.maxUpload)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, Invalid("cannot read file_path: %v", err)
	}
	s.logger.Info("Uploading local file", "path", resolved, "size", info.Size())
	return f, nil
}

// ---------- списки задач ----------

// GetTaskLists возвращает списки задач проекта.
func (s *Service) GetTaskLists(ctx context.Context, p GetTaskListsParams) (*TaskListsResult, error) {
	data, err := s.api.ListTaskLists(ctx, string(p.ProjectID))
	if err != nil {
		return nil, err
	}
	lists, err := s.norm.TaskLists(data.Lists)
	if err != nil {
		return nil, err
	}
	return &TaskListsResult{
		TaskLists:  view.TaskLists(view.ModeFor(p.IncludeDetails), lists),
		Pagination: view.NewPagination(0, len(lists), len(lists), nil),
	}, nil
}

// CreateTaskList создает список задач.
func (s *Service) CreateTaskList(ctx context.Context, p CreateTaskListParams) (*Mutation, error) {
	data, err := s.api.CreateTaskList(ctx, freedcamp.TaskListPayload{
		ProjectID:   string(p.ProjectID),
		Title:       p.Title,
		Description: p.Description,
	})
	if err != nil {
		return nil, err
	}
	res := &Mutation{Success: true, Message: "Task list created"}
	if len(data.Lists) > 0 {
		list, err := s.norm.TaskList(data.Lists[0])
		if err != nil {
			return nil, err
		}
		res.TaskList = &list
	}
	return res, nil
}

// ---------- мелочи ----------

func notFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intString(v *int) *string {
	if v == nil {
		return nil
	}
	s := strconv.Itoa(*v)
	return &s
}

func idPtr(id *ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
