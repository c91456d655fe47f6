package freedcamp

import (
	"context"
	"io"
	"net/url"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

// TasksAppID идентификатор приложения "задачи" в Freedcamp.
const TasksAppID = "2"

func itemPath(collection, id string) string {
	return collection + "/" + url.PathEscape(id)
}

// ListProjects возвращает все проекты, опционально с недавними.
func (c *Client) ListProjects(ctx context.Context, includeRecent bool) (*models.ProjectsData, error) {
	q := url.Values{}
	if includeRecent {
		q.Set("f_recent_projects_ids", "1")
	}
	var data models.ProjectsData
	if err := c.Get(ctx, "projects", q, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetProject возвращает проект с участниками.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.ProjectsData, error) {
	var data models.ProjectsData
	if err := c.Get(ctx, itemPath("projects", projectID), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateProject создает проект.
func (c *Client) CreateProject(ctx context.Context, p ProjectPayload) (*models.ProjectsData, error) {
	var data models.ProjectsData
	if err := c.Post(ctx, "projects", p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// UpdateProject обновляет проект. Обновление в Freedcamp это POST на путь с id.
func (c *Client) UpdateProject(ctx context.Context, projectID string, p ProjectPayload) (*models.ProjectsData, error) {
	var data models.ProjectsData
	if err := c.Post(ctx, itemPath("projects", projectID), p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DeleteProject удаляет проект.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.Delete(ctx, itemPath("projects", projectID), nil)
}

// ListTasks возвращает страницу задач по фильтру.
func (c *Client) ListTasks(ctx context.Context, f TaskFilter) (*models.TasksData, error) {
	var data models.TasksData
	if err := c.Get(ctx, "tasks", f.Values(c.style), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTask возвращает задачу с комментариями и файлами.
func (c *Client) GetTask(ctx context.Context, taskID string, customFields, tags bool) (*models.TasksData, error) {
	q := url.Values{}
	if customFields {
		q.Set("f_cf", "1")
	}
	if tags {
		q.Set("f_include_tags", "1")
	}
	var data models.TasksData
	if err := c.Get(ctx, itemPath("tasks", taskID), q, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateTask создает задачу.
func (c *Client) CreateTask(ctx context.Context, p TaskPayload) (*models.TasksData, error) {
	var data models.TasksData
	if err := c.Post(ctx, "tasks", p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// UpdateTask обновляет задачу.
func (c *Client) UpdateTask(ctx context.Context, taskID string, p TaskPayload) (*models.TasksData, error) {
	var data models.TasksData
	if err := c.Post(ctx, itemPath("tasks", taskID), p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DeleteTask удаляет задачу.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.Delete(ctx, itemPath("tasks", taskID), nil)
}

// ListUsers возвращает всех пользователей рабочего пространства.
func (c *Client) ListUsers(ctx context.Context) (*models.UsersData, error) {
	return c.getUsers(ctx, "users")
}

// CurrentUser возвращает пользователя, от имени которого работает ключ.
func (c *Client) CurrentUser(ctx context.Context) (*models.UsersData, error) {
	return c.getUsers(ctx, "users/current")
}

// GetUser возвращает пользователя по id.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.UsersData, error) {
	return c.getUsers(ctx, itemPath("users", userID))
}

func (c *Client) getUsers(ctx context.Context, path string) (*models.UsersData, error) {
	var data models.UsersData
	if err := c.Get(ctx, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// UpdateCurrentUser обновляет текущего пользователя. При смене email или
// пароля Freedcamp выдает новый токен.
func (c *Client) UpdateCurrentUser(ctx context.Context, p UserPayload) (*models.UsersData, error) {
	var data models.UsersData
	if err := c.Post(ctx, "users/current", p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateComment добавляет комментарий к элементу.
func (c *Client) CreateComment(ctx context.Context, p CommentPayload) (*models.CommentsData, error) {
	var data models.CommentsData
	if err := c.Post(ctx, "comments", p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// UpdateComment обновляет текст комментария.
func (c *Client) UpdateComment(ctx context.Context, commentID string, p CommentPayload) (*models.CommentsData, error) {
	var data models.CommentsData
	if err := c.Post(ctx, itemPath("comments", commentID), p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DeleteComment удаляет комментарий.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.Delete(ctx, itemPath("comments", commentID), nil)
}

// GetFile возвращает метаданные файла.
func (c *Client) GetFile(ctx context.Context, fileID string) (*models.FilesData, error) {
	var data models.FilesData
	if err := c.Get(ctx, itemPath("files", fileID), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DeleteFile удаляет файл.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.Delete(ctx, itemPath("files", fileID), nil)
}

// UploadFile загружает файл в проект.
func (c *Client) UploadFile(ctx context.Context, meta FileUploadMeta, fileName string, content io.Reader) (*models.FilesData, error) {
	var data models.FilesData
	if err := c.Upload(ctx, "files", meta, fileName, content, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListTaskLists возвращает списки задач проекта.
func (c *Client) ListTaskLists(ctx context.Context, projectID string) (*models.TaskListsData, error) {
	q := url.Values{}
	q.Set("project_id", projectID)
	var data models.TaskListsData
	if err := c.Get(ctx, "lists/"+TasksAppID, q, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateTaskList создает список задач в проекте.
func (c *Client) CreateTaskList(ctx context.Context, p TaskListPayload) (*models.TaskListsData, error) {
	var data models.TaskListsData
	if err := c.Post(ctx, "lists/"+TasksAppID, p, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
