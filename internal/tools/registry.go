package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownTool вызван инструмент, которого нет в реестре.
var ErrUnknownTool = errors.New("unknown tool")

// Tool описание инструмента вместе с обработчиком.
type Tool struct {
	Name        string
	Title       string
	Description string
	ReadOnly    bool
	Destructive bool
	InputSchema *Schema

	run func(ctx context.Context, args json.RawMessage) (any, error)
}

type toolMeta struct {
	name        string
	title       string
	description string
	readOnly    bool
	destructive bool
}

// newTool связывает типизированный обработчик с разбором и проверкой аргументов.
func newTool[P, R any](v *validator.Validate, meta toolMeta, fn func(context.Context, P) (R, error)) (Tool, error) {
	var zero P
	schema, err := ParamsSchema(zero)
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: %w", meta.name, err)
	}
	return Tool{
		Name:        meta.name,
		Title:       meta.title,
		Description: meta.description,
		ReadOnly:    meta.readOnly,
		Destructive: meta.destructive,
		InputSchema: schema,
		run: func(ctx context.Context, args json.RawMessage) (any, error) {
			var p P
			if err := applyDefaults(&p); err != nil {
				return nil, err
			}
			if err := decodeArgs(args, &p); err != nil {
				return nil, err
			}
			if err := v.Struct(p); err != nil {
				return nil, validationError(err)
			}
			return fn(ctx, p)
		},
	}, nil
}

func decodeArgs(args json.RawMessage, out any) error {
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return Invalid("%s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Invalid("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return Invalid("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, strings.ToLower(fe.Param()))
	case "required_without":
		return fmt.Sprintf("%s is required unless %s is set", field, strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "date":
		return field + " must be a date in YYYY-MM-DD format"
	default:
		return fmt.Sprintf("%s is not a valid %s", field, fe.Tag())
	}
}

// NewValidator валидатор аргументов: имена полей из json, правило date.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// пустая строка через указатель очищает дату
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	})
	return v
}

// Registry набор инструментов сервера.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
	logger *slog.Logger
}

// NewRegistry регистрирует все инструменты поверх сервиса.
func NewRegistry(svc *Service, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := NewValidator()
	r := &Registry{byName: make(map[string]Tool), logger: logger}

	var errs []error
	add := func(t Tool, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		r.tools = append(r.tools, t)
		r.byName[t.Name] = t
	}

	add(newTool(v, toolMeta{name: "get_workflow_help", title: "Workflow help", readOnly: true,
		description: "Step-by-step guidance on which tools to call, in what order and where ids come from. Call it first when unsure."},
		func(_ context.Context, p WorkflowHelpParams) (string, error) { return WorkflowHelp(p.TaskType), nil }))

	add(newTool(v, toolMeta{name: "get_projects", title: "List projects", readOnly: true,
		description: "Projects visible to the API key, grouped by project group. Summaries unless include_details is set."},
		svc.GetProjects))
	add(newTool(v, toolMeta{name: "get_project_details", title: "Project details", readOnly: true,
		description: "One project with members and notifications."},
		svc.GetProjectDetails))
	add(newTool(v, toolMeta{name: "create_project", title: "Create project",
		description: "Create a project, optionally inside a group and with initial members."},
		svc.CreateProject))
	add(newTool(v, toolMeta{name: "update_project", title: "Update project",
		description: "Change project fields or membership. With only_update_users only membership changes are sent."},
		svc.UpdateProject))
	add(newTool(v, toolMeta{name: "delete_project", title: "Delete project", destructive: true,
		description: "Delete a project with all its content."},
		svc.DeleteProject))

	add(newTool(v, toolMeta{name: "get_all_tasks", title: "Search tasks", readOnly: true,
		description: "Tasks across projects with filters by status, project, assignee, creator and date ranges. Paginated."},
		svc.GetAllTasks))
	add(newTool(v, toolMeta{name: "get_project_tasks", title: "Project tasks", readOnly: true,
		description: "Tasks of one project. Summaries with a digest unless include_details is set."},
		svc.GetProjectTasks))
	add(newTool(v, toolMeta{name: "get_user_tasks", title: "User tasks", readOnly: true,
		description: "Tasks assigned to one user. Completed tasks only with include_completed."},
		svc.GetUserTasks))
	add(newTool(v, toolMeta{name: "get_task_details", title: "Task details", readOnly: true,
		description: "One task with comments, files and custom fields."},
		svc.GetTaskDetails))
	add(newTool(v, toolMeta{name: "create_task", title: "Create task",
		description: "Create a task in a project. Look up project and user ids first."},
		svc.CreateTask))
	add(newTool(v, toolMeta{name: "update_task", title: "Update task",
		description: "Change task fields, status or assignee. Only the fields passed are sent."},
		svc.UpdateTask))
	add(newTool(v, toolMeta{name: "delete_task", title: "Delete task", destructive: true,
		description: "Delete a task."},
		svc.DeleteTask))

	add(newTool(v, toolMeta{name: "get_users", title: "List users", readOnly: true,
		description: "Users visible to the API key. Use user_id values for assignment."},
		svc.GetUsers))
	add(newTool(v, toolMeta{name: "get_current_user", title: "Current user", readOnly: true,
		description: "The user the API key acts as."},
		svc.GetCurrentUser))
	add(newTool(v, toolMeta{name: "get_user_details", title: "User details", readOnly: true,
		description: "One user by id."},
		svc.GetUserDetails))
	add(newTool(v, toolMeta{name: "update_current_user", title: "Update current user",
		description: "Change the profile of the current user. Email and password changes need confirmation_password."},
		svc.UpdateCurrentUser))

	add(newTool(v, toolMeta{name: "add_comment", title: "Add comment",
		description: "Comment on an item, usually a task."},
		svc.AddComment))
	add(newTool(v, toolMeta{name: "update_comment", title: "Update comment",
		description: "Replace the text of a comment."},
		svc.UpdateComment))
	add(newTool(v, toolMeta{name: "delete_comment", title: "Delete comment", destructive: true,
		description: "Delete a comment."},
		svc.DeleteComment))

	add(newTool(v, toolMeta{name: "get_file_details", title: "File details", readOnly: true,
		description: "Metadata of an uploaded file."},
		svc.GetFileDetails))
	add(newTool(v, toolMeta{name: "delete_file", title: "Delete file", destructive: true,
		description: "Delete an uploaded file."},
		svc.DeleteFile))
	add(newTool(v, toolMeta{name: "upload_file", title: "Upload file",
		description: "Upload a file from a local path or base64 content, optionally attached to an item or comment."},
		svc.UploadFile))

	add(newTool(v, toolMeta{name: "get_task_lists", title: "Task lists", readOnly: true,
		description: "Task lists of a project."},
		svc.GetTaskLists))
	add(newTool(v, toolMeta{name: "create_task_list", title: "Create task list",
		description: "Create a task list in a project."},
		svc.CreateTaskList))

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("build tools: %w", err)
	}
	return r, nil
}

// Tools инструменты в порядке регистрации.
func (r *Registry) Tools() []Tool {
	return r.tools
}

// Lookup инструмент по имени.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Call выполняет инструмент. Ошибка классифицируется вызывающим через Classify.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	start := time.Now()
	res, err := t.run(ctx, args)
	if err != nil {
		r.logger.Warn("Tool call failed",
			"tool", name,
			"category", Classify(err),
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}
	r.logger.Debug("Tool call done", "tool", name, "duration", time.Since(start))
	return res, nil
}
