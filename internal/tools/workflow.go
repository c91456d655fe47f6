package tools

// Подсказки по порядку вызовов. Агенту важнее всего не выдумывать id.
var workflows = map[string]string{
	"general": `GENERAL WORKFLOW

1. Discovery (always start here)
   - get_projects: available projects, grouped
   - get_users: available users
   - get_current_user: who the API key acts as

2. Project selection
   - pick the project by name from get_projects
   - get_project_details(project_id) for members and settings
   - never guess project ids, look them up

3. Task operations
   - get_project_tasks(project_id) for existing work
   - get_user_tasks(user_id) for someone's workload
   - get_task_lists(project_id) before filing into a list
   - create_task with a real project_id and user ids

4. Where ids come from
   - project ids: get_projects
   - user ids: get_users (user_id, not the name)
   - task ids: get_project_tasks or the create_task response
   - task list ids: get_task_lists`,

	"create_task": `TASK CREATION WORKFLOW

1. Prerequisites
   - get_projects: find the target project
   - get_project_details(project_id): check can_add_tasks
   - get_users: find assignee ids
   - get_task_lists(project_id): optional target list

2. Create
   - create_task(title, project_id, ...)
   - required: title, project_id
   - optional: description, task_list_id, assigned_to_id, due_date (YYYY-MM-DD), priority (0-3)

3. Verify
   - get_task_details(task_id)
   - the task appears in get_project_tasks(project_id)

Example
   create_task(title="New Task", project_id="123", assigned_to_id="456")`,

	"assign_users": `USER ASSIGNMENT WORKFLOW

1. get_users: use the user_id field, not full_name
2. find the person by full_name or email and take their user_id
3. assigned_to_id values
   - a user id: that user
   - "0": unassigned
   - "-1": everyone
4. verify with get_user_tasks(user_id) or get_task_details(task_id)

Never pass a name where an id is expected.`,

	"project_setup": `PROJECT SETUP WORKFLOW

1. Discovery
   - get_projects: existing projects and groups
   - get_current_user: your own user id

2. Create
   - create_project(name, description, group_name, color, users_to_add)

3. Team
   - get_users: find members
   - update_project(project_id, users_to_add=[{"user_id": "..."}])

4. Structure
   - create_task_list(project_id, title) for each stage
   - create_task(...) for the initial tasks

5. Verify
   - get_project_details(project_id): membership
   - get_project_tasks(project_id): tasks`,
}

// WorkflowHelp текст подсказки; неизвестный тип дает общую.
func WorkflowHelp(taskType string) string {
	if text, ok := workflows[taskType]; ok {
		return text
	}
	return workflows["general"]
}
