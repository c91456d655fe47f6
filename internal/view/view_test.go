package view

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
	"github.com/DevN0mad/FreedcampMCP/internal/normalize"
)

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func assertSubset(t *testing.T, minimal, detailed any) {
	t.Helper()
	small, full := toMap(t, minimal), toMap(t, detailed)
	for k, v := range small {
		fv, ok := full[k]
		if assert.True(t, ok, "field %q missing from detailed view", k) {
			assert.Equal(t, fv, v, "field %q differs", k)
		}
	}
	assert.Less(t, len(small), len(full))
}

func normalized(t *testing.T) (*normalize.Normalizer, []models.RawTask, []models.RawProject) {
	t.Helper()
	n, err := normalize.New("")
	require.NoError(t, err)

	var tasks []models.RawTask
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","title":"A","status":2,"priority":3,"assigned_to_fullname":"Ann","due_ts":1700000000,
		 "project_id":"9","h_parent_id":"4","url":"https://x/1","comments_count":"2","can_edit":true},
		{"id":"2","title":"B","due_ts":0,"comments":[{"id":"c","user_full_name":"Bob","created_ts":1700000000,"description":"hi"}],
		 "files":[{"id":"f","name":"a.txt","size":"12","url":"https://x/f"}]}
	]`), &tasks))

	var projects []models.RawProject
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","project_name":"P","group_name":"Ops","users_count":3,"tasks_count":7,"url":"https://x/p"},
		{"id":"2","project_name":"Q"}
	]`), &projects))
	return n, tasks, projects
}

func TestMinimalIsSubsetOfDetailed(t *testing.T) {
	n, rawTasks, rawProjects := normalized(t)

	tasks, err := n.Tasks(rawTasks, normalize.Options{Nested: true})
	require.NoError(t, err)
	for _, task := range tasks {
		assertSubset(t, SummarizeTask(task), task)
		for _, c := range task.Comments {
			assertSubset(t, SummarizeComment(c), c)
		}
		for _, f := range task.Files {
			assertSubset(t, SummarizeFile(f), f)
		}
	}

	projects, err := n.Projects(rawProjects, normalize.Options{})
	require.NoError(t, err)
	for _, p := range projects {
		assertSubset(t, SummarizeProject(p), p)
	}

	email := "a@b.c"
	u := models.User{UserID: "1", FullName: "Ann", FirstName: "Ann", Email: &email}
	assertSubset(t, SummarizeUser(u), u)

	l := models.TaskList{ID: "3", ProjectID: "9", Title: "Backlog", Description: "later"}
	assertSubset(t, SummarizeTaskList(l), l)
}

func TestCollectionsModes(t *testing.T) {
	tasks := []models.Task{{ID: "1", Title: "A"}}

	_, ok := Tasks(Detailed, tasks).([]models.Task)
	assert.True(t, ok)
	summaries, ok := Tasks(Minimal, tasks).([]TaskSummary)
	require.True(t, ok)
	assert.Equal(t, "A", summaries[0].Title)

	b, err := json.Marshal(Tasks(Detailed, nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
	b, err = json.Marshal(Users(Minimal, nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestPaginationHasMoreLaw(t *testing.T) {
	for offset := 0; offset <= 12; offset += 3 {
		for limit := 0; limit <= 12; limit += 4 {
			for total := 0; total <= 30; total += 5 {
				p := NewPagination(offset, limit, min(limit, max(total-offset, 0)), &total)
				assert.Equal(t, offset+limit < total, p.HasMore, "offset=%d limit=%d total=%d", offset, limit, total)
				if p.HasMore {
					require.NotNil(t, p.NextOffset)
					assert.Equal(t, offset+limit, *p.NextOffset)
				} else {
					assert.Nil(t, p.NextOffset)
				}
			}
		}
	}
}

func TestPaginationWithoutMeta(t *testing.T) {
	var data models.TasksData
	require.NoError(t, json.Unmarshal([]byte(`{"tasks":[{"id":"1"},{"id":"2"},{"id":"3"}]}`), &data))
	require.Nil(t, data.Meta)

	p := NewPagination(0, 50, len(data.Tasks), DeclaredTotal(data.Meta))
	assert.Equal(t, 3, p.Showing)
	assert.Equal(t, 3, p.Total)
	assert.False(t, p.HasMore)

	m := toMap(t, p)
	assert.NotContains(t, m, "next_offset")
}

func TestDeclaredTotal(t *testing.T) {
	var meta models.Meta
	require.NoError(t, json.Unmarshal([]byte(`{"total":"120"}`), &meta))
	total := DeclaredTotal(&meta)
	require.NotNil(t, total)
	assert.Equal(t, 120, *total)

	p := NewPagination(0, 50, 50, total)
	assert.True(t, p.HasMore)
	assert.Equal(t, 50, *p.NextOffset)

	require.NoError(t, json.Unmarshal([]byte(`{"total":null}`), &meta))
	assert.Nil(t, DeclaredTotal(&meta))
}

func TestUngroupedProjectsShareGroup(t *testing.T) {
	n, err := normalize.New("")
	require.NoError(t, err)

	var raws []models.RawProject
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","project_name":"A","group_name":"Ungrouped"},
		{"id":"2","project_name":"B","group_name":"Clients"},
		{"id":"3","project_name":"C","group_name":"Ungrouped"},
		{"id":"4","project_name":"D"}
	]`), &raws))
	projects, err := n.Projects(raws, normalize.Options{})
	require.NoError(t, err)

	groups := GroupProjects(Minimal, projects)
	require.Len(t, groups, 2)
	assert.Equal(t, models.UngroupedName, groups[0].GroupName)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "Clients", groups[1].GroupName)

	items, ok := groups[0].Projects.([]ProjectSummary)
	require.True(t, ok)
	var ids []string
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"1", "3", "4"}, ids)
}

func strp(s string) *string { return &s }

func TestTaskDigest(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "1", Title: "Late", AssignedTo: "Ann", DueDate: strp("2024-03-08"), Status: models.StatusInProgress},
		{ID: "2", Title: "Soon", AssignedTo: "Bob", DueDate: strp("2024-03-11"), Status: models.StatusNotStarted},
		{ID: "3", Title: "Hot", AssignedTo: "Cid", Priority: 3, PriorityTitle: "High", Status: models.StatusNotStarted},
		{ID: "4", Title: "Done", AssignedTo: "Dee", DueDate: strp("2024-01-01"), Status: models.StatusCompleted},
		{ID: "5", Title: "Later", AssignedTo: "Eve", DueDate: strp("2024-04-01"), Status: models.StatusNotStarted},
	}

	text := TaskDigest(tasks, 12, "Apollo", now)

	assert.True(t, strings.HasPrefix(text, "📋 Tasks in Apollo (5 of 12)"))
	assert.Contains(t, text, "🚨 OVERDUE:\n  • Late → Ann (due 2024-03-08)")
	assert.Contains(t, text, "⏰ DUE SOON:\n  • Soon → Bob (due 2024-03-11)")
	assert.Contains(t, text, "🔥 HIGH PRIORITY:\n  • Hot → Cid (High)")
	assert.Contains(t, text, "📝 NOT STARTED (3):\n  • Later → Eve (due 2024-04-01)\n  ... and 2 more")
	assert.Contains(t, text, "✅ COMPLETED (1):\n  • Done → Dee (due 2024-01-01)")
	assert.NotContains(t, text, "UNKNOWN")

	assert.Equal(t, "📋 No tasks found", TaskDigest(nil, 0, "", now))
}
