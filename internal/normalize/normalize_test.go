package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevN0mad/FreedcampMCP/internal/models"
)

func decodeTask(t *testing.T, src string) models.RawTask {
	t.Helper()
	var raw models.RawTask
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	return raw
}

func newUTC(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New("")
	require.NoError(t, err)
	return n
}

func TestInvalidDueDateIsAbsent(t *testing.T) {
	n := newUTC(t)
	for _, due := range []string{`0`, `"0"`, `""`, `"soon"`, `-86400`, `"-5"`, `null`} {
		task, err := n.Task(decodeTask(t, `{"id":"1","due_ts":`+due+`}`), Options{})
		require.NoError(t, err, due)
		assert.Nil(t, task.DueDate, due)

		out, err := json.Marshal(task)
		require.NoError(t, err)
		assert.NotContains(t, string(out), "due_date", due)
		assert.NotContains(t, string(out), "1970", due)
	}
}

func TestTimestampsRendered(t *testing.T) {
	n := newUTC(t)
	task, err := n.Task(decodeTask(t, `{"id":"1","due_ts":"1700000000","created_ts":1700000000,"completed_ts":0}`), Options{})
	require.NoError(t, err)

	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2023-11-14", *task.DueDate)
	require.NotNil(t, task.CreatedAt)
	assert.Equal(t, "2023-11-14 22:13:20", *task.CreatedAt)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.StartDate)
}

func TestTimezoneApplied(t *testing.T) {
	n, err := New("Europe/Moscow")
	require.NoError(t, err)
	task, err := n.Task(decodeTask(t, `{"id":"1","created_ts":1700000000}`), Options{})
	require.NoError(t, err)
	assert.Equal(t, "2023-11-15 01:13:20", *task.CreatedAt)

	_, err = New("Mars/Olympus")
	assert.Error(t, err)
}

func TestTaskDefaults(t *testing.T) {
	n := newUTC(t)
	task, err := n.Task(decodeTask(t, `{"id":7,"title":"Fix","assigned_to_id":"0","h_parent_id":"0"}`), Options{})
	require.NoError(t, err)

	assert.Equal(t, "7", task.ID)
	assert.Equal(t, models.StatusNotStarted, task.Status)
	assert.Equal(t, "Not Started", task.StatusTitle)
	assert.Equal(t, 0, task.Priority)
	assert.Equal(t, "None", task.PriorityTitle)
	assert.Equal(t, models.UnassignedName, task.AssignedTo)
	assert.Empty(t, task.AssignedToID)
	assert.Empty(t, task.ParentID)
}

func TestTaskStatusAndPriority(t *testing.T) {
	n := newUTC(t)
	cases := []struct {
		src      string
		status   models.TaskStatus
		priority int
		title    string
	}{
		{`{"id":"1","status":1,"priority":3}`, models.StatusCompleted, 3, "High"},
		{`{"id":"1","status":"2","priority":"1"}`, models.StatusInProgress, 1, "Low"},
		{`{"id":"1","status":9,"priority":8}`, models.StatusUnknown, 0, "None"},
		{`{"id":"1","status":0,"priority":2,"priority_title":"Medium!"}`, models.StatusNotStarted, 2, "Medium!"},
	}
	for _, tc := range cases {
		task, err := n.Task(decodeTask(t, tc.src), Options{})
		require.NoError(t, err)
		assert.Equal(t, tc.status, task.Status, tc.src)
		assert.Equal(t, tc.priority, task.Priority, tc.src)
		assert.Equal(t, tc.title, task.PriorityTitle, tc.src)
	}
}

func TestEveryoneAssignee(t *testing.T) {
	task, err := newUTC(t).Task(decodeTask(t, `{"id":"1","assigned_to_id":"-1"}`), Options{})
	require.NoError(t, err)
	assert.Equal(t, models.EveryoneName, task.AssignedTo)
	assert.Equal(t, "-1", task.AssignedToID)
}

func TestOptionalPayloadsOnlyWhenRequested(t *testing.T) {
	src := `{"id":"1","custom_fields":[{"id":"cf1","value":"x"}],"cf_tpl_id":"4","tags":["a"],
		"comments":[{"id":"c1","description":"hi","files":[{"id":"f2"}]}],"files":[{"id":"f1","name":"a.txt"}]}`
	n := newUTC(t)

	plain, err := n.Task(decodeTask(t, src), Options{})
	require.NoError(t, err)
	out, _ := json.Marshal(plain)
	for _, key := range []string{`"custom_fields"`, `"cf_tpl_id"`, `"tags"`, `"comments"`, `"files"`} {
		assert.NotContains(t, string(out), key)
	}

	full, err := n.Task(decodeTask(t, src), Options{CustomFields: true, Tags: true, Nested: true})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"cf1","value":"x"}]`, string(full.CustomFields))
	assert.Equal(t, "4", full.CustomFieldsTemplate)
	assert.JSONEq(t, `["a"]`, string(full.Tags))
	require.Len(t, full.Comments, 1)
	require.Len(t, full.Comments[0].Files, 1)
	assert.Equal(t, models.DefaultLocation, full.Comments[0].Files[0].Location)
	require.Len(t, full.Files, 1)
	assert.Equal(t, "a.txt", full.Files[0].Name)
}

func TestEmptyCustomFieldsOmitted(t *testing.T) {
	task, err := newUTC(t).Task(decodeTask(t, `{"id":"1","custom_fields":[],"tags":null}`), Options{CustomFields: true, Tags: true})
	require.NoError(t, err)
	assert.Nil(t, task.CustomFields)
	assert.Nil(t, task.Tags)
}

func TestMissingIDIsIntegrityError(t *testing.T) {
	n := newUTC(t)
	_, err := n.Tasks([]models.RawTask{
		decodeTask(t, `{"id":"1"}`),
		decodeTask(t, `{"title":"no id"}`),
	}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIntegrity))

	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "task", ie.Entity)
	assert.Equal(t, 1, ie.Index)

	_, err = n.Project(models.RawProject{}, Options{})
	assert.ErrorIs(t, err, ErrIntegrity)

	_, err = n.User(models.RawUser{})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestNestedCommentWithoutIDFailsTask(t *testing.T) {
	_, err := newUTC(t).Task(decodeTask(t, `{"id":"1","comments":[{"description":"x"}]}`), Options{Nested: true})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestNestedMemberWithoutIDNamesProject(t *testing.T) {
	var raws []models.RawProject
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","project_name":"A"},
		{"id":"42","project_name":"B","users":[{"user_id":"5"},{"full_name":"ghost"}]}
	]`), &raws))

	_, err := newUTC(t).Projects(raws, Options{Nested: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.Contains(t, err.Error(), "project 42")

	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "project member", ie.Entity)
	assert.Equal(t, 1, ie.Index)
}

func TestProjectDefaults(t *testing.T) {
	var raws []models.RawProject
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","project_name":"A","group_name":""},
		{"id":"2","project_name":"B","f_active":"0","todo_view_type":"kanban","group_name":"Ops",
		 "users":[{"user_id":"5","full_name":"Ann","role_name":"Admin"}]}
	]`), &raws))

	projects, err := newUTC(t).Projects(raws, Options{Nested: true})
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, models.UngroupedName, projects[0].GroupName)
	assert.True(t, projects[0].Active)
	assert.Equal(t, models.DefaultTodoView, projects[0].TodoViewType)
	assert.Nil(t, projects[0].CreatedAt)

	assert.Equal(t, "Ops", projects[1].GroupName)
	assert.False(t, projects[1].Active)
	assert.Equal(t, "kanban", projects[1].TodoViewType)
	assert.Equal(t, 1, projects[1].UsersCount)
	require.Len(t, projects[1].Users, 1)
	assert.Equal(t, "Admin", projects[1].Users[0].RoleName)
}

func TestUserOptionalFields(t *testing.T) {
	n := newUTC(t)
	u, err := n.User(models.RawUser{
		UserID:    models.FlexString{Value: "3", Set: true},
		FirstName: models.FlexString{Value: "Ann", Set: true},
		LastName:  models.FlexString{Value: "Lee", Set: true},
		Email:     models.FlexString{Set: true, Null: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", u.FullName)
	assert.Nil(t, u.Email)
	assert.Nil(t, u.Timezone)
}
