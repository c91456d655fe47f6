package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/normalize"
)

func TestParamsSchemaFromTags(t *testing.T) {
	s, err := ParamsSchema(GetAllTasksParams{})
	require.NoError(t, err)

	limit := s.Properties["limit"]
	require.NotNil(t, limit)
	assert.Equal(t, "integer", limit.Type)
	assert.Equal(t, 200, limit.Default)
	assert.Equal(t, 1, *limit.Minimum)
	assert.Equal(t, 200, *limit.Maximum)

	status := s.Properties["status_filter"]
	assert.Equal(t, "array", status.Type)
	assert.Equal(t, []string{"not_started", "completed", "in_progress", "0", "1", "2"}, status.Items.Enum)

	assert.Equal(t, "date", s.Properties["due_date_from"].Format)
	assert.Equal(t, []string{"asc", "desc"}, s.Properties["order_direction"].Enum)
	assert.Empty(t, s.Required)

	ids := s.Properties["project_ids"]
	assert.Equal(t, "string", ids.Items.Type)
}

func TestParamsSchemaNested(t *testing.T) {
	s, err := ParamsSchema(&UpdateProjectParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"project_id"}, s.Required)

	users := s.Properties["users_to_add"]
	require.NotNil(t, users.Items)
	assert.Equal(t, "object", users.Items.Type)
	assert.Equal(t, "email", users.Items.Properties["email"].Format)
	assert.Nil(t, users.Items.AdditionalProperties)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"additionalProperties":false`)
}

func TestParamsSchemaEmpty(t *testing.T) {
	s, err := ParamsSchema(NoParams{})
	require.NoError(t, err)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","additionalProperties":false}`, string(raw))

	_, err = ParamsSchema(42)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	var p TaskDetailsParams
	require.NoError(t, applyDefaults(&p))
	assert.True(t, p.IncludeCustomFields)
	assert.True(t, p.IncludeDetails)

	var c AddCommentParams
	require.NoError(t, applyDefaults(&c))
	assert.Equal(t, ID("2"), c.AppID)

	var g GetAllTasksParams
	require.NoError(t, applyDefaults(&g))
	require.NoError(t, json.Unmarshal([]byte(`{"limit":10,"include_details":false}`), &g))
	assert.Equal(t, 10, g.Limit)
	assert.False(t, g.IncludeDetails)
	assert.Equal(t, "active", g.ListsStatus)
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	var p struct {
		A ID   `json:"a"`
		B ID   `json:"b"`
		C []ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":" 12 ","b":345,"c":[1,"2"]}`), &p))
	assert.Equal(t, ID("12"), p.A)
	assert.Equal(t, ID("345"), p.B)
	assert.Equal(t, []string{"1", "2"}, idStrings(p.C))

	assert.Error(t, json.Unmarshal([]byte(`{"a":{}}`), &p))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"invalid", Invalid("bad"), CategoryValidation},
		{"wrapped invalid", fmt.Errorf("x: %w", ErrInvalidInput), CategoryValidation},
		{"integrity", &normalize.IntegrityError{Entity: "task", Field: "id", Index: 2}, CategoryIntegrity},
		{"unauthorized", &freedcamp.UpstreamError{Kind: freedcamp.KindTransport, HTTPStatus: 401}, CategoryForbidden},
		{"forbidden code", &freedcamp.UpstreamError{Kind: freedcamp.KindApplication, HTTPStatus: 200, Code: 403}, CategoryForbidden},
		{"not found", &freedcamp.UpstreamError{Kind: freedcamp.KindApplication, Code: 404}, CategoryNotFound},
		{"server error", &freedcamp.UpstreamError{Kind: freedcamp.KindTransport, HTTPStatus: 502}, CategoryTransient},
		{"network", &freedcamp.UpstreamError{Kind: freedcamp.KindTransport, Err: errors.New("dial")}, CategoryTransient},
		{"rejected", &freedcamp.UpstreamError{Kind: freedcamp.KindApplication, Code: 422}, CategoryUpstream},
		{"deadline", context.DeadlineExceeded, CategoryTransient},
		{"other", errors.New("boom"), CategoryInternal},
		{"explicit", notFound("gone"), CategoryNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}

	assert.True(t, CategoryTransient.Retryable())
	assert.False(t, CategoryUpstream.Retryable())

	f := FailureOf(Invalid("title is required"))
	assert.False(t, f.Success)
	assert.Equal(t, CategoryValidation, f.Category)
	assert.Equal(t, "invalid input: title is required", f.Message)
}
