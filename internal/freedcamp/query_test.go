package freedcamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyFilterKeepsMandatoryKeys(t *testing.T) {
	for _, style := range []ArrayStyle{IndexedArrays, BracketArrays} {
		v := TaskFilter{}.Values(style)

		assert.Equal(t, "200", v.Get("limit"))
		assert.Equal(t, "0", v.Get("offset"))
		assert.Equal(t, "active", v.Get("lists_status"))
		assert.Len(t, v, 3)
	}
}

func TestFilterIndexedArrays(t *testing.T) {
	f := TaskFilter{
		Limit:       50,
		Offset:      100,
		Statuses:    []int{0, 2},
		ProjectIDs:  []string{"7"},
		AssigneeIDs: []string{"11", "12"},
		CreatorIDs:  []string{"3"},
	}
	v := f.Values(IndexedArrays)

	assert.Equal(t, "50", v.Get("limit"))
	assert.Equal(t, "100", v.Get("offset"))
	assert.Equal(t, "0", v.Get("status[0]"))
	assert.Equal(t, "2", v.Get("status[1]"))
	assert.Equal(t, "7", v.Get("project_id[0]"))
	assert.Equal(t, "11", v.Get("assigned_to_id[0]"))
	assert.Equal(t, "12", v.Get("assigned_to_id[1]"))
	assert.Equal(t, "3", v.Get("created_by_id[0]"))
	assert.NotContains(t, v, "status[]")
}

func TestFilterBracketArrays(t *testing.T) {
	f := TaskFilter{Statuses: []int{0, 2}, AssigneeIDs: []string{"11", "12"}}
	v := f.Values(BracketArrays)

	assert.Equal(t, []string{"0", "2"}, v["status[]"])
	assert.Equal(t, []string{"11", "12"}, v["assigned_to_id[]"])
	assert.NotContains(t, v, "status[0]")
}

func TestFilterRangesOrderAndFlags(t *testing.T) {
	f := TaskFilter{
		DueFrom:         "2024-01-01",
		DueTo:           "2024-01-31",
		CreatedTo:       "2023-12-31",
		IncludeArchived: true,
		ListsStatus:     "all",
		OrderBy:         "due_date",
		CustomFields:    true,
		Tags:            true,
	}
	v := f.Values(IndexedArrays)

	assert.Equal(t, "2024-01-01", v.Get("due_date[from]"))
	assert.Equal(t, "2024-01-31", v.Get("due_date[to]"))
	assert.Equal(t, "2023-12-31", v.Get("created_date[to]"))
	assert.NotContains(t, v, "created_date[from]")
	assert.Equal(t, "1", v.Get("f_with_archived"))
	assert.Equal(t, "all", v.Get("lists_status"))
	assert.Equal(t, "asc", v.Get("order[due_date]"))
	assert.Equal(t, "1", v.Get("f_cf"))
	assert.Equal(t, "1", v.Get("f_include_tags"))
}

func TestFilterNegativeOffsetClamped(t *testing.T) {
	v := TaskFilter{Offset: -5, Limit: -1}.Values(IndexedArrays)
	assert.Equal(t, "0", v.Get("offset"))
	assert.Equal(t, "200", v.Get("limit"))
}

func TestParseArrayStyle(t *testing.T) {
	s, err := ParseArrayStyle("")
	require.NoError(t, err)
	assert.Equal(t, IndexedArrays, s)

	s, err = ParseArrayStyle("bracket")
	require.NoError(t, err)
	assert.Equal(t, BracketArrays, s)
	assert.Equal(t, "bracket", s.String())

	_, err = ParseArrayStyle("comma")
	assert.Error(t, err)
}
