package freedcamp

import (
	"fmt"
	"net/url"
	"strconv"
)

// ArrayStyle способ кодирования массивов в query string.
type ArrayStyle int

const (
	// IndexedArrays status[0]=0&status[1]=2
	IndexedArrays ArrayStyle = iota
	// BracketArrays status[]=0&status[]=2
	BracketArrays
)

// ParseArrayStyle разбирает значение из конфигурации.
func ParseArrayStyle(s string) (ArrayStyle, error) {
	switch s {
	case "", "indexed":
		return IndexedArrays, nil
	case "bracket":
		return BracketArrays, nil
	default:
		return IndexedArrays, fmt.Errorf("unknown array style %q", s)
	}
}

func (s ArrayStyle) String() string {
	if s == BracketArrays {
		return "bracket"
	}
	return "indexed"
}

const (
	// DefaultTaskLimit размер страницы задач по умолчанию.
	DefaultTaskLimit = 200
	// DefaultListsStatus фильтр по статусу списков задач по умолчанию.
	DefaultListsStatus = "active"
	// DefaultOrderDirection направление сортировки по умолчанию.
	DefaultOrderDirection = "asc"
)

// TaskFilter структурированный фильтр списка задач.
type TaskFilter struct {
	Limit  int
	Offset int

	Statuses    []int
	ProjectIDs  []string
	AssigneeIDs []string
	CreatorIDs  []string

	DueFrom     string
	DueTo       string
	CreatedFrom string
	CreatedTo   string

	IncludeArchived bool
	ListsStatus     string

	// Поддерживается только одно поле сортировки.
	OrderBy        string
	OrderDirection string

	CustomFields bool
	Tags         bool
}

// Values переводит фильтр в query-параметры Freedcamp. limit, offset и
// lists_status присутствуют всегда, даже для пустого фильтра.
func (f TaskFilter) Values(style ArrayStyle) url.Values {
	v := url.Values{}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultTaskLimit
	}
	offset := max(f.Offset, 0)
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))

	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, strconv.Itoa(s))
	}
	addArray(v, style, "status", statuses)
	addArray(v, style, "project_id", f.ProjectIDs)
	addArray(v, style, "assigned_to_id", f.AssigneeIDs)
	addArray(v, style, "created_by_id", f.CreatorIDs)

	addRange(v, "due_date", f.DueFrom, f.DueTo)
	addRange(v, "created_date", f.CreatedFrom, f.CreatedTo)

	if f.IncludeArchived {
		v.Set("f_with_archived", "1")
	}

	listsStatus := f.ListsStatus
	if listsStatus == "" {
		listsStatus = DefaultListsStatus
	}
	v.Set("lists_status", listsStatus)

	if f.OrderBy != "" {
		dir := f.OrderDirection
		if dir == "" {
			dir = DefaultOrderDirection
		}
		v.Set("order["+f.OrderBy+"]", dir)
	}

	if f.CustomFields {
		v.Set("f_cf", "1")
	}
	if f.Tags {
		v.Set("f_include_tags", "1")
	}
	return v
}

func addArray(v url.Values, style ArrayStyle, key string, values []string) {
	for i, val := range values {
		if style == BracketArrays {
			v.Add(key+"[]", val)
			continue
		}
		v.Set(fmt.Sprintf("%s[%d]", key, i), val)
	}
}

func addRange(v url.Values, key, from, to string) {
	if from != "" {
		v.Set(key+"[from]", from)
	}
	if to != "" {
		v.Set(key+"[to]", to)
	}
}
