package view

import "github.com/DevN0mad/FreedcampMCP/internal/models"

// Pagination метаданные страницы списка.
type Pagination struct {
	Showing    int  `json:"showing"`
	Total      int  `json:"total"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	HasMore    bool `json:"has_more"`
	NextOffset *int `json:"next_offset,omitempty"`
}

// NewPagination считает пагинацию. declaredTotal это total из meta ответа;
// если его нет, total равен числу полученных записей.
func NewPagination(offset, limit, returned int, declaredTotal *int) Pagination {
	offset = max(offset, 0)
	limit = max(limit, 0)

	total := returned
	if declaredTotal != nil && *declaredTotal >= 0 {
		total = *declaredTotal
	}

	p := Pagination{
		Showing: returned,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+limit < total,
	}
	if p.HasMore {
		next := offset + limit
		p.NextOffset = &next
	}
	return p
}

// DeclaredTotal достает total из meta, если upstream его прислал.
func DeclaredTotal(meta *models.Meta) *int {
	if meta == nil || !meta.Total.Set || !meta.Total.Valid {
		return nil
	}
	total := int(meta.Total.Value)
	return &total
}
