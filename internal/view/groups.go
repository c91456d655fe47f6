package view

import "github.com/DevN0mad/FreedcampMCP/internal/models"

// ProjectGroup проекты одной группы.
type ProjectGroup struct {
	GroupName string `json:"group_name"`
	Count     int    `json:"count"`
	Projects  any    `json:"projects"`
}

// GroupProjects группирует проекты по group_name в порядке первого появления группы.
// Нормализатор уже подставил "Ungrouped" туда, где группы нет.
func GroupProjects(mode Mode, projects []models.Project) []ProjectGroup {
	var order []string
	byName := make(map[string][]models.Project)
	for _, p := range projects {
		name := p.GroupName
		if name == "" {
			name = models.UngroupedName
		}
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = append(byName[name], p)
	}

	groups := make([]ProjectGroup, 0, len(order))
	for _, name := range order {
		items := byName[name]
		groups = append(groups, ProjectGroup{
			GroupName: name,
			Count:     len(items),
			Projects:  Projects(mode, items),
		})
	}
	return groups
}
