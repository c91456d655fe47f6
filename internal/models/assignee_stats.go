package models

// AssigneeStats сводка открытых задач по исполнителю.
type AssigneeStats struct {
	Name           string
	NotStarted     int
	InProgress     int
	Overdue        int
	DueSoon        int
	CompletedToday int
}
