package models

import "time"

// CallRecord запись журнала вызовов инструментов. Данные сущностей сюда не пишутся.
type CallRecord struct {
	ID         uint      `gorm:"column:id;primaryKey" db:"id"`
	CallID     string    `gorm:"column:call_id;uniqueIndex;not null" db:"call_id"`
	Tool       string    `gorm:"column:tool;index;not null" db:"tool"`
	Transport  string    `gorm:"column:transport;not null" db:"transport"`
	Success    bool      `gorm:"column:success;not null" db:"success"`
	Category   string    `gorm:"column:category" db:"category"`
	Error      string    `gorm:"column:error" db:"error"`
	DurationMS int64     `gorm:"column:duration_ms" db:"duration_ms"`
	CalledAt   time.Time `gorm:"column:called_at;index" db:"called_at"`
}

func (CallRecord) TableName() string {
	return "tool_calls"
}
