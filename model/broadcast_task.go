package model

import "time"

type BroadcastTask struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	AdminID int64 `gorm:"column:admin_id;not null;index" json:"admin_id"`

	// Source message the broadcast copies to every known user.
	FromChatID int64 `gorm:"column:from_chat_id;not null" json:"-"`
	MessageID  int   `gorm:"column:message_id;not null" json:"-"`

	Status string `gorm:"column:status;size:16;not null;default:'pending'" json:"status"`

	Total   int `gorm:"column:total;not null;default:0" json:"total"`
	Success int `gorm:"column:success;not null;default:0" json:"success"`
	Failed  int `gorm:"column:failed;not null;default:0" json:"failed"`

	ErrorMsg string `gorm:"column:error_msg;size:512;not null;default:''" json:"error_msg,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

// TableName returns the database table name.
func (BroadcastTask) TableName() string {
	return "broadcast_task"
}
