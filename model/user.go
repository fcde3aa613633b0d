package model

import "time"

type User struct {
	ID uint64 `gorm:"primaryKey"`

	TelegramID int64 `gorm:"column:telegram_id;not null;uniqueIndex"`

	UserName string `gorm:"column:user_name;size:64;not null;default:''"`

	JoinedAt     time.Time `gorm:"column:joined_at;not null"`
	LastActiveAt time.Time `gorm:"column:last_active_at;not null"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "bot_user"
}
