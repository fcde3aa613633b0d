package model

import "time"

const (
	BatchStatusActive = 0
	// BatchStatusExpired is reserved; nothing transitions a batch to it yet.
	BatchStatusExpired = 1
)

type Batch struct {
	ID uint64 `gorm:"primaryKey" json:"id,omitempty"`

	BatchID string `gorm:"column:batch_id;size:64;uniqueIndex;not null" json:"batch_id"`

	CreatorID int64 `gorm:"column:creator_id;not null;index" json:"creator_id"`

	TotalFiles  int    `gorm:"column:total_files;not null" json:"total_files"`
	Description string `gorm:"column:description;size:1024;not null;default:''" json:"description"`

	Status int `gorm:"column:status;not null;default:0" json:"status"`

	Downloads      uint64     `gorm:"column:downloads;not null;default:0" json:"downloads"`
	LastDownloadAt *time.Time `gorm:"column:last_download_at" json:"last_download_at,omitempty"`

	AutoDelete        bool `gorm:"column:auto_delete;not null;default:false" json:"auto_delete"`
	AutoDeleteMinutes int  `gorm:"column:auto_delete_minutes;not null;default:0" json:"auto_delete_minutes"`

	Files []File `gorm:"foreignKey:BatchID;references:BatchID" json:"files,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Batch) TableName() string {
	return "batch"
}
