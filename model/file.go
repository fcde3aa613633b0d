package model

import "time"

type File struct {
	ID uint64 `gorm:"primaryKey" json:"id,omitempty"`

	// Token is the only identifier ever exposed in deep links.
	Token string `gorm:"column:token;size:64;uniqueIndex;not null" json:"token"`

	TelegramFileID string `gorm:"column:telegram_file_id;size:255;not null" json:"-"`

	Name string `gorm:"column:name;size:255;not null" json:"name"`
	Size int64  `gorm:"column:size;not null" json:"size"`
	Kind string `gorm:"column:kind;size:16;not null" json:"kind"`

	UploaderID int64 `gorm:"column:uploader_id;not null;index" json:"uploader_id"`

	// ChannelMessageID addresses the stored copy in the storage channel.
	ChannelMessageID int `gorm:"column:channel_message_id;not null" json:"-"`

	Downloads      uint64     `gorm:"column:downloads;not null;default:0" json:"downloads"`
	LastDownloadAt *time.Time `gorm:"column:last_download_at" json:"last_download_at,omitempty"`

	AutoDelete        bool `gorm:"column:auto_delete;not null;default:false" json:"auto_delete"`
	AutoDeleteMinutes int  `gorm:"column:auto_delete_minutes;not null;default:0" json:"auto_delete_minutes"`

	BatchID  *string `gorm:"column:batch_id;size:64;index" json:"batch_id,omitempty"`
	BatchSeq int     `gorm:"column:batch_seq;not null;default:0" json:"batch_seq"`

	// ThumbObject is the MinIO object holding the mirrored thumbnail, if any.
	ThumbObject string `gorm:"column:thumb_object;size:512;not null;default:''" json:"-"`

	ActiveDeliveries []ActiveDelivery `gorm:"foreignKey:FileID;references:ID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (File) TableName() string {
	return "file"
}

// ActiveDelivery tracks a copy of a stored file currently outstanding in a
// requester's chat, so a fired deletion can clear its bookkeeping.
type ActiveDelivery struct {
	ID uint64 `gorm:"primaryKey"`

	FileID uint64 `gorm:"column:file_id;not null;index"`

	ChatID    int64 `gorm:"column:chat_id;not null"`
	MessageID int   `gorm:"column:message_id;not null"`

	SentAt time.Time `gorm:"column:sent_at;not null"`
}

// TableName returns the database table name.
func (ActiveDelivery) TableName() string {
	return "active_delivery"
}
