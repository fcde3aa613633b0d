package store

import (
	"FileVaultBot/model"
	"time"
)

// The gorm models carry JSON tags shaped for the admin API, which hide the
// channel addressing fields. The cache must keep every field, so records go
// through these dedicated encodings instead of the API-facing ones.

type cachedFile struct {
	ID               uint64     `json:"id"`
	Token            string     `json:"token"`
	TelegramFileID   string     `json:"telegram_file_id"`
	Name             string     `json:"name"`
	Size             int64      `json:"size"`
	Kind             string     `json:"kind"`
	UploaderID       int64      `json:"uploader_id"`
	ChannelMessageID int        `json:"channel_message_id"`
	Downloads        uint64     `json:"downloads"`
	LastDownloadAt   *time.Time `json:"last_download_at,omitempty"`
	AutoDelete       bool       `json:"auto_delete"`
	AutoDeleteMin    int        `json:"auto_delete_minutes"`
	BatchID          *string    `json:"batch_id,omitempty"`
	BatchSeq         int        `json:"batch_seq"`
	ThumbObject      string     `json:"thumb_object"`
	CreatedAt        time.Time  `json:"created_at"`
}

type cachedBatch struct {
	ID             uint64       `json:"id"`
	BatchID        string       `json:"batch_id"`
	CreatorID      int64        `json:"creator_id"`
	TotalFiles     int          `json:"total_files"`
	Description    string       `json:"description"`
	Status         int          `json:"status"`
	Downloads      uint64       `json:"downloads"`
	LastDownloadAt *time.Time   `json:"last_download_at,omitempty"`
	AutoDelete     bool         `json:"auto_delete"`
	AutoDeleteMin  int          `json:"auto_delete_minutes"`
	Files          []cachedFile `json:"files"`
	CreatedAt      time.Time    `json:"created_at"`
}

func toCachedFile(f *model.File) cachedFile {
	return cachedFile{
		ID:               f.ID,
		Token:            f.Token,
		TelegramFileID:   f.TelegramFileID,
		Name:             f.Name,
		Size:             f.Size,
		Kind:             f.Kind,
		UploaderID:       f.UploaderID,
		ChannelMessageID: f.ChannelMessageID,
		Downloads:        f.Downloads,
		LastDownloadAt:   f.LastDownloadAt,
		AutoDelete:       f.AutoDelete,
		AutoDeleteMin:    f.AutoDeleteMinutes,
		BatchID:          f.BatchID,
		BatchSeq:         f.BatchSeq,
		ThumbObject:      f.ThumbObject,
		CreatedAt:        f.CreatedAt,
	}
}

func (c cachedFile) toModel() model.File {
	return model.File{
		ID:                c.ID,
		Token:             c.Token,
		TelegramFileID:    c.TelegramFileID,
		Name:              c.Name,
		Size:              c.Size,
		Kind:              c.Kind,
		UploaderID:        c.UploaderID,
		ChannelMessageID:  c.ChannelMessageID,
		Downloads:         c.Downloads,
		LastDownloadAt:    c.LastDownloadAt,
		AutoDelete:        c.AutoDelete,
		AutoDeleteMinutes: c.AutoDeleteMin,
		BatchID:           c.BatchID,
		BatchSeq:          c.BatchSeq,
		ThumbObject:       c.ThumbObject,
		CreatedAt:         c.CreatedAt,
	}
}

func toCachedBatch(b *model.Batch) cachedBatch {
	files := make([]cachedFile, len(b.Files))
	for i := range b.Files {
		files[i] = toCachedFile(&b.Files[i])
	}
	return cachedBatch{
		ID:             b.ID,
		BatchID:        b.BatchID,
		CreatorID:      b.CreatorID,
		TotalFiles:     b.TotalFiles,
		Description:    b.Description,
		Status:         b.Status,
		Downloads:      b.Downloads,
		LastDownloadAt: b.LastDownloadAt,
		AutoDelete:     b.AutoDelete,
		AutoDeleteMin:  b.AutoDeleteMinutes,
		Files:          files,
		CreatedAt:      b.CreatedAt,
	}
}

func (c cachedBatch) toModel() model.Batch {
	files := make([]model.File, len(c.Files))
	for i := range c.Files {
		files[i] = c.Files[i].toModel()
	}
	return model.Batch{
		ID:                c.ID,
		BatchID:           c.BatchID,
		CreatorID:         c.CreatorID,
		TotalFiles:        c.TotalFiles,
		Description:       c.Description,
		Status:            c.Status,
		Downloads:         c.Downloads,
		LastDownloadAt:    c.LastDownloadAt,
		AutoDelete:        c.AutoDelete,
		AutoDeleteMinutes: c.AutoDeleteMin,
		Files:             files,
		CreatedAt:         c.CreatedAt,
	}
}
