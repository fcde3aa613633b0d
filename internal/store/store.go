package store

import (
	"FileVaultBot/model"
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a token or batch id matches no record.
var ErrNotFound = errors.New("record not found")

// ErrEmptyBatch rejects persisting a batch without constituent files.
var ErrEmptyBatch = errors.New("batch has no files")

// Rediser is the slice of the redis client the store needs for its
// read-through cache.
type Rediser interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store is the record store backing files, batches and users. The cache is
// optional; without it lookups go straight to the database.
type Store struct {
	db       *gorm.DB
	cache    Rediser
	cacheTTL time.Duration
}

// New creates a Store. cache may be nil.
func New(db *gorm.DB, cache Rediser, cacheTTL time.Duration) *Store {
	return &Store{db: db, cache: cache, cacheTTL: cacheTTL}
}

func fileKey(token string) string   { return "file:" + token }
func batchKey(batchID string) string { return "batch:" + batchID }

// CreateFile persists a single-upload file record and returns its token.
func (s *Store) CreateFile(ctx context.Context, file *model.File) (string, error) {
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		return "", err
	}
	return file.Token, nil
}

// GetFile resolves a retrieval token to a file record.
func (s *Store) GetFile(ctx context.Context, token string) (*model.File, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, fileKey(token)).Result(); err == nil {
			var cached cachedFile
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				file := cached.toModel()
				return &file, nil
			}
		}
	}

	var file model.File
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cacheSet(ctx, fileKey(token), toCachedFile(&file))
	return &file, nil
}

// IncrementFileDownloads bumps the download counter of a file.
func (s *Store) IncrementFileDownloads(ctx context.Context, token string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"downloads":        gorm.Expr("downloads + 1"),
			"last_download_at": &now,
		}).Error
	if err != nil {
		return err
	}
	s.cacheDel(ctx, fileKey(token))
	return nil
}

// AddActiveDelivery records a copy outstanding in a requester's chat.
func (s *Store) AddActiveDelivery(ctx context.Context, token string, chatID int64, messageID int) error {
	var file model.File
	if err := s.db.WithContext(ctx).Select("id").Where("token = ?", token).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	delivery := model.ActiveDelivery{
		FileID:    file.ID,
		ChatID:    chatID,
		MessageID: messageID,
		SentAt:    time.Now(),
	}
	return s.db.WithContext(ctx).Create(&delivery).Error
}

// PullActiveDeliveries removes the delivery rows for the given chat messages
// and returns how many were cleared.
func (s *Store) PullActiveDeliveries(ctx context.Context, chatID int64, messageIDs []int) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("chat_id = ? AND message_id IN ?", chatID, messageIDs).
		Delete(&model.ActiveDelivery{})
	return res.RowsAffected, res.Error
}

// CreateBatch persists a batch and its constituent files in one transaction.
// The files keep their slice order as batch_seq.
func (s *Store) CreateBatch(ctx context.Context, batch *model.Batch, files []model.File) (string, error) {
	if len(files) == 0 {
		return "", ErrEmptyBatch
	}
	batch.TotalFiles = len(files)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Files").Create(batch).Error; err != nil {
			return err
		}
		for i := range files {
			files[i].BatchID = &batch.BatchID
			files[i].BatchSeq = i
			if err := tx.Create(&files[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return batch.BatchID, nil
}

// GetBatch resolves a batch id to the batch record with its files in
// stored (arrival) order.
func (s *Store) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, batchKey(batchID)).Result(); err == nil {
			var cached cachedBatch
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				batch := cached.toModel()
				return &batch, nil
			}
		}
	}

	var batch model.Batch
	err := s.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("batch_seq ASC")
		}).
		Where("batch_id = ?", batchID).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cacheSet(ctx, batchKey(batchID), toCachedBatch(&batch))
	return &batch, nil
}

// IncrementBatchDownloads bumps the download counter of a batch.
func (s *Store) IncrementBatchDownloads(ctx context.Context, batchID string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&model.Batch{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]interface{}{
			"downloads":        gorm.Expr("downloads + 1"),
			"last_download_at": &now,
		}).Error
	if err != nil {
		return err
	}
	s.cacheDel(ctx, batchKey(batchID))
	return nil
}

// UpsertUser records a user interaction, creating the row on first contact.
func (s *Store) UpsertUser(ctx context.Context, telegramID int64, userName string) error {
	now := time.Now()
	var user model.User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = model.User{
			TelegramID:   telegramID,
			UserName:     userName,
			JoinedAt:     now,
			LastActiveAt: now,
		}
		return s.db.WithContext(ctx).Create(&user).Error
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"user_name":      userName,
		"last_active_at": now,
	}).Error
}

// TouchUser refreshes a user's last-active timestamp.
func (s *Store) TouchUser(ctx context.Context, telegramID int64) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("telegram_id = ?", telegramID).
		Update("last_active_at", time.Now()).Error
}

// AllUserIDs returns every known Telegram user id, for broadcast fan-out.
func (s *Store) AllUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Pluck("telegram_id", &ids).Error
	return ids, err
}

// Stats is the aggregate snapshot behind /stats and the admin API.
type Stats struct {
	TotalFiles      int64 `json:"total_files"`
	TotalUsers      int64 `json:"total_users"`
	TotalBatches    int64 `json:"total_batches"`
	TotalSize       int64 `json:"total_size"`
	TotalDownloads  int64 `json:"total_downloads"`
	BatchDownloads  int64 `json:"batch_downloads"`
	AutoDeleteFiles int64 `json:"auto_delete_files"`
}

// GetStats aggregates counters across files, users and batches.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.File{}).Count(&stats.TotalFiles).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Batch{}).Count(&stats.TotalBatches).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.File{}).
		Select("COALESCE(SUM(size), 0)").Scan(&stats.TotalSize).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.File{}).
		Select("COALESCE(SUM(downloads), 0)").Scan(&stats.TotalDownloads).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Batch{}).
		Select("COALESCE(SUM(downloads), 0)").Scan(&stats.BatchDownloads).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.File{}).
		Where("auto_delete = ?", true).Count(&stats.AutoDeleteFiles).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecentFiles lists the newest file records for the admin API.
func (s *Store) RecentFiles(ctx context.Context, limit int) ([]model.File, error) {
	if limit <= 0 {
		limit = 20
	}
	var files []model.File
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&files).Error
	return files, err
}

// SetThumbObject records the MinIO object name of a mirrored thumbnail.
func (s *Store) SetThumbObject(ctx context.Context, token, objectName string) error {
	err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("token = ?", token).
		Update("thumb_object", objectName).Error
	if err != nil {
		return err
	}
	s.cacheDel(ctx, fileKey(token))
	return nil
}

func (s *Store) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		log.Printf("cache set %s failed: %v", key, err)
	}
}

func (s *Store) cacheDel(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		log.Printf("cache del %s failed: %v", key, err)
	}
}
