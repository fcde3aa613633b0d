package task

import (
	"FileVaultBot/internal/mq"
	"FileVaultBot/internal/repo"
	"FileVaultBot/model"
	"context"
	"encoding/json"
	"time"
)

// BroadcastMessage is the payload sent to the worker.
type BroadcastMessage struct {
	TaskID  uint64 `json:"task_id"`
	Attempt int    `json:"attempt"`
}

// CreateBroadcastTask records a broadcast and enqueues it for the worker.
// The source message is the one the admin replied to.
func CreateBroadcastTask(adminID, fromChatID int64, messageID int) (*model.BroadcastTask, error) {
	task := &model.BroadcastTask{
		AdminID:    adminID,
		FromChatID: fromChatID,
		MessageID:  messageID,
		Status:     "pending",
	}
	if err := repo.Db.Create(task).Error; err != nil {
		return nil, err
	}
	msg := BroadcastMessage{
		TaskID:  task.ID,
		Attempt: 0,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		markBroadcastTaskFailed(task.ID, err)
		return nil, err
	}
	publisher, err := mq.GetPublisher()
	if err != nil {
		markBroadcastTaskFailed(task.ID, err)
		return nil, err
	}
	if err := publisher.PublishTask(context.Background(), body); err != nil {
		markBroadcastTaskFailed(task.ID, err)
		return nil, err
	}
	return task, nil
}

// ListBroadcastTasks lists recent broadcast tasks for the admin API.
func ListBroadcastTasks(limit int) ([]model.BroadcastTask, error) {
	if limit <= 0 {
		limit = 20
	}
	var tasks []model.BroadcastTask
	err := repo.Db.Order("created_at DESC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func markBroadcastTaskFailed(taskID uint64, err error) {
	finishedAt := time.Now()
	_ = repo.Db.Model(&model.BroadcastTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":      "failed",
			"error_msg":   err.Error(),
			"finished_at": &finishedAt,
		}).Error
}
