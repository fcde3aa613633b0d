package worker

import (
	"FileVaultBot/config"
	"FileVaultBot/internal/mq"
	"FileVaultBot/internal/repo"
	"FileVaultBot/internal/store"
	"FileVaultBot/internal/task"
	"FileVaultBot/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type dlqMessage struct {
	TaskID   uint64    `json:"task_id"`
	Attempt  int       `json:"attempt"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// RunBroadcastWorker consumes broadcast tasks from RabbitMQ and fans each
// one out to every known user, rate limited.
func RunBroadcastWorker(ctx context.Context, bot *tgbotapi.BotAPI, st *store.Store) error {
	client, err := mq.Dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}

	prefetch := config.AppConfig.RabbitMQPrefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		mq.QueueTasks,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	concurrency := config.AppConfig.BroadcastWorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	burst := config.AppConfig.BroadcastBurst
	if burst <= 0 {
		burst = 1
	}
	rateLimit := config.AppConfig.BroadcastRate
	var limiter *rate.Limiter
	if rateLimit <= 0 {
		limiter = rate.NewLimiter(rate.Inf, burst)
	} else {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("broadcast worker: delivery channel closed")
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleBroadcastMessage(ctx, client, bot, st, limiter, d)
			}(delivery)
		}
	}
}

func handleBroadcastMessage(ctx context.Context, client *mq.Client, bot *tgbotapi.BotAPI, st *store.Store, limiter *rate.Limiter, delivery amqp.Delivery) {
	var msg task.BroadcastMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		log.Printf("broadcast worker: invalid message: %v", err)
		_ = delivery.Ack(false)
		return
	}

	if err := processBroadcastTask(ctx, bot, st, limiter, msg.TaskID); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = delivery.Nack(false, true)
			return
		}
		if shouldRetry(err) {
			if err := scheduleRetry(ctx, client, msg, err); err != nil {
				log.Printf("broadcast worker: retry schedule failed: %v", err)
				_ = delivery.Nack(false, true)
				return
			}
		} else {
			if err := markFailed(ctx, client, msg, err); err != nil {
				log.Printf("broadcast worker: mark failed failed: %v", err)
				_ = delivery.Nack(false, true)
				return
			}
		}
	}

	_ = delivery.Ack(false)
}

// processBroadcastTask copies the task's source message to every user.
// Per-user failures (blocked bot, deleted account) are tallied, not raised.
func processBroadcastTask(ctx context.Context, bot *tgbotapi.BotAPI, st *store.Store, limiter *rate.Limiter, taskID uint64) error {
	var bt model.BroadcastTask
	if err := repo.Db.Where("id = ?", taskID).First(&bt).Error; err != nil {
		return err
	}
	if bt.Status == "completed" {
		return nil
	}
	startedAt := time.Now()
	res := repo.Db.Model(&model.BroadcastTask{}).
		Where("id = ? AND status IN ?", taskID, []string{"pending", "retrying"}).
		Updates(map[string]interface{}{
			"status":     "running",
			"started_at": &startedAt,
			"error_msg":  "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	userIDs, err := st.AllUserIDs(ctx)
	if err != nil {
		return err
	}

	success, failed := 0, 0
	for _, userID := range userIDs {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := bot.CopyMessage(tgbotapi.NewCopyMessage(userID, bt.FromChatID, bt.MessageID))
		if err != nil {
			failed++
			continue
		}
		success++
	}

	finishedAt := time.Now()
	if err := repo.Db.Model(&bt).Updates(map[string]interface{}{
		"status":      "completed",
		"total":       len(userIDs),
		"success":     success,
		"failed":      failed,
		"finished_at": &finishedAt,
	}).Error; err != nil {
		return err
	}

	summary := fmt.Sprintf(
		"✅ *Broadcast Completed*\n\n✓ Success: %d\n× Failed: %d\n📊 Total: %d",
		success, failed, len(userIDs))
	reply := tgbotapi.NewMessage(bt.FromChatID, summary)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(reply); err != nil {
		log.Printf("broadcast worker: summary message failed: %v", err)
	}
	return nil
}

func shouldRetry(err error) bool {
	return !errors.Is(err, gorm.ErrRecordNotFound)
}

func scheduleRetry(ctx context.Context, client *mq.Client, msg task.BroadcastMessage, procErr error) error {
	maxRetry := config.AppConfig.BroadcastRetryMax
	if msg.Attempt >= maxRetry {
		return markFailed(ctx, client, msg, procErr)
	}

	delays := config.AppConfig.BroadcastRetryDelays
	delay := time.Minute
	if len(delays) > 0 {
		idx := msg.Attempt
		if idx >= len(delays) {
			idx = len(delays) - 1
		}
		delay = delays[idx]
	}

	retryMsg := task.BroadcastMessage{
		TaskID:  msg.TaskID,
		Attempt: msg.Attempt + 1,
	}
	body, err := json.Marshal(retryMsg)
	if err != nil {
		return err
	}

	_ = repo.Db.Model(&model.BroadcastTask{}).
		Where("id = ?", msg.TaskID).
		Updates(map[string]interface{}{
			"status":    "retrying",
			"error_msg": procErr.Error(),
		}).Error

	return client.PublishRetry(ctx, body, delay)
}

func markFailed(ctx context.Context, client *mq.Client, msg task.BroadcastMessage, procErr error) error {
	finishedAt := time.Now()
	_ = repo.Db.Model(&model.BroadcastTask{}).
		Where("id = ?", msg.TaskID).
		Updates(map[string]interface{}{
			"status":      "failed",
			"error_msg":   procErr.Error(),
			"finished_at": &finishedAt,
		}).Error

	dlq := dlqMessage{
		TaskID:   msg.TaskID,
		Attempt:  msg.Attempt,
		Error:    procErr.Error(),
		FailedAt: time.Now(),
	}
	body, err := json.Marshal(dlq)
	if err != nil {
		return err
	}
	return client.PublishDLQ(ctx, body)
}
