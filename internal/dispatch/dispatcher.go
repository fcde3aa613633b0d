// Package dispatch resolves deep-link payloads to stored files or batches
// and re-delivers them to the requester's chat.
package dispatch

import (
	"FileVaultBot/internal/channel"
	"FileVaultBot/internal/store"
	"FileVaultBot/model"
	"FileVaultBot/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotSubscribed is returned when the force-subscribe gate rejects the
// requester before any lookup happens.
var ErrNotSubscribed = errors.New("requester not subscribed to required channel")

// RecordStore is the slice of the record store the dispatcher consumes.
type RecordStore interface {
	GetFile(ctx context.Context, token string) (*model.File, error)
	IncrementFileDownloads(ctx context.Context, token string) error
	AddActiveDelivery(ctx context.Context, token string, chatID int64, messageID int) error
	GetBatch(ctx context.Context, batchID string) (*model.Batch, error)
	IncrementBatchDownloads(ctx context.Context, batchID string) error
}

// DeletionScheduler registers deferred deletions of delivered copies.
type DeletionScheduler interface {
	Schedule(correlationID string, chatID int64, messageIDs []int, delay time.Duration)
}

// Result tallies one retrieval. For batches, Attempted always equals the
// stored file count; per-item failures never abort the run.
type Result struct {
	Attempted int
	Delivered int
	Failed    int
}

type Dispatcher struct {
	Store     RecordStore
	Channel   channel.Channel
	Scheduler DeletionScheduler

	// Pace bounds the per-item delivery rate inside a batch. Mandatory:
	// the platform throttles unpaced bulk sends.
	Pace *rate.Limiter

	// ForceSubChannelID gates retrieval when non-zero.
	ForceSubChannelID int64

	// DefaultAutoDelete supplies the fallback auto-delete minutes for
	// batches without their own setting. Zero disables the fallback.
	DefaultAutoDelete func() int
}

// New wires a dispatcher with the given pacing limiter.
func New(st RecordStore, ch channel.Channel, sched DeletionScheduler, pace *rate.Limiter) *Dispatcher {
	return &Dispatcher{
		Store:     st,
		Channel:   ch,
		Scheduler: sched,
		Pace:      pace,
	}
}

// Resolve handles a deep-link payload for the given requester. The gate
// check runs first, always; then the payload picks the single-file or batch
// path by prefix.
func (d *Dispatcher) Resolve(ctx context.Context, userID, chatID int64, payload string) (*Result, error) {
	if d.ForceSubChannelID != 0 {
		ok, err := d.Channel.IsChannelMember(d.ForceSubChannelID, userID)
		if err != nil {
			// Unknown members surface as errors from the platform.
			log.Printf("dispatch: membership check for %d failed: %v", userID, err)
			return nil, ErrNotSubscribed
		}
		if !ok {
			return nil, ErrNotSubscribed
		}
	}

	if batchID, ok := strings.CutPrefix(payload, utils.BatchPrefix); ok {
		return d.deliverBatch(ctx, chatID, batchID)
	}
	return d.deliverFile(ctx, chatID, payload)
}

func (d *Dispatcher) deliverFile(ctx context.Context, chatID int64, token string) (*Result, error) {
	file, err := d.Store.GetFile(ctx, token)
	if err != nil {
		return nil, err
	}

	messageID, err := d.Channel.CopyFromChannel(file.ChannelMessageID, chatID)
	if err != nil {
		return &Result{Attempted: 1, Failed: 1}, fmt.Errorf("deliver file %s: %w", token, err)
	}

	if err := d.Store.IncrementFileDownloads(ctx, token); err != nil {
		log.Printf("dispatch: increment downloads for %s failed: %v", token, err)
	}
	if err := d.Store.AddActiveDelivery(ctx, token, chatID, messageID); err != nil {
		log.Printf("dispatch: record delivery for %s failed: %v", token, err)
	}

	if file.AutoDelete && file.AutoDeleteMinutes > 0 {
		handles := []int{messageID}
		noticeID, err := d.Channel.SendMessage(chatID, autoDeleteNotice(file.AutoDeleteMinutes))
		if err != nil {
			log.Printf("dispatch: auto-delete notice failed for %s: %v", token, err)
		} else {
			handles = append(handles, noticeID)
		}
		d.Scheduler.Schedule("file:"+token, chatID, handles,
			time.Duration(file.AutoDeleteMinutes)*time.Minute)
	}

	return &Result{Attempted: 1, Delivered: 1}, nil
}

func (d *Dispatcher) deliverBatch(ctx context.Context, chatID int64, batchID string) (*Result, error) {
	batch, err := d.Store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(batch.Files) == 0 {
		// Finalize never persists an empty batch; defensive only.
		return nil, store.ErrEmptyBatch
	}

	progressID, err := d.Channel.SendMessage(chatID, batchStartedText(batch))
	if err != nil {
		log.Printf("dispatch: progress message failed for batch %s: %v", batchID, err)
	}

	res := &Result{}
	delivered := make([]int, 0, len(batch.Files))
	// Stored order, strictly sequential: progress reporting and pacing both
	// depend on it.
	for _, file := range batch.Files {
		if d.Pace != nil {
			if err := d.Pace.Wait(ctx); err != nil {
				return res, err
			}
		}
		res.Attempted++
		messageID, err := d.Channel.CopyFromChannel(file.ChannelMessageID, chatID)
		if err != nil {
			res.Failed++
			log.Printf("dispatch: batch %s item %s failed: %v", batchID, file.Token, err)
			continue
		}
		res.Delivered++
		delivered = append(delivered, messageID)
	}

	// Exactly one increment per retrieval, whatever the per-item outcomes.
	if err := d.Store.IncrementBatchDownloads(ctx, batchID); err != nil {
		log.Printf("dispatch: increment batch downloads for %s failed: %v", batchID, err)
	}

	if progressID != 0 {
		if err := d.Channel.EditMessage(chatID, progressID, batchFinishedText(batch, res)); err != nil {
			log.Printf("dispatch: progress update failed for batch %s: %v", batchID, err)
		}
	}

	if res.Delivered > 0 {
		if minutes := d.batchAutoDeleteMinutes(batch); minutes > 0 {
			handles := delivered
			if progressID != 0 {
				handles = append(handles, progressID)
			}
			d.Scheduler.Schedule("batch:"+batchID, chatID, handles,
				time.Duration(minutes)*time.Minute)
		}
	}

	return res, nil
}

// batchAutoDeleteMinutes resolves the effective auto-delete time. A batch
// with an explicit setting (AutoDelete=true) uses it, zero meaning opted
// out; an untouched batch inherits the runtime default.
func (d *Dispatcher) batchAutoDeleteMinutes(batch *model.Batch) int {
	if batch.AutoDelete && batch.AutoDeleteMinutes > 0 {
		return batch.AutoDeleteMinutes
	}
	if batch.AutoDelete {
		return 0
	}
	if d.DefaultAutoDelete != nil {
		return d.DefaultAutoDelete()
	}
	return 0
}

func autoDeleteNotice(minutes int) string {
	return fmt.Sprintf(
		"⏳ *Auto-Delete Information*\n\n"+
			"This file will be automatically deleted in %d minutes.\n"+
			"💡 Save it to your saved messages before then!", minutes)
}

func batchStartedText(batch *model.Batch) string {
	desc := batch.Description
	if desc == "" {
		desc = "not provided"
	}
	return fmt.Sprintf(
		"📦 *Batch Download Started*\n\n"+
			"• Total files: `%d`\n"+
			"• Description: %s\n\n"+
			"⬇️ Sending files...", batch.TotalFiles, desc)
}

func batchFinishedText(batch *model.Batch, res *Result) string {
	return fmt.Sprintf(
		"✅ *Batch Download Completed*\n\n"+
			"• Sent: %d/%d files\n\n"+
			"💡 Save important files to your saved messages!",
		res.Delivered, batch.TotalFiles)
}
