// Package autodelete removes delivered copies from requester chats after a
// configured delay. Scheduling is fire-and-forget: nothing is persisted, no
// caller is ever notified of deletion failures, and a process restart drops
// pending deletions (the stored originals are unaffected).
package autodelete

import (
	"context"
	"log"
	"sync"
	"time"
)

// Deleter is the single delivery-channel operation the scheduler needs.
type Deleter interface {
	DeleteMessage(chatID int64, messageID int) error
}

// DeliveryStore clears active-delivery bookkeeping once copies are gone.
// Optional; nil disables the pull.
type DeliveryStore interface {
	PullActiveDeliveries(ctx context.Context, chatID int64, messageIDs []int) (int64, error)
}

// Scheduler owns the pending one-shot deletion timers. There is no way to
// cancel an individual registration; Stop discards everything at shutdown.
type Scheduler struct {
	deleter Deleter
	store   DeliveryStore

	mu      sync.Mutex
	seq     uint64
	timers  map[uint64]*time.Timer
	stopped bool
}

// New creates a Scheduler. store may be nil.
func New(deleter Deleter, store DeliveryStore) *Scheduler {
	return &Scheduler{
		deleter: deleter,
		store:   store,
		timers:  make(map[uint64]*time.Timer),
	}
}

// Schedule arms a one-shot deletion of the given messages after delay.
// It never blocks and never reports errors; the delay is a lower bound.
func (s *Scheduler) Schedule(correlationID string, chatID int64, messageIDs []int, delay time.Duration) {
	if len(messageIDs) == 0 {
		return
	}
	ids := make([]int, len(messageIDs))
	copy(ids, messageIDs)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		log.Printf("autodelete: scheduler stopped, dropping %s", correlationID)
		return
	}
	s.seq++
	key := s.seq
	s.timers[key] = time.AfterFunc(delay, func() {
		s.fire(key, correlationID, chatID, ids)
	})
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop discards all pending timers. Deletions that have not fired are lost.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *Scheduler) fire(key uint64, correlationID string, chatID int64, messageIDs []int) {
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	deleted := make([]int, 0, len(messageIDs))
	for _, messageID := range messageIDs {
		if err := s.deleter.DeleteMessage(chatID, messageID); err != nil {
			// Already-deleted messages land here; best effort only.
			log.Printf("autodelete: delete %d in chat %d failed (%s): %v",
				messageID, chatID, correlationID, err)
			continue
		}
		deleted = append(deleted, messageID)
	}

	if s.store != nil && len(deleted) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.store.PullActiveDeliveries(ctx, chatID, deleted); err != nil {
			log.Printf("autodelete: pull deliveries failed (%s): %v", correlationID, err)
		}
	}
}
