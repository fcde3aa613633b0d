package autodelete

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []int
	fail    map[int]bool
	done    chan struct{}
	expect  int
}

func newFakeDeleter(expect int) *fakeDeleter {
	return &fakeDeleter{
		fail:   make(map[int]bool),
		done:   make(chan struct{}),
		expect: expect,
	}
}

func (f *fakeDeleter) DeleteMessage(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.fail[messageID] {
		err = errors.New("message not found")
	} else {
		f.deleted = append(f.deleted, messageID)
	}
	f.expect--
	if f.expect == 0 {
		close(f.done)
	}
	return err
}

func (f *fakeDeleter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("deletion never fired")
	}
}

type fakeDeliveryStore struct {
	mu     sync.Mutex
	pulled [][]int
}

func (f *fakeDeliveryStore) PullActiveDeliveries(ctx context.Context, chatID int64, messageIDs []int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, messageIDs)
	return int64(len(messageIDs)), nil
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	del := newFakeDeleter(2)
	st := &fakeDeliveryStore{}
	s := New(del, st)
	defer s.Stop()

	start := time.Now()
	delay := 50 * time.Millisecond
	s.Schedule("file:tok", 10, []int{1, 2}, delay)
	if s.Pending() != 1 {
		t.Fatalf("pending: got %d, want 1", s.Pending())
	}

	del.wait(t)
	// The delay is a lower bound.
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("fired after %v, before the %v delay", elapsed, delay)
	}

	del.mu.Lock()
	n := len(del.deleted)
	del.mu.Unlock()
	if n != 2 {
		t.Fatalf("deleted: got %d, want 2", n)
	}
}

func TestScheduleAttemptsAllDespiteFailures(t *testing.T) {
	del := newFakeDeleter(3)
	del.fail[2] = true
	st := &fakeDeliveryStore{}
	s := New(del, st)
	defer s.Stop()

	s.Schedule("batch:b1", 10, []int{1, 2, 3}, time.Millisecond)
	del.wait(t)

	del.mu.Lock()
	deleted := append([]int(nil), del.deleted...)
	del.mu.Unlock()
	if len(deleted) != 2 || deleted[0] != 1 || deleted[1] != 3 {
		t.Fatalf("deleted: %v", deleted)
	}

	// Only the actually deleted copies get their bookkeeping pulled.
	deadline := time.After(5 * time.Second)
	for {
		st.mu.Lock()
		n := len(st.pulled)
		st.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("deliveries never pulled")
		case <-time.After(5 * time.Millisecond):
		}
	}
	st.mu.Lock()
	pulled := st.pulled[0]
	st.mu.Unlock()
	if len(pulled) != 2 {
		t.Fatalf("pulled: %v", pulled)
	}
}

func TestScheduleNeverBlocks(t *testing.T) {
	s := New(newFakeDeleter(0), nil)
	defer s.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Schedule("file:x", 10, []int{i + 1}, time.Hour)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Schedule blocked")
	}
	if s.Pending() != 100 {
		t.Fatalf("pending: got %d, want 100", s.Pending())
	}
}

func TestStopDiscardsPending(t *testing.T) {
	del := newFakeDeleter(1)
	s := New(del, nil)

	s.Schedule("file:x", 10, []int{1}, time.Hour)
	s.Stop()
	if s.Pending() != 0 {
		t.Fatalf("pending after stop: got %d", s.Pending())
	}

	// New registrations after Stop are dropped.
	s.Schedule("file:y", 10, []int{2}, time.Millisecond)
	if s.Pending() != 0 {
		t.Fatal("scheduler accepted work after Stop")
	}
}

func TestScheduleEmptyIsNoop(t *testing.T) {
	s := New(newFakeDeleter(0), nil)
	defer s.Stop()
	s.Schedule("file:x", 10, nil, time.Millisecond)
	if s.Pending() != 0 {
		t.Fatal("empty schedule armed a timer")
	}
}
