package session

import (
	"FileVaultBot/internal/media"
	"FileVaultBot/model"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeChannel struct {
	mu          sync.Mutex
	nextMsgID   int
	forwarded   []int
	forwardErr  error
	deleted     []int
	sent        []string
	edited      []string
}

func (f *fakeChannel) ForwardIntoChannel(fromChatID int64, messageID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return 0, f.forwardErr
	}
	f.nextMsgID++
	f.forwarded = append(f.forwarded, messageID)
	return 1000 + f.nextMsgID, nil
}

func (f *fakeChannel) CopyFromChannel(channelMessageID int, targetChatID int64) (int, error) {
	return 0, errors.New("not used")
}

func (f *fakeChannel) DeleteMessage(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChannel) EditMessage(chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, text)
	return nil
}

func (f *fakeChannel) SendMessage(chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	f.sent = append(f.sent, text)
	return f.nextMsgID, nil
}

func (f *fakeChannel) IsChannelMember(channelID, userID int64) (bool, error) {
	return true, nil
}

type fakeBatchStore struct {
	mu      sync.Mutex
	err     error
	batches []*model.Batch
	files   [][]model.File
}

func (f *fakeBatchStore) CreateBatch(ctx context.Context, batch *model.Batch, files []model.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.batches = append(f.batches, batch)
	f.files = append(f.files, files)
	return batch.BatchID, nil
}

func desc(name string) media.Descriptor {
	return media.Descriptor{
		Kind:           media.KindDocument,
		TelegramFileID: "tg-" + name,
		Name:           name,
		Size:           1024,
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	m := NewManager(&fakeChannel{}, &fakeBatchStore{}, 0)
	if _, err := m.Start(1, 10); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := m.Start(1, 10); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second start: got %v, want ErrSessionActive", err)
	}
	// A different owner is unaffected.
	if _, err := m.Start(2, 20); err != nil {
		t.Fatalf("other owner start: %v", err)
	}
	if n := m.ActiveCount(); n != 2 {
		t.Fatalf("active count: got %d, want 2", n)
	}
}

func TestFinalizeKeepsArrivalOrder(t *testing.T) {
	st := &fakeBatchStore{}
	m := NewManager(&fakeChannel{}, st, 0)
	if _, err := m.Start(1, 10); err != nil {
		t.Fatal(err)
	}

	names := []string{"a.pdf", "b.mkv", "c.zip"}
	for i, name := range names {
		if _, err := m.AddFile(1, 10, 100+i, desc(name)); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	summary, err := m.Finalize(context.Background(), 1)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if summary.FileCount != len(names) {
		t.Fatalf("file count: got %d, want %d", summary.FileCount, len(names))
	}
	if summary.Link == "" {
		t.Fatal("summary link is empty")
	}

	files := st.files[0]
	for i, name := range names {
		if files[i].Name != name {
			t.Fatalf("file %d: got %s, want %s", i, files[i].Name, name)
		}
		if files[i].Token == "" {
			t.Fatalf("file %d has no token", i)
		}
	}

	// The session is gone; further operations fail.
	if _, err := m.Finalize(context.Background(), 1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second finalize: got %v, want ErrNoSession", err)
	}
}

func TestFinalizeEmptySession(t *testing.T) {
	m := NewManager(&fakeChannel{}, &fakeBatchStore{}, 0)
	if _, err := m.Start(1, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Finalize(context.Background(), 1); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("got %v, want ErrEmptyBatch", err)
	}
	// The session survives the rejection.
	if _, err := m.AddFile(1, 10, 100, desc("late.pdf")); err != nil {
		t.Fatalf("add after empty finalize: %v", err)
	}
}

func TestFinalizeStoreFailureKeepsSession(t *testing.T) {
	st := &fakeBatchStore{err: fmt.Errorf("db down")}
	m := NewManager(&fakeChannel{}, st, 0)
	if _, err := m.Start(1, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddFile(1, 10, 100, desc("a.pdf")); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Finalize(context.Background(), 1); err == nil {
		t.Fatal("finalize succeeded against a failing store")
	}

	// Retry succeeds once the store recovers, without re-uploading.
	st.mu.Lock()
	st.err = nil
	st.mu.Unlock()
	summary, err := m.Finalize(context.Background(), 1)
	if err != nil {
		t.Fatalf("retry finalize: %v", err)
	}
	if summary.FileCount != 1 {
		t.Fatalf("file count: got %d, want 1", summary.FileCount)
	}
}

func TestAddFileForwardFailure(t *testing.T) {
	ch := &fakeChannel{}
	m := NewManager(ch, &fakeBatchStore{}, 0)
	if _, err := m.Start(1, 10); err != nil {
		t.Fatal(err)
	}

	ch.mu.Lock()
	ch.forwardErr = errors.New("flood wait")
	ch.mu.Unlock()
	if _, err := m.AddFile(1, 10, 100, desc("a.pdf")); err == nil {
		t.Fatal("add succeeded despite forward failure")
	}

	ch.mu.Lock()
	ch.forwardErr = nil
	ch.mu.Unlock()
	count, err := m.AddFile(1, 10, 101, desc("b.pdf"))
	if err != nil {
		t.Fatalf("add after recovery: %v", err)
	}
	// The failed file never counted.
	if count != 1 {
		t.Fatalf("count: got %d, want 1", count)
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	st := &fakeBatchStore{}
	m := NewManager(&fakeChannel{}, st, 0)
	if _, err := m.Start(1, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddFile(1, 10, 100, desc("a.pdf")); err != nil {
		t.Fatal(err)
	}
	if err := m.Cancel(1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(st.batches) != 0 {
		t.Fatal("cancel persisted a batch")
	}
	if err := m.Cancel(1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second cancel: got %v, want ErrNoSession", err)
	}
	// A new session can start right away.
	if _, err := m.Start(1, 10); err != nil {
		t.Fatalf("restart after cancel: %v", err)
	}
}

func TestSetDescriptionAndAutoDelete(t *testing.T) {
	st := &fakeBatchStore{}
	m := NewManager(&fakeChannel{}, st, 0)

	if err := m.SetDescription(1, "docs"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("description without session: got %v, want ErrNoSession", err)
	}

	if _, err := m.Start(1, 10); err != nil {
		t.Fatal(err)
	}
	if err := m.SetDescription(1, "weekly docs"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetAutoDelete(1, 45); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddFile(1, 10, 100, desc("a.pdf")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Finalize(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	batch := st.batches[0]
	if batch.Description != "weekly docs" {
		t.Fatalf("description: got %q", batch.Description)
	}
	if !batch.AutoDelete || batch.AutoDeleteMinutes != 45 {
		t.Fatalf("auto delete: got %v/%d", batch.AutoDelete, batch.AutoDeleteMinutes)
	}
	if !st.files[0][0].AutoDelete || st.files[0][0].AutoDeleteMinutes != 45 {
		t.Fatal("auto delete not applied to batch files")
	}
}

func TestSetAutoDeleteZeroMarksExplicitOptOut(t *testing.T) {
	st := &fakeBatchStore{}
	m := NewManager(&fakeChannel{}, st, 0)
	if _, err := m.Start(1, 10); err != nil {
		t.Fatal(err)
	}
	if err := m.SetAutoDelete(1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddFile(1, 10, 100, desc("a.pdf")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Finalize(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	// Opted-out batches stay distinguishable from untouched ones: the flag is
	// set but the minutes stay zero.
	batch := st.batches[0]
	if !batch.AutoDelete || batch.AutoDeleteMinutes != 0 {
		t.Fatalf("opt-out encoding: got %v/%d", batch.AutoDelete, batch.AutoDeleteMinutes)
	}
}
