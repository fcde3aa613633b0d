package dispatch

import (
	"FileVaultBot/internal/store"
	"FileVaultBot/model"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type fakeStore struct {
	files   map[string]*model.File
	batches map[string]*model.Batch

	fileIncrements  map[string]int
	batchIncrements map[string]int
	deliveries      []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:           make(map[string]*model.File),
		batches:         make(map[string]*model.Batch),
		fileIncrements:  make(map[string]int),
		batchIncrements: make(map[string]int),
	}
}

func (f *fakeStore) GetFile(ctx context.Context, token string) (*model.File, error) {
	file, ok := f.files[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return file, nil
}

func (f *fakeStore) IncrementFileDownloads(ctx context.Context, token string) error {
	f.fileIncrements[token]++
	return nil
}

func (f *fakeStore) AddActiveDelivery(ctx context.Context, token string, chatID int64, messageID int) error {
	f.deliveries = append(f.deliveries, messageID)
	return nil
}

func (f *fakeStore) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	batch, ok := f.batches[batchID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return batch, nil
}

func (f *fakeStore) IncrementBatchDownloads(ctx context.Context, batchID string) error {
	f.batchIncrements[batchID]++
	return nil
}

type fakeChannel struct {
	mu        sync.Mutex
	nextMsgID int
	copied    []int
	failCopy  map[int]bool
	member    bool
	memberErr error
}

func (f *fakeChannel) ForwardIntoChannel(fromChatID int64, messageID int) (int, error) {
	return 0, errors.New("not used")
}

func (f *fakeChannel) CopyFromChannel(channelMessageID int, targetChatID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCopy[channelMessageID] {
		return 0, errors.New("message to copy not found")
	}
	f.nextMsgID++
	f.copied = append(f.copied, channelMessageID)
	return 5000 + f.nextMsgID, nil
}

func (f *fakeChannel) DeleteMessage(chatID int64, messageID int) error { return nil }

func (f *fakeChannel) EditMessage(chatID int64, messageID int, text string) error { return nil }

func (f *fakeChannel) SendMessage(chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	return 5000 + f.nextMsgID, nil
}

func (f *fakeChannel) IsChannelMember(channelID, userID int64) (bool, error) {
	if f.memberErr != nil {
		return false, f.memberErr
	}
	return f.member, nil
}

type scheduled struct {
	correlationID string
	chatID        int64
	messageIDs    []int
	delay         time.Duration
}

type fakeScheduler struct {
	calls []scheduled
}

func (f *fakeScheduler) Schedule(correlationID string, chatID int64, messageIDs []int, delay time.Duration) {
	f.calls = append(f.calls, scheduled{correlationID, chatID, messageIDs, delay})
}

func newDispatcher(st *fakeStore, ch *fakeChannel, sched *fakeScheduler) *Dispatcher {
	return New(st, ch, sched, rate.NewLimiter(rate.Inf, 1))
}

func TestResolveUnknownToken(t *testing.T) {
	d := newDispatcher(newFakeStore(), &fakeChannel{}, &fakeScheduler{})
	if _, err := d.Resolve(context.Background(), 1, 10, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestResolveSingleFile(t *testing.T) {
	st := newFakeStore()
	st.files["tok"] = &model.File{Token: "tok", ChannelMessageID: 77}
	ch := &fakeChannel{}
	sched := &fakeScheduler{}
	d := newDispatcher(st, ch, sched)

	res, err := d.Resolve(context.Background(), 1, 10, "tok")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Attempted != 1 || res.Delivered != 1 || res.Failed != 0 {
		t.Fatalf("result: %+v", res)
	}
	if st.fileIncrements["tok"] != 1 {
		t.Fatalf("increments: got %d, want 1", st.fileIncrements["tok"])
	}
	if len(st.deliveries) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(st.deliveries))
	}
	// Auto-delete off: nothing scheduled.
	if len(sched.calls) != 0 {
		t.Fatalf("unexpected schedule: %+v", sched.calls)
	}
}

func TestResolveSingleFileAutoDelete(t *testing.T) {
	st := newFakeStore()
	st.files["tok"] = &model.File{
		Token: "tok", ChannelMessageID: 77,
		AutoDelete: true, AutoDeleteMinutes: 5,
	}
	sched := &fakeScheduler{}
	d := newDispatcher(st, &fakeChannel{}, sched)

	if _, err := d.Resolve(context.Background(), 1, 10, "tok"); err != nil {
		t.Fatal(err)
	}
	if len(sched.calls) != 1 {
		t.Fatalf("schedule calls: got %d, want 1", len(sched.calls))
	}
	call := sched.calls[0]
	if call.delay != 5*time.Minute {
		t.Fatalf("delay: got %v, want 5m", call.delay)
	}
	// The delivered copy plus the notice message.
	if len(call.messageIDs) != 2 {
		t.Fatalf("scheduled messages: got %d, want 2", len(call.messageIDs))
	}
}

func TestResolveBatchTallyAndOrder(t *testing.T) {
	st := newFakeStore()
	st.batches["b1"] = &model.Batch{
		BatchID:    "b1",
		TotalFiles: 3,
		Files: []model.File{
			{Token: "t1", ChannelMessageID: 11, BatchSeq: 0},
			{Token: "t2", ChannelMessageID: 12, BatchSeq: 1},
			{Token: "t3", ChannelMessageID: 13, BatchSeq: 2},
		},
	}
	ch := &fakeChannel{failCopy: map[int]bool{12: true}}
	sched := &fakeScheduler{}
	d := newDispatcher(st, ch, sched)

	res, err := d.Resolve(context.Background(), 1, 10, "batch_b1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Attempted != 3 || res.Delivered != 2 || res.Failed != 1 {
		t.Fatalf("result: %+v", res)
	}
	// Items go out in stored order, the failed one skipped.
	want := []int{11, 13}
	if len(ch.copied) != len(want) {
		t.Fatalf("copied: %v", ch.copied)
	}
	for i, id := range want {
		if ch.copied[i] != id {
			t.Fatalf("copied[%d]: got %d, want %d", i, ch.copied[i], id)
		}
	}
	// Exactly one batch increment despite the partial failure.
	if st.batchIncrements["b1"] != 1 {
		t.Fatalf("batch increments: got %d, want 1", st.batchIncrements["b1"])
	}
	// No file counters move on the batch path.
	if len(st.fileIncrements) != 0 {
		t.Fatalf("file increments moved: %v", st.fileIncrements)
	}
}

func TestResolveBatchAutoDelete(t *testing.T) {
	st := newFakeStore()
	st.batches["b1"] = &model.Batch{
		BatchID: "b1", TotalFiles: 2,
		AutoDelete: true, AutoDeleteMinutes: 7,
		Files: []model.File{
			{Token: "t1", ChannelMessageID: 11},
			{Token: "t2", ChannelMessageID: 12},
		},
	}
	sched := &fakeScheduler{}
	d := newDispatcher(st, &fakeChannel{}, sched)

	if _, err := d.Resolve(context.Background(), 1, 10, "batch_b1"); err != nil {
		t.Fatal(err)
	}
	if len(sched.calls) != 1 {
		t.Fatalf("schedule calls: got %d, want 1", len(sched.calls))
	}
	call := sched.calls[0]
	if call.correlationID != "batch:b1" {
		t.Fatalf("correlation: got %s", call.correlationID)
	}
	if call.delay != 7*time.Minute {
		t.Fatalf("delay: got %v", call.delay)
	}
	// Two delivered copies plus the progress message.
	if len(call.messageIDs) != 3 {
		t.Fatalf("scheduled messages: got %d, want 3", len(call.messageIDs))
	}
}

func TestResolveBatchExplicitOptOut(t *testing.T) {
	st := newFakeStore()
	st.batches["b1"] = &model.Batch{
		BatchID: "b1", TotalFiles: 1,
		AutoDelete: true, AutoDeleteMinutes: 0,
		Files: []model.File{
			{Token: "t1", ChannelMessageID: 11},
		},
	}
	sched := &fakeScheduler{}
	d := newDispatcher(st, &fakeChannel{}, sched)
	d.DefaultAutoDelete = func() int { return 30 }

	if _, err := d.Resolve(context.Background(), 1, 10, "batch_b1"); err != nil {
		t.Fatal(err)
	}
	// The explicit opt-out shields the batch from the runtime default.
	if len(sched.calls) != 0 {
		t.Fatalf("unexpected schedule: %+v", sched.calls)
	}
}

func TestResolveBatchInheritsRuntimeDefault(t *testing.T) {
	st := newFakeStore()
	st.batches["b1"] = &model.Batch{
		BatchID: "b1", TotalFiles: 1,
		Files: []model.File{
			{Token: "t1", ChannelMessageID: 11},
		},
	}
	sched := &fakeScheduler{}
	d := newDispatcher(st, &fakeChannel{}, sched)
	d.DefaultAutoDelete = func() int { return 30 }

	if _, err := d.Resolve(context.Background(), 1, 10, "batch_b1"); err != nil {
		t.Fatal(err)
	}
	if len(sched.calls) != 1 {
		t.Fatalf("schedule calls: got %d, want 1", len(sched.calls))
	}
	if sched.calls[0].delay != 30*time.Minute {
		t.Fatalf("delay: got %v, want 30m", sched.calls[0].delay)
	}
}

func TestResolveForceSubGate(t *testing.T) {
	st := newFakeStore()
	st.files["tok"] = &model.File{Token: "tok", ChannelMessageID: 77}
	ch := &fakeChannel{member: false}
	d := newDispatcher(st, ch, &fakeScheduler{})
	d.ForceSubChannelID = -100123

	if _, err := d.Resolve(context.Background(), 1, 10, "tok"); !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("got %v, want ErrNotSubscribed", err)
	}
	// The gate runs before any lookup or delivery.
	if len(ch.copied) != 0 || st.fileIncrements["tok"] != 0 {
		t.Fatal("delivery happened despite failed gate")
	}

	ch.member = true
	if _, err := d.Resolve(context.Background(), 1, 10, "tok"); err != nil {
		t.Fatalf("member resolve: %v", err)
	}
}

func TestResolveEmptyBatch(t *testing.T) {
	st := newFakeStore()
	st.batches["b1"] = &model.Batch{BatchID: "b1"}
	d := newDispatcher(st, &fakeChannel{}, &fakeScheduler{})

	if _, err := d.Resolve(context.Background(), 1, 10, "batch_b1"); !errors.Is(err, store.ErrEmptyBatch) {
		t.Fatalf("got %v, want ErrEmptyBatch", err)
	}
}
