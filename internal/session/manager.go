// Package session holds the in-memory batch upload sessions. A session
// accumulates forwarded files for one owner until it is finalized into a
// persisted batch or cancelled. At most one session exists per owner.
package session

import (
	"FileVaultBot/internal/channel"
	"FileVaultBot/internal/media"
	"FileVaultBot/model"
	"FileVaultBot/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionActive rejects starting a second session; the owner must
	// finalize or cancel the current one first.
	ErrSessionActive = errors.New("batch session already active")
	// ErrNoSession is returned by operations that need an active session.
	ErrNoSession = errors.New("no active batch session")
	// ErrEmptyBatch rejects finalizing a session with zero files.
	ErrEmptyBatch = errors.New("batch session has no files")
)

// BatchStore persists finalized batches.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *model.Batch, files []model.File) (string, error)
}

// entry is one accumulated file inside a session.
type entry struct {
	token            string
	desc             media.Descriptor
	channelMessageID int
}

// Session is one owner's in-progress batch upload.
type Session struct {
	mu sync.Mutex

	owner   int64
	chatID  int64
	batchID string

	files       []entry
	description string

	autoDelete        bool
	autoDeleteMinutes int

	statusMessageID int

	startedAt  time.Time
	lastActive time.Time

	closed bool
}

// Summary is returned by a successful Finalize.
type Summary struct {
	BatchID   string
	Link      string
	FileCount int
	Elapsed   time.Duration
}

// Manager owns the owner → session table. Map access is guarded by mu;
// mutation of a single session serializes on the session's own lock, so
// different owners never contend.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	channel channel.Channel
	store   BatchStore

	idleTimeout time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewManager creates the session table and starts the idle-session janitor.
func NewManager(ch channel.Channel, store BatchStore, idleTimeout time.Duration) *Manager {
	m := &Manager{
		sessions:    make(map[int64]*Session),
		channel:     ch,
		store:       store,
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go m.janitor()
	}
	return m
}

// Stop shuts the janitor down and clears the table.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.mu.Lock()
	m.sessions = make(map[int64]*Session)
	m.mu.Unlock()
}

// Start opens a new session for the owner. A still-active session is
// rejected; it must be finalized or cancelled explicitly.
func (m *Manager) Start(owner, chatID int64) (*Session, error) {
	m.mu.Lock()
	if _, ok := m.sessions[owner]; ok {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	now := time.Now()
	s := &Session{
		owner:      owner,
		chatID:     chatID,
		batchID:    uuid.NewString(),
		startedAt:  now,
		lastActive: now,
	}
	m.sessions[owner] = s
	m.mu.Unlock()

	statusID, err := m.channel.SendMessage(chatID, s.statusText())
	if err != nil {
		log.Printf("session: initial status message failed for %d: %v", owner, err)
	} else {
		s.mu.Lock()
		s.statusMessageID = statusID
		s.mu.Unlock()
	}
	return s, nil
}

// SetDescription overwrites the session description.
func (m *Manager) SetDescription(owner int64, text string) error {
	s, err := m.get(owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNoSession
	}
	s.description = text
	s.lastActive = time.Now()
	return nil
}

// SetAutoDelete records the session's auto-delete override. Once called, the
// persisted batch carries AutoDelete=true; zero minutes is an explicit
// opt-out that shields the batch from the runtime default at retrieval time.
func (m *Manager) SetAutoDelete(owner int64, minutes int) error {
	s, err := m.get(owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNoSession
	}
	s.autoDelete = true
	s.autoDeleteMinutes = minutes
	s.lastActive = time.Now()
	return nil
}

// AddFile forwards the original message into the storage channel and, only
// on success, appends the descriptor to the session in arrival order. The
// returned count is the new session size.
func (m *Manager) AddFile(owner, fromChatID int64, messageID int, desc media.Descriptor) (int, error) {
	s, err := m.get(owner)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrNoSession
	}

	// The forward must complete before the file counts: the channel copy is
	// the durable reference everything later resolves against.
	channelMessageID, err := m.channel.ForwardIntoChannel(fromChatID, messageID)
	if err != nil {
		return len(s.files), fmt.Errorf("forward into storage channel: %w", err)
	}

	s.files = append(s.files, entry{
		token:            uuid.NewString(),
		desc:             desc,
		channelMessageID: channelMessageID,
	})
	s.lastActive = time.Now()
	m.updateStatus(s)
	return len(s.files), nil
}

// Finalize persists the batch and destroys the session. A store failure
// keeps the session alive so the owner can retry without re-uploading.
func (m *Manager) Finalize(ctx context.Context, owner int64) (*Summary, error) {
	s, err := m.get(owner)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrNoSession
	}
	if len(s.files) == 0 {
		return nil, ErrEmptyBatch
	}

	batch := &model.Batch{
		BatchID:           s.batchID,
		CreatorID:         s.owner,
		Description:       s.description,
		Status:            model.BatchStatusActive,
		AutoDelete:        s.autoDelete,
		AutoDeleteMinutes: s.autoDeleteMinutes,
	}
	files := make([]model.File, len(s.files))
	for i, e := range s.files {
		files[i] = model.File{
			Token:             e.token,
			TelegramFileID:    e.desc.TelegramFileID,
			Name:              e.desc.Name,
			Size:              e.desc.Size,
			Kind:              string(e.desc.Kind),
			UploaderID:        s.owner,
			ChannelMessageID:  e.channelMessageID,
			AutoDelete:        s.autoDelete,
			AutoDeleteMinutes: s.autoDeleteMinutes,
		}
	}

	if _, err := m.store.CreateBatch(ctx, batch, files); err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}

	s.closed = true
	m.remove(owner, s)
	m.clearStatus(s)

	return &Summary{
		BatchID:   s.batchID,
		Link:      utils.BatchDeepLink(s.batchID),
		FileCount: len(s.files),
		Elapsed:   time.Since(s.startedAt),
	}, nil
}

// Cancel discards the session without persisting anything.
func (m *Manager) Cancel(owner int64) error {
	s, err := m.get(owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNoSession
	}
	s.closed = true
	m.remove(owner, s)
	m.clearStatus(s)
	return nil
}

// ActiveCount returns the number of open sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) get(owner int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[owner]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// remove drops the owner's entry if it still points at s.
func (m *Manager) remove(owner int64, s *Session) {
	m.mu.Lock()
	if cur, ok := m.sessions[owner]; ok && cur == s {
		delete(m.sessions, owner)
	}
	m.mu.Unlock()
}

// updateStatus refreshes the owner-facing status message. Caller holds s.mu.
func (m *Manager) updateStatus(s *Session) {
	text := s.statusText()
	if s.statusMessageID == 0 {
		id, err := m.channel.SendMessage(s.chatID, text)
		if err != nil {
			log.Printf("session: status message failed for %d: %v", s.owner, err)
			return
		}
		s.statusMessageID = id
		return
	}
	if err := m.channel.EditMessage(s.chatID, s.statusMessageID, text); err != nil {
		log.Printf("session: status update failed for %d: %v", s.owner, err)
	}
}

// clearStatus deletes the status message. Caller holds s.mu.
func (m *Manager) clearStatus(s *Session) {
	if s.statusMessageID == 0 {
		return
	}
	if err := m.channel.DeleteMessage(s.chatID, s.statusMessageID); err != nil {
		log.Printf("session: status cleanup failed for %d: %v", s.owner, err)
	}
	s.statusMessageID = 0
}

// statusText renders the status display. Caller holds s.mu (or owns s).
func (s *Session) statusText() string {
	desc := s.description
	if desc == "" {
		desc = "not set"
	}
	text := "📦 *Batch Upload in Progress*\n\n" +
		fmt.Sprintf("• Files received: `%d`\n", len(s.files))
	if n := len(s.files); n > 0 {
		last := s.files[n-1]
		text += fmt.Sprintf("• Last file: `%s` (%s)\n", last.desc.Name, utils.HumanBytes(last.desc.Size))
	}
	text += fmt.Sprintf("• Description: %s\n\n", desc) +
		"Send more files or use:\n" +
		"• /done — complete batch\n" +
		"• /adddesc — add description\n" +
		"• /setautodel — auto-delete delivered copies\n" +
		"• /cancel\\_batch — cancel session"
	return text
}

// janitor sweeps idle sessions so abandoned uploads cannot leak table
// entries forever.
func (m *Manager) janitor() {
	interval := m.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.RLock()
	stale := make([]*Session, 0)
	for _, s := range m.sessions {
		stale = append(stale, s)
	}
	m.mu.RUnlock()

	for _, s := range stale {
		s.mu.Lock()
		if s.closed || s.lastActive.After(cutoff) {
			s.mu.Unlock()
			continue
		}
		s.closed = true
		m.remove(s.owner, s)
		m.clearStatus(s)
		owner, chatID := s.owner, s.chatID
		s.mu.Unlock()

		log.Printf("session: expired idle session of %d", owner)
		if _, err := m.channel.SendMessage(chatID,
			"⌛️ Your batch session expired after inactivity. Start again with /batch."); err != nil {
			log.Printf("session: expiry notice failed for %d: %v", owner, err)
		}
	}
}
