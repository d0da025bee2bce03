package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcphost/host/pkg/models"
)

// MemoryStore is an in-memory, RWMutex-guarded Store. It owns a
// background goroutine that sweeps idle sessions on a ticker; callers
// must call Close to stop it.
type MemoryStore struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*models.Session

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMemoryStore constructs a MemoryStore and starts its eviction loop.
func NewMemoryStore(cfg Config, logger *slog.Logger) *MemoryStore {
	s := &MemoryStore{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*models.Session),
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.evictLoop()
	return s
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		session.LastAccess = time.Now()
		return session.Clone(), nil
	}

	now := time.Now()
	session := &models.Session{
		ID:         id,
		CreatedAt:  now,
		LastAccess: now,
	}
	s.sessions[id] = session
	return session.Clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("sessions: %q not found", id)
	}
	return session.Clone(), nil
}

// AppendMessage appends msg, then rewrites the log to
// [first_user_message] ++ tail(messages, k) once it exceeds MaxMessages,
// per the retention contract.
func (s *MemoryStore) AppendMessage(ctx context.Context, id string, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("sessions: %q not found", id)
	}

	session.Messages = append(session.Messages, msg)
	session.LastAccess = time.Now()

	max := s.cfg.MaxMessages
	if max <= 0 {
		max = 50
	}
	if len(session.Messages) > max {
		session.Messages = rewriteOverflow(session.Messages, s.cfg.KeepTail())
	}
	return nil
}

// rewriteOverflow keeps the session's first user message (the seed of the
// conversation) and the most recent k messages, dropping the middle. If
// no user message is found, it falls back to a plain tail.
func rewriteOverflow(messages []*models.Message, k int) []*models.Message {
	var first *models.Message
	for _, m := range messages {
		if m.Role == models.RoleUser {
			first = m
			break
		}
	}

	tailStart := len(messages) - k
	if tailStart < 0 {
		tailStart = 0
	}
	tail := messages[tailStart:]

	if first == nil {
		return append([]*models.Message(nil), tail...)
	}

	rewritten := make([]*models.Message, 0, len(tail)+1)
	rewritten = append(rewritten, first)
	for _, m := range tail {
		if m == first {
			continue
		}
		rewritten = append(rewritten, m)
	}
	return rewritten
}

// UpdateContext merges patch into the session's Context map under the
// store lock, creating the map on first use. A nil patch value deletes
// that key rather than storing a nil, so callers can retract a fact the
// same way they set one.
func (s *MemoryStore) UpdateContext(ctx context.Context, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("sessions: %q not found", id)
	}

	if session.Context == nil {
		session.Context = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		if v == nil {
			delete(session.Context, k)
			continue
		}
		session.Context[k] = v
	}
	session.LastAccess = time.Now()
	return nil
}

func (s *MemoryStore) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("sessions: %q not found", id)
	}
	session.LastAccess = time.Now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// ActiveCount reports the number of sessions currently held.
func (s *MemoryStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) evictLoop() {
	defer s.wg.Done()

	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	idle := s.cfg.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	now := time.Now()

	s.mu.Lock()
	var evicted int
	for id, session := range s.sessions {
		if now.Sub(session.LastAccess) >= idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 && s.logger != nil {
		s.logger.Info("evicted idle sessions", "count", evicted)
	}
}
