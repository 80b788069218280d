package session

import (
	"context"
	"sync"
	"time"

	"github.com/harel159/email-automation-system/internal/auth/domain"
)

// MemoryStore keeps sessions in process. Used when REDIS_ADDR is unset.
// Expired entries are dropped on read and swept on every Save.
type MemoryStore struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]memEntry
}

type memEntry struct {
	s   domain.Session
	exp time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, data: make(map[string]memEntry)}
}

func (m *MemoryStore) Save(_ context.Context, s domain.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.data {
		if !now.Before(e.exp) {
			delete(m.data, id)
		}
	}
	m.data[s.ID] = memEntry{s: s, exp: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if !m.now().Before(e.exp) {
		delete(m.data, id)
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return e.s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}
