package ai

import (
	"context"
	"sync"
	"time"

	"harold/models"
)

// MemoryContextStore keeps dialogue context in process. It backs the memory
// storage driver. Like the redis store, a conversation idle for longer than the
// ttl is forgotten; idle conversations are swept at most once per ttl.
type MemoryContextStore struct {
	mu        sync.Mutex
	states    map[string]models.ConversationState
	entities  map[string]models.BookingEntities
	history   map[string][]models.ChatMessage
	locks     map[string]chan struct{}
	touched   map[string]time.Time
	lastSweep time.Time

	ttl      time.Duration
	lockWait time.Duration
	now      func() time.Time
}

// NewMemoryContextStore is meant for single-process local runs; nothing is
// shared between replicas. ttl <= 0 means 30 minutes.
func NewMemoryContextStore(ttl time.Duration) *MemoryContextStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryContextStore{
		states:   make(map[string]models.ConversationState),
		entities: make(map[string]models.BookingEntities),
		history:  make(map[string][]models.ChatMessage),
		locks:    make(map[string]chan struct{}),
		touched:  make(map[string]time.Time),
		ttl:      ttl,
		lockWait: 5 * time.Second,
		now:      time.Now,
	}
}

// touch records activity on id. Caller holds mu.
func (m *MemoryContextStore) touch(id string) {
	now := m.now()
	m.expire(id, now)
	m.touched[id] = now
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for other := range m.touched {
		m.expire(other, now)
	}
}

// expire forgets id when it has been idle for the ttl. A held lock is kept.
// Caller holds mu.
func (m *MemoryContextStore) expire(id string, now time.Time) {
	at, ok := m.touched[id]
	if !ok || now.Sub(at) < m.ttl {
		return
	}
	delete(m.states, id)
	delete(m.entities, id)
	delete(m.history, id)
	delete(m.touched, id)
	if sem, ok := m.locks[id]; ok && len(sem) == 0 {
		delete(m.locks, id)
	}
}

// Len reports how many conversations the store is tracking.
func (m *MemoryContextStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.touched)
}

func (m *MemoryContextStore) LoadState(_ context.Context, id string) (*models.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(id, m.now())
	st, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryContextStore) SaveState(_ context.Context, id string, state models.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(id)
	m.states[id] = state
	return nil
}

func (m *MemoryContextStore) LoadEntities(_ context.Context, id string) (models.BookingEntities, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(id, m.now())
	e := m.entities[id]
	e.RoomTypes = append([]string(nil), e.RoomTypes...)
	if len(e.RoomTypes) == 0 {
		e.RoomTypes = nil
	}
	return e, nil
}

func (m *MemoryContextStore) SaveEntities(_ context.Context, id string, e models.BookingEntities) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(id)
	cur := m.entities[id]
	for f := models.FieldCheckInDate; f <= models.FieldContactNumber; f++ {
		if f == models.FieldRoomTypes {
			if types := models.NormalizeRoomTypes(e.RoomTypes); len(types) > 0 {
				cur.RoomTypes = types
			}
			continue
		}
		if v := e.Value(f); v != "" {
			cur.Set(f, v)
		}
	}
	m.entities[id] = cur
	return nil
}

func (m *MemoryContextStore) ClearEntityFields(_ context.Context, id string, fields ...models.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(id, m.now())
	cur, ok := m.entities[id]
	if !ok {
		return nil
	}
	for _, f := range fields {
		cur.Clear(f)
	}
	m.entities[id] = cur
	return nil
}

func (m *MemoryContextStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	delete(m.entities, id)
	return nil
}

func (m *MemoryContextStore) AppendHistory(_ context.Context, id string, msgs ...models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(id)
	h := append(m.history[id], msgs...)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	m.history[id] = h
	return nil
}

func (m *MemoryContextStore) History(_ context.Context, id string) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(id, m.now())
	return append([]models.ChatMessage(nil), m.history[id]...), nil
}

func (m *MemoryContextStore) Lock(ctx context.Context, id string) (func(), error) {
	m.mu.Lock()
	m.touch(id)
	sem, ok := m.locks[id]
	if !ok {
		sem = make(chan struct{}, 1)
		m.locks[id] = sem
	}
	m.mu.Unlock()

	timer := time.NewTimer(m.lockWait)
	defer timer.Stop()
	select {
	case sem <- struct{}{}:
	case <-timer.C:
		return nil, ErrConversationBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}
