package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/newsletter/internal/domain"
)

// Memory is an in-process store used by tests and local runs without a
// database.  It enforces the same key and reference rules as the SQL
// schema.
type Memory struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]domain.Subscriber
	tokens      map[string]uuid.UUID
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		subscribers: make(map[uuid.UUID]domain.Subscriber),
		tokens:      make(map[string]uuid.UUID),
		now:         time.Now,
	}
}

func (m *Memory) InsertSubscriber(_ context.Context, ns domain.NewSubscriber) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	m.subscribers[id] = domain.Subscriber{
		ID:           id,
		Email:        ns.Email.String(),
		Name:         ns.Name.String(),
		Status:       domain.StatusPendingConfirmation,
		SubscribedAt: m.now().UTC(),
	}
	return id, nil
}

func (m *Memory) StoreToken(_ context.Context, token string, subscriberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.tokens[token]; dup {
		return fmt.Errorf("store token: %w", ErrTokenCollision)
	}
	if _, ok := m.subscribers[subscriberID]; !ok {
		return fmt.Errorf("store token for %s: %w", subscriberID, ErrSubscriberNotFound)
	}
	m.tokens[token] = subscriberID
	return nil
}

func (m *Memory) ConfirmByToken(_ context.Context, token string) (Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.tokens[token]
	if !ok {
		return Confirmation{}, ErrTokenNotFound
	}
	sub := m.subscribers[id]
	if sub.Confirmed() {
		return Confirmation{SubscriberID: id, AlreadyConfirmed: true}, nil
	}
	sub.Status = domain.StatusConfirmed
	m.subscribers[id] = sub
	return Confirmation{SubscriberID: id}, nil
}

func (m *Memory) SubscriberByID(_ context.Context, id uuid.UUID) (domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscribers[id]
	if !ok {
		return domain.Subscriber{}, ErrSubscriberNotFound
	}
	return sub, nil
}

func (m *Memory) SubscribersByEmail(_ context.Context, email string) ([]domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]domain.Subscriber, 0, 1)
	for _, s := range m.subscribers {
		if s.Email == email {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubscribedAt.Before(subs[j].SubscribedAt) })
	return subs, nil
}

func (m *Memory) TokensForSubscriber(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	toks := make([]string, 0, 1)
	for tok, owner := range m.tokens {
		if owner == id {
			toks = append(toks, tok)
		}
	}
	sort.Strings(toks)
	return toks, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
