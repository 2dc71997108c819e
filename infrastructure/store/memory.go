package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.MessageStore = (*MemoryStore)(nil)

// MemoryStore is a process-local MessageStore for development and
// tests. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]domain.Message
	byConvID map[string][]string
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]domain.Message),
		byConvID: make(map[string][]string),
	}
}

// Store persists a message, overwriting any previous record with the
// same id.
func (m *MemoryStore) Store(_ context.Context, msg domain.Message) error {
	if msg.ID == "" {
		return errors.New("message id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ports.ErrStoreClosed
	}

	if _, exists := m.byID[msg.ID]; !exists {
		m.byConvID[msg.ConversationID] = append(m.byConvID[msg.ConversationID], msg.ID)
	}
	m.byID[msg.ID] = msg
	return nil
}

// Get retrieves a message by id.
func (m *MemoryStore) Get(_ context.Context, id string) (domain.Message, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.Message{}, false, ports.ErrStoreClosed
	}

	msg, ok := m.byID[id]
	return msg, ok, nil
}

// Recent returns up to limit messages for a conversation, oldest first.
func (m *MemoryStore) Recent(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ports.ErrStoreClosed
	}

	ids := m.byConvID[conversationID]
	msgs := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, m.byID[id])
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})

	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Close marks the store closed; subsequent calls fail with
// ports.ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
