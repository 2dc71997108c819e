// Package store provides message persistence behind the
// ports.MessageStore interface, plus the graph nodes that read from it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.MessageStore = (*SQLiteStore)(nil)

// SQLiteStore implements ports.MessageStore using SQLite. Use ":memory:"
// as the DSN for an ephemeral store in tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given DSN.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// SQLite serializes writes; a single connection avoids lock errors.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// Migrate creates the messages table and its conversation index.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, sent_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

// Store persists a message, overwriting any previous record with the
// same id.
func (s *SQLiteStore) Store(ctx context.Context, msg domain.Message) error {
	if msg.ID == "" {
		return errors.New("message id cannot be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (id, conversation_id, role, sender, content, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Sender, msg.Content, msg.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite store message: %w", err)
	}
	return nil
}

// Get retrieves a message by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Message, bool, error) {
	var msg domain.Message
	var sentAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, sender, content, sent_at
		 FROM messages WHERE id = ?`, id,
	).Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Sender, &msg.Content, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, fmt.Errorf("sqlite get message: %w", err)
	}
	msg.SentAt = sentAt
	return msg, true, nil
}

// Recent returns up to limit messages for a conversation, oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	// Newest-first window, then reversed, so the limit trims the oldest
	// messages rather than the newest.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, sender, content, sent_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY sent_at DESC LIMIT ?`, conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var sentAt time.Time
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Sender, &msg.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("sqlite scan message: %w", err)
		}
		msg.SentAt = sentAt
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite recent messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
