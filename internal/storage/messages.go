// Package storage - sent message history
package storage

import (
	"fmt"
	"time"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// MessageStore handles sent-message database operations
type MessageStore struct {
	db *Database
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(db *Database) *MessageStore {
	return &MessageStore{db: db}
}

// Record appends a sent message to the history. History is append-only.
func (s *MessageStore) Record(msg *models.MessageRecord) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	result, err := s.db.db.Exec(`
		INSERT INTO messages (sent_at, post_author, post_content, content, group_id, bot_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.SentAt, msg.PostAuthor, msg.PostContent, msg.Content, msg.GroupID, msg.BotID)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		msg.ID = id
	}
	return nil
}

// List returns one page of sent messages, newest first. The second return
// value is the unpaged total.
func (s *MessageStore) List(page, perPage int) ([]models.MessageRecord, int, error) {
	var total int
	if err := s.db.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	if page < 1 {
		page = 1
	}
	rows, err := s.db.db.Query(`
		SELECT id, sent_at, post_author, post_content, content, group_id, bot_id
		FROM messages
		ORDER BY sent_at DESC
		LIMIT ? OFFSET ?`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.MessageRecord
	for rows.Next() {
		var m models.MessageRecord
		if err := rows.Scan(&m.ID, &m.SentAt, &m.PostAuthor, &m.PostContent, &m.Content, &m.GroupID, &m.BotID); err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, total, rows.Err()
}

// Count returns the total number of sent messages.
func (s *MessageStore) Count() (int, error) {
	var total int
	err := s.db.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return total, nil
}
