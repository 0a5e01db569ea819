// Package storage - post and lead operations
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// ErrNotFound is returned when a row-level operation matches nothing.
var ErrNotFound = errors.New("not found")

// PostStore handles post and lead database operations
type PostStore struct {
	db *Database
}

// NewPostStore creates a new PostStore
func NewPostStore(db *Database) *PostStore {
	return &PostStore{db: db}
}

// Save inserts or updates a post by its Facebook post id
func (s *PostStore) Save(post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.db.Exec(`
		INSERT INTO posts (post_id, author, user_id, content, is_lead, is_contacted, classified, created_at, group_id, bot_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			author = excluded.author,
			user_id = excluded.user_id,
			content = excluded.content,
			is_lead = excluded.is_lead,
			is_contacted = excluded.is_contacted,
			classified = excluded.classified,
			group_id = excluded.group_id,
			bot_id = excluded.bot_id
	`, post.PostID, post.Author, post.UserID, post.Content,
		post.IsLead, post.IsContacted, post.Classified, post.CreatedAt, post.GroupID, post.BotID)

	if err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}

	if post.ID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			post.ID = id
		}
	}

	return nil
}

// ListLeads returns one page of uncontacted leads, newest first, optionally
// scoped to a bot. The second return value is the unpaged total.
func (s *PostStore) ListLeads(botID string, page, perPage int) ([]models.Post, int, error) {
	return s.listLeadRows(botID, false, page, perPage)
}

// ListContacted returns one page of contacted leads, newest first.
func (s *PostStore) ListContacted(botID string, page, perPage int) ([]models.Post, int, error) {
	return s.listLeadRows(botID, true, page, perPage)
}

func (s *PostStore) listLeadRows(botID string, contacted bool, page, perPage int) ([]models.Post, int, error) {
	where := []string{"is_lead = 1", "is_contacted = ?"}
	args := []interface{}{contacted}
	if botID != "" {
		where = append(where, "bot_id = ?")
		args = append(args, botID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.db.QueryRow("SELECT COUNT(*) FROM posts WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	if page < 1 {
		page = 1
	}
	query := fmt.Sprintf(`
		SELECT id, post_id, author, user_id, content, is_lead, is_contacted, classified, created_at, group_id, bot_id
		FROM posts WHERE %s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, cond)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func scanPosts(rows *sql.Rows) ([]models.Post, error) {
	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.PostID, &p.Author, &p.UserID, &p.Content,
			&p.IsLead, &p.IsContacted, &p.Classified, &p.CreatedAt, &p.GroupID, &p.BotID); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Unmark clears the lead flag so the post leaves the leads view.
func (s *PostStore) Unmark(postID string) error {
	return s.execOne(`UPDATE posts SET is_lead = 0 WHERE post_id = ?`, postID)
}

// Delete removes a post entirely.
func (s *PostStore) Delete(postID string) error {
	return s.execOne(`DELETE FROM posts WHERE post_id = ?`, postID)
}

// MarkContacted flags a lead as contacted.
func (s *PostStore) MarkContacted(postID string) error {
	return s.execOne(`UPDATE posts SET is_contacted = 1 WHERE post_id = ? AND is_lead = 1`, postID)
}

// ResetContact moves a contacted lead back to the leads view.
func (s *PostStore) ResetContact(postID string) error {
	return s.execOne(`UPDATE posts SET is_contacted = 0 WHERE post_id = ? AND is_lead = 1`, postID)
}

func (s *PostStore) execOne(query string, args ...interface{}) error {
	result, err := s.db.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("post update failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// LeadsForExport returns every lead (contacted or not), optionally scoped to
// a bot, oldest first for stable export files.
func (s *PostStore) LeadsForExport(botID string) ([]models.Post, error) {
	query := `
		SELECT id, post_id, author, user_id, content, is_lead, is_contacted, classified, created_at, group_id, bot_id
		FROM posts WHERE is_lead = 1`
	args := []interface{}{}
	if botID != "" {
		query += " AND bot_id = ?"
		args = append(args, botID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads for export: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// CountLeads returns the number of uncontacted and contacted leads.
func (s *PostStore) CountLeads() (leads, contacted int, err error) {
	err = s.db.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN is_contacted = 0 THEN 1 END),
			COUNT(CASE WHEN is_contacted = 1 THEN 1 END)
		FROM posts WHERE is_lead = 1`).Scan(&leads, &contacted)
	if err != nil {
		err = fmt.Errorf("failed to count leads: %w", err)
	}
	return
}
