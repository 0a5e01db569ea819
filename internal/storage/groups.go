// Package storage - scrape target (group) operations
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// GroupStore handles scrape target database operations
type GroupStore struct {
	db *Database
}

// NewGroupStore creates a new GroupStore
func NewGroupStore(db *Database) *GroupStore {
	return &GroupStore{db: db}
}

// Ensure registers a group for a bot if it does not exist yet. Called when
// the bot registry is loaded so every configured group has a row.
func (s *GroupStore) Ensure(groupID, botID string) error {
	_, err := s.db.db.Exec(`
		INSERT INTO groups (group_id, bot_id) VALUES (?, ?)
		ON CONFLICT(group_id, bot_id) DO NOTHING
	`, groupID, botID)
	if err != nil {
		return fmt.Errorf("failed to ensure group %s: %w", groupID, err)
	}
	return nil
}

// List returns one page of groups ordered by bot then group id, optionally
// scoped to a bot. The second return value is the unpaged total.
func (s *GroupStore) List(botID string, page, perPage int) ([]models.GroupRecord, int, error) {
	cond := "1=1"
	args := []interface{}{}
	if botID != "" {
		cond = "bot_id = ?"
		args = append(args, botID)
	}

	var total int
	if err := s.db.db.QueryRow("SELECT COUNT(*) FROM groups WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	if page < 1 {
		page = 1
	}
	query := fmt.Sprintf(`
		SELECT group_id, bot_id, last_scrape_date, last_run_error, last_error_message
		FROM groups WHERE %s
		ORDER BY bot_id, group_id
		LIMIT ? OFFSET ?`, cond)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// All returns every group for every bot, for the sync-status report.
func (s *GroupStore) All() ([]models.GroupRecord, error) {
	rows, err := s.db.db.Query(`
		SELECT group_id, bot_id, last_scrape_date, last_run_error, last_error_message
		FROM groups ORDER BY bot_id, group_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	return scanGroups(rows)
}

func scanGroups(rows *sql.Rows) ([]models.GroupRecord, error) {
	var groups []models.GroupRecord
	for rows.Next() {
		var g models.GroupRecord
		var scraped sql.NullTime
		if err := rows.Scan(&g.GroupID, &g.BotID, &scraped, &g.LastRunError, &g.LastErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if scraped.Valid {
			t := scraped.Time
			g.LastScrapeDate = &t
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Get returns a single group row.
func (s *GroupStore) Get(groupID, botID string) (*models.GroupRecord, error) {
	var g models.GroupRecord
	var scraped sql.NullTime
	err := s.db.db.QueryRow(`
		SELECT group_id, bot_id, last_scrape_date, last_run_error, last_error_message
		FROM groups WHERE group_id = ? AND bot_id = ?`, groupID, botID).
		Scan(&g.GroupID, &g.BotID, &scraped, &g.LastRunError, &g.LastErrorMessage)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", groupID, err)
	}
	if scraped.Valid {
		t := scraped.Time
		g.LastScrapeDate = &t
	}
	return &g, nil
}

// SetScrapeDate overrides the last scrape timestamp for a group. Used by the
// operator to force re-scraping of older content.
func (s *GroupStore) SetScrapeDate(groupID, botID string, scrapeDate time.Time) error {
	result, err := s.db.db.Exec(`
		UPDATE groups SET last_scrape_date = ? WHERE group_id = ? AND bot_id = ?`,
		scrapeDate.UTC(), groupID, botID)
	if err != nil {
		return fmt.Errorf("failed to set scrape date: %w", err)
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

// RecordRunResult updates the error state of a group after a scrape attempt
// and advances the scrape date on success.
func (s *GroupStore) RecordRunResult(groupID, botID string, runErr error) error {
	if runErr != nil {
		_, err := s.db.db.Exec(`
			UPDATE groups SET last_run_error = 1, last_error_message = ?
			WHERE group_id = ? AND bot_id = ?`, runErr.Error(), groupID, botID)
		return err
	}
	_, err := s.db.db.Exec(`
		UPDATE groups SET last_scrape_date = ?, last_run_error = 0, last_error_message = ''
		WHERE group_id = ? AND bot_id = ?`, time.Now().UTC(), groupID, botID)
	return err
}

// Counts returns the total number of groups and how many are in error state.
func (s *GroupStore) Counts() (total, withErrors int, err error) {
	err = s.db.db.QueryRow(`
		SELECT COUNT(*), COUNT(CASE WHEN last_run_error = 1 THEN 1 END) FROM groups`).
		Scan(&total, &withErrors)
	if err != nil {
		err = fmt.Errorf("failed to count groups: %w", err)
	}
	return
}
