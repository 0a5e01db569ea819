// Package storage - job run history
package storage

import (
	"fmt"
	"time"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// JobStore persists job records so history survives restarts. The live job
// state lives in the job manager; rows here trail it.
type JobStore struct {
	db *Database
}

// NewJobStore creates a new JobStore
func NewJobStore(db *Database) *JobStore {
	return &JobStore{db: db}
}

// Create inserts a new job row in pending state.
func (s *JobStore) Create(job models.Job, triggeredBy string) error {
	_, err := s.db.db.Exec(`
		INSERT INTO jobs (job_id, bot_id, job_type, status, progress, triggered_by, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.JobID, job.BotID, job.JobType, job.Status, job.Progress, triggeredBy, job.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.JobID, err)
	}
	return nil
}

// Update writes the current status, progress and step of a job.
func (s *JobStore) Update(jobID, status string, progress float64, currentStep, logMessage string) error {
	query := `UPDATE jobs SET status = ?, progress = ?, current_step = ?, log_message = ? WHERE job_id = ?`
	args := []interface{}{status, progress, currentStep, logMessage, jobID}

	finished := status == models.JobStatusCompleted ||
		status == models.JobStatusFailed ||
		status == models.JobStatusCancelled
	if finished {
		query = `UPDATE jobs SET status = ?, progress = ?, current_step = ?, log_message = ?, finished_at = ? WHERE job_id = ?`
		args = []interface{}{status, progress, currentStep, logMessage, time.Now().UTC(), jobID}
	}

	if _, err := s.db.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}

// CleanupStale marks jobs left pending or running by a previous process as
// failed. Called once on startup.
func (s *JobStore) CleanupStale() (int, error) {
	result, err := s.db.db.Exec(`
		UPDATE jobs SET status = ?, log_message = 'Marked as failed: server restarted', finished_at = ?
		WHERE status IN (?, ?)`,
		models.JobStatusFailed, time.Now().UTC(),
		models.JobStatusPending, models.JobStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up stale jobs: %w", err)
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

// Recent returns the most recent job rows, newest first.
func (s *JobStore) Recent(limit int) ([]models.Job, error) {
	rows, err := s.db.db.Query(`
		SELECT job_id, bot_id, job_type, status, progress, current_step, started_at
		FROM jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.JobID, &j.BotID, &j.JobType, &j.Status, &j.Progress, &j.CurrentStep, &j.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
