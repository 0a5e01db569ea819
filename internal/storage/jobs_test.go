package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupleads/leadbot-admin/internal/models"
)

func seedJob(t *testing.T, store *JobStore, jobID, status string, startedAt time.Time) {
	t.Helper()
	require.NoError(t, store.Create(models.Job{
		JobID:     jobID,
		BotID:     "bot-a",
		JobType:   models.JobTypeScrape,
		Status:    models.JobStatusPending,
		StartedAt: startedAt,
	}, "test"))
	if status != models.JobStatusPending {
		require.NoError(t, store.Update(jobID, status, 100, "", ""))
	}
}

func TestJobStore_CreateAndRecent(t *testing.T) {
	store := NewJobStore(testDB(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedJob(t, store, "j1", models.JobStatusCompleted, base)
	seedJob(t, store, "j2", models.JobStatusPending, base.Add(time.Hour))

	jobs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "j2", jobs[0].JobID, "newest first")
	assert.Equal(t, models.JobStatusCompleted, jobs[1].Status)
}

func TestJobStore_UpdateProgress(t *testing.T) {
	store := NewJobStore(testDB(t))
	seedJob(t, store, "j1", models.JobStatusPending, time.Now().UTC())

	require.NoError(t, store.Update("j1", models.JobStatusRunning, 33, "Step 2/3: Classifying", ""))

	jobs, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusRunning, jobs[0].Status)
	assert.Equal(t, float64(33), jobs[0].Progress)
	assert.Equal(t, "Step 2/3: Classifying", jobs[0].CurrentStep)
}

func TestJobStore_CleanupStale(t *testing.T) {
	store := NewJobStore(testDB(t))

	base := time.Now().UTC()
	seedJob(t, store, "running", models.JobStatusRunning, base)
	seedJob(t, store, "pending", models.JobStatusPending, base)
	seedJob(t, store, "done", models.JobStatusCompleted, base)

	n, err := store.CleanupStale()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	jobs, err := store.Recent(10)
	require.NoError(t, err)
	for _, job := range jobs {
		if job.JobID == "done" {
			assert.Equal(t, models.JobStatusCompleted, job.Status)
		} else {
			assert.Equal(t, models.JobStatusFailed, job.Status)
		}
	}
}
