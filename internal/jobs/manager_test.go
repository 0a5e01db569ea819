package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/models"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

// funcRunner adapts a function to the Runner interface.
type funcRunner func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error

func (f funcRunner) Run(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
	return f(ctx, bot, report)
}

// MockNotifier is a mock implementation of the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) JobFailed(job models.Job, botName, errMessage string) {
	m.Called(job, botName, errMessage)
}

func testRegistry() *config.BotRegistry {
	return &config.BotRegistry{Bots: []config.BotConfig{
		{BotID: "lead1", Name: "Lead One", BotType: models.BotTypeLead, Enabled: true},
		{BotID: "inv1", Name: "Inviter One", BotType: models.BotTypeInviter, Enabled: true},
		{BotID: "off1", Name: "Disabled", BotType: models.BotTypeLead, Enabled: false},
	}}
}

func testJobStore(t *testing.T) *storage.JobStore {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewJobStore(db)
}

func newTestManager(t *testing.T, runners map[string]Runner, notifier Notifier) *Manager {
	t.Helper()
	m := NewManager(testJobStore(t), testRegistry(), runners, notifier)
	t.Cleanup(m.Close)
	return m
}

func noopRunners() map[string]Runner {
	noop := funcRunner(func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
		return nil
	})
	return map[string]Runner{
		models.JobTypeScrape:   noop,
		models.JobTypeClassify: noop,
		models.JobTypeMessage:  noop,
		models.JobTypeInvite:   noop,
	}
}

func waitForStatus(t *testing.T, m *Manager, jobID, status string) models.Job {
	t.Helper()
	var job models.Job
	require.Eventually(t, func() bool {
		j, ok := m.Get(jobID)
		job = j
		return ok && j.Status == status
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached status %s", jobID, status)
	return job
}

func TestManager_StartValidation(t *testing.T) {
	m := newTestManager(t, noopRunners(), nil)

	_, err := m.Start("ghost", models.JobTypeScrape, "test")
	assert.ErrorIs(t, err, ErrUnknownBot)

	_, err = m.Start("off1", models.JobTypeScrape, "test")
	assert.ErrorIs(t, err, ErrBotDisabled)

	_, err = m.Start("lead1", "reticulate", "test")
	assert.ErrorIs(t, err, ErrUnknownJobType)
}

func TestManager_JobCompletes(t *testing.T) {
	m := newTestManager(t, noopRunners(), nil)

	jobID, err := m.Start("lead1", models.JobTypeScrape, "test")
	require.NoError(t, err)

	job := waitForStatus(t, m, jobID, models.JobStatusCompleted)
	assert.Equal(t, float64(100), job.Progress)
	assert.Equal(t, "lead1", job.BotID)
}

func TestManager_OneJobPerBot(t *testing.T) {
	release := make(chan struct{})
	runners := noopRunners()
	runners[models.JobTypeScrape] = funcRunner(func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
		<-release
		return nil
	})

	m := newTestManager(t, runners, nil)

	jobID, err := m.Start("lead1", models.JobTypeScrape, "test")
	require.NoError(t, err)

	_, err = m.Start("lead1", models.JobTypeClassify, "test")
	assert.ErrorIs(t, err, ErrBotBusy)

	// A different bot is unaffected.
	_, err = m.Start("inv1", models.JobTypeClassify, "test")
	assert.NoError(t, err)

	close(release)
	waitForStatus(t, m, jobID, models.JobStatusCompleted)

	// Once finished, the bot accepts new jobs again.
	_, err = m.Start("lead1", models.JobTypeClassify, "test")
	assert.NoError(t, err)
}

func TestManager_CancelRunningJob(t *testing.T) {
	runners := noopRunners()
	runners[models.JobTypeScrape] = funcRunner(func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
		<-ctx.Done()
		return ctx.Err()
	})

	m := newTestManager(t, runners, nil)

	jobID, err := m.Start("lead1", models.JobTypeScrape, "test")
	require.NoError(t, err)
	waitForStatus(t, m, jobID, models.JobStatusRunning)

	require.NoError(t, m.Cancel(jobID))
	waitForStatus(t, m, jobID, models.JobStatusCancelled)

	assert.ErrorIs(t, m.Cancel(jobID), ErrJobFinished)
	assert.ErrorIs(t, m.Cancel("no-such-job"), ErrJobNotFound)
}

func TestManager_FailureNotifies(t *testing.T) {
	runners := noopRunners()
	runners[models.JobTypeScrape] = funcRunner(func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
		return errors.New("browser crashed")
	})

	notifier := &MockNotifier{}
	notifier.On("JobFailed", mock.Anything, "Lead One", "browser crashed").Return()

	m := newTestManager(t, runners, notifier)

	jobID, err := m.Start("lead1", models.JobTypeScrape, "test")
	require.NoError(t, err)
	waitForStatus(t, m, jobID, models.JobStatusFailed)

	assert.Eventually(t, func() bool {
		return len(notifier.Calls) == 1
	}, 2*time.Second, 5*time.Millisecond)
	notifier.AssertExpectations(t)
}

func TestManager_FullPipelineStages(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) funcRunner {
		return func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			report(100, "")
			return nil
		}
	}

	runners := map[string]Runner{
		models.JobTypeScrape:   record("scrape"),
		models.JobTypeClassify: record("classify"),
		models.JobTypeMessage:  record("message"),
		models.JobTypeInvite:   record("invite"),
	}

	m := newTestManager(t, runners, nil)

	jobID, err := m.Start("lead1", models.JobTypeFull, "test")
	require.NoError(t, err)
	waitForStatus(t, m, jobID, models.JobStatusCompleted)

	mu.Lock()
	assert.Equal(t, []string{"scrape", "classify", "message"}, order)
	order = nil
	mu.Unlock()

	// The inviter bot's third stage is the invite runner.
	jobID, err = m.Start("inv1", models.JobTypeFull, "test")
	require.NoError(t, err)
	waitForStatus(t, m, jobID, models.JobStatusCompleted)

	mu.Lock()
	assert.Equal(t, []string{"scrape", "classify", "invite"}, order)
	mu.Unlock()
}

func TestManager_FullPipelineStageFailureStops(t *testing.T) {
	var messaged bool
	runners := noopRunners()
	runners[models.JobTypeClassify] = funcRunner(func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
		return errors.New("model unavailable")
	})
	runners[models.JobTypeMessage] = funcRunner(func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
		messaged = true
		return nil
	})

	m := newTestManager(t, runners, nil)

	jobID, err := m.Start("lead1", models.JobTypeFull, "test")
	require.NoError(t, err)
	waitForStatus(t, m, jobID, models.JobStatusFailed)

	assert.False(t, messaged, "stages after a failure must not run")
}

func TestManager_ActiveSnapshot(t *testing.T) {
	release := make(chan struct{})
	runners := noopRunners()
	runners[models.JobTypeScrape] = funcRunner(func(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
		<-release
		return nil
	})

	m := newTestManager(t, runners, nil)

	jobID, err := m.Start("lead1", models.JobTypeScrape, "test")
	require.NoError(t, err)

	snapshot := m.Snapshot()
	require.Len(t, snapshot.Jobs, 1)
	assert.Equal(t, jobID, snapshot.Jobs[0].JobID)

	close(release)
	waitForStatus(t, m, jobID, models.JobStatusCompleted)

	assert.Empty(t, m.Snapshot().Jobs, "finished jobs leave the stream snapshot")
}

func TestManager_PruneFinished(t *testing.T) {
	m := newTestManager(t, noopRunners(), nil)

	jobID, err := m.Start("lead1", models.JobTypeScrape, "test")
	require.NoError(t, err)
	waitForStatus(t, m, jobID, models.JobStatusCompleted)

	// Within the retention window the job stays queryable.
	m.pruneFinished(time.Hour)
	_, ok := m.Get(jobID)
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		m.pruneFinished(0)
		_, ok := m.Get(jobID)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}
