// Package jobs orchestrates background pipeline jobs (scrape, classify,
// message, invite, full pipeline) for configured bots.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/models"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

// ProgressFunc reports job progress (0-100) and the current step label.
type ProgressFunc func(progress float64, step string)

// Runner executes one pipeline stage for a bot.
type Runner interface {
	Run(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error
}

// Notifier receives job failure alerts. Implemented by the notifications
// service; kept as a local interface so this package stays decoupled.
type Notifier interface {
	JobFailed(job models.Job, botName, errMessage string)
}

// Errors surfaced to the API layer.
var (
	ErrUnknownBot     = errors.New("unknown bot")
	ErrBotDisabled    = errors.New("bot is disabled")
	ErrUnknownJobType = errors.New("unknown job type")
	ErrBotBusy        = errors.New("bot already has a job running")
	ErrJobNotFound    = errors.New("job not found")
	ErrJobFinished    = errors.New("job already finished")
)

const (
	finishedRetention = 10 * time.Minute
	cleanupInterval   = 5 * time.Minute
)

type jobContext struct {
	job        models.Job
	cancel     context.CancelFunc
	finishedAt time.Time
}

// Manager owns all live job state. The database trails it for history; the
// jobs stream reads snapshots from here.
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*jobContext
	store    *storage.JobStore
	bots     *config.BotRegistry
	runners  map[string]Runner
	notifier Notifier

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a job manager. The runners map is keyed by job type
// (scrape, classify, message, invite); the full pipeline is composed from
// those. notifier may be nil.
func NewManager(store *storage.JobStore, bots *config.BotRegistry, runners map[string]Runner, notifier Notifier) *Manager {
	m := &Manager{
		jobs:     make(map[string]*jobContext),
		store:    store,
		bots:     bots,
		runners:  runners,
		notifier: notifier,
		done:     make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// Start launches a new background job for a bot and returns its id.
// A bot can only run one job at a time.
func (m *Manager) Start(botID, jobType, triggeredBy string) (string, error) {
	bot := m.bots.Get(botID)
	if bot == nil {
		return "", ErrUnknownBot
	}
	if !bot.Enabled {
		return "", ErrBotDisabled
	}

	switch jobType {
	case models.JobTypeScrape, models.JobTypeClassify, models.JobTypeMessage,
		models.JobTypeInvite, models.JobTypeFull:
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, jc := range m.jobs {
		if jc.job.BotID == botID && jc.job.Active() {
			return "", ErrBotBusy
		}
	}

	jobID := uuid.NewString()
	job := models.Job{
		JobID:     jobID,
		BotID:     botID,
		JobType:   jobType,
		Status:    models.JobStatusPending,
		StartedAt: time.Now().UTC(),
	}

	if err := m.store.Create(job, triggeredBy); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	jc := &jobContext{job: job, cancel: cancel}
	m.jobs[jobID] = jc

	logrus.Infof("Starting job %s: %s for bot %s (triggered by %s)", jobID, jobType, botID, triggeredBy)

	m.wg.Add(1)
	go m.run(ctx, jc, bot)

	return jobID, nil
}

func (m *Manager) run(ctx context.Context, jc *jobContext, bot *config.BotConfig) {
	defer m.wg.Done()

	jobID := jc.job.JobID
	m.update(jc, models.JobStatusRunning, 0, "Starting...", "")

	err := m.execute(ctx, jc, bot)

	switch {
	case err == nil:
		m.update(jc, models.JobStatusCompleted, 100, "", "")
		logrus.Infof("Job %s completed successfully", jobID)

	case errors.Is(err, context.Canceled):
		m.update(jc, models.JobStatusCancelled, jc.job.Progress, "", "cancelled by operator")
		logrus.Warnf("Job %s was cancelled", jobID)

	default:
		m.update(jc, models.JobStatusFailed, jc.job.Progress, "", err.Error())
		logrus.Errorf("Job %s failed: %v", jobID, err)
		if m.notifier != nil {
			m.notifier.JobFailed(jc.job, bot.Name, err.Error())
		}
	}

	m.mu.Lock()
	jc.finishedAt = time.Now()
	m.mu.Unlock()
}

func (m *Manager) execute(ctx context.Context, jc *jobContext, bot *config.BotConfig) error {
	report := func(progress float64, step string) {
		m.update(jc, models.JobStatusRunning, progress, step, "")
	}

	if jc.job.JobType == models.JobTypeFull {
		return m.runFullPipeline(ctx, jc, bot)
	}

	runner, ok := m.runners[jc.job.JobType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, jc.job.JobType)
	}
	return runner.Run(ctx, bot, report)
}

// runFullPipeline runs scrape, classify and the bot's process step in
// sequence, with progress pinned at 0/33/66/100 between stages.
func (m *Manager) runFullPipeline(ctx context.Context, jc *jobContext, bot *config.BotConfig) error {
	processType := models.JobTypeMessage
	if bot.BotType == models.BotTypeInviter {
		processType = models.JobTypeInvite
	}

	stages := []struct {
		jobType  string
		label    string
		progress float64
	}{
		{models.JobTypeScrape, "Step 1/3: Scraping", 0},
		{models.JobTypeClassify, "Step 2/3: Classifying", 33},
		{processType, "Step 3/3: Processing", 66},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		runner, ok := m.runners[stage.jobType]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownJobType, stage.jobType)
		}

		m.update(jc, models.JobStatusRunning, stage.progress, stage.label, "")

		// Stage runners report their own 0-100; scale into this stage's third.
		base := stage.progress
		report := func(progress float64, step string) {
			if step == "" {
				step = stage.label
			}
			m.update(jc, models.JobStatusRunning, base+progress/3, step, "")
		}

		if err := runner.Run(ctx, bot, report); err != nil {
			return fmt.Errorf("%s failed: %w", stage.jobType, err)
		}
	}

	return nil
}

func (m *Manager) update(jc *jobContext, status string, progress float64, step, logMessage string) {
	m.mu.Lock()
	jc.job.Status = status
	jc.job.Progress = progress
	jc.job.CurrentStep = step
	job := jc.job
	m.mu.Unlock()

	if err := m.store.Update(job.JobID, status, progress, step, logMessage); err != nil {
		logrus.Errorf("Failed to persist job %s update: %v", job.JobID, err)
	}
}

// Cancel requests cancellation of a running job.
func (m *Manager) Cancel(jobID string) error {
	m.mu.RLock()
	jc, ok := m.jobs[jobID]
	var active bool
	if ok {
		active = jc.job.Active()
	}
	m.mu.RUnlock()

	if !ok {
		return ErrJobNotFound
	}
	if !active {
		return ErrJobFinished
	}

	logrus.Infof("Cancelling job %s", jobID)
	jc.cancel()
	return nil
}

// Get returns a snapshot of one job.
func (m *Manager) Get(jobID string) (models.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jc, ok := m.jobs[jobID]
	if !ok {
		return models.Job{}, false
	}
	return jc.job, true
}

// Active returns a snapshot of all pending and running jobs, oldest first.
func (m *Manager) Active() []models.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]models.Job, 0, len(m.jobs))
	for _, jc := range m.jobs {
		if jc.job.Active() {
			jobs = append(jobs, jc.job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.Before(jobs[j].StartedAt) })
	return jobs
}

// Snapshot returns the payload for one jobs-stream event.
func (m *Manager) Snapshot() models.JobsSnapshot {
	return models.JobsSnapshot{Jobs: m.Active()}
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.pruneFinished(finishedRetention)
		}
	}
}

// pruneFinished drops finished jobs from memory once they are older than the
// retention window. History stays in the database.
func (m *Manager) pruneFinished(retention time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for jobID, jc := range m.jobs {
		if jc.job.Finished() && !jc.finishedAt.IsZero() && time.Since(jc.finishedAt) > retention {
			delete(m.jobs, jobID)
			logrus.Debugf("Cleaned up old job: %s", jobID)
		}
	}
}

// Close cancels all running jobs and stops the cleanup loop.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, jc := range m.jobs {
		if jc.job.Active() {
			jc.cancel()
		}
	}
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}
