// Package scheduler runs the recurring work: scheduled bot pipelines, the
// nightly sync-status report and the weekly lead export.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/export"
	"github.com/groupleads/leadbot-admin/internal/jobs"
	"github.com/groupleads/leadbot-admin/internal/models"
	"github.com/groupleads/leadbot-admin/internal/notifications"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

// Service handles scheduling of recurring tasks
type Service struct {
	config        *config.Config
	bots          *config.BotRegistry
	manager       *jobs.Manager
	groups        *storage.GroupStore
	exporter      *export.Service
	notifications notifications.NotificationInterface
	cron          *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, bots *config.BotRegistry, manager *jobs.Manager,
	groups *storage.GroupStore, exporter *export.Service,
	notificationService notifications.NotificationInterface) *Service {
	return &Service{
		config:        cfg,
		bots:          bots,
		manager:       manager,
		groups:        groups,
		exporter:      exporter,
		notifications: notificationService,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start registers all recurring jobs and starts the cron loop
func (s *Service) Start() error {
	scheduled := 0

	for i := range s.bots.Bots {
		bot := &s.bots.Bots[i]
		if !bot.Enabled || bot.Schedule == "" {
			continue
		}

		botID := bot.BotID
		_, err := s.cron.AddFunc(bot.Schedule, func() {
			logrus.Infof("Starting scheduled full pipeline for bot %s", botID)
			if _, err := s.manager.Start(botID, models.JobTypeFull, "scheduler"); err != nil {
				logrus.Errorf("Scheduled run for bot %s failed to start: %v", botID, err)
			}
		})
		if err != nil {
			return err
		}
		scheduled++
	}

	if s.config.SyncReportSchedule != "" {
		_, err := s.cron.AddFunc(s.config.SyncReportSchedule, s.runSyncReport)
		if err != nil {
			return err
		}
	}

	if s.config.ExportSchedule != "" && s.exporter != nil {
		_, err := s.cron.AddFunc(s.config.ExportSchedule, s.runExport)
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started: %d bot schedules, sync report %q, export %q",
		scheduled, s.config.SyncReportSchedule, s.config.ExportSchedule)
	return nil
}

func (s *Service) runSyncReport() {
	logrus.Info("Running scheduled sync-status report")

	groups, err := s.groups.All()
	if err != nil {
		logrus.Errorf("Sync report failed to load groups: %v", err)
		return
	}

	if err := s.notifications.SendSyncReport(groups); err != nil {
		logrus.Errorf("Sync report delivery failed: %v", err)
	}
}

func (s *Service) runExport() {
	logrus.Info("Running scheduled lead export")

	name, err := s.exporter.Run("")
	if err != nil {
		logrus.Errorf("Scheduled export failed: %v", err)
		return
	}
	logrus.Infof("Scheduled export stored as %s", name)
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
