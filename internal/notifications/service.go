// Package notifications delivers job alerts and sync reports to the operator
// via email and an optional JSON webhook.
package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/models"
)

// Service handles sending notifications via the configured channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// webhookPayload is the body posted to the alert webhook.
type webhookPayload struct {
	Event     string `json:"event"`
	BotID     string `json:"bot_id,omitempty"`
	BotName   string `json:"bot_name,omitempty"`
	JobID     string `json:"job_id,omitempty"`
	JobType   string `json:"job_type,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendJobFailure notifies the operator that a background job failed.
func (s *Service) SendJobFailure(job models.Job, botName, errMessage string) error {
	subject := fmt.Sprintf("Job failed: %s for %s", job.JobType, botName)
	body := fmt.Sprintf(
		"Job %s (%s) for bot %s failed.\n\nStarted: %s\nError: %s\n",
		job.JobID, job.JobType, botName,
		job.StartedAt.Format("2006-01-02 15:04:05 UTC"), errMessage,
	)

	payload := &webhookPayload{
		Event:     "job_failed",
		BotID:     job.BotID,
		BotName:   botName,
		JobID:     job.JobID,
		JobType:   job.JobType,
		Detail:    errMessage,
		Text:      subject,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return s.deliver(subject, body, payload)
}

// SendSyncReport sends the per-bot group sync overview.
func (s *Service) SendSyncReport(groups []models.GroupRecord) error {
	body := BuildSyncReport(groups)
	errCount := 0
	for _, g := range groups {
		if g.LastRunError {
			errCount++
		}
	}

	subject := fmt.Sprintf("Group sync status: %d groups, %d with errors", len(groups), errCount)
	payload := &webhookPayload{
		Event:     "sync_report",
		Detail:    body,
		Text:      subject,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return s.deliver(subject, body, payload)
}

func (s *Service) deliver(subject, body string, payload *webhookPayload) error {
	var errors []string

	if s.config.AlertWebhookURL != "" {
		if err := s.sendWebhook(payload); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent webhook notification")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(subject, body); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent email notification")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendWebhook(payload *webhookPayload) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.config.AlertWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) sendEmail(subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// BuildSyncReport renders the group sync overview grouped by bot, the same
// shape the check-sync-status CLI prints.
func BuildSyncReport(groups []models.GroupRecord) string {
	byBot := make(map[string][]models.GroupRecord)
	var botOrder []string
	for _, g := range groups {
		bot := g.BotID
		if bot == "" {
			bot = "unknown"
		}
		if _, seen := byBot[bot]; !seen {
			botOrder = append(botOrder, bot)
		}
		byBot[bot] = append(byBot[bot], g)
	}

	var b strings.Builder
	for _, bot := range botOrder {
		fmt.Fprintf(&b, "Bot: %s (%d groups)\n", bot, len(byBot[bot]))
		for _, g := range byBot[bot] {
			lastSync := "Never"
			if g.LastScrapeDate != nil {
				lastSync = g.LastScrapeDate.Format("2006-01-02 15:04:05")
			}
			status := "OK"
			if g.LastRunError {
				status = "ERROR"
			}
			fmt.Fprintf(&b, "  Group %s | Last Sync: %s | Status: %s\n", g.GroupID, lastSync, status)
			if g.LastRunError && g.LastErrorMessage != "" {
				fmt.Fprintf(&b, "    Error: %s\n", g.LastErrorMessage)
			}
		}
	}
	if b.Len() == 0 {
		return "No groups configured.\n"
	}
	return b.String()
}

// JobFailed adapts the service to the job manager's Notifier interface.
func (s *Service) JobFailed(job models.Job, botName, errMessage string) {
	if err := s.SendJobFailure(job, botName, errMessage); err != nil {
		logrus.Errorf("Failed to deliver job failure alert: %v", err)
	}
}
