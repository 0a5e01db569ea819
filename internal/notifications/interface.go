package notifications

import "github.com/groupleads/leadbot-admin/internal/models"

// NotificationInterface defines the contract for operator notifications
type NotificationInterface interface {
	SendJobFailure(job models.Job, botName, errMessage string) error
	SendSyncReport(groups []models.GroupRecord) error
}
