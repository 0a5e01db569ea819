package models

import "time"

// Bot types determine which pipeline steps a bot runs and how leads are acted on.
const (
	BotTypeLead    = "lead_bot"    // finds leads, sends private messages
	BotTypeInviter = "inviter_bot" // finds candidates, invites them to a group
)

// Job lifecycle statuses. Jobs are server-owned; clients only observe them.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job types accepted by the job manager.
const (
	JobTypeScrape   = "scrape"
	JobTypeClassify = "classify"
	JobTypeMessage  = "message"
	JobTypeInvite   = "invite"
	JobTypeFull     = "full"
)

// Post is a scraped group post as stored in the database. A post becomes a
// lead once the classifier marks it, and leaves the leads view once contacted
// or deleted.
type Post struct {
	ID          int64     `json:"id"`
	PostID      string    `json:"post_id"`
	Author      string    `json:"author"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	IsLead      bool      `json:"is_lead"`
	IsContacted bool      `json:"is_contacted"`
	Classified  bool      `json:"classified"`
	CreatedAt   time.Time `json:"created_at"`
	GroupID     string    `json:"group_id"`
	BotID       string    `json:"bot_id"`
}

// Lead is the wire representation of a lead row served by the admin API.
type Lead struct {
	PostID    string `json:"post_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	GroupID   string `json:"group_id"`
}

// MessageRecord is a sent outreach message as stored in the database.
// Records are immutable history; the admin API serves them read-only.
type MessageRecord struct {
	ID          int64     `json:"id"`
	SentAt      time.Time `json:"sent_at"`
	PostAuthor  string    `json:"post_author"`
	PostContent string    `json:"post_content"`
	Content     string    `json:"content"`
	GroupID     string    `json:"group_id"`
	BotID       string    `json:"bot_id"`
}

// Message is the wire representation of a sent message.
type Message struct {
	SentAt      string `json:"sent_at"`
	PostAuthor  string `json:"post_author"`
	PostContent string `json:"post_content"`
	Content     string `json:"content"`
	GroupID     string `json:"group_id"`
}

// GroupRecord is a scrape target as stored in the database. LastScrapeDate is
// nil until the first successful scrape and is operator-editable to force
// re-scraping of older content.
type GroupRecord struct {
	GroupID          string     `json:"group_id"`
	BotID            string     `json:"bot_id"`
	LastScrapeDate   *time.Time `json:"last_scrape_date"`
	LastRunError     bool       `json:"last_run_error"`
	LastErrorMessage string     `json:"last_error_message"`
}

// Group is the wire representation of a scrape target.
// LastScrapeDateISO is either a valid ISO-8601 timestamp or absent.
type Group struct {
	GroupID           string `json:"group_id"`
	BotID             string `json:"bot_id"`
	LastScrapeDate    string `json:"last_scrape_date"`
	LastScrapeDateISO string `json:"last_scrape_date_iso,omitempty"`
	LastRunError      bool   `json:"last_run_error"`
	LastErrorMessage  string `json:"last_error_message"`
}

// Bot is a configured persona/target-group set. Groups is populated on the
// detail endpoint only.
type Bot struct {
	BotID       string   `json:"bot_id"`
	Name        string   `json:"name"`
	BotType     string   `json:"bot_type"`
	Description string   `json:"description,omitempty"`
	Enabled     bool     `json:"enabled"`
	Groups      []string `json:"groups,omitempty"`
}

// Job is an asynchronous background task tracked by id, status and progress.
type Job struct {
	JobID       string    `json:"job_id"`
	BotID       string    `json:"bot_id"`
	JobType     string    `json:"job_type"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	CurrentStep string    `json:"current_step,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// Finished reports whether the job has reached a terminal status.
func (j Job) Finished() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the job still occupies its bot.
func (j Job) Active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// JobsSnapshot is the payload pushed on the jobs stream.
type JobsSnapshot struct {
	Jobs []Job `json:"jobs"`
}

// Page is the pagination envelope every collection endpoint returns.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	PerPage    int `json:"per_page"`
}

// Stats summarizes the database for the dashboard header.
type Stats struct {
	Leads            int `json:"leads"`
	Contacted        int `json:"contacted"`
	Messages         int `json:"messages"`
	Groups           int `json:"groups"`
	GroupsWithErrors int `json:"groups_with_errors"`
}

const displayTimeLayout = "2006-01-02 15:04:05"

// ToLead converts a stored post to its wire shape, truncating long content
// the same way the admin panel always has.
func (p Post) ToLead() Lead {
	return Lead{
		PostID:    p.PostID,
		Author:    p.Author,
		Content:   TruncateContent(p.Content),
		CreatedAt: p.CreatedAt.Format(displayTimeLayout),
		GroupID:   p.GroupID,
	}
}

// ToMessage converts a stored message record to its wire shape.
func (m MessageRecord) ToMessage() Message {
	return Message{
		SentAt:      m.SentAt.Format(displayTimeLayout),
		PostAuthor:  m.PostAuthor,
		PostContent: TruncateContent(m.PostContent),
		Content:     m.Content,
		GroupID:     m.GroupID,
	}
}

// ToGroup converts a stored group record to its wire shape.
func (g GroupRecord) ToGroup() Group {
	out := Group{
		GroupID:          g.GroupID,
		BotID:            g.BotID,
		LastScrapeDate:   "Never",
		LastRunError:     g.LastRunError,
		LastErrorMessage: g.LastErrorMessage,
	}
	if g.LastScrapeDate != nil {
		out.LastScrapeDate = g.LastScrapeDate.Format(displayTimeLayout)
		out.LastScrapeDateISO = g.LastScrapeDate.Format(time.RFC3339)
	}
	return out
}

// TruncateContent shortens post content to 200 characters for list views.
func TruncateContent(content string) string {
	const limit = 200
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
