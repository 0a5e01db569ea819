package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// APIError carries the status code and server-provided detail of a non-2xx
// response, so callers can surface the backend's own message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Client is the typed admin-API client the dashboard runs on.
type Client struct {
	rest    *resty.Client
	baseURL string
}

// NewClient creates a client for the admin API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		rest:    resty.New().SetBaseURL(baseURL).SetTimeout(15 * time.Second),
		baseURL: baseURL,
	}
}

// StreamURL returns the SSE endpoint for the jobs stream.
func (c *Client) StreamURL() string {
	return c.baseURL + "/api/jobs/stream"
}

func apiError(resp *resty.Response) error {
	var detail struct {
		Detail string `json:"detail"`
	}
	// Best effort; the body may not be JSON at all.
	_ = json.Unmarshal(resp.Body(), &detail)
	return &APIError{StatusCode: resp.StatusCode(), Detail: detail.Detail}
}

func decode[T any](resp *resty.Response, out *T) error {
	if resp.IsError() {
		return apiError(resp)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func pagedQuery(botID string, page, perPage int) map[string]string {
	params := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}
	if botID != "" {
		params["bot_id"] = botID
	}
	return params
}

// Leads fetches one page of uncontacted leads.
func (c *Client) Leads(ctx context.Context, botID string, page, perPage int) (*models.Page[models.Lead], error) {
	resp, err := c.rest.R().SetContext(ctx).
		SetQueryParams(pagedQuery(botID, page, perPage)).
		Get("/api/leads")
	if err != nil {
		return nil, err
	}
	var out models.Page[models.Lead]
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Contacted fetches one page of contacted leads.
func (c *Client) Contacted(ctx context.Context, botID string, page, perPage int) (*models.Page[models.Lead], error) {
	resp, err := c.rest.R().SetContext(ctx).
		SetQueryParams(pagedQuery(botID, page, perPage)).
		Get("/api/contacted")
	if err != nil {
		return nil, err
	}
	var out models.Page[models.Lead]
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages fetches one page of sent-message history.
func (c *Client) Messages(ctx context.Context, page, perPage int) (*models.Page[models.Message], error) {
	resp, err := c.rest.R().SetContext(ctx).
		SetQueryParams(pagedQuery("", page, perPage)).
		Get("/api/messages")
	if err != nil {
		return nil, err
	}
	var out models.Page[models.Message]
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Groups fetches one page of scrape targets.
func (c *Client) Groups(ctx context.Context, botID string, page, perPage int) (*models.Page[models.Group], error) {
	resp, err := c.rest.R().SetContext(ctx).
		SetQueryParams(pagedQuery(botID, page, perPage)).
		Get("/api/groups")
	if err != nil {
		return nil, err
	}
	var out models.Page[models.Group]
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bots fetches all configured bots, disabled ones included.
func (c *Client) Bots(ctx context.Context) ([]models.Bot, error) {
	resp, err := c.rest.R().SetContext(ctx).
		SetQueryParam("enabled_only", "false").
		Get("/api/bots")
	if err != nil {
		return nil, err
	}
	var out struct {
		Bots []models.Bot `json:"bots"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Bots, nil
}

// Bot fetches one bot's detail, including its group list.
func (c *Client) Bot(ctx context.Context, botID string) (*models.Bot, error) {
	resp, err := c.rest.R().SetContext(ctx).Get("/api/bots/" + botID)
	if err != nil {
		return nil, err
	}
	var out models.Bot
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartJob asks the backend to start a job. jobType "full" maps to the
// run-full endpoint; everything else passes through as the action segment.
func (c *Client) StartJob(ctx context.Context, botID, jobType string) (string, error) {
	action := jobType
	if jobType == models.JobTypeFull {
		action = "run-full"
	}

	resp, err := c.rest.R().SetContext(ctx).
		Post(fmt.Sprintf("/api/bots/%s/%s", botID, action))
	if err != nil {
		return "", err
	}
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := decode(resp, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// CancelJob requests cancellation of a job.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	resp, err := c.rest.R().SetContext(ctx).
		Post(fmt.Sprintf("/api/jobs/%s/cancel", jobID))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// UnmarkLead clears a post's lead flag.
func (c *Client) UnmarkLead(ctx context.Context, postID string) error {
	return c.simplePost(ctx, fmt.Sprintf("/api/leads/%s/unmark", postID))
}

// DeleteLead removes a post entirely.
func (c *Client) DeleteLead(ctx context.Context, postID string) error {
	resp, err := c.rest.R().SetContext(ctx).Delete("/api/leads/" + postID)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// ResetContact moves a contacted lead back to the leads view.
func (c *Client) ResetContact(ctx context.Context, postID string) error {
	return c.simplePost(ctx, fmt.Sprintf("/api/contacted/%s/reset", postID))
}

func (c *Client) simplePost(ctx context.Context, path string) error {
	resp, err := c.rest.R().SetContext(ctx).Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// UpdateScrapeDate PATCHes a group's scrape-date override and returns the
// timestamp the server recorded.
func (c *Client) UpdateScrapeDate(ctx context.Context, botID, groupID string, scrapeDate time.Time) (time.Time, error) {
	resp, err := c.rest.R().SetContext(ctx).
		SetBody(map[string]string{"scrape_date": scrapeDate.Format(time.RFC3339)}).
		Patch(fmt.Sprintf("/api/groups/%s/%s/scrape-date", botID, groupID))
	if err != nil {
		return time.Time{}, err
	}
	var out struct {
		NewScrapeDate string `json:"new_scrape_date"`
	}
	if err := decode(resp, &out); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, out.NewScrapeDate)
}

// Stats fetches the dashboard header stats.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	resp, err := c.rest.R().SetContext(ctx).Get("/api/stats")
	if err != nil {
		return nil, err
	}
	var out models.Stats
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
