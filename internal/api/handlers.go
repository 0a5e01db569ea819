package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/models"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	botID := r.URL.Query().Get("bot_id")

	posts, total, err := s.posts.ListLeads(botID, page, perPage)
	if err != nil {
		logrus.Errorf("Failed to list leads: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, leadPage(posts, total, perPage))
}

func (s *Server) handleListContacted(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	botID := r.URL.Query().Get("bot_id")

	posts, total, err := s.posts.ListContacted(botID, page, perPage)
	if err != nil {
		logrus.Errorf("Failed to list contacted leads: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to list contacted leads")
		return
	}

	writeJSON(w, http.StatusOK, leadPage(posts, total, perPage))
}

func leadPage(posts []models.Post, total, perPage int) models.Page[models.Lead] {
	leads := make([]models.Lead, 0, len(posts))
	for _, p := range posts {
		leads = append(leads, p.ToLead())
	}
	return models.Page[models.Lead]{
		Data:       leads,
		Total:      total,
		TotalPages: storage.TotalPages(total, perPage),
		PerPage:    perPage,
	}
}

func (s *Server) handleUnmarkLead(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	if err := s.posts.Unmark(postID); err != nil {
		s.writeRowActionError(w, "unmark lead", postID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	if err := s.posts.Delete(postID); err != nil {
		s.writeRowActionError(w, "delete lead", postID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleResetContact(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	if err := s.posts.ResetContact(postID); err != nil {
		s.writeRowActionError(w, "reset contact", postID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) writeRowActionError(w http.ResponseWriter, action, postID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "post not found")
		return
	}
	logrus.Errorf("Failed to %s %s: %v", action, postID, err)
	writeDetail(w, http.StatusInternalServerError, "failed to "+action)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)

	records, total, err := s.messages.List(page, perPage)
	if err != nil {
		logrus.Errorf("Failed to list messages: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	messages := make([]models.Message, 0, len(records))
	for _, m := range records {
		messages = append(messages, m.ToMessage())
	}

	writeJSON(w, http.StatusOK, models.Page[models.Message]{
		Data:       messages,
		Total:      total,
		TotalPages: storage.TotalPages(total, perPage),
		PerPage:    perPage,
	})
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	botID := r.URL.Query().Get("bot_id")

	records, total, err := s.groups.List(botID, page, perPage)
	if err != nil {
		logrus.Errorf("Failed to list groups: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to list groups")
		return
	}

	groups := make([]models.Group, 0, len(records))
	for _, g := range records {
		groups = append(groups, g.ToGroup())
	}

	writeJSON(w, http.StatusOK, models.Page[models.Group]{
		Data:       groups,
		Total:      total,
		TotalPages: storage.TotalPages(total, perPage),
		PerPage:    perPage,
	})
}

// scrapeDateRequest is the PATCH body for a scrape-date override.
type scrapeDateRequest struct {
	ScrapeDate string `json:"scrape_date"`
}

// Accepted timestamp layouts for the scrape-date editor. The HTML
// datetime-local input omits seconds and zone.
var scrapeDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseScrapeDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range scrapeDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (s *Server) handleUpdateScrapeDate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	botID := vars["botId"]
	groupID := vars["groupId"]

	var req scrapeDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	scrapeDate, err := parseScrapeDate(req.ScrapeDate)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "scrape_date must be an ISO-8601 timestamp")
		return
	}

	if err := s.groups.SetScrapeDate(groupID, botID, scrapeDate); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "group not found")
			return
		}
		logrus.Errorf("Failed to update scrape date for %s/%s: %v", botID, groupID, err)
		writeDetail(w, http.StatusInternalServerError, "failed to update scrape date")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"new_scrape_date": scrapeDate.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled_only") == "true"
	writeJSON(w, http.StatusOK, map[string][]models.Bot{
		"bots": s.bots.List(enabledOnly),
	})
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	botID := mux.Vars(r)["botId"]

	bot := s.bots.Get(botID)
	if bot == nil {
		writeDetail(w, http.StatusNotFound, "bot not found")
		return
	}

	writeJSON(w, http.StatusOK, bot.ToBot(true))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	leads, contacted, err := s.posts.CountLeads()
	if err != nil {
		logrus.Errorf("Failed to compute stats: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	messages, err := s.messages.Count()
	if err != nil {
		logrus.Errorf("Failed to compute stats: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	groups, groupsWithErrors, err := s.groups.Counts()
	if err != nil {
		logrus.Errorf("Failed to compute stats: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, models.Stats{
		Leads:            leads,
		Contacted:        contacted,
		Messages:         messages,
		Groups:           groups,
		GroupsWithErrors: groupsWithErrors,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeDetail(w, http.StatusServiceUnavailable, "export archive is not configured")
		return
	}

	name, err := s.exporter.Run(r.URL.Query().Get("bot_id"))
	if err != nil {
		logrus.Errorf("Export failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"export": name})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeDetail(w, http.StatusServiceUnavailable, "export archive is not configured")
		return
	}

	names, err := s.exporter.List()
	if err != nil {
		logrus.Errorf("Failed to list exports: %v", err)
		writeDetail(w, http.StatusInternalServerError, "failed to list exports")
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, map[string][]string{"exports": names})
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeDetail(w, http.StatusServiceUnavailable, "export archive is not configured")
		return
	}

	name := mux.Vars(r)["name"]
	data, err := s.exporter.Fetch(name)
	if err != nil {
		logrus.Warnf("Export %s not retrievable: %v", name, err)
		writeDetail(w, http.StatusNotFound, "export not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logrus.Errorf("Failed to write export %s: %v", name, err)
	}
}

func (s *Server) handleDeleteExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeDetail(w, http.StatusServiceUnavailable, "export archive is not configured")
		return
	}

	name := mux.Vars(r)["name"]
	if err := s.exporter.Delete(name); err != nil {
		logrus.Warnf("Export %s not deletable: %v", name, err)
		writeDetail(w, http.StatusNotFound, "export not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}
