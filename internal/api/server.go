// Package api exposes the admin HTTP API the dashboard talks to.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/export"
	"github.com/groupleads/leadbot-admin/internal/jobs"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Server wires the admin API handlers to their dependencies.
type Server struct {
	config    *config.Config
	bots      *config.BotRegistry
	db        *storage.Database
	posts     *storage.PostStore
	groups    *storage.GroupStore
	messages  *storage.MessageStore
	manager   *jobs.Manager
	exporter  *export.Service
	startTime time.Time
}

// NewServer creates the admin API server.
func NewServer(cfg *config.Config, bots *config.BotRegistry, db *storage.Database,
	posts *storage.PostStore, groups *storage.GroupStore, messages *storage.MessageStore,
	manager *jobs.Manager, exporter *export.Service) *Server {
	return &Server{
		config:    cfg,
		bots:      bots,
		db:        db,
		posts:     posts,
		groups:    groups,
		messages:  messages,
		manager:   manager,
		exporter:  exporter,
		startTime: time.Now(),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/leads", s.handleListLeads).Methods("GET")
	api.HandleFunc("/leads/{id}/unmark", s.handleUnmarkLead).Methods("POST")
	api.HandleFunc("/leads/{id}", s.handleDeleteLead).Methods("DELETE")

	api.HandleFunc("/contacted", s.handleListContacted).Methods("GET")
	api.HandleFunc("/contacted/{id}/reset", s.handleResetContact).Methods("POST")

	api.HandleFunc("/messages", s.handleListMessages).Methods("GET")

	api.HandleFunc("/groups", s.handleListGroups).Methods("GET")
	api.HandleFunc("/groups/{botId}/{groupId}/scrape-date", s.handleUpdateScrapeDate).Methods("PATCH")

	api.HandleFunc("/bots", s.handleListBots).Methods("GET")
	api.HandleFunc("/bots/{botId}", s.handleGetBot).Methods("GET")
	api.HandleFunc("/bots/{botId}/{action}", s.handleStartJob).Methods("POST")

	api.HandleFunc("/jobs/{jobId}/cancel", s.handleCancelJob).Methods("POST")
	api.HandleFunc("/jobs/stream", s.handleJobsStream).Methods("GET")

	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/export", s.handleExport).Methods("POST")
	api.HandleFunc("/exports", s.handleListExports).Methods("GET")
	api.HandleFunc("/exports/{name}", s.handleGetExport).Methods("GET")
	api.HandleFunc("/exports/{name}", s.handleDeleteExport).Methods("DELETE")

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

// routeTemplate returns the mux route template for metric labels.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return template
}

// detailResponse is the error body every non-2xx response carries.
type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// pageParams reads page/per_page query parameters with the API defaults.
func pageParams(r *http.Request) (page, perPage int) {
	page = 1
	perPage = defaultPerPage

	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			perPage = parsed
		}
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.db.DB().Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{
		"status":    status,
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
