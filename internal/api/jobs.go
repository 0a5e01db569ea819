package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/jobs"
	"github.com/groupleads/leadbot-admin/internal/models"
)

// snapshotInterval is how often the jobs stream pushes a full snapshot.
const snapshotInterval = time.Second

// actionJobType maps the action path segment to the manager's job type.
// Unknown actions pass through and are rejected by the manager.
func actionJobType(action string) string {
	if action == "run-full" {
		return models.JobTypeFull
	}
	return action
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	botID := vars["botId"]
	jobType := actionJobType(vars["action"])

	jobID, err := s.manager.Start(botID, jobType, "api")
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrUnknownBot):
			writeDetail(w, http.StatusNotFound, "bot not found")
		case errors.Is(err, jobs.ErrBotDisabled):
			writeDetail(w, http.StatusConflict, fmt.Sprintf("bot %s is disabled", botID))
		case errors.Is(err, jobs.ErrBotBusy):
			writeDetail(w, http.StatusConflict, fmt.Sprintf("bot %s already has a job running", botID))
		case errors.Is(err, jobs.ErrUnknownJobType):
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", vars["action"]))
		default:
			logrus.Errorf("Failed to start %s job for bot %s: %v", jobType, botID, err)
			writeDetail(w, http.StatusInternalServerError, "failed to start job")
		}
		return
	}

	jobsStarted.WithLabelValues(jobType).Inc()
	writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	if err := s.manager.Cancel(jobID); err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			writeDetail(w, http.StatusNotFound, "job not found")
		case errors.Is(err, jobs.ErrJobFinished):
			writeDetail(w, http.StatusConflict, "job already finished")
		default:
			logrus.Errorf("Failed to cancel job %s: %v", jobID, err)
			writeDetail(w, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleJobsStream pushes job snapshots over SSE: one on connect, then one
// per second until the client goes away.
func (s *Server) handleJobsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	streamClients.Inc()
	defer streamClients.Dec()

	logrus.Debugf("Jobs stream client connected: %s", r.RemoteAddr)

	if err := writeSnapshot(w, s.manager.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logrus.Debugf("Jobs stream client disconnected: %s", r.RemoteAddr)
			return
		case <-ticker.C:
			if err := writeSnapshot(w, s.manager.Snapshot()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshot(w http.ResponseWriter, snapshot models.JobsSnapshot) error {
	if snapshot.Jobs == nil {
		snapshot.Jobs = []models.Job{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
