package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/repository"
)

type scrapeRequest struct {
	StartDate          string   `json:"start_date,omitempty"`
	DaysAhead          int      `json:"days_ahead,omitempty"`
	EnableScreenBoston *bool    `json:"enable_screen_boston,omitempty"`
	EnableCoolidge     *bool    `json:"enable_coolidge,omitempty"`
	EnableHFA          *bool    `json:"enable_hfa,omitempty"`
	EnableBrattle      *bool    `json:"enable_brattle,omitempty"`
	TimeoutSeconds     int      `json:"timeout_seconds,omitempty"`
	MaxRetries         int      `json:"max_retries,omitempty"`
	RetryDelaySeconds  float64  `json:"retry_delay_seconds,omitempty"`
}

// Scrape starts a scrape job. The body is optional; omitted fields keep the
// operator defaults (today, all sources, configured window and retry policy).
func (api *API) Scrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	cfg := api.scrapeDefaults.Normalize()
	if r.Body != nil && r.ContentLength != 0 {
		var request scrapeRequest
		if err := decodeJSON(r, &request); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
		if strings.TrimSpace(request.StartDate) != "" {
			parsed, err := time.Parse("2006-01-02", request.StartDate)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "invalid_request", "start_date must be YYYY-MM-DD")
				return
			}
			cfg.StartDate = domain.NewDate(parsed.Year(), parsed.Month(), parsed.Day())
		}
		if request.DaysAhead > 0 {
			cfg.DaysAhead = request.DaysAhead
		}
		if request.EnableScreenBoston != nil {
			cfg.EnableScreenBoston = *request.EnableScreenBoston
		}
		if request.EnableCoolidge != nil {
			cfg.EnableCoolidge = *request.EnableCoolidge
		}
		if request.EnableHFA != nil {
			cfg.EnableHFA = *request.EnableHFA
		}
		if request.EnableBrattle != nil {
			cfg.EnableBrattle = *request.EnableBrattle
		}
		if request.TimeoutSeconds > 0 {
			cfg.TimeoutSeconds = request.TimeoutSeconds
		}
		if request.MaxRetries > 0 {
			cfg.MaxRetries = request.MaxRetries
		}
		if request.RetryDelaySeconds > 0 {
			cfg.RetryDelaySeconds = request.RetryDelaySeconds
		}
	}

	job, err := api.jobsService.EnqueueScrape(r.Context(), cfg)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to start scrape job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// ScrapeStatus reports the polled state of a running or finished job.
func (api *API) ScrapeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/scrape/")
	jobID := strings.TrimSpace(strings.TrimSuffix(path, "/status"))
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
		return
	}

	job, err := api.jobsService.GetJob(r.Context(), jobID)
	if err != nil {
		if err == repository.ErrNotFound {
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job")
		return
	}

	response := map[string]any{
		"job_id":     job.ID,
		"status":     job.Status,
		"progress":   job.Progress,
		"message":    job.Message,
		"updated_at": job.UpdatedAt,
	}
	if strings.TrimSpace(job.ErrorMessage) != "" {
		response["error"] = map[string]any{
			"code":    "processing_error",
			"message": job.ErrorMessage,
		}
	}
	if job.Status == domain.JobStatusComplete {
		response["screening_count"] = len(job.Screenings)
		response["screenings"] = toScreeningPayloads(job.Screenings)
	}

	writeJSON(w, http.StatusOK, response)
}
