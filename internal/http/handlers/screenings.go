package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/repository"
)

// Screenings lists the results of a completed job, optionally filtered by
// venue, title/director search and the regular-run exclusion.
func (api *API) Screenings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	query := r.URL.Query()
	jobID := strings.TrimSpace(query.Get("job_id"))
	if jobID == "" {
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
	if job.Status != domain.JobStatusComplete {
		writeError(w, r, http.StatusBadRequest, "job_not_complete", "job has not completed")
		return
	}

	screenings := filterScreenings(
		job.Screenings,
		strings.TrimSpace(query.Get("venue")),
		strings.TrimSpace(query.Get("search")),
		parseBoolParam(query.Get("exclude_regular_coolidge")),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":     job.ID,
		"count":      len(screenings),
		"screenings": toScreeningPayloads(screenings),
	})
}

// Venues lists the distinct venues of a completed job, sorted by name, with
// street addresses where known.
func (api *API) Venues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	jobID := strings.TrimSpace(r.URL.Query().Get("job_id"))
	if jobID == "" {
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
	if job.Status != domain.JobStatusComplete {
		writeError(w, r, http.StatusBadRequest, "job_not_complete", "job has not completed")
		return
	}

	type venuePayload struct {
		Name    string `json:"name"`
		Address string `json:"address,omitempty"`
	}

	seen := make(map[string]bool)
	venues := make([]venuePayload, 0)
	for _, s := range job.Screenings {
		if seen[s.Venue] {
			continue
		}
		seen[s.Venue] = true
		venues = append(venues, venuePayload{Name: s.Venue, Address: domain.VenueAddresses[s.Venue]})
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i].Name < venues[j].Name })

	writeJSON(w, http.StatusOK, map[string]any{"venues": venues})
}
