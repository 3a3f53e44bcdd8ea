package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/repository"
)

type exportRequest struct {
	Screenings             []screeningPayload `json:"screenings,omitempty"`
	JobID                  string             `json:"job_id,omitempty"`
	Venue                  string             `json:"venue,omitempty"`
	Search                 string             `json:"search,omitempty"`
	ExcludeRegularCoolidge bool               `json:"exclude_regular_coolidge,omitempty"`
}

// ExportICS renders screenings as an iCalendar download. The caller supplies
// the selection directly as a screenings array; a job_id plus the listing
// filters is accepted as a shorthand for a completed job's full result.
func (api *API) ExportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request exportRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	var screenings []domain.Screening
	switch {
	case request.Screenings != nil:
		var err error
		screenings, err = fromScreeningPayloads(request.Screenings)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid screening in request body")
			return
		}
	case strings.TrimSpace(request.JobID) != "":
		job, err := api.jobsService.GetJob(r.Context(), request.JobID)
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
		screenings = job.Screenings
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_request", "screenings array or job_id is required")
		return
	}

	screenings = filterScreenings(screenings, request.Venue, request.Search, request.ExcludeRegularCoolidge)
	body := api.calendar.Render(screenings)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="screenings.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// fromScreeningPayloads rebuilds screenings from their wire form.
func fromScreeningPayloads(payloads []screeningPayload) ([]domain.Screening, error) {
	screenings := make([]domain.Screening, 0, len(payloads))
	for _, p := range payloads {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, err
		}
		clock, err := time.Parse("15:04:05", p.Time)
		if err != nil {
			return nil, err
		}
		screenings = append(screenings, domain.Screening{
			Title:             p.Title,
			Venue:             p.Venue,
			Date:              domain.NewDate(date.Year(), date.Month(), date.Day()),
			Time:              domain.NewClockTime(clock.Hour(), clock.Minute()),
			SourceURL:         p.SourceURL,
			SourceSite:        p.SourceSite,
			RuntimeMinutes:    p.RuntimeMinutes,
			Director:          p.Director,
			Year:              p.Year,
			Extra:             p.Extra,
			SpecialAttributes: p.SpecialAttributes,
		})
	}
	return screenings, nil
}
