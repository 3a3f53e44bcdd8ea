package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/export"
	"github.com/cinemacal/cinemacal-back/internal/http/middleware"
	"github.com/cinemacal/cinemacal-back/internal/reconcile"
	"github.com/cinemacal/cinemacal-back/internal/service"
)

// Thresholds for treating a Coolidge title as a regular extended run.
const (
	regularRunMinDays      = 5
	regularRunMinShowtimes = 10
)

func filterRegularCoolidge(screenings []domain.Screening) []domain.Screening {
	return reconcile.FilterRegularCoolidge(screenings, regularRunMinDays, regularRunMinShowtimes)
}

var errInvalidPayload = errors.New("invalid payload")

type API struct {
	jobsService    *service.JobsService
	calendar       *export.Calendar
	scrapeDefaults domain.ScrapeConfig
}

func NewAPI(jobsService *service.JobsService, calendar *export.Calendar, scrapeDefaults domain.ScrapeConfig) *API {
	return &API{
		jobsService:    jobsService,
		calendar:       calendar,
		scrapeDefaults: scrapeDefaults,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

// screeningPayload is the wire form of a screening: the date as a plain
// calendar date and the time as a wall clock, plus the stable identity hash.
type screeningPayload struct {
	UniqueID          string   `json:"unique_id"`
	Title             string   `json:"title"`
	Venue             string   `json:"venue"`
	Date              string   `json:"date"`
	Time              string   `json:"time"`
	SourceURL         string   `json:"source_url"`
	SourceSite        string   `json:"source_site"`
	RuntimeMinutes    int      `json:"runtime_minutes,omitempty"`
	Director          string   `json:"director,omitempty"`
	Year              int      `json:"year,omitempty"`
	Extra             string   `json:"extra,omitempty"`
	SpecialAttributes []string `json:"special_attributes,omitempty"`
}

func toScreeningPayload(s domain.Screening) screeningPayload {
	return screeningPayload{
		UniqueID:          s.UniqueID(),
		Title:             s.Title,
		Venue:             s.Venue,
		Date:              s.Date.Format("2006-01-02"),
		Time:              s.Time.String(),
		SourceURL:         s.SourceURL,
		SourceSite:        s.SourceSite,
		RuntimeMinutes:    s.RuntimeMinutes,
		Director:          s.Director,
		Year:              s.Year,
		Extra:             s.Extra,
		SpecialAttributes: s.SpecialAttributes,
	}
}

func toScreeningPayloads(screenings []domain.Screening) []screeningPayload {
	payloads := make([]screeningPayload, 0, len(screenings))
	for _, s := range screenings {
		payloads = append(payloads, toScreeningPayload(s))
	}
	return payloads
}

// filterScreenings applies the query-string filters shared by the listing
// and export endpoints.
func filterScreenings(screenings []domain.Screening, venue, search string, excludeRegularCoolidge bool) []domain.Screening {
	out := screenings
	if excludeRegularCoolidge {
		out = filterRegularCoolidge(out)
	}
	if venue != "" {
		var kept []domain.Screening
		for _, s := range out {
			if strings.EqualFold(domain.CanonicalVenue(s.Venue), domain.CanonicalVenue(venue)) {
				kept = append(kept, s)
			}
		}
		out = kept
	}
	if search != "" {
		lowered := strings.ToLower(search)
		var kept []domain.Screening
		for _, s := range out {
			if strings.Contains(strings.ToLower(s.Title), lowered) ||
				strings.Contains(strings.ToLower(s.Director), lowered) {
				kept = append(kept, s)
			}
		}
		out = kept
	}
	return out
}

func parseBoolParam(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
