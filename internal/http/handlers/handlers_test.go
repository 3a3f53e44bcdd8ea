package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/export"
	"github.com/cinemacal/cinemacal-back/internal/queue"
	"github.com/cinemacal/cinemacal-back/internal/repository"
	"github.com/cinemacal/cinemacal-back/internal/service"
)

func newTestAPI(t *testing.T) (*API, *repository.MemoryJobsRepository) {
	t.Helper()
	repo := repository.NewMemoryJobsRepository(time.Hour)
	jobsService := service.NewJobsService(repo, queue.NewLocalQueue(8, 3, nil))

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return NewAPI(jobsService, export.NewCalendar(loc, nil), domain.DefaultScrapeConfig()), repo
}

func completedJob(id string) *domain.Job {
	now := time.Now().UTC()
	return &domain.Job{
		ID:       id,
		Status:   domain.JobStatusComplete,
		Progress: 100,
		Message:  "Found 3 screenings",
		Config:   domain.DefaultScrapeConfig(),
		Screenings: []domain.Screening{
			{
				Title: "The Third Man", Venue: "The Brattle",
				Date: domain.NewDate(2026, 2, 6), Time: domain.NewClockTime(19, 0),
				SourceSite: "Screen Boston", Director: "Carol Reed", Year: 1949,
			},
			{
				Title: "Eraserhead", Venue: "Coolidge Corner Theatre",
				Date: domain.NewDate(2026, 2, 7), Time: domain.NewClockTime(21, 15),
				SourceSite: "Coolidge", Director: "David Lynch", Year: 1977,
			},
			{
				Title: "La Notte", Venue: "Harvard Film Archive",
				Date: domain.NewDate(2026, 2, 8), Time: domain.NewClockTime(15, 0),
				SourceSite: "Harvard Film Archive", Director: "Michelangelo Antonioni",
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestScrapeAcceptsJob(t *testing.T) {
	api, repo := newTestAPI(t)

	payload := `{"start_date":"2026-02-01","days_ahead":7,"enable_coolidge":false}`
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	api.Scrape(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatal("missing job_id")
	}
	if body["status"] != "pending" {
		t.Errorf("status = %v", body["status"])
	}

	job, err := repo.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if !job.Config.StartDate.Equal(domain.NewDate(2026, 2, 1)) {
		t.Errorf("start date = %v", job.Config.StartDate)
	}
	if job.Config.DaysAhead != 7 {
		t.Errorf("days ahead = %d", job.Config.DaysAhead)
	}
	if job.Config.EnableCoolidge {
		t.Error("coolidge should be disabled")
	}
	if !job.Config.EnableScreenBoston || !job.Config.EnableHFA || !job.Config.EnableBrattle {
		t.Error("other sources should keep their defaults")
	}
}

func TestScrapeDefaultsWithEmptyBody(t *testing.T) {
	api, repo := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	rec := httptest.NewRecorder()
	api.Scrape(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	job, err := repo.GetJob(context.Background(), body["job_id"].(string))
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Config.DaysAhead != domain.DefaultDaysAhead {
		t.Errorf("days ahead = %d", job.Config.DaysAhead)
	}
	if !job.Config.EnableScreenBoston || !job.Config.EnableCoolidge || !job.Config.EnableHFA || !job.Config.EnableBrattle {
		t.Error("all sources should default on")
	}
}

func TestScrapeUsesOperatorDefaults(t *testing.T) {
	repo := repository.NewMemoryJobsRepository(time.Hour)
	jobsService := service.NewJobsService(repo, queue.NewLocalQueue(8, 3, nil))
	api := NewAPI(jobsService, export.NewCalendar(time.UTC, nil), domain.ScrapeConfig{
		DaysAhead:          14,
		EnableScreenBoston: true,
		EnableCoolidge:     true,
		EnableHFA:          true,
		EnableBrattle:      true,
		TimeoutSeconds:     45,
		MaxRetries:         5,
		RetryDelaySeconds:  2,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	rec := httptest.NewRecorder()
	api.Scrape(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	job, err := repo.GetJob(context.Background(), body["job_id"].(string))
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Config.DaysAhead != 14 {
		t.Errorf("days ahead = %d", job.Config.DaysAhead)
	}
	if job.Config.TimeoutSeconds != 45 || job.Config.MaxRetries != 5 || job.Config.RetryDelaySeconds != 2 {
		t.Errorf("retry policy = %+v", job.Config)
	}
	if job.Config.StartDate.IsZero() {
		t.Error("start date should resolve to today")
	}
}

func TestScrapeRejectsBadInput(t *testing.T) {
	api, _ := newTestAPI(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad start date", `{"start_date":"Feb 6"}`},
		{"unknown field", `{"starting_date":"2026-02-01"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		api.Scrape(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tc.name, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scrape", nil)
	rec := httptest.NewRecorder()
	api.Scrape(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}
}

func TestScrapeStatus(t *testing.T) {
	api, repo := newTestAPI(t)
	if err := repo.CreateJob(context.Background(), completedJob("job-1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scrape/job-1/status", nil)
	rec := httptest.NewRecorder()
	api.ScrapeStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["job_id"] != "job-1" || body["status"] != "complete" {
		t.Errorf("body = %v", body)
	}
	if body["progress"] != float64(100) {
		t.Errorf("progress = %v", body["progress"])
	}
	if body["screening_count"] != float64(3) {
		t.Errorf("screening_count = %v", body["screening_count"])
	}
	screenings, ok := body["screenings"].([]any)
	if !ok || len(screenings) != 3 {
		t.Fatalf("screenings = %v", body["screenings"])
	}
	first := screenings[0].(map[string]any)
	if first["title"] != "The Third Man" || first["date"] != "2026-02-06" {
		t.Errorf("first screening = %v", first)
	}
	if _, ok := body["error"]; ok {
		t.Error("unexpected error object on a successful job")
	}
}

func TestScrapeStatusOmitsScreeningsWhileRunning(t *testing.T) {
	api, repo := newTestAPI(t)
	job := completedJob("job-run")
	job.Status = domain.JobStatusRunning
	job.Progress = 45
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scrape/job-run/status", nil)
	rec := httptest.NewRecorder()
	api.ScrapeStatus(rec, req)

	body := decodeBody(t, rec)
	if _, ok := body["screenings"]; ok {
		t.Error("running job should not expose screenings")
	}
	if _, ok := body["screening_count"]; ok {
		t.Error("running job should not expose a screening count")
	}
}

func TestScrapeStatusFailedJob(t *testing.T) {
	api, repo := newTestAPI(t)
	job := completedJob("job-err")
	job.Status = domain.JobStatusError
	job.ErrorMessage = "fetch https://screenboston.com/: boom"
	job.Message = "Error: fetch https://screenboston.com/: boom"
	job.Screenings = nil
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scrape/job-err/status", nil)
	rec := httptest.NewRecorder()
	api.ScrapeStatus(rec, req)

	body := decodeBody(t, rec)
	if body["status"] != "error" {
		t.Errorf("status = %v", body["status"])
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error object in %v", body)
	}
	if errObj["code"] != "processing_error" {
		t.Errorf("error code = %v", errObj["code"])
	}
	if _, counted := body["screening_count"]; counted {
		t.Error("failed job should not report a screening count")
	}
}

func TestScrapeStatusNotFoundAndBadPath(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scrape/missing/status", nil)
	rec := httptest.NewRecorder()
	api.ScrapeStatus(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/scrape//status", nil)
	rec = httptest.NewRecorder()
	api.ScrapeStatus(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty id status = %d", rec.Code)
	}
}

func TestScreeningsListsCompletedJob(t *testing.T) {
	api, repo := newTestAPI(t)
	if err := repo.CreateJob(context.Background(), completedJob("job-1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/screenings?job_id=job-1", nil)
	rec := httptest.NewRecorder()
	api.Screenings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(3) {
		t.Errorf("count = %v", body["count"])
	}
	screenings := body["screenings"].([]any)
	first := screenings[0].(map[string]any)
	if first["title"] != "The Third Man" || first["venue"] != "The Brattle" {
		t.Errorf("first screening = %v", first)
	}
	if first["date"] != "2026-02-06" || first["time"] != "19:00:00" {
		t.Errorf("date/time = %v %v", first["date"], first["time"])
	}
	if first["unique_id"] == "" {
		t.Error("missing unique_id")
	}
}

func TestScreeningsFilters(t *testing.T) {
	api, repo := newTestAPI(t)
	if err := repo.CreateJob(context.Background(), completedJob("job-1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"venue alias", "venue=brattle", []string{"The Third Man"}},
		{"search title", "search=eraser", []string{"Eraserhead"}},
		{"search director", "search=antonioni", []string{"La Notte"}},
		{"no match", "search=zzz", nil},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/screenings?job_id=job-1&"+tc.query, nil)
		rec := httptest.NewRecorder()
		api.Screenings(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.name, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["count"] != float64(len(tc.want)) {
			t.Errorf("%s: count = %v, want %d", tc.name, body["count"], len(tc.want))
			continue
		}
		screenings, _ := body["screenings"].([]any)
		for i, wantTitle := range tc.want {
			got := screenings[i].(map[string]any)
			if got["title"] != wantTitle {
				t.Errorf("%s: title[%d] = %v, want %q", tc.name, i, got["title"], wantTitle)
			}
		}
	}
}

func TestScreeningsExcludesRegularCoolidgeRuns(t *testing.T) {
	api, repo := newTestAPI(t)
	job := completedJob("job-1")
	// A first-run title playing five straight days counts as a regular run.
	for day := 0; day < 5; day++ {
		job.Screenings = append(job.Screenings, domain.Screening{
			Title: "Wicked", Venue: "Coolidge Corner Theatre",
			Date: domain.NewDate(2026, 2, 9+day), Time: domain.NewClockTime(19, 30),
			SourceSite: "Coolidge",
		})
	}
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/screenings?job_id=job-1&exclude_regular_coolidge=true", nil)
	rec := httptest.NewRecorder()
	api.Screenings(rec, req)

	body := decodeBody(t, rec)
	if body["count"] != float64(3) {
		t.Fatalf("count = %v, want the 3 non-regular screenings", body["count"])
	}
	for _, raw := range body["screenings"].([]any) {
		if raw.(map[string]any)["title"] == "Wicked" {
			t.Error("regular run survived the filter")
		}
	}
}

func TestScreeningsJobStateErrors(t *testing.T) {
	api, repo := newTestAPI(t)
	pending := completedJob("job-pending")
	pending.Status = domain.JobStatusRunning
	if err := repo.CreateJob(context.Background(), pending); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/screenings?job_id=job-pending", nil)
	rec := httptest.NewRecorder()
	api.Screenings(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("running job status = %d", rec.Code)
	}
	var payload errorPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Error.Code != "job_not_complete" {
		t.Errorf("error code = %q", payload.Error.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/screenings?job_id=ghost", nil)
	rec = httptest.NewRecorder()
	api.Screenings(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/screenings", nil)
	rec = httptest.NewRecorder()
	api.Screenings(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing job_id status = %d", rec.Code)
	}
}

func TestVenuesListsJobVenuesSorted(t *testing.T) {
	api, repo := newTestAPI(t)
	job := completedJob("job-1")
	// A second Brattle screening must not duplicate the venue.
	job.Screenings = append(job.Screenings, domain.Screening{
		Title: "The Lady from Shanghai", Venue: "The Brattle",
		Date: domain.NewDate(2026, 2, 9), Time: domain.NewClockTime(21, 30),
		SourceSite: "Screen Boston",
	})
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/venues?job_id=job-1", nil)
	rec := httptest.NewRecorder()
	api.Venues(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	venues := body["venues"].([]any)
	wantNames := []string{"Coolidge Corner Theatre", "Harvard Film Archive", "The Brattle"}
	if len(venues) != len(wantNames) {
		t.Fatalf("venue count = %d, want %d distinct", len(venues), len(wantNames))
	}
	for i, raw := range venues {
		venue := raw.(map[string]any)
		if venue["name"] != wantNames[i] {
			t.Errorf("venue[%d] = %v, want %q", i, venue["name"], wantNames[i])
		}
		if venue["address"] == "" {
			t.Errorf("venue %v missing address", venue["name"])
		}
	}
}

func TestVenuesJobStateErrors(t *testing.T) {
	api, repo := newTestAPI(t)
	running := completedJob("job-running")
	running.Status = domain.JobStatusRunning
	if err := repo.CreateJob(context.Background(), running); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"missing job_id", "", http.StatusBadRequest},
		{"unknown job", "?job_id=ghost", http.StatusNotFound},
		{"incomplete job", "?job_id=job-running", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/venues"+tc.query, nil)
		rec := httptest.NewRecorder()
		api.Venues(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestExportICS(t *testing.T) {
	api, repo := newTestAPI(t)
	if err := repo.CreateJob(context.Background(), completedJob("job-1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/export/ics", strings.NewReader(`{"job_id":"job-1","venue":"The Brattle"}`))
	rec := httptest.NewRecorder()
	api.ExportICS(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/calendar; charset=utf-8" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "screenings.ics") {
		t.Errorf("content disposition = %q", got)
	}
	rendered := rec.Body.String()
	if !strings.Contains(rendered, "BEGIN:VCALENDAR") {
		t.Error("missing calendar envelope")
	}
	if got := strings.Count(rendered, "BEGIN:VEVENT"); got != 1 {
		t.Errorf("event count = %d, want the venue-filtered single event", got)
	}
	if !strings.Contains(rendered, "SUMMARY:The Third Man @ The Brattle") {
		t.Error("missing event summary")
	}
}

func TestExportICSFromScreeningsArray(t *testing.T) {
	api, _ := newTestAPI(t)

	payload := `{"screenings":[
		{"title":"The Third Man","venue":"The Brattle","date":"2026-02-06","time":"19:00:00",
		 "source_url":"https://screenboston.com/","source_site":"Screen Boston","runtime_minutes":104},
		{"title":"La Notte","venue":"Harvard Film Archive","date":"2026-02-08","time":"15:00:00",
		 "source_url":"https://harvardfilmarchive.org/calendar","source_site":"Harvard Film Archive"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/export/ics", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	api.ExportICS(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	rendered := rec.Body.String()
	if got := strings.Count(rendered, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("event count = %d, want 2", got)
	}
	if !strings.Contains(rendered, "SUMMARY:The Third Man @ The Brattle") {
		t.Error("missing first event summary")
	}
	if !strings.Contains(rendered, "SUMMARY:La Notte @ Harvard Film Archive") {
		t.Error("missing second event summary")
	}
}

func TestExportICSRejectsMalformedScreening(t *testing.T) {
	api, _ := newTestAPI(t)

	payload := `{"screenings":[{"title":"Bad Date","venue":"The Brattle","date":"Feb 6","time":"19:00:00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/export/ics", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	api.ExportICS(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExportICSValidation(t *testing.T) {
	api, repo := newTestAPI(t)
	running := completedJob("job-running")
	running.Status = domain.JobStatusRunning
	if err := repo.CreateJob(context.Background(), running); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing job id", `{}`, http.StatusBadRequest},
		{"unknown job", `{"job_id":"ghost"}`, http.StatusNotFound},
		{"incomplete job", `{"job_id":"job-running"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/export/ics", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		api.ExportICS(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}
