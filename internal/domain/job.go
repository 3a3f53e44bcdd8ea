package domain

import "time"

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusError    JobStatus = "error"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// Job is one asynchronous run of the scrape-and-reconcile pipeline. The
// owning worker is the only writer; any number of callers read snapshots.
type Job struct {
	ID           string
	Status       JobStatus
	Progress     int
	Message      string
	ErrorMessage string
	Config       ScrapeConfig
	Screenings   []Screening
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// QueueMessage is the transport format sent to queue backends.
type QueueMessage struct {
	JobID       string       `json:"job_id"`
	Config      ScrapeConfig `json:"config"`
	Attempt     int          `json:"attempt"`
	RequestedAt time.Time    `json:"requested_at"`
}
