package domain

import "time"

// Default scrape run parameters. These match the public API defaults; the
// service overlays operator config on top.
const (
	DefaultDaysAhead         = 60
	DefaultTimeoutSeconds    = 30
	DefaultMaxRetries        = 3
	DefaultRetryDelaySeconds = 1.0
)

// ScrapeConfig carries the run parameters for one scrape job. It is embedded
// in the queue message, so all fields marshal as JSON.
type ScrapeConfig struct {
	StartDate time.Time `json:"start_date"`
	DaysAhead int       `json:"days_ahead"`

	EnableScreenBoston bool `json:"enable_screen_boston"`
	EnableCoolidge     bool `json:"enable_coolidge"`
	EnableHFA          bool `json:"enable_hfa"`
	EnableBrattle      bool `json:"enable_brattle"`

	TimeoutSeconds    int     `json:"timeout_seconds"`
	MaxRetries        int     `json:"max_retries"`
	RetryDelaySeconds float64 `json:"retry_delay_seconds"`
}

// DefaultScrapeConfig starts today with every source enabled.
func DefaultScrapeConfig() ScrapeConfig {
	now := time.Now()
	return ScrapeConfig{
		StartDate:          NewDate(now.Year(), now.Month(), now.Day()),
		DaysAhead:          DefaultDaysAhead,
		EnableScreenBoston: true,
		EnableCoolidge:     true,
		EnableHFA:          true,
		EnableBrattle:      true,
		TimeoutSeconds:     DefaultTimeoutSeconds,
		MaxRetries:         DefaultMaxRetries,
		RetryDelaySeconds:  DefaultRetryDelaySeconds,
	}
}

// Normalize fills zero-valued fields with defaults so partially-specified
// configs (for example from a request body) are safe to run.
func (c ScrapeConfig) Normalize() ScrapeConfig {
	defaults := DefaultScrapeConfig()
	if c.StartDate.IsZero() {
		c.StartDate = defaults.StartDate
	} else {
		c.StartDate = NewDate(c.StartDate.Year(), c.StartDate.Month(), c.StartDate.Day())
	}
	if c.DaysAhead <= 0 {
		c.DaysAhead = defaults.DaysAhead
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = defaults.RetryDelaySeconds
	}
	return c
}

// EndDate is the last date of the window, inclusive.
func (c ScrapeConfig) EndDate() time.Time {
	return c.StartDate.AddDate(0, 0, c.DaysAhead)
}

// Dates returns the calendar dates of the window, inclusive of both ends.
func (c ScrapeConfig) Dates() []time.Time {
	dates := make([]time.Time, 0, c.DaysAhead+1)
	end := c.EndDate()
	for d := c.StartDate; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// InWindow reports whether a date falls inside the configured window.
func (c ScrapeConfig) InWindow(date time.Time) bool {
	return !date.Before(c.StartDate) && !date.After(c.EndDate())
}

func (c ScrapeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ScrapeConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}
