// Package scraper extracts raw screening candidates from the four listing
// sources. Each source is an independent heuristic scanner; only the fetch,
// date/time and attribute utilities are shared.
package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/fetch"
	"github.com/cinemacal/cinemacal-back/internal/quality"
)

// Source is one listing site. Scrape returns best-effort candidates filtered
// to the configured window; a single malformed entry is skipped, never
// fatal. A returned error means the whole source produced nothing.
type Source interface {
	Name() string
	Scrape(ctx context.Context, cfg domain.ScrapeConfig) ([]domain.Screening, error)
}

func fetchOptions(cfg domain.ScrapeConfig) fetch.Options {
	return fetch.Options{
		Timeout:     cfg.Timeout(),
		MaxAttempts: cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay(),
	}
}

func getDocument(ctx context.Context, client fetch.Client, url string, opts fetch.Options) (*fetch.Document, error) {
	body, err := client.Fetch(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	doc, err := fetch.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// validateAll runs the plausibility screen over candidates, dropping the
// rejects with a log line.
func validateAll(candidates []domain.Screening, now time.Time, logger *log.Logger, source string) []domain.Screening {
	out := candidates[:0]
	for _, c := range candidates {
		validated, err := quality.Validate(c, now)
		if err != nil {
			if logger != nil {
				logger.Printf("%s: dropped candidate: %v", source, err)
			}
			continue
		}
		out = append(out, validated)
	}
	return out
}

// filterWindow keeps candidates whose date falls inside the configured
// window, inclusive of both ends.
func filterWindow(candidates []domain.Screening, cfg domain.ScrapeConfig) []domain.Screening {
	out := candidates[:0]
	for _, c := range candidates {
		if cfg.InWindow(c.Date) {
			out = append(out, c)
		}
	}
	return out
}

type eventKey struct {
	title string
	venue string
	date  string
	time  domain.ClockTime
}

// dedupeExact removes exact repeats within one source, keeping first-seen
// order.
func dedupeExact(candidates []domain.Screening) []domain.Screening {
	seen := make(map[eventKey]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		key := eventKey{title: c.Title, venue: c.Venue, date: c.Date.Format("2006-01-02"), time: c.Time}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
