package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/fetch"
	"github.com/cinemacal/cinemacal-back/internal/reconcile"
	"github.com/cinemacal/cinemacal-back/internal/scraper"
)

// ProgressFunc reports pipeline progress. Implementations must tolerate
// being called from the worker goroutine.
type ProgressFunc func(percent int, message string)

// ScrapeService runs the scrape pipeline: each enabled source in turn, then
// reconciliation. A failing source is logged and skipped; a reconciler
// failure aborts the run.
type ScrapeService struct {
	client fetch.Client
	logger *log.Logger
}

func NewScrapeService(client fetch.Client, logger *log.Logger) *ScrapeService {
	return &ScrapeService{client: client, logger: logger}
}

// sources builds the enabled scrapers in a fixed order so progress reporting
// is stable across runs.
func (s *ScrapeService) sources(cfg domain.ScrapeConfig) []scraper.Source {
	var sources []scraper.Source
	if cfg.EnableScreenBoston {
		sources = append(sources, scraper.NewScreenBoston(s.client, s.logger))
	}
	if cfg.EnableCoolidge {
		sources = append(sources, scraper.NewCoolidge(s.client, s.logger))
	}
	if cfg.EnableHFA {
		sources = append(sources, scraper.NewHFA(s.client, s.logger))
	}
	if cfg.EnableBrattle {
		sources = append(sources, scraper.NewBrattle(s.client, s.logger))
	}
	return sources
}

func (s *ScrapeService) Run(
	ctx context.Context,
	cfg domain.ScrapeConfig,
	progress ProgressFunc,
) ([]domain.Screening, error) {
	cfg = cfg.Normalize()
	sources := s.sources(cfg)

	var combined []domain.Screening
	for index, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(index*90/len(sources), fmt.Sprintf("Scraping %s...", source.Name()))
		}

		screenings, err := source.Scrape(ctx, cfg)
		if err != nil {
			// One broken source must not sink the whole run.
			if s.logger != nil {
				s.logger.Printf("source %s failed: %v", source.Name(), err)
			}
			continue
		}
		combined = append(combined, screenings...)
	}

	if progress != nil {
		progress(90, "Merging and deduplicating...")
	}
	merged := reconcile.Reconcile(combined)
	if s.logger != nil {
		s.logger.Printf("pipeline finished: %d screenings after reconciliation", len(merged))
	}
	return merged, nil
}
