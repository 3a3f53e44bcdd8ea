package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/queue"
	"github.com/cinemacal/cinemacal-back/internal/repository"
	"github.com/cinemacal/cinemacal-back/internal/service"
)

// Processor consumes queue jobs, runs the scrape pipeline and persists
// status transitions.
type Processor struct {
	consumer queue.Consumer
	repo     repository.JobsRepository
	scraper  *service.ScrapeService
	logger   *log.Logger
}

func NewProcessor(
	consumer queue.Consumer,
	repo repository.JobsRepository,
	scraper *service.ScrapeService,
	logger *log.Logger,
) *Processor {
	return &Processor{
		consumer: consumer,
		repo:     repo,
		scraper:  scraper,
		logger:   logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.processMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		if p.logger != nil {
			p.logger.Printf("worker consume loop error: %v", err)
		}

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Processor) processMessage(ctx context.Context, message domain.QueueMessage) error {
	job, err := p.repo.GetJob(ctx, message.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", message.JobID, err)
	}

	// A redelivered message must not re-run a job that already finished.
	if job.Status.Terminal() {
		if p.logger != nil {
			p.logger.Printf("skipping redelivery for terminal job job_id=%s status=%s", job.ID, job.Status)
		}
		return nil
	}

	job.Status = domain.JobStatusRunning
	job.Attempts = message.Attempt + 1
	job.UpdatedAt = time.Now().UTC()
	if err := p.repo.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	screenings, runErr := p.scraper.Run(ctx, message.Config, func(percent int, progressMessage string) {
		job.Progress = percent
		job.Message = progressMessage
		job.UpdatedAt = time.Now().UTC()
		if updateErr := p.repo.UpdateJob(ctx, job); updateErr != nil && p.logger != nil {
			p.logger.Printf("progress update failed job_id=%s: %v", job.ID, updateErr)
		}
	})
	if runErr != nil {
		job.Status = domain.JobStatusError
		job.ErrorMessage = runErr.Error()
		job.Message = "Error: " + runErr.Error()
		job.Screenings = nil
		job.UpdatedAt = time.Now().UTC()
		_ = p.repo.UpdateJob(ctx, job)
		return runErr
	}

	job.Status = domain.JobStatusComplete
	job.Progress = 100
	job.Message = fmt.Sprintf("Found %d screenings", len(screenings))
	job.ErrorMessage = ""
	job.Screenings = screenings
	job.UpdatedAt = time.Now().UTC()
	if err := p.repo.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}

	if p.logger != nil {
		p.logger.Printf("job processed job_id=%s screenings=%d", job.ID, len(screenings))
	}

	return nil
}
