package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJobsRepository persists jobs in a jobs table with the scrape
// config and collected screenings stored as JSONB.
type PostgresJobsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresJobsRepository(ctx context.Context, databaseURL string) (*PostgresJobsRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresJobsRepository{pool: pool}, nil
}

func (r *PostgresJobsRepository) Close() {
	r.pool.Close()
}

func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	config, screenings, err := encodeJobPayloads(job)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO jobs (
			id,
			status,
			progress,
			message,
			error_message,
			config,
			screenings,
			attempts,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		job.ID,
		string(job.Status),
		job.Progress,
		job.Message,
		job.ErrorMessage,
		config,
		screenings,
		job.Attempts,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *PostgresJobsRepository) UpdateJob(ctx context.Context, job *domain.Job) error {
	_, screenings, err := encodeJobPayloads(job)
	if err != nil {
		return err
	}
	command, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $2,
			progress = $3,
			message = $4,
			error_message = $5,
			screenings = $6,
			attempts = $7,
			updated_at = $8
		WHERE id = $1
	`, job.ID, string(job.Status), job.Progress, job.Message, job.ErrorMessage, screenings, job.Attempts, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var (
		job        domain.Job
		status     string
		config     []byte
		screenings []byte
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, status, progress, message, error_message, config, screenings, attempts, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, jobID).Scan(
		&job.ID,
		&status,
		&job.Progress,
		&job.Message,
		&job.ErrorMessage,
		&config,
		&screenings,
		&job.Attempts,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	if len(config) > 0 {
		if err := json.Unmarshal(config, &job.Config); err != nil {
			return nil, fmt.Errorf("decode job config: %w", err)
		}
	}
	if len(screenings) > 0 {
		if err := json.Unmarshal(screenings, &job.Screenings); err != nil {
			return nil, fmt.Errorf("decode job screenings: %w", err)
		}
	}
	return &job, nil
}

func encodeJobPayloads(job *domain.Job) ([]byte, []byte, error) {
	config, err := json.Marshal(job.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("encode job config: %w", err)
	}
	screenings, err := json.Marshal(job.Screenings)
	if err != nil {
		return nil, nil, fmt.Errorf("encode job screenings: %w", err)
	}
	return config, screenings, nil
}
