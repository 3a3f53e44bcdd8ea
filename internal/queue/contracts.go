package queue

import (
	"context"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

// Producer sends scrape jobs to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
}

// Consumer receives scrape jobs and executes handlers.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error
}
