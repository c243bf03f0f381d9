package service

import (
	"context"

	"sievehub/internal/models"
	"sievehub/internal/repository"
)

// QueueService is the application-facing face of the durable notification
// queue. Triggering requests only ever enqueue; delivery happens in the
// worker, so a send failure can never bubble back into the request that
// caused the event.
type QueueService interface {
	Enqueue(ctx context.Context, event models.NotificationEvent, opts repository.EnqueueOptions) (*models.NotificationJob, error)
	EnqueueBatch(ctx context.Context, events []models.NotificationEvent, opts repository.EnqueueOptions) ([]models.NotificationJob, error)
	Stats(ctx context.Context) (*models.QueueStats, error)
	FailedJobs(ctx context.Context, limit int) ([]models.NotificationJob, error)
	RetryFailed(ctx context.Context, ids []string) (int64, error)
	Cancel(ctx context.Context, ids []string) (int64, error)
	Cleanup(ctx context.Context, daysToKeep int) (int64, error)
}

type queueService struct {
	queue       repository.NotificationQueueRepository
	maxAttempts int
}

// NewQueueService builds the enqueue boundary. maxAttempts applies when a
// caller does not set its own; zero falls back to the model default.
func NewQueueService(queue repository.NotificationQueueRepository, maxAttempts int) QueueService {
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxAttempts
	}
	return &queueService{queue: queue, maxAttempts: maxAttempts}
}

func (s *queueService) Enqueue(ctx context.Context, event models.NotificationEvent, opts repository.EnqueueOptions) (*models.NotificationJob, error) {
	if err := event.Validate(); err != nil {
		return nil, validationError("%s", err.Error())
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = s.maxAttempts
	}
	return s.queue.Enqueue(ctx, event, opts)
}

func (s *queueService) EnqueueBatch(ctx context.Context, events []models.NotificationEvent, opts repository.EnqueueOptions) ([]models.NotificationJob, error) {
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return nil, validationError("%s", err.Error())
		}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = s.maxAttempts
	}
	return s.queue.EnqueueBatch(ctx, events, opts)
}

func (s *queueService) Stats(ctx context.Context) (*models.QueueStats, error) {
	return s.queue.Stats(ctx)
}

func (s *queueService) FailedJobs(ctx context.Context, limit int) ([]models.NotificationJob, error) {
	return s.queue.FailedJobs(ctx, limit)
}

func (s *queueService) RetryFailed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, validationError("no job ids supplied")
	}
	return s.queue.RetryFailed(ctx, ids)
}

func (s *queueService) Cancel(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, validationError("no job ids supplied")
	}
	return s.queue.Cancel(ctx, ids)
}

func (s *queueService) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		daysToKeep = 7
	}
	return s.queue.Cleanup(ctx, daysToKeep)
}
