package service

import (
	"context"
	"log/slog"
	"time"

	"sievehub/internal/models"
	"sievehub/internal/repository"
)

// ProcessResult summarizes one drain pass.
type ProcessResult struct {
	Reclaimed int64
	Claimed   int
	Completed int
	Failed    int
	Delivered int
}

// QueueProcessor drains the notification queue: reclaim stale claims,
// claim due jobs, then deliver each by resolving recipients, filtering by
// preference and writing one notification row per surviving recipient.
// One bad job never aborts the batch.
type QueueProcessor struct {
	queue             repository.NotificationQueueRepository
	notifications     repository.NotificationRepository
	resolver          RecipientResolver
	preferences       PreferenceFilter
	processingTimeout time.Duration
	logger            *slog.Logger
}

func NewQueueProcessor(
	queue repository.NotificationQueueRepository,
	notifications repository.NotificationRepository,
	resolver RecipientResolver,
	preferences PreferenceFilter,
	processingTimeout time.Duration,
	logger *slog.Logger,
) *QueueProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueProcessor{
		queue:             queue,
		notifications:     notifications,
		resolver:          resolver,
		preferences:       preferences,
		processingTimeout: processingTimeout,
		logger:            logger,
	}
}

func (p *QueueProcessor) ProcessPending(ctx context.Context) (*ProcessResult, error) {
	result := &ProcessResult{}

	if p.processingTimeout > 0 {
		reclaimed, err := p.queue.ReclaimStale(ctx, p.processingTimeout)
		if err != nil {
			return nil, err
		}
		if reclaimed > 0 {
			p.logger.Warn("requeued stale processing jobs", "count", reclaimed)
		}
		result.Reclaimed = reclaimed
	}

	jobs, err := p.queue.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	result.Claimed = len(jobs)

	for _, job := range jobs {
		delivered, err := p.deliver(ctx, job)
		if err != nil {
			p.logger.Error("notification delivery failed",
				"job_id", job.ID, "type", job.Payload.Type, "attempts", job.Attempts, "error", err)
			if markErr := p.queue.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
				p.logger.Error("failed to record job failure", "job_id", job.ID, "error", markErr)
			}
			result.Failed++
			continue
		}
		if err := p.queue.MarkCompleted(ctx, job.ID); err != nil {
			p.logger.Error("failed to mark job completed", "job_id", job.ID, "error", err)
			result.Failed++
			continue
		}
		result.Completed++
		result.Delivered += delivered
	}
	return result, nil
}

func (p *QueueProcessor) deliver(ctx context.Context, job models.NotificationJob) (int, error) {
	event := job.Payload.NotificationEvent
	recipients, err := p.resolver.Resolve(ctx, event)
	if err != nil {
		return 0, err
	}
	recipients, err = p.preferences.FilterRecipients(ctx, recipients, event.ProjectID, event.Type)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, rec := range recipients {
		rows = append(rows, models.Notification{
			UserID:         rec.UserID,
			ProjectID:      event.ProjectID,
			ProposalID:     event.ProposalID,
			ItemProposalID: event.ItemProposalID,
			VoterID:        event.VoterID,
			Type:           event.Type,
			Reward:         event.Reward,
		})
	}
	if err := p.notifications.CreateBatch(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
