package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sievehub/internal/models"
)

// EnqueueOptions tune a single enqueue. Zero values mean "default".
type EnqueueOptions struct {
	Priority    int
	ScheduledAt time.Time
	MaxAttempts int
}

type NotificationQueueRepository interface {
	Enqueue(ctx context.Context, event models.NotificationEvent, opts EnqueueOptions) (*models.NotificationJob, error)
	EnqueueBatch(ctx context.Context, events []models.NotificationEvent, opts EnqueueOptions) ([]models.NotificationJob, error)
	Dequeue(ctx context.Context) ([]models.NotificationJob, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, jobErr string) error
	ReclaimStale(ctx context.Context, processingTimeout time.Duration) (int64, error)
	Cleanup(ctx context.Context, daysToKeep int) (int64, error)
	Stats(ctx context.Context) (*models.QueueStats, error)
	FailedJobs(ctx context.Context, limit int) ([]models.NotificationJob, error)
	RetryFailed(ctx context.Context, ids []string) (int64, error)
	Cancel(ctx context.Context, ids []string) (int64, error)
}

type notificationQueueRepository struct {
	db *gorm.DB
}

func NewNotificationQueueRepository(db *gorm.DB) NotificationQueueRepository {
	return &notificationQueueRepository{db: db}
}

// BackoffDelay is the retry delay after the given number of completed
// attempts: 2^attempts minutes.
func BackoffDelay(attempts int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempts))) * time.Minute
}

func (r *notificationQueueRepository) buildJob(event models.NotificationEvent, opts EnqueueOptions) models.NotificationJob {
	scheduledAt := opts.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now().UTC()
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxAttempts
	}
	return models.NotificationJob{
		ID:          uuid.NewString(),
		Payload:     models.EventPayload{NotificationEvent: event},
		Status:      models.JobPending,
		Priority:    opts.Priority,
		MaxAttempts: maxAttempts,
		ScheduledAt: scheduledAt,
	}
}

func (r *notificationQueueRepository) Enqueue(ctx context.Context, event models.NotificationEvent, opts EnqueueOptions) (*models.NotificationJob, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	job := r.buildJob(event, opts)
	if err := r.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}
	return &job, nil
}

func (r *notificationQueueRepository) EnqueueBatch(ctx context.Context, events []models.NotificationEvent, opts EnqueueOptions) ([]models.NotificationJob, error) {
	if len(events) == 0 {
		return nil, nil
	}
	jobs := make([]models.NotificationJob, 0, len(events))
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return nil, err
		}
		jobs = append(jobs, r.buildJob(event, opts))
	}
	if err := r.db.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, fmt.Errorf("enqueue notification batch: %w", err)
	}
	return jobs, nil
}

// Dequeue claims every due pending job and flips it to processing inside
// one transaction. The row lock with SKIP LOCKED is what keeps two
// concurrent workers from claiming overlapping job sets.
func (r *notificationQueueRepository) Dequeue(ctx context.Context) ([]models.NotificationJob, error) {
	var jobs []models.NotificationJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND scheduled_at <= ?", models.JobPending, time.Now().UTC()).
			Order("priority DESC, scheduled_at ASC").
			Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		now := time.Now().UTC()
		ids := make([]string, len(jobs))
		for i := range jobs {
			ids[i] = jobs[i].ID
			jobs[i].Status = models.JobProcessing
			jobs[i].ProcessingAt = &now
		}
		return tx.Model(&models.NotificationJob{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":        models.JobProcessing,
				"processing_at": now,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue notifications: %w", err)
	}
	return jobs, nil
}

func (r *notificationQueueRepository) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.JobCompleted,
			"completed_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

// MarkFailed increments attempts; below maxAttempts the job goes back to
// pending with an exponential-backoff schedule, otherwise it becomes a
// terminal failure kept for inspection.
func (r *notificationQueueRepository) MarkFailed(ctx context.Context, id string, jobErr string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.NotificationJob
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&job, "id = ?", id).Error; err != nil {
			return err
		}
		job.Attempts++
		now := time.Now().UTC()
		updates := map[string]any{
			"attempts": job.Attempts,
			"error":    jobErr,
		}
		if job.Attempts < job.MaxAttempts {
			updates["status"] = models.JobPending
			updates["scheduled_at"] = now.Add(BackoffDelay(job.Attempts))
			updates["processing_at"] = nil
		} else {
			updates["status"] = models.JobFailed
			updates["failed_at"] = now
		}
		return tx.Model(&models.NotificationJob{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// ReclaimStale requeues processing jobs whose claim is older than the
// timeout, covering workers that crashed mid-batch. Attempts are not
// incremented; the crash was not the job's fault.
func (r *notificationQueueRepository) ReclaimStale(ctx context.Context, processingTimeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-processingTimeout)
	result := r.db.WithContext(ctx).Model(&models.NotificationJob{}).
		Where("status = ? AND processing_at < ?", models.JobProcessing, cutoff).
		Updates(map[string]any{
			"status":        models.JobPending,
			"processing_at": nil,
			"scheduled_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *notificationQueueRepository) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []string{models.JobCompleted, models.JobFailed}, cutoff).
		Delete(&models.NotificationJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup queue: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *notificationQueueRepository) Stats(ctx context.Context) (*models.QueueStats, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.NotificationJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	stats := &models.QueueStats{}
	for _, r := range rows {
		switch r.Status {
		case models.JobPending:
			stats.Pending = r.Count
		case models.JobProcessing:
			stats.Processing = r.Count
		case models.JobCompleted:
			stats.Completed = r.Count
		case models.JobFailed:
			stats.Failed = r.Count
		}
	}
	return stats, nil
}

func (r *notificationQueueRepository) FailedJobs(ctx context.Context, limit int) ([]models.NotificationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []models.NotificationJob
	err := r.db.WithContext(ctx).
		Where("status = ?", models.JobFailed).
		Order("failed_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	return jobs, nil
}

// RetryFailed resets terminal failures back to pending with attempts
// zeroed.
func (r *notificationQueueRepository) RetryFailed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.NotificationJob{}).
		Where("id IN ? AND status = ?", ids, models.JobFailed).
		Updates(map[string]any{
			"status":       models.JobPending,
			"attempts":     0,
			"error":        "",
			"failed_at":    nil,
			"scheduled_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Cancel deletes jobs that have not been claimed yet. In-flight and
// finished jobs are left untouched.
func (r *notificationQueueRepository) Cancel(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, models.JobPending).
		Delete(&models.NotificationJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("cancel jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
