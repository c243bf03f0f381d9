package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sievehub/internal/cache"
	"sievehub/internal/models"
	"sievehub/internal/repository"
)

// fakeQueue is an in-memory stand-in for the Postgres-backed queue with the
// same lifecycle contract: atomic claim, exponential backoff on failure,
// terminal failure once attempts are exhausted.
type fakeQueue struct {
	mu   sync.Mutex
	jobs map[string]*models.NotificationJob
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: make(map[string]*models.NotificationJob)}
}

func (q *fakeQueue) Enqueue(_ context.Context, event models.NotificationEvent, opts repository.EnqueueOptions) (*models.NotificationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxAttempts
	}
	scheduledAt := opts.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now().UTC()
	}
	job := &models.NotificationJob{
		ID:          uuid.NewString(),
		Payload:     models.EventPayload{NotificationEvent: event},
		Status:      models.JobPending,
		Priority:    opts.Priority,
		MaxAttempts: maxAttempts,
		ScheduledAt: scheduledAt,
	}
	q.jobs[job.ID] = job
	return job, nil
}

func (q *fakeQueue) EnqueueBatch(ctx context.Context, events []models.NotificationEvent, opts repository.EnqueueOptions) ([]models.NotificationJob, error) {
	var out []models.NotificationJob
	for _, e := range events {
		job, err := q.Enqueue(ctx, e, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, nil
}

func (q *fakeQueue) Dequeue(_ context.Context) ([]models.NotificationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().UTC()
	var claimed []models.NotificationJob
	for _, job := range q.jobs {
		if job.Status == models.JobPending && !job.ScheduledAt.After(now) {
			job.Status = models.JobProcessing
			processingAt := now
			job.ProcessingAt = &processingAt
			claimed = append(claimed, *job)
		}
	}
	return claimed, nil
}

func (q *fakeQueue) MarkCompleted(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	now := time.Now().UTC()
	job.Status = models.JobCompleted
	job.CompletedAt = &now
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id string, jobErr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Attempts++
	job.Error = jobErr
	now := time.Now().UTC()
	if job.Attempts < job.MaxAttempts {
		job.Status = models.JobPending
		job.ScheduledAt = now.Add(repository.BackoffDelay(job.Attempts))
		job.ProcessingAt = nil
	} else {
		job.Status = models.JobFailed
		job.FailedAt = &now
	}
	return nil
}

func (q *fakeQueue) ReclaimStale(_ context.Context, timeout time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := time.Now().UTC().Add(-timeout)
	var reclaimed int64
	for _, job := range q.jobs {
		if job.Status == models.JobProcessing && job.ProcessingAt != nil && job.ProcessingAt.Before(cutoff) {
			job.Status = models.JobPending
			job.ProcessingAt = nil
			job.ScheduledAt = time.Now().UTC()
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (q *fakeQueue) Cleanup(_ context.Context, daysToKeep int) (int64, error) {
	return 0, nil
}

func (q *fakeQueue) Stats(_ context.Context) (*models.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := &models.QueueStats{}
	for _, job := range q.jobs {
		switch job.Status {
		case models.JobPending:
			stats.Pending++
		case models.JobProcessing:
			stats.Processing++
		case models.JobCompleted:
			stats.Completed++
		case models.JobFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (q *fakeQueue) FailedJobs(_ context.Context, limit int) ([]models.NotificationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []models.NotificationJob
	for _, job := range q.jobs {
		if job.Status == models.JobFailed {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (q *fakeQueue) RetryFailed(_ context.Context, ids []string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	for _, id := range ids {
		if job, ok := q.jobs[id]; ok && job.Status == models.JobFailed {
			job.Status = models.JobPending
			job.Attempts = 0
			job.Error = ""
			job.FailedAt = nil
			job.ScheduledAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (q *fakeQueue) Cancel(_ context.Context, ids []string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	for _, id := range ids {
		if job, ok := q.jobs[id]; ok && job.Status == models.JobPending {
			delete(q.jobs, id)
			n++
		}
	}
	return n, nil
}

func (q *fakeQueue) get(id string) models.NotificationJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return *q.jobs[id]
}

// fakeNotifications collects delivered rows and can be made to fail.
type fakeNotifications struct {
	mu      sync.Mutex
	rows    []models.Notification
	failFor int
}

func (f *fakeNotifications) CreateBatch(_ context.Context, notifications []models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor > 0 {
		f.failFor--
		return fmt.Errorf("smtp gateway unavailable")
	}
	f.rows = append(f.rows, notifications...)
	return nil
}

func (f *fakeNotifications) GetUnreadByUser(_ context.Context, userID string) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeNotifications) MarkAsRead(_ context.Context, userID string, notificationID int64) (int64, error) {
	return 0, nil
}

func (f *fakeNotifications) MarkAllAsRead(_ context.Context, userID string) error {
	return nil
}

func newPipeline(t *testing.T, queue *fakeQueue, notifs *fakeNotifications) (*QueueProcessor, *MockProjectRepo, *MockItemProposalRepo, *MockSettingsRepo) {
	t.Helper()
	projects := new(MockProjectRepo)
	proposals := new(MockItemProposalRepo)
	settings := new(MockSettingsRepo)
	c := cache.NewMemory(50, time.Minute)
	resolver := NewRecipientResolver(c, projects, proposals)
	preferences := NewPreferenceFilter(c, settings)
	processor := NewQueueProcessor(queue, notifs, resolver, preferences, 10*time.Minute, nil)
	return processor, projects, proposals, settings
}

func TestProcessPendingDeliversToFilteredRecipients(t *testing.T) {
	queue := newFakeQueue()
	notifs := &fakeNotifications{}
	processor, projects, proposals, settings := newPipeline(t, queue, notifs)

	projects.On("OwnerOf", mock.Anything, "p1").Return("owner-1", nil)
	proposals.On("Contributors", mock.Anything, "ip1").
		Return("creator-1", []string{"voter-1"}, nil)
	settings.On("GetBatch", mock.Anything, mock.Anything, "p1").
		Return(map[string]string{"voter-1": models.ModeMuted}, nil)

	event := models.NewItemProposalFanoutEvent(models.EventItemProposalSupported, "p1", "ip1", "voter-1")
	_, err := queue.Enqueue(context.Background(), event, repository.EnqueueOptions{})
	require.NoError(t, err)

	result, err := processor.ProcessPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Claimed)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 0, result.Failed)
	// owner and creator default to my_contributions and qualify by role;
	// the muted voter is dropped
	assert.Equal(t, 2, result.Delivered)
	require.Len(t, notifs.rows, 2)
	for _, row := range notifs.rows {
		assert.Equal(t, models.EventItemProposalSupported, row.Type)
		assert.Equal(t, "p1", row.ProjectID)
		assert.Equal(t, "ip1", row.ItemProposalID)
	}
}

func TestProcessPendingDeliversDirectTargetByDefault(t *testing.T) {
	queue := newFakeQueue()
	notifs := &fakeNotifications{}
	processor, _, _, settings := newPipeline(t, queue, notifs)
	// no stored preference row: the target falls back to my_contributions
	settings.On("GetBatch", mock.Anything, []string{"u1"}, "p1").
		Return(map[string]string{}, nil).Once()

	event := models.NewProposalEvent(models.EventProposalPassed, "u1", "p1", "prop1", 25)
	_, err := queue.Enqueue(context.Background(), event, repository.EnqueueOptions{})
	require.NoError(t, err)

	result, err := processor.ProcessPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 1, result.Delivered)
	require.Len(t, notifs.rows, 1)
	assert.Equal(t, "u1", notifs.rows[0].UserID)
	assert.Equal(t, models.EventProposalPassed, notifs.rows[0].Type)
}

func TestProcessPendingRetriesWithBackoffThenFailsTerminally(t *testing.T) {
	queue := newFakeQueue()
	notifs := &fakeNotifications{failFor: 99}
	processor, _, _, settings := newPipeline(t, queue, notifs)
	settings.On("GetBatch", mock.Anything, mock.Anything, "p1").
		Return(map[string]string{}, nil)

	event := models.NewProposalEvent(models.EventProposalPassed, "u1", "p1", "prop1", 0)
	job, err := queue.Enqueue(context.Background(), event, repository.EnqueueOptions{MaxAttempts: 3})
	require.NoError(t, err)

	// attempt 1: back to pending, future schedule
	_, err = processor.ProcessPending(context.Background())
	require.NoError(t, err)
	after1 := queue.get(job.ID)
	assert.Equal(t, models.JobPending, after1.Status)
	assert.Equal(t, 1, after1.Attempts)
	assert.True(t, after1.ScheduledAt.After(time.Now().UTC()))

	// attempt 2: schedule strictly later than attempt 1's
	forceDue(queue, job.ID)
	_, err = processor.ProcessPending(context.Background())
	require.NoError(t, err)
	after2 := queue.get(job.ID)
	assert.Equal(t, models.JobPending, after2.Status)
	assert.Equal(t, 2, after2.Attempts)
	assert.True(t, after2.ScheduledAt.Sub(time.Now().UTC()) > after1.ScheduledAt.Sub(time.Now().UTC()),
		"backoff must grow with attempts")

	// attempt 3: exhausted, terminal failure
	forceDue(queue, job.ID)
	_, err = processor.ProcessPending(context.Background())
	require.NoError(t, err)
	after3 := queue.get(job.ID)
	assert.Equal(t, models.JobFailed, after3.Status)
	assert.Equal(t, 3, after3.Attempts)
	assert.NotNil(t, after3.FailedAt)
	assert.Contains(t, after3.Error, "smtp gateway unavailable")

	failed, err := queue.FailedJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, job.ID, failed[0].ID)
}

func TestConcurrentDequeuePartitionsJobs(t *testing.T) {
	queue := newFakeQueue()
	const n = 40
	for i := 0; i < n; i++ {
		event := models.NewProposalEvent(models.EventCreateProposal, fmt.Sprintf("u%d", i), "p1", "prop1", 0)
		_, err := queue.Enqueue(context.Background(), event, repository.EnqueueOptions{})
		require.NoError(t, err)
	}

	results := make([][]models.NotificationJob, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jobs, err := queue.Dequeue(context.Background())
			assert.NoError(t, err)
			results[i] = jobs
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	total := 0
	for _, jobs := range results {
		for _, job := range jobs {
			assert.False(t, seen[job.ID], "job %s claimed twice", job.ID)
			seen[job.ID] = true
			total++
		}
	}
	assert.Equal(t, n, total)
}

func TestReclaimStaleRequeuesCrashedClaims(t *testing.T) {
	queue := newFakeQueue()
	notifs := &fakeNotifications{}
	processor, _, _, settings := newPipeline(t, queue, notifs)
	settings.On("GetBatch", mock.Anything, mock.Anything, "p1").
		Return(map[string]string{}, nil)

	event := models.NewProposalEvent(models.EventProjectPublished, "u1", "p1", "", 0)
	job, err := queue.Enqueue(context.Background(), event, repository.EnqueueOptions{})
	require.NoError(t, err)

	// simulate a worker that claimed the job and died
	_, err = queue.Dequeue(context.Background())
	require.NoError(t, err)
	stale := time.Now().UTC().Add(-time.Hour)
	queue.mu.Lock()
	queue.jobs[job.ID].ProcessingAt = &stale
	queue.mu.Unlock()

	result, err := processor.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Reclaimed)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, models.JobCompleted, queue.get(job.ID).Status)
	// a reclaim is not the job's fault
	assert.Equal(t, 0, queue.get(job.ID).Attempts)
}

func TestCancelOnlyTouchesPendingJobs(t *testing.T) {
	queue := newFakeQueue()
	ctx := context.Background()

	pending, err := queue.Enqueue(ctx, models.NewProjectPublishedEvent("u1", "p1"), repository.EnqueueOptions{})
	require.NoError(t, err)
	claimed, err := queue.Enqueue(ctx, models.NewProjectPublishedEvent("u2", "p1"), repository.EnqueueOptions{})
	require.NoError(t, err)

	// claim the second job, then schedule the first into the future so only
	// the claimed one is in flight
	queue.mu.Lock()
	queue.jobs[claimed.ID].Status = models.JobProcessing
	queue.mu.Unlock()

	cancelled, err := queue.Cancel(ctx, []string{pending.ID, claimed.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled)
	assert.Equal(t, models.JobProcessing, queue.get(claimed.ID).Status)
}

func forceDue(queue *fakeQueue, id string) {
	queue.mu.Lock()
	queue.jobs[id].ScheduledAt = time.Now().UTC().Add(-time.Second)
	queue.mu.Unlock()
}
