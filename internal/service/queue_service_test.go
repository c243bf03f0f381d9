package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sievehub/internal/models"
	"sievehub/internal/repository"
)

func TestEnqueueRejectsInvalidEvents(t *testing.T) {
	svc := NewQueueService(newFakeQueue(), 0)
	ctx := context.Background()

	cases := []struct {
		name  string
		event models.NotificationEvent
	}{
		{"unknown type", models.NotificationEvent{Type: "mystery", ProjectID: "p1", UserID: "u1"}},
		{"missing project", models.NewProjectPublishedEvent("u1", "")},
		{"missing target user", models.NotificationEvent{Type: models.EventProposalPassed, ProjectID: "p1"}},
		{"fanout without item proposal", models.NotificationEvent{Type: models.EventItemProposalSupported, ProjectID: "p1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Enqueue(ctx, tc.event, repository.EnqueueOptions{})
			assert.Equal(t, 400, domainStatus(t, err))
		})
	}

	_, err := svc.EnqueueBatch(ctx, []models.NotificationEvent{
		models.NewProjectPublishedEvent("u1", "p1"),
		{Type: "mystery", ProjectID: "p1", UserID: "u1"},
	}, repository.EnqueueOptions{})
	assert.Equal(t, 400, domainStatus(t, err))
}

func TestEnqueueAppliesConfiguredMaxAttempts(t *testing.T) {
	queue := newFakeQueue()
	svc := NewQueueService(queue, 5)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, models.NewProjectPublishedEvent("u1", "p1"), repository.EnqueueOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, job.MaxAttempts)
	assert.Equal(t, models.JobPending, job.Status)

	// an explicit caller value wins over the configured default
	job, err = svc.Enqueue(ctx, models.NewProjectPublishedEvent("u2", "p1"), repository.EnqueueOptions{MaxAttempts: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, job.MaxAttempts)

	jobs, err := svc.EnqueueBatch(ctx, []models.NotificationEvent{
		models.NewProjectPublishedEvent("u3", "p1"),
		models.NewProjectPublishedEvent("u4", "p1"),
	}, repository.EnqueueOptions{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, 5, j.MaxAttempts)
	}
}
