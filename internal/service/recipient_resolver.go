package service

import (
	"context"
	"fmt"

	"sievehub/internal/cache"
	"sievehub/internal/models"
	"sievehub/internal/repository"
)

// Recipient is one candidate receiver of an event with the roles it holds
// relative to the event's subject. Roles accumulate: a user who both owns
// the project and created the item proposal carries both flags.
type Recipient struct {
	UserID         string
	IsCreator      bool
	IsVoter        bool
	IsProjectOwner bool
}

type RecipientResolver interface {
	Resolve(ctx context.Context, event models.NotificationEvent) ([]Recipient, error)
}

type recipientResolver struct {
	cache     cache.Cache
	projects  repository.ProjectRepository
	proposals repository.ItemProposalRepository
}

func NewRecipientResolver(c cache.Cache, projects repository.ProjectRepository, proposals repository.ItemProposalRepository) RecipientResolver {
	return &recipientResolver{cache: c, projects: projects, proposals: proposals}
}

func (r *recipientResolver) Resolve(ctx context.Context, event models.NotificationEvent) ([]Recipient, error) {
	switch event.Type {
	case models.EventCreateItemProposal:
		owner, err := r.projectOwner(ctx, event.ProjectID)
		if err != nil {
			return nil, err
		}
		if owner == "" {
			return nil, nil
		}
		return []Recipient{{UserID: owner, IsProjectOwner: true}}, nil

	case models.EventItemProposalSupported,
		models.EventItemProposalBecameLeading,
		models.EventItemProposalLostLeading:
		return r.resolveFanout(ctx, event)

	default:
		// A direct-target event is about the target's own contribution
		// (their proposal passed, their project published), so it carries
		// the creator tag and survives the my_contributions preference.
		if event.UserID == "" {
			return nil, nil
		}
		return []Recipient{{UserID: event.UserID, IsCreator: true}}, nil
	}
}

// resolveFanout unions the project owner, the item-proposal creator and
// every distinct voter, merging role flags per user.
func (r *recipientResolver) resolveFanout(ctx context.Context, event models.NotificationEvent) ([]Recipient, error) {
	owner, err := r.projectOwner(ctx, event.ProjectID)
	if err != nil {
		return nil, err
	}
	contrib, err := r.contributors(ctx, event.ItemProposalID)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*Recipient)
	var order []string
	tag := func(userID string, set func(*Recipient)) {
		if userID == "" {
			return
		}
		rec, ok := byUser[userID]
		if !ok {
			rec = &Recipient{UserID: userID}
			byUser[userID] = rec
			order = append(order, userID)
		}
		set(rec)
	}
	tag(owner, func(rec *Recipient) { rec.IsProjectOwner = true })
	tag(contrib.Creator, func(rec *Recipient) { rec.IsCreator = true })
	for _, voter := range contrib.Voters {
		tag(voter, func(rec *Recipient) { rec.IsVoter = true })
	}

	recipients := make([]Recipient, 0, len(order))
	for _, userID := range order {
		recipients = append(recipients, *byUser[userID])
	}
	return recipients, nil
}

func (r *recipientResolver) projectOwner(ctx context.Context, projectID string) (string, error) {
	if owner, ok := r.cache.ProjectOwner(ctx, projectID); ok {
		return owner, nil
	}
	owner, err := r.projects.OwnerOf(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("resolve project owner: %w", err)
	}
	if owner != "" {
		r.cache.SetProjectOwner(ctx, projectID, owner)
	}
	return owner, nil
}

func (r *recipientResolver) contributors(ctx context.Context, itemProposalID string) (cache.Contributors, error) {
	if contrib, ok := r.cache.ItemProposalContributors(ctx, itemProposalID); ok {
		return contrib, nil
	}
	creator, voters, err := r.proposals.Contributors(ctx, itemProposalID)
	if err != nil {
		return cache.Contributors{}, fmt.Errorf("resolve item proposal contributors: %w", err)
	}
	contrib := cache.Contributors{Creator: creator, Voters: voters}
	if creator != "" {
		r.cache.SetItemProposalContributors(ctx, itemProposalID, contrib)
	}
	return contrib, nil
}
