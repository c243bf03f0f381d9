package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sievehub/internal/filter"
	"sievehub/internal/models"
	"sievehub/internal/repository"
)

// CreateSieveInput bundles a create request. Filter state may arrive either
// as structured conditions or as a raw target path; both normalize to the
// same canonical form.
type CreateSieveInput struct {
	Name             string
	Description      string
	Visibility       string
	CreatorID        string
	TargetPath       string
	FilterConditions *filter.StoredFilterConditions
}

// UpdateSieveInput applies partial updates. Nil pointers mean "leave as is".
type UpdateSieveInput struct {
	SieveID          string
	UserID           string
	Name             *string
	Description      *string
	Visibility       *string
	TargetPath       *string
	FilterConditions *filter.StoredFilterConditions
}

type SieveService interface {
	CreateSieve(ctx context.Context, input CreateSieveInput) (*models.SieveWithShareLink, error)
	UpdateSieve(ctx context.Context, input UpdateSieveInput) (*models.SieveWithShareLink, error)
	DeleteSieve(ctx context.Context, sieveID, userID string, preserveShareLink bool) error
	FollowSieve(ctx context.Context, sieveID, userID string) (*models.SieveWithShareLink, error)
	UnfollowSieve(ctx context.Context, sieveID, userID string) (*models.SieveWithShareLink, error)
	GetUserSieves(ctx context.Context, userID string) ([]models.SieveWithShareLink, error)
	GetPublicSievesByCreator(ctx context.Context, creatorID string) ([]models.SieveWithShareLink, error)
	GetUserFollowedSieves(ctx context.Context, userID string) ([]models.SieveWithShareLink, error)
}

type sieveService struct {
	sieves repository.SieveRepository
	links  repository.ShareLinkRepository
	shares ShareLinks
}

func NewSieveService(sieves repository.SieveRepository, links repository.ShareLinkRepository, shares ShareLinks) SieveService {
	return &sieveService{sieves: sieves, links: links, shares: shares}
}

func (s *sieveService) CreateSieve(ctx context.Context, input CreateSieveInput) (*models.SieveWithShareLink, error) {
	if input.Name == "" {
		return nil, validationError("sieve name is required")
	}
	if input.CreatorID == "" {
		return nil, validationError("creator is required")
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
		return nil, validationError("invalid visibility %q", visibility)
	}

	conditions := canonicalConditions(input.FilterConditions, input.TargetPath)
	targetPath := conditions.TargetPath()

	link, err := s.shares.EnsureCustomFilterShareLink(ctx, targetPath, visibility, input.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("ensure share link: %w", err)
	}

	sieve := &models.Sieve{
		ID:               uuid.NewString(),
		Name:             input.Name,
		Description:      input.Description,
		TargetPath:       targetPath,
		Visibility:       visibility,
		Creator:          input.CreatorID,
		ShareLinkID:      link.ID,
		FilterConditions: conditions,
	}
	if err := s.sieves.Create(ctx, sieve); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("a sieve for this filter is already shared")
		}
		return nil, err
	}
	if err := s.links.Update(ctx, link.ID, map[string]any{"entity_id": sieve.ID}); err != nil {
		return nil, err
	}
	return s.compose(sieve, link), nil
}

func (s *sieveService) UpdateSieve(ctx context.Context, input UpdateSieveInput) (*models.SieveWithShareLink, error) {
	sieve, err := s.authorize(ctx, input.SieveID, input.UserID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, validationError("sieve name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	visibility := sieve.Visibility
	if input.Visibility != nil {
		if *input.Visibility != models.VisibilityPublic && *input.Visibility != models.VisibilityPrivate {
			return nil, validationError("invalid visibility %q", *input.Visibility)
		}
		visibility = *input.Visibility
	}

	// Recompute filter state only when new conditions arrived or the
	// supplied path differs from the stored canonical one.
	conditions := sieve.FilterConditions
	recompute := false
	if input.FilterConditions != nil {
		conditions = filter.Normalize(*input.FilterConditions)
		recompute = true
	} else if input.TargetPath != nil {
		parsed := filter.ParsePath(*input.TargetPath)
		if parsed.TargetPath() != sieve.TargetPath {
			conditions = parsed
			recompute = true
		}
	}

	targetPath := sieve.TargetPath
	if recompute {
		conditions.Metadata.UpdatedAt = time.Now().UTC()
		targetPath = conditions.TargetPath()
		updates["filter_conditions"] = conditions
		updates["target_path"] = targetPath
	}

	shareLinkID := sieve.ShareLinkID
	if targetPath != sieve.TargetPath || visibility != sieve.Visibility {
		link, err := s.shares.EnsureCustomFilterShareLink(ctx, targetPath, visibility, sieve.Creator)
		if err != nil {
			return nil, fmt.Errorf("ensure share link: %w", err)
		}
		if err := s.links.Update(ctx, link.ID, map[string]any{"entity_id": sieve.ID}); err != nil {
			return nil, err
		}
		shareLinkID = link.ID
		updates["share_link_id"] = shareLinkID
		updates["visibility"] = visibility
	} else if input.Visibility != nil {
		updates["visibility"] = visibility
	}

	if len(updates) == 0 {
		return s.load(ctx, sieve)
	}

	if err := s.sieves.Update(ctx, sieve.ID, updates); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("a sieve for this filter is already shared")
		}
		return nil, err
	}
	updated, err := s.sieves.GetByID(ctx, sieve.ID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, updated)
}

func (s *sieveService) DeleteSieve(ctx context.Context, sieveID, userID string, preserveShareLink bool) error {
	sieve, err := s.authorize(ctx, sieveID, userID)
	if err != nil {
		return err
	}
	return s.sieves.Delete(ctx, sieve.ID, sieve.ShareLinkID, !preserveShareLink)
}

func (s *sieveService) FollowSieve(ctx context.Context, sieveID, userID string) (*models.SieveWithShareLink, error) {
	sieve, err := s.sieves.GetByID(ctx, sieveID)
	if err != nil {
		return nil, err
	}
	if sieve == nil {
		return nil, notFoundError("sieve not found")
	}
	if sieve.Creator == userID {
		return nil, validationError("cannot follow your own sieve")
	}
	if sieve.Visibility == models.VisibilityPrivate {
		return nil, forbiddenError("cannot follow a private sieve")
	}
	count, err := s.sieves.Follow(ctx, sieveID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("already following this sieve")
		}
		return nil, err
	}
	sieve.FollowCount = count
	return s.load(ctx, sieve)
}

func (s *sieveService) UnfollowSieve(ctx context.Context, sieveID, userID string) (*models.SieveWithShareLink, error) {
	sieve, err := s.sieves.GetByID(ctx, sieveID)
	if err != nil {
		return nil, err
	}
	if sieve == nil {
		return nil, notFoundError("sieve not found")
	}
	count, err := s.sieves.Unfollow(ctx, sieveID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("not following this sieve")
		}
		return nil, err
	}
	sieve.FollowCount = count
	return s.load(ctx, sieve)
}

func (s *sieveService) GetUserSieves(ctx context.Context, userID string) ([]models.SieveWithShareLink, error) {
	sieves, err := s.sieves.ListByCreator(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return s.composeAll(ctx, sieves)
}

func (s *sieveService) GetPublicSievesByCreator(ctx context.Context, creatorID string) ([]models.SieveWithShareLink, error) {
	sieves, err := s.sieves.ListByCreator(ctx, creatorID, true)
	if err != nil {
		return nil, err
	}
	return s.composeAll(ctx, sieves)
}

// GetUserFollowedSieves drops followed sieves that have since gone private
// under another owner; visibility can be revoked retroactively.
func (s *sieveService) GetUserFollowedSieves(ctx context.Context, userID string) ([]models.SieveWithShareLink, error) {
	sieves, err := s.sieves.ListFollowed(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible := sieves[:0]
	for _, sieve := range sieves {
		if sieve.Visibility == models.VisibilityPrivate && sieve.Creator != userID {
			continue
		}
		visible = append(visible, sieve)
	}
	return s.composeAll(ctx, visible)
}

func (s *sieveService) authorize(ctx context.Context, sieveID, userID string) (*models.Sieve, error) {
	sieve, err := s.sieves.GetByID(ctx, sieveID)
	if err != nil {
		return nil, err
	}
	if sieve == nil {
		return nil, notFoundError("sieve not found")
	}
	if sieve.Creator != userID {
		return nil, forbiddenError("only the creator can modify this sieve")
	}
	return sieve, nil
}

func (s *sieveService) load(ctx context.Context, sieve *models.Sieve) (*models.SieveWithShareLink, error) {
	link, err := s.links.GetByID(ctx, sieve.ShareLinkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, notFoundError("share link missing for sieve")
	}
	return s.compose(sieve, link), nil
}

func (s *sieveService) compose(sieve *models.Sieve, link *models.ShareLink) *models.SieveWithShareLink {
	return &models.SieveWithShareLink{
		Sieve:     *sieve,
		ShareCode: link.Code,
		ShareURL:  s.shares.BuildShareURL(link.Code),
	}
}

func (s *sieveService) composeAll(ctx context.Context, sieves []models.Sieve) ([]models.SieveWithShareLink, error) {
	out := make([]models.SieveWithShareLink, 0, len(sieves))
	for i := range sieves {
		composed, err := s.load(ctx, &sieves[i])
		if err != nil {
			var domainErr *DomainError
			if errors.As(err, &domainErr) {
				continue
			}
			return nil, err
		}
		out = append(out, *composed)
	}
	return out, nil
}

// canonicalConditions picks structured conditions over a raw path, then
// normalizes either into canonical form.
func canonicalConditions(conditions *filter.StoredFilterConditions, targetPath string) filter.StoredFilterConditions {
	if conditions != nil {
		return filter.Normalize(*conditions)
	}
	return filter.ParsePath(targetPath)
}
