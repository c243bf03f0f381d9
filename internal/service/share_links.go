package service

import (
	"context"
	"strings"

	"sievehub/internal/models"
	"sievehub/internal/repository"
)

// SharePayload is what a share code resolves to.
type SharePayload struct {
	Code       string `json:"code"`
	TargetPath string `json:"target_path"`
	Visibility string `json:"visibility"`
}

// ShareLinks is the short-code collaborator the sieve service depends on.
type ShareLinks interface {
	EnsureCustomFilterShareLink(ctx context.Context, targetPath, visibility, createdBy string) (*models.ShareLink, error)
	GetSharePayload(ctx context.Context, code string) (*SharePayload, error)
	BuildPublicSievePath(code string) string
	BuildShareURL(code string) string
}

type shareLinkService struct {
	links   repository.ShareLinkRepository
	baseURL string
}

// NewShareLinkService builds the table-backed ShareLinks implementation.
// baseURL is the public origin share URLs are rooted at.
func NewShareLinkService(links repository.ShareLinkRepository, baseURL string) ShareLinks {
	return &shareLinkService{links: links, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *shareLinkService) EnsureCustomFilterShareLink(ctx context.Context, targetPath, visibility, createdBy string) (*models.ShareLink, error) {
	return s.links.Ensure(ctx, targetPath, visibility, createdBy)
}

func (s *shareLinkService) GetSharePayload(ctx context.Context, code string) (*SharePayload, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, nil
	}
	return &SharePayload{
		Code:       link.Code,
		TargetPath: link.TargetURL,
		Visibility: link.Visibility,
	}, nil
}

func (s *shareLinkService) BuildPublicSievePath(code string) string {
	return "/s/" + code
}

func (s *shareLinkService) BuildShareURL(code string) string {
	return s.baseURL + s.BuildPublicSievePath(code)
}
