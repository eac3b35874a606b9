package savedsearch

import (
	"context"
	"fmt"
	"strings"

	domain "listing-service/internal/domain/listing"
	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/service/filter"
	"listing-service/internal/service/urlsync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// MaxPerIdentity bounds how many searches one user can keep.
const MaxPerIdentity = 50

type Repository interface {
	Upsert(ctx context.Context, s *domain.SavedSearch) error
	ListByIdentity(ctx context.Context, identityID string) ([]domain.SavedSearch, error)
	CountByIdentity(ctx context.Context, identityID string) (int, error)
	Delete(ctx context.Context, identityID, id string) error
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Save stores the canonical form of an address-bar query under name. The
// query goes through the same normalization as the filter form, so two
// addresses describing the same search are saved once.
func (s *Service) Save(ctx context.Context, identityID string, req *domain.SavedSearchCreateRequest) (*domain.SavedSearch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", xerrors.ErrInvalidInput)
	}

	d, err := urlsync.Decode(req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}
	q := filter.Normalize(filter.Denormalize(d.Query))

	n, err := s.repo.CountByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if n >= MaxPerIdentity {
		return nil, fmt.Errorf("%w: at most %d saved searches", xerrors.ErrInvalidInput, MaxPerIdentity)
	}

	saved := &domain.SavedSearch{
		ID:         ulid.Make().String(),
		IdentityID: identityID,
		Name:       name,
		Query:      q.Key(),
	}
	if err := s.repo.Upsert(ctx, saved); err != nil {
		return nil, err
	}

	s.logger.Info("search saved",
		zap.String("identity_id", identityID),
		zap.String("saved_search_id", saved.ID),
	)
	return saved, nil
}

func (s *Service) List(ctx context.Context, identityID string) ([]domain.SavedSearch, error) {
	searches, err := s.repo.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if searches == nil {
		searches = []domain.SavedSearch{}
	}
	return searches, nil
}

func (s *Service) Delete(ctx context.Context, identityID, id string) error {
	return s.repo.Delete(ctx, identityID, id)
}
