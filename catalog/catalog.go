package catalog

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrContentNotFound = errors.New("content not found")
	ErrSeriesNotFound  = errors.New("series not found")
	ErrEpisodeNotFound = errors.New("episode not found")
)

// IsNotFound reports whether err is one of the catalog not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContentNotFound) ||
		errors.Is(err, ErrSeriesNotFound) ||
		errors.Is(err, ErrEpisodeNotFound)
}

// =============================================================================
// STORE - persistence interface, implemented by store/sqlite
// =============================================================================

type Store interface {
	CreateContent(ctx context.Context, c Content) (Content, error)
	ListContent(ctx context.Context) ([]Content, error)
	FeaturedContent(ctx context.Context) ([]Content, error)
	ContentByGenre(ctx context.Context, genre string) ([]Content, error)
	ContentByID(ctx context.Context, id ContentID) (Content, error)

	CreateSeries(ctx context.Context, s Series) (Series, error)
	ListSeries(ctx context.Context) ([]Series, error)
	FeaturedSeries(ctx context.Context) ([]Series, error)
	SeriesByID(ctx context.Context, id SeriesID) (Series, error)

	CreateEpisode(ctx context.Context, e Episode) (Episode, error)
	SeriesEpisodes(ctx context.Context, id SeriesID) ([]Episode, error)
	EpisodeByID(ctx context.Context, id EpisodeID) (Episode, error)

	IncrementViewCount(ctx context.Context, ref UnitRef) error
}

// =============================================================================
// POINT VALUER - collaborator interface consumed by the accrual engine
// =============================================================================

// PointValuer resolves a unit reference to its authoritative point
// value, runtime, and genres. Both content and episodes go through
// here; there is no fallback constant for either kind.
type PointValuer interface {
	ResolveUnit(ctx context.Context, ref UnitRef) (Unit, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes catalog browse operations and implements PointValuer.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

var _ PointValuer = (*Service)(nil)

// ResolveUnit returns the award view for a unit. Episode genres come
// from the owning series; episodes carry none of their own.
func (s *Service) ResolveUnit(ctx context.Context, ref UnitRef) (Unit, error) {
	if err := ref.Validate(); err != nil {
		return Unit{}, err
	}

	if ref.IsContent() {
		c, err := s.store.ContentByID(ctx, ref.ContentID)
		if err != nil {
			return Unit{}, err
		}
		return Unit{
			Ref:      ref,
			Title:    c.Title,
			Points:   c.PointValue,
			Duration: c.Duration,
			Genres:   c.Genres,
		}, nil
	}

	ep, err := s.store.EpisodeByID(ctx, ref.EpisodeID)
	if err != nil {
		return Unit{}, err
	}
	sr, err := s.store.SeriesByID(ctx, ep.SeriesID)
	if err != nil {
		return Unit{}, fmt.Errorf("series for episode %d: %w", ep.ID, err)
	}
	return Unit{
		Ref:      ref,
		Title:    fmt.Sprintf("%s S%dE%d: %s", sr.Title, ep.SeasonNumber, ep.EpisodeNumber, ep.Title),
		Points:   ep.PointValue,
		Duration: ep.Duration,
		Genres:   sr.Genres,
	}, nil
}

// Browse operations. Thin pass-throughs; the store orders results.

func (s *Service) ListContent(ctx context.Context) ([]Content, error) {
	return s.store.ListContent(ctx)
}

func (s *Service) FeaturedContent(ctx context.Context) ([]Content, error) {
	return s.store.FeaturedContent(ctx)
}

func (s *Service) ContentByGenre(ctx context.Context, genre string) ([]Content, error) {
	return s.store.ContentByGenre(ctx, genre)
}

// GetContent returns one content item and bumps its view counter.
func (s *Service) GetContent(ctx context.Context, id ContentID) (Content, error) {
	c, err := s.store.ContentByID(ctx, id)
	if err != nil {
		return Content{}, err
	}
	if err := s.store.IncrementViewCount(ctx, ContentRef(id)); err != nil {
		return Content{}, err
	}
	c.ViewCount++
	return c, nil
}

func (s *Service) ListSeries(ctx context.Context) ([]Series, error) {
	return s.store.ListSeries(ctx)
}

func (s *Service) FeaturedSeries(ctx context.Context) ([]Series, error) {
	return s.store.FeaturedSeries(ctx)
}

func (s *Service) GetSeries(ctx context.Context, id SeriesID) (Series, error) {
	return s.store.SeriesByID(ctx, id)
}

func (s *Service) SeriesEpisodes(ctx context.Context, id SeriesID) ([]Episode, error) {
	if _, err := s.store.SeriesByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.SeriesEpisodes(ctx, id)
}
