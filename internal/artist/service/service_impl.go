package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/dreamforge/internal/artist/domain"
	"github.com/smallbiznis/dreamforge/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("artist.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Artist, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidArtist
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil || !item.IsActive {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Artist, error) {
	return s.repo.List(ctx, s.db, true)
}

func (s *Service) Upsert(ctx context.Context, artist domain.Artist) error {
	artist.ID = strings.TrimSpace(artist.ID)
	artist.Name = strings.TrimSpace(artist.Name)
	if artist.ID == "" || artist.Name == "" {
		return domain.ErrInvalidArtist
	}
	now := s.clock.Now()
	if artist.CreatedAt.IsZero() {
		artist.CreatedAt = now
	}
	artist.UpdatedAt = now
	return s.repo.Upsert(ctx, s.db, &artist)
}
