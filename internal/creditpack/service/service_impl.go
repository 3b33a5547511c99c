package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/creditpack/domain"
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
		log:   p.Log.Named("creditpack.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Resolve ignores is_active: a purchase of a retired pack is still honored.
func (s *Service) Resolve(ctx context.Context, provider, variantID string) (*domain.CreditPack, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	variantID = strings.TrimSpace(variantID)
	if provider == "" || variantID == "" {
		return nil, nil
	}
	return s.repo.FindByVariant(ctx, s.db, provider, variantID)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.CreditPack, error) {
	return s.repo.List(ctx, s.db, activeOnly)
}

func (s *Service) Upsert(ctx context.Context, pack domain.CreditPack) error {
	pack.ID = strings.TrimSpace(pack.ID)
	if pack.ID == "" || pack.CreditAmount <= 0 {
		return domain.ErrInvalidPack
	}
	seen := map[string]struct{}{}
	for i, v := range pack.Variants {
		provider := strings.ToLower(strings.TrimSpace(v.Provider))
		variantID := strings.TrimSpace(v.VariantID)
		if provider == "" || variantID == "" {
			return domain.ErrInvalidVariant
		}
		if _, dup := seen[provider]; dup {
			return domain.ErrInvalidVariant
		}
		seen[provider] = struct{}{}
		pack.Variants[i] = domain.Variant{Provider: provider, VariantID: variantID, PackID: pack.ID}
	}

	now := s.clock.Now()
	if pack.CreatedAt.IsZero() {
		pack.CreatedAt = now
	}
	pack.UpdatedAt = now
	if err := s.repo.Upsert(ctx, s.db, &pack); err != nil {
		return err
	}
	s.log.Debug("credit pack upserted", zap.String("pack_id", pack.ID), zap.Int64("credits", pack.CreditAmount))
	return nil
}
