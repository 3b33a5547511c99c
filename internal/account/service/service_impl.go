package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/dreamforge/internal/account/domain"
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
		log:   p.Log.Named("account.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidAccountID
	}
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

// EnsureAccount provisions a FREE account with a zero balance the first time
// an identity is seen. Existing rows are returned untouched.
func (s *Service) EnsureAccount(ctx context.Context, req domain.EnsureRequest) (*domain.Account, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, domain.ErrInvalidAccountID
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	account := &domain.Account{
		ID:            id,
		Email:         strings.TrimSpace(req.Email),
		CreditBalance: 0,
		Tier:          domain.TierFree,
		Role:          domain.RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := s.repo.Insert(ctx, s.db, account)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("account provisioned", zap.String("account_id", id))
		return account, nil
	}

	// Lost a race with a concurrent first sign-in.
	return s.Get(ctx, id)
}
