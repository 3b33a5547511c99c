package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed model.conf
var modelText string

const (
	ObjectCredits        = "credits"
	ObjectIntegrations   = "integrations"
	ObjectSales          = "sales"
	ObjectReconciliation = "reconciliation"
	ObjectAudit          = "audit"
)

const (
	ActionCreditsAdjust      = "credits.adjust"
	ActionIntegrationsView   = "integrations.view"
	ActionSalesView          = "sales.view"
	ActionReconciliationView = "reconciliation.view"
	ActionAuditView          = "audit.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, account *accountdomain.Account, object string, action string) error {
	if account == nil || strings.TrimSpace(account.ID) == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}
	if account.IsBanned {
		s.denied(account, object, action)
		return ErrForbidden
	}

	subject := "account:" + account.ID
	roleName := "role:" + strings.ToLower(string(account.Role))
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(account, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per account, following role
// changes made on the accounts table.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) denied(account *accountdomain.Account, object string, action string) {
	s.log.Warn("authorization denied",
		zap.String("account_id", account.ID),
		zap.String("role", string(account.Role)),
		zap.String("object", object),
		zap.String("action", action),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:admin", ObjectCredits, ActionCreditsAdjust},
		{"role:admin", ObjectIntegrations, ActionIntegrationsView},
		{"role:admin", ObjectSales, ActionSalesView},
		{"role:admin", ObjectReconciliation, ActionReconciliationView},
		{"role:admin", ObjectAudit, ActionAuditView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

// EnsureBootstrapAdmin grants the admin role to the configured identity,
// provisioning its account when it has never signed in.
func EnsureBootstrapAdmin(ctx context.Context, db *gorm.DB, clk clock.Clock, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil
	}
	now := clk.Now()
	admin := accountdomain.Account{
		ID:        accountID,
		Tier:      accountdomain.TierFree,
		Role:      accountdomain.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{"role": accountdomain.RoleAdmin, "updated_at": now}),
	}).Create(&admin).Error
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
	fx.Invoke(func(lc fx.Lifecycle, db *gorm.DB, clk clock.Clock, cfg config.Config, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := EnsureBootstrapAdmin(ctx, db, clk, cfg.Identity.AdminUserID); err != nil {
					return err
				}
				if cfg.Identity.AdminUserID != "" {
					log.Named("authorization").Info("bootstrap admin ensured", zap.String("account_id", cfg.Identity.AdminUserID))
				}
				return nil
			},
		})
	}),
)
