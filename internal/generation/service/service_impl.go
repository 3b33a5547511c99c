package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	artistdomain "github.com/smallbiznis/dreamforge/internal/artist/domain"
	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/config"
	"github.com/smallbiznis/dreamforge/internal/generation/domain"
	"github.com/smallbiznis/dreamforge/internal/generation/prompt"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	"github.com/smallbiznis/dreamforge/internal/objectstore"
	obsmetrics "github.com/smallbiznis/dreamforge/internal/observability/metrics"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxDreamLength   = 4000
	defaultTimeout   = 120 * time.Second
	maxListLimit     = 50
	moderationStatus = "approved"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Cfg        config.Config
	Settings   *config.GenerationSettingsHolder
	Repo       domain.Repository
	Provider   domain.Provider
	Store      domain.ObjectStore
	Accounts   accountdomain.Service
	Artists    artistdomain.Service
	Ledger     ledgerdomain.Service
	Reconciler reconciliationdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	timeout    time.Duration
	settings   *config.GenerationSettingsHolder
	repo       domain.Repository
	provider   domain.Provider
	store      domain.ObjectStore
	accounts   accountdomain.Service
	artists    artistdomain.Service
	ledger     ledgerdomain.Service
	reconciler reconciliationdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	timeout := p.Cfg.Generation.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("generation.service"),
		clock:      p.Clock,
		timeout:    timeout,
		settings:   p.Settings,
		repo:       p.Repo,
		provider:   p.Provider,
		store:      p.Store,
		accounts:   p.Accounts,
		artists:    p.Artists,
		ledger:     p.Ledger,
		reconciler: p.Reconciler,
		obsMetrics: p.ObsMetrics,
	}
}

// Generate runs checking_balance → generating → persisting → debited → done.
// Nothing is debited and no artifact row remains unless the image was produced
// and durably stored.
func (s *Service) Generate(ctx context.Context, req domain.Request) (*domain.Result, error) {
	log := s.log.With(zap.String("account_id", strings.TrimSpace(req.AccountID)))
	state := domain.StateIdle

	fail := func(err error, outcome string) (*domain.Result, error) {
		failedAt := state
		state = domain.StateError
		s.obsMetrics.RecordGeneration(ctx, outcome)
		log.Info("generation rejected",
			zap.String("state", string(state)),
			zap.String("failed_at", string(failedAt)),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil, err
	}

	resolved, err := s.resolveRequest(ctx, req)
	if err != nil {
		return fail(err, "invalid")
	}

	state = domain.StateCheckingBalance
	account, err := s.accounts.Get(ctx, resolved.AccountID)
	if err != nil {
		return fail(err, "account_error")
	}
	if account.IsBanned {
		return fail(ledgerdomain.ErrAccountSuspended, "suspended")
	}
	if account.Tier == accountdomain.TierFree && account.CreditBalance <= 0 {
		return fail(ledgerdomain.ErrInsufficientCredits, "insufficient_credits")
	}

	// Image and interpretation share one deadline.
	state = domain.StateGenerating
	providerCtx, cancel := context.WithTimeout(ctx, resolved.Timeout)
	defer cancel()
	sourceURL, err := s.generateImage(providerCtx, resolved)
	if err != nil {
		log.Warn("image generation failed", zap.String("model", resolved.ImageModel.Identifier), zap.Error(err))
		return fail(domain.ErrUpstreamProvider, "upstream_error")
	}
	interpretation := s.interpret(providerCtx, resolved, log)
	cancel()

	state = domain.StatePersisting
	artifact, err := s.persist(ctx, resolved, sourceURL, interpretation, log)
	if err != nil {
		return fail(err, "storage_error")
	}

	state = domain.StateDebited
	outcome := "success"
	if account.Tier == accountdomain.TierFree {
		if err := s.debit(ctx, artifact, log); err != nil {
			outcome = "debit_anomaly"
		}
	}

	state = domain.StateDone
	s.obsMetrics.RecordGeneration(ctx, outcome)
	log.Info("generation completed",
		zap.String("state", string(state)),
		zap.String("artifact_id", artifact.ID),
		zap.String("artist_id", artifact.ArtistID),
	)
	return &domain.Result{
		ID:             artifact.ID,
		ImageURL:       artifact.ImageURL,
		Interpretation: artifact.Interpretation,
		ArtistName:     resolved.ArtistName,
		CreatedAt:      artifact.CreatedAt,
	}, nil
}

func (s *Service) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Artifact, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByAccount(ctx, s.db, accountID, limit)
}

// resolveRequest validates the input and applies every default once.
func (s *Service) resolveRequest(ctx context.Context, req domain.Request) (*domain.ResolvedRequest, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, domain.ErrInvalidRequest
	}
	dream := strings.TrimSpace(req.DreamText)
	if dream == "" {
		return nil, domain.ErrEmptyDream
	}
	if utf8.RuneCountInString(dream) > maxDreamLength {
		return nil, domain.ErrInvalidRequest
	}

	settings := s.settings.Get()
	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = settings.DefaultLanguage
	}
	languageName, ok := settings.Languages[language]
	if !ok {
		return nil, domain.ErrInvalidLanguage
	}

	artist, err := s.artists.Get(ctx, req.ArtistID)
	if err != nil {
		if errors.Is(err, artistdomain.ErrNotFound) || errors.Is(err, artistdomain.ErrInvalidArtist) {
			return nil, domain.ErrInvalidArtist
		}
		return nil, err
	}

	return &domain.ResolvedRequest{
		AccountID:    accountID,
		DreamText:    dream,
		ArtistID:     artist.ID,
		ArtistName:   artist.Name,
		ArtistStyle:  artist.StyleDescription,
		Language:     language,
		LanguageName: languageName,
		ImageModel: domain.ModelSpec{
			Identifier: settings.ImageModel.Identifier,
			Preset:     settings.ImageModel.Preset,
		},
		InterpretationModel: domain.ModelSpec{
			Identifier: settings.InterpretationModel.Identifier,
			Preset:     settings.InterpretationModel.Preset,
		},
		FallbackInterpretation: settings.FallbackInterpretation,
		Timeout:                s.timeout,
	}, nil
}

func (s *Service) generateImage(ctx context.Context, r *domain.ResolvedRequest) (string, error) {
	return s.provider.GenerateImage(ctx, r.ImageModel, prompt.Image(r.ArtistName, r.ArtistStyle, r.DreamText))
}

// interpret never fails; the fallback text stands in for any provider error.
func (s *Service) interpret(ctx context.Context, r *domain.ResolvedRequest, log *zap.Logger) string {
	text, err := s.provider.Interpret(ctx, r.InterpretationModel, prompt.Interpretation(r.DreamText, r.LanguageName))
	if err != nil {
		log.Warn("interpretation failed, using fallback",
			zap.String("model", r.InterpretationModel.Identifier),
			zap.Error(err),
		)
		return r.FallbackInterpretation
	}
	return text
}

func (s *Service) persist(
	ctx context.Context,
	r *domain.ResolvedRequest,
	sourceURL string,
	interpretation string,
	log *zap.Logger,
) (*domain.Artifact, error) {
	key := objectstore.ObjectKey(r.AccountID, r.ArtistName)
	durableURL, err := s.store.CopyFromURL(ctx, sourceURL, key)
	if err != nil {
		log.Warn("artifact copy failed", zap.String("key", key), zap.Error(err))
		return nil, domain.ErrStorage
	}

	artifact := &domain.Artifact{
		ID:               uuid.NewString(),
		AccountID:        r.AccountID,
		PromptText:       r.DreamText,
		ArtistID:         r.ArtistID,
		Language:         r.Language,
		ImageURL:         durableURL,
		StorageKey:       key,
		Interpretation:   interpretation,
		ModerationStatus: moderationStatus,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, artifact); err != nil {
		log.Error("artifact insert failed", zap.String("key", key), zap.Error(err))
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Warn("artifact cleanup failed", zap.String("key", key), zap.Error(delErr))
		}
		return nil, domain.ErrStorage
	}
	return artifact, nil
}

// debit charges the persisted artifact. A failure here leaves a stored
// artifact without its ledger row, which is recorded for an operator.
func (s *Service) debit(ctx context.Context, artifact *domain.Artifact, log *zap.Logger) error {
	ctx = context.WithoutCancel(ctx)
	_, err := s.ledger.ApplyGenerationDebit(ctx, artifact.AccountID, artifact.ID)
	if err == nil {
		return nil
	}

	log.Error("debit failed after artifact persisted",
		zap.String("artifact_id", artifact.ID),
		zap.Error(err),
	)
	anomaly := reconciliationdomain.Anomaly{
		Kind:        reconciliationdomain.KindDebitFailedAfterPersist,
		AccountID:   artifact.AccountID,
		ReferenceID: artifact.ID,
		Detail:      err.Error(),
	}
	if _, recErr := s.reconciler.Record(ctx, nil, anomaly); recErr != nil {
		log.Error("failed to record debit anomaly", zap.Error(recErr))
	}
	s.reconciler.Alert(ctx, anomaly)
	return err
}
