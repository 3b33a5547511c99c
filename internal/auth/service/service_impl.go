package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/dreamforge/internal/auth/domain"
	"github.com/smallbiznis/dreamforge/internal/config"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 5 * time.Second
	userPath       = "/auth/v1/user"
)

// Service verifies bearer tokens against the hosted identity provider.
type Service struct {
	log        *zap.Logger
	client     *resty.Client
	configured bool
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func New(cfg config.Config, log *zap.Logger) domain.Service {
	idp := cfg.Identity
	timeout := idp.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(idp.URL), "/")
	anonKey := strings.TrimSpace(idp.AnonKey)

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("apikey", anonKey).
		SetHeader("Accept", "application/json")

	return &Service{
		log:        log.Named("auth.service"),
		client:     client,
		configured: baseURL != "" && anonKey != "",
	}
}

func (s *Service) Configured() bool {
	return s.configured
}

func (s *Service) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	if !s.configured {
		return nil, domain.ErrIdentityNotConfigured
	}

	var body userResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&body).
		Get(userPath)
	if err != nil {
		s.log.Warn("identity provider request failed", zap.Error(err))
		return nil, domain.ErrIdentityUnavailable
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return nil, domain.ErrInvalidToken
	case status >= http.StatusInternalServerError:
		s.log.Warn("identity provider error", zap.Int("status", status))
		return nil, domain.ErrIdentityUnavailable
	case resp.IsError():
		return nil, domain.ErrInvalidToken
	}

	id := strings.TrimSpace(body.ID)
	if id == "" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Identity{
		ID:    id,
		Email: strings.ToLower(strings.TrimSpace(body.Email)),
	}, nil
}
