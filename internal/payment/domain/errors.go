package domain

import "errors"

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrWebhookNotConfigured  = errors.New("webhook_not_configured")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrCheckoutNotConfigured = errors.New("checkout_not_configured")
	ErrInvalidVariant        = errors.New("invalid_variant")
	ErrUpstreamProvider      = errors.New("upstream_provider_error")
)
