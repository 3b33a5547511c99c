package domain

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrEmptyDream       = errors.New("dream_text_required")
	ErrInvalidArtist    = errors.New("invalid_artist")
	ErrInvalidLanguage  = errors.New("invalid_language")
	ErrUpstreamProvider = errors.New("upstream_provider_error")
	ErrStorage          = errors.New("artifact_storage_failed")
	ErrNoOutput         = errors.New("provider_returned_no_output")
)
