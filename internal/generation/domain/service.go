package domain

import (
	"context"

	"gorm.io/gorm"
)

// Provider is the external generation service. Errors wrap ErrUpstreamProvider.
type Provider interface {
	// GenerateImage returns a short-lived URL of the produced image.
	GenerateImage(ctx context.Context, model ModelSpec, prompt string) (string, error)
	Interpret(ctx context.Context, model ModelSpec, prompt string) (string, error)
}

// ObjectStore keeps durable copies of provider results.
type ObjectStore interface {
	// CopyFromURL downloads sourceURL and stores it under key, returning the
	// durable public URL.
	CopyFromURL(ctx context.Context, sourceURL, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, artifact *Artifact) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Artifact, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID string, limit int) ([]Artifact, error)
}

type Service interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Artifact, error)
}
