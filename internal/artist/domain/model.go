package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Artist is a selectable painting style for generation prompts.
type Artist struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name             string    `json:"name" gorm:"type:varchar(128);not null"`
	StyleDescription string    `json:"styleDescription" gorm:"type:text;not null"`
	IsActive         bool      `json:"isActive" gorm:"not null"`
	SortOrder        int       `json:"sortOrder" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt        time.Time `json:"updatedAt" gorm:"not null"`
}

func (Artist) TableName() string { return "artists" }

var (
	ErrNotFound      = errors.New("artist_not_found")
	ErrInvalidArtist = errors.New("invalid_artist")
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Artist, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Artist, error)
	Upsert(ctx context.Context, db *gorm.DB, artist *Artist) error
}

type Service interface {
	// Get returns ErrNotFound for unknown or inactive artists.
	Get(ctx context.Context, id string) (*Artist, error)
	List(ctx context.Context) ([]Artist, error)
	Upsert(ctx context.Context, artist Artist) error
}
