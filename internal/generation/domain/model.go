package domain

import (
	"time"
)

// Artifact is a persisted generation. Its id is the reference of the single
// dream_used ledger transaction that paid for it.
type Artifact struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AccountID        string    `json:"accountId" gorm:"type:varchar(64);not null;index"`
	PromptText       string    `json:"promptText" gorm:"type:text;not null"`
	ArtistID         string    `json:"artistId" gorm:"type:varchar(64);not null"`
	Language         string    `json:"language" gorm:"type:varchar(8);not null"`
	ImageURL         string    `json:"imageUrl" gorm:"type:text;not null"`
	StorageKey       string    `json:"-" gorm:"type:varchar(255);not null"`
	Interpretation   string    `json:"interpretation" gorm:"type:text;not null"`
	ModerationStatus string    `json:"moderationStatus" gorm:"type:varchar(16);not null"`
	CreatedAt        time.Time `json:"createdAt" gorm:"not null;index"`
}

func (Artifact) TableName() string { return "generation_artifacts" }

// State is a step of the generation flow, used for logs and metrics.
type State string

const (
	StateIdle            State = "idle"
	StateCheckingBalance State = "checking_balance"
	StateGenerating      State = "generating"
	StatePersisting      State = "persisting"
	StateDebited         State = "debited"
	StateDone            State = "done"
	StateError           State = "error"
)

// Request is the raw end-user input.
type Request struct {
	AccountID string
	DreamText string
	ArtistID  string
	Language  string
}

// ModelSpec is a resolved provider model and its input preset.
type ModelSpec struct {
	Identifier string
	Preset     string
}

// ResolvedRequest carries every default applied once, before the flow runs.
type ResolvedRequest struct {
	AccountID              string
	DreamText              string
	ArtistID               string
	ArtistName             string
	ArtistStyle            string
	Language               string
	LanguageName           string
	ImageModel             ModelSpec
	InterpretationModel    ModelSpec
	FallbackInterpretation string
	Timeout                time.Duration
}

type Result struct {
	ID             string    `json:"id"`
	ImageURL       string    `json:"imageUrl"`
	Interpretation string    `json:"interpretation"`
	ArtistName     string    `json:"artistName"`
	CreatedAt      time.Time `json:"createdAt"`
}
