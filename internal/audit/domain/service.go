package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dreamforge/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry describes one privileged action. Metadata values under sensitive
// keys are masked before they are stored.
type Entry struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action   string     `form:"action"`
	TargetID string     `form:"target_id"`
	ActorID  string     `form:"actor_id"`
	StartAt  *time.Time `form:"-"`
	EndAt    *time.Time `form:"-"`
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type ListFilter struct {
	Action   string
	TargetID string
	ActorID  string
	StartAt  *time.Time `form:"-"`
	EndAt    *time.Time `form:"-"`
	BeforeID snowflake.ID
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
