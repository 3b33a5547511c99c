package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeSystem ActorType = "system"
)

// AuditLog is an append-only record of a privileged action.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  ActorType         `json:"actorType" gorm:"type:varchar(16);not null"`
	ActorID    *string           `json:"actorId" gorm:"type:varchar(64);index"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null;index"`
	TargetType string            `json:"targetType" gorm:"type:varchar(32);not null"`
	TargetID   *string           `json:"targetId" gorm:"type:varchar(64);index"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	IPAddress  *string           `json:"ipAddress" gorm:"type:varchar(64)"`
	UserAgent  *string           `json:"userAgent" gorm:"type:text"`
	CreatedAt  time.Time         `json:"createdAt" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }
