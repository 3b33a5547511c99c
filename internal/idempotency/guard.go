// Package idempotency records which provider events have already been applied.
// The composite primary key is the only arbiter between racing deliveries.
package idempotency

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProcessedEvent struct {
	Provider        string    `gorm:"primaryKey;type:varchar(32)"`
	ExternalEventID string    `gorm:"primaryKey;type:varchar(191)"`
	ProcessedAt     time.Time `gorm:"not null"`
}

func (ProcessedEvent) TableName() string { return "processed_events" }

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
}

type Guard struct {
	log   *zap.Logger
	clock clock.Clock
}

func NewGuard(p Params) *Guard {
	return &Guard{
		log:   p.Log.Named("idempotency.guard"),
		clock: p.Clock,
	}
}

// HasProcessed is an advisory fast path; MarkProcessed inside the applying
// transaction is what actually guards the mutation.
func (g *Guard) HasProcessed(ctx context.Context, conn *gorm.DB, provider, externalEventID string) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&ProcessedEvent{}).
		Where("provider = ? AND external_event_id = ?", normalize(provider), strings.TrimSpace(externalEventID)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed inserts the marker and reports whether this caller won.
// Losing to an existing row is not an error.
func (g *Guard) MarkProcessed(ctx context.Context, conn *gorm.DB, provider, externalEventID string) (bool, error) {
	record := ProcessedEvent{
		Provider:        normalize(provider),
		ExternalEventID: strings.TrimSpace(externalEventID),
		ProcessedAt:     g.clock.Now(),
	}
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			g.log.Debug("event already processed",
				zap.String("provider", record.Provider),
				zap.String("external_event_id", record.ExternalEventID),
			)
			return false, nil
		}
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		g.log.Debug("event already processed",
			zap.String("provider", record.Provider),
			zap.String("external_event_id", record.ExternalEventID),
		)
		return false, nil
	}
	return true, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

var Module = fx.Module("idempotency",
	fx.Provide(NewGuard),
)
