package models

import (
	"context"
	"time"
)

// SystemActor is recorded in audit columns when no caller identity is
// attached to the context.
const SystemActor = "SYSTEM"

// Audit is embedded in every persisted record. The actor columns are filled
// by the callbacks registered in database.RegisterAuditCallbacks.
type Audit struct {
	CreatedBy string    `gorm:"size:100" json:"createdBy"`
	CreatedOn time.Time `gorm:"autoCreateTime" json:"createdOn"`
	UpdatedBy string    `gorm:"size:100" json:"updatedBy"`
	UpdatedOn time.Time `gorm:"autoUpdateTime" json:"updatedOn"`
}

type actorKey struct{}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return SystemActor
	}
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}
