package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const (
	TenantIDKey keyType = "tenant_id"
	ActorIDKey  keyType = "actor_id"
)

// WithTenant attaches the resolved tenant and acting user to the request context.
func WithTenant(ctx context.Context, tenantID, actorID snowflake.ID) context.Context {
	ctx = context.WithValue(ctx, TenantIDKey, tenantID)
	return context.WithValue(ctx, ActorIDKey, actorID)
}

func TenantID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(TenantIDKey).(snowflake.ID)
	return id, ok
}

func ActorID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(ActorIDKey).(snowflake.ID)
	return id, ok
}
