package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/clinic_backend/appctx"
)

const DefaultActor = "system"

// GetActorFromContext returns the audit actor for the request, falling back
// to "system" when none was set (e.g. background jobs, seed tools).
func GetActorFromContext(ctx context.Context) string {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyActor); ok && v != "" {
		return v
	}
	return DefaultActor
}

func SetActorInContext(ctx context.Context, actor string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyActor, actor)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, correlationId)
}
