package gateway

import (
	"context"

	"bitbucket.org/mmdatafocus/clinic_backend/utils"
)

// Audit column names as they exist in the clinic schema. Presence is
// schema-dependent; each is probed independently.
const (
	AuditCreateDate = "CreateDate"
	AuditUpdateDate = "UpdateDate"
	AuditCreateBy   = "CreateBy"
	AuditUpdateBy   = "UpdateBy"
)

// EnrichOnCreate injects the four audit fields where the schema defines
// them. Timestamps only fill in when the caller left them empty; actor
// fields likewise.
func EnrichOnCreate(ctx context.Context, cols []Column, rec *Record) {
	actor := utils.GetActorFromContext(ctx)
	if name := FindColumn(cols, AuditCreateDate); name != "" {
		rec.SetIfAbsent(name, RawNow)
	}
	if name := FindColumn(cols, AuditUpdateDate); name != "" {
		rec.SetIfAbsent(name, RawNow)
	}
	if name := FindColumn(cols, AuditCreateBy); name != "" {
		rec.SetIfAbsent(name, actor)
	}
	if name := FindColumn(cols, AuditUpdateBy); name != "" {
		rec.SetIfAbsent(name, actor)
	}
}

// EnrichOnUpdate refreshes the update pair unconditionally. The create pair
// is never touched here; the executor also strips caller-supplied create
// audit fields before an update reaches the builder.
func EnrichOnUpdate(ctx context.Context, cols []Column, rec *Record) {
	actor := utils.GetActorFromContext(ctx)
	if name := FindColumn(cols, AuditUpdateDate); name != "" {
		rec.Set(name, RawNow)
	}
	if name := FindColumn(cols, AuditUpdateBy); name != "" {
		rec.Set(name, actor)
	}
}
