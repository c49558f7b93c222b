package audit

import (
	"context"
	"log/slog"
)

// LogRepo writes audit events as structured log lines under the "audit" key.
// The portal's relational store is owned elsewhere; log shipping is the durable sink here.
type LogRepo struct {
	log *slog.Logger
}

func NewLogRepo(l *slog.Logger) *LogRepo {
	if l == nil {
		l = slog.Default()
	}
	return &LogRepo{log: l}
}

func (r *LogRepo) Append(ctx context.Context, e Event) error {
	r.log.LogAttrs(ctx, slog.LevelInfo, "audit event",
		slog.Group("audit",
			slog.String("id", e.ID),
			slog.String("type", string(e.Type)),
			slog.String("actor_user_id", e.ActorUserID),
			slog.String("actor_role", e.ActorRole),
			slog.String("actor_company", e.ActorCompany),
			slog.String("ip", e.IPAddress),
			slog.String("message", e.Message),
			slog.String("metadata", e.Metadata),
			slog.Time("created_at", e.CreatedAt),
		),
	)
	return nil
}
