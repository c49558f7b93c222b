package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It MUST be append-only.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Actor identifies who performed an audited action.
type Actor struct {
	UserID  string
	Role    string
	Company string
	IP      string
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorUserID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) log(ctx context.Context, typ EventType, a Actor, message string, metadata map[string]any) error {
	var meta string
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		meta = string(raw)
	}
	return s.Append(ctx, Event{
		Type:         typ,
		ActorUserID:  a.UserID,
		ActorRole:    a.Role,
		ActorCompany: a.Company,
		IPAddress:    a.IP,
		Message:      message,
		Metadata:     meta,
	})
}

// LogAdminAction records a generic administrative action.
func (s *Service) LogAdminAction(ctx context.Context, a Actor, message string, metadata map[string]any) error {
	return s.log(ctx, EventTypeAdminAction, a, message, metadata)
}

// LogCacheCleared records a manual flush of the recordings caches. epoch is the cache epoch
// after the flush.
func (s *Service) LogCacheCleared(ctx context.Context, a Actor, epoch uint64) error {
	return s.log(ctx, EventTypeCacheCleared, a, "recordings cache cleared", map[string]any{"epoch": epoch})
}

// LogConnectivityCheck records an operator probing the CDR store.
func (s *Service) LogConnectivityCheck(ctx context.Context, a Actor, ok bool, mode string) error {
	return s.log(ctx, EventTypeConnectivityCheck, a, "cdr connectivity checked", map[string]any{"ok": ok, "mode": mode})
}
