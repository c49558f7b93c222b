package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestService_AppendRequiresActorAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeAdminAction}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{ActorUserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("invalid events must not be stored")
	}
}

func TestService_LogCacheCleared(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	a := Actor{UserID: "u", Role: "bpo_admin", IP: "1.2.3.4"}
	if err := svc.LogCacheCleared(context.Background(), a, 7); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.IPAddress != "1.2.3.4" || e.ActorRole != "bpo_admin" {
		t.Fatalf("expected actor captured: %+v", e)
	}
	if e.Type != EventTypeCacheCleared {
		t.Fatalf("expected cache_cleared, got %s", e.Type)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
	if e.Metadata != `{"epoch":7}` {
		t.Fatalf("unexpected metadata %q", e.Metadata)
	}
}

func TestLogRepo_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(NewLogRepo(slog.New(slog.NewJSONHandler(&buf, nil))))

	if err := svc.LogConnectivityCheck(context.Background(), Actor{UserID: "ops-1", Role: "super_admin"}, true, "live"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"type":"connectivity_check"`, `"actor_user_id":"ops-1"`, `\"mode\":\"live\"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestMemoryRepo_BoundedAndRecent(t *testing.T) {
	repo := NewBoundedMemoryRepo(3)
	svc := NewService(repo)
	ctx := context.Background()
	a := Actor{UserID: "ops-1"}

	for i := 0; i < 4; i++ {
		if err := svc.LogCacheCleared(ctx, a, uint64(i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := svc.LogConnectivityCheck(ctx, a, true, "mock"); err != nil {
		t.Fatalf("append: %v", err)
	}

	if n := len(repo.Events()); n != 3 {
		t.Fatalf("expected capacity 3, got %d", n)
	}
	recent := repo.Recent(10, "")
	if len(recent) != 3 || recent[0].Type != EventTypeConnectivityCheck {
		t.Fatalf("expected newest first, got %+v", recent)
	}
	cleared := repo.Recent(10, EventTypeCacheCleared)
	if len(cleared) != 2 || cleared[0].Metadata != `{"epoch":3}` || cleared[1].Metadata != `{"epoch":2}` {
		t.Fatalf("unexpected cache_cleared events: %+v", cleared)
	}
	if got := repo.Recent(1, ""); len(got) != 1 {
		t.Fatalf("expected limit honored, got %d", len(got))
	}
}

type failingRepo struct{}

func (failingRepo) Append(context.Context, Event) error { return errors.New("disk full") }

func TestTee_WritesEveryRepoAndJoinsErrors(t *testing.T) {
	mem := NewMemoryRepo()
	svc := NewService(Tee(failingRepo{}, mem))

	err := svc.LogAdminAction(context.Background(), Actor{UserID: "ops-1"}, "manual flush", nil)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(mem.Events()) != 1 {
		t.Fatalf("later repos must still receive the event")
	}
}
