package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"nemt_portal_backend/internal/rides/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func sampleSession() *Session {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &Session{
		ID:      uuid.NewString(),
		OwnerID: uuid.New(),
		Step:    StepZone,
		Draft:   domain.NewRideDraft(now),
		Zones: []domain.Zone{
			{ID: "z1", Label: "Downtown", Latitude: "1", Longitude: "2", Token: "secret-token"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func exerciseStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()
	s := sampleSession()

	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(ctx, s.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.OwnerID != s.OwnerID || loaded.Step != StepZone || loaded.Zones[0].Token != "secret-token" {
		t.Fatalf("session did not round-trip: %+v", loaded)
	}

	loaded.Step = StepSchedule
	again, _ := store.Load(ctx, s.ID)
	if again.Step != StepZone {
		t.Fatal("loaded sessions must not alias stored state")
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	s := sampleSession()
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	current = current.Add(2 * time.Minute)
	if _, err := store.Load(context.Background(), s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedisStore(client, time.Hour))

	store := NewRedisStore(client, time.Minute)
	s := sampleSession()
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL(sessionKey(s.ID)); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Load(context.Background(), s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}
