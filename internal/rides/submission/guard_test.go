package submission

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseGuard(t *testing.T, guard Guard) {
	t.Helper()
	ctx := context.Background()

	release, ok, err := guard.TryAcquire(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := guard.TryAcquire(ctx, "k1"); ok {
		t.Fatal("expected second acquire of a held key to fail")
	}
	if _, ok, _ := guard.TryAcquire(ctx, "k2"); !ok {
		t.Fatal("different keys must not block each other")
	}

	release()
	release()

	again, ok, err := guard.TryAcquire(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to succeed, ok=%v err=%v", ok, err)
	}
	again()
}

func exerciseGuardRace(t *testing.T, guard Guard) {
	t.Helper()
	var wg sync.WaitGroup
	var winners atomic.Int32
	start := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, err := guard.TryAcquire(context.Background(), "race"); err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}

func TestMemoryGuard(t *testing.T) {
	exerciseGuard(t, NewMemoryGuard())
	exerciseGuardRace(t, NewMemoryGuard())
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisGuard(t *testing.T) {
	_, client := newMiniredisClient(t)
	exerciseGuard(t, NewRedisGuard(client, "submission:", time.Minute))
	exerciseGuardRace(t, NewRedisGuard(client, "submission-race:", time.Minute))
}

func TestRedisGuardLeavesForeignOwnerAlone(t *testing.T) {
	mr, client := newMiniredisClient(t)
	guard := NewRedisGuard(client, "submission:", time.Minute)
	ctx := context.Background()

	release, ok, err := guard.TryAcquire(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	// Simulate expiry followed by another replica taking the lock.
	mr.FastForward(2 * time.Minute)
	if err := client.Set(ctx, "submission:k", "other-owner", time.Minute).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}

	release()

	owner, err := client.Get(ctx, "submission:k").Result()
	if err != nil || owner != "other-owner" {
		t.Fatalf("expected foreign lock to survive release, got %q err=%v", owner, err)
	}
}

func TestRedisGuardExpires(t *testing.T) {
	mr, client := newMiniredisClient(t)
	guard := NewRedisGuard(client, "submission:", time.Minute)

	if _, ok, _ := guard.TryAcquire(context.Background(), "k"); !ok {
		t.Fatal("expected acquire to succeed")
	}
	mr.FastForward(61 * time.Second)
	if _, ok, _ := guard.TryAcquire(context.Background(), "k"); !ok {
		t.Fatal("expected expired lock to be reacquirable")
	}
}
