package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryRevocation_RevokeAndCheck(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if ok, _ := store.IsRevoked(ctx, "jti-1"); !ok {
		t.Error("expected jti-1 to be revoked")
	}
	if ok, _ := store.IsRevoked(ctx, "jti-2"); ok {
		t.Error("expected jti-2 not to be revoked")
	}
}

func TestMemoryRevocation_CleanupDropsExpired(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	_ = store.Revoke(ctx, "expired", "u", time.Now().Add(-time.Second))
	_ = store.Revoke(ctx, "active", "u", time.Now().Add(time.Hour))
	store.cleanup(time.Now())

	if store.Count() != 1 {
		t.Fatalf("expected 1 entry after cleanup, got %d", store.Count())
	}
	if ok, _ := store.IsRevoked(ctx, "active"); !ok {
		t.Error("expected active entry to remain")
	}
}

func TestMemoryRevocation_CloseTwice(t *testing.T) {
	store := NewMemoryRevocationStore(time.Millisecond)
	store.Close()
	store.Close()
}

func TestMemoryRevocation_ConcurrentAccess(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		jti := fmt.Sprintf("jti-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Revoke(ctx, jti, "u", time.Now().Add(time.Hour))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.IsRevoked(ctx, jti)
		}()
	}
	wg.Wait()

	if store.Count() != 50 {
		t.Errorf("expected 50 entries, got %d", store.Count())
	}
}

func TestRedisRevocation_SkipsExpiredTokens(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	store := NewRedisRevocationStore(client)
	if err := store.Revoke(context.Background(), "jti", "u", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("expected no round trip for an expired token, got %v", err)
	}
}

func TestRevokedKey(t *testing.T) {
	if got := revokedKey("abc"); got != "docbook:revoked:abc" {
		t.Errorf("unexpected key %q", got)
	}
}
