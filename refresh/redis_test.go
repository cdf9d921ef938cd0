package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, "rt"), mr
}

func TestPutAndFindByUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().Add(24 * time.Hour)

	if err := store.Put(ctx, "u1", "tok-1", expires); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	record, err := store.FindByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByUser failed: %v", err)
	}
	if record.Token != "tok-1" || record.UserID != "u1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.ExpiresAt != expires.Unix() {
		t.Fatalf("expiry = %d, want %d", record.ExpiresAt, expires.Unix())
	}
}

func TestFindByToken(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "u1", "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	record, err := store.FindByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}
	if record.UserID != "u1" {
		t.Fatalf("unexpected user: %q", record.UserID)
	}

	if _, err := store.FindByToken(ctx, "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutReplacesPriorRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "u1", "tok-old", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := store.Put(ctx, "u1", "tok-new", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	record, err := store.FindByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByUser failed: %v", err)
	}
	if record.Token != "tok-new" {
		t.Fatalf("record not rotated: %q", record.Token)
	}

	// The superseded token must be dead both by index and by record.
	if _, err := store.FindByToken(ctx, "tok-old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old token still resolvable: %v", err)
	}
	if _, err := store.FindByToken(ctx, "tok-new"); err != nil {
		t.Fatalf("new token not resolvable: %v", err)
	}
}

func TestDeleteByUserIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.DeleteByUser(ctx, "u1"); err != nil {
		t.Fatalf("delete of missing record errored: %v", err)
	}

	if err := store.Put(ctx, "u1", "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.DeleteByUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByUser failed: %v", err)
	}

	if _, err := store.FindByUser(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record survived delete: %v", err)
	}
	if _, err := store.FindByToken(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("token index survived delete: %v", err)
	}
	if err := store.DeleteByUser(ctx, "u1"); err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
}

func TestDeleteByToken(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.DeleteByToken(ctx, "tok-1"); err != nil {
		t.Fatalf("delete of missing token errored: %v", err)
	}

	if err := store.Put(ctx, "u1", "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.DeleteByToken(ctx, "tok-1"); err != nil {
		t.Fatalf("DeleteByToken failed: %v", err)
	}
	if _, err := store.FindByUser(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record survived token delete: %v", err)
	}
}

func TestDeleteByStaleTokenKeepsNewerRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "u1", "tok-old", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "u1", "tok-new", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("rotate Put failed: %v", err)
	}

	// Revoking the superseded token must not revoke the live session.
	if err := store.DeleteByToken(ctx, "tok-old"); err != nil {
		t.Fatalf("DeleteByToken failed: %v", err)
	}
	if _, err := store.FindByUser(ctx, "u1"); err != nil {
		t.Fatalf("live record lost on stale revoke: %v", err)
	}
}

func TestExpiredRecordReadsAsNotFound(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "u1", "tok-1", time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := store.FindByUser(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record still found: %v", err)
	}
	if _, err := store.FindByToken(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token still resolvable: %v", err)
	}
}

func TestPutRejectsPastExpiry(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Put(context.Background(), "u1", "tok-1", time.Now().Add(-time.Minute)); err == nil {
		t.Fatal("expected error for past expiry")
	}
}

func TestUnavailableStoreWrapsError(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	if _, err := store.FindByUser(context.Background(), "u1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := store.Put(context.Background(), "u1", "tok-1", time.Now().Add(time.Hour)); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestEncodeDecodeCorruptBlob(t *testing.T) {
	record := &Record{Token: "tok-1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour).Unix()}

	blob, err := Encode(record)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Token != record.Token || decoded.UserID != record.UserID || decoded.ExpiresAt != record.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}

	if _, err := Decode(blob[:len(blob)-3]); err == nil {
		t.Fatal("truncated blob decoded without error")
	}
	if _, err := Decode([]byte{0xFF, 0x01}); err == nil {
		t.Fatal("bad version decoded without error")
	}
}
