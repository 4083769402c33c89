package keystore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vocalis/internal/keystore"
)

func openStore(t *testing.T) *keystore.Store {
	t.Helper()
	store, err := keystore.OpenPath(filepath.Join(t.TempDir(), "client_keys.db"))
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertReplacesExistingKey(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.Upsert(ctx, "owner-1", "PEM ONE", time.Hour)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.PublicKeyPEM != "PEM ONE" {
		t.Fatalf("stored pem = %q", first.PublicKeyPEM)
	}

	second, err := store.Upsert(ctx, "owner-1", "PEM TWO", time.Hour)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if second.PublicKeyPEM != "PEM TWO" {
		t.Fatalf("replacement pem = %q", second.PublicKeyPEM)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want a single record per owner", count)
	}
}

func TestGetSkipsExpiredRecords(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "owner-exp", "PEM", -time.Minute); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	record, err := store.Get(ctx, "owner-exp")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record != nil {
		t.Fatalf("expected expired record to be invisible, got %#v", record)
	}
}

func TestUpsertPurgesExpiredRecords(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "stale-owner", "OLD PEM", -time.Minute); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(ctx, "live-owner", "NEW PEM", time.Hour); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want expired record purged", count)
	}
}

func TestConcurrentUpsertsLeaveSingleSurvivor(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pem := fmt.Sprintf("PEM-%d", i)
			if _, err := store.Upsert(ctx, "contended", pem, time.Hour); err != nil {
				t.Errorf("Upsert failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want exactly one surviving record", count)
	}

	record, err := store.Get(ctx, "contended")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record == nil {
		t.Fatal("expected a surviving record")
	}
}

func TestDeleteExpired(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "a", "PEM", -time.Minute); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// The expired record from the first upsert is purged by the second, so
	// insert the live one first and age the other afterwards.
	if _, err := store.Upsert(ctx, "b", "PEM", time.Hour); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(ctx, "c", "PEM", -time.Minute); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	deleted, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
}

func TestRemove(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "owner", "PEM", time.Hour); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	removed, err := store.Remove(ctx, "owner")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}
	removed, err = store.Remove(ctx, "owner")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected second removal to report false")
	}
}
