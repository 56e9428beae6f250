package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyp3rd/countd/pkg/store"
)

func newSQLiteStore(t *testing.T, dsn string) *store.SQLiteStore {
	t.Helper()

	sqliteStore, err := store.NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	t.Cleanup(func() {
		err := sqliteStore.Close()
		if err != nil {
			t.Fatalf("close sqlite store: %v", err)
		}
	})

	return sqliteStore
}

func TestSQLiteStoreScenario(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "counter.db")
	sqliteStore := newSQLiteStore(t, dsn)
	ctx := context.Background()

	count, err := sqliteStore.Current(ctx)
	if err != nil {
		t.Fatalf("Current on fresh store: %v", err)
	}

	if count != 0 {
		t.Fatalf("fresh store should read 0, got %d", count)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := sqliteStore.Increment(ctx)
		if err != nil {
			t.Fatalf("Increment %d: %v", want, err)
		}

		if got != want {
			t.Fatalf("Increment returned %d, want %d", got, want)
		}
	}

	err = sqliteStore.Probe(ctx)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "counter.db")
	ctx := context.Background()

	first, err := store.NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	_, err = first.Increment(ctx)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}

	err = first.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := newSQLiteStore(t, dsn)

	count, err := reopened.Current(ctx)
	if err != nil {
		t.Fatalf("Current after reopen: %v", err)
	}

	if count != 1 {
		t.Fatalf("expected persisted count 1, got %d", count)
	}
}
