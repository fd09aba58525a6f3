package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fatumlabs/fatum/internal/application/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "fatum-test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := OpenSQLiteStore(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestBatchLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateBatch(ctx, "morning harvest")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	batch, err := store.GetBatch(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if batch.Name != "morning harvest" {
		t.Fatalf("name = %q", batch.Name)
	}
	if batch.Status != domain.BatchCollecting {
		t.Fatalf("status = %q, want collecting", batch.Status)
	}
	if batch.CreatedAt.IsZero() || batch.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", batch)
	}

	if err := store.UpdateBatchStatus(ctx, id, domain.BatchCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	batch, err = store.GetBatch(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if batch.Status != domain.BatchCompleted {
		t.Fatalf("status = %q, want completed", batch.Status)
	}
}

func TestUpdateStatusMissingBatch(t *testing.T) {
	store := openTestStore(t)
	if err := store.UpdateBatchStatus(context.Background(), 999, domain.BatchCompleted); err == nil {
		t.Fatalf("expected error for missing batch")
	}
}

func TestEntropyRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateBatch(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}

	round := uint64(12345)
	if err := store.InsertEntropy(ctx, id, &round, "deadbeef"); err != nil {
		t.Fatalf("insert with round: %v", err)
	}
	if err := store.InsertEntropy(ctx, id, nil, "cafef00d"); err != nil {
		t.Fatalf("insert without round: %v", err)
	}

	records, err := store.GetBatchEntropy(ctx, id)
	if err != nil {
		t.Fatalf("get entropy: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].PulseRound == nil || *records[0].PulseRound != 12345 {
		t.Fatalf("first record round = %v, want 12345", records[0].PulseRound)
	}
	if records[1].PulseRound != nil {
		t.Fatalf("second record round = %v, want nil", records[1].PulseRound)
	}
	if records[0].HexValue != "deadbeef" || records[1].HexValue != "cafef00d" {
		t.Fatalf("hex values out of order: %+v", records)
	}

	size, err := store.GetBatchSize(ctx, id)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 2 {
		t.Fatalf("size = %d, want 2", size)
	}
}

func TestListBatchesNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.CreateBatch(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.CreateBatch(ctx, "second")
	if err != nil {
		t.Fatal(err)
	}

	batches, err := store.ListBatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	if batches[0].ID != second || batches[1].ID != first {
		t.Fatalf("order = %d,%d, want newest first", batches[0].ID, batches[1].ID)
	}
}
