package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
	"ledgersync/internal/reconcile"
	"ledgersync/internal/storage/memory"
)

const owner = "tester"

func row(day int, note string) core.RowInput {
	return core.RowInput{
		Date:     time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.RequireFromString("100.00"),
		Type:     core.TypeExpense,
		Account:  "HDFC Savings",
		Category: "groceries",
		Note:     note,
	}
}

func activeCount(t *testing.T, store *memory.Store) int {
	t.Helper()
	txs, err := store.ListActiveTransactions(context.Background(), owner)
	if err != nil {
		t.Fatalf("ListActiveTransactions() error = %v", err)
	}
	return len(txs)
}

func TestReconcileBatch_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := reconcile.NewEngine(store)

	// 10 rows: 8 unique, rows 9 and 10 duplicate rows 1 and 2.
	rows := make([]core.RowInput, 0, 10)
	for day := 1; day <= 8; day++ {
		rows = append(rows, row(day, "weekly shop"))
	}
	rows = append(rows, row(1, "weekly shop"), row(2, "weekly shop"))

	t1 := time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC)
	stats, err := engine.ReconcileBatch(ctx, owner, "march.csv", rows, t1)
	if err != nil {
		t.Fatalf("ReconcileBatch() error = %v", err)
	}
	want := core.ImportStats{Processed: 10, Inserted: 8, Skipped: 2}
	if stats != want {
		t.Errorf("first import stats = %+v, want %+v", stats, want)
	}
	if n := activeCount(t, store); n != 8 {
		t.Errorf("active rows after first import = %d, want 8", n)
	}

	// Identical re-import: pure no-op apart from last_seen_at refreshes.
	t2 := t1.Add(time.Hour)
	stats, err = engine.ReconcileBatch(ctx, owner, "march.csv", rows, t2)
	if err != nil {
		t.Fatalf("ReconcileBatch() re-import error = %v", err)
	}
	want = core.ImportStats{Processed: 10, Skipped: 10}
	if stats != want {
		t.Errorf("re-import stats = %+v, want %+v", stats, want)
	}
	if deleted, _ := engine.Sweep(ctx, owner, t2); deleted != 0 {
		t.Errorf("sweep after identical re-import deleted %d rows", deleted)
	}

	// Third import omits the day-8 row: the sweep soft-deletes it.
	t3 := t2.Add(time.Hour)
	if _, err := engine.ReconcileBatch(ctx, owner, "march.csv", rows[:7], t3); err != nil {
		t.Fatalf("ReconcileBatch() partial import error = %v", err)
	}
	deleted, err := engine.Sweep(ctx, owner, t3)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Sweep() deleted = %d, want 1", deleted)
	}
	if n := activeCount(t, store); n != 7 {
		t.Errorf("active rows after sweep = %d, want 7", n)
	}
}

func TestReconcileBatch_Resurrection(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := reconcile.NewEngine(store)

	rows := []core.RowInput{row(1, "one"), row(2, "two")}

	t1 := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	if _, err := engine.ReconcileBatch(ctx, owner, "f.csv", rows, t1); err != nil {
		t.Fatalf("ReconcileBatch() error = %v", err)
	}

	// Import without row two, sweep deletes it.
	t2 := t1.Add(time.Hour)
	if _, err := engine.ReconcileBatch(ctx, owner, "f.csv", rows[:1], t2); err != nil {
		t.Fatalf("ReconcileBatch() error = %v", err)
	}
	if deleted, _ := engine.Sweep(ctx, owner, t2); deleted != 1 {
		t.Fatalf("Sweep() deleted = %d, want 1", deleted)
	}

	// Re-importing the full file resurrects the deleted row as "updated".
	t3 := t2.Add(time.Hour)
	stats, err := engine.ReconcileBatch(ctx, owner, "f.csv", rows, t3)
	if err != nil {
		t.Fatalf("ReconcileBatch() error = %v", err)
	}
	if stats.Updated != 1 {
		t.Errorf("resurrection stats.Updated = %d, want 1", stats.Updated)
	}
	if stats.Inserted != 0 {
		t.Errorf("resurrection stats.Inserted = %d, want 0", stats.Inserted)
	}
	if n := activeCount(t, store); n != 2 {
		t.Errorf("active rows after resurrection = %d, want 2", n)
	}
}

func TestReconcileBatch_MalformedRowsOmitted(t *testing.T) {
	ctx := context.Background()
	engine := reconcile.NewEngine(memory.New())

	bad := row(3, "broken")
	bad.Amount = decimal.Zero
	rows := []core.RowInput{row(1, "ok"), bad, row(2, "ok too")}

	stats, err := engine.ReconcileBatch(ctx, owner, "f.csv", rows,
		time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReconcileBatch() error = %v", err)
	}
	want := core.ImportStats{Processed: 2, Inserted: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestReconcileBatch_TransferConvergence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	engine := reconcile.NewEngine(store)

	transfer := core.RowInput{
		Date:        time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("5000"),
		Type:        core.TypeTransfer,
		FromAccount: "HDFC Savings",
		ToAccount:   "Zerodha",
		IsTransfer:  true,
	}

	t1 := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
	stats, err := engine.ReconcileBatch(ctx, owner, "t.csv", []core.RowInput{transfer}, t1)
	if err != nil {
		t.Fatalf("ReconcileBatch() error = %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("transfer insert stats = %+v", stats)
	}

	txs, _ := store.ListActiveTransactions(ctx, owner)
	if len(txs) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Type != core.TypeTransfer || tx.FromAccount != "HDFC Savings" || tx.ToAccount != "Zerodha" {
		t.Errorf("stored transfer = %+v", tx)
	}
	if tx.Account != "HDFC Savings" {
		t.Errorf("transfer Account = %q, want from-account fallback", tx.Account)
	}

	// The reverse route is a different logical transfer, not a duplicate.
	reversed := transfer
	reversed.FromAccount, reversed.ToAccount = transfer.ToAccount, transfer.FromAccount
	stats, err = engine.ReconcileBatch(ctx, owner, "t.csv",
		[]core.RowInput{transfer, reversed}, t1.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReconcileBatch() error = %v", err)
	}
	if stats.Inserted != 1 || stats.Skipped != 1 {
		t.Errorf("reverse route stats = %+v, want 1 insert 1 skip", stats)
	}
}
