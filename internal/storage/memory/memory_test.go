package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/analytics"
	"ledgersync/internal/core"
	"ledgersync/internal/reconcile"
)

func tx(id, owner string, lastSeen time.Time) core.Transaction {
	return core.Transaction{
		ID:         id,
		Owner:      owner,
		Date:       time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("100"),
		Type:       core.TypeExpense,
		Account:    "HDFC Savings",
		LastSeenAt: lastSeen,
	}
}

func TestOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	seen := time.Now()

	if err := s.ApplyChangeSet(ctx, "alice", &reconcile.ChangeSet{
		Inserts: []core.Transaction{tx("a1", "alice", seen)},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListTransactions(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("bob sees %d of alice's transactions", len(got))
	}
}

func TestSweepNotSeenSince(t *testing.T) {
	ctx := context.Background()
	s := New()
	importTime := time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC)

	if err := s.ApplyChangeSet(ctx, "alice", &reconcile.ChangeSet{
		Inserts: []core.Transaction{
			tx("stale", "alice", importTime.Add(-time.Hour)),
			tx("fresh", "alice", importTime),
		},
	}); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.SweepNotSeenSince(ctx, "alice", importTime)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	active, err := s.ListActiveTransactions(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != "fresh" {
		t.Errorf("active = %+v, want only fresh", active)
	}

	// Already-deleted rows are not counted twice.
	deleted, err = s.SweepNotSeenSince(ctx, "alice", importTime)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("second sweep deleted = %d, want 0", deleted)
	}
}

func TestImportRecords(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec, err := s.ImportRecordByHash(ctx, "alice", "h1")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Fatalf("unknown hash returned %+v", rec)
	}

	saved := core.ImportRecord{
		Owner:      "alice",
		FileHash:   "h1",
		FileName:   "jan.csv",
		ImportedAt: time.Now(),
		Stats:      core.ImportStats{Processed: 3, Inserted: 3},
	}
	if err := s.SaveImportRecord(ctx, saved); err != nil {
		t.Fatal(err)
	}

	rec, err = s.ImportRecordByHash(ctx, "alice", "h1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.FileName != "jan.csv" || rec.Stats != saved.Stats {
		t.Errorf("record = %+v", rec)
	}

	if err := s.DeleteImportRecord(ctx, "alice", "h1"); err != nil {
		t.Fatal(err)
	}
	rec, _ = s.ImportRecordByHash(ctx, "alice", "h1")
	if rec != nil {
		t.Errorf("record survived delete: %+v", rec)
	}
}

func TestCommitRun_BudgetsUpdatedInPlace(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.SetBudgets("alice", []core.Budget{
		{ID: "b1", Owner: "alice", Category: "groceries", MonthlyLimit: decimal.RequireFromString("500"), Active: true},
		{ID: "b2", Owner: "alice", Category: "travel", MonthlyLimit: decimal.RequireFromString("2000"), Active: false},
	})

	// The run only tracks active budgets; the inactive row must survive.
	err := s.CommitRun(ctx, "alice", &analytics.RunResult{
		Budgets: []core.Budget{
			{
				ID:           "b1",
				Owner:        "alice",
				Category:     "groceries",
				MonthlyLimit: decimal.RequireFromString("500"),
				Active:       true,
				Spent:        decimal.RequireFromString("600"),
				UsedPercent:  120,
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	budgets, err := s.ListBudgets(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(budgets) != 2 {
		t.Fatalf("got %d budgets, want 2", len(budgets))
	}
	byID := make(map[string]core.Budget, len(budgets))
	for _, b := range budgets {
		byID[b.ID] = b
	}
	if !byID["b1"].Spent.Equal(decimal.RequireFromString("600")) {
		t.Errorf("b1 Spent = %s, want 600", byID["b1"].Spent)
	}
	if _, ok := byID["b2"]; !ok {
		t.Error("inactive budget b2 dropped by CommitRun")
	}
}

func TestLatestNetWorthSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()

	latest, err := s.LatestNetWorthSnapshot(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Fatalf("empty history returned %+v", latest)
	}

	st := s.state("alice")
	st.snapshots = []core.NetWorthSnapshot{
		{ID: "old", TakenAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "new", TakenAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "mid", TakenAt: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
	}

	latest, err = s.LatestNetWorthSnapshot(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != "new" {
		t.Errorf("latest = %+v, want the March snapshot", latest)
	}
}
