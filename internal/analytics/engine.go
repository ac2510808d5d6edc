// Package analytics recomputes the derived aggregate tables from the full
// transaction snapshot after every import: summaries, trends, flows,
// recurring patterns, merchants, net worth, fiscal years, anomalies, and
// budget tracking. Every sub-computation is a pure function over the
// snapshot; the results are committed through the store in one transaction,
// so a failure anywhere leaves no partial aggregate state behind.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledgersync/internal/core"
)

// Store is the persistence boundary of the derivation engine.
type Store interface {
	// ListActiveTransactions returns the non-deleted snapshot for the owner.
	ListActiveTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
	// Preferences returns the owner's stored classification overrides, or
	// nil when none exist. Deserialization happens in the adapter, not here.
	Preferences(ctx context.Context, owner string) (*core.Preferences, error)
	ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
	// LatestNetWorthSnapshot returns the most recent prior snapshot by date,
	// or nil when the history is empty.
	LatestNetWorthSnapshot(ctx context.Context, owner string) (*core.NetWorthSnapshot, error)
	// CommitRun atomically replaces the aggregate tables, appends the
	// snapshot and audit entry, updates budgets in place, and swaps the
	// unreviewed anomaly set.
	CommitRun(ctx context.Context, owner string, run *RunResult) error
}

// RunResult is everything one derivation run produces, committed as a unit.
type RunResult struct {
	GeneratedAt time.Time
	Monthly     []core.MonthlySummary
	Trends      []core.CategoryTrend
	Flows       []core.TransferFlow
	Recurring   []core.RecurringPattern
	Merchants   []core.MerchantProfile
	Snapshot    core.NetWorthSnapshot
	Fiscal      []core.FiscalYearSummary
	Anomalies   []core.Anomaly
	Budgets     []core.Budget
	Audit       core.AuditEntry
}

// Counts reports rows written per aggregate, for logging and the caller.
func (r *RunResult) Counts() map[string]int {
	return map[string]int{
		"monthly_summaries":    len(r.Monthly),
		"category_trends":      len(r.Trends),
		"transfer_flows":       len(r.Flows),
		"recurring_patterns":   len(r.Recurring),
		"merchant_profiles":    len(r.Merchants),
		"net_worth_snapshots":  1,
		"fiscal_year_summaries": len(r.Fiscal),
		"anomalies":            len(r.Anomalies),
		"budgets":              len(r.Budgets),
	}
}

const maxAnomalies = 50

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Run recomputes all derived aggregates for the owner from the current
// snapshot and commits them atomically. The caller must sequence this after
// the reconciliation commit; the engine itself takes no locks.
func (e *Engine) Run(ctx context.Context, owner string, now time.Time) (map[string]int, error) {
	txs, err := e.store.ListActiveTransactions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load transaction snapshot: %w", err)
	}

	prefs, err := e.store.Preferences(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	cfg := NewClassificationConfig(prefs)

	prior, err := e.store.LatestNetWorthSnapshot(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load prior net worth snapshot: %w", err)
	}

	budgets, err := e.store.ListBudgets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}

	run := &RunResult{
		GeneratedAt: now,
		Monthly:     buildMonthlySummaries(owner, txs, cfg),
		Trends:      buildCategoryTrends(owner, txs),
		Flows:       buildTransferFlows(owner, txs, cfg),
		Recurring:   detectRecurringPatterns(owner, txs),
		Merchants:   buildMerchantProfiles(owner, txs),
		Snapshot:    buildNetWorthSnapshot(owner, txs, cfg, prior, now),
		Fiscal:      buildFiscalYearSummaries(owner, txs, cfg, now),
	}

	// Detection order is part of the contract: expense-month anomalies
	// first, then outsized transactions, then budget overruns, capped at 50.
	anomalies := detectAnomalies(owner, txs, cfg, now)
	trackedBudgets, budgetAnomalies := trackBudgets(owner, txs, budgets, now)
	anomalies = append(anomalies, budgetAnomalies...)
	if len(anomalies) > maxAnomalies {
		anomalies = anomalies[:maxAnomalies]
	}
	run.Anomalies = anomalies
	run.Budgets = trackedBudgets

	run.Audit = core.AuditEntry{
		ID:             uuid.NewString(),
		Owner:          owner,
		Operation:      "analytics_refresh",
		EntityType:     "aggregates",
		Action:         "replace",
		ChangesSummary: fmt.Sprintf("transactions=%d anomalies=%d", len(txs), len(run.Anomalies)),
		CreatedAt:      now,
	}

	if err := e.store.CommitRun(ctx, owner, run); err != nil {
		return nil, fmt.Errorf("commit analytics run: %w", err)
	}

	counts := run.Counts()
	slog.InfoContext(ctx, "Analytics run committed",
		"owner", owner,
		"transactions", len(txs),
		"monthly_summaries", counts["monthly_summaries"],
		"recurring_patterns", counts["recurring_patterns"],
		"anomalies", counts["anomalies"])
	return counts, nil
}
