// Package memory is an in-process store used by tests and local runs. It
// implements the same boundaries as the SQLite repository, keyed by owner.
package memory

import (
	"context"
	"sync"
	"time"

	"ledgersync/internal/analytics"
	"ledgersync/internal/core"
	"ledgersync/internal/reconcile"
)

type ownerState struct {
	transactions map[string]core.Transaction
	imports      map[string]core.ImportRecord // keyed by file hash
	preferences  *core.Preferences
	budgets      []core.Budget
	monthly      []core.MonthlySummary
	trends       []core.CategoryTrend
	flows        []core.TransferFlow
	recurring    []core.RecurringPattern
	merchants    []core.MerchantProfile
	snapshots    []core.NetWorthSnapshot
	fiscal       []core.FiscalYearSummary
	anomalies    []core.Anomaly
	audit        []core.AuditEntry
}

type Store struct {
	mu     sync.Mutex
	owners map[string]*ownerState
}

func New() *Store {
	return &Store{owners: make(map[string]*ownerState)}
}

func (s *Store) state(owner string) *ownerState {
	st, ok := s.owners[owner]
	if !ok {
		st = &ownerState{
			transactions: make(map[string]core.Transaction),
			imports:      make(map[string]core.ImportRecord),
		}
		s.owners[owner] = st
	}
	return st
}

func (s *Store) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(owner)
	out := make([]core.Transaction, 0, len(st.transactions))
	for _, tx := range st.transactions {
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) ListActiveTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(owner)
	var out []core.Transaction
	for _, tx := range st.transactions {
		if !tx.IsDeleted {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) ApplyChangeSet(_ context.Context, owner string, cs *reconcile.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(owner)
	for _, tx := range cs.Inserts {
		st.transactions[tx.ID] = tx
	}
	for _, tx := range cs.Updates {
		st.transactions[tx.ID] = tx
	}
	return nil
}

func (s *Store) SweepNotSeenSince(_ context.Context, owner string, importTime time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(owner)
	var deleted int64
	for id, tx := range st.transactions {
		if !tx.IsDeleted && tx.LastSeenAt.Before(importTime) {
			tx.IsDeleted = true
			st.transactions[id] = tx
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) ImportRecordByHash(_ context.Context, owner, fileHash string) (*core.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state(owner).imports[fileHash]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) SaveImportRecord(_ context.Context, rec core.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(rec.Owner).imports[rec.FileHash] = rec
	return nil
}

func (s *Store) DeleteImportRecord(_ context.Context, owner, fileHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state(owner).imports, fileHash)
	return nil
}

func (s *Store) AppendAudit(_ context.Context, entry core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(entry.Owner)
	st.audit = append(st.audit, entry)
	return nil
}

func (s *Store) Preferences(_ context.Context, owner string) (*core.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(owner).preferences, nil
}

// SetPreferences seeds per-owner classification overrides.
func (s *Store) SetPreferences(owner string, prefs *core.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(owner).preferences = prefs
}

func (s *Store) ListBudgets(_ context.Context, owner string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.state(owner).budgets...), nil
}

// SetBudgets seeds the owner's budgets.
func (s *Store) SetBudgets(owner string, budgets []core.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(owner).budgets = append([]core.Budget(nil), budgets...)
}

func (s *Store) LatestNetWorthSnapshot(_ context.Context, owner string) (*core.NetWorthSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(owner)
	var latest *core.NetWorthSnapshot
	for i := range st.snapshots {
		snap := st.snapshots[i]
		if latest == nil || snap.TakenAt.After(latest.TakenAt) {
			latest = &snap
		}
	}
	return latest, nil
}

// CommitRun mirrors the repository semantics: replaced aggregates are swapped
// wholesale, the snapshot and audit entry are appended, budgets are updated in
// place, and reviewed anomalies survive the swap.
func (s *Store) CommitRun(_ context.Context, owner string, run *analytics.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(owner)

	st.monthly = run.Monthly
	st.trends = run.Trends
	st.flows = run.Flows
	st.recurring = run.Recurring
	st.merchants = run.Merchants
	st.fiscal = run.Fiscal
	st.snapshots = append(st.snapshots, run.Snapshot)

	var kept []core.Anomaly
	for _, a := range st.anomalies {
		if a.Reviewed {
			kept = append(kept, a)
		}
	}
	st.anomalies = append(kept, run.Anomalies...)

	// Budgets are updated in place; rows the run did not track (inactive
	// budgets) keep their stored state.
	tracked := make(map[string]core.Budget, len(run.Budgets))
	for _, b := range run.Budgets {
		tracked[b.ID] = b
	}
	for i := range st.budgets {
		if b, ok := tracked[st.budgets[i].ID]; ok {
			st.budgets[i] = b
		}
	}

	st.audit = append(st.audit, run.Audit)
	return nil
}

// MarkAnomalyReviewed flags a stored anomaly so later runs preserve it.
func (s *Store) MarkAnomalyReviewed(owner, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(owner)
	for i := range st.anomalies {
		if st.anomalies[i].ID == id {
			st.anomalies[i].Reviewed = true
		}
	}
}

// Anomalies returns a copy of the stored anomaly set.
func (s *Store) Anomalies(owner string) []core.Anomaly {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Anomaly(nil), s.state(owner).anomalies...)
}

// Snapshots returns the append-only net worth history.
func (s *Store) Snapshots(owner string) []core.NetWorthSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.NetWorthSnapshot(nil), s.state(owner).snapshots...)
}

// MonthlySummaries returns the current monthly aggregate rows.
func (s *Store) MonthlySummaries(owner string) []core.MonthlySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MonthlySummary(nil), s.state(owner).monthly...)
}

// AuditEntries returns the append-only audit log.
func (s *Store) AuditEntries(owner string) []core.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.AuditEntry(nil), s.state(owner).audit...)
}
