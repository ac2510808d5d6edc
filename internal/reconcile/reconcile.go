// Package reconcile merges batches of normalized rows into the transaction
// store. The protocol is idempotent and convergent: re-importing the same
// file is a no-op, and importing an authoritative full export always leaves
// the store isomorphic to the file (absent rows are soft-deleted, never
// purged).
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledgersync/internal/core"
	"ledgersync/internal/identity"
)

// Store is the persistence boundary the engine writes through. ApplyChangeSet
// must be atomic; the sweep is committed separately (a crash between the two
// is safe because an identical re-import converges to the same end state).
type Store interface {
	// ListTransactions returns every record for the owner, soft-deleted
	// included; resurrection depends on seeing deleted rows.
	ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
	ApplyChangeSet(ctx context.Context, owner string, cs *ChangeSet) error
	// SweepNotSeenSince soft-deletes every non-deleted record whose
	// last_seen_at is strictly older than importTime and returns the count.
	SweepNotSeenSince(ctx context.Context, owner string, importTime time.Time) (int64, error)
}

// ChangeSet is the batch of mutations produced by one reconciliation pass.
// Updates include rows whose only change is the last_seen_at refresh.
type ChangeSet struct {
	Inserts []core.Transaction
	Updates []core.Transaction
}

func (cs *ChangeSet) Empty() bool {
	return len(cs.Inserts) == 0 && len(cs.Updates) == 0
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ReconcileBatch applies one partition of an import (plain transactions or
// transfers) against the store. Malformed rows are logged and skipped without
// aborting the batch; all surviving mutations are committed together at the
// end. The soft-delete sweep is not part of this call; the orchestrator runs
// Sweep once after every partition of the import has been committed.
func (e *Engine) ReconcileBatch(ctx context.Context, owner, sourceFile string, rows []core.RowInput, importTime time.Time) (core.ImportStats, error) {
	var stats core.ImportStats

	existing, err := e.store.ListTransactions(ctx, owner)
	if err != nil {
		return stats, fmt.Errorf("list transactions: %w", err)
	}
	byID := make(map[string]core.Transaction, len(existing))
	for _, tx := range existing {
		byID[tx.ID] = tx
	}

	seen := make(map[string]bool, len(rows))
	cs := &ChangeSet{}

	for i, row := range rows {
		if err := row.Validate(); err != nil {
			slog.WarnContext(ctx, "Skipping malformed row",
				"owner", owner,
				"source_file", sourceFile,
				"row", i,
				"error", err)
			continue
		}
		stats.Processed++

		id := identity.Generate(identity.FromRow(row))
		if seen[id] {
			// Duplicate within this file: first occurrence wins.
			stats.Skipped++
			continue
		}
		seen[id] = true

		current, exists := byID[id]
		if !exists {
			cs.Inserts = append(cs.Inserts, newTransaction(id, owner, sourceFile, row, importTime))
			stats.Inserted++
			continue
		}

		changed := applyRow(&current, row)
		resurrected := current.IsDeleted
		current.IsDeleted = false
		current.LastSeenAt = importTime
		current.SourceFile = sourceFile
		cs.Updates = append(cs.Updates, current)

		if changed || resurrected {
			stats.Updated++
		} else {
			// last_seen_at is still refreshed, but that is a side effect,
			// not a reported action.
			stats.Skipped++
		}
	}

	if err := e.store.ApplyChangeSet(ctx, owner, cs); err != nil {
		return stats, fmt.Errorf("apply change set: %w", err)
	}
	return stats, nil
}

// Sweep marks every record not refreshed by the current import as deleted.
// It must run only after all partitions of the import have been committed.
func (e *Engine) Sweep(ctx context.Context, owner string, importTime time.Time) (int64, error) {
	deleted, err := e.store.SweepNotSeenSince(ctx, owner, importTime)
	if err != nil {
		return 0, fmt.Errorf("soft-delete sweep: %w", err)
	}
	if deleted > 0 {
		slog.InfoContext(ctx, "Soft-deleted records absent from import",
			"owner", owner,
			"deleted", deleted)
	}
	return deleted, nil
}

func newTransaction(id, owner, sourceFile string, row core.RowInput, importTime time.Time) core.Transaction {
	tx := core.Transaction{
		ID:          id,
		Owner:       owner,
		Date:        row.Date,
		Amount:      row.Amount,
		Currency:    row.Currency,
		Type:        row.Type,
		Account:     row.Account,
		Category:    row.Category,
		Subcategory: row.Subcategory,
		Note:        row.Note,
		SourceFile:  sourceFile,
		LastSeenAt:  importTime,
	}
	if row.IsTransfer {
		tx.Type = core.TypeTransfer
		tx.FromAccount = row.FromAccount
		tx.ToAccount = row.ToAccount
		if tx.Account == "" {
			tx.Account = row.FromAccount
		}
	}
	return tx
}

// applyRow copies the mutable fields of the row onto the stored record and
// reports whether anything actually differed. Identity fields (date, amount,
// account) cannot change here, since a change there produces a different ID.
func applyRow(tx *core.Transaction, row core.RowInput) bool {
	changed := false

	if tx.Category != row.Category {
		tx.Category = row.Category
		changed = true
	}
	if tx.Subcategory != row.Subcategory {
		tx.Subcategory = row.Subcategory
		changed = true
	}
	if tx.Note != row.Note {
		tx.Note = row.Note
		changed = true
	}
	rowType := row.Type
	if row.IsTransfer {
		rowType = core.TypeTransfer
	}
	if tx.Type != rowType {
		tx.Type = rowType
		changed = true
	}
	if row.IsTransfer {
		if tx.FromAccount != row.FromAccount {
			tx.FromAccount = row.FromAccount
			changed = true
		}
		if tx.ToAccount != row.ToAccount {
			tx.ToAccount = row.ToAccount
			changed = true
		}
	}
	return changed
}
