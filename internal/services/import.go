// Package services wires the source, reconciliation, and analytics layers
// into the import workflow.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledgersync/internal/amqp"
	"ledgersync/internal/core"
	"ledgersync/internal/reconcile"
	"ledgersync/internal/source"
)

// Store is everything the import workflow persists through.
type Store interface {
	reconcile.Store
	ImportRecordByHash(ctx context.Context, owner, fileHash string) (*core.ImportRecord, error)
	SaveImportRecord(ctx context.Context, rec core.ImportRecord) error
	DeleteImportRecord(ctx context.Context, owner, fileHash string) error
	AppendAudit(ctx context.Context, entry core.AuditEntry) error
}

// AnalyticsRunner refreshes the derived aggregates after a committed import.
type AnalyticsRunner interface {
	Run(ctx context.Context, owner string, now time.Time) (map[string]int, error)
}

// EventPublisher announces completed imports to out-of-process workers.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error
}

type ImportOptions struct {
	// Force re-imports a file whose hash was already recorded.
	Force bool
	// SkipAnalytics leaves the aggregate refresh to a worker.
	SkipAnalytics bool
}

// ImportStatus is the business outcome of an import attempt. Being refused as
// a duplicate is an expected outcome, not an error, so the orchestrator
// switches on the status instead of matching error values.
type ImportStatus string

const (
	StatusImported        ImportStatus = "imported"
	StatusAlreadyImported ImportStatus = "already_imported"
)

type ImportOutcome struct {
	Status   ImportStatus
	FileName string
	FileHash string
	// ImportedAt is the commit time, or the prior import's time when the
	// status is StatusAlreadyImported.
	ImportedAt time.Time
	Stats      core.ImportStats
	// AnalyticsCounts is nil when analytics was skipped or failed.
	AnalyticsCounts map[string]int
}

type ImportService struct {
	store      Store
	reconciler *reconcile.Engine
	analytics  AnalyticsRunner
	publisher  EventPublisher
	now        func() time.Time
}

// NewImportService builds the workflow. The analytics runner and publisher
// are optional; nil disables the corresponding step.
func NewImportService(store Store, analytics AnalyticsRunner, publisher EventPublisher) *ImportService {
	return &ImportService{
		store:      store,
		reconciler: reconcile.NewEngine(store),
		analytics:  analytics,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Import runs the full sequence: load, idempotency check, reconcile both
// partitions, sweep, persist the import record, then analytics. A duplicate
// file without Force returns a StatusAlreadyImported outcome before any
// mutation. An analytics failure is logged and swallowed because the import
// is already committed by that point; rolling it back for stale aggregates
// would lose data.
func (s *ImportService) Import(ctx context.Context, owner string, src source.Source, opts ImportOptions) (*ImportOutcome, error) {
	file, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}

	existing, err := s.store.ImportRecordByHash(ctx, owner, file.Hash)
	if err != nil {
		return nil, fmt.Errorf("check import record: %w", err)
	}
	if existing != nil {
		if !opts.Force {
			return &ImportOutcome{
				Status:     StatusAlreadyImported,
				FileName:   existing.FileName,
				FileHash:   file.Hash,
				ImportedAt: existing.ImportedAt,
				Stats:      existing.Stats,
			}, nil
		}
		if err := s.store.DeleteImportRecord(ctx, owner, file.Hash); err != nil {
			return nil, fmt.Errorf("delete prior import record: %w", err)
		}
	}

	importTime := s.now()
	plain, transfers := partition(file.Rows)

	var stats core.ImportStats
	for _, batch := range [][]core.RowInput{plain, transfers} {
		if len(batch) == 0 {
			continue
		}
		batchStats, err := s.reconciler.ReconcileBatch(ctx, owner, file.Name, batch, importTime)
		if err != nil {
			return nil, fmt.Errorf("reconcile batch: %w", err)
		}
		stats.Add(batchStats)
	}

	// The sweep runs once, after both partitions have committed, so rows from
	// one partition are never deleted by the other's pass.
	deleted, err := s.reconciler.Sweep(ctx, owner, importTime)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	stats.Deleted += int(deleted)

	record := core.ImportRecord{
		Owner:      owner,
		FileHash:   file.Hash,
		FileName:   file.Name,
		ImportedAt: importTime,
		Stats:      stats,
	}
	if err := s.store.SaveImportRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("save import record: %w", err)
	}

	if err := s.store.AppendAudit(ctx, core.AuditEntry{
		ID:         uuid.NewString(),
		Owner:      owner,
		Operation:  "file_import",
		EntityType: "transactions",
		Action:     "reconcile",
		ChangesSummary: fmt.Sprintf("processed=%d inserted=%d updated=%d deleted=%d skipped=%d",
			stats.Processed, stats.Inserted, stats.Updated, stats.Deleted, stats.Skipped),
		SourceFile: file.Name,
		CreatedAt:  importTime,
	}); err != nil {
		return nil, fmt.Errorf("append audit: %w", err)
	}

	slog.InfoContext(ctx, "Import committed",
		"owner", owner,
		"file", file.Name,
		"processed", stats.Processed,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"deleted", stats.Deleted,
		"skipped", stats.Skipped)

	outcome := &ImportOutcome{
		Status:     StatusImported,
		FileName:   file.Name,
		FileHash:   file.Hash,
		ImportedAt: importTime,
		Stats:      stats,
	}

	if s.analytics != nil && !opts.SkipAnalytics {
		counts, err := s.analytics.Run(ctx, owner, s.now())
		if err != nil {
			slog.ErrorContext(ctx, "Analytics refresh failed after committed import",
				"owner", owner,
				"file", file.Name,
				"error", err)
		} else {
			outcome.AnalyticsCounts = counts
		}
	}

	if s.publisher != nil {
		msg := amqp.NewImportCompletedMessage(owner, file.Name, file.Hash, stats)
		if err := s.publisher.PublishImportCompleted(ctx, msg); err != nil {
			slog.WarnContext(ctx, "Failed to publish import completed event",
				"owner", owner,
				"file", file.Name,
				"error", err)
		}
	}

	return outcome, nil
}

func partition(rows []core.RowInput) (plain, transfers []core.RowInput) {
	for _, row := range rows {
		if row.IsTransfer {
			transfers = append(transfers, row)
		} else {
			plain = append(plain, row)
		}
	}
	return plain, transfers
}
