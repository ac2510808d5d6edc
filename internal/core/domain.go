package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeIncome   TransactionType = "Income"
	TypeExpense  TransactionType = "Expense"
	TypeTransfer TransactionType = "Transfer"
)

type (
	TransactionType string

	// Transaction is the long-lived, store-owned record. Its ID is derived
	// from the normalized field values, so re-importing the same logical row
	// always maps back onto the same record.
	Transaction struct {
		ID          string
		Owner       string
		Date        time.Time
		Amount      decimal.Decimal
		Currency    string
		Type        TransactionType
		Account     string
		FromAccount string // transfers only
		ToAccount   string // transfers only
		Category    string
		Subcategory string
		Note        string
		SourceFile  string
		LastSeenAt  time.Time
		IsDeleted   bool
	}

	// RowInput is a normalized row produced by the loader boundary.
	RowInput struct {
		Date        time.Time
		Amount      decimal.Decimal
		Currency    string
		Type        TransactionType
		Account     string
		Category    string
		Subcategory string
		Note        string
		FromAccount string
		ToAccount   string
		IsTransfer  bool
	}

	// ImportStats counts the per-row reconciliation outcomes of one import.
	ImportStats struct {
		Processed int
		Inserted  int
		Updated   int
		Deleted   int
		Skipped   int
	}

	// ImportRecord is written once per completed file ingestion and keys the
	// idempotency check on the file content hash.
	ImportRecord struct {
		Owner      string
		FileHash   string
		FileName   string
		ImportedAt time.Time
		Stats      ImportStats
	}
)

var (
	ErrMissingDate          = errors.New("missing date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingAccount       = errors.New("missing account")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrMissingTransferRoute = errors.New("transfer missing from/to account")
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

func (r RowInput) Validate() error {
	if r.Date.IsZero() {
		return ErrMissingDate
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.IsTransfer {
		if strings.TrimSpace(r.FromAccount) == "" || strings.TrimSpace(r.ToAccount) == "" {
			return ErrMissingTransferRoute
		}
		return nil
	}
	if strings.TrimSpace(r.Account) == "" {
		return ErrMissingAccount
	}
	return nil
}

// Add accumulates another stats block into s, so the orchestrator can merge
// the transaction and transfer partitions of one import.
func (s *ImportStats) Add(other ImportStats) {
	s.Processed += other.Processed
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Deleted += other.Deleted
	s.Skipped += other.Skipped
}

// Period returns the calendar period key (YYYY-MM) for a date.
func Period(t time.Time) string {
	return t.Format("2006-01")
}
