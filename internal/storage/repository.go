// Package storage is the SQLite persistence layer. Monetary values are stored
// as exact decimal strings, never floats; timestamps use a fixed-width UTC
// layout so lexical comparison in SQL matches chronological order.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/analytics"
	"ledgersync/internal/core"
	"ledgersync/internal/reconcile"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ListTransactions returns every record for the owner, soft-deleted included.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT id, owner, date, amount, currency, type, account, from_account, to_account,
		        category, subcategory, note, source_file, last_seen_at, is_deleted
		 FROM transactions WHERE owner = ?`, owner)
}

// ListActiveTransactions returns the non-deleted snapshot for the owner.
func (r *SQLiteRepository) ListActiveTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT id, owner, date, amount, currency, type, account, from_account, to_account,
		        category, subcategory, note, source_file, last_seen_at, is_deleted
		 FROM transactions WHERE owner = ? AND is_deleted = 0`, owner)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx                       core.Transaction
			date, amount, lastSeenAt string
			isDeleted                int
		)
		if err := rows.Scan(&tx.ID, &tx.Owner, &date, &amount, &tx.Currency, &tx.Type,
			&tx.Account, &tx.FromAccount, &tx.ToAccount, &tx.Category, &tx.Subcategory,
			&tx.Note, &tx.SourceFile, &lastSeenAt, &isDeleted); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Date = parseTime(date)
		tx.Amount = parseDec(amount)
		tx.LastSeenAt = parseTime(lastSeenAt)
		tx.IsDeleted = isDeleted != 0
		out = append(out, tx)
	}
	return out, rows.Err()
}

const upsertTransaction = `
INSERT INTO transactions (id, owner, date, amount, currency, type, account, from_account,
                          to_account, category, subcategory, note, source_file, last_seen_at, is_deleted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (owner, id) DO UPDATE SET
    type = excluded.type,
    from_account = excluded.from_account,
    to_account = excluded.to_account,
    category = excluded.category,
    subcategory = excluded.subcategory,
    note = excluded.note,
    source_file = excluded.source_file,
    last_seen_at = excluded.last_seen_at,
    is_deleted = excluded.is_deleted`

// ApplyChangeSet commits one reconciliation pass atomically.
func (r *SQLiteRepository) ApplyChangeSet(ctx context.Context, owner string, cs *reconcile.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin change set: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertTransaction)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, batch := range [][]core.Transaction{cs.Inserts, cs.Updates} {
		for _, t := range batch {
			deleted := 0
			if t.IsDeleted {
				deleted = 1
			}
			if _, err := stmt.ExecContext(ctx, t.ID, owner, fmtTime(t.Date), t.Amount.String(),
				t.Currency, t.Type, t.Account, t.FromAccount, t.ToAccount,
				t.Category, t.Subcategory, t.Note, t.SourceFile, fmtTime(t.LastSeenAt), deleted); err != nil {
				return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
			}
		}
	}
	return tx.Commit()
}

// SweepNotSeenSince soft-deletes every active record last seen before importTime.
func (r *SQLiteRepository) SweepNotSeenSince(ctx context.Context, owner string, importTime time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET is_deleted = 1
		 WHERE owner = ? AND is_deleted = 0 AND last_seen_at < ?`,
		owner, fmtTime(importTime))
	if err != nil {
		return 0, fmt.Errorf("sweep transactions: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ImportRecordByHash(ctx context.Context, owner, fileHash string) (*core.ImportRecord, error) {
	var (
		rec        core.ImportRecord
		importedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT owner, file_hash, file_name, imported_at, processed, inserted, updated, deleted, skipped
		 FROM import_records WHERE owner = ? AND file_hash = ?`, owner, fileHash).
		Scan(&rec.Owner, &rec.FileHash, &rec.FileName, &importedAt,
			&rec.Stats.Processed, &rec.Stats.Inserted, &rec.Stats.Updated,
			&rec.Stats.Deleted, &rec.Stats.Skipped)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query import record: %w", err)
	}
	rec.ImportedAt = parseTime(importedAt)
	return &rec, nil
}

func (r *SQLiteRepository) SaveImportRecord(ctx context.Context, rec core.ImportRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_records (owner, file_hash, file_name, imported_at, processed, inserted, updated, deleted, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner, file_hash) DO UPDATE SET
		     file_name = excluded.file_name,
		     imported_at = excluded.imported_at,
		     processed = excluded.processed,
		     inserted = excluded.inserted,
		     updated = excluded.updated,
		     deleted = excluded.deleted,
		     skipped = excluded.skipped`,
		rec.Owner, rec.FileHash, rec.FileName, fmtTime(rec.ImportedAt),
		rec.Stats.Processed, rec.Stats.Inserted, rec.Stats.Updated, rec.Stats.Deleted, rec.Stats.Skipped)
	if err != nil {
		return fmt.Errorf("save import record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteImportRecord(ctx context.Context, owner, fileHash string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM import_records WHERE owner = ? AND file_hash = ?`, owner, fileHash); err != nil {
		return fmt.Errorf("delete import record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AppendAudit(ctx context.Context, entry core.AuditEntry) error {
	if err := appendAudit(ctx, r.db, entry); err != nil {
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendAudit(ctx context.Context, db execer, entry core.AuditEntry) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (id, owner, operation, entity_type, action, changes_summary, source_file, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Owner, entry.Operation, entry.EntityType, entry.Action,
		entry.ChangesSummary, entry.SourceFile, fmtTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Preferences returns the owner's stored classification overrides, or nil
// when none are stored. The JSON payload is deserialized here; the rest of
// the system only ever sees the typed form.
func (r *SQLiteRepository) Preferences(ctx context.Context, owner string) (*core.Preferences, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM preferences WHERE owner = ?`, owner).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	var prefs core.Preferences
	if err := json.Unmarshal([]byte(payload), &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return &prefs, nil
}

func (r *SQLiteRepository) SavePreferences(ctx context.Context, owner string, prefs *core.Preferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO preferences (owner, payload) VALUES (?, ?)
		 ON CONFLICT (owner) DO UPDATE SET payload = excluded.payload`,
		owner, string(payload))
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, category, monthly_limit, active, spent, remaining, used_percent, updated_at
		 FROM budgets WHERE owner = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b                       core.Budget
			limit, spent, remaining string
			active                  int
			updatedAt               string
		)
		if err := rows.Scan(&b.ID, &b.Owner, &b.Category, &limit, &active,
			&spent, &remaining, &b.UsedPercent, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.MonthlyLimit = parseDec(limit)
		b.Active = active != 0
		b.Spent = parseDec(spent)
		b.Remaining = parseDec(remaining)
		b.UpdatedAt = parseTime(updatedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveBudget creates or replaces a budget definition.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	active := 0
	if b.Active {
		active = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, owner, category, monthly_limit, active, spent, remaining, used_percent, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     category = excluded.category,
		     monthly_limit = excluded.monthly_limit,
		     active = excluded.active`,
		b.ID, b.Owner, b.Category, b.MonthlyLimit.String(), active,
		b.Spent.String(), b.Remaining.String(), b.UsedPercent, fmtTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LatestNetWorthSnapshot(ctx context.Context, owner string) (*core.NetWorthSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, taken_at, cash_balance, credit_card_outstanding,
		        inv_stocks, inv_mutual_funds, inv_fixed_deposits, inv_ppf_epf, inv_other,
		        loan_payable, loan_receivable, other_assets,
		        total_assets, total_liabilities, net_worth, change_from_prior, change_from_prior_pct
		 FROM net_worth_snapshots WHERE owner = ?
		 ORDER BY taken_at DESC LIMIT 1`, owner)

	var (
		s                                                                 core.NetWorthSnapshot
		takenAt, cash, cc, stocks, mf, fd, ppf, other                     string
		loanPay, loanRecv, otherAssets, assets, liabilities, worth, delta string
	)
	err := row.Scan(&s.ID, &s.Owner, &takenAt, &cash, &cc, &stocks, &mf, &fd, &ppf, &other,
		&loanPay, &loanRecv, &otherAssets, &assets, &liabilities, &worth, &delta,
		&s.ChangeFromPriorPercent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	s.TakenAt = parseTime(takenAt)
	s.CashBalance = parseDec(cash)
	s.CreditCardOutstanding = parseDec(cc)
	s.Investments = core.InvestmentBreakdown{
		Stocks:        parseDec(stocks),
		MutualFunds:   parseDec(mf),
		FixedDeposits: parseDec(fd),
		PPFEPF:        parseDec(ppf),
		Other:         parseDec(other),
	}
	s.LoanPayable = parseDec(loanPay)
	s.LoanReceivable = parseDec(loanRecv)
	s.OtherAssets = parseDec(otherAssets)
	s.TotalAssets = parseDec(assets)
	s.TotalLiabilities = parseDec(liabilities)
	s.NetWorth = parseDec(worth)
	s.ChangeFromPrior = parseDec(delta)
	return &s, nil
}

// CommitRun swaps all replaced aggregate tables, appends the snapshot and
// audit entry, updates budgets in place, and replaces unreviewed anomalies,
// all in one transaction.
func (r *SQLiteRepository) CommitRun(ctx context.Context, owner string, run *analytics.RunResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin analytics commit: %w", err)
	}
	defer tx.Rollback()

	replaced := []string{
		"monthly_summaries", "category_trends", "transfer_flows",
		"recurring_patterns", "merchant_profiles", "fiscal_year_summaries",
	}
	for _, table := range replaced {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner = ?`, owner); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, m := range run.Monthly {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monthly_summaries (owner, period, salary_income, investment_income, other_income,
			     total_income, essential_expense, discretionary_expense, total_expense, transfer_volume,
			     net_investment_flow, net, savings_rate, income_change_pct, expense_change_pct)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.Owner, m.Period, m.SalaryIncome.String(), m.InvestmentIncome.String(), m.OtherIncome.String(),
			m.TotalIncome.String(), m.EssentialExpense.String(), m.DiscretionaryExpense.String(),
			m.TotalExpense.String(), m.TransferVolume.String(), m.NetInvestmentFlow.String(),
			m.Net.String(), m.SavingsRate, m.IncomeChangePct, m.ExpenseChangePct); err != nil {
			return fmt.Errorf("insert monthly summary %s: %w", m.Period, err)
		}
	}

	for _, t := range run.Trends {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_trends (owner, period, category, type, total, count, average, max, min,
			     share_of_period, change_pct)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Owner, t.Period, t.Category, t.Type, t.Total.String(), t.Count,
			t.Average.String(), t.Max.String(), t.Min.String(), t.ShareOfPeriod, t.ChangePct); err != nil {
			return fmt.Errorf("insert category trend %s/%s: %w", t.Period, t.Category, err)
		}
	}

	for _, f := range run.Flows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transfer_flows (owner, from_account, to_account, from_type, to_type,
			     total, count, average, last_transfer)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.Owner, f.FromAccount, f.ToAccount, f.FromType, f.ToType,
			f.Total.String(), f.Count, f.Average.String(), fmtTime(f.LastTransfer)); err != nil {
			return fmt.Errorf("insert transfer flow %s->%s: %w", f.FromAccount, f.ToAccount, err)
		}
	}

	for _, p := range run.Recurring {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recurring_patterns (owner, category, account, type, amount_bucket, frequency,
			     confidence, occurrences, average_amount, expected_day, first_seen, last_seen)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Owner, p.Category, p.Account, p.Type, p.AmountBucket.String(), p.Frequency,
			p.Confidence, p.Occurrences, p.AverageAmount.String(), p.ExpectedDay,
			fmtTime(p.FirstSeen), fmtTime(p.LastSeen)); err != nil {
			return fmt.Errorf("insert recurring pattern %s: %w", p.Category, err)
		}
	}

	for _, m := range run.Merchants {
		recurring := 0
		if m.IsRecurring {
			recurring = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO merchant_profiles (owner, name, occurrences, total_spent, average_spent,
			     top_category, first_seen, last_seen, months_active, avg_gap_days, is_recurring)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.Owner, m.Name, m.Occurrences, m.TotalSpent.String(), m.AverageSpent.String(),
			m.TopCategory, fmtTime(m.FirstSeen), fmtTime(m.LastSeen),
			m.MonthsActive, m.AvgGapDays, recurring); err != nil {
			return fmt.Errorf("insert merchant profile %s: %w", m.Name, err)
		}
	}

	for _, f := range run.Fiscal {
		complete := 0
		if f.IsComplete {
			complete = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fiscal_year_summaries (owner, label, start_date, end_date, salary_income,
			     bonus_income, investment_income, other_income, total_income, total_expense,
			     tax_paid, investments_made, net, income_change_pct, expense_change_pct, is_complete)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.Owner, f.Label, fmtTime(f.StartDate), fmtTime(f.EndDate), f.SalaryIncome.String(),
			f.BonusIncome.String(), f.InvestmentIncome.String(), f.OtherIncome.String(),
			f.TotalIncome.String(), f.TotalExpense.String(), f.TaxPaid.String(),
			f.InvestmentsMade.String(), f.Net.String(), f.IncomeChangePct, f.ExpenseChangePct, complete); err != nil {
			return fmt.Errorf("insert fiscal year summary %s: %w", f.Label, err)
		}
	}

	s := run.Snapshot
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO net_worth_snapshots (id, owner, taken_at, cash_balance, credit_card_outstanding,
		     inv_stocks, inv_mutual_funds, inv_fixed_deposits, inv_ppf_epf, inv_other,
		     loan_payable, loan_receivable, other_assets, total_assets, total_liabilities,
		     net_worth, change_from_prior, change_from_prior_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Owner, fmtTime(s.TakenAt), s.CashBalance.String(), s.CreditCardOutstanding.String(),
		s.Investments.Stocks.String(), s.Investments.MutualFunds.String(),
		s.Investments.FixedDeposits.String(), s.Investments.PPFEPF.String(), s.Investments.Other.String(),
		s.LoanPayable.String(), s.LoanReceivable.String(), s.OtherAssets.String(),
		s.TotalAssets.String(), s.TotalLiabilities.String(), s.NetWorth.String(),
		s.ChangeFromPrior.String(), s.ChangeFromPriorPercent); err != nil {
		return fmt.Errorf("insert net worth snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM anomalies WHERE owner = ? AND reviewed = 0`, owner); err != nil {
		return fmt.Errorf("clear unreviewed anomalies: %w", err)
	}
	for _, a := range run.Anomalies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO anomalies (id, owner, kind, severity, period, transaction_id, category,
			     amount, expected, description, detected_at, reviewed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			a.ID, a.Owner, a.Kind, a.Severity, a.Period, a.TransactionID, a.Category,
			a.Amount.String(), a.Expected.String(), a.Description, fmtTime(a.DetectedAt)); err != nil {
			return fmt.Errorf("insert anomaly %s: %w", a.ID, err)
		}
	}

	for _, b := range run.Budgets {
		if _, err := tx.ExecContext(ctx,
			`UPDATE budgets SET spent = ?, remaining = ?, used_percent = ?, updated_at = ?
			 WHERE id = ?`,
			b.Spent.String(), b.Remaining.String(), b.UsedPercent, fmtTime(b.UpdatedAt), b.ID); err != nil {
			return fmt.Errorf("update budget %s: %w", b.ID, err)
		}
	}

	if err := appendAudit(ctx, tx, run.Audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analytics run: %w", err)
	}

	slog.InfoContext(ctx, "Aggregate tables replaced",
		"owner", owner,
		"monthly_summaries", len(run.Monthly),
		"anomalies", len(run.Anomalies))
	return nil
}
