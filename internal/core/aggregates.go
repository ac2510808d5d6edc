package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Derived aggregate rows. All of these except NetWorthSnapshot are fully
// replaced on every analytics run; snapshots are append-only history.

// MonthlySummary is one row per calendar period (YYYY-MM).
type MonthlySummary struct {
	Owner                string
	Period               string
	SalaryIncome         decimal.Decimal
	InvestmentIncome     decimal.Decimal
	OtherIncome          decimal.Decimal
	TotalIncome          decimal.Decimal
	EssentialExpense     decimal.Decimal
	DiscretionaryExpense decimal.Decimal
	TotalExpense         decimal.Decimal
	TransferVolume       decimal.Decimal
	// NetInvestmentFlow models the owner's cash perspective: transfers into
	// investment accounts subtract, transfers out of them add.
	NetInvestmentFlow decimal.Decimal
	Net               decimal.Decimal
	SavingsRate       float64 // net/income*100, 0 when income is zero
	IncomeChangePct   float64 // vs immediately preceding period
	ExpenseChangePct  float64
}

// CategoryTrend is one row per (period, category, type), transfers excluded.
type CategoryTrend struct {
	Owner         string
	Period        string
	Category      string
	Type          TransactionType
	Total         decimal.Decimal
	Count         int
	Average       decimal.Decimal
	Max           decimal.Decimal
	Min           decimal.Decimal
	ShareOfPeriod float64 // percent of this period+type total
	ChangePct     float64 // vs same (category,type) in the previous period
}

// TransferFlow aggregates transfers per (from, to) account pair.
type TransferFlow struct {
	Owner        string
	FromAccount  string
	ToAccount    string
	FromType     string
	ToType       string
	Total        decimal.Decimal
	Count        int
	Average      decimal.Decimal
	LastTransfer time.Time
}

// RecurringPattern is one detected (category, account, amount bucket, type)
// cluster with at least three occurrences and a recognized cadence.
type RecurringPattern struct {
	Owner         string
	Category      string
	Account       string
	Type          TransactionType
	AmountBucket  decimal.Decimal // amount rounded to the nearest 100
	Frequency     string          // weekly, biweekly, monthly, quarterly, yearly
	Confidence    float64         // 0-100, interval regularity score
	Occurrences   int
	AverageAmount decimal.Decimal
	ExpectedDay   int // day-of-month mode, monthly patterns only
	FirstSeen     time.Time
	LastSeen      time.Time
}

// MerchantProfile is one row per extracted merchant with >=2 expense hits.
type MerchantProfile struct {
	Owner        string
	Name         string
	Occurrences  int
	TotalSpent   decimal.Decimal
	AverageSpent decimal.Decimal
	TopCategory  string
	FirstSeen    time.Time
	LastSeen     time.Time
	MonthsActive int
	AvgGapDays   float64
	IsRecurring  bool
}

// InvestmentBreakdown splits investment holdings by detected account type.
type InvestmentBreakdown struct {
	Stocks        decimal.Decimal
	MutualFunds   decimal.Decimal
	FixedDeposits decimal.Decimal
	PPFEPF        decimal.Decimal
	Other         decimal.Decimal
}

func (b InvestmentBreakdown) Total() decimal.Decimal {
	return b.Stocks.Add(b.MutualFunds).Add(b.FixedDeposits).Add(b.PPFEPF).Add(b.Other)
}

// NetWorthSnapshot is an append-only point-in-time record per analytics run.
type NetWorthSnapshot struct {
	ID                     string
	Owner                  string
	TakenAt                time.Time
	CashBalance            decimal.Decimal
	CreditCardOutstanding  decimal.Decimal
	Investments            InvestmentBreakdown
	LoanPayable            decimal.Decimal
	LoanReceivable         decimal.Decimal
	OtherAssets            decimal.Decimal
	TotalAssets            decimal.Decimal
	TotalLiabilities       decimal.Decimal
	NetWorth               decimal.Decimal
	ChangeFromPrior        decimal.Decimal
	ChangeFromPriorPercent float64
}

// FiscalYearSummary is one row per fiscal year (configurable start month).
type FiscalYearSummary struct {
	Owner            string
	Label            string // FY2024 or FY2024-25 depending on start month
	StartDate        time.Time
	EndDate          time.Time
	SalaryIncome     decimal.Decimal
	BonusIncome      decimal.Decimal
	InvestmentIncome decimal.Decimal
	OtherIncome      decimal.Decimal
	TotalIncome      decimal.Decimal
	TotalExpense     decimal.Decimal
	TaxPaid          decimal.Decimal
	InvestmentsMade  decimal.Decimal
	Net              decimal.Decimal
	IncomeChangePct  float64
	ExpenseChangePct float64
	IsComplete       bool
}

type AnomalySeverity string

const (
	SeverityHigh   AnomalySeverity = "high"
	SeverityMedium AnomalySeverity = "medium"
)

type AnomalyKind string

const (
	AnomalyHighExpenseMonth AnomalyKind = "high_expense_month"
	AnomalyLargeTransaction AnomalyKind = "large_transaction"
	AnomalyBudgetExceeded   AnomalyKind = "budget_exceeded"
)

// Anomaly is a flagged irregularity. Unreviewed anomalies are replaced each
// analytics run; reviewed ones persist until dismissed by the user.
type Anomaly struct {
	ID            string
	Owner         string
	Kind          AnomalyKind
	Severity      AnomalySeverity
	Period        string // high-expense-month anomalies
	TransactionID string // large-transaction anomalies
	Category      string
	Amount        decimal.Decimal
	Expected      decimal.Decimal
	Description   string
	DetectedAt    time.Time
	Reviewed      bool
}

// Budget tracks a per-category monthly limit. Tracking fields are updated in
// place each analytics run rather than replaced.
type Budget struct {
	ID           string
	Owner        string
	Category     string
	MonthlyLimit decimal.Decimal
	Active       bool
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	UsedPercent  float64
	UpdatedAt    time.Time
}

// AuditEntry is one append-only audit log row.
type AuditEntry struct {
	ID             string
	Owner          string
	Operation      string
	EntityType     string
	Action         string
	ChangesSummary string
	SourceFile     string
	CreatedAt      time.Time
}

// Preferences carries the per-owner classification overrides, already
// deserialized by the persistence adapter. Zero-valued fields mean "use the
// hardcoded default".
type Preferences struct {
	EssentialCategories      []string
	SalaryPatterns           []string
	BonusPatterns            []string
	TaxablePatterns          []string
	InvestmentReturnPatterns []string
	InvestmentAccountTypes   map[string]string
	CreditCardPatterns       []string
	LoanPatterns             []string
	FiscalYearStartMonth     int
	AnomalyThreshold         float64
}
