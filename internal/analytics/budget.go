package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

// trackBudgets updates each active budget's tracking fields against the
// current calendar month's spend and emits a high-severity anomaly for every
// budget over its limit.
func trackBudgets(owner string, txs []core.Transaction, budgets []core.Budget, now time.Time) ([]core.Budget, []core.Anomaly) {
	period := core.Period(now)
	spendByCategory := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.TypeExpense || core.Period(tx.Date) != period {
			continue
		}
		spendByCategory[tx.Category] = spendByCategory[tx.Category].Add(tx.Amount)
	}

	updated := make([]core.Budget, 0, len(budgets))
	var anomalies []core.Anomaly
	for _, b := range budgets {
		if !b.Active {
			continue
		}
		b.Spent = spendByCategory[b.Category]
		b.Remaining = b.MonthlyLimit.Sub(b.Spent)
		if b.MonthlyLimit.IsZero() {
			b.UsedPercent = 0
		} else {
			b.UsedPercent = b.Spent.Div(b.MonthlyLimit).Mul(hundred).InexactFloat64()
		}
		b.UpdatedAt = now
		updated = append(updated, b)

		if b.UsedPercent > 100 {
			anomalies = append(anomalies, core.Anomaly{
				ID:       uuid.NewString(),
				Owner:    owner,
				Kind:     core.AnomalyBudgetExceeded,
				Severity: core.SeverityHigh,
				Period:   period,
				Category: b.Category,
				Amount:   b.Spent,
				Expected: b.MonthlyLimit,
				Description: fmt.Sprintf("%s spend of %s exceeded the monthly budget of %s",
					b.Category, b.Spent.StringFixed(2), b.MonthlyLimit.StringFixed(2)),
				DetectedAt: now,
			})
		}
	}
	return updated, anomalies
}
