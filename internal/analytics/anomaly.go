package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

// detectAnomalies runs two independent detectors and returns their findings
// in detection order: high-expense months first, then outsized transactions.
// Both detectors work on expenses only.
func detectAnomalies(owner string, txs []core.Transaction, cfg *ClassificationConfig, now time.Time) []core.Anomaly {
	anomalies := detectHighExpenseMonths(owner, txs, cfg, now)
	anomalies = append(anomalies, detectLargeTransactions(owner, txs, now)...)
	return anomalies
}

// detectHighExpenseMonths flags months whose total expense exceeds the mean
// by the configured number of standard deviations. Needs more than three
// months of history to have a meaningful baseline.
func detectHighExpenseMonths(owner string, txs []core.Transaction, cfg *ClassificationConfig, now time.Time) []core.Anomaly {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.TypeExpense {
			continue
		}
		period := core.Period(tx.Date)
		totals[period] = totals[period].Add(tx.Amount)
	}
	if len(totals) <= 3 {
		return nil
	}

	periods := make([]string, 0, len(totals))
	values := make([]float64, 0, len(totals))
	for period, total := range totals {
		periods = append(periods, period)
		values = append(values, total.InexactFloat64())
	}
	sort.Strings(periods)

	mean := meanOf(values)
	stdev := stdevOf(values, mean)
	cutoff := mean + cfg.AnomalyThreshold*stdev

	var anomalies []core.Anomaly
	for _, period := range periods {
		total := totals[period]
		if total.InexactFloat64() <= cutoff {
			continue
		}
		severity := core.SeverityMedium
		if total.InexactFloat64() > 2.5*mean {
			severity = core.SeverityHigh
		}
		anomalies = append(anomalies, core.Anomaly{
			ID:       uuid.NewString(),
			Owner:    owner,
			Kind:     core.AnomalyHighExpenseMonth,
			Severity: severity,
			Period:   period,
			Amount:   total,
			Expected: decimal.NewFromFloat(mean).Round(2),
			Description: fmt.Sprintf("expenses in %s were %s against a monthly average of %.2f",
				period, total.StringFixed(2), mean),
			DetectedAt: now,
		})
	}
	return anomalies
}

// detectLargeTransactions flags individual expenses exceeding three times
// their category's all-time average.
func detectLargeTransactions(owner string, txs []core.Transaction, now time.Time) []core.Anomaly {
	type categoryAgg struct {
		total decimal.Decimal
		count int64
	}
	byCategory := make(map[string]*categoryAgg)
	for _, tx := range txs {
		if tx.Type != core.TypeExpense {
			continue
		}
		agg, ok := byCategory[tx.Category]
		if !ok {
			agg = &categoryAgg{}
			byCategory[tx.Category] = agg
		}
		agg.total = agg.total.Add(tx.Amount)
		agg.count++
	}

	three := decimal.NewFromInt(3)
	var anomalies []core.Anomaly
	for _, tx := range txs {
		if tx.Type != core.TypeExpense {
			continue
		}
		agg := byCategory[tx.Category]
		average := agg.total.Div(decimal.NewFromInt(agg.count))
		if average.IsZero() || tx.Amount.LessThanOrEqual(average.Mul(three)) {
			continue
		}
		anomalies = append(anomalies, core.Anomaly{
			ID:            uuid.NewString(),
			Owner:         owner,
			Kind:          core.AnomalyLargeTransaction,
			Severity:      core.SeverityMedium,
			TransactionID: tx.ID,
			Category:      tx.Category,
			Amount:        tx.Amount,
			Expected:      average.Round(2),
			Description: fmt.Sprintf("%s expense of %s is over 3x the category average of %s",
				tx.Category, tx.Amount.StringFixed(2), average.StringFixed(2)),
			DetectedAt: now,
		})
	}
	return anomalies
}
