package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

type trendKey struct {
	Period   string
	Category string
	Type     core.TransactionType
}

type categoryKey struct {
	Category string
	Type     core.TransactionType
}

// buildCategoryTrends derives one row per (period, category, type),
// transfers excluded. Month-over-month deltas are computed by iterating in
// sorted (period, category, type) order with the previous value carried as
// explicit local state, never map iteration order.
func buildCategoryTrends(owner string, txs []core.Transaction) []core.CategoryTrend {
	byKey := make(map[trendKey]*core.CategoryTrend)
	periodTotals := make(map[string]decimal.Decimal) // period+type -> total

	for _, tx := range txs {
		if tx.Type == core.TypeTransfer {
			continue
		}
		key := trendKey{Period: core.Period(tx.Date), Category: tx.Category, Type: tx.Type}
		t, ok := byKey[key]
		if !ok {
			t = &core.CategoryTrend{
				Owner:    owner,
				Period:   key.Period,
				Category: key.Category,
				Type:     key.Type,
				Min:      tx.Amount,
				Max:      tx.Amount,
			}
			byKey[key] = t
		}
		t.Total = t.Total.Add(tx.Amount)
		t.Count++
		if tx.Amount.GreaterThan(t.Max) {
			t.Max = tx.Amount
		}
		if tx.Amount.LessThan(t.Min) {
			t.Min = tx.Amount
		}

		ptKey := key.Period + string(key.Type)
		periodTotals[ptKey] = periodTotals[ptKey].Add(tx.Amount)
	}

	keys := make([]trendKey, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Period != keys[j].Period {
			return keys[i].Period < keys[j].Period
		}
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Type < keys[j].Type
	})

	previous := make(map[categoryKey]decimal.Decimal)
	trends := make([]core.CategoryTrend, 0, len(keys))
	for _, key := range keys {
		t := byKey[key]
		t.Average = t.Total.Div(decimal.NewFromInt(int64(t.Count)))

		if total := periodTotals[key.Period+string(key.Type)]; !total.IsZero() {
			t.ShareOfPeriod = t.Total.Div(total).Mul(hundred).InexactFloat64()
		}

		catKey := categoryKey{Category: key.Category, Type: key.Type}
		if prev, ok := previous[catKey]; ok {
			t.ChangePct = percentChange(t.Total, prev)
		}
		previous[catKey] = t.Total

		trends = append(trends, *t)
	}
	return trends
}
