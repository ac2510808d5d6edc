package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

var hundred = decimal.NewFromInt(100)

// buildMonthlySummaries groups the snapshot by calendar period and derives
// one summary row per period, with deltas against the immediately preceding
// period in sorted order.
func buildMonthlySummaries(owner string, txs []core.Transaction, cfg *ClassificationConfig) []core.MonthlySummary {
	byPeriod := make(map[string]*core.MonthlySummary)

	get := func(period string) *core.MonthlySummary {
		s, ok := byPeriod[period]
		if !ok {
			s = &core.MonthlySummary{Owner: owner, Period: period}
			byPeriod[period] = s
		}
		return s
	}

	for _, tx := range txs {
		s := get(core.Period(tx.Date))
		switch tx.Type {
		case core.TypeIncome:
			switch cfg.ClassifyIncome(tx.Category, tx.Subcategory) {
			case IncomeSalary, IncomeBonus:
				s.SalaryIncome = s.SalaryIncome.Add(tx.Amount)
			case IncomeInvestment:
				s.InvestmentIncome = s.InvestmentIncome.Add(tx.Amount)
			default:
				s.OtherIncome = s.OtherIncome.Add(tx.Amount)
			}
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case core.TypeExpense:
			if cfg.IsEssential(tx.Category) {
				s.EssentialExpense = s.EssentialExpense.Add(tx.Amount)
			} else {
				s.DiscretionaryExpense = s.DiscretionaryExpense.Add(tx.Amount)
			}
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
		case core.TypeTransfer:
			s.TransferVolume = s.TransferVolume.Add(tx.Amount)
			// Owner's cash perspective: money leaving into an investment
			// account subtracts, money coming back out adds.
			if cfg.IsInvestmentAccount(tx.ToAccount) {
				s.NetInvestmentFlow = s.NetInvestmentFlow.Sub(tx.Amount)
			} else if cfg.IsInvestmentAccount(tx.FromAccount) {
				s.NetInvestmentFlow = s.NetInvestmentFlow.Add(tx.Amount)
			}
		}
	}

	periods := make([]string, 0, len(byPeriod))
	for period := range byPeriod {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	summaries := make([]core.MonthlySummary, 0, len(periods))
	var prev *core.MonthlySummary
	for _, period := range periods {
		s := byPeriod[period]
		s.Net = s.TotalIncome.Sub(s.TotalExpense)
		s.SavingsRate = savingsRate(s.Net, s.TotalIncome)
		if prev != nil {
			s.IncomeChangePct = percentChange(s.TotalIncome, prev.TotalIncome)
			s.ExpenseChangePct = percentChange(s.TotalExpense, prev.TotalExpense)
		}
		prev = s
		summaries = append(summaries, *s)
	}
	return summaries
}

// savingsRate is net/income*100, defined as 0 when there is no income.
func savingsRate(net, income decimal.Decimal) float64 {
	if income.IsZero() {
		return 0
	}
	return net.Div(income).Mul(hundred).InexactFloat64()
}

// percentChange is the period-over-period delta, 0 when the previous value
// is zero or absent.
func percentChange(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	return current.Sub(previous).Div(previous).Mul(hundred).InexactFloat64()
}
