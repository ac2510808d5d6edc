package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ledgersync/internal/core"
)

// fiscalYearStart returns the start date of the fiscal year containing d.
func fiscalYearStart(d time.Time, startMonth time.Month) time.Time {
	year := d.Year()
	if d.Month() < startMonth {
		year--
	}
	return time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
}

// fiscalLabel is FY2024 for calendar-aligned years and FY2024-25 when the
// fiscal year spans two calendar years.
func fiscalLabel(start time.Time, startMonth time.Month) string {
	if startMonth == time.January {
		return fmt.Sprintf("FY%d", start.Year())
	}
	return fmt.Sprintf("FY%d-%02d", start.Year(), (start.Year()+1)%100)
}

// buildFiscalYearSummaries aggregates income, spend, tax, and investment
// outflow per fiscal year and computes year-over-year deltas between
// consecutive summaries.
func buildFiscalYearSummaries(owner string, txs []core.Transaction, cfg *ClassificationConfig, now time.Time) []core.FiscalYearSummary {
	byStart := make(map[time.Time]*core.FiscalYearSummary)

	summaryFor := func(d time.Time) *core.FiscalYearSummary {
		start := fiscalYearStart(d, cfg.FiscalYearStartMonth)
		s, ok := byStart[start]
		if !ok {
			s = &core.FiscalYearSummary{
				Owner:     owner,
				Label:     fiscalLabel(start, cfg.FiscalYearStartMonth),
				StartDate: start,
				EndDate:   start.AddDate(1, 0, -1),
			}
			byStart[start] = s
		}
		return s
	}

	for _, tx := range txs {
		s := summaryFor(tx.Date)
		switch tx.Type {
		case core.TypeIncome:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			switch cfg.ClassifyIncome(tx.Category, tx.Subcategory) {
			case IncomeSalary:
				s.SalaryIncome = s.SalaryIncome.Add(tx.Amount)
			case IncomeBonus:
				s.BonusIncome = s.BonusIncome.Add(tx.Amount)
			case IncomeInvestment:
				s.InvestmentIncome = s.InvestmentIncome.Add(tx.Amount)
			default:
				s.OtherIncome = s.OtherIncome.Add(tx.Amount)
			}
		case core.TypeExpense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			if isTaxPayment(tx) {
				s.TaxPaid = s.TaxPaid.Add(tx.Amount)
			}
		case core.TypeTransfer:
			if cfg.IsInvestmentAccount(tx.ToAccount) && !cfg.IsInvestmentAccount(tx.FromAccount) {
				s.InvestmentsMade = s.InvestmentsMade.Add(tx.Amount)
			}
		}
	}

	summaries := make([]core.FiscalYearSummary, 0, len(byStart))
	for _, s := range byStart {
		s.Net = s.TotalIncome.Sub(s.TotalExpense)
		s.IsComplete = s.EndDate.Before(now)
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartDate.Before(summaries[j].StartDate)
	})

	for i := 1; i < len(summaries); i++ {
		prev := summaries[i-1]
		summaries[i].IncomeChangePct = percentChange(summaries[i].TotalIncome, prev.TotalIncome)
		summaries[i].ExpenseChangePct = percentChange(summaries[i].TotalExpense, prev.TotalExpense)
	}
	return summaries
}

// isTaxPayment matches expense rows whose category or note mentions tax.
func isTaxPayment(tx core.Transaction) bool {
	return strings.Contains(strings.ToLower(tx.Category), "tax") ||
		strings.Contains(strings.ToLower(tx.Note), "tax")
}
