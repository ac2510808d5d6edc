package analytics

import (
	"strings"
	"time"

	"ledgersync/internal/core"
)

// IncomeClass is the sub-classification of an income transaction.
type IncomeClass string

const (
	IncomeSalary     IncomeClass = "salary"
	IncomeBonus      IncomeClass = "bonus"
	IncomeInvestment IncomeClass = "investment"
	IncomeOther      IncomeClass = "other"
)

// ClassificationConfig is the value object every sub-computation reads its
// classification rules from. It is constructed once per run from the stored
// per-owner preferences merged over hardcoded defaults, and passed in
// explicitly, never read from ambient state.
type ClassificationConfig struct {
	essential         map[string]bool
	salaryPatterns    map[string]bool
	bonusPatterns     map[string]bool
	taxablePatterns   map[string]bool
	investmentReturns map[string]bool
	// account-name substring -> investment type (stocks, mutual_funds,
	// fixed_deposits, ppf_epf, other)
	investmentAccounts map[string]string
	creditCardPatterns []string
	loanPatterns       []string

	FiscalYearStartMonth time.Month
	AnomalyThreshold     float64 // standard deviations
}

func defaultPreferences() core.Preferences {
	return core.Preferences{
		EssentialCategories: []string{
			"rent", "groceries", "utilities", "bills", "emi",
			"insurance", "fuel", "transport", "education", "health",
		},
		SalaryPatterns: []string{
			"salary::monthly", "salary::", "income::salary",
		},
		BonusPatterns: []string{
			"salary::bonus", "salary::rsu", "income::bonus",
		},
		TaxablePatterns: []string{
			"salary::arrears", "income::freelance", "income::consulting",
		},
		InvestmentReturnPatterns: []string{
			"investment::dividend", "investment::interest",
			"income::dividend", "income::interest",
		},
		InvestmentAccountTypes: map[string]string{
			"zerodha": "stocks",
			"stock":   "stocks",
			"broker":  "stocks",
			"groww":   "mutual_funds",
			"mutual":  "mutual_funds",
			"fd":      "fixed_deposits",
			"deposit": "fixed_deposits",
			"ppf":     "ppf_epf",
			"epf":     "ppf_epf",
			"invest":  "other",
		},
		CreditCardPatterns:   []string{"credit", "card"},
		LoanPatterns:         []string{"loan", "mortgage"},
		FiscalYearStartMonth: int(time.April),
		AnomalyThreshold:     2.0,
	}
}

// NewClassificationConfig merges per-owner preferences over the defaults.
// Nil or zero-valued preference fields fall back to the defaults.
func NewClassificationConfig(prefs *core.Preferences) *ClassificationConfig {
	merged := defaultPreferences()
	if prefs != nil {
		if len(prefs.EssentialCategories) > 0 {
			merged.EssentialCategories = prefs.EssentialCategories
		}
		if len(prefs.SalaryPatterns) > 0 {
			merged.SalaryPatterns = prefs.SalaryPatterns
		}
		if len(prefs.BonusPatterns) > 0 {
			merged.BonusPatterns = prefs.BonusPatterns
		}
		if len(prefs.TaxablePatterns) > 0 {
			merged.TaxablePatterns = prefs.TaxablePatterns
		}
		if len(prefs.InvestmentReturnPatterns) > 0 {
			merged.InvestmentReturnPatterns = prefs.InvestmentReturnPatterns
		}
		if len(prefs.InvestmentAccountTypes) > 0 {
			merged.InvestmentAccountTypes = prefs.InvestmentAccountTypes
		}
		if len(prefs.CreditCardPatterns) > 0 {
			merged.CreditCardPatterns = prefs.CreditCardPatterns
		}
		if len(prefs.LoanPatterns) > 0 {
			merged.LoanPatterns = prefs.LoanPatterns
		}
		if prefs.FiscalYearStartMonth >= 1 && prefs.FiscalYearStartMonth <= 12 {
			merged.FiscalYearStartMonth = prefs.FiscalYearStartMonth
		}
		if prefs.AnomalyThreshold > 0 {
			merged.AnomalyThreshold = prefs.AnomalyThreshold
		}
	}

	cfg := &ClassificationConfig{
		essential:            toSet(merged.EssentialCategories),
		salaryPatterns:       toSet(merged.SalaryPatterns),
		bonusPatterns:        toSet(merged.BonusPatterns),
		taxablePatterns:      toSet(merged.TaxablePatterns),
		investmentReturns:    toSet(merged.InvestmentReturnPatterns),
		investmentAccounts:   make(map[string]string, len(merged.InvestmentAccountTypes)),
		creditCardPatterns:   normalizeAll(merged.CreditCardPatterns),
		loanPatterns:         normalizeAll(merged.LoanPatterns),
		FiscalYearStartMonth: time.Month(merged.FiscalYearStartMonth),
		AnomalyThreshold:     merged.AnomalyThreshold,
	}
	for pattern, kind := range merged.InvestmentAccountTypes {
		cfg.investmentAccounts[normalize(pattern)] = kind
	}
	return cfg
}

// IsEssential reports whether an expense category is an essential one.
func (c *ClassificationConfig) IsEssential(category string) bool {
	return c.essential[normalize(category)]
}

// ClassifyIncome maps "{category}::{subcategory}" against the configured
// lists. Precedence: explicit salary/bonus patterns, then the generic taxable
// list (counted as salary), then investment returns, then other.
func (c *ClassificationConfig) ClassifyIncome(category, subcategory string) IncomeClass {
	key := normalize(category) + "::" + normalize(subcategory)
	switch {
	case c.salaryPatterns[key]:
		return IncomeSalary
	case c.bonusPatterns[key]:
		return IncomeBonus
	case c.taxablePatterns[key]:
		return IncomeSalary
	case c.investmentReturns[key]:
		return IncomeInvestment
	default:
		return IncomeOther
	}
}

// InvestmentAccountType returns the investment bucket for an account name,
// matched by substring against the configured patterns.
func (c *ClassificationConfig) InvestmentAccountType(account string) (string, bool) {
	name := normalize(account)
	for pattern, kind := range c.investmentAccounts {
		if strings.Contains(name, pattern) {
			return kind, true
		}
	}
	return "", false
}

// IsInvestmentAccount reports whether the account routes to investments.
func (c *ClassificationConfig) IsInvestmentAccount(account string) bool {
	_, ok := c.InvestmentAccountType(account)
	return ok
}

// AccountClass buckets an account for net-worth purposes: "investment",
// "credit_card", "loan", or "cash" when nothing matches.
func (c *ClassificationConfig) AccountClass(account string) string {
	if c.IsInvestmentAccount(account) {
		return "investment"
	}
	name := normalize(account)
	for _, p := range c.creditCardPatterns {
		if strings.Contains(name, p) {
			return "credit_card"
		}
	}
	for _, p := range c.loanPatterns {
		if strings.Contains(name, p) {
			return "loan"
		}
	}
	return "cash"
}

func normalizeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[normalize(v)] = true
	}
	return set
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
