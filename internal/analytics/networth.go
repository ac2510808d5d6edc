package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

// buildNetWorthSnapshot replays every active transaction into per-account
// running balances and buckets the results by account class. Transfers debit
// the source account and credit the destination; income credits and expense
// debits the transaction's own account. The snapshot is appended, never
// replacing the prior one.
func buildNetWorthSnapshot(owner string, txs []core.Transaction, cfg *ClassificationConfig, prior *core.NetWorthSnapshot, now time.Time) core.NetWorthSnapshot {
	balances := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		switch tx.Type {
		case core.TypeTransfer:
			balances[tx.FromAccount] = balances[tx.FromAccount].Sub(tx.Amount)
			balances[tx.ToAccount] = balances[tx.ToAccount].Add(tx.Amount)
		case core.TypeIncome:
			balances[tx.Account] = balances[tx.Account].Add(tx.Amount)
		case core.TypeExpense:
			balances[tx.Account] = balances[tx.Account].Sub(tx.Amount)
		}
	}

	snap := core.NetWorthSnapshot{
		ID:      uuid.NewString(),
		Owner:   owner,
		TakenAt: now,
	}

	for account, balance := range balances {
		switch cfg.AccountClass(account) {
		case "investment":
			kind, _ := cfg.InvestmentAccountType(account)
			switch kind {
			case "stocks":
				snap.Investments.Stocks = snap.Investments.Stocks.Add(balance)
			case "mutual_funds":
				snap.Investments.MutualFunds = snap.Investments.MutualFunds.Add(balance)
			case "fixed_deposits":
				snap.Investments.FixedDeposits = snap.Investments.FixedDeposits.Add(balance)
			case "ppf_epf":
				snap.Investments.PPFEPF = snap.Investments.PPFEPF.Add(balance)
			default:
				snap.Investments.Other = snap.Investments.Other.Add(balance)
			}
		case "credit_card":
			if balance.IsNegative() {
				snap.CreditCardOutstanding = snap.CreditCardOutstanding.Add(balance.Neg())
			} else {
				snap.OtherAssets = snap.OtherAssets.Add(balance)
			}
		case "loan":
			if balance.IsNegative() {
				snap.LoanPayable = snap.LoanPayable.Add(balance.Neg())
			} else {
				snap.LoanReceivable = snap.LoanReceivable.Add(balance)
			}
		default:
			snap.CashBalance = snap.CashBalance.Add(balance)
		}
	}

	snap.TotalAssets = snap.CashBalance.
		Add(snap.Investments.Total()).
		Add(snap.LoanReceivable).
		Add(snap.OtherAssets)
	snap.TotalLiabilities = snap.CreditCardOutstanding.Add(snap.LoanPayable)
	snap.NetWorth = snap.TotalAssets.Sub(snap.TotalLiabilities)

	if prior != nil {
		snap.ChangeFromPrior = snap.NetWorth.Sub(prior.NetWorth)
		if !prior.NetWorth.IsZero() {
			pct, _ := snap.ChangeFromPrior.Div(prior.NetWorth).Mul(hundred).Float64()
			snap.ChangeFromPriorPercent = pct
		}
	}
	return snap
}
