package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

type routeKey struct {
	From string
	To   string
}

// buildTransferFlows aggregates transfers per (from, to) account pair and
// attaches each endpoint's classification for visualization.
func buildTransferFlows(owner string, txs []core.Transaction, cfg *ClassificationConfig) []core.TransferFlow {
	byRoute := make(map[routeKey]*core.TransferFlow)

	for _, tx := range txs {
		if tx.Type != core.TypeTransfer {
			continue
		}
		key := routeKey{From: tx.FromAccount, To: tx.ToAccount}
		f, ok := byRoute[key]
		if !ok {
			f = &core.TransferFlow{
				Owner:       owner,
				FromAccount: tx.FromAccount,
				ToAccount:   tx.ToAccount,
				FromType:    accountType(cfg, tx.FromAccount),
				ToType:      accountType(cfg, tx.ToAccount),
			}
			byRoute[key] = f
		}
		f.Total = f.Total.Add(tx.Amount)
		f.Count++
		if tx.Date.After(f.LastTransfer) {
			f.LastTransfer = tx.Date
		}
	}

	flows := make([]core.TransferFlow, 0, len(byRoute))
	for _, f := range byRoute {
		f.Average = f.Total.Div(decimal.NewFromInt(int64(f.Count)))
		flows = append(flows, *f)
	}
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].FromAccount != flows[j].FromAccount {
			return flows[i].FromAccount < flows[j].FromAccount
		}
		return flows[i].ToAccount < flows[j].ToAccount
	})
	return flows
}

func accountType(cfg *ClassificationConfig, account string) string {
	if kind, ok := cfg.InvestmentAccountType(account); ok {
		return kind
	}
	return "cash"
}
