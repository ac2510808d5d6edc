package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

const testOwner = "tester"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expense(date time.Time, amount, category, account, note string) core.Transaction {
	return core.Transaction{
		Owner:    testOwner,
		Date:     date,
		Amount:   dec(amount),
		Type:     core.TypeExpense,
		Account:  account,
		Category: category,
		Note:     note,
	}
}

func income(date time.Time, amount, category, subcategory string) core.Transaction {
	return core.Transaction{
		Owner:       testOwner,
		Date:        date,
		Amount:      dec(amount),
		Type:        core.TypeIncome,
		Account:     "HDFC Savings",
		Category:    category,
		Subcategory: subcategory,
	}
}

func transfer(date time.Time, amount, from, to string) core.Transaction {
	return core.Transaction{
		Owner:       testOwner,
		Date:        date,
		Amount:      dec(amount),
		Type:        core.TypeTransfer,
		Account:     from,
		FromAccount: from,
		ToAccount:   to,
	}
}
