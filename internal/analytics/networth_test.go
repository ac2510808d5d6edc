package analytics

import (
	"testing"
	"time"

	"ledgersync/internal/core"
)

func netWorthFixture() []core.Transaction {
	return []core.Transaction{
		income(day(2024, time.January, 1), "100000", "salary", "monthly"),
		expense(day(2024, time.January, 5), "30000", "rent", "HDFC Savings", ""),
		transfer(day(2024, time.January, 10), "20000", "HDFC Savings", "Zerodha"),
		transfer(day(2024, time.January, 11), "5000", "HDFC Savings", "PPF Account"),
		expense(day(2024, time.January, 12), "10000", "shopping", "HDFC Credit Card", ""),
		transfer(day(2024, time.January, 15), "3000", "HDFC Savings", "Friend Loan"),
	}
}

func TestBuildNetWorthSnapshot(t *testing.T) {
	cfg := NewClassificationConfig(nil)
	now := day(2024, time.February, 1)

	snap := buildNetWorthSnapshot(testOwner, netWorthFixture(), cfg, nil, now)

	if snap.ID == "" {
		t.Error("snapshot ID is empty")
	}
	if !snap.TakenAt.Equal(now) {
		t.Errorf("TakenAt = %v, want %v", snap.TakenAt, now)
	}
	// 100000 in, 30000 spent, 28000 transferred out.
	if !snap.CashBalance.Equal(dec("42000")) {
		t.Errorf("CashBalance = %s, want 42000", snap.CashBalance)
	}
	if !snap.Investments.Stocks.Equal(dec("20000")) {
		t.Errorf("Stocks = %s, want 20000", snap.Investments.Stocks)
	}
	if !snap.Investments.PPFEPF.Equal(dec("5000")) {
		t.Errorf("PPFEPF = %s, want 5000", snap.Investments.PPFEPF)
	}
	// Spend on the card leaves a negative balance, reported as outstanding.
	if !snap.CreditCardOutstanding.Equal(dec("10000")) {
		t.Errorf("CreditCardOutstanding = %s, want 10000", snap.CreditCardOutstanding)
	}
	// Money lent out sits as a positive loan-account balance.
	if !snap.LoanReceivable.Equal(dec("3000")) {
		t.Errorf("LoanReceivable = %s, want 3000", snap.LoanReceivable)
	}
	if !snap.TotalAssets.Equal(dec("70000")) {
		t.Errorf("TotalAssets = %s, want 70000", snap.TotalAssets)
	}
	if !snap.TotalLiabilities.Equal(dec("10000")) {
		t.Errorf("TotalLiabilities = %s, want 10000", snap.TotalLiabilities)
	}
	if !snap.NetWorth.Equal(dec("60000")) {
		t.Errorf("NetWorth = %s, want 60000", snap.NetWorth)
	}
	// No prior snapshot: deltas stay zero.
	if !snap.ChangeFromPrior.IsZero() || snap.ChangeFromPriorPercent != 0 {
		t.Errorf("deltas without prior = (%s, %v), want zero",
			snap.ChangeFromPrior, snap.ChangeFromPriorPercent)
	}
}

func TestBuildNetWorthSnapshot_ChangeFromPrior(t *testing.T) {
	cfg := NewClassificationConfig(nil)
	now := day(2024, time.February, 1)

	prior := &core.NetWorthSnapshot{NetWorth: dec("50000")}
	snap := buildNetWorthSnapshot(testOwner, netWorthFixture(), cfg, prior, now)

	if !snap.ChangeFromPrior.Equal(dec("10000")) {
		t.Errorf("ChangeFromPrior = %s, want 10000", snap.ChangeFromPrior)
	}
	if !approxEq(snap.ChangeFromPriorPercent, 20) {
		t.Errorf("ChangeFromPriorPercent = %v, want 20", snap.ChangeFromPriorPercent)
	}

	// A prior with zero net worth yields a zero percentage, not a division
	// error.
	zeroPrior := &core.NetWorthSnapshot{}
	snap = buildNetWorthSnapshot(testOwner, netWorthFixture(), cfg, zeroPrior, now)
	if snap.ChangeFromPriorPercent != 0 {
		t.Errorf("percent vs zero prior = %v, want 0", snap.ChangeFromPriorPercent)
	}
	if !snap.ChangeFromPrior.Equal(dec("60000")) {
		t.Errorf("ChangeFromPrior vs zero prior = %s, want 60000", snap.ChangeFromPrior)
	}
}
