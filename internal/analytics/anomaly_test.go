package analytics

import (
	"testing"
	"time"

	"ledgersync/internal/core"
)

func monthlyExpenses(amounts ...string) []core.Transaction {
	txs := make([]core.Transaction, 0, len(amounts))
	start := day(2023, time.June, 15)
	for i, amount := range amounts {
		txs = append(txs, expense(start.AddDate(0, i, 0), amount, "household", "HDFC Savings", ""))
	}
	return txs
}

func TestDetectHighExpenseMonths(t *testing.T) {
	cfg := NewClassificationConfig(nil)
	now := day(2024, time.June, 1)

	t.Run("spike over threshold is flagged high", func(t *testing.T) {
		// Nine months of 100 plus one 600 month: mean 150, stdev 150,
		// cutoff 450. The spike also exceeds 2.5x the mean.
		txs := monthlyExpenses("100", "100", "100", "100", "100", "100", "100", "100", "100", "600")
		anomalies := detectHighExpenseMonths(testOwner, txs, cfg, now)
		if len(anomalies) != 1 {
			t.Fatalf("got %d anomalies, want 1", len(anomalies))
		}
		a := anomalies[0]
		if a.Kind != core.AnomalyHighExpenseMonth {
			t.Errorf("Kind = %q", a.Kind)
		}
		if a.Severity != core.SeverityHigh {
			t.Errorf("Severity = %q, want high", a.Severity)
		}
		if a.Period != "2024-03" {
			t.Errorf("Period = %q, want 2024-03", a.Period)
		}
		if !a.Amount.Equal(dec("600")) {
			t.Errorf("Amount = %s, want 600", a.Amount)
		}
	})

	t.Run("moderate spike is flagged medium", func(t *testing.T) {
		// Twelve months of 100 plus 240: flagged, but under 2.5x the mean.
		txs := monthlyExpenses("100", "100", "100", "100", "100", "100",
			"100", "100", "100", "100", "100", "100", "240")
		anomalies := detectHighExpenseMonths(testOwner, txs, cfg, now)
		if len(anomalies) != 1 {
			t.Fatalf("got %d anomalies, want 1", len(anomalies))
		}
		if anomalies[0].Severity != core.SeverityMedium {
			t.Errorf("Severity = %q, want medium", anomalies[0].Severity)
		}
	})

	t.Run("uniform months are never flagged", func(t *testing.T) {
		txs := monthlyExpenses("100", "105", "95", "100", "102", "98")
		if anomalies := detectHighExpenseMonths(testOwner, txs, cfg, now); len(anomalies) != 0 {
			t.Errorf("got %d anomalies from uniform months, want 0", len(anomalies))
		}
	})

	t.Run("needs more than three months of history", func(t *testing.T) {
		txs := monthlyExpenses("100", "100", "900")
		if anomalies := detectHighExpenseMonths(testOwner, txs, cfg, now); len(anomalies) != 0 {
			t.Errorf("got %d anomalies with 3 months history, want 0", len(anomalies))
		}
	})
}

func TestDetectLargeTransactions(t *testing.T) {
	now := day(2024, time.June, 1)
	base := day(2024, time.January, 1)

	big := expense(base.AddDate(0, 3, 0), "1000", "shopping", "HDFC Credit Card", "")
	big.ID = "tx-big"
	txs := []core.Transaction{
		expense(base, "100", "shopping", "HDFC Credit Card", ""),
		expense(base.AddDate(0, 1, 0), "100", "shopping", "HDFC Credit Card", ""),
		expense(base.AddDate(0, 2, 0), "100", "shopping", "HDFC Credit Card", ""),
		big,
	}

	anomalies := detectLargeTransactions(testOwner, txs, now)
	if len(anomalies) != 1 {
		t.Fatalf("got %d anomalies, want 1", len(anomalies))
	}
	a := anomalies[0]
	if a.Kind != core.AnomalyLargeTransaction {
		t.Errorf("Kind = %q", a.Kind)
	}
	if a.TransactionID != "tx-big" {
		t.Errorf("TransactionID = %q, want tx-big", a.TransactionID)
	}
	// Category average is 325 (1300/4); 1000 > 3x325.
	if !a.Expected.Equal(dec("325")) {
		t.Errorf("Expected = %s, want 325", a.Expected)
	}
}

func TestDetectAnomalies_Order(t *testing.T) {
	cfg := NewClassificationConfig(nil)
	now := day(2024, time.June, 1)

	txs := monthlyExpenses("100", "100", "100", "100", "100", "100", "100", "100", "100", "600")
	outlier := expense(day(2024, time.May, 1), "5000", "shopping", "HDFC Credit Card", "")
	for i := 0; i < 4; i++ {
		txs = append(txs, expense(day(2024, time.January, 2+i), "100", "shopping", "HDFC Credit Card", ""))
	}
	txs = append(txs, outlier)

	anomalies := detectAnomalies(testOwner, txs, cfg, now)
	if len(anomalies) < 2 {
		t.Fatalf("got %d anomalies, want at least 2", len(anomalies))
	}
	if anomalies[0].Kind != core.AnomalyHighExpenseMonth {
		t.Errorf("first anomaly kind = %q, want month detector first", anomalies[0].Kind)
	}
	last := anomalies[len(anomalies)-1]
	if last.Kind != core.AnomalyLargeTransaction {
		t.Errorf("last anomaly kind = %q, want large transaction", last.Kind)
	}
}
