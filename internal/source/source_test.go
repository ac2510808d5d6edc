package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ledgersync/internal/core"
)

func TestParseRecords(t *testing.T) {
	records := [][]string{
		{"Date", "Amount", "Type", "Account", "Category", "Subcategory", "Note", "From_Account", "To_Account"},
		{"2024-01-05", "1,234.56", "Expense", "HDFC Savings", "groceries", "vegetables", "weekly shop", "", ""},
		{"15/02/2024", "50000", "income", "HDFC Savings", "salary", "", "", "", ""},
		{"2024-03-01", "5000", "", "", "", "", "", "HDFC Savings", "Zerodha"},
	}

	f := ParseRecords("jan.csv", records)
	if f.Name != "jan.csv" {
		t.Errorf("Name = %q", f.Name)
	}
	if len(f.Hash) != 64 {
		t.Errorf("Hash length = %d, want 64", len(f.Hash))
	}
	if len(f.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(f.Rows))
	}

	r := f.Rows[0]
	if !r.Date.Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", r.Date)
	}
	if r.Amount.String() != "1234.56" {
		t.Errorf("Amount = %s, want 1234.56", r.Amount)
	}
	if r.Type != core.TypeExpense {
		t.Errorf("Type = %q, want expense", r.Type)
	}
	if r.Account != "HDFC Savings" || r.Subcategory != "vegetables" || r.Note != "weekly shop" {
		t.Errorf("row fields = %+v", r)
	}
	if r.IsTransfer {
		t.Error("plain expense flagged as transfer")
	}

	r = f.Rows[1]
	if !r.Date.Equal(time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dd/mm/yyyy Date = %v", r.Date)
	}
	if r.Type != core.TypeIncome {
		t.Errorf("Type = %q, want income", r.Type)
	}

	// A populated route marks the row as a transfer even without a type cell.
	r = f.Rows[2]
	if !r.IsTransfer || r.Type != core.TypeTransfer {
		t.Errorf("route row: IsTransfer=%v Type=%q", r.IsTransfer, r.Type)
	}
	if r.FromAccount != "HDFC Savings" || r.ToAccount != "Zerodha" {
		t.Errorf("route = %s -> %s", r.FromAccount, r.ToAccount)
	}
}

func TestParseRecords_MalformedCells(t *testing.T) {
	records := [][]string{
		{"date", "amount", "type", "account"},
		{"not-a-date", "abc", "expense", "HDFC Savings"},
		{"2024-01-05", "100"},
	}

	f := ParseRecords("bad.csv", records)
	if len(f.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(f.Rows))
	}

	// Unparseable cells stay zero so row validation rejects them later.
	r := f.Rows[0]
	if !r.Date.IsZero() {
		t.Errorf("Date = %v, want zero", r.Date)
	}
	if !r.Amount.IsZero() {
		t.Errorf("Amount = %s, want zero", r.Amount)
	}

	// Short records read as empty cells, not an error.
	r = f.Rows[1]
	if r.Type != "" || r.Account != "" {
		t.Errorf("short record fields = %+v", r)
	}
	if r.Amount.String() != "100" {
		t.Errorf("Amount = %s, want 100", r.Amount)
	}
}

func TestParseRecords_HeaderOnly(t *testing.T) {
	f := ParseRecords("empty.csv", [][]string{{"date", "amount"}})
	if len(f.Rows) != 0 {
		t.Errorf("got %d rows, want 0", len(f.Rows))
	}
	if f.Hash == "" {
		t.Error("header-only file has no hash")
	}
}

func TestHashRecords(t *testing.T) {
	records := [][]string{
		{"date", "amount"},
		{"2024-01-05", "100"},
	}
	first := HashRecords(records)
	if first != HashRecords(records) {
		t.Error("hash is not deterministic")
	}

	changed := [][]string{
		{"date", "amount"},
		{"2024-01-05", "101"},
	}
	if first == HashRecords(changed) {
		t.Error("hash did not change with content")
	}
}

func TestCSVFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	content := "date,amount,type,account,category\n" +
		"2024-01-05,100,expense,HDFC Savings,groceries\n" +
		"2024-01-06,\"1,234.56\",expense,HDFC Savings,rent\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := (&CSVFile{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Name != "export.csv" {
		t.Errorf("Name = %q, want export.csv", f.Name)
	}
	if len(f.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(f.Rows))
	}
	if f.Rows[1].Amount.String() != "1234.56" {
		t.Errorf("quoted amount = %s, want 1234.56", f.Rows[1].Amount)
	}
}

func TestCSVFileLoad_Missing(t *testing.T) {
	_, err := (&CSVFile{Path: filepath.Join(t.TempDir(), "nope.csv")}).Load(context.Background())
	if err == nil {
		t.Fatal("Load() on missing file returned nil error")
	}
}
