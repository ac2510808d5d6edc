// Package source turns exported spreadsheet data into normalized rows for
// reconciliation. Each loader produces a File whose hash identifies the exact
// content, which the orchestrator uses for the idempotency check.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"ledgersync/internal/core"
)

// File is one loaded export: its name, a content hash over the raw records,
// and the normalized rows.
type File struct {
	Name string
	Hash string
	Rows []core.RowInput
}

// Source loads one export. Implementations: CSVFile and gsheets.Client.
type Source interface {
	Load(ctx context.Context) (*File, error)
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"02-01-2006",
}

// ParseRecords maps a header row plus data records onto normalized rows. The
// first record is the header; column order is free. Cell-level parse failures
// leave the zero value in place, so downstream validation rejects the row
// instead of the whole file.
func ParseRecords(name string, records [][]string) *File {
	f := &File{Name: name, Hash: HashRecords(records)}
	if len(records) < 2 {
		return f
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cell := func(record []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for _, record := range records[1:] {
		row := core.RowInput{
			Currency:    cell(record, "currency"),
			Account:     cell(record, "account"),
			Category:    cell(record, "category"),
			Subcategory: cell(record, "subcategory"),
			Note:        cell(record, "note"),
			FromAccount: cell(record, "from_account"),
			ToAccount:   cell(record, "to_account"),
		}
		row.Date = parseDate(cell(record, "date"))
		if amount, err := core.ParseAmount(cell(record, "amount")); err == nil {
			row.Amount = amount
		}
		row.Type = parseType(cell(record, "type"))
		row.IsTransfer = row.Type == core.TypeTransfer ||
			(row.FromAccount != "" && row.ToAccount != "")
		if row.IsTransfer {
			row.Type = core.TypeTransfer
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// HashRecords derives the content identity of an export: sha256 over the
// records joined by tabs within a row and newlines between rows.
func HashRecords(records [][]string) string {
	h := sha256.New()
	for _, record := range records {
		h.Write([]byte(strings.Join(record, "\t")))
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseType(s string) core.TransactionType {
	switch strings.ToLower(s) {
	case "income":
		return core.TypeIncome
	case "expense":
		return core.TypeExpense
	case "transfer":
		return core.TypeTransfer
	}
	return ""
}
