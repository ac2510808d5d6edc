// Package identity derives content-addressed transaction IDs.
//
// The ID doubles as the primary key of the transaction store: re-importing
// the same logical row must always produce the same ID, and any semantic
// field change must produce a different one. The normalization rules here
// are load-bearing: changing them orphans every previously stored record.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgersync/internal/core"
)

const fieldSeparator = "|"

// Fields are the semantic fields that define a transaction's identity.
// Scope is an optional extra discriminator; reconciliation uses it to fold
// the transfer direction (from->to) into the hash so the two legs of
// differently routed transfers cannot collide.
type Fields struct {
	Date        time.Time
	Amount      decimal.Decimal
	Account     string
	Note        string
	Category    string
	Subcategory string
	Type        core.TransactionType
	Scope       string
}

// Generate returns the 64-hex-character sha256 identity of the fields.
//
// Normalization: dates to ISO-8601 day precision, amounts to a fixed
// two-decimal string, strings trimmed and lower-cased, absent values empty.
// Any case or surrounding-whitespace variant of the same logical input
// therefore hashes identically.
func Generate(f Fields) string {
	parts := []string{
		normalizeDate(f.Date),
		normalizeAmount(f.Amount),
		normalizeString(f.Account),
		normalizeString(f.Note),
		normalizeString(f.Category),
		normalizeString(f.Subcategory),
		normalizeString(string(f.Type)),
		normalizeString(f.Scope),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}

// FromRow builds identity fields for a normalized input row.
func FromRow(r core.RowInput) Fields {
	f := Fields{
		Date:        r.Date,
		Amount:      r.Amount,
		Account:     r.Account,
		Note:        r.Note,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Type:        r.Type,
	}
	if r.IsTransfer {
		f.Account = r.FromAccount
		f.Scope = TransferScope(r.FromAccount, r.ToAccount)
	}
	return f
}

// TransferScope encodes a transfer's direction for the identity hash.
func TransferScope(from, to string) string {
	return normalizeString(from) + "->" + normalizeString(to)
}

func normalizeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func normalizeAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}

func normalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
