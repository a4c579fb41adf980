// Package ledger defines how ledger snapshots are persisted and the row
// format shared by the tabular stores.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"syntego/internal/core"
)

// Store loads and saves whole ledger snapshots. Save replaces everything
// previously stored.
type Store interface {
	Load(ctx context.Context) (core.Ledger, error)
	Save(ctx context.Context, l core.Ledger) error
}

// Header is the column layout of the CSV file and the spreadsheet.
var Header = []string{"Date", "Type", "Category", "Amount", "Description"}

// ErrMalformedRow is wrapped by DecodeRow failures.
var ErrMalformedRow = errors.New("malformed ledger row")

// EncodeRow renders t in Header order.
func EncodeRow(t core.Transaction) []string {
	return []string{t.Date, t.Type.String(), t.Category.String(), t.Amount.String(), t.Description}
}

// DecodeRow parses a row in Header order. Stored rows are trusted apart from
// the type and a non-negative amount; descriptions may be empty.
func DecodeRow(rec []string) (core.Transaction, error) {
	if len(rec) < len(Header) {
		return core.Transaction{}, fmt.Errorf("%w: want %d columns, got %d", ErrMalformedRow, len(Header), len(rec))
	}
	typ, err := core.ParseTransactionType(rec[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	cat, err := core.ParseCategory(rec[2])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rec[3]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount %q", ErrMalformedRow, rec[3])
	}
	if amount.IsNegative() {
		return core.Transaction{}, fmt.Errorf("%w: negative amount %s", ErrMalformedRow, amount)
	}
	return core.Transaction{
		Date:        strings.TrimSpace(rec[0]),
		Type:        typ,
		Category:    cat,
		Amount:      amount,
		Description: rec[4],
	}, nil
}

// IsHeader reports whether rec is the header row.
func IsHeader(rec []string) bool {
	if len(rec) < len(Header) {
		return false
	}
	for i, h := range Header {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), h) {
			return false
		}
	}
	return true
}
