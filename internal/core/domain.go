package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the second-precision layout used for transaction dates.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

const (
	Food      Category = "Food"
	Transport Category = "Transport"
	Bills     Category = "Bills"
	Salary    Category = "Salary"
	Other     Category = "Other"
)

type (
	TransactionType string

	// Category names a spending or earning bucket. The known set is
	// KnownCategories; any other non-empty name is accepted as-is.
	Category string

	Transaction struct {
		Date        string // formatted with TimestampLayout
		Type        TransactionType
		Category    Category
		Amount      decimal.Decimal
		Description string
	}
)

// KnownCategories lists the categories offered by the entry form, in display order.
var KnownCategories = []Category{Food, Transport, Bills, Salary, Other}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
)

// ParseTransactionType accepts "Income" or "Expense" in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseCategory maps a name onto a known category ignoring case, and keeps
// unknown names trimmed but otherwise untouched.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyCategory
	}
	for _, c := range KnownCategories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return Category(s), nil
}

// Known reports whether c is one of KnownCategories.
func (c Category) Known() bool {
	for _, k := range KnownCategories {
		if c == k {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// NewTransaction builds a transaction stamped with the given time.
func NewTransaction(at time.Time, typ TransactionType, cat Category, amount decimal.Decimal, desc string) Transaction {
	return Transaction{
		Date:        FormatTimestamp(at),
		Type:        typ,
		Category:    cat,
		Amount:      amount,
		Description: strings.TrimSpace(desc),
	}
}

// Validate enforces the rules applied when a transaction enters the ledger.
// Stored ledgers are not re-validated on load.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Date) == "" {
		return ErrInvalidDate
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, string(t.Type))
	}
	if strings.TrimSpace(string(t.Category)) == "" {
		return ErrEmptyCategory
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

// IsIncome reports whether t adds to income.
func (t Transaction) IsIncome() bool {
	return t.Type == Income
}

// IsExpense reports whether t adds to spending.
func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}
