package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrIndexOutOfRange = errors.New("transaction index out of range")
)

// Ledger is an ordered snapshot of transactions. Insertion order is kept for
// display; aggregation ignores it. Methods never modify the receiver.
type Ledger []Transaction

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category
	Amount   decimal.Decimal
}

// Aggregates are the totals derived from a ledger. They are recomputed on
// every call since the ledger changes between user actions.
type Aggregates struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	// SpendByCategory sums expenses per category in discovery order: the
	// order in which each category first appears as an expense.
	SpendByCategory []CategoryAmount
}

// CategoryTotals pairs the expense and income totals of one category.
type CategoryTotals struct {
	Category Category
	Expense  decimal.Decimal
	Income   decimal.Decimal
}

func (l Ledger) IsEmpty() bool {
	return len(l) == 0
}

func (l Ledger) Len() int {
	return len(l)
}

// Clone returns a copy that shares no backing array with l.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// Add returns a new ledger with t appended.
func (l Ledger) Add(t Transaction) Ledger {
	out := make(Ledger, len(l), len(l)+1)
	copy(out, l)
	return append(out, t)
}

// Remove returns a new ledger without the transactions at the given indices.
// Duplicate indices are ignored; any index outside the ledger fails the whole
// call and leaves nothing removed.
func (l Ledger) Remove(indices ...int) (Ledger, error) {
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(l) {
			return nil, fmt.Errorf("%w: %d (ledger has %d entries)", ErrIndexOutOfRange, i, len(l))
		}
		drop[i] = struct{}{}
	}
	out := make(Ledger, 0, len(l)-len(drop))
	for i, t := range l {
		if _, ok := drop[i]; ok {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Aggregate computes total income, total expense and spend by category.
func (l Ledger) Aggregate() Aggregates {
	agg := Aggregates{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	pos := map[Category]int{}
	for _, t := range l {
		switch t.Type {
		case Income:
			agg.TotalIncome = agg.TotalIncome.Add(t.Amount)
		case Expense:
			agg.TotalExpense = agg.TotalExpense.Add(t.Amount)
			i, ok := pos[t.Category]
			if !ok {
				pos[t.Category] = len(agg.SpendByCategory)
				agg.SpendByCategory = append(agg.SpendByCategory, CategoryAmount{Category: t.Category, Amount: t.Amount})
				continue
			}
			agg.SpendByCategory[i].Amount = agg.SpendByCategory[i].Amount.Add(t.Amount)
		}
	}
	return agg
}

// Net is income minus expense; negative when spending exceeds income.
func (a Aggregates) Net() decimal.Decimal {
	return a.TotalIncome.Sub(a.TotalExpense)
}

// HasIncome reports whether percentage based rules have a base to divide by.
func (a Aggregates) HasIncome() bool {
	return a.TotalIncome.IsPositive()
}

// Breakdown returns expense and income totals for every known category,
// followed by any other category present in the ledger, sorted by name.
// Known categories are always present, with zero totals when unused.
func (l Ledger) Breakdown() []CategoryTotals {
	idx := map[Category]int{}
	out := make([]CategoryTotals, 0, len(KnownCategories))
	for _, c := range KnownCategories {
		idx[c] = len(out)
		out = append(out, CategoryTotals{Category: c, Expense: decimal.Zero, Income: decimal.Zero})
	}
	var extra []Category
	for _, t := range l {
		if _, ok := idx[t.Category]; !ok {
			idx[t.Category] = -1
			extra = append(extra, t.Category)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, c := range extra {
		idx[c] = len(out)
		out = append(out, CategoryTotals{Category: c, Expense: decimal.Zero, Income: decimal.Zero})
	}
	for _, t := range l {
		row := &out[idx[t.Category]]
		switch t.Type {
		case Income:
			row.Income = row.Income.Add(t.Amount)
		case Expense:
			row.Expense = row.Expense.Add(t.Amount)
		}
	}
	return out
}
