package advice

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syntego/internal/core"
)

func tx(date string, typ core.TransactionType, cat core.Category, amount, desc string) core.Transaction {
	return core.Transaction{Date: date, Type: typ, Category: cat, Amount: decimal.RequireFromString(amount), Description: desc}
}

func TestBuildPrompt_SingleIncome(t *testing.T) {
	l := core.Ledger{tx("2024-01-01", core.Income, core.Salary, "100", "paycheck")}

	prompt, ok := BuildPrompt(l, "How much did I earn?")
	require.True(t, ok)

	want := "Financial Data:\n" +
		"Income: 100 on Salary - paycheck (Date: 2024-01-01)\n\n" +
		"Summary:\n" +
		"Total Income: $100.00\n" +
		"Total Expenses: $0.00\n" +
		"Expenses by Category: {}\n\n" +
		"User Query: How much did I earn?\n" +
		"Provide accurate financial insights or advice based on the data:"
	assert.Equal(t, want, prompt)
}

func TestBuildPrompt_EmptyLedger(t *testing.T) {
	prompt, ok := BuildPrompt(nil, "anything")
	assert.False(t, ok)
	assert.Equal(t, NoDataResponse, prompt)
}

func TestBuildPrompt_CategoriesAndOrder(t *testing.T) {
	l := core.Ledger{
		tx("2024-01-01 09:00:00", core.Expense, core.Food, "850", "groceries"),
		tx("2024-01-02 09:00:00", core.Income, core.Salary, "1000", "pay"),
		tx("2024-01-03 09:00:00", core.Expense, core.Bills, "120.5", "power"),
		tx("2024-01-04 09:00:00", core.Expense, core.Food, "10", "snack"),
	}
	prompt, ok := BuildPrompt(l, "Where does my money go?")
	require.True(t, ok)

	assert.Contains(t, prompt, "Expenses by Category: {'Food': 860, 'Bills': 120.5}")
	assert.Contains(t, prompt, "Total Expenses: $980.50")

	first := strings.Index(prompt, "groceries")
	last := strings.Index(prompt, "snack")
	assert.True(t, first >= 0 && first < last, "lines keep ledger order")
	assert.True(t, strings.HasSuffix(prompt, "User Query: Where does my money go?\n"+instruction))
}

func TestBuildPrompt_QueryVerbatim(t *testing.T) {
	l := core.Ledger{tx("2024-01-01", core.Expense, core.Other, "1", "x")}
	query := "  What's {this}? %s\n"
	prompt, _ := BuildPrompt(l, query)
	assert.Contains(t, prompt, "User Query: "+query+"\n")
}

func TestBuilder_TruncatesOldestFirst(t *testing.T) {
	var l core.Ledger
	for i := 0; i < 50; i++ {
		l = l.Add(tx(fmt.Sprintf("2024-01-%02d", i%28+1), core.Expense, core.Food, "10", fmt.Sprintf("meal-%02d", i)))
	}
	full, _ := BuildPrompt(l, "q")

	limit := utf8.RuneCountInString(full) / 2
	prompt, ok := Builder{MaxChars: limit}.Build(l, "q")
	require.True(t, ok)

	assert.LessOrEqual(t, utf8.RuneCountInString(prompt), limit)
	assert.Contains(t, prompt, "earlier transactions omitted)")
	assert.NotContains(t, prompt, "meal-00")
	assert.Contains(t, prompt, "meal-49")
	assert.Contains(t, prompt, "Total Expenses: $500.00", "summary always covers the whole ledger")
	assert.True(t, strings.HasSuffix(prompt, "User Query: q\n"+instruction))
}

func TestBuilder_SummaryNeverTruncated(t *testing.T) {
	l := core.Ledger{tx("2024-01-01", core.Expense, core.Food, "10", "a"), tx("2024-01-02", core.Expense, core.Food, "10", "b")}
	prompt, ok := Builder{MaxChars: 10}.Build(l, "a long question that will never fit")
	require.True(t, ok)

	assert.Contains(t, prompt, "(2 earlier transactions omitted)")
	assert.Contains(t, prompt, "User Query: a long question that will never fit")
}

func TestBuilder_UnboundedWhenFits(t *testing.T) {
	l := core.Ledger{tx("2024-01-01", core.Income, core.Salary, "100", "paycheck")}
	full, _ := BuildPrompt(l, "q")
	prompt, _ := Builder{MaxChars: utf8.RuneCountInString(full)}.Build(l, "q")
	assert.Equal(t, full, prompt)
}

func TestFormatTransaction(t *testing.T) {
	line := FormatTransaction(tx("2024-02-03 10:11:12", core.Expense, "Gym", "40.25", "membership"))
	assert.Equal(t, "Expense: 40.25 on Gym - membership (Date: 2024-02-03 10:11:12)", line)
}
