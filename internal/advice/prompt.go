// Package advice builds prompts from a ledger snapshot and obtains financial
// advice for them from a generative text service.
package advice

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"syntego/internal/core"
)

// NoDataResponse is returned instead of a prompt when the ledger is empty.
const NoDataResponse = "No transactions available to analyze. Please add some transactions first."

const instruction = "Provide accurate financial insights or advice based on the data:"

// Builder compiles a ledger and a user question into a prompt.
//
// MaxChars bounds the prompt length for token-limited backends. When the
// prompt is too long the oldest transaction lines are dropped first; the
// summary and the query are never shortened, so a prompt may still exceed
// MaxChars once every transaction line is gone. Zero means unbounded.
type Builder struct {
	MaxChars int
}

// BuildPrompt is Builder{}.Build.
func BuildPrompt(l core.Ledger, query string) (string, bool) {
	return Builder{}.Build(l, query)
}

// Build returns the prompt and true, or NoDataResponse and false when the
// ledger has no transactions.
func (b Builder) Build(l core.Ledger, query string) (string, bool) {
	if l.IsEmpty() {
		return NoDataResponse, false
	}

	lines := make([]string, len(l))
	for i, t := range l {
		lines[i] = FormatTransaction(t)
	}
	tail := summarySection(l.Aggregate(), query)

	prompt := assemble(strings.Join(lines, "\n"), tail)
	if b.MaxChars <= 0 || utf8.RuneCountInString(prompt) <= b.MaxChars {
		return prompt, true
	}
	for drop := 1; drop <= len(lines); drop++ {
		body := fmt.Sprintf("(%d earlier transactions omitted)", drop)
		if drop < len(lines) {
			body += "\n" + strings.Join(lines[drop:], "\n")
		}
		prompt = assemble(body, tail)
		if utf8.RuneCountInString(prompt) <= b.MaxChars {
			break
		}
	}
	return prompt, true
}

// FormatTransaction renders one ledger entry as a prompt line.
func FormatTransaction(t core.Transaction) string {
	return fmt.Sprintf("%s: %s on %s - %s (Date: %s)", t.Type, t.Amount.String(), t.Category, t.Description, t.Date)
}

func assemble(body, tail string) string {
	return "Financial Data:\n" + body + "\n\n" + tail
}

func summarySection(agg core.Aggregates, query string) string {
	var b strings.Builder
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "Total Income: $%s\n", agg.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "Total Expenses: $%s\n", agg.TotalExpense.StringFixed(2))
	fmt.Fprintf(&b, "Expenses by Category: %s\n\n", formatCategories(agg.SpendByCategory))
	fmt.Fprintf(&b, "User Query: %s\n", query)
	b.WriteString(instruction)
	return b.String()
}

func formatCategories(cats []core.CategoryAmount) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = fmt.Sprintf("'%s': %s", c.Category, c.Amount.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
