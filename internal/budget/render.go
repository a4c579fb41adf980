package budget

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"syntego/internal/core"
)

// Renderer formats an alert for display.
type Renderer interface {
	Render(a Alert) string
}

// Message is the presentation-neutral content of an alert.
type Message struct {
	Severity Severity
	Icon     string
	Headline string
	Sections []Section
}

// Section is a titled list of advice lines.
type Section struct {
	Title string
	Items []string
}

// Compose builds the display content for an alert.
func Compose(a Alert) Message {
	m := Message{Severity: a.Severity}
	p := a.Payload
	switch a.Kind {
	case KindNoTransactions:
		m.Headline = "No transactions yet. Add some to get tips!"
	case KindOverspend:
		m.Icon = "🚨"
		m.Headline = fmt.Sprintf("Critical Alert: You've spent %d%% or more of your income! Total Income: %s, Total Expenses: %s. Prioritize cutting non-essential costs immediately.",
			a.ThresholdPct, core.FormatDollars(p.TotalIncome), core.FormatDollars(p.TotalExpense))
	case KindHighSpend:
		m.Icon = "⚠️"
		m.Headline = fmt.Sprintf("Warning: You're spending over %d%% of your income! Total Income: %s, Total Expenses: %s. Reduce discretionary spending to stay within budget.",
			a.ThresholdPct, core.FormatDollars(p.TotalIncome), core.FormatDollars(p.TotalExpense))
	case KindCategorySpend:
		cat := a.Scope.Category
		al := p.Allocation
		m.Icon = "⚠️"
		m.Headline = fmt.Sprintf("You're spending %s on %s, which is more than %d%% of your income (%s). You have %s%% of your income left (%s). Here's how to manage it:",
			core.FormatDollars(p.CategoryAmount), cat, a.ThresholdPct, core.FormatDollars(p.TotalIncome),
			p.LeftoverPct.StringFixed(1), core.FormatDollars(p.LeftoverAmount))
		m.Sections = []Section{
			{
				Title: "Save and Spend Efficiently",
				Items: []string{
					fmt.Sprintf("Essentials (e.g., Bills, Food): Allocate ~%d%% (%s).", al.EssentialsPct, core.FormatDollars(al.Essentials)),
					fmt.Sprintf("Savings or Debt Repayment: Allocate ~%d%% (%s).", al.SavingsPct, core.FormatDollars(al.Savings)),
					fmt.Sprintf("Discretionary (e.g., Entertainment): Allocate ~%d%% (%s).", al.DiscretionaryPct, core.FormatDollars(al.Discretionary)),
				},
			},
			{
				Title: "Efficient Spending Tips",
				Items: []string{
					"Prioritize essential expenses over discretionary ones.",
					fmt.Sprintf("Reduce spending in %s by finding cheaper alternatives or cutting unnecessary costs.", cat),
					fmt.Sprintf("Set a monthly budget for %s to stay below %d%% of your income.", cat, a.ThresholdPct),
				},
			},
		}
	case KindEmergencyTip:
		m.Icon = "💡"
		m.Headline = "Tip: Save 20% of your income for emergencies and investments."
	default:
		m.Headline = string(a.Kind)
	}
	return m
}

// TextRenderer renders alerts as plain text for terminals and logs.
type TextRenderer struct{}

func (TextRenderer) Render(a Alert) string {
	m := Compose(a)
	var b strings.Builder
	if m.Icon != "" {
		b.WriteString(m.Icon)
		b.WriteString(" ")
	}
	b.WriteString(m.Headline)
	for _, s := range m.Sections {
		fmt.Fprintf(&b, "\n- %s:", s.Title)
		for _, item := range s.Items {
			fmt.Fprintf(&b, "\n  - %s", item)
		}
	}
	return b.String()
}

var alertTemplate = template.Must(template.New("alert").Parse(
	`<div class="alert alert--{{.Severity}}">` +
		`{{if .Icon}}<span class="alert__icon">{{.Icon}}</span> {{end}}` +
		`<p class="alert__headline">{{.Headline}}</p>` +
		`{{range .Sections}}<p class="alert__section"><b>{{.Title}}:</b></p><ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{end}}` +
		`</div>`))

// HTMLRenderer renders alerts as escaped HTML fragments for the dashboard.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(a Alert) string {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, Compose(a)); err != nil {
		return template.HTMLEscapeString(Compose(a).Headline)
	}
	return buf.String()
}

// RenderAll renders every alert in order.
func RenderAll(r Renderer, alerts []Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = r.Render(a)
	}
	return out
}
