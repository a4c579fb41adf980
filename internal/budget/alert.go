// Package budget turns a ledger snapshot into ranked budget alerts and tips.
//
// Evaluate is pure: it reads the ledger, never keeps it, and performs no I/O.
// Sending notifications for the produced alerts is a separate step owned by
// the caller (see Dispatch).
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"syntego/internal/core"
)

const (
	Info     Severity = "info"
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

const (
	ScopeGlobal   ScopeKind = "global"
	ScopeCategory ScopeKind = "category"
	ScopeNone     ScopeKind = "none"
)

// Kinds of alert, used by renderers to pick wording.
const (
	KindNoTransactions Kind = "no_transactions"
	KindOverspend      Kind = "overspend"
	KindHighSpend      Kind = "high_spend"
	KindCategorySpend  Kind = "category_spend"
	KindEmergencyTip   Kind = "emergency_tip"
)

type (
	Severity  string
	ScopeKind string
	Kind      string

	Scope struct {
		Kind     ScopeKind
		Category core.Category // set when Kind is ScopeCategory
	}

	// Allocation is the suggested split of the income left after a
	// category's spending. The three percentages always add up to 100.
	Allocation struct {
		EssentialsPct    int
		SavingsPct       int
		DiscretionaryPct int

		Essentials    decimal.Decimal
		Savings       decimal.Decimal
		Discretionary decimal.Decimal
	}

	// Payload carries the figures a renderer needs. Fields that do not apply
	// to an alert kind are zero.
	Payload struct {
		TotalIncome    decimal.Decimal
		TotalExpense   decimal.Decimal
		SpendRatio     decimal.Decimal // expense / income * 100
		CategoryAmount decimal.Decimal
		LeftoverPct    decimal.Decimal // may be zero or negative
		LeftoverAmount decimal.Decimal // may be zero or negative
		Allocation     Allocation
	}

	// Alert is one derived warning or tip. Alerts are produced fresh by every
	// evaluation and are never stored.
	Alert struct {
		Kind         Kind
		Severity     Severity
		Scope        Scope
		ThresholdPct int
		Payload      Payload
	}
)

// GlobalScope is the scope of alerts about total spending.
func GlobalScope() Scope { return Scope{Kind: ScopeGlobal} }

// CategoryScope is the scope of an alert about a single category.
func CategoryScope(c core.Category) Scope { return Scope{Kind: ScopeCategory, Category: c} }

func (s Scope) String() string {
	if s.Kind == ScopeCategory {
		return "category:" + string(s.Category)
	}
	return string(s.Kind)
}

// Sum returns the total allocated amount, equal to the leftover it was split from.
func (a Allocation) Sum() decimal.Decimal {
	return a.Essentials.Add(a.Savings).Add(a.Discretionary)
}

// Notification returns the short message pushed to the notification channel
// for this alert. Informational alerts have none.
func (a Alert) Notification() (string, bool) {
	switch a.Kind {
	case KindOverspend:
		return "Critical Alert: You've spent 100% or more of your income!", true
	case KindHighSpend:
		return "Budget Alert: Spending exceeds 80% of income!", true
	case KindCategorySpend:
		return fmt.Sprintf("Alert: Spending on %s exceeds %d%% of income!", a.Scope.Category, a.ThresholdPct), true
	default:
		return "", false
	}
}
