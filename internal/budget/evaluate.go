package budget

import (
	"github.com/shopspring/decimal"

	"syntego/internal/core"
)

const (
	// CriticalSpendPct is the spend ratio at which total spending is critical.
	CriticalSpendPct = 100
	// WarningSpendPct is the spend ratio at which total spending warns.
	WarningSpendPct = 80

	// allocationBreakpoint separates the two allocation bands: tiers at or
	// below it use the relaxed split, tiers above it the strict one.
	allocationBreakpoint = 70
)

// Tiers are the category spending thresholds, as a percentage of income.
var Tiers = []int{50, 60, 70, 80, 90, 100}

var (
	relaxedSplit = [3]int{60, 20, 20}
	strictSplit  = [3]int{70, 15, 15}
)

// Evaluate derives the ordered alerts for a ledger snapshot:
//
//   - an empty ledger yields a single informational notice and nothing else;
//   - a global overspend alert (Critical at >= 100% of income, else Warning
//     at >= 80%) comes first when it applies;
//   - one alert per category whose spending meets at least the lowest tier,
//     in category discovery order, reporting the highest tier met;
//   - the emergency savings tip is always last.
//
// Percentage rules are skipped when there is no income to divide by.
func Evaluate(l core.Ledger) []Alert {
	if l.IsEmpty() {
		return []Alert{{Kind: KindNoTransactions, Severity: Info, Scope: Scope{Kind: ScopeNone}}}
	}

	agg := l.Aggregate()
	var alerts []Alert
	if agg.HasIncome() {
		if a, ok := globalAlert(agg); ok {
			alerts = append(alerts, a)
		}
		for _, ca := range agg.SpendByCategory {
			if a, ok := categoryAlert(ca, agg.TotalIncome); ok {
				alerts = append(alerts, a)
			}
		}
	}
	return append(alerts, Alert{Kind: KindEmergencyTip, Severity: Info, Scope: Scope{Kind: ScopeNone}})
}

func globalAlert(agg core.Aggregates) (Alert, bool) {
	ratio := core.Percent(agg.TotalExpense, agg.TotalIncome)
	payload := Payload{
		TotalIncome:  agg.TotalIncome,
		TotalExpense: agg.TotalExpense,
		SpendRatio:   ratio,
	}
	switch {
	case meetsPct(agg.TotalExpense, agg.TotalIncome, CriticalSpendPct):
		return Alert{Kind: KindOverspend, Severity: Critical, Scope: GlobalScope(), ThresholdPct: CriticalSpendPct, Payload: payload}, true
	case meetsPct(agg.TotalExpense, agg.TotalIncome, WarningSpendPct):
		return Alert{Kind: KindHighSpend, Severity: Warning, Scope: GlobalScope(), ThresholdPct: WarningSpendPct, Payload: payload}, true
	default:
		return Alert{}, false
	}
}

func categoryAlert(ca core.CategoryAmount, income decimal.Decimal) (Alert, bool) {
	if !ca.Amount.IsPositive() {
		return Alert{}, false
	}
	tier, ok := highestTier(ca.Amount, income)
	if !ok {
		return Alert{}, false
	}

	leftoverPct := decimal.NewFromInt(100).Sub(core.Percent(ca.Amount, income))
	leftover := core.PercentOf(income, leftoverPct)

	severity := Warning
	if tier >= CriticalSpendPct {
		severity = Critical
	}
	return Alert{
		Kind:         KindCategorySpend,
		Severity:     severity,
		Scope:        CategoryScope(ca.Category),
		ThresholdPct: tier,
		Payload: Payload{
			TotalIncome:    income,
			CategoryAmount: ca.Amount,
			LeftoverPct:    leftoverPct,
			LeftoverAmount: leftover,
			Allocation:     allocate(tier, leftover),
		},
	}, true
}

// highestTier returns the largest tier t with amount >= income*t/100.
func highestTier(amount, income decimal.Decimal) (int, bool) {
	best, found := 0, false
	for _, t := range Tiers {
		if meetsPct(amount, income, t) && t > best {
			best, found = t, true
		}
	}
	return best, found
}

// meetsPct reports amount >= income*pct/100. Both sides are scaled instead
// of divided so the comparison stays exact.
func meetsPct(amount, income decimal.Decimal, pct int) bool {
	return amount.Mul(decimal.NewFromInt(100)).GreaterThanOrEqual(income.Mul(decimal.NewFromInt(int64(pct))))
}

func allocate(tier int, leftover decimal.Decimal) Allocation {
	split := relaxedSplit
	if tier > allocationBreakpoint {
		split = strictSplit
	}
	pct := func(p int) decimal.Decimal { return core.PercentOf(leftover, decimal.NewFromInt(int64(p))) }
	return Allocation{
		EssentialsPct:    split[0],
		SavingsPct:       split[1],
		DiscretionaryPct: split[2],
		Essentials:       pct(split[0]),
		Savings:          pct(split[1]),
		Discretionary:    pct(split[2]),
	}
}
