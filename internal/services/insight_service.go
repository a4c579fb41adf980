package services

import (
	"context"

	"github.com/shopspring/decimal"

	"syntego/internal/advice"
	"syntego/internal/budget"
	"syntego/internal/core"
	"syntego/internal/log"
)

// Advisor answers questions about a ledger.
type Advisor interface {
	Ask(ctx context.Context, l core.Ledger, query string) (advice.Answer, error)
}

// Overview is the financial summary shown above the ledger.
type Overview struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
	Count        int
}

// InsightService derives alerts, summaries and advice from the current ledger.
type InsightService struct {
	ledger   *LedgerService
	advisor  Advisor
	notifier budget.Notifier
	logger   *log.Logger
}

func NewInsightService(ls *LedgerService, advisor Advisor, notifier budget.Notifier, logger *log.Logger) *InsightService {
	return &InsightService{
		ledger:   ls,
		advisor:  advisor,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentBudget),
	}
}

// CheckBudget evaluates the rules against the current ledger and sends one
// notification per alert that carries one.
func (s *InsightService) CheckBudget(ctx context.Context) ([]budget.Alert, int, error) {
	l, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	alerts, sent := s.Report(ctx, l)
	return alerts, sent, nil
}

// Report evaluates the rules for l and dispatches the resulting alerts. It
// returns the alerts and the number of notifications sent.
func (s *InsightService) Report(ctx context.Context, l core.Ledger) ([]budget.Alert, int) {
	alerts := budget.Evaluate(l)
	sent := budget.Dispatch(ctx, s.notifier, alerts)
	s.logger.InfoContext(ctx, "Budget checked", log.FieldOperation, log.OpEvaluate,
		"alerts", len(alerts), "notifications", sent)
	return alerts, sent
}

// Ask forwards a question about the current ledger to the advisor.
func (s *InsightService) Ask(ctx context.Context, query string) (advice.Answer, error) {
	l, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return advice.Answer{}, err
	}
	return s.advisor.Ask(ctx, l, query)
}

func (s *InsightService) Overview(ctx context.Context) (Overview, error) {
	l, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return Overview{}, err
	}
	agg := l.Aggregate()
	return Overview{
		TotalIncome:  agg.TotalIncome,
		TotalExpense: agg.TotalExpense,
		Net:          agg.Net(),
		Count:        l.Len(),
	}, nil
}

// Breakdown returns per category expense and income totals for the chart.
func (s *InsightService) Breakdown(ctx context.Context) ([]core.CategoryTotals, error) {
	l, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return l.Breakdown(), nil
}
