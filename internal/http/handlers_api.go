package http

import (
	"net/http"

	"syntego/internal/budget"
	"syntego/internal/core"
	"syntego/internal/log"
	"syntego/internal/services"
)

type transactionJSON struct {
	Index       int    `json:"index"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type overviewJSON struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	Net          string `json:"net"`
	Count        int    `json:"count"`
}

type breakdownJSON struct {
	Category string `json:"category"`
	Expense  string `json:"expense"`
	Income   string `json:"income"`
}

type alertJSON struct {
	Kind         string `json:"kind"`
	Severity     string `json:"severity"`
	Scope        string `json:"scope"`
	ThresholdPct int    `json:"threshold_pct,omitempty"`
	Text         string `json:"text"`
	Notification string `json:"notification,omitempty"`
}

type alertsResponse struct {
	Alerts            []alertJSON `json:"alerts"`
	NotificationsSent int         `json:"notifications_sent"`
}

type adviceJSON struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
	Cached   bool   `json:"cached"`
}

func toTransactionJSON(i int, t core.Transaction) transactionJSON {
	return transactionJSON{
		Index:       i,
		Date:        t.Date,
		Type:        t.Type.String(),
		Category:    t.Category.String(),
		Amount:      t.Amount.StringFixed(2),
		Description: t.Description,
	}
}

func toAlertsJSON(alerts []budget.Alert) []alertJSON {
	out := make([]alertJSON, 0, len(alerts))
	var text budget.TextRenderer
	for _, a := range alerts {
		msg, _ := a.Notification()
		out = append(out, alertJSON{
			Kind:         string(a.Kind),
			Severity:     string(a.Severity),
			Scope:        a.Scope.String(),
			ThresholdPct: a.ThresholdPct,
			Text:         text.Render(a),
			Notification: msg,
		})
	}
	return out
}

func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op, log.FieldError, err)
	}
	JSONError(status, userMessage(err)).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	l, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.writeAPIError(w, r, log.OpList, err)
		return
	}
	out := make([]transactionJSON, 0, len(l))
	for i, t := range l {
		out = append(out, toTransactionJSON(i, t))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	tx, index, err := s.ledger.Add(r.Context(), services.AddRequest{
		Type:        p.Get("type"),
		Category:    p.Get("category"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
	})
	if err != nil {
		s.writeAPIError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toTransactionJSON(index, tx)).Write(w)
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	indices, err := p.Indices("indices")
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	removed, err := s.ledger.Delete(r.Context(), indices)
	if err != nil {
		s.writeAPIError(w, r, log.OpDelete, err)
		return
	}
	NewResponse().JSON(map[string]any{"deleted": removed, "message": services.DeletedMessage}).Write(w)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	o, err := s.insights.Overview(r.Context())
	if err != nil {
		s.writeAPIError(w, r, log.OpLoad, err)
		return
	}
	NewResponse().JSON(overviewJSON{
		TotalIncome:  o.TotalIncome.StringFixed(2),
		TotalExpense: o.TotalExpense.StringFixed(2),
		Net:          o.Net.StringFixed(2),
		Count:        o.Count,
	}).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	rows, err := s.insights.Breakdown(r.Context())
	if err != nil {
		s.writeAPIError(w, r, log.OpLoad, err)
		return
	}
	out := make([]breakdownJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, breakdownJSON{
			Category: row.Category.String(),
			Expense:  row.Expense.StringFixed(2),
			Income:   row.Income.StringFixed(2),
		})
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, sent, err := s.insights.CheckBudget(r.Context())
	if err != nil {
		s.writeAPIError(w, r, log.OpEvaluate, err)
		return
	}
	NewResponse().JSON(alertsResponse{Alerts: toAlertsJSON(alerts), NotificationsSent: sent}).Write(w)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	answer, err := s.insights.Ask(r.Context(), p.Get("query"))
	if err != nil {
		s.writeAPIError(w, r, log.OpAsk, err)
		return
	}
	NewResponse().JSON(adviceJSON{Answer: answer.Text, Fallback: answer.Fallback, Cached: answer.Cached}).Write(w)
}
