package http

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"syntego/internal/budget"
	"syntego/internal/core"
	"syntego/internal/log"
	"syntego/internal/services"
)

// flash is a one-off status line shown above the dashboard.
type flash struct {
	Kind    string // success or error
	Message string
}

type transactionRow struct {
	Index int
	core.Transaction
}

type dashboardData struct {
	Flash        *flash
	Overview     services.Overview
	Alerts       []template.HTML
	Transactions []transactionRow
	Breakdown    []core.CategoryTotals
	Categories   []core.Category
	Form         services.AddRequest
	Question     string
	Answer       *adviceJSON
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, dashboardData{})
}

// renderDashboard fills data from the current ledger and writes the page.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, data dashboardData) {
	if err := s.loadDashboard(r.Context(), &data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load dashboard",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		HTMLError(http.StatusInternalServerError, "Failed to load the ledger").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		HTMLError(http.StatusInternalServerError, "Failed to render the page").Write(w)
		return
	}
	NewResponse().Status(status).HTML(buf.Bytes()).Write(w)
}

func (s *Server) loadDashboard(ctx context.Context, data *dashboardData) error {
	l, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}
	agg := l.Aggregate()
	data.Overview = services.Overview{
		TotalIncome:  agg.TotalIncome,
		TotalExpense: agg.TotalExpense,
		Net:          agg.Net(),
		Count:        l.Len(),
	}
	alerts, _ := s.insights.Report(ctx, l)
	for _, html := range budget.RenderAll(budget.HTMLRenderer{}, alerts) {
		// HTMLRenderer escapes every field it interpolates.
		data.Alerts = append(data.Alerts, template.HTML(html))
	}
	for i, t := range l {
		data.Transactions = append(data.Transactions, transactionRow{Index: i, Transaction: t})
	}
	data.Breakdown = l.Breakdown()
	data.Categories = core.KnownCategories
	return nil
}

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, dashboardData{Flash: &flash{Kind: "error", Message: "Invalid form submission"}})
		return
	}
	req := services.AddRequest{
		Type:        p.Get("type"),
		Category:    p.Get("category"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
	}
	tx, _, err := s.ledger.Add(r.Context(), req)
	if err != nil {
		s.renderDashboard(w, r, statusFor(err), dashboardData{
			Flash: &flash{Kind: "error", Message: userMessage(err)},
			Form:  req,
		})
		return
	}
	s.renderDashboard(w, r, http.StatusOK, dashboardData{Flash: &flash{Kind: "success", Message: services.AddedMessage(tx)}})
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	var indices []int
	err := p.Parse()
	if err == nil {
		indices, err = p.Indices("index")
	}
	if err == nil {
		_, err = s.ledger.Delete(r.Context(), indices)
	}
	if err != nil {
		s.renderDashboard(w, r, statusFor(err), dashboardData{Flash: &flash{Kind: "error", Message: userMessage(err)}})
		return
	}
	s.renderDashboard(w, r, http.StatusOK, dashboardData{Flash: &flash{Kind: "success", Message: services.DeletedMessage}})
}

func (s *Server) handleAskForm(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, dashboardData{Flash: &flash{Kind: "error", Message: "Invalid form submission"}})
		return
	}
	query := p.Get("query")
	answer, err := s.insights.Ask(r.Context(), query)
	if err != nil {
		s.renderDashboard(w, r, statusFor(err), dashboardData{
			Flash:    &flash{Kind: "error", Message: userMessage(err)},
			Question: query,
		})
		return
	}
	s.renderDashboard(w, r, http.StatusOK, dashboardData{
		Question: query,
		Answer:   &adviceJSON{Answer: answer.Text, Fallback: answer.Fallback, Cached: answer.Cached},
	})
}
