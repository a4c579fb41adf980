package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syntego/internal/advice"
	"syntego/internal/core"
	"syntego/internal/ledger/memory"
	"syntego/internal/log"
	"syntego/internal/services"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingNotifier) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type testEnv struct {
	srv      *Server
	store    *memory.Store
	notifier *recordingNotifier
	prompts  []string
}

func seedLedger() core.Ledger {
	return core.Ledger{
		{Date: "2024-03-01 08:00:00", Type: core.Income, Category: core.Salary, Amount: decimal.NewFromInt(1000), Description: "pay"},
		{Date: "2024-03-02 12:00:00", Type: core.Expense, Category: core.Food, Amount: decimal.NewFromInt(900), Description: "groceries"},
	}
}

func newTestEnv(t *testing.T, seed core.Ledger, gen advice.Generator) *testEnv {
	t.Helper()
	env := &testEnv{store: memory.New(seed), notifier: &recordingNotifier{}}
	if gen == nil {
		gen = advice.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
			env.prompts = append(env.prompts, prompt)
			return "Cook at home more often.", nil
		})
	}
	ls := services.NewLedgerService(env.store, env.notifier, log.Discard())
	adv := advice.NewService(gen, advice.DefaultServiceConfig(), log.Discard())
	is := services.NewInsightService(ls, adv, env.notifier, log.Discard())

	srv, err := NewServer(":0", ls, is, Options{RequestsPerMinute: 1000}, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	env.srv = srv
	return env
}

func (e *testEnv) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(http.MethodGet, "/static/app.css", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)
	rec := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Personal Finance Tracker")
	assert.Contains(t, body, "$1000.00")
	assert.Contains(t, body, "$100.00")
	assert.Contains(t, body, "groceries")
	assert.Contains(t, body, "$900.00 on Food")
	assert.Contains(t, body, "Save 20% of your income")
	assert.Equal(t, []string{
		"Budget Alert: Spending exceeds 80% of income!",
		"Alert: Spending on Food exceeds 90% of income!",
	}, env.notifier.Messages())

	env.do(http.MethodGet, "/", "", "")
	assert.Len(t, env.notifier.Messages(), 4, "every render dispatches its alerts once")
}

func TestDashboard_EmptyLedger(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No transactions yet. Add some to get tips!")
	assert.Contains(t, rec.Body.String(), "No transactions recorded yet.")
	assert.Empty(t, env.notifier.Messages(), "informational alerts never notify")
}

func TestDashboard_EscapesUserInput(t *testing.T) {
	seed := core.Ledger{{Date: "2024-03-01 08:00:00", Type: core.Expense, Category: "<b>Fun</b>", Amount: decimal.NewFromInt(5), Description: "<script>x</script>"}}
	env := newTestEnv(t, seed, nil)
	body := env.do(http.MethodGet, "/", "", "").Body.String()
	assert.NotContains(t, body, "<script>x</script>")
	assert.NotContains(t, body, "<b>Fun</b>")
}

func TestAddForm(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	form := url.Values{"type": {"Expense"}, "category": {"Transport"}, "amount": {"12,5"}, "description": {"bus pass"}}
	rec := env.do(http.MethodPost, "/transactions", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "New Expense added: $12.50 for bus pass")
	assert.Equal(t, []string{"New Expense added: $12.50 for bus pass"}, env.notifier.Messages())

	l, err := env.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, l, 1)
	assert.Equal(t, core.Transport, l[0].Category)
}

func TestAddForm_ValidationKeepsInput(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	form := url.Values{"type": {"Expense"}, "category": {"Food"}, "amount": {"abc"}, "description": {"lunch"}}
	rec := env.do(http.MethodPost, "/transactions", "application/x-www-form-urlencoded", form.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid amount")
	assert.Contains(t, rec.Body.String(), `value="lunch"`)
	assert.Empty(t, env.notifier.Messages())
}

func TestDeleteForm(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)
	rec := env.do(http.MethodPost, "/transactions/delete", "application/x-www-form-urlencoded", "index=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), services.DeletedMessage)

	l, _ := env.store.Load(context.Background())
	require.Len(t, l, 1)
	assert.Equal(t, "pay", l[0].Description)

	rec = env.do(http.MethodPost, "/transactions/delete", "application/x-www-form-urlencoded", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskForm(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)
	rec := env.do(http.MethodPost, "/ask", "application/x-www-form-urlencoded", "query=How+do+I+save%3F")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cook at home more often.")
	require.Len(t, env.prompts, 1)
	assert.Contains(t, env.prompts[0], "How do I save?")
}

func TestAPI_Transactions(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)

	rec := env.do(http.MethodGet, "/api/transactions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]transactionJSON](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, transactionJSON{Index: 1, Date: "2024-03-02 12:00:00", Type: "Expense", Category: "Food", Amount: "900.00", Description: "groceries"}, list[1])

	rec = env.do(http.MethodPost, "/api/transactions", "application/json",
		`{"type":"income","category":"Side gig","amount":"250","description":"tutoring"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[transactionJSON](t, rec)
	assert.Equal(t, 2, created.Index)
	assert.Equal(t, "Income", created.Type)
	assert.Equal(t, "Side gig", created.Category)
	assert.Equal(t, "250.00", created.Amount)

	rec = env.do(http.MethodDelete, "/api/transactions", "application/json", `{"indices":[0,2]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode[map[string]any](t, rec)["deleted"])

	l, _ := env.store.Load(context.Background())
	require.Len(t, l, 1)
	assert.Equal(t, "groceries", l[0].Description)
}

func TestAPI_Errors(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)

	tests := []struct {
		name, method, path, body string
		status                   int
	}{
		{"bad type", http.MethodPost, "/api/transactions", `{"type":"gift","category":"Food","amount":"1","description":"x"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/transactions", `{"type":`, http.StatusBadRequest},
		{"long description", http.MethodPost, "/api/transactions", `{"type":"Expense","category":"Food","amount":"1","description":"` + strings.Repeat("a", 201) + `"}`, http.StatusBadRequest},
		{"out of range", http.MethodDelete, "/api/transactions", `{"indices":[7]}`, http.StatusBadRequest},
		{"nothing selected", http.MethodDelete, "/api/transactions", `{"indices":[]}`, http.StatusBadRequest},
		{"indices not a list", http.MethodDelete, "/api/transactions", `{"indices":3}`, http.StatusBadRequest},
		{"fractional index", http.MethodDelete, "/api/transactions", `{"indices":[1.5]}`, http.StatusBadRequest},
		{"empty query", http.MethodPost, "/api/advice", `{"query":"   "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, "application/json", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorBody](t, rec).Error)
		})
	}

	l, _ := env.store.Load(context.Background())
	assert.Len(t, l, 2, "failed requests must not change the ledger")
	assert.Empty(t, env.notifier.Messages())
}

func TestAPI_OverviewAndBreakdown(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)

	rec := env.do(http.MethodGet, "/api/overview", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, overviewJSON{TotalIncome: "1000.00", TotalExpense: "900.00", Net: "100.00", Count: 2}, decode[overviewJSON](t, rec))

	rec = env.do(http.MethodGet, "/api/breakdown", "", "")
	rows := decode[[]breakdownJSON](t, rec)
	require.Len(t, rows, len(core.KnownCategories))
	assert.Equal(t, breakdownJSON{Category: "Food", Expense: "900.00", Income: "0.00"}, rows[0])
	assert.Equal(t, breakdownJSON{Category: "Salary", Expense: "0.00", Income: "1000.00"}, rows[3])
}

func TestAPI_Alerts(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)

	rec := env.do(http.MethodGet, "/api/alerts", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[alertsResponse](t, rec)
	alerts := resp.Alerts
	require.Len(t, alerts, 3)
	assert.Equal(t, "high_spend", alerts[0].Kind)
	assert.Equal(t, "warning", alerts[0].Severity)
	assert.Equal(t, "category:Food", alerts[1].Scope)
	assert.Equal(t, 90, alerts[1].ThresholdPct)
	assert.Equal(t, "emergency_tip", alerts[2].Kind)
	assert.Empty(t, alerts[2].Notification)
	assert.Equal(t, 2, resp.NotificationsSent)
	assert.Equal(t, []string{
		"Budget Alert: Spending exceeds 80% of income!",
		"Alert: Spending on Food exceeds 90% of income!",
	}, env.notifier.Messages())
}

func TestAPI_Advice(t *testing.T) {
	env := newTestEnv(t, seedLedger(), nil)

	rec := env.do(http.MethodPost, "/api/advice", "application/json", `{"query":"Where does my money go?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adviceJSON{Answer: "Cook at home more often."}, decode[adviceJSON](t, rec))

	rec = env.do(http.MethodPost, "/api/advice", "application/json", `{"query":"Where does my money go?"}`)
	assert.True(t, decode[adviceJSON](t, rec).Cached)
	assert.Len(t, env.prompts, 1)
}

func TestAPI_AdviceFallback(t *testing.T) {
	env := newTestEnv(t, seedLedger(), advice.Disabled{})
	rec := env.do(http.MethodPost, "/api/advice", "application/json", `{"query":"help"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adviceJSON{Answer: advice.FallbackResponse, Fallback: true}, decode[adviceJSON](t, rec))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	srv, err := NewServer(":0", env.srv.ledger, env.srv.insights, Options{RequestsPerMinute: 1}, log.Discard())
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/advice", strings.NewReader(`{"query":"x"}`))
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusOK, post().Code)
	rec := post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// reads are not limited
	req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
	get := httptest.NewRecorder()
	srv.Handler.ServeHTTP(get, req)
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "10.0.0.1", clientIP(false)(req))
	assert.Equal(t, "203.0.113.9", clientIP(true)(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(true)(req))
}
