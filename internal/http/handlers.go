package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finlens/internal/aggregate"
	"finlens/internal/auth"
	"finlens/internal/core"
	"finlens/internal/insights"
	"finlens/internal/log"
	"finlens/internal/privacy"
)

// transactionJSON is the wire form of a transaction row.
type transactionJSON struct {
	Date          string   `json:"date"`
	Account       string   `json:"account,omitempty"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	Description   string   `json:"description"`
	ExpenseAmount float64  `json:"expense_amount,omitempty"`
	IncomeAmount  float64  `json:"income_amount,omitempty"`
	Amount        float64  `json:"amount"`
	Currency      string   `json:"currency,omitempty"`
}

func toTransactionJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, tx := range txs {
		tags := tx.Tags
		if tags == nil {
			tags = []string{}
		}
		out[i] = transactionJSON{
			Date:          tx.Date.UTC().Format("2006-01-02"),
			Account:       tx.Account,
			Category:      tx.Category,
			Tags:          tags,
			Description:   tx.Description,
			ExpenseAmount: tx.ExpenseAmount,
			IncomeAmount:  tx.IncomeAmount,
			Amount:        tx.Amount,
			Currency:      tx.Currency,
		}
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// credentialFrom picks the request credential: the session cookie wins, then
// a bearer token for header-based clients.
func credentialFrom(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Server) trustLevel(r *http.Request) auth.TrustLevel {
	return s.gate.Resolve(credentialFrom(r))
}

const summaryCacheKey = "summary"

// loadSummary returns the raw dataset summary, computing it once per cache
// window. The result must not be handed out unscaled to guests.
func (s *Server) loadSummary(r *http.Request) (core.Summary, error) {
	if cached, ok := s.summaryCache.Get(summaryCacheKey); ok {
		return cached, nil
	}

	txs, err := s.source.Snapshot(r.Context())
	if err != nil {
		return core.Summary{}, err
	}
	summary := aggregate.Summarize(txs)
	s.summaryCache.Set(summaryCacheKey, summary)
	return summary, nil
}

type summaryResponse struct {
	core.Summary
	IsNormalized bool `json:"is_normalized"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.loadSummary(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary load failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}

	resp := summaryResponse{Summary: summary}
	if s.trustLevel(r) != auth.Trusted {
		resp.Summary = privacy.ScaleSummary(summary, privacy.TodayFactor())
		resp.IsNormalized = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseFilter reads the shared listing query parameters.
func parseFilter(r *http.Request) aggregate.Filter {
	q := r.URL.Query()
	f := aggregate.Filter{
		Category: strings.TrimSpace(q.Get("category")),
		Tag:      strings.TrimSpace(q.Get("tag")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.From = t.UTC()
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.To = t.UTC()
		}
	}
	switch q.Get("sort") {
	case "amount":
		f.SortKey = aggregate.SortByAmount
	case "date":
		f.SortKey = aggregate.SortByDate
	}
	switch q.Get("dir") {
	case "asc":
		f.SortDir = aggregate.SortAsc
	case "desc":
		f.SortDir = aggregate.SortDesc
	}
	return f
}

func parsePagination(r *http.Request) (offset, limit int) {
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}
	limit = 100
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	return offset, limit
}

type listResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Count        int               `json:"count"`
	IsNormalized bool              `json:"is_normalized"`
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	s.handleListing(w, r, false)
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	s.handleListing(w, r, true)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request, income bool) {
	txs, err := s.source.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Dataset snapshot failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}

	if income {
		txs = aggregate.IncomeRows(txs)
	} else {
		txs = aggregate.ExpenseRows(txs)
	}
	matched := aggregate.Apply(txs, parseFilter(r))
	total := len(matched)

	offset, limit := parsePagination(r)
	page := aggregate.Paginate(matched, offset, limit)

	resp := listResponse{Count: total}
	if s.trustLevel(r) != auth.Trusted {
		factor := privacy.TodayFactor()
		if income {
			// Income sources are sensitive on their own, so guest rows lose
			// their labels as well as their real amounts.
			page = privacy.AnonymizeIncomeRows(page, factor)
		} else {
			page = privacy.ScaleTransactions(page, factor)
		}
		resp.IsNormalized = true
	}
	resp.Transactions = toTransactionJSON(page)
	writeJSON(w, http.StatusOK, resp)
}

type searchResponse struct {
	Query        string            `json:"query"`
	Matches      []transactionJSON `json:"matches"`
	Count        int               `json:"count"`
	ExpenseTotal float64           `json:"expense_total"`
	IncomeTotal  float64           `json:"income_total"`
	IsNormalized bool              `json:"is_normalized"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}

	txs, err := s.source.Snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Dataset snapshot failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}

	result := aggregate.Search(txs, term)
	resp := searchResponse{
		Query:        term,
		Count:        result.Count,
		ExpenseTotal: result.ExpenseTotal,
		IncomeTotal:  result.IncomeTotal,
	}

	matches := result.Matches
	if s.trustLevel(r) != auth.Trusted {
		factor := privacy.TodayFactor()
		scaled := make([]core.Transaction, len(matches))
		for i, tx := range matches {
			if tx.IsIncome() {
				scaled[i] = privacy.AnonymizeIncomeRows([]core.Transaction{tx}, factor)[0]
			} else {
				scaled[i] = privacy.ScaleTransactions([]core.Transaction{tx}, factor)[0]
			}
		}
		matches = scaled
		resp.ExpenseTotal = privacy.ScaleAmount(result.ExpenseTotal, factor)
		resp.IncomeTotal = privacy.ScaleAmount(result.IncomeTotal, factor)
		resp.IsNormalized = true
	}
	resp.Matches = toTransactionJSON(matches)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	txs, err := s.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": aggregate.Categories(txs)})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	txs, err := s.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tags": aggregate.Tags(txs)})
}

type insightsRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	level := s.trustLevel(r)
	if err := s.gate.RequireTrusted(level); err != nil {
		// Denied before anything touches the advisor.
		writeError(w, http.StatusForbidden, "insights require trusted access")
		return
	}

	var req insightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a non-empty 'query'")
		return
	}

	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "insights are not configured")
		return
	}

	summary, err := s.loadSummary(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}

	answer, err := s.advisor.Advise(r.Context(), req.Query, summary)
	if err != nil {
		if errors.Is(err, insights.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "insights are not configured")
			return
		}
		slog.ErrorContext(r.Context(), "Insights request failed", log.FieldError, err)
		writeError(w, http.StatusBadGateway, "insights request failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

type loginRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a 'token'")
		return
	}

	session, err := s.gate.Login(req.Token)
	if err != nil {
		slog.WarnContext(r.Context(), "Login rejected",
			log.FieldOperation, log.OpLogin,
			log.FieldClientIP, extractClientIP(r))
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.gate.Logout(credentialFrom(r))

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	level, expires := s.gate.Status(credentialFrom(r))

	resp := map[string]any{
		"authenticated": level == auth.Trusted,
		"mode":          level.String(),
	}
	if !expires.IsZero() {
		resp["expires_at"] = expires.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// rowCounter is implemented by sources that can report their size without
// materializing a snapshot, like the SQLite repository.
type rowCounter interface {
	Count(ctx context.Context) (int64, error)
}

// datasetRows checks the source, preferring a cheap count over a full
// snapshot. Returns -1 when the source cannot answer.
func (s *Server) datasetRows(ctx context.Context) (int64, error) {
	if c, ok := s.source.(rowCounter); ok {
		return c.Count(ctx)
	}
	txs, err := s.source.Snapshot(ctx)
	if err != nil {
		return -1, err
	}
	return int64(len(txs)), nil
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.datasetRows(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("dataset unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics emits plain-text counters. No scrape stack is assumed; the
// format stays parseable by hand or by a Prometheus exporter shim.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	reqs := s.traceMW.GetMetrics()
	rate := s.globalLimiter.GetMetrics()
	login := s.loginLimiter.GetMetrics()
	ai := s.insightsLimiter.GetMetrics()

	rows, err := s.datasetRows(r.Context())
	if err != nil {
		rows = -1
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "finlens_requests_total %d\n", reqs.TotalRequests)
	fmt.Fprintf(w, "finlens_error_responses_total %d\n", reqs.ErrorResponses)
	fmt.Fprintf(w, "finlens_rate_limit_hits_total %d\n", rate.TotalHits+login.TotalHits+ai.TotalHits)
	fmt.Fprintf(w, "finlens_active_sessions %d\n", s.gate.ActiveSessions())
	fmt.Fprintf(w, "finlens_dataset_rows %d\n", rows)
}
