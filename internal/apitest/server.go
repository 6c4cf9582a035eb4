// Package apitest runs an in-memory Budgie API for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/period"
)

// Clock is the fixed time stamped on created and updated records.
var Clock = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// Request is one request the server received.
type Request struct {
	Method    string
	Path      string
	Query     string
	Body      []byte
	RequestID string
}

type account struct {
	id       string
	password string
}

type failure struct {
	status  int
	message string
}

// Server is a fake Budgie API backed by maps. Records are kept in insertion
// order and listed newest first.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	seq          int
	accounts     map[string]account // by username
	sessions     map[string]string  // access token -> user id
	categories   []model.Category
	transactions []model.Transaction
	budgets      []model.Budget
	failures     map[string]failure
	requests     []Request
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]account),
		sessions: make(map[string]string),
		failures: make(map[string]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/login", s.login)
	mux.HandleFunc("GET /api/user/logout", s.logout)
	mux.HandleFunc("GET /api/user/me", s.authed(s.me))

	mux.HandleFunc("GET /api/transactions", s.authed(s.listTransactions))
	mux.HandleFunc("POST /api/transactions", s.authed(s.createTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.authed(s.updateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.authed(s.deleteTransaction))

	mux.HandleFunc("GET /api/categories", s.authed(s.listCategories))
	mux.HandleFunc("POST /api/categories", s.authed(s.createCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.authed(s.updateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.authed(s.deleteCategory))

	mux.HandleFunc("GET /api/budgets", s.authed(s.listBudgets))
	mux.HandleFunc("POST /api/budgets", s.authed(s.createBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.authed(s.updateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.authed(s.deleteBudget))
	mux.HandleFunc("GET /api/budgets/utilization/{period}", s.authed(s.utilization))

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// AddUser registers credentials and returns the new user id.
func (s *Server) AddUser(username, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("user")
	s.accounts[username] = account{id: id, password: password}
	return id
}

// SeedCategory stores a category for userID.
func (s *Server) SeedCategory(userID, name string) model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Category{ID: s.nextID("cat"), UserID: userID, Name: name}
	s.categories = append(s.categories, c)
	return c
}

// SeedTransaction stores t for userID, assigning an id and timestamps.
func (s *Server) SeedTransaction(userID string, t model.Transaction) model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID("txn")
	t.UserID = userID
	t.CategoryName = s.categoryName(t.CategoryID)
	t.CreatedAt, t.UpdatedAt = Clock, Clock
	s.transactions = append(s.transactions, t)
	return t
}

// SeedBudget stores b for userID, assigning an id and timestamps.
func (s *Server) SeedBudget(userID string, b model.Budget) model.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID("bud")
	b.UserID = userID
	b.CreatedAt, b.UpdatedAt = Clock, Clock
	s.budgets = append(s.budgets, b)
	return b
}

// Fail makes every request matching route (e.g. "POST /api/transactions")
// answer with status and {message} until ClearFailures is called.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failures)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transactions)
}

func (s *Server) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

func (s *Server) Budgets() []model.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.budgets)
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) categoryName(id string) string {
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.EscapedPath(),
			Query:     r.URL.RawQuery,
			Body:      body,
			RequestID: r.Header.Get("X-Request-ID"),
		})
		f, failing := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if failing {
			writeMessage(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("access_token")
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		s.mu.Lock()
		userID, ok := s.sessions[cookie.Value]
		s.mu.Unlock()
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h(w, r, userID)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[body.Username]
	if !ok || acct.password != body.Password {
		s.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	token := uuid.NewString()
	s.sessions[token] = acct.id
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: token, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: uuid.NewString(), Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"userId": acct.id, "username": body.Username})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("access_token"); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "", Path: "/", MaxAge: -1})
	writeMessage(w, http.StatusOK, "Logged out")
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, acct := range s.accounts {
		if acct.id == userID {
			writeJSON(w, http.StatusOK, map[string]any{"userId": acct.id, "username": name})
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "Unauthorized")
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	categoryID := r.URL.Query().Get("category")
	var in period.Period
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, err := period.Parse(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid period")
			return
		}
		in = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data := []map[string]any{}
	for _, t := range slices.Backward(s.transactions) {
		if t.UserID != userID {
			continue
		}
		if categoryID != "" && t.CategoryID != categoryID {
			continue
		}
		if !in.IsZero() && !in.Contains(t.Date) {
			continue
		}
		t.CategoryName = s.categoryName(t.CategoryID)
		data = append(data, transactionWire(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

type transactionBody struct {
	Type        string   `json:"type"`
	Vendor      string   `json:"vendor"`
	Description string   `json:"description"`
	CategoryID  string   `json:"category_id"`
	Amount      *float64 `json:"amount"`
	Date        string   `json:"date"`
}

func (s *Server) parseTransaction(r *http.Request, userID string) (model.Transaction, string) {
	var body transactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return model.Transaction{}, "Invalid request body"
	}
	t := model.Transaction{
		Type:        model.TransactionType(body.Type),
		Vendor:      body.Vendor,
		Description: body.Description,
		CategoryID:  body.CategoryID,
	}
	if !t.Type.Valid() {
		return t, "Invalid transaction type"
	}
	if t.Vendor == "" {
		return t, "Vendor is required"
	}
	if body.Amount == nil || *body.Amount < 0 || *body.Amount != float64(int64(*body.Amount)) {
		return t, "Invalid amount"
	}
	t.AmountCents = int64(*body.Amount)
	date, err := time.Parse(time.RFC3339Nano, body.Date)
	if err != nil {
		return t, "Invalid date"
	}
	t.Date = date
	if !s.ownsCategory(userID, t.CategoryID) {
		return t, "Category not found"
	}
	t.CategoryName = s.categoryName(t.CategoryID)
	return t, ""
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, msg := s.parseTransaction(r, userID)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	t.ID = s.nextID("txn")
	t.UserID = userID
	t.CreatedAt, t.UpdatedAt = Clock, Clock
	s.transactions = append(s.transactions, t)
	writeJSON(w, http.StatusCreated, map[string]any{"data": transactionWire(t)})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.transactions, func(t model.Transaction) bool {
		return t.ID == r.PathValue("id") && t.UserID == userID
	})
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Transaction not found")
		return
	}
	t, msg := s.parseTransaction(r, userID)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	prev := s.transactions[i]
	t.ID, t.UserID, t.CreatedAt, t.UpdatedAt = prev.ID, prev.UserID, prev.CreatedAt, Clock
	s.transactions[i] = t
	writeJSON(w, http.StatusOK, map[string]any{"data": transactionWire(t)})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	n := len(s.transactions)
	s.transactions = slices.DeleteFunc(s.transactions, func(t model.Transaction) bool {
		return t.ID == id && t.UserID == userID
	})
	if len(s.transactions) == n {
		writeMessage(w, http.StatusNotFound, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := []map[string]any{}
	for _, c := range s.categories {
		if c.UserID == userID {
			data = append(data, categoryWire(c))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func parseName(r *http.Request) (string, string) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", "Invalid request body"
	}
	if body.Name == "" {
		return "", "Name is required"
	}
	return body.Name, ""
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request, userID string) {
	name, msg := parseName(r)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Category{ID: s.nextID("cat"), UserID: userID, Name: name}
	s.categories = append(s.categories, c)
	writeJSON(w, http.StatusCreated, map[string]any{"data": categoryWire(c)})
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request, userID string) {
	name, msg := parseName(r)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.categories, func(c model.Category) bool {
		return c.ID == r.PathValue("id") && c.UserID == userID
	})
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Category not found")
		return
	}
	s.categories[i].Name = name
	writeJSON(w, http.StatusOK, map[string]any{"data": categoryWire(s.categories[i])})
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	n := len(s.categories)
	s.categories = slices.DeleteFunc(s.categories, func(c model.Category) bool {
		return c.ID == id && c.UserID == userID
	})
	if len(s.categories) == n {
		writeMessage(w, http.StatusNotFound, "Category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) listBudgets(w http.ResponseWriter, _ *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := []map[string]any{}
	for _, b := range slices.Backward(s.budgets) {
		if b.UserID == userID {
			data = append(data, budgetWire(b))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) parseBudget(r *http.Request, userID string) (model.Budget, string) {
	var body struct {
		Category string   `json:"category"`
		Amount   *float64 `json:"amount"`
		Period   string   `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return model.Budget{}, "Invalid request body"
	}
	if !s.ownsCategory(userID, body.Category) {
		return model.Budget{}, "Category not found"
	}
	if body.Amount == nil || *body.Amount < 0 || *body.Amount != float64(int64(*body.Amount)) {
		return model.Budget{}, "Invalid amount"
	}
	p, err := period.Parse(body.Period)
	if err != nil {
		return model.Budget{}, "Invalid period"
	}
	return model.Budget{CategoryID: body.Category, AmountCents: int64(*body.Amount), Period: p}, ""
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, msg := s.parseBudget(r, userID)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	b.ID = s.nextID("bud")
	b.UserID = userID
	b.CreatedAt, b.UpdatedAt = Clock, Clock
	s.budgets = append(s.budgets, b)
	writeJSON(w, http.StatusCreated, map[string]any{"data": budgetWire(b)})
}

func (s *Server) updateBudget(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.budgets, func(b model.Budget) bool {
		return b.ID == r.PathValue("id") && b.UserID == userID
	})
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "Budget not found")
		return
	}
	b, msg := s.parseBudget(r, userID)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	prev := s.budgets[i]
	b.ID, b.UserID, b.CreatedAt, b.UpdatedAt = prev.ID, prev.UserID, prev.CreatedAt, Clock
	s.budgets[i] = b
	writeJSON(w, http.StatusOK, map[string]any{"data": budgetWire(b)})
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	n := len(s.budgets)
	s.budgets = slices.DeleteFunc(s.budgets, func(b model.Budget) bool {
		return b.ID == id && b.UserID == userID
	})
	if len(s.budgets) == n {
		writeMessage(w, http.StatusNotFound, "Budget not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// utilization sums expense transactions per budget category within the period.
func (s *Server) utilization(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := period.Parse(r.PathValue("period"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid period")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data := []map[string]any{}
	for _, b := range s.budgets {
		if b.UserID != userID || b.Period != p {
			continue
		}
		var used int64
		for _, t := range s.transactions {
			if t.UserID == userID && t.CategoryID == b.CategoryID && t.Type == model.TypeExpense && p.Contains(t.Date) {
				used += t.AmountCents
			}
		}
		row := budgetWire(b)
		row["utilization"] = used
		data = append(data, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) ownsCategory(userID, id string) bool {
	return slices.ContainsFunc(s.categories, func(c model.Category) bool {
		return c.ID == id && c.UserID == userID
	})
}

func transactionWire(t model.Transaction) map[string]any {
	return map[string]any{
		"id":            t.ID,
		"userid":        t.UserID,
		"vendor":        t.Vendor,
		"description":   t.Description,
		"category_id":   t.CategoryID,
		"category_name": t.CategoryName,
		"amount":        t.AmountCents,
		"type":          string(t.Type),
		"date":          t.Date.UTC().Format(time.RFC3339Nano),
		"created_at":    t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    t.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"deleted_at":    nil,
	}
}

func categoryWire(c model.Category) map[string]any {
	return map[string]any{"id": c.ID, "user": c.UserID, "name": c.Name}
}

func budgetWire(b model.Budget) map[string]any {
	return map[string]any{
		"id":         b.ID,
		"user":       b.UserID,
		"category":   b.CategoryID,
		"amount":     b.AmountCents,
		"period":     b.Period.Start().Format(time.RFC3339),
		"created_at": b.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": b.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"deleted_at": nil,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}
