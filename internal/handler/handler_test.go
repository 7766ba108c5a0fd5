package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository/kv"
	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type testServer struct {
	router http.Handler
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return ts.now }
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := storage.NewMemory(&kv.Dataset{
		Movies: []domain.Movie{
			{ID: 1, Title: "Heat", Genre: "Crime", UnitPrice: decimal.NewFromInt(5), TotalCopies: 1, AvailableCopies: 1},
		},
		Users: []domain.User{
			{ID: 1, Name: "Ana", Email: "ana@example.com"},
		},
	})
	policy := service.StaticPolicy{Policy: service.PerDayFee{Rate: decimal.NewFromInt(1)}}

	ledger := service.NewLedger(store.Movies, store.Users, store.Rentals, store.Tx, policy, domain.DefaultLoanPeriod, log)
	catalog := service.NewCatalogService(store.Movies, store.Users, store.Rentals, store.LateFees, store.Tx)
	reports := service.NewReportService(store.Movies, store.Users, store.Rentals, policy, store.Cache, time.Minute, 5, log)
	reports.Attach(ledger)

	ts.router = NewRouter(Handlers{
		Health: NewHealthHandler(map[string]storage.Pinger{
			"store": func(context.Context) error { return nil },
		}, time.Second),
		Movies:   NewMovieHandler(catalog),
		Users:    NewUserHandler(catalog),
		Rentals:  NewRentalHandler(ledger, clock),
		LateFees: NewLateFeeHandler(catalog),
		Reports:  NewReportHandler(reports, clock),
	}, log)

	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(method, path, reader))

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestRentalHandler_RentAndReturn(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/rentals", domain.RentRequest{MovieID: 1, UserID: 1})
	require.Equal(t, http.StatusCreated, w.Code)

	var rental domain.Rental
	require.NoError(t, json.Unmarshal(env.Data, &rental))
	assert.Equal(t, int64(1), rental.ID)
	assert.Equal(t, domain.RentalStatusActive, rental.Status)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), rental.DueDate.UTC())

	w, env = ts.do(t, http.MethodPost, "/api/v1/rentals", domain.RentRequest{MovieID: 1, UserID: 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_OPERATION", env.Error)
	assert.Equal(t, "movie unavailable", env.Message)

	ts.now = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	w, env = ts.do(t, http.MethodGet, "/api/v1/rentals/overdue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var overdue []domain.RentalView
	require.NoError(t, json.Unmarshal(env.Data, &overdue))
	require.Len(t, overdue, 1)
	assert.Equal(t, domain.RentalStatusOverdue, overdue[0].DisplayStatus)
	assert.Equal(t, 2, overdue[0].DaysOverdue)

	w, env = ts.do(t, http.MethodGet, "/api/v1/rentals/1/price", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quote domain.RentalPriceResponse
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.True(t, quote.TotalPrice.Equal(decimal.NewFromInt(7)))

	w, env = ts.do(t, http.MethodPut, "/api/v1/rentals/1/return", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &rental))
	assert.Equal(t, domain.RentalStatusReturned, rental.Status)
	require.NotNil(t, rental.LateFee)
	assert.True(t, rental.LateFee.Equal(decimal.NewFromInt(2)))

	w, env = ts.do(t, http.MethodPut, "/api/v1/rentals/1/return", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "rental not active", env.Message)

	w, env = ts.do(t, http.MethodGet, "/api/v1/rentals/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestRentalHandler_BadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{"missing user", http.MethodPost, "/api/v1/rentals", map[string]int{"movieId": 1}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/rentals", "not an object", http.StatusBadRequest},
		{"unknown movie", http.MethodPost, "/api/v1/rentals", domain.RentRequest{MovieID: 9, UserID: 1}, http.StatusNotFound},
		{"unknown user", http.MethodPost, "/api/v1/rentals", domain.RentRequest{MovieID: 1, UserID: 9}, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/rentals/abc", nil, http.StatusBadRequest},
		{"unknown rental", http.MethodGet, "/api/v1/rentals/42", nil, http.StatusNotFound},
		{"return unknown rental", http.MethodPut, "/api/v1/rentals/42/return", nil, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestCatalogHandlers(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/v1/movies", map[string]interface{}{
		"title": "Alien", "genre": "Horror", "unitPrice": "4.50", "totalCopies": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var movie domain.Movie
	require.NoError(t, json.Unmarshal(env.Data, &movie))
	assert.Equal(t, int64(2), movie.ID)
	assert.Equal(t, 2, movie.AvailableCopies)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/movies", map[string]interface{}{
		"title": "Free", "genre": "Drama", "unitPrice": "-1", "totalCopies": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/v1/movies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var movies []domain.Movie
	require.NoError(t, json.Unmarshal(env.Data, &movies))
	assert.Len(t, movies, 2)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/users", map[string]string{"name": "Ben", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.do(t, http.MethodPost, "/api/v1/users", map[string]string{"name": "Ana 2", "email": "ana@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already registered", env.Message)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/late-fees", map[string]interface{}{
		"daysLateStart": 1, "daysLateEnd": 3, "feePerDay": "2",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/late-fees", map[string]interface{}{
		"daysLateStart": 3, "daysLateEnd": 1, "feePerDay": "2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodDelete, "/api/v1/movies/2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/movies/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlers(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/api/v1/rentals", domain.RentRequest{MovieID: 1, UserID: 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := ts.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.DashboardStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.ActiveRentals)
	require.Len(t, stats.RecentRentals, 1)
	assert.Equal(t, "Heat", stats.RecentRentals[0].MovieTitle)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/reports/popular?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/v1/reports/popular?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var popular []domain.PopularMovie
	require.NoError(t, json.Unmarshal(env.Data, &popular))
	require.Len(t, popular, 1)
	assert.Equal(t, 1, popular[0].RentalCount)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/reports/revenue", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/reports/late-returns", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler(t *testing.T) {
	ok := NewHealthHandler(map[string]storage.Pinger{"database": func(context.Context) error { return nil }}, time.Second)
	w := httptest.NewRecorder()
	ok.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	failing := NewHealthHandler(map[string]storage.Pinger{"redis": func(context.Context) error { return errors.New("refused") }}, time.Second)
	w = httptest.NewRecorder()
	failing.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "failed: refused")

	w = httptest.NewRecorder()
	failing.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
