package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetnux-newsletter/internal/config"
	"vetnux-newsletter/internal/db"
	"vetnux-newsletter/internal/middleware"
	"vetnux-newsletter/internal/test"
)

func testConfig(t *testing.T, extraOrigins string) *config.Config {
	t.Setenv("ADDITIONAL_CORS_ORIGINS", extraOrigins)
	t.Setenv("RATE_LIMIT_RPS", "100")
	t.Setenv("RATE_LIMIT_BURST", "100")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestHealthWithExtraOrigins(t *testing.T) {
	sqlxDB, _ := test.NewMockDB(t)
	logger, _ := logtest.NewNullLogger()
	h := newServer(testConfig(t, "https://vetnux.com.br, https://app.vetnux.com.br"), db.NewStore(sqlxDB), logger)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy","cors_origins":10}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestPreflightFromConfiguredOrigin(t *testing.T) {
	sqlxDB, _ := test.NewMockDB(t)
	logger, _ := logtest.NewNullLogger()
	h := newServer(testConfig(t, "https://vetnux.com.br"), db.NewStore(sqlxDB), logger)

	req := httptest.NewRequest(http.MethodOptions, "/subscribe", nil)
	req.Header.Set("Origin", "https://vetnux.com.br")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Less(t, rr.Code, 300)
	assert.Equal(t, "https://vetnux.com.br", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestPostSubscribe(t *testing.T) {
	// 1. Setup mock database
	sqlxDB, mock := test.NewMockDB(t)
	logger, _ := logtest.NewNullLogger()
	h := newServer(testConfig(t, ""), db.NewStore(sqlxDB), logger)

	// 2. Define mock expectations
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, email FROM vetnux_newsletter\.subscribers WHERE email = \$1`).WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))
	mock.ExpectQuery(`INSERT INTO vetnux_newsletter\.subscribers`).WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, "a@example.com"))
	mock.ExpectCommit()

	// 3. Call the handler
	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{"email":"a@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	// 4. Assertions
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":1,"email":"a@example.com"}`, rr.Body.String())
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostSubscribeInvalidEmailSkipsDatabase(t *testing.T) {
	sqlxDB, mock := test.NewMockDB(t)
	logger, _ := logtest.NewNullLogger()
	h := newServer(testConfig(t, ""), db.NewStore(sqlxDB), logger)

	for _, body := range []string{`{"email":""}`, `{"email":"   "}`, `{"email":"example.com"}`} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, body)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}
