package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funds/internal/core"
	"funds/internal/log"
	"funds/internal/services"
	"funds/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	svc := services.NewLedgerService(storage.NewCollections(storage.NewMemoryStore()), nil)
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Config{Output: io.Discard})
	}
	cfg.Currency = "USD"
	srv := NewServer(cfg, svc)
	t.Cleanup(srv.rateLimiter.stop)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

type summaryBody struct {
	Total        core.Money `json:"total"`
	Display      string     `json:"display"`
	Transactions []struct {
		ID     string     `json:"id"`
		Note   string     `json:"note"`
		Amount core.Money `json:"amount"`
		IsLoan bool       `json:"isLoan"`
		Loan   *struct {
			Remaining core.Money `json:"remaining"`
			Settled   bool       `json:"settled"`
		} `json:"loan"`
	} `json:"transactions"`
	Targets []progressBody `json:"targets"`
}

type progressBody struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Remaining  core.Money      `json:"remaining"`
	Complete   bool            `json:"complete"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func summary(t *testing.T, srv *Server) summaryBody {
	t.Helper()
	rr := do(t, srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	return decode[summaryBody](t, rr)
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.True(t, strings.HasPrefix(rr.Header().Get(requestIDHeader), "req_"))
}

func TestRequestIDEcho(t *testing.T) {
	srv := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "client-42")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "client-42", rr.Header().Get(requestIDHeader))
}

func TestLedgerScenario(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv, http.MethodPost, "/api/transactions", `{"kind":"income","note":"salary","amount":"1000"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "1000.00", summary(t, srv).Total.String())

	rr = do(t, srv, http.MethodPost, "/api/transactions", `{"kind":"outgoing","note":"rent","amount":300}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "700.00", summary(t, srv).Total.String())

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"outgoing","note":"borrowed","amount":"200","isLoan":true,"dueDate":"2030-03-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	loan := decode[struct {
		ID      string `json:"id"`
		DueDate string `json:"dueDate"`
	}](t, rr)
	assert.Equal(t, "2030-03-01", loan.DueDate)

	s := summary(t, srv)
	assert.Equal(t, "500.00", s.Total.String())
	assert.Equal(t, "$500.00", s.Display)
	require.Len(t, s.Transactions, 3)
	assert.Equal(t, "borrowed", s.Transactions[0].Note, "newest first")

	rr = do(t, srv, http.MethodPost, "/api/transactions/"+loan.ID+"/repay", `{"amount":"50"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	s = decode[summaryBody](t, rr)
	assert.Equal(t, "550.00", s.Total.String())
	require.NotNil(t, s.Transactions[0].Loan)
	assert.Equal(t, "150.00", s.Transactions[0].Loan.Remaining.String())

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+loan.ID, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "550.00", summary(t, srv).Total.String())

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+loan.ID+"?confirm=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "700.00", decode[summaryBody](t, rr).Total.String())
}

func TestAddTransaction_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty note", `{"kind":"income","note":"  ","amount":"10"}`, http.StatusUnprocessableEntity},
		{"bad amount", `{"kind":"income","note":"x","amount":"abc"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"kind":"income","note":"x","amount":0}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"kind":"income","note":"x","amount":-5}`, http.StatusUnprocessableEntity},
		{"bad kind", `{"kind":"gift","note":"x","amount":"10"}`, http.StatusUnprocessableEntity},
		{"loan without due date", `{"kind":"income","note":"x","amount":"10","isLoan":true}`, http.StatusUnprocessableEntity},
		{"loan with bad due date", `{"kind":"income","note":"x","amount":"10","isLoan":true,"dueDate":"01/02/2025"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"kind":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Config{})
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rr).Error)
			assert.Empty(t, summary(t, srv).Transactions)
		})
	}
}

func TestRepayAndDelete_Errors(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := do(t, srv, http.MethodPost, "/api/transactions", `{"kind":"income","note":"gift","amount":"10"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[struct {
		ID string `json:"id"`
	}](t, rr).ID

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/transactions/"+id+"/repay", `{"amount":"5"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/transactions/nope/repay", `{"amount":"5"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/transactions/"+id+"/repay", `{"amount":"0"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/transactions/nope?confirm=true", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/api/transactions", "").Code)
}

func TestTargets(t *testing.T) {
	srv := newTestServer(t, Config{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions", `{"kind":"income","note":"savings","amount":"500"}`).Code)

	rr := do(t, srv, http.MethodPost, "/api/targets", `{"name":"bike","amount":"1000"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[progressBody](t, rr)
	assert.Equal(t, "bike", created.Name)
	assert.Equal(t, "50", created.Percentage.String())
	assert.Equal(t, "500.00", created.Remaining.String())
	assert.False(t, created.Complete)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/targets", `{"name":"","amount":"10"}`).Code)

	rr = do(t, srv, http.MethodGet, "/api/targets", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Total   core.Money     `json:"total"`
		Targets []progressBody `json:"targets"`
	}](t, rr)
	assert.Equal(t, "500.00", list.Total.String())
	require.Len(t, list.Targets, 1)
	assert.Equal(t, created.ID, list.Targets[0].ID)

	path := "/api/targets/" + strconv.FormatInt(created.ID, 10)
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/targets/bike?confirm=true", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, path+"?confirm=true", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, path+"?confirm=true", "").Code)
	assert.Empty(t, summary(t, srv).Targets)
}

func TestLoans(t *testing.T) {
	srv := newTestServer(t, Config{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"income","note":"lent","amount":"100","isLoan":true,"dueDate":"2001-01-01"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"income","note":"plain","amount":"100"}`).Code)

	rr := do(t, srv, http.MethodGet, "/api/loans", "")
	require.Equal(t, http.StatusOK, rr.Code)
	loans := decode[[]struct {
		Note     string           `json:"note"`
		Dueness  services.Dueness `json:"dueness"`
		DaysLeft int              `json:"daysLeft"`
	}](t, rr)
	require.Len(t, loans, 1)
	assert.Equal(t, "lent", loans[0].Note)
	assert.Equal(t, services.DueOverdue, loans[0].Dueness)
	assert.Negative(t, loans[0].DaysLeft)
}

func TestExportImportReset(t *testing.T) {
	srv := newTestServer(t, Config{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions", `{"kind":"income","note":"salary","amount":"1000"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/targets", `{"name":"holiday","amount":"2000"}`).Code)

	rr := do(t, srv, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), exportFileName)
	exported := rr.Body.String()
	doc, err := core.DecodeDocument(strings.NewReader(exported))
	require.NoError(t, err)
	assert.Len(t, doc.Transactions, 1)
	assert.Len(t, doc.Targets, 1)

	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/api/reset", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodPost, "/api/reset?confirm=true", "").Code)
	s := summary(t, srv)
	assert.Empty(t, s.Transactions)
	assert.Empty(t, s.Targets)
	assert.Equal(t, "0.00", s.Total.String())

	rr = do(t, srv, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "1000.00", decode[summaryBody](t, rr).Total.String())

	rr = do(t, srv, http.MethodGet, "/api/export", "")
	assert.Equal(t, exported, rr.Body.String(), "export after import is byte identical")

	rr = do(t, srv, http.MethodPost, "/api/import", `{"transactions": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "1000.00", summary(t, srv).Total.String(), "failed import writes nothing")
}

func TestRateLimit_MutatingRequests(t *testing.T) {
	srv := newTestServer(t, Config{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodPost, "/api/reset?confirm=true", "").Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/reset?confirm=true", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), srv.metrics.rateLimitHits)

	// Reads are never limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/summary", "").Code)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newRateLimiter(1)
	defer rl.stop()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a", nil))
	assert.False(t, rl.allow("a", nil))
	assert.True(t, rl.allow("b", nil))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("a", nil))

	now = now.Add(12 * time.Minute)
	assert.Equal(t, 2, rl.cleanupStaleEntries())
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.9:5555", "", "", "203.0.113.9"},
		{"untrusted peer ignores forwarding", "203.0.113.9:5555", "198.51.100.1", "", "203.0.113.9"},
		{"trusted proxy forwards", "10.0.0.2:5555", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:5555", "", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy invalid header", "192.168.1.1:5555", "garbage", "", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, extractClientIP(req))
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	metrics := &securityMetrics{}

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	assert.False(t, detectSuspiciousRequest(req, metrics))

	req = httptest.NewRequest(http.MethodGet, "/.env", nil)
	assert.True(t, detectSuspiciousRequest(req, metrics))

	req = httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	assert.True(t, detectSuspiciousRequest(req, metrics))

	assert.Equal(t, int64(2), metrics.suspiciousRequests)
}

func TestAmountField(t *testing.T) {
	var body struct {
		A amountField `json:"a"`
		B amountField `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12,34","b":12.5}`), &body))

	a, err := body.A.Money()
	require.NoError(t, err)
	assert.Equal(t, core.Cents(1234), a)

	b, err := body.B.Money()
	require.NoError(t, err)
	assert.Equal(t, core.Cents(1250), b)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(core.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(core.ErrNotConfirmed))
	assert.Equal(t, http.StatusBadRequest, statusFor(core.ErrInvalidDocument))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(core.ErrEmptyName))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(&http.MaxBytesError{Limit: 1}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
