package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/loungeaccess-backend/api"
	"github.com/semanticallynull/loungeaccess-backend/customer"
	"github.com/semanticallynull/loungeaccess-backend/internal/kvstore"
	"github.com/semanticallynull/loungeaccess-backend/internal/o11y"
)

const publicBaseURL = "https://lounge.example.com"

type TestServer struct {
	Router *gin.Engine
	Repo   *customer.Repository
	KV     kvstore.Store
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWithStore(t, kvstore.NewMemory())
}

// NewTestServerWithStore runs the full router on top of the given backend.
func NewTestServerWithStore(t *testing.T, kv kvstore.Store) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	obs := &o11y.Observability{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry: prometheus.NewRegistry(),
	}

	repo := customer.NewRepository(customer.NewKVStore(kv, customer.DefaultStorageKey, obs.Logger), obs.Logger)
	a := api.New(repo, obs, publicBaseURL, "", "")

	return &TestServer{
		Router: a.Router(),
		Repo:   repo,
		KV:     kv,
	}
}

func (ts *TestServer) Close() {
	ts.KV.Close()
}

func (ts *TestServer) GET(path string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, path, nil)
}

func (ts *TestServer) POST(path string, body any) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, path, body)
}

func (ts *TestServer) PUT(path string, body any) *httptest.ResponseRecorder {
	return ts.do(http.MethodPut, path, body)
}

func (ts *TestServer) DELETE(path string) *httptest.ResponseRecorder {
	return ts.do(http.MethodDelete, path, nil)
}

func (ts *TestServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

type customerResponse struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	MembershipType   string    `json:"membershipType"`
	MembershipNumber string    `json:"membershipNumber"`
	ExpiryDate       time.Time `json:"expiryDate"`
	CreatedAt        time.Time `json:"createdAt"`
	Visits           int       `json:"visits"`
}

type pageResponse struct {
	Customers  []customerResponse `json:"customers"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
	TotalItems int                `json:"totalItems"`
}

type eligibilityResponse struct {
	Expired      bool `json:"expired"`
	NoVisitsLeft bool `json:"noVisitsLeft"`
	CanAccess    bool `json:"canAccess"`
}

type verificationErrorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type verificationResponse struct {
	State         string                     `json:"state"`
	Customer      *customerResponse          `json:"customer"`
	Eligibility   *eligibilityResponse       `json:"eligibility"`
	Error         *verificationErrorResponse `json:"error"`
	VisitRecorded bool                       `json:"visitRecorded"`
}

func customerForm(first, last, tier string, visits int, expiry time.Time) map[string]any {
	return map[string]any{
		"firstName":      first,
		"lastName":       last,
		"email":          first + "@example.com",
		"membershipType": tier,
		"expiryDate":     expiry.UTC().Format(time.RFC3339),
		"visits":         visits,
	}
}

// CreateCustomer creates a customer through the API and fails the test otherwise.
func (ts *TestServer) CreateCustomer(t *testing.T, form map[string]any) customerResponse {
	t.Helper()
	w := ts.POST("/api/customers", form)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	return decode[customerResponse](t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response: %v: %s", err, w.Body.String())
	}
	return v
}
