package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/pkg/apikey"
	"github.com/harborline/freight-notifier/pkg/observability"
)

type mockChain struct {
	requests   []dispatch.Request
	err        error
	detail     string
	candidates []dispatch.CandidateStatus
}

func (c *mockChain) Dispatch(ctx context.Context, req dispatch.Request) (string, string, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return "", c.detail, c.err
	}
	return "smtp-primary", "smtp: accepted", nil
}

func (c *mockChain) Candidates() []dispatch.CandidateStatus {
	return c.candidates
}

func testHandler(chain *mockChain) *Handler {
	return &Handler{
		chain: chain,
		identities: dispatch.NewDirectory([]dispatch.Identity{
			{Name: "mumbai", FromName: "Harborline Mumbai", FromEmail: "ops.mumbai@harborline.test", MatchTags: []string{"mumbai"}},
		}),
		logger: observability.NewLogger("handler-test", "test", "error"),
	}
}

func TestHandler_MilestoneEmail(t *testing.T) {
	tests := []struct {
		name           string
		reqBody        string
		chainErr       error
		chainDetail    string
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "Valid Request",
			reqBody: `{"booking_no":"HBL-4471","customer_name":"Acme Exports",
				"customer_emails":"buyer@acme.test","sales_emails":"iyer@harborline.test",
				"vessel":"MV Thalassa","sob_date":"09/03/2026"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `"transport":"smtp-primary"`,
		},
		{
			name:           "Invalid JSON",
			reqBody:        `{broken`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid JSON payload",
		},
		{
			name:           "Missing Booking No",
			reqBody:        `{"customer_emails":"buyer@acme.test"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "booking_no is required",
		},
		{
			name:           "Missing Recipients",
			reqBody:        `{"booking_no":"HBL-1","customer_emails":" , "}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "customer_emails is required",
		},
		{
			name:           "All Providers Failed",
			reqBody:        `{"booking_no":"HBL-1","customer_emails":"buyer@acme.test"}`,
			chainErr:       errors.New("all providers failed"),
			chainDetail:    "smtp: auth error; resend: timeout",
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "smtp: auth error; resend: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &mockChain{err: tt.chainErr, detail: tt.chainDetail}
			h := testHandler(chain)

			req := httptest.NewRequest("POST", "/api/milestone-email", strings.NewReader(tt.reqBody))
			w := httptest.NewRecorder()

			h.MilestoneEmail(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("Expected body to contain '%s', got '%s'", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestHandler_SellingEmail(t *testing.T) {
	tests := []struct {
		name           string
		reqBody        string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Valid Request",
			reqBody:        `{"booking_no":"HBL-9","sales_emails":"iyer@harborline.test","buy_rate":"USD 1200","sell_rate":"USD 1450"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"sent"`,
		},
		{
			name:           "Missing Sales Recipients",
			reqBody:        `{"booking_no":"HBL-9"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "sales_emails is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &mockChain{}
			h := testHandler(chain)

			req := httptest.NewRequest("POST", "/api/selling-email", strings.NewReader(tt.reqBody))
			w := httptest.NewRecorder()

			h.SellingEmail(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("Expected body to contain '%s', got '%s'", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestHandler_DeliveryStatus(t *testing.T) {
	chain := &mockChain{candidates: []dispatch.CandidateStatus{
		{Name: "smtp", Kind: "smtp", Configured: false},
		{Name: "resend", Kind: "http", Configured: true},
		{Name: "sendgrid", Kind: "http", Configured: true},
	}}
	h := testHandler(chain)

	req := httptest.NewRequest("GET", "/api/delivery-status", nil)
	w := httptest.NewRecorder()

	h.DeliveryStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	// First configured candidate wins.
	if !strings.Contains(w.Body.String(), `"preferred":"resend"`) {
		t.Errorf("Expected preferred resend, got '%s'", w.Body.String())
	}
}

func TestHandler_AuthMiddleware(t *testing.T) {
	secret := "test-secret"
	key, hash, err := apikey.GenerateKey("nk", secret)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	tests := []struct {
		name           string
		configuredHash string
		header         string
		expectedStatus int
	}{
		{"Valid Key", hash, key, http.StatusOK},
		{"Wrong Key", hash, "nk_wrong", http.StatusUnauthorized},
		{"Missing Key", hash, "", http.StatusUnauthorized},
		{"Auth Disabled", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(&mockChain{})
			h.apiSecret = secret
			h.apiKeyHash = tt.configuredHash

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/api/delivery-status", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()

			h.AuthMiddleware(next).ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
