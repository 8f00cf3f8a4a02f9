package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/http/handlers"
	"github.com/unmablr/meetreg/internal/notifications"
	"github.com/unmablr/meetreg/internal/variant"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// Fake store implementation of the handlers.RegistrationStore interface

type fakeRegistrationsStore struct {
	insertFn          func(ctx context.Context, reg registration.Registration) error
	getFn             func(ctx context.Context, id string) (registration.Registration, error)
	contactConflictFn func(ctx context.Context, email, whatsapp, excludeID string) (*registration.ContactConflict, error)
	txnInUseFn        func(ctx context.Context, txnID, excludeID string) (bool, error)
	findByRefFn       func(ctx context.Context, ref string) (registration.Registration, error)
	listFn            func(ctx context.Context, q registration.ListQuery) ([]registration.Registration, int, error)
	listAllFn         func(ctx context.Context) ([]registration.Registration, error)
	updateFn          func(ctx context.Context, reg registration.Registration) error
	deleteFn          func(ctx context.Context, id string) error
	markSentFn        func(ctx context.Context, id string) error
	listUnnotifiedFn  func(ctx context.Context) ([]registration.Registration, error)
}

func (f *fakeRegistrationsStore) Insert(ctx context.Context, reg registration.Registration) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, reg)
	}
	return nil
}

func (f *fakeRegistrationsStore) GetByID(ctx context.Context, id string) (registration.Registration, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return registration.Registration{}, nil
}

func (f *fakeRegistrationsStore) FindContactConflict(ctx context.Context, email, whatsapp, excludeID string) (*registration.ContactConflict, error) {
	if f.contactConflictFn != nil {
		return f.contactConflictFn(ctx, email, whatsapp, excludeID)
	}
	return nil, nil
}

func (f *fakeRegistrationsStore) TransactionIDInUse(ctx context.Context, txnID, excludeID string) (bool, error) {
	if f.txnInUseFn != nil {
		return f.txnInUseFn(ctx, txnID, excludeID)
	}
	return false, nil
}

func (f *fakeRegistrationsStore) FindByReference(ctx context.Context, ref string) (registration.Registration, error) {
	if f.findByRefFn != nil {
		return f.findByRefFn(ctx, ref)
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (f *fakeRegistrationsStore) List(ctx context.Context, q registration.ListQuery) ([]registration.Registration, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return nil, 0, nil
}

func (f *fakeRegistrationsStore) ListAll(ctx context.Context) ([]registration.Registration, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeRegistrationsStore) Update(ctx context.Context, reg registration.Registration) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, reg)
	}
	return nil
}

func (f *fakeRegistrationsStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeRegistrationsStore) MarkEmailSent(ctx context.Context, id string) error {
	if f.markSentFn != nil {
		return f.markSentFn(ctx, id)
	}
	return nil
}

func (f *fakeRegistrationsStore) ListUnnotified(ctx context.Context) ([]registration.Registration, error) {
	if f.listUnnotifiedFn != nil {
		return f.listUnnotifiedFn(ctx)
	}
	return nil, nil
}

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, in notifications.SendConfirmationInput) error {
	f.calls++
	return f.err
}

// small helper which returns a gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func newRegHandler(store *fakeRegistrationsStore, n notifications.Notifier) *handlers.RegistrationHandler {
	return handlers.NewRegistrationHandler(store, variant.AlumniMeet, n, nil)
}

const validCreateBody = `{
	"name": "Anita Thomas",
	"email": "Anita@Example.com",
	"whatsappNumber": "9876543210",
	"gender": "female",
	"cohort": "Batch 12",
	"attendees": {"adults": 2, "children": 1, "infants": 0},
	"foodChoice": "veg",
	"expectedArrivalTime": "8-11",
	"overnightAccommodation": "yes",
	"contributionAmount": 650,
	"paymentTransactionId": "TXN-1001"
}`

func TestCreateRegistrationHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeRegistrationsStore)
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           validCreateBody,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "validation_error_collects_messages",
			body:           `{"name": "A", "email": "anita@example.com", "whatsappNumber": "12345", "gender": "female", "cohort": "Batch 99", "contributionAmount": 650, "paymentTransactionId": "TXN-1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate_contact",
			body: validCreateBody,
			storeSetup: func(f *fakeRegistrationsStore) {
				f.contactConflictFn = func(ctx context.Context, email, whatsapp, excludeID string) (*registration.ContactConflict, error) {
					return &registration.ContactConflict{
						Email:          "anita@example.com",
						WhatsappNumber: "9876543210",
						RegisteredAt:   time.Now().UTC(),
					}, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate_transaction_is_generic",
			body: validCreateBody,
			storeSetup: func(f *fakeRegistrationsStore) {
				f.txnInUseFn = func(ctx context.Context, txnID, excludeID string) (bool, error) {
					return true, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "insert_race_rejected_as_duplicate",
			body: validCreateBody,
			storeSetup: func(f *fakeRegistrationsStore) {
				f.insertFn = func(ctx context.Context, reg registration.Registration) error {
					return registration.ErrDuplicateContact
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "store_error",
			body: validCreateBody,
			storeSetup: func(f *fakeRegistrationsStore) {
				f.insertFn = func(ctx context.Context, reg registration.Registration) error {
					return errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRegistrationsStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := newRegHandler(store, &fakeNotifier{})
			r := setupRouter(http.MethodPost, "/api/registrations", h.Create)

			req := httptest.NewRequest(http.MethodPost, "/api/registrations", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestCreateRegistrationHandler_ResponsePayload(t *testing.T) {
	var inserted registration.Registration
	store := &fakeRegistrationsStore{
		insertFn: func(ctx context.Context, reg registration.Registration) error {
			inserted = reg
			return nil
		},
	}

	notifier := &fakeNotifier{}
	h := newRegHandler(store, notifier)
	r := setupRouter(http.MethodPost, "/api/registrations", h.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/registrations", bytes.NewBufferString(validCreateBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			RegistrationID     string `json:"registrationId"`
			TotalAttendees     int    `json:"totalAttendees"`
			ContributionAmount int    `json:"contributionAmount"`
			PaymentStatus      string `json:"paymentStatus"`
			Email              string `json:"email"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if !resp.Success {
		t.Fatalf("expected success=true")
	}
	if !strings.HasPrefix(resp.Data.RegistrationID, "BTH4") {
		t.Fatalf("registrationId %q missing variant prefix", resp.Data.RegistrationID)
	}
	if resp.Data.TotalAttendees != 3 {
		t.Fatalf("got totalAttendees %d, want 3", resp.Data.TotalAttendees)
	}
	if resp.Data.PaymentStatus != registration.PaymentPending {
		t.Fatalf("got paymentStatus %q, want pending", resp.Data.PaymentStatus)
	}
	if resp.Data.Email != "anita@example.com" {
		t.Fatalf("email not lowercased: %q", resp.Data.Email)
	}
	if inserted.PaymentStatus != registration.PaymentPending {
		t.Fatalf("stored paymentStatus %q, want pending", inserted.PaymentStatus)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected 1 confirmation attempt, got %d", notifier.calls)
	}
}

func TestCreateRegistrationHandler_DuplicateContactEcho(t *testing.T) {
	registered := time.Date(2026, 1, 10, 6, 30, 0, 0, time.UTC)

	store := &fakeRegistrationsStore{
		contactConflictFn: func(ctx context.Context, email, whatsapp, excludeID string) (*registration.ContactConflict, error) {
			return &registration.ContactConflict{
				Email:          "anita@example.com",
				WhatsappNumber: "9876543210",
				RegisteredAt:   registered,
			}, nil
		},
	}

	h := newRegHandler(store, &fakeNotifier{})
	r := setupRouter(http.MethodPost, "/api/registrations", h.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/registrations", bytes.NewBufferString(validCreateBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// duplicates are client errors, same status as validation failures
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Success  bool `json:"success"`
		Existing struct {
			Email          string `json:"email"`
			WhatsappNumber string `json:"whatsappNumber"`
			RegisteredAt   string `json:"registrationDate"`
		} `json:"existingRegistration"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected success=false")
	}
	if resp.Existing.Email != "anita@example.com" || resp.Existing.WhatsappNumber != "9876543210" {
		t.Fatalf("existing registration not echoed: %+v", resp.Existing)
	}
	if resp.Existing.RegisteredAt == "" {
		t.Fatalf("expected the original registration date in the echo")
	}
}

func TestCreateRegistrationHandler_NotifyFailureStillCreates(t *testing.T) {
	markCalls := 0
	store := &fakeRegistrationsStore{
		markSentFn: func(ctx context.Context, id string) error {
			markCalls++
			return nil
		},
	}

	h := newRegHandler(store, &fakeNotifier{err: errors.New("provider down")})
	r := setupRouter(http.MethodPost, "/api/registrations", h.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/registrations", bytes.NewBufferString(validCreateBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if markCalls != 0 {
		t.Fatalf("email flag must stay unset on send failure")
	}
}

func TestListRegistrationsHandler_Pagination(t *testing.T) {
	makeRegs := func(n int) []registration.Registration {
		out := make([]registration.Registration, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, registration.Registration{
				ID:        newUUID(),
				Name:      "Reg",
				CreatedAt: time.Now().UTC(),
			})
		}
		return out
	}

	tests := []struct {
		name           string
		url            string
		storeSetup     func(*fakeRegistrationsStore)
		wantStatusCode int
		wantCount      int
		wantPagination map[string]interface{}
	}{
		{
			name: "defaults_and_total_pages",
			url:  "/api/registrations",
			storeSetup: func(f *fakeRegistrationsStore) {
				f.listFn = func(ctx context.Context, q registration.ListQuery) ([]registration.Registration, int, error) {
					if q.Page != 1 || q.Limit != 10 {
						return nil, 0, errors.New("defaults not applied")
					}
					if q.SortBy != "createdAt" || q.SortOrder != "desc" {
						return nil, 0, errors.New("sort defaults not applied")
					}
					return makeRegs(10), 25, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      10,
			wantPagination: map[string]interface{}{
				"currentPage":        float64(1),
				"totalPages":         float64(3),
				"totalRegistrations": float64(25),
				"hasNextPage":        true,
				"hasPrevPage":        false,
				"limit":              float64(10),
			},
		},
		{
			name: "last_page",
			url:  "/api/registrations?page=3&limit=10",
			storeSetup: func(f *fakeRegistrationsStore) {
				f.listFn = func(ctx context.Context, q registration.ListQuery) ([]registration.Registration, int, error) {
					return makeRegs(5), 25, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      5,
			wantPagination: map[string]interface{}{
				"currentPage":        float64(3),
				"totalPages":         float64(3),
				"totalRegistrations": float64(25),
				"hasNextPage":        false,
				"hasPrevPage":        true,
				"limit":              float64(10),
			},
		},
		{
			name: "beyond_last_page_is_empty_not_error",
			url:  "/api/registrations?page=9&limit=10",
			storeSetup: func(f *fakeRegistrationsStore) {
				f.listFn = func(ctx context.Context, q registration.ListQuery) ([]registration.Registration, int, error) {
					return []registration.Registration{}, 25, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantPagination: map[string]interface{}{
				"currentPage":        float64(9),
				"totalPages":         float64(3),
				"totalRegistrations": float64(25),
				"hasNextPage":        false,
				"hasPrevPage":        true,
				"limit":              float64(10),
			},
		},
		{
			name:           "limit_out_of_range",
			url:            "/api/registrations?limit=500",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad_sort_field",
			url:            "/api/registrations?sortBy=paymentTransactionId",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRegistrationsStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := newRegHandler(store, &fakeNotifier{})
			r := setupRouter(http.MethodGet, "/api/registrations", h.List)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantPagination != nil {
				// count and pagination live at the top level; data is
				// the record array itself.
				var resp struct {
					Success    bool                   `json:"success"`
					Count      int                    `json:"count"`
					Pagination map[string]interface{} `json:"pagination"`
					Data       []json.RawMessage      `json:"data"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if !resp.Success {
					t.Fatalf("expected success=true")
				}
				for k, want := range tt.wantPagination {
					if got := resp.Pagination[k]; got != want {
						t.Fatalf("pagination[%s]=%v, want %v", k, got, want)
					}
				}
				if resp.Count != tt.wantCount {
					t.Fatalf("got count %d, want %d", resp.Count, tt.wantCount)
				}
				if len(resp.Data) != tt.wantCount {
					t.Fatalf("data has %d records, want %d", len(resp.Data), tt.wantCount)
				}
			}
		})
	}
}

func TestVerifyRegistrationHandler_Toggle(t *testing.T) {
	id := newUUID()

	current := registration.Registration{ID: id, Name: "Anita", CreatedAt: time.Now().UTC()}

	store := &fakeRegistrationsStore{
		getFn: func(ctx context.Context, gotID string) (registration.Registration, error) {
			if gotID != id {
				return registration.Registration{}, registration.ErrNotFound
			}
			return current, nil
		},
		updateFn: func(ctx context.Context, reg registration.Registration) error {
			current = reg
			return nil
		},
	}

	h := newRegHandler(store, &fakeNotifier{})
	r := setupRouter(http.MethodPatch, "/api/registrations/:id/verify", h.Verify)

	patch := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/registrations/"+id+"/verify", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// first toggle: verified
	w := patch()
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if !current.Verified {
		t.Fatalf("expected verified after first toggle")
	}
	if current.VerificationDate == nil {
		t.Fatalf("expected verification date stamped")
	}
	firstStamp := *current.VerificationDate

	// second toggle: unverified, stamp survives for the audit trail
	w = patch()
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if current.Verified {
		t.Fatalf("expected unverified after second toggle")
	}
	if current.VerificationDate == nil || !current.VerificationDate.Equal(firstStamp) {
		t.Fatalf("expected verification date kept on unverify")
	}

	// third toggle: verified again, date re-stamped
	time.Sleep(5 * time.Millisecond)
	w = patch()
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if !current.Verified {
		t.Fatalf("expected verified after third toggle")
	}
	if !current.VerificationDate.After(firstStamp) {
		t.Fatalf("expected verification date re-stamped on re-verify")
	}
}

func TestPaymentHandler(t *testing.T) {
	id := newUUID()

	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeRegistrationsStore, *registration.Registration)
		wantStatusCode int
		check          func(t *testing.T, saved *registration.Registration)
	}{
		{
			name:           "completed_auto_verifies",
			body:           `{"paymentStatus": "completed"}`,
			wantStatusCode: http.StatusOK,
			check: func(t *testing.T, saved *registration.Registration) {
				if saved.PaymentStatus != registration.PaymentCompleted {
					t.Fatalf("got paymentStatus %q", saved.PaymentStatus)
				}
				if !saved.Verified {
					t.Fatalf("expected auto-verify on completed payment")
				}
				if saved.VerifiedBy != "system" {
					t.Fatalf("got verifiedBy %q, want system", saved.VerifiedBy)
				}
			},
		},
		{
			name:           "failed_does_not_unverify",
			body:           `{"paymentStatus": "failed"}`,
			storeSetup: func(f *fakeRegistrationsStore, saved *registration.Registration) {
				now := time.Now().UTC()
				f.getFn = func(ctx context.Context, gotID string) (registration.Registration, error) {
					return registration.Registration{ID: id, Verified: true, VerificationDate: &now}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			check: func(t *testing.T, saved *registration.Registration) {
				if !saved.Verified {
					t.Fatalf("verification must never be unset by payment changes")
				}
			},
		},
		{
			name: "transaction_id_in_use",
			body: `{"paymentStatus": "completed", "paymentTransactionId": "TXN-X"}`,
			storeSetup: func(f *fakeRegistrationsStore, saved *registration.Registration) {
				f.txnInUseFn = func(ctx context.Context, txnID, excludeID string) (bool, error) {
					if excludeID != id {
						return false, errors.New("own record not excluded")
					}
					return true, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid_status",
			body:           `{"paymentStatus": "paid"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var saved registration.Registration

			store := &fakeRegistrationsStore{
				getFn: func(ctx context.Context, gotID string) (registration.Registration, error) {
					return registration.Registration{ID: id, CreatedAt: time.Now().UTC()}, nil
				},
				updateFn: func(ctx context.Context, reg registration.Registration) error {
					saved = reg
					return nil
				},
			}
			if tt.storeSetup != nil {
				tt.storeSetup(store, &saved)
			}

			h := newRegHandler(store, &fakeNotifier{})
			r := setupRouter(http.MethodPatch, "/api/registrations/:id/payment", h.Payment)

			req := httptest.NewRequest(http.MethodPatch, "/api/registrations/"+id+"/payment", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.check != nil {
				tt.check(t, &saved)
			}
		})
	}
}

func TestSearchRegistrationHandler(t *testing.T) {
	reg := registration.Registration{
		ID:             newUUID(),
		Name:           "Anita Thomas",
		Email:          "anita@example.com",
		WhatsappNumber: "9876543210",
		Cohort:         "Batch 12",
		Extension:      registration.Extension{StateUT: "Kerala", District: "Idukki"},
		PaymentStatus:  registration.PaymentCompleted,
		CreatedAt:      time.Now().UTC(),
	}

	tests := []struct {
		name           string
		query          string
		storeSetup     func(*fakeRegistrationsStore)
		wantStatusCode int
	}{
		{
			name:  "found_by_email",
			query: "anita@example.com",
			storeSetup: func(f *fakeRegistrationsStore) {
				f.findByRefFn = func(ctx context.Context, ref string) (registration.Registration, error) {
					return reg, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "not_found",
			query:          "nobody@example.com",
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRegistrationsStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := newRegHandler(store, &fakeNotifier{})
			r := setupRouter(http.MethodGet, "/api/registrations/search/:query", h.Search)

			req := httptest.NewRequest(http.MethodGet, "/api/registrations/search/"+tt.query, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				body := w.Body.String()
				if strings.Contains(body, "paymentTransactionId") {
					t.Fatalf("public search must not disclose transaction ids: %s", body)
				}
				if !strings.Contains(body, "BTH4") {
					t.Fatalf("expected derived registrationId in response: %s", body)
				}
				if !strings.Contains(body, `"district":"Idukki"`) {
					t.Fatalf("expected district in response: %s", body)
				}
			}
		})
	}
}

func TestNotifySweepHandler_ContinuesOnError(t *testing.T) {
	regs := []registration.Registration{
		{ID: newUUID(), Email: "a@example.com", CreatedAt: time.Now().UTC()},
		{ID: newUUID(), Email: "b@example.com", CreatedAt: time.Now().UTC()},
		{ID: newUUID(), Email: "c@example.com", CreatedAt: time.Now().UTC()},
	}

	marked := map[string]bool{}
	store := &fakeRegistrationsStore{
		listUnnotifiedFn: func(ctx context.Context) ([]registration.Registration, error) {
			return regs, nil
		},
		markSentFn: func(ctx context.Context, id string) error {
			marked[id] = true
			return nil
		},
	}

	// fail only the second send
	call := 0
	notifier := notifierFunc(func(ctx context.Context, in notifications.SendConfirmationInput) error {
		call++
		if call == 2 {
			return errors.New("provider hiccup")
		}
		return nil
	})

	h := newRegHandler(store, notifier)
	r := setupRouter(http.MethodPost, "/api/registrations/notify/sweep", h.NotifySweep)

	req := httptest.NewRequest(http.MethodPost, "/api/registrations/notify/sweep", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Attempted int `json:"attempted"`
			Sent      int `json:"sent"`
			Failed    int `json:"failed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Data.Attempted != 3 || resp.Data.Sent != 2 || resp.Data.Failed != 1 {
		t.Fatalf("got attempted=%d sent=%d failed=%d", resp.Data.Attempted, resp.Data.Sent, resp.Data.Failed)
	}
	if len(marked) != 2 {
		t.Fatalf("expected 2 registrations marked sent, got %d", len(marked))
	}
}

type notifierFunc func(ctx context.Context, in notifications.SendConfirmationInput) error

func (fn notifierFunc) SendConfirmation(ctx context.Context, in notifications.SendConfirmationInput) error {
	return fn(ctx, in)
}

func TestUpdateRegistrationHandler(t *testing.T) {
	id := newUUID()

	tests := []struct {
		name           string
		url            string
		body           string
		storeSetup     func(*fakeRegistrationsStore)
		wantStatusCode int
	}{
		{
			name:           "success_partial_update",
			url:            "/api/registrations/" + id,
			body:           `{"name": "Anita T"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid_id",
			url:            "/api/registrations/not-a-uuid",
			body:           `{"name": "Anita T"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "not_found",
			url:  "/api/registrations/" + id,
			body: `{"name": "Anita T"}`,
			storeSetup: func(f *fakeRegistrationsStore) {
				f.getFn = func(ctx context.Context, gotID string) (registration.Registration, error) {
					return registration.Registration{}, registration.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "contact_change_is_duplicate",
			url:  "/api/registrations/" + id,
			body: `{"email": "taken@example.com"}`,
			storeSetup: func(f *fakeRegistrationsStore) {
				f.contactConflictFn = func(ctx context.Context, email, whatsapp, excludeID string) (*registration.ContactConflict, error) {
					if excludeID != id {
						return nil, errors.New("own record not excluded")
					}
					return &registration.ContactConflict{Email: email}, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad_mobile_rejected",
			url:            "/api/registrations/" + id,
			body:           `{"whatsappNumber": "12345"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRegistrationsStore{
				getFn: func(ctx context.Context, gotID string) (registration.Registration, error) {
					return registration.Registration{ID: id, Name: "Anita", CreatedAt: time.Now().UTC()}, nil
				},
			}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := newRegHandler(store, &fakeNotifier{})
			r := setupRouter(http.MethodPut, "/api/registrations/:id", h.Update)

			req := httptest.NewRequest(http.MethodPut, tt.url, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteRegistrationHandler(t *testing.T) {
	validID := newUUID()

	tests := []struct {
		name           string
		url            string
		storeSetup     func(*fakeRegistrationsStore)
		wantStatusCode int
	}{
		{
			name:           "success",
			url:            "/api/registrations/" + validID,
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			url:  "/api/registrations/" + newUUID(),
			storeSetup: func(f *fakeRegistrationsStore) {
				f.deleteFn = func(ctx context.Context, id string) error {
					return registration.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "invalid_id",
			url:            "/api/registrations/42",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRegistrationsStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := newRegHandler(store, &fakeNotifier{})
			r := setupRouter(http.MethodDelete, "/api/registrations/:id", h.Delete)

			req := httptest.NewRequest(http.MethodDelete, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
