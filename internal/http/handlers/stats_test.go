package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/unmablr/meetreg/internal/cache"
	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/http/handlers"
	"github.com/unmablr/meetreg/internal/variant"
)

type fakeStatsStore struct {
	calls int

	totalsFn     func(ctx context.Context) (registration.Totals, error)
	byPaymentFn  func(ctx context.Context) ([]registration.GroupCount, error)
	byVerifiedFn func(ctx context.Context) ([]registration.VerifiedCount, error)
	byCohortFn   func(ctx context.Context) ([]registration.GroupCount, error)
	byRegTypeFn  func(ctx context.Context) ([]registration.GroupCount, error)
	byExtFn      func(ctx context.Context, key string, limit int) ([]registration.GroupCount, error)
}

func (f *fakeStatsStore) Totals(ctx context.Context) (registration.Totals, error) {
	f.calls++
	if f.totalsFn != nil {
		return f.totalsFn(ctx)
	}
	return registration.Totals{TotalRegistrations: 42, TotalAmount: 12600}, nil
}

func (f *fakeStatsStore) CountByPaymentStatus(ctx context.Context) ([]registration.GroupCount, error) {
	f.calls++
	if f.byPaymentFn != nil {
		return f.byPaymentFn(ctx)
	}
	return []registration.GroupCount{{Key: "completed", Count: 30}, {Key: "pending", Count: 12}}, nil
}

func (f *fakeStatsStore) CountByVerified(ctx context.Context) ([]registration.VerifiedCount, error) {
	f.calls++
	if f.byVerifiedFn != nil {
		return f.byVerifiedFn(ctx)
	}
	return []registration.VerifiedCount{{Verified: true, Count: 30}, {Verified: false, Count: 12}}, nil
}

func (f *fakeStatsStore) CountByCohort(ctx context.Context) ([]registration.GroupCount, error) {
	f.calls++
	if f.byCohortFn != nil {
		return f.byCohortFn(ctx)
	}
	return []registration.GroupCount{{Key: "Batch 12", Count: 20}}, nil
}

func (f *fakeStatsStore) CountByRegistrationType(ctx context.Context) ([]registration.GroupCount, error) {
	f.calls++
	if f.byRegTypeFn != nil {
		return f.byRegTypeFn(ctx)
	}
	return []registration.GroupCount{{Key: "attendee", Count: 40}}, nil
}

func (f *fakeStatsStore) CountByExtensionKey(ctx context.Context, key string, limit int) ([]registration.GroupCount, error) {
	f.calls++
	if f.byExtFn != nil {
		return f.byExtFn(ctx, key, limit)
	}
	return []registration.GroupCount{{Key: "Idukki", Count: 15}}, nil
}

func TestStatsSummaryHandler(t *testing.T) {
	tests := []struct {
		name           string
		event          variant.Config
		storeSetup     func(*fakeStatsStore)
		wantStatusCode int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "alumni_meet_skips_type_and_house_breakdowns",
			event:          variant.AlumniMeet,
			wantStatusCode: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp struct {
					Data map[string]json.RawMessage `json:"data"`
				}
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if _, ok := resp.Data["registrationTypes"]; ok {
					t.Fatalf("registrationTypes must be omitted for this event")
				}
				if _, ok := resp.Data["houseColors"]; ok {
					t.Fatalf("houseColors must be omitted for this event")
				}
				for _, key := range []string{"totalRegistrations", "paymentStatusDistribution", "verificationStatus", "cohorts", "topDistricts"} {
					if _, ok := resp.Data[key]; !ok {
						t.Fatalf("missing %s in summary", key)
					}
				}
			},
		},
		{
			name:           "onam_fest_includes_type_and_house_breakdowns",
			event:          variant.OnamFest,
			wantStatusCode: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp struct {
					Data map[string]json.RawMessage `json:"data"`
				}
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				for _, key := range []string{"registrationTypes", "houseColors"} {
					if _, ok := resp.Data[key]; !ok {
						t.Fatalf("missing %s in summary", key)
					}
				}
			},
		},
		{
			name:  "store_error",
			event: variant.AlumniMeet,
			storeSetup: func(f *fakeStatsStore) {
				f.totalsFn = func(ctx context.Context) (registration.Totals, error) {
					return registration.Totals{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStatsStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewStatsHandler(store, tt.event, nil)
			r := setupRouter(http.MethodGet, "/api/registrations/stats/summary", h.Summary)

			req := httptest.NewRequest(http.MethodGet, "/api/registrations/stats/summary", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.check != nil {
				tt.check(t, w.Body.Bytes())
			}
		})
	}
}

func TestStatsSummaryHandler_CacheHit(t *testing.T) {
	store := &fakeStatsStore{}

	h := handlers.NewStatsHandler(store, variant.AlumniMeet, cache.New(time.Minute))
	r := setupRouter(http.MethodGet, "/api/registrations/stats/summary", h.Summary)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/registrations/stats/summary", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get()
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	callsAfterFirst := store.calls
	if callsAfterFirst == 0 {
		t.Fatalf("expected store queries on cold cache")
	}

	w = get()
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if store.calls != callsAfterFirst {
		t.Fatalf("expected cache hit, store was queried again (%d -> %d)", callsAfterFirst, store.calls)
	}
}
