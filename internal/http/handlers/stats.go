package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unmablr/meetreg/internal/cache"
	"github.com/unmablr/meetreg/internal/config"
	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/variant"
)

type StatsStore interface {
	Totals(ctx context.Context) (registration.Totals, error)
	CountByPaymentStatus(ctx context.Context) ([]registration.GroupCount, error)
	CountByVerified(ctx context.Context) ([]registration.VerifiedCount, error)
	CountByCohort(ctx context.Context) ([]registration.GroupCount, error)
	CountByRegistrationType(ctx context.Context) ([]registration.GroupCount, error)
	CountByExtensionKey(ctx context.Context, key string, limit int) ([]registration.GroupCount, error)
}

const (
	statsCacheKey = "stats.summary"
	topDistrictsN = 10
)

type StatsHandler struct {
	store StatsStore
	event variant.Config
	cache *cache.Cache
}

func NewStatsHandler(store StatsStore, event variant.Config, c *cache.Cache) *StatsHandler {
	return &StatsHandler{store: store, event: event, cache: c}
}

// Summary composes the dashboard aggregates. The result is cached briefly;
// the dashboard polls and none of the numbers need to be fresher than the
// cache TTL.
func (h *StatsHandler) Summary(ctx *gin.Context) {
	if h.cache != nil {
		if v, ok := h.cache.Get(statsCacheKey); ok {
			if summary, ok := v.(registration.Summary); ok {
				RespondData(ctx, http.StatusOK, "", summary)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	summary, err := h.compose(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not compute statistics")
		return
	}

	if h.cache != nil {
		h.cache.Set(statsCacheKey, summary)
	}

	RespondData(ctx, http.StatusOK, "", summary)
}

func (h *StatsHandler) compose(ctx context.Context) (registration.Summary, error) {
	var s registration.Summary
	var err error

	if s.Totals, err = h.store.Totals(ctx); err != nil {
		return s, err
	}
	if s.PaymentStatusDistribution, err = h.store.CountByPaymentStatus(ctx); err != nil {
		return s, err
	}
	if s.VerificationStatus, err = h.store.CountByVerified(ctx); err != nil {
		return s, err
	}
	if s.Cohorts, err = h.store.CountByCohort(ctx); err != nil {
		return s, err
	}
	if h.event.RequiresRegistrationType {
		if s.RegistrationTypes, err = h.store.CountByRegistrationType(ctx); err != nil {
			return s, err
		}
	}
	if h.event.UsesHouseColor {
		if s.HouseColors, err = h.store.CountByExtensionKey(ctx, "houseColor", 0); err != nil {
			return s, err
		}
	}
	if s.TopDistricts, err = h.store.CountByExtensionKey(ctx, "district", topDistrictsN); err != nil {
		return s, err
	}

	return s, nil
}
