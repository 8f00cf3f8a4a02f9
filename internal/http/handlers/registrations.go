package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unmablr/meetreg/internal/config"
	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/export"
	"github.com/unmablr/meetreg/internal/http/middlewares"
	"github.com/unmablr/meetreg/internal/notifications"
	"github.com/unmablr/meetreg/internal/observability"
	"github.com/unmablr/meetreg/internal/utils"
	"github.com/unmablr/meetreg/internal/variant"
)

var ErrSweepRunning = errors.New("notification sweep already running")

type RegistrationStore interface {
	Insert(ctx context.Context, reg registration.Registration) error
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	FindContactConflict(ctx context.Context, email, whatsapp, excludeID string) (*registration.ContactConflict, error)
	TransactionIDInUse(ctx context.Context, txnID, excludeID string) (bool, error)
	FindByReference(ctx context.Context, ref string) (registration.Registration, error)
	List(ctx context.Context, q registration.ListQuery) ([]registration.Registration, int, error)
	ListAll(ctx context.Context) ([]registration.Registration, error)
	Update(ctx context.Context, reg registration.Registration) error
	Delete(ctx context.Context, id string) error
	MarkEmailSent(ctx context.Context, id string) error
	ListUnnotified(ctx context.Context) ([]registration.Registration, error)
}

type RegistrationHandler struct {
	store    RegistrationStore
	event    variant.Config
	notifier notifications.Notifier
	prom     *observability.Prom

	// single-flight guard for the notification sweep
	sweeping atomic.Bool
}

func NewRegistrationHandler(store RegistrationStore, event variant.Config, notifier notifications.Notifier, prom *observability.Prom) *RegistrationHandler {
	return &RegistrationHandler{
		store:    store,
		event:    event,
		notifier: notifier,
		prom:     prom,
	}
}

// registrationView is the admin-facing record: the stored entity annotated
// with the derived code and the display-format registration date.
type registrationView struct {
	registration.Registration
	RegistrationID   string `json:"registrationId"`
	RegistrationDate string `json:"registrationDate"`
	TotalAttendees   int    `json:"totalAttendees"`
}

func (h *RegistrationHandler) view(reg registration.Registration) registrationView {
	return registrationView{
		Registration:     reg,
		RegistrationID:   reg.Code(h.event.CodePrefix),
		RegistrationDate: registration.DisplayDate(reg.CreatedAt),
		TotalAttendees:   reg.TotalAttendees(),
	}
}

const genericCreateFailure = "Registration failed. Please verify your details and try again."

func (h *RegistrationHandler) Create(ctx *gin.Context) {
	var req registration.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if errs := variant.ValidateCreate(h.event, req); len(errs) > 0 {
		RespondValidation(ctx, errs)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	whatsapp := strings.TrimSpace(req.WhatsappNumber)

	conflict, err := h.store.FindContactConflict(cctx, email, whatsapp, "")
	if err != nil {
		RespondInternal(ctx, "Could not create registration")
		return
	}
	if conflict != nil {
		RespondDuplicateContact(ctx, conflict)
		return
	}

	// transaction id reuse gets a deliberately vague answer
	inUse, err := h.store.TransactionIDInUse(cctx, strings.TrimSpace(req.PaymentTransactionID), "")
	if err != nil {
		RespondInternal(ctx, "Could not create registration")
		return
	}
	if inUse {
		RespondBadRequest(ctx, genericCreateFailure)
		return
	}

	reg := registration.NewFromCreateRequest(req)

	if err := h.store.Insert(cctx, reg); err != nil {
		switch {
		case errors.Is(err, registration.ErrDuplicateContact):
			// lost the check-then-insert race; fetch the winner for the echo
			if c, lookupErr := h.store.FindContactConflict(cctx, email, whatsapp, ""); lookupErr == nil && c != nil {
				RespondDuplicateContact(ctx, c)
				return
			}
			RespondBadRequest(ctx, "Email or WhatsApp number already registered")
		case errors.Is(err, registration.ErrDuplicateTransaction):
			RespondBadRequest(ctx, genericCreateFailure)
		default:
			RespondInternal(ctx, "Could not create registration")
			slog.ErrorContext(ctx.Request.Context(), "registration.create_failed", "error", err)
		}
		return
	}

	// best-effort confirmation; a provider failure never fails the create
	h.sendConfirmation(ctx.Request.Context(), reg)

	RespondData(ctx, http.StatusCreated, "Registration successful", gin.H{
		"registrationId":     reg.Code(h.event.CodePrefix),
		"id":                 reg.ID,
		"name":               reg.Name,
		"email":              reg.Email,
		"totalAttendees":     reg.TotalAttendees(),
		"contributionAmount": reg.ContributionAmount,
		"paymentStatus":      reg.PaymentStatus,
		"registrationDate":   registration.DisplayDate(reg.CreatedAt),
	})
}

func (h *RegistrationHandler) sendConfirmation(ctx context.Context, reg registration.Registration) {
	if h.notifier == nil {
		return
	}

	in := notifications.SendConfirmationInput{
		Email:            reg.Email,
		Name:             reg.Name,
		WhatsappNumber:   reg.WhatsappNumber,
		RegistrationCode: reg.Code(h.event.CodePrefix),
		EventName:        h.event.EventName,
	}

	err := h.notifier.SendConfirmation(ctx, in)
	if err != nil {
		result := "failed"
		if errors.Is(err, notifications.ErrCircuitOpen) {
			result = "circuit_open"
		}
		h.countNotify(result)
		slog.WarnContext(ctx, "registration.confirmation_failed",
			"registration_id", reg.ID, "error", err)
		return
	}

	h.countNotify("sent")

	if err := h.store.MarkEmailSent(ctx, reg.ID); err != nil {
		slog.WarnContext(ctx, "registration.mark_email_sent_failed",
			"registration_id", reg.ID, "error", err)
	}
}

func (h *RegistrationHandler) countNotify(result string) {
	if h.prom != nil {
		h.prom.NotifyResults.WithLabelValues(result).Inc()
	}
}

func (h *RegistrationHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "registration id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	reg, err := h.store.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}
		RespondInternal(ctx, "Could not fetch registration")
		return
	}

	RespondDataWithETag(ctx, http.StatusOK, "", h.view(reg))
}

func (h *RegistrationHandler) List(ctx *gin.Context) {
	var q registration.ListQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		RespondValidation(ctx, []string{"query parameters could not be parsed"})
		return
	}

	if errs := q.Normalize(); len(errs) > 0 {
		RespondValidation(ctx, errs)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	regs, total, err := h.store.List(cctx, q)
	if err != nil {
		RespondInternal(ctx, "Could not list registrations")
		return
	}

	views := make([]registrationView, 0, len(regs))
	for _, reg := range regs {
		views = append(views, h.view(reg))
	}

	totalPages := (total + q.Limit - 1) / q.Limit

	// count and pagination sit beside data, not inside it; the dashboard
	// reads them at the top level.
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(views),
		"pagination": gin.H{
			"currentPage":        q.Page,
			"totalPages":         totalPages,
			"totalRegistrations": total,
			"hasNextPage":        q.Page < totalPages,
			"hasPrevPage":        q.Page > 1,
			"limit":              q.Limit,
		},
		"data": views,
	})
}

func (h *RegistrationHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "registration id must be a valid UUID")
		return
	}

	var req registration.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if errs := variant.ValidateUpdate(h.event, req); len(errs) > 0 {
		RespondValidation(ctx, errs)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	reg, err := h.store.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}
		RespondInternal(ctx, "Could not update registration")
		return
	}

	if req.TouchesContact() {
		email := reg.Email
		if req.Email != nil {
			email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		whatsapp := reg.WhatsappNumber
		if req.WhatsappNumber != nil {
			whatsapp = strings.TrimSpace(*req.WhatsappNumber)
		}

		conflict, err := h.store.FindContactConflict(cctx, email, whatsapp, id)
		if err != nil {
			RespondInternal(ctx, "Could not update registration")
			return
		}
		if conflict != nil {
			RespondDuplicateContact(ctx, conflict)
			return
		}
	}

	if req.PaymentTransactionID != nil {
		inUse, err := h.store.TransactionIDInUse(cctx, strings.TrimSpace(*req.PaymentTransactionID), id)
		if err != nil {
			RespondInternal(ctx, "Could not update registration")
			return
		}
		if inUse {
			RespondBadRequest(ctx, "Payment transaction id already in use")
			return
		}
	}

	wasVerified := reg.Verified
	req.Apply(&reg)

	if reg.Verified && !wasVerified {
		h.stampVerification(&reg, h.adminName(ctx))
	}
	h.autoVerifyOnPayment(&reg)

	if err := h.persistUpdate(ctx, cctx, reg); err != nil {
		return
	}

	RespondData(ctx, http.StatusOK, "Registration updated successfully", h.view(reg))
}

func (h *RegistrationHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "registration id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.store.Delete(cctx, id); err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}
		RespondInternal(ctx, "Could not delete registration")
		return
	}

	RespondData(ctx, http.StatusOK, "Registration deleted successfully", nil)
}

// Verify toggles the verification flag. Every transition to verified
// re-stamps the date and the verifying admin; unverifying keeps the last
// stamp for the audit trail.
func (h *RegistrationHandler) Verify(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "registration id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	reg, err := h.store.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}
		RespondInternal(ctx, "Could not verify registration")
		return
	}

	reg.Verified = !reg.Verified
	message := "Registration verification removed"
	if reg.Verified {
		h.stampVerification(&reg, h.adminName(ctx))
		message = "Registration verified successfully"
	}

	if err := h.persistUpdate(ctx, cctx, reg); err != nil {
		return
	}

	RespondData(ctx, http.StatusOK, message, h.view(reg))
}

type paymentUpdateRequest struct {
	PaymentStatus        string  `json:"paymentStatus" binding:"required,oneof=pending completed failed"`
	PaymentTransactionID *string `json:"paymentTransactionId"`
}

// Payment updates the payment status; a transition to completed verifies the
// registration automatically and never un-verifies it afterwards.
func (h *RegistrationHandler) Payment(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "registration id must be a valid UUID")
		return
	}

	var req paymentUpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	reg, err := h.store.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}
		RespondInternal(ctx, "Could not update payment status")
		return
	}

	if req.PaymentTransactionID != nil {
		txn := strings.TrimSpace(*req.PaymentTransactionID)
		if txn == "" {
			RespondValidation(ctx, []string{"paymentTransactionId cannot be empty"})
			return
		}

		inUse, err := h.store.TransactionIDInUse(cctx, txn, id)
		if err != nil {
			RespondInternal(ctx, "Could not update payment status")
			return
		}
		if inUse {
			RespondBadRequest(ctx, "Payment transaction id already in use")
			return
		}
		reg.PaymentTransactionID = txn
	}

	reg.PaymentStatus = req.PaymentStatus
	h.autoVerifyOnPayment(&reg)

	if err := h.persistUpdate(ctx, cctx, reg); err != nil {
		return
	}

	RespondData(ctx, http.StatusOK, "Payment status updated", h.view(reg))
}

// Search is the public self-service lookup by email or transaction id. Only
// a reduced field set is disclosed.
func (h *RegistrationHandler) Search(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Param("query"))
	if query == "" {
		RespondBadRequest(ctx, "search reference is required")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	reg, err := h.store.FindByReference(cctx, query)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "No registration found for the given reference")
			return
		}
		RespondInternal(ctx, "Could not search registrations")
		return
	}

	RespondDataWithETag(ctx, http.StatusOK, "", gin.H{
		"registrationId":     reg.Code(h.event.CodePrefix),
		"name":               reg.Name,
		"email":              reg.Email,
		"whatsappNumber":     reg.WhatsappNumber,
		"cohort":             reg.Cohort,
		"district":           reg.Extension.District,
		"totalAttendees":     reg.TotalAttendees(),
		"contributionAmount": reg.ContributionAmount,
		"paymentStatus":      reg.PaymentStatus,
		"verified":           reg.Verified,
		"registrationDate":   registration.DisplayDate(reg.CreatedAt),
	})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *RegistrationHandler) Download(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	regs, err := h.store.ListAll(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not export registrations")
		return
	}

	f, err := export.RegistrationsWorkbook(h.event, regs)
	if err != nil {
		RespondInternal(ctx, "Could not export registrations")
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("registrations-%s.xlsx", registration.DisplayDate(time.Now()))

	ctx.Header("Content-Type", xlsxContentType)
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Status(http.StatusOK)

	if err := f.Write(ctx.Writer); err != nil {
		slog.ErrorContext(ctx.Request.Context(), "registration.export_write_failed", "error", err)
	}
}

// NotifySweep re-attempts the confirmation email for every registration that
// never got one. One failure does not stop the sweep; only one sweep runs at
// a time per process.
func (h *RegistrationHandler) NotifySweep(ctx *gin.Context) {
	if !h.sweeping.CompareAndSwap(false, true) {
		RespondConflict(ctx, ErrSweepRunning.Error())
		return
	}
	defer h.sweeping.Store(false)

	cctx, cancel := config.WithTimeout(60 * time.Second)
	defer cancel()

	regs, err := h.store.ListUnnotified(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not run notification sweep")
		return
	}

	sent, failed := 0, 0
	for _, reg := range regs {
		in := notifications.SendConfirmationInput{
			Email:            reg.Email,
			Name:             reg.Name,
			WhatsappNumber:   reg.WhatsappNumber,
			RegistrationCode: reg.Code(h.event.CodePrefix),
			EventName:        h.event.EventName,
		}

		if err := h.notifier.SendConfirmation(cctx, in); err != nil {
			failed++
			result := "failed"
			if errors.Is(err, notifications.ErrCircuitOpen) {
				result = "circuit_open"
			}
			h.countNotify(result)
			slog.WarnContext(cctx, "registration.sweep_send_failed",
				"registration_id", reg.ID, "error", err)
			continue
		}

		h.countNotify("sent")
		if err := h.store.MarkEmailSent(cctx, reg.ID); err != nil {
			slog.WarnContext(cctx, "registration.mark_email_sent_failed",
				"registration_id", reg.ID, "error", err)
		}
		sent++
	}

	RespondData(ctx, http.StatusOK, "Notification sweep completed", gin.H{
		"attempted": len(regs),
		"sent":      sent,
		"failed":    failed,
	})
}

func (h *RegistrationHandler) stampVerification(reg *registration.Registration, by string) {
	now := time.Now().UTC()
	reg.Verified = true
	reg.VerificationDate = &now
	reg.VerifiedBy = by
}

// autoVerifyOnPayment verifies on completed payment; it never unsets.
func (h *RegistrationHandler) autoVerifyOnPayment(reg *registration.Registration) {
	if reg.PaymentStatus == registration.PaymentCompleted && !reg.Verified {
		h.stampVerification(reg, "system")
	}
}

func (h *RegistrationHandler) adminName(ctx *gin.Context) string {
	if name, ok := middlewares.UsernameFromContext(ctx); ok && name != "" {
		return name
	}
	return "admin"
}

// persistUpdate saves the merged record and translates store errors into the
// right responses. A non-nil return means a response was already written.
func (h *RegistrationHandler) persistUpdate(ctx *gin.Context, cctx context.Context, reg registration.Registration) error {
	err := h.store.Update(cctx, reg)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, registration.ErrNotFound):
		RespondNotFound(ctx, "Registration not found")
	case errors.Is(err, registration.ErrDuplicateContact):
		RespondBadRequest(ctx, "Email or WhatsApp number already registered")
	case errors.Is(err, registration.ErrDuplicateTransaction):
		RespondBadRequest(ctx, "Payment transaction id already in use")
	default:
		RespondInternal(ctx, "Could not update registration")
		slog.ErrorContext(ctx.Request.Context(), "registration.update_failed",
			"registration_id", reg.ID, "error", err)
	}
	return err
}
