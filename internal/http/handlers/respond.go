package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/http/middlewares"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondData wraps a successful payload in the {success, message, data}
// envelope the frontend expects.
func RespondData(ctx *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	ctx.JSON(status, body)
}

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"success":   false,
		"message":   message,
		"requestId": requestIDFrom(ctx),
	})
}

// RespondValidation reports every collected rule violation at once.
func RespondValidation(ctx *gin.Context, errs []string) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"success":   false,
		"message":   "Validation failed",
		"errors":    errs,
		"requestId": requestIDFrom(ctx),
	})
}

// RespondDuplicateContact echoes the public-safe fields of the record that
// collided so the registrant can recognise their earlier submission.
// Duplicates are client errors, same as validation failures.
func RespondDuplicateContact(ctx *gin.Context, conflict *registration.ContactConflict) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"success":              false,
		"message":              "Email or WhatsApp number already registered",
		"existingRegistration": conflict,
		"requestId":            requestIDFrom(ctx),
	})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message)
}

func RespondUnAuthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message)
}
