package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/internal/service"
)

// respondOK отправляет успешный ответ в едином конверте
func respondOK(c *gin.Context, message string, extra gin.H) {
	payload := gin.H{"success": true, "message": message}
	for k, v := range extra {
		payload[k] = v
	}
	c.JSON(http.StatusOK, payload)
}

// respondMessage возвращает 4xx-ответ с текстом для клиента
func respondMessage(c *gin.Context, status int, message string, extra gin.H) {
	payload := gin.H{"success": false, "message": message}
	for k, v := range extra {
		payload[k] = v
	}
	c.JSON(status, payload)
}

// respondError транслирует ошибки сервисного слоя в HTTP-ответ.
// Ошибки потока получают стабильные сообщения; всё непредвиденное
// уходит клиенту как generic 500, детали остаются в логе.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidLogin):
		respondMessage(c, http.StatusUnauthorized, "invalid email or password", nil)
	case errors.Is(err, service.ErrNeedsVerification):
		respondMessage(c, http.StatusForbidden, "please verify your email address first", gin.H{"kind": "needs_verification"})
	case errors.Is(err, service.ErrPendingApproval):
		respondMessage(c, http.StatusForbidden, "your account is awaiting admin approval", gin.H{"kind": "pending_approval"})
	case errors.Is(err, service.ErrLoginCodeInvalid):
		respondMessage(c, http.StatusBadRequest, "invalid login code", nil)
	case errors.Is(err, service.ErrLoginCodeExpired):
		respondMessage(c, http.StatusBadRequest, "login code expired, please log in again", nil)
	case errors.Is(err, service.ErrCodeNotValid):
		respondMessage(c, http.StatusBadRequest, "this code is not valid", nil)
	case errors.Is(err, service.ErrCodeAlreadyUsed):
		respondMessage(c, http.StatusBadRequest, "this code has already been used", nil)
	case errors.Is(err, service.ErrCodeNotConfigured):
		respondMessage(c, http.StatusBadRequest, "this code is not configured for download", nil)
	case errors.Is(err, service.ErrGoogleTokenVerificationFailed):
		respondMessage(c, http.StatusUnauthorized, "google sign-in failed", nil)
	case errors.Is(err, apperrors.ErrValidation):
		respondMessage(c, http.StatusBadRequest, stripSentinel(err, apperrors.ErrValidation), nil)
	case errors.Is(err, apperrors.ErrExpiredToken):
		respondMessage(c, http.StatusBadRequest, stripSentinel(err, apperrors.ErrExpiredToken), nil)
	case errors.Is(err, apperrors.ErrConflict):
		respondMessage(c, http.StatusConflict, stripSentinel(err, apperrors.ErrConflict), nil)
	case errors.Is(err, apperrors.ErrNotFound):
		respondMessage(c, http.StatusNotFound, stripSentinel(err, apperrors.ErrNotFound), nil)
	case errors.Is(err, apperrors.ErrUnauthorized):
		respondMessage(c, http.StatusUnauthorized, "session expired", nil)
	case errors.Is(err, apperrors.ErrForbidden):
		respondMessage(c, http.StatusForbidden, stripSentinel(err, apperrors.ErrForbidden), nil)
	default:
		log.Printf("[Handler] Внутренняя ошибка на %s: %v", c.Request.URL.Path, err)
		respondMessage(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// stripSentinel срезает текст ошибки-метки, оставляя человекочитаемую часть:
// "validation failed: country is required" → "country is required"
func stripSentinel(err, sentinel error) string {
	msg := err.Error()
	trimmed := strings.TrimPrefix(msg, sentinel.Error())
	trimmed = strings.TrimPrefix(trimmed, ": ")
	if strings.TrimSpace(trimmed) == "" {
		return msg
	}
	return trimmed
}
