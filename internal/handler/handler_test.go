package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestGinContext создает *gin.Context для тестов с JSON body
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, http.NoBody)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// ============================================================================
// Диспетчеризация действий — неизвестное или пустое действие дает 400
// до обращения к сервисам
// ============================================================================

func TestAuthHandler_UnknownAction(t *testing.T) {
	handler := &AuthHandler{} // nil-сервисы допустимы: до них не доходит

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty body", nil},
		{"no action", map[string]string{"email": "u@test.com"}},
		{"unknown action", map[string]string{"action": "drop-tables"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext("POST", "/api/auth", tt.body)
			handler.Handle(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := parseJSONResponse(t, w)
			assert.Equal(t, false, resp["success"])
		})
	}
}

func TestOrderHandler_UnknownAction(t *testing.T) {
	handler := &OrderHandler{}

	c, w := newTestGinContext("POST", "/api/orders", map[string]string{"action": "self-destruct"})
	handler.Handle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "unknown action", resp["message"])
}

func TestOrderHandler_UploadRejectsBadBase64(t *testing.T) {
	handler := &OrderHandler{}

	c, w := newTestGinContext("POST", "/api/orders", map[string]string{
		"action":    "upload",
		"file_name": "photo.jpg",
		"file_data": "&&& not base64 &&&",
		"country":   "NL",
		"phone":     "+31600000000",
	})
	c.Set("email", "user@example.com")
	handler.Handle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Contains(t, resp["message"], "base64")
}

func TestAdminHandler_UnknownAction(t *testing.T) {
	handler := &AdminHandler{}

	c, w := newTestGinContext("POST", "/api/admin", map[string]string{"action": "become-root"})
	handler.Handle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_ApproveRejectsBadOrderID(t *testing.T) {
	handler := &OrderHandler{}

	for _, raw := range []string{"", "abc", "0", "-5"} {
		c, w := newTestGinContext("GET", fmt.Sprintf("/api/orders/approve?orderId=%s&token=x", raw), nil)
		handler.HandleApprove(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, "orderId=%q", raw)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	}
}

// ============================================================================
// respondError — трансляция ошибок сервисного слоя в HTTP
// ============================================================================

func TestRespondError_Mapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"invalid login", service.ErrInvalidLogin, http.StatusUnauthorized, "invalid email or password"},
		{"needs verification", service.ErrNeedsVerification, http.StatusForbidden, "please verify your email address first"},
		{"pending approval", service.ErrPendingApproval, http.StatusForbidden, "your account is awaiting admin approval"},
		{"login code invalid", service.ErrLoginCodeInvalid, http.StatusBadRequest, "invalid login code"},
		{"login code expired", service.ErrLoginCodeExpired, http.StatusBadRequest, "login code expired, please log in again"},
		{"code not valid", service.ErrCodeNotValid, http.StatusBadRequest, "this code is not valid"},
		{"code already used", service.ErrCodeAlreadyUsed, http.StatusBadRequest, "this code has already been used"},
		{"validation", fmt.Errorf("%w: country is required", apperrors.ErrValidation), http.StatusBadRequest, "country is required"},
		{"conflict", fmt.Errorf("%w: order is not awaiting payment", apperrors.ErrConflict), http.StatusConflict, "order is not awaiting payment"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "record not found"},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "session expired"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext("POST", "/api/test", nil)
			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := parseJSONResponse(t, w)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.wantMessage, resp["message"])
		})
	}
}

func TestRespondError_GatingKindsDistinguishable(t *testing.T) {
	c1, w1 := newTestGinContext("POST", "/api/auth", nil)
	respondError(c1, service.ErrNeedsVerification)
	c2, w2 := newTestGinContext("POST", "/api/auth", nil)
	respondError(c2, service.ErrPendingApproval)

	resp1 := parseJSONResponse(t, w1)
	resp2 := parseJSONResponse(t, w2)
	assert.Equal(t, "needs_verification", resp1["kind"])
	assert.Equal(t, "pending_approval", resp2["kind"])
	assert.NotEqual(t, resp1["message"], resp2["message"])
}

func TestRespondError_InternalHidesDetails(t *testing.T) {
	c, w := newTestGinContext("POST", "/api/test", nil)
	respondError(c, errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))

	resp := parseJSONResponse(t, w)
	assert.NotContains(t, resp["message"], "10.0.0.5", "детали инфраструктуры не утекают клиенту")
	assert.Equal(t, "internal server error", resp["message"])
}
