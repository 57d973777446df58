package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yourusername/photodrop-api/internal/service"
)

// AuthAction перечисляет операции поверхности /api/auth
type AuthAction string

const (
	AuthActionSignup          AuthAction = "signup"
	AuthActionLogin           AuthAction = "login"
	AuthActionVerifyLoginCode AuthAction = "verify-login-code"
	AuthActionForgot          AuthAction = "forgot"
	AuthActionReset           AuthAction = "reset"
	AuthActionVerify          AuthAction = "verify"
	AuthActionVerifyEmail     AuthAction = "verify-email"
	AuthActionGoogleSignin    AuthAction = "google-signin"
)

// AuthRequest — плоский конверт всех auth-действий. Какие поля обязательны,
// решает конкретное действие; binding проверяет только наличие action.
type AuthRequest struct {
	Action AuthAction `json:"action" binding:"required"`

	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`

	Code    string `json:"code"`
	Token   string `json:"token"`
	IDToken string `json:"id_token"`
	NewPass string `json:"new_password"`
}

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService   *service.AuthService
	googleService *service.GoogleAuthService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, googleService *service.GoogleAuthService) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		googleService: googleService,
	}
}

// Handle разбирает действие и диспетчеризует его одним switch
func (h *AuthHandler) Handle(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	switch req.Action {
	case AuthActionSignup:
		h.signup(c, req)
	case AuthActionLogin:
		h.login(c, req)
	case AuthActionVerifyLoginCode:
		h.verifyLoginCode(c, req)
	case AuthActionForgot:
		h.forgot(c, req)
	case AuthActionReset:
		h.reset(c, req)
	case AuthActionVerify:
		h.verify(c, req)
	case AuthActionVerifyEmail:
		h.verifyEmail(c, req)
	case AuthActionGoogleSignin:
		h.googleSignin(c, req)
	default:
		respondMessage(c, http.StatusBadRequest, "unknown action", nil)
	}
}

func (h *AuthHandler) signup(c *gin.Context, req AuthRequest) {
	account, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Country:     req.Country,
		Phone:       req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "account created, please check your email for a verification link", gin.H{
		"email": account.Email,
	})
}

func (h *AuthHandler) login(c *gin.Context, req AuthRequest) {
	if err := h.authService.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		respondError(c, err)
		return
	}
	// Сессии еще нет: клиент должен предъявить код из письма
	respondOK(c, "a login code has been sent to your email", gin.H{
		"requires_code": true,
	})
}

func (h *AuthHandler) verifyLoginCode(c *gin.Context, req AuthRequest) {
	token, account, err := h.authService.VerifyLoginCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	claims, err := h.authService.Verify(token)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "login successful", gin.H{
		"token":        token,
		"email":        account.Email,
		"display_name": account.DisplayName,
		"is_admin":     claims.IsAdmin,
	})
}

func (h *AuthHandler) forgot(c *gin.Context, req AuthRequest) {
	if err := h.authService.Forgot(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	// Текст одинаков для существующих и несуществующих адресов
	respondOK(c, "if this email is registered, a reset link has been sent", nil)
}

func (h *AuthHandler) reset(c *gin.Context, req AuthRequest) {
	if err := h.authService.Reset(c.Request.Context(), req.Token, req.NewPass); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "password updated, you can now log in", nil)
}

func (h *AuthHandler) verify(c *gin.Context, req AuthRequest) {
	claims, err := h.authService.Verify(req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "session is valid", gin.H{
		"email":    claims.Email,
		"is_admin": claims.IsAdmin,
	})
}

func (h *AuthHandler) verifyEmail(c *gin.Context, req AuthRequest) {
	if err := h.authService.VerifyEmail(req.Token); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "email verified, your account is awaiting admin approval", nil)
}

func (h *AuthHandler) googleSignin(c *gin.Context, req AuthRequest) {
	if h.googleService == nil {
		respondMessage(c, http.StatusBadRequest, "google sign-in is not configured", nil)
		return
	}
	token, account, err := h.googleService.SignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "login successful", gin.H{
		"token":        token,
		"email":        account.Email,
		"display_name": account.DisplayName,
	})
}
