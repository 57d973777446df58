package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	"github.com/yourusername/photodrop-api/internal/domain/repository"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/pkg/auth"
)

const (
	loginCodeTTL  = 10 * time.Minute
	resetTokenTTL = 1 * time.Hour
)

// AuthService предоставляет методы регистрации, гейтинга и входа
type AuthService struct {
	accountRepo      repository.AccountRepository
	adminRepo        repository.AdminRepository
	tokenService     *auth.TokenService
	emailService     EmailService
	baseURL          string
	adminNoticeEmail string
}

// SignupInput содержит данные для регистрации по паролю
type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
	Country     string
	Phone       string
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(
	accountRepo repository.AccountRepository,
	adminRepo repository.AdminRepository,
	tokenService *auth.TokenService,
	emailService EmailService,
	baseURL string,
) (*AuthService, error) {
	if accountRepo == nil {
		return nil, fmt.Errorf("AccountRepository is required for AuthService")
	}
	if adminRepo == nil {
		return nil, fmt.Errorf("AdminRepository is required for AuthService")
	}
	if tokenService == nil {
		return nil, fmt.Errorf("TokenService is required for AuthService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for AuthService")
	}
	return &AuthService{
		accountRepo:  accountRepo,
		adminRepo:    adminRepo,
		tokenService: tokenService,
		emailService: emailService,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

// Signup регистрирует новую учетную запись по email и паролю.
// Аккаунт создается непроверенным и неодобренным: вход станет возможен
// после подтверждения email и одобрения администратором.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*entity.Account, error) {
	email := normalizeEmail(input.Email)
	if !auth.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", apperrors.ErrValidation)
	}
	if ok, reason := auth.ValidatePassword(input.Password); !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, reason)
	}

	// Проверяем, существует ли учетная запись с таким email
	_, err := s.accountRepo.GetByEmail(email)
	if err == nil {
		return nil, fmt.Errorf("%w: account with this email already exists", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	verifyToken, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	account := &entity.Account{
		Email:        email,
		PasswordHash: &hash,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Provider:     "password",
		VerifyToken:  verifyToken,
		Country:      strings.TrimSpace(input.Country),
		Phone:        strings.TrimSpace(input.Phone),
	}
	if err := s.accountRepo.Create(account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	// Письмо подтверждения — критичная отправка: без него аккаунт
	// не сможет пройти гейтинг
	verifyLink := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, verifyToken)
	idempotencyKey := fmt.Sprintf("verify-email:%d", account.ID)
	if err := s.emailService.SendVerifyEmail(ctx, email, verifyLink, idempotencyKey); err != nil {
		return nil, fmt.Errorf("failed to send verification email: %w", err)
	}

	// Уведомление администратору — best effort: логируем и продолжаем
	if adminEmail := s.adminNoticeEmail; adminEmail != "" {
		if err := s.emailService.SendAdminSignupNotice(ctx, adminEmail, email); err != nil {
			log.Printf("[AuthService] Не удалось отправить уведомление о регистрации %s: %v", email, err)
		}
	}

	return account, nil
}

// SetAdminNoticeEmail настраивает получателя служебных уведомлений
func (s *AuthService) SetAdminNoticeEmail(email string) {
	s.adminNoticeEmail = normalizeEmail(email)
}

// VerifyEmail подтверждает email по одноразовому токену из письма
func (s *AuthService) VerifyEmail(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: verification token is required", apperrors.ErrValidation)
	}
	account, err := s.accountRepo.GetByVerifyToken(token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: invalid or already used verification link", apperrors.ErrValidation)
		}
		return err
	}

	// Токен одноразовый: очищаем вместе с установкой флага
	return s.accountRepo.UpdateFields(account.ID, map[string]interface{}{
		"email_verified": true,
		"verify_token":   "",
	})
}

// Login проверяет пароль и гейтинг, затем отправляет одноразовый код входа.
// Сессионный токен на этом шаге НЕ выпускается: его выдает VerifyLoginCode.
// Администраторы обходят гейтинг, но второй фактор проходят наравне со всеми.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)

	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrInvalidLogin
		}
		return err
	}
	if !account.HasPassword() {
		// Аккаунт внешнего провайдера: вход по паролю невозможен
		return ErrInvalidLogin
	}
	if !auth.CheckPassword(password, *account.PasswordHash) {
		return ErrInvalidLogin
	}

	isAdmin, err := s.adminRepo.IsAdmin(email)
	if err != nil {
		return fmt.Errorf("failed to check admin allow-list: %w", err)
	}
	if !isAdmin {
		if !account.EmailVerified {
			return ErrNeedsVerification
		}
		if !account.AdminApproved {
			return ErrPendingApproval
		}
	}

	code, err := auth.GenerateShortCode()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(loginCodeTTL)
	if err := s.accountRepo.UpdateFields(account.ID, map[string]interface{}{
		"login_code":            code,
		"login_code_expires_at": expiresAt,
	}); err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}

	// Доставка кода — критичная отправка: без нее вход невозможен
	idempotencyKey := fmt.Sprintf("login-code:%d:%d", account.ID, expiresAt.Unix())
	if err := s.emailService.SendLoginCode(ctx, email, code, idempotencyKey); err != nil {
		return fmt.Errorf("failed to send login code: %w", err)
	}

	return nil
}

// VerifyLoginCode проверяет код второго фактора и выпускает сессионный токен.
// Истекший код очищается. Успешно использованный код также очищается и не
// может быть воспроизведен повторно.
func (s *AuthService) VerifyLoginCode(ctx context.Context, email, code string) (string, *entity.Account, error) {
	email = normalizeEmail(email)

	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, ErrLoginCodeInvalid
		}
		return "", nil, err
	}
	if account.LoginCode == nil || account.LoginCodeExpiresAt == nil {
		return "", nil, ErrLoginCodeInvalid
	}

	now := time.Now()
	if now.After(*account.LoginCodeExpiresAt) {
		if err := s.clearLoginCode(account.ID); err != nil {
			log.Printf("[AuthService] Не удалось очистить истекший код входа для ID=%d: %v", account.ID, err)
		}
		return "", nil, ErrLoginCodeExpired
	}

	// Сравнение точное и регистрозависимое
	if *account.LoginCode != code {
		return "", nil, ErrLoginCodeInvalid
	}

	if err := s.clearLoginCode(account.ID); err != nil {
		return "", nil, fmt.Errorf("failed to clear login code: %w", err)
	}

	// isAdmin в клейме вычисляется в момент входа и служит только подсказкой
	// для UI: привилегированные операции перепроверяют allow-list сами
	isAdmin, err := s.adminRepo.IsAdmin(email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check admin allow-list: %w", err)
	}

	token, err := s.tokenService.GenerateSessionToken(email, isAdmin)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (s *AuthService) clearLoginCode(accountID uint) error {
	return s.accountRepo.UpdateFields(accountID, map[string]interface{}{
		"login_code":            nil,
		"login_code_expires_at": nil,
	})
}

// Forgot отправляет ссылку сброса пароля. Для незарегистрированного email
// возвращается тот же успешный результат, чтобы не раскрывать существование
// аккаунта.
func (s *AuthService) Forgot(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[AuthService] Запрос сброса пароля для неизвестного email (подавлен)")
			return nil
		}
		return err
	}

	resetToken, err := auth.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(resetTokenTTL)
	if err := s.accountRepo.UpdateFields(account.ID, map[string]interface{}{
		"reset_token":            resetToken,
		"reset_token_expires_at": expiresAt,
	}); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, resetToken)
	idempotencyKey := fmt.Sprintf("password-reset:%d:%d", account.ID, expiresAt.Unix())
	if err := s.emailService.SendPasswordReset(ctx, email, resetLink, idempotencyKey); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}

// Reset устанавливает новый пароль по одноразовому токену сброса
func (s *AuthService) Reset(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: reset token is required", apperrors.ErrValidation)
	}
	if ok, reason := auth.ValidatePassword(newPassword); !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, reason)
	}

	account, err := s.accountRepo.GetByResetToken(token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: invalid or already used reset link", apperrors.ErrValidation)
		}
		return err
	}
	if account.ResetTokenExpiresAt == nil || time.Now().After(*account.ResetTokenExpiresAt) {
		return fmt.Errorf("%w: reset link expired", apperrors.ErrExpiredToken)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.accountRepo.UpdateFields(account.ID, map[string]interface{}{
		"password_hash":          hash,
		"reset_token":            nil,
		"reset_token_expires_at": nil,
	})
}

// Verify проверяет сессионный токен и возвращает его клеймы
func (s *AuthService) Verify(token string) (*auth.SessionClaims, error) {
	claims, err := s.tokenService.ParseSessionToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	return claims, nil
}
