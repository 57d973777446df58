package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/pkg/auth"
)

// ============================================================================
// Вспомогательные функции
// ============================================================================

func createTestAuthService(
	accountRepo *MockAccountRepository,
	adminRepo *MockAdminRepository,
	emailService *MockEmailService,
) *AuthService {
	tokenService, _ := auth.NewTokenService("test-secret-for-unit-tests", 24, 72)
	return &AuthService{
		accountRepo:  accountRepo,
		adminRepo:    adminRepo,
		tokenService: tokenService,
		emailService: emailService,
		baseURL:      "https://photos.example.com",
	}
}

func hashedTestPassword(t *testing.T, plain string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	require.NoError(t, err)
	s := string(hash)
	return &s
}

// ============================================================================
// Регистрация
// ============================================================================

func TestAuthService_Signup_Success(t *testing.T) {
	// Arrange
	mockAccountRepo := new(MockAccountRepository)
	mockEmail := new(MockEmailService)

	mockAccountRepo.On("GetByEmail", "new@example.com").Return(nil, apperrors.ErrNotFound)
	mockAccountRepo.On("Create", mock.AnythingOfType("*entity.Account")).Return(nil)
	mockEmail.On("SendVerifyEmail", mock.Anything, "new@example.com", mock.Anything, mock.Anything).Return(nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), mockEmail)

	// Act
	account, err := authService.Signup(context.Background(), SignupInput{
		Email:    "New@Example.com",
		Password: "Aa1!aaaa",
		Country:  "NL",
		Phone:    "+31600000000",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "new@example.com", account.Email, "Email должен нормализоваться")
	assert.False(t, account.EmailVerified, "Новый аккаунт не подтвержден")
	assert.False(t, account.AdminApproved, "Новый аккаунт не одобрен")
	assert.NotEmpty(t, account.VerifyToken)
	mockAccountRepo.AssertExpectations(t)
	mockEmail.AssertExpectations(t)
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	mockAccountRepo.On("GetByEmail", "existing@example.com").
		Return(&entity.Account{ID: 1, Email: "existing@example.com"}, nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	account, err := authService.Signup(context.Background(), SignupInput{
		Email:    "existing@example.com",
		Password: "Aa1!aaaa",
	})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Nil(t, account)
	mockAccountRepo.AssertExpectations(t)
}

func TestAuthService_Signup_WeakPassword(t *testing.T) {
	authService := createTestAuthService(new(MockAccountRepository), new(MockAdminRepository), new(MockEmailService))

	cases := []struct {
		password string
		wantMsg  string
	}{
		{"short", "at least 8 characters"},
		{"alllowercase1!", "uppercase letter"},
		{"ALLUPPERCASE1!", "lowercase letter"},
		{"NoDigitsHere!", "digit"},
		{"NoSymbols123", "special character"},
	}
	for _, tc := range cases {
		_, err := authService.Signup(context.Background(), SignupInput{
			Email:    "user@example.com",
			Password: tc.password,
		})
		require.Error(t, err, "пароль %q должен быть отвергнут", tc.password)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Contains(t, err.Error(), tc.wantMsg)
	}
}

// ============================================================================
// Подтверждение email
// ============================================================================

func TestAuthService_VerifyEmail_Success(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	mockAccountRepo.On("GetByVerifyToken", "tok123").
		Return(&entity.Account{ID: 7, Email: "u@example.com", VerifyToken: "tok123"}, nil)
	mockAccountRepo.On("UpdateFields", uint(7), mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates["email_verified"] == true && updates["verify_token"] == ""
	})).Return(nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	err := authService.VerifyEmail("tok123")

	require.NoError(t, err)
	mockAccountRepo.AssertExpectations(t)
}

func TestAuthService_VerifyEmail_UnknownToken(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	mockAccountRepo.On("GetByVerifyToken", "bad").Return(nil, apperrors.ErrNotFound)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	err := authService.VerifyEmail("bad")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// ============================================================================
// Вход: гейтинг и второй фактор
// ============================================================================

func TestAuthService_Login_SendsCode(t *testing.T) {
	// Arrange
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)
	mockEmail := new(MockEmailService)

	account := &entity.Account{
		ID:            1,
		Email:         "user@example.com",
		PasswordHash:  hashedTestPassword(t, "Aa1!aaaa"),
		Provider:      "password",
		EmailVerified: true,
		AdminApproved: true,
	}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)
	mockAdminRepo.On("IsAdmin", "user@example.com").Return(false, nil)
	mockAccountRepo.On("UpdateFields", uint(1), mock.MatchedBy(func(updates map[string]interface{}) bool {
		code, ok := updates["login_code"].(string)
		return ok && len(code) == 6
	})).Return(nil)
	mockEmail.On("SendLoginCode", mock.Anything, "user@example.com", mock.AnythingOfType("string"), mock.Anything).Return(nil)

	authService := createTestAuthService(mockAccountRepo, mockAdminRepo, mockEmail)

	// Act
	err := authService.Login(context.Background(), "User@Example.com", "Aa1!aaaa")

	// Assert
	require.NoError(t, err)
	mockAccountRepo.AssertExpectations(t)
	mockEmail.AssertExpectations(t)
}

func TestAuthService_Login_WrongPasswordAndUnknownEmailLookTheSame(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	account := &entity.Account{
		ID:            1,
		Email:         "user@example.com",
		PasswordHash:  hashedTestPassword(t, "Aa1!aaaa"),
		EmailVerified: true,
		AdminApproved: true,
	}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)
	mockAccountRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	errWrongPass := authService.Login(context.Background(), "user@example.com", "WrongPass1!")
	errNoAccount := authService.Login(context.Background(), "ghost@example.com", "WrongPass1!")

	// Неверный пароль и несуществующий аккаунт неразличимы для клиента
	assert.ErrorIs(t, errWrongPass, ErrInvalidLogin)
	assert.ErrorIs(t, errNoAccount, ErrInvalidLogin)
	assert.Equal(t, errWrongPass.Error(), errNoAccount.Error())
}

func TestAuthService_Login_GatingUnverifiedEmail(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)
	account := &entity.Account{
		ID:            1,
		Email:         "user@example.com",
		PasswordHash:  hashedTestPassword(t, "Aa1!aaaa"),
		EmailVerified: false,
		AdminApproved: false,
	}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)
	mockAdminRepo.On("IsAdmin", "user@example.com").Return(false, nil)

	authService := createTestAuthService(mockAccountRepo, mockAdminRepo, new(MockEmailService))

	err := authService.Login(context.Background(), "user@example.com", "Aa1!aaaa")

	assert.ErrorIs(t, err, ErrNeedsVerification)
}

func TestAuthService_Login_GatingPendingApproval(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)
	account := &entity.Account{
		ID:            1,
		Email:         "user@example.com",
		PasswordHash:  hashedTestPassword(t, "Aa1!aaaa"),
		EmailVerified: true,
		AdminApproved: false,
	}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)
	mockAdminRepo.On("IsAdmin", "user@example.com").Return(false, nil)

	authService := createTestAuthService(mockAccountRepo, mockAdminRepo, new(MockEmailService))

	err := authService.Login(context.Background(), "user@example.com", "Aa1!aaaa")

	assert.ErrorIs(t, err, ErrPendingApproval)
}

func TestAuthService_Login_AdminBypassesGating(t *testing.T) {
	// Администратор из allow-list входит даже без подтверждения и одобрения,
	// но второй фактор проходит как все
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)
	mockEmail := new(MockEmailService)

	account := &entity.Account{
		ID:            2,
		Email:         "admin@example.com",
		PasswordHash:  hashedTestPassword(t, "Aa1!aaaa"),
		EmailVerified: false,
		AdminApproved: false,
	}
	mockAccountRepo.On("GetByEmail", "admin@example.com").Return(account, nil)
	mockAdminRepo.On("IsAdmin", "admin@example.com").Return(true, nil)
	mockAccountRepo.On("UpdateFields", uint(2), mock.Anything).Return(nil)
	mockEmail.On("SendLoginCode", mock.Anything, "admin@example.com", mock.Anything, mock.Anything).Return(nil)

	authService := createTestAuthService(mockAccountRepo, mockAdminRepo, mockEmail)

	err := authService.Login(context.Background(), "admin@example.com", "Aa1!aaaa")

	require.NoError(t, err)
	mockEmail.AssertExpectations(t)
}

func TestAuthService_VerifyLoginCode_RoundTrip(t *testing.T) {
	// Arrange
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)

	code := "123456"
	expires := time.Now().Add(5 * time.Minute)
	account := &entity.Account{
		ID:                 1,
		Email:              "user@example.com",
		LoginCode:          &code,
		LoginCodeExpiresAt: &expires,
	}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)
	mockAccountRepo.On("UpdateFields", uint(1), mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates["login_code"] == nil && updates["login_code_expires_at"] == nil
	})).Return(nil)
	mockAdminRepo.On("IsAdmin", "user@example.com").Return(false, nil)

	authService := createTestAuthService(mockAccountRepo, mockAdminRepo, new(MockEmailService))

	// Act
	token, got, err := authService.VerifyLoginCode(context.Background(), "user@example.com", "123456")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, uint(1), got.ID)

	claims, err := authService.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.False(t, claims.IsAdmin)
	mockAccountRepo.AssertExpectations(t)
}

func TestAuthService_VerifyLoginCode_WrongCode(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	code := "123456"
	expires := time.Now().Add(5 * time.Minute)
	account := &entity.Account{ID: 1, Email: "user@example.com", LoginCode: &code, LoginCodeExpiresAt: &expires}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	token, _, err := authService.VerifyLoginCode(context.Background(), "user@example.com", "654321")

	assert.ErrorIs(t, err, ErrLoginCodeInvalid)
	assert.Empty(t, token)
}

func TestAuthService_VerifyLoginCode_Expired(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	code := "123456"
	expires := time.Now().Add(-1 * time.Minute)
	account := &entity.Account{ID: 1, Email: "user@example.com", LoginCode: &code, LoginCodeExpiresAt: &expires}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)
	// Истекший код очищается
	mockAccountRepo.On("UpdateFields", uint(1), mock.Anything).Return(nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	token, _, err := authService.VerifyLoginCode(context.Background(), "user@example.com", "123456")

	assert.ErrorIs(t, err, ErrLoginCodeExpired)
	assert.Empty(t, token)
	mockAccountRepo.AssertExpectations(t)
}

func TestAuthService_VerifyLoginCode_NoCodeStored(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	account := &entity.Account{ID: 1, Email: "user@example.com"}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	// Повторная попытка после успешного входа: кода в базе уже нет
	_, _, err := authService.VerifyLoginCode(context.Background(), "user@example.com", "123456")

	assert.ErrorIs(t, err, ErrLoginCodeInvalid)
}

// ============================================================================
// Сброс пароля
// ============================================================================

func TestAuthService_Forgot_UnknownEmailStaysSilent(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	mockAccountRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.ErrNotFound)
	mockEmail := new(MockEmailService)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), mockEmail)

	err := authService.Forgot(context.Background(), "ghost@example.com")

	// Несуществующий email подавляется: никакой ошибки, никаких писем
	require.NoError(t, err)
	mockEmail.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Forgot_KnownEmailSendsLink(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	mockEmail := new(MockEmailService)
	account := &entity.Account{ID: 1, Email: "user@example.com"}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(account, nil)
	mockAccountRepo.On("UpdateFields", uint(1), mock.Anything).Return(nil)
	mockEmail.On("SendPasswordReset", mock.Anything, "user@example.com", mock.Anything, mock.Anything).Return(nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), mockEmail)

	err := authService.Forgot(context.Background(), "user@example.com")

	require.NoError(t, err)
	mockEmail.AssertExpectations(t)
}

func TestAuthService_Reset_Success(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	expires := time.Now().Add(30 * time.Minute)
	account := &entity.Account{ID: 1, Email: "user@example.com", ResetTokenExpiresAt: &expires}
	mockAccountRepo.On("GetByResetToken", "reset-tok").Return(account, nil)
	mockAccountRepo.On("UpdateFields", uint(1), mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates["reset_token"] == nil && updates["password_hash"] != nil
	})).Return(nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	err := authService.Reset(context.Background(), "reset-tok", "Aa1!bbbb")

	require.NoError(t, err)
	mockAccountRepo.AssertExpectations(t)
}

func TestAuthService_Reset_ExpiredToken(t *testing.T) {
	mockAccountRepo := new(MockAccountRepository)
	expires := time.Now().Add(-1 * time.Minute)
	account := &entity.Account{ID: 1, Email: "user@example.com", ResetTokenExpiresAt: &expires}
	mockAccountRepo.On("GetByResetToken", "reset-tok").Return(account, nil)

	authService := createTestAuthService(mockAccountRepo, new(MockAdminRepository), new(MockEmailService))

	err := authService.Reset(context.Background(), "reset-tok", "Aa1!bbbb")

	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
}
