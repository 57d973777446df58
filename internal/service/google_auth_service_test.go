package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/photodrop-api/internal/config"
	"github.com/yourusername/photodrop-api/internal/domain/entity"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/pkg/auth"
)

const (
	testGoogleKid      = "test-kid"
	testGoogleClientID = "photodrop-client-id"
)

// newGoogleTestKeys генерирует ключ подписи и поднимает локальный JWKS
// endpoint, отдающий его публичную часть
func newGoogleTestKeys(t *testing.T) (*rsa.PrivateKey, *httptest.Server) {
	t.Helper()

	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := googleJWKSet{Keys: []googleJWK{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: testGoogleKid,
		N:   base64.RawURLEncoding.EncodeToString(privKey.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x00, 0x01}),
	}}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	return privKey, server
}

func signGoogleIDToken(t *testing.T, privKey *rsa.PrivateKey, email string) string {
	t.Helper()

	claims := googleIDTokenClaims{
		Email:         email,
		EmailVerified: true,
		Name:          "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "accounts.google.com",
			Subject:   "google-sub-1",
			Audience:  jwt.ClaimStrings{testGoogleClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testGoogleKid

	signed, err := token.SignedString(privKey)
	require.NoError(t, err)
	return signed
}

func newTestGoogleAuthService(t *testing.T, accountRepo *MockAccountRepository, adminRepo *MockAdminRepository, jwksURL string) *GoogleAuthService {
	t.Helper()

	tokenService, err := auth.NewTokenService("test-secret-for-unit-tests", 24, 72)
	require.NoError(t, err)
	svc, err := NewGoogleAuthService(accountRepo, adminRepo, tokenService, config.GoogleConfig{
		ClientID: testGoogleClientID,
	})
	require.NoError(t, err)
	svc.jwksURL = jwksURL
	return svc
}

func TestGoogleAuthService_SignIn_MarksUnverifiedAccountVerified(t *testing.T) {
	privKey, jwksServer := newGoogleTestKeys(t)
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)

	// Парольная регистрация, так и не подтвердившая email, но уже
	// одобренная админом
	existing := &entity.Account{
		ID:            7,
		Email:         "user@example.com",
		Provider:      "password",
		EmailVerified: false,
		VerifyToken:   "pending-verify-token",
		AdminApproved: true,
	}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(existing, nil)
	mockAccountRepo.On("UpdateFields", uint(7), mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates["email_verified"] == true && updates["verify_token"] == ""
	})).Return(nil)
	mockAdminRepo.On("IsAdmin", "user@example.com").Return(false, nil)

	svc := newTestGoogleAuthService(t, mockAccountRepo, mockAdminRepo, jwksServer.URL)

	token, account, err := svc.SignIn(context.Background(), signGoogleIDToken(t, privKey, "user@example.com"))

	// Google подтвердил владение ящиком: флаг проставлен, сессия выдана
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, account.EmailVerified)
	assert.Empty(t, account.VerifyToken)
	mockAccountRepo.AssertExpectations(t)
}

func TestGoogleAuthService_SignIn_UnapprovedAccountStillGated(t *testing.T) {
	privKey, jwksServer := newGoogleTestKeys(t)
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)

	existing := &entity.Account{
		ID:            8,
		Email:         "user@example.com",
		Provider:      "google",
		EmailVerified: true,
		AdminApproved: false,
	}
	mockAccountRepo.On("GetByEmail", "user@example.com").Return(existing, nil)
	mockAdminRepo.On("IsAdmin", "user@example.com").Return(false, nil)

	svc := newTestGoogleAuthService(t, mockAccountRepo, mockAdminRepo, jwksServer.URL)

	_, _, err := svc.SignIn(context.Background(), signGoogleIDToken(t, privKey, "user@example.com"))

	assert.ErrorIs(t, err, ErrPendingApproval)
}

func TestGoogleAuthService_SignIn_CreatesVerifiedAccount(t *testing.T) {
	privKey, jwksServer := newGoogleTestKeys(t)
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)

	mockAccountRepo.On("GetByEmail", "new@example.com").Return(nil, apperrors.ErrNotFound)
	mockAccountRepo.On("Create", mock.MatchedBy(func(acc *entity.Account) bool {
		return acc.Email == "new@example.com" &&
			acc.Provider == "google" &&
			acc.EmailVerified &&
			!acc.AdminApproved &&
			acc.PasswordHash == nil
	})).Return(nil)
	mockAdminRepo.On("IsAdmin", "new@example.com").Return(false, nil)

	svc := newTestGoogleAuthService(t, mockAccountRepo, mockAdminRepo, jwksServer.URL)

	_, _, err := svc.SignIn(context.Background(), signGoogleIDToken(t, privKey, "new@example.com"))

	// Новый Google-аккаунт создан уже верифицированным, но одобрения еще нет
	assert.ErrorIs(t, err, ErrPendingApproval)
	mockAccountRepo.AssertExpectations(t)
}

func TestGoogleAuthService_SignIn_RejectsForeignAudience(t *testing.T) {
	privKey, jwksServer := newGoogleTestKeys(t)
	mockAccountRepo := new(MockAccountRepository)
	mockAdminRepo := new(MockAdminRepository)

	svc := newTestGoogleAuthService(t, mockAccountRepo, mockAdminRepo, jwksServer.URL)
	svc.cfg.ClientID = "some-other-client-id"

	_, _, err := svc.SignIn(context.Background(), signGoogleIDToken(t, privKey, "user@example.com"))

	assert.ErrorIs(t, err, ErrGoogleTokenVerificationFailed)
	mockAccountRepo.AssertNotCalled(t, "GetByEmail", mock.Anything)
}
