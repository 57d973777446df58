package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/yourusername/photodrop-api/internal/config"
	"github.com/yourusername/photodrop-api/internal/domain/entity"
	"github.com/yourusername/photodrop-api/internal/domain/repository"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
	"github.com/yourusername/photodrop-api/pkg/auth"
)

const googleProvider = "google"

// GoogleAuthService signs users in through a verified Google ID token.
// Google-authenticated accounts are created with EmailVerified already
// set, but still require admin approval before they can be used.
type GoogleAuthService struct {
	accountRepo  repository.AccountRepository
	adminRepo    repository.AdminRepository
	tokenService *auth.TokenService
	cfg          config.GoogleConfig

	httpClient *http.Client
	jwksURL    string
	jwksMu     sync.RWMutex
	jwksKeys   map[string]*rsa.PublicKey
	jwksExpiry time.Time
}

func NewGoogleAuthService(
	accountRepo repository.AccountRepository,
	adminRepo repository.AdminRepository,
	tokenService *auth.TokenService,
	cfg config.GoogleConfig,
) (*GoogleAuthService, error) {
	if accountRepo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if adminRepo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if tokenService == nil {
		return nil, fmt.Errorf("token service is required")
	}
	return &GoogleAuthService{
		accountRepo:  accountRepo,
		adminRepo:    adminRepo,
		tokenService: tokenService,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		jwksURL:      "https://www.googleapis.com/oauth2/v3/certs",
	}, nil
}

// SignIn verifies the ID token, creates the account on first contact and
// issues a session token. Unlike password login there is no email code
// step: Google already proved control of the mailbox.
func (s *GoogleAuthService) SignIn(ctx context.Context, idToken string) (string, *entity.Account, error) {
	info, err := s.verifyIDToken(ctx, idToken)
	if err != nil {
		return "", nil, err
	}

	email := normalizeEmail(info.Email)
	if email == "" {
		return "", nil, fmt.Errorf("%w: email is missing in google token", ErrGoogleTokenVerificationFailed)
	}

	account, err := s.accountRepo.GetByEmail(email)
	if errors.Is(err, apperrors.ErrNotFound) {
		account = &entity.Account{
			Email:         email,
			PasswordHash:  nil,
			DisplayName:   strings.TrimSpace(info.Name),
			Provider:      googleProvider,
			EmailVerified: true,
		}
		if createErr := s.accountRepo.Create(account); createErr != nil {
			return "", nil, fmt.Errorf("failed to create account from google sign-in: %w", createErr)
		}
	} else if err != nil {
		return "", nil, err
	} else if !account.EmailVerified {
		// A password signup that never finished verification converges to
		// the same verified state: Google proved control of the mailbox.
		updates := map[string]interface{}{
			"email_verified": true,
			"verify_token":   "",
		}
		if err := s.accountRepo.UpdateFields(account.ID, updates); err != nil {
			return "", nil, fmt.Errorf("failed to mark email verified from google sign-in: %w", err)
		}
		account.EmailVerified = true
		account.VerifyToken = ""
	}

	isAdmin, err := s.adminRepo.IsAdmin(email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check admin allow-list: %w", err)
	}
	if !isAdmin && !account.AdminApproved {
		return "", nil, ErrPendingApproval
	}

	token, err := s.tokenService.GenerateSessionToken(email, isAdmin)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

type parsedGoogleTokenInfo struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
}

type googleIDTokenClaims struct {
	Email         string      `json:"email"`
	EmailVerified interface{} `json:"email_verified"`
	Name          string      `json:"name"`
	jwt.RegisteredClaims
}

type googleJWKSet struct {
	Keys []googleJWK `json:"keys"`
}

type googleJWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (s *GoogleAuthService) verifyIDToken(ctx context.Context, idToken string) (*parsedGoogleTokenInfo, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty id token", ErrGoogleTokenVerificationFailed)
	}
	if strings.TrimSpace(s.cfg.ClientID) == "" {
		return nil, fmt.Errorf("%w: google client id is not configured", ErrGoogleTokenVerificationFailed)
	}

	claims := &googleIDTokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	token, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrGoogleTokenVerificationFailed)
		}
		return s.getGooglePublicKey(ctx, strings.TrimSpace(kid))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleTokenVerificationFailed, err)
	}
	if token == nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrGoogleTokenVerificationFailed)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrGoogleTokenVerificationFailed)
	}
	if claims.Issuer != "accounts.google.com" && claims.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("%w: invalid issuer", ErrGoogleTokenVerificationFailed)
	}
	audMatched := false
	for _, aud := range claims.Audience {
		if strings.TrimSpace(aud) == strings.TrimSpace(s.cfg.ClientID) {
			audMatched = true
			break
		}
	}
	if !audMatched {
		return nil, fmt.Errorf("%w: audience mismatch", ErrGoogleTokenVerificationFailed)
	}
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", ErrGoogleTokenVerificationFailed)
	}

	emailVerified, ok := parseGoogleEmailVerifiedClaim(claims.EmailVerified)
	if !ok {
		return nil, fmt.Errorf("%w: invalid email_verified claim", ErrGoogleTokenVerificationFailed)
	}
	if !emailVerified {
		return nil, fmt.Errorf("%w: google email is not verified", ErrGoogleTokenVerificationFailed)
	}

	return &parsedGoogleTokenInfo{
		Sub:           strings.TrimSpace(claims.Subject),
		Email:         strings.TrimSpace(claims.Email),
		EmailVerified: emailVerified,
		Name:          strings.TrimSpace(claims.Name),
	}, nil
}

func parseGoogleEmailVerifiedClaim(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, true
		case "false":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

func (s *GoogleAuthService) getGooglePublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	now := time.Now()
	s.jwksMu.RLock()
	if key, ok := s.jwksKeys[kid]; ok && now.Before(s.jwksExpiry) {
		s.jwksMu.RUnlock()
		return key, nil
	}
	s.jwksMu.RUnlock()

	if err := s.refreshGoogleJWKS(ctx); err != nil {
		return nil, err
	}

	s.jwksMu.RLock()
	defer s.jwksMu.RUnlock()
	key, ok := s.jwksKeys[kid]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w: jwks key not found", ErrGoogleTokenVerificationFailed)
	}
	return key, nil
}

func (s *GoogleAuthService) refreshGoogleJWKS(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create google jwks request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch google jwks: %v", ErrGoogleTokenVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: jwks status=%d body=%s", ErrGoogleTokenVerificationFailed, resp.StatusCode, string(body))
	}

	var set googleJWKSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode google jwks response: %w", err)
	}
	if len(set.Keys) == 0 {
		return fmt.Errorf("%w: empty google jwks response", ErrGoogleTokenVerificationFailed)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if strings.TrimSpace(jwk.Kid) == "" {
			continue
		}
		if jwk.Kty != "RSA" {
			continue
		}
		pub, err := parseGoogleRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable rsa keys in google jwks", ErrGoogleTokenVerificationFailed)
	}

	ttl := parseGoogleJWKSMaxAge(resp.Header.Get("Cache-Control"))
	if ttl <= 0 {
		ttl = time.Hour
	}

	s.jwksMu.Lock()
	s.jwksKeys = keys
	s.jwksExpiry = time.Now().Add(ttl)
	s.jwksMu.Unlock()
	return nil
}

func parseGoogleRSAPublicKey(jwk googleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nBytes)
	eInt := 0
	for _, b := range eBytes {
		eInt = eInt<<8 + int(b)
	}
	if n.Sign() <= 0 || eInt <= 0 {
		return nil, fmt.Errorf("invalid rsa jwk")
	}

	return &rsa.PublicKey{N: n, E: eInt}, nil
}

func parseGoogleJWKSMaxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(strings.ToLower(part), "max-age=") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(part), "max-age="))
		seconds, err := time.ParseDuration(value + "s")
		if err != nil {
			return 0
		}
		if seconds < time.Minute {
			return time.Minute
		}
		return seconds
	}
	return 0
}
