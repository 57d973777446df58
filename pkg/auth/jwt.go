package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken возвращается при любой проблеме с токеном: неверный формат,
// неверная подпись или истекший срок. Причина намеренно не различается,
// чтобы не сообщать вызывающей стороне деталей отказа.
var ErrInvalidToken = errors.New("invalid or expired token")

// approveAction — единственное действие, которое кодируется в capability-токене
const approveAction = "approve"

// SessionClaims содержит клеймы сессионного токена.
// IsAdmin вычисляется в момент входа и служит только подсказкой для UI:
// привилегированные операции повторно проверяют allow-list на каждом запросе.
type SessionClaims struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// ApprovalClaims содержит клеймы capability-токена для одобрения заказа
type ApprovalClaims struct {
	OrderID uint   `json:"order_id"`
	Action  string `json:"action"`
	jwt.RegisteredClaims
}

// TokenService выпускает и проверяет подписанные токены (HS256)
type TokenService struct {
	secret         []byte
	sessionExpiry  time.Duration
	approvalExpiry time.Duration
}

// NewTokenService создает новый сервис токенов и возвращает ошибку при проблемах
func NewTokenService(secret string, sessionExpiryHrs, approvalExpiryHrs int) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required for TokenService")
	}
	if sessionExpiryHrs <= 0 {
		sessionExpiryHrs = 24
	}
	if approvalExpiryHrs <= 0 {
		approvalExpiryHrs = 72
	}
	return &TokenService{
		secret:         []byte(secret),
		sessionExpiry:  time.Duration(sessionExpiryHrs) * time.Hour,
		approvalExpiry: time.Duration(approvalExpiryHrs) * time.Hour,
	}, nil
}

// GenerateSessionToken выпускает сессионный токен со сроком действия 24 часа
func (s *TokenService) GenerateSessionToken(email string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email:   email,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken проверяет подпись и срок действия сессионного токена.
// Любой отказ возвращается как ErrInvalidToken.
func (s *TokenService) ParseSessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := s.parse(tokenString, claims)
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateApprovalToken выпускает capability-токен на одобрение одного заказа.
// Токен является bearer-ссылкой: любой обладатель ссылки может одобрить заказ.
func (s *TokenService) GenerateApprovalToken(orderID uint) (string, error) {
	now := time.Now()
	claims := ApprovalClaims{
		OrderID: orderID,
		Action:  approveAction,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.approvalExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign approval token: %w", err)
	}
	return signed, nil
}

// ParseApprovalToken проверяет capability-токен: подпись, срок, совпадение
// order_id с запрошенным и action == "approve"
func (s *TokenService) ParseApprovalToken(tokenString string, orderID uint) (*ApprovalClaims, error) {
	claims := &ApprovalClaims{}
	token, err := s.parse(tokenString, claims)
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Action != approveAction {
		return nil, ErrInvalidToken
	}
	if claims.OrderID == 0 || claims.OrderID != orderID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims) (*jwt.Token, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
}
