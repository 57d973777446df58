package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yourusername/photodrop-api/internal/domain/repository"
	"github.com/yourusername/photodrop-api/pkg/auth"
)

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов.
// Сессионный токен приходит в JSON-теле запроса рядом с действием;
// заголовок Authorization принимается как запасной вариант.
type AuthMiddleware struct {
	tokenService *auth.TokenService
	adminRepo    repository.AdminRepository
}

// bodyToken вытаскивает из тела только поле token; остальные поля
// остаются хендлеру через кеш ShouldBindBodyWith
type bodyToken struct {
	Token string `json:"token"`
}

func NewAuthMiddleware(tokenService *auth.TokenService, adminRepo repository.AdminRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		adminRepo:    adminRepo,
	}
}

// RequireAuth проверяет сессионный токен и кладет email в контекст.
// Любая причина отказа выглядит для клиента одинаково: 401 "session expired".
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "session expired"})
			c.Abort()
			return
		}

		claims, err := m.tokenService.ParseSessionToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "session expired"})
			c.Abort()
			return
		}

		c.Set("email", claims.Email)
		// Клейм is_admin — только подсказка для UI; AdminOnly перепроверяет
		// allow-list на каждом запросе
		c.Set("is_admin", claims.IsAdmin)
		c.Next()
	}
}

// AdminOnly пускает дальше только адреса из таблицы администраторов.
// Список не кешируется: удаление из таблицы действует немедленно,
// даже при живом сессионном токене.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, exists := c.Get("email")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "session expired"})
			c.Abort()
			return
		}

		isAdmin, err := m.adminRepo.IsAdmin(email.(string))
		if err != nil {
			log.Printf("[AuthMiddleware] Ошибка проверки allow-list для %s: %v", email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
			c.Abort()
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// Основной путь: поле token в JSON-теле. ShouldBindBodyWith кеширует
	// тело, поэтому хендлер сможет разобрать его повторно.
	if c.Request.Method == http.MethodPost {
		var body bodyToken
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil && strings.TrimSpace(body.Token) != "" {
			return strings.TrimSpace(body.Token)
		}
	}

	// Запасной путь: Authorization: Bearer {token}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(authHeader)
}
