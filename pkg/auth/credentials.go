package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// passwordSymbols — фиксированный набор спецсимволов для политики паролей
const passwordSymbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// opaqueTokenAlphabet — алфавит для одноразовых токенов (сброс пароля, подтверждение email)
const opaqueTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// opaqueTokenLength — длина одноразового токена
const opaqueTokenLength = 32

// HashPassword хеширует пароль через bcrypt со стандартным cost factor
func HashPassword(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidatePassword проверяет пароль по политике: длина >= 8, минимум одна
// заглавная и строчная буквы, цифра и спецсимвол. Возвращается сообщение
// первого нарушенного правила (без агрегации).
func ValidatePassword(pw string) (bool, string) {
	if len(pw) < 8 {
		return false, "password must be at least 8 characters long"
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		return false, "password must contain at least one uppercase letter"
	}
	if !hasLower {
		return false, "password must contain at least one lowercase letter"
	}
	if !hasDigit {
		return false, "password must contain at least one digit"
	}
	if !hasSymbol {
		return false, "password must contain at least one special character"
	}

	return true, ""
}

// ValidateEmail выполняет простую проверку формы email: ровно один '@' и
// точка после него. Намеренно не RFC-полная.
func ValidateEmail(s string) bool {
	if strings.Count(s, "@") != 1 {
		return false
	}
	at := strings.Index(s, "@")
	if at == 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// GenerateOpaqueToken возвращает случайную алфавитно-цифровую строку из 32
// символов. Токен не несет подписанных claims: его валидность обеспечивается
// поиском в базе и сроком действия.
func GenerateOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenLength)
	alphabetLen := big.NewInt(int64(len(opaqueTokenAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate opaque token: %w", err)
		}
		b[i] = opaqueTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}

// GenerateShortCode возвращает 6-значный числовой код. Уникальность среди
// существующих кодов обеспечивает вызывающая сторона (retry-until-unique).
func GenerateShortCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate short code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
