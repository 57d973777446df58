package entity

import "time"

// Account представляет учетную запись клиента.
// PasswordHash равен nil для аккаунтов, созданных через внешнего провайдера
// (Google): такие аккаунты не могут входить по паролю.
type Account struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Email        string  `gorm:"size:100;not null;uniqueIndex" json:"email"`
	PasswordHash *string `gorm:"size:100" json:"-"`
	DisplayName  string  `gorm:"size:100;not null;default:''" json:"display_name"`
	Provider     string  `gorm:"size:20;not null;default:'password'" json:"provider"` // "password" или "google"

	// Гейтинг входа: аккаунт допускается к входу, только когда подтвержден
	// email И получено одобрение администратора (админы из allow-list
	// обходят оба условия).
	EmailVerified bool   `gorm:"not null;default:false" json:"email_verified"`
	VerifyToken   string `gorm:"size:64;not null;default:''" json:"-"`
	AdminApproved bool   `gorm:"not null;default:false" json:"admin_approved"`

	// Одноразовый токен сброса пароля
	ResetToken          *string    `gorm:"size:64" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	// Одноразовый код входа (второй фактор), живет 10 минут
	LoginCode          *string    `gorm:"size:10" json:"-"`
	LoginCodeExpiresAt *time.Time `json:"-"`

	Country string `gorm:"size:60;not null;default:''" json:"country"`
	Phone   string `gorm:"size:30;not null;default:''" json:"phone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Account) TableName() string {
	return "accounts"
}

// HasPassword возвращает true, если по аккаунту возможен вход по паролю
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}
