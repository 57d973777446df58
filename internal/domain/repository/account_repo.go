package repository

import (
	"github.com/yourusername/photodrop-api/internal/domain/entity"
)

// AccountRepository определяет методы для работы с учетными записями
type AccountRepository interface {
	Create(account *entity.Account) error
	GetByID(id uint) (*entity.Account, error)
	GetByEmail(email string) (*entity.Account, error)
	GetByVerifyToken(token string) (*entity.Account, error)
	GetByResetToken(token string) (*entity.Account, error)
	Update(account *entity.Account) error
	// UpdateFields обновляет только перечисленные поля без перезаписи строки
	UpdateFields(accountID uint, updates map[string]interface{}) error
	// Delete жестко удаляет аккаунт (используется только при отклонении админом)
	Delete(accountID uint) error
	List(limit, offset int) ([]entity.Account, error)
	// ListPending возвращает аккаунты с подтвержденным email, ожидающие
	// одобрения администратора
	ListPending() ([]entity.Account, error)
	Count() (int64, error)
}
