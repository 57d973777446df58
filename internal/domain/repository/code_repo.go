package repository

import (
	"github.com/yourusername/photodrop-api/internal/domain/entity"
)

// CodeRepository определяет методы для работы с кодами верификации
type CodeRepository interface {
	Create(code *entity.VerificationCode) error
	GetByCode(code string) (*entity.VerificationCode, error)
	// CodeExists проверяет занятость кода среди всех строк таблицы
	CodeExists(code string) (bool, error)
	ListAll() ([]entity.VerificationCode, error)
	// MarkUsed помечает код использованным условным UPDATE
	// (WHERE used_by_email IS NULL). Возвращает false, если код уже был
	// погашен: под конкуренцией успешным будет ровно один вызов.
	MarkUsed(code, email string) (bool, error)
	DeleteAll() error
}
