package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
)

// CodeRepo реализует repository.CodeRepository
type CodeRepo struct {
	db *gorm.DB
}

// NewCodeRepo создает новый репозиторий кодов верификации
func NewCodeRepo(db *gorm.DB) *CodeRepo {
	return &CodeRepo{db: db}
}

// Create создает новый код
func (r *CodeRepo) Create(code *entity.VerificationCode) error {
	return r.db.Create(code).Error
}

// GetByCode возвращает код по точному совпадению
func (r *CodeRepo) GetByCode(code string) (*entity.VerificationCode, error) {
	var row entity.VerificationCode
	err := r.db.Where("code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// CodeExists проверяет занятость кода среди всех строк таблицы
func (r *CodeRepo) CodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&entity.VerificationCode{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListAll возвращает все коды, по убыванию времени создания
func (r *CodeRepo) ListAll() ([]entity.VerificationCode, error) {
	var rows []entity.VerificationCode
	err := r.db.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// MarkUsed помечает код использованным одним условным UPDATE.
// Условие used_by_email IS NULL гарантирует не-более-одного успешного
// погашения даже при двух одновременных запросах: проигравший получает
// RowsAffected == 0.
func (r *CodeRepo) MarkUsed(code, email string) (bool, error) {
	now := time.Now()
	result := r.db.Model(&entity.VerificationCode{}).
		Where("code = ? AND used_by_email IS NULL", code).
		Updates(map[string]interface{}{
			"used_by_email": email,
			"used_at":       now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark code used: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteAll удаляет все коды
func (r *CodeRepo) DeleteAll() error {
	return r.db.Where("1 = 1").Delete(&entity.VerificationCode{}).Error
}
