package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
)

// AdminRepo реализует repository.AdminRepository
type AdminRepo struct {
	db *gorm.DB
}

// NewAdminRepo создает новый репозиторий allow-list администраторов
func NewAdminRepo(db *gorm.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// IsAdmin проверяет наличие email в allow-list
func (r *AdminRepo) IsAdmin(email string) (bool, error) {
	var count int64
	err := r.db.Model(&entity.AdminEntry{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
