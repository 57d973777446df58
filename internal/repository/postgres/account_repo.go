package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
)

// AccountRepo реализует repository.AccountRepository
type AccountRepo struct {
	db *gorm.DB
}

// NewAccountRepo создает новый репозиторий учетных записей
func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Create создает новую учетную запись
func (r *AccountRepo) Create(account *entity.Account) error {
	return r.db.Create(account).Error
}

// GetByID возвращает учетную запись по ID
func (r *AccountRepo) GetByID(id uint) (*entity.Account, error) {
	var account entity.Account
	err := r.db.First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByEmail возвращает учетную запись по email
func (r *AccountRepo) GetByEmail(email string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByVerifyToken возвращает учетную запись по одноразовому токену
// подтверждения email
func (r *AccountRepo) GetByVerifyToken(token string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.Where("verify_token = ? AND verify_token <> ''", token).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByResetToken возвращает учетную запись по токену сброса пароля
func (r *AccountRepo) GetByResetToken(token string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.Where("reset_token = ?", token).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Update обновляет учетную запись целиком
func (r *AccountRepo) Update(account *entity.Account) error {
	return r.db.Save(account).Error
}

// UpdateFields обновляет только перечисленные поля
func (r *AccountRepo) UpdateFields(accountID uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.Model(&entity.Account{}).Where("id = ?", accountID).Updates(updates).Error
}

// Delete жестко удаляет учетную запись
func (r *AccountRepo) Delete(accountID uint) error {
	return r.db.Delete(&entity.Account{}, accountID).Error
}

// List возвращает учетные записи с пагинацией
func (r *AccountRepo) List(limit, offset int) ([]entity.Account, error) {
	var accounts []entity.Account
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&accounts).Error
	return accounts, err
}

// ListPending возвращает аккаунты, подтвердившие email и ожидающие
// одобрения администратора. Неверифицированные аккаунты в очереди не
// показываются: одобрять их еще рано.
func (r *AccountRepo) ListPending() ([]entity.Account, error) {
	var accounts []entity.Account
	err := r.db.
		Where("admin_approved = ? AND email_verified = ?", false, true).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

// Count возвращает общее количество учетных записей
func (r *AccountRepo) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entity.Account{}).Count(&count).Error
	return count, err
}
