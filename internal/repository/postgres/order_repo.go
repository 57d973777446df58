package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/photodrop-api/internal/domain/entity"
	apperrors "github.com/yourusername/photodrop-api/internal/pkg/errors"
)

// OrderRepo реализует repository.OrderRepository
type OrderRepo struct {
	db *gorm.DB
}

// NewOrderRepo создает новый репозиторий заказов
func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create создает новый заказ
func (r *OrderRepo) Create(order *entity.Order) error {
	return r.db.Create(order).Error
}

// GetByID возвращает заказ по ID
func (r *OrderRepo) GetByID(id uint) (*entity.Order, error) {
	var order entity.Order
	err := r.db.First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetCurrent возвращает самый свежий незавершенный заказ пользователя
func (r *OrderRepo) GetCurrent(email string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.
		Where("email = ? AND status <> ?", email, entity.OrderStatusCompleted).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListRecent возвращает последние заказы пользователя любого статуса
func (r *OrderRepo) ListRecent(email string, limit int) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.
		Where("email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// ListAll возвращает все заказы, по убыванию времени создания
func (r *OrderRepo) ListAll() ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// markTransition выполняет переход статуса условным UPDATE по ожидаемому
// текущему статусу. RowsAffected == 0 означает, что заказ не в ожидаемом
// состоянии: обратный переход невозможен на уровне запроса.
func (r *OrderRepo) markTransition(orderID uint, from, to string, extra map[string]interface{}) (bool, error) {
	if !entity.CanTransition(from, to) {
		return false, fmt.Errorf("invalid order status transition %s -> %s", from, to)
	}
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.Model(&entity.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition order %d to %s: %w", orderID, to, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkPaid переводит заказ pending -> paid и фиксирует время запроса оплаты
func (r *OrderRepo) MarkPaid(orderID uint) (bool, error) {
	return r.markTransition(orderID, entity.OrderStatusPending, entity.OrderStatusPaid, map[string]interface{}{
		"payment_requested_at": time.Now(),
	})
}

// MarkApproved переводит заказ paid -> approved
func (r *OrderRepo) MarkApproved(orderID uint) (bool, error) {
	return r.markTransition(orderID, entity.OrderStatusPaid, entity.OrderStatusApproved, map[string]interface{}{
		"approved_at": time.Now(),
	})
}

// MarkCompleted переводит заказ approved -> completed
func (r *OrderRepo) MarkCompleted(orderID uint) (bool, error) {
	return r.markTransition(orderID, entity.OrderStatusApproved, entity.OrderStatusCompleted, map[string]interface{}{
		"completed_at": time.Now(),
	})
}

// SetPickupInstructions сохраняет инструкции по получению
func (r *OrderRepo) SetPickupInstructions(orderID uint, instructions string) error {
	return r.db.Model(&entity.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"pickup_instructions": instructions,
			"updated_at":          time.Now(),
		}).Error
}

// AttachCode связывает заказ с выпущенным кодом верификации
func (r *OrderRepo) AttachCode(orderID, codeID uint) error {
	return r.db.Model(&entity.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"code_id":    codeID,
			"updated_at": time.Now(),
		}).Error
}

// DeleteOlderThanNewest удаляет заказы пользователя сверх keep самых свежих.
// Папки в облачном хранилище при этом не трогаются: очистка контролирует
// только стоимость хранения строк.
func (r *OrderRepo) DeleteOlderThanNewest(email string, keep int) error {
	if keep <= 0 {
		return nil
	}
	subQuery := r.db.Model(&entity.Order{}).
		Select("id").
		Where("email = ?", email).
		Order("created_at DESC").
		Limit(keep)
	return r.db.
		Where("email = ? AND id NOT IN (?)", email, subQuery).
		Delete(&entity.Order{}).Error
}
