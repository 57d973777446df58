package repository

import (
	"github.com/yourusername/photodrop-api/internal/domain/entity"
)

// OrderRepository определяет методы для работы с заказами
type OrderRepository interface {
	Create(order *entity.Order) error
	GetByID(id uint) (*entity.Order, error)
	// GetCurrent возвращает самый свежий незавершенный заказ пользователя
	// (завершенные видны только в истории)
	GetCurrent(email string) (*entity.Order, error)
	// ListRecent возвращает последние заказы пользователя любого статуса,
	// по убыванию времени создания
	ListRecent(email string, limit int) ([]entity.Order, error)
	ListAll() ([]entity.Order, error)

	// Переходы статуса выполняются условным UPDATE по ожидаемому текущему
	// статусу: false означает, что заказ уже не в ожидаемом состоянии.
	// Обратные переходы и перескоки невозможны на уровне запроса.
	MarkPaid(orderID uint) (bool, error)
	MarkApproved(orderID uint) (bool, error)
	MarkCompleted(orderID uint) (bool, error)

	SetPickupInstructions(orderID uint, instructions string) error
	AttachCode(orderID, codeID uint) error

	// DeleteOlderThanNewest удаляет заказы пользователя сверх keep самых
	// свежих (мягкая очистка хранения, не строгая гарантия)
	DeleteOlderThanNewest(email string, keep int) error
}
