package entity

import "time"

// Статусы заказа. Переходы строго вперед:
// pending -> paid -> approved -> completed
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusApproved  = "approved"
	OrderStatusCompleted = "completed"
)

// orderStatusRank задает порядок статусов для проверки монотонности
var orderStatusRank = map[string]int{
	OrderStatusPending:   0,
	OrderStatusPaid:      1,
	OrderStatusApproved:  2,
	OrderStatusCompleted: 3,
}

// Order представляет заказ на цифровые фотографии. Заказ принадлежит ровно
// одному аккаунту (по email) и хранит путь к папке в облачном хранилище.
type Order struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Email  string `gorm:"size:100;not null;index" json:"email"`
	Status string `gorm:"size:20;not null;default:'pending';index" json:"status"`

	FileName   string `gorm:"size:255;not null;default:''" json:"file_name"`
	FolderPath string `gorm:"size:255;not null;default:''" json:"folder_path"`
	SharedLink string `gorm:"size:500;not null;default:''" json:"shared_link"`

	Country string `gorm:"size:60;not null;default:''" json:"country"`
	Phone   string `gorm:"size:30;not null;default:''" json:"phone"`
	Address string `gorm:"size:255;not null;default:''" json:"address"`

	PickupInstructions string `gorm:"size:500;not null;default:''" json:"pickup_instructions"`

	// Код, выпущенный при одобрении заказа
	CodeID *uint `gorm:"index" json:"code_id,omitempty"`

	PaymentRequestedAt *time.Time `json:"payment_requested_at,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// CanTransition возвращает true, если переход from -> to идет строго на один
// шаг вперед по жизненному циклу
func CanTransition(from, to string) bool {
	fromRank, okFrom := orderStatusRank[from]
	toRank, okTo := orderStatusRank[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank == fromRank+1
}
