package entity

import "time"

// AdminEntry — запись allow-list администраторов. Наличие email в таблице
// дает привилегии; проверяется на каждом запросе и не кешируется.
type AdminEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (AdminEntry) TableName() string {
	return "admins"
}
