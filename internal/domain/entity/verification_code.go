package entity

import "time"

// VerificationCode — одноразовый 6-значный код, обмениваемый на ссылку
// скачивания. После установки UsedByEmail запись терминальна: код больше
// никогда не может быть погашен.
type VerificationCode struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Code        string     `gorm:"size:10;not null;uniqueIndex" json:"code"`
	FolderPath  string     `gorm:"size:255;not null;default:''" json:"folder_path"`
	SharedLink  string     `gorm:"size:500;not null;default:''" json:"shared_link"`
	UsedByEmail *string    `gorm:"size:100" json:"used_by_email,omitempty"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (VerificationCode) TableName() string {
	return "verification_codes"
}

// IsUsed возвращает true, если код уже был погашен
func (c *VerificationCode) IsUsed() bool {
	return c.UsedByEmail != nil
}
