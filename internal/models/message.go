package models

import (
	"github.com/google/uuid"
	"time"
)

// Message хранит содержимое в зашифрованном виде: Content на диске
// это ciphertext кодека, открытый текст живёт только в памяти.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"not null"`
	IsBot     bool      `gorm:"default:false"`
	CreatedAt time.Time

	// Связи
	Sender  User    `gorm:"foreignKey:SenderID"`
	Project Project `gorm:"foreignKey:ProjectID"`
}
