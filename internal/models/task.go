package models

import (
	"github.com/google/uuid"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title       string     `gorm:"not null"`
	Description string
	Status      TaskStatus `gorm:"not null;default:'pending';check:status IN ('pending','in_progress','completed')"`
	Progress    int        `gorm:"default:0;check:progress >= 0 AND progress <= 100"`
	CreatedBy   uuid.UUID
	CreatedAt   time.Time

	// Связи
	Project Project `gorm:"foreignKey:ProjectID"`
}

// StatusForProgress выводит статус задачи из прогресса.
// Статус является чистой функцией прогресса и применяется при каждой записи.
func StatusForProgress(progress int) TaskStatus {
	switch {
	case progress == 100:
		return StatusCompleted
	case progress > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}
