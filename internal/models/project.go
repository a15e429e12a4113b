package models

import (
	"github.com/google/uuid"
	"time"
)

const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	OwnerID     uuid.UUID `gorm:"not null"`
	Progress    int       `gorm:"default:0;check:progress >= 0 AND progress <= 100"`
	CreatedAt   time.Time

	// Связи
	Members []ProjectMember `gorm:"foreignKey:ProjectID"`
	Tasks   []Task          `gorm:"foreignKey:ProjectID"`
}

// ProjectMember связывает пользователя с проектом и его ролью
type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role      string    `gorm:"not null;default:'viewer';check:role IN ('owner','editor','viewer')"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}

// AggregateProgress считает округлённое среднее прогресса задач проекта.
// Для пустого набора задач возвращает ok=false: сохранённый прогресс
// проекта в этом случае не меняется.
func AggregateProgress(tasks []Task) (int, bool) {
	if len(tasks) == 0 {
		return 0, false
	}
	total := 0
	for _, t := range tasks {
		total += t.Progress
	}
	// round(mean) на целых числах
	return (total + len(tasks)/2) / len(tasks), true
}
