package database

import (
	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/models"
)

func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

// RecentMessages получает последние сообщения проекта, новые первыми
func (d *Database) RecentMessages(projectID uuid.UUID, limit int) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Preload("Sender").
		Find(&messages).Error

	if err != nil {
		return nil, err
	}
	return messages, nil
}
