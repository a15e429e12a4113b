package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/models"
	"github.com/thereayou/taskflow/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateProject создает проект и делает создателя владельцем
func (d *Database) CreateProject(project *models.Project) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		member := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    project.OwnerID,
			Role:      models.RoleOwner,
			CreatedAt: time.Now(),
		}
		return tx.Create(&member).Error
	})
}

func (d *Database) GetProject(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := d.db.Preload("Members").First(&project, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

func (d *Database) ProjectsByMember(userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project

	err := d.db.
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ?", userID).
		Find(&projects).Error

	return projects, err
}

func (d *Database) IsProjectMember(projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := d.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (d *Database) AddProjectMember(member *models.ProjectMember) error {
	return d.db.Create(member).Error
}

func (d *Database) UpdateMemberRole(projectID, userID uuid.UUID, role string) error {
	res := d.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (d *Database) RemoveProjectMember(projectID, userID uuid.UUID) error {
	res := d.db.
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RecomputeProjectProgress пересчитывает агрегированный прогресс проекта.
// Строка проекта блокируется FOR UPDATE, чтобы конкурентные изменения
// задач не давали читателям несогласованное значение.
func (d *Database) RecomputeProjectProgress(projectID uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&project, "id = ?", projectID).Error; err != nil {
			return notFound(err)
		}
		return recomputeProgressTx(tx, &project)
	})
}

// recomputeProgressTx выполняет пересчёт внутри уже открытой транзакции.
// Проект без задач сохраняет прежний прогресс.
func recomputeProgressTx(tx *gorm.DB, project *models.Project) error {
	var tasks []models.Task
	if err := tx.Where("project_id = ?", project.ID).Find(&tasks).Error; err != nil {
		return err
	}

	progress, ok := models.AggregateProgress(tasks)
	if !ok {
		return nil
	}

	return tx.Model(project).Update("progress", progress).Error
}
