package database

import (
	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateTask создает задачу и в той же транзакции пересчитывает
// агрегированный прогресс проекта: новая задача с нулевым прогрессом
// меняет среднее.
func (d *Database) CreateTask(task *models.Task) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&project, "id = ?", task.ProjectID).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Create(task).Error; err != nil {
			return err
		}

		return recomputeProgressTx(tx, &project)
	})
}

func (d *Database) GetTask(id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := d.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (d *Database) TasksByProject(projectID uuid.UUID, limit int) ([]models.Task, error) {
	var tasks []models.Task

	query := d.db.Where("project_id = ?", projectID).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// DeleteTask удаляет задачу строго внутри указанного проекта: задача с
// существующим id, но из чужого проекта, считается не найденной.
func (d *Database) DeleteTask(taskID, projectID uuid.UUID) (*models.Task, error) {
	var task models.Task

	err := d.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&project, "id = ?", projectID).Error; err != nil {
			return notFound(err)
		}

		if err := tx.First(&task, "id = ? AND project_id = ?", taskID, projectID).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Delete(&task).Error; err != nil {
			return err
		}

		return recomputeProgressTx(tx, &project)
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// UpdateTaskProgress записывает прогресс, выводит статус из прогресса и
// атомарно пересчитывает агрегат проекта под блокировкой его строки.
func (d *Database) UpdateTaskProgress(taskID uuid.UUID, progress int) (*models.Task, error) {
	var task models.Task

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return notFound(err)
		}

		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&project, "id = ?", task.ProjectID).Error; err != nil {
			return notFound(err)
		}

		task.Progress = progress
		task.Status = models.StatusForProgress(progress)
		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		return recomputeProgressTx(tx, &project)
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}
