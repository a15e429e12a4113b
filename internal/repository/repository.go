package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/models"
)

// ErrNotFound возвращается, когда запись отсутствует или принадлежит
// другому проекту. Конкретный бэкенд обязан транслировать свои ошибки
// "не найдено" в эту.
var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	SaveUser(user *models.User) error
	GetUser(id uuid.UUID) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	UpdateLastSeen(id uuid.UUID) error
}

type ProjectRepository interface {
	CreateProject(project *models.Project) error
	GetProject(id uuid.UUID) (*models.Project, error)
	// ProjectsByMember возвращает проекты, где пользователь состоит участником
	ProjectsByMember(userID uuid.UUID) ([]models.Project, error)
	IsProjectMember(projectID, userID uuid.UUID) (bool, error)
	AddProjectMember(member *models.ProjectMember) error
	UpdateMemberRole(projectID, userID uuid.UUID, role string) error
	RemoveProjectMember(projectID, userID uuid.UUID) error
	// RecomputeProjectProgress атомарно пересчитывает агрегированный
	// прогресс проекта как округлённое среднее по его задачам
	RecomputeProjectProgress(projectID uuid.UUID) error
}

type TaskRepository interface {
	CreateTask(task *models.Task) error
	GetTask(id uuid.UUID) (*models.Task, error)
	// TasksByProject возвращает задачи проекта; limit <= 0 означает без ограничения
	TasksByProject(projectID uuid.UUID, limit int) ([]models.Task, error)
	// DeleteTask удаляет задачу только внутри указанного проекта
	DeleteTask(taskID, projectID uuid.UUID) (*models.Task, error)
	UpdateTaskProgress(taskID uuid.UUID, progress int) (*models.Task, error)
}

type MessageRepository interface {
	SaveMessage(message *models.Message) error
	// RecentMessages возвращает последние сообщения проекта,
	// новые первыми
	RecentMessages(projectID uuid.UUID, limit int) ([]models.Message, error)
}

// Repository объединяет все хранилища; конкретный движок персистентности
// остаётся за реализацией.
type Repository interface {
	UserRepository
	ProjectRepository
	TaskRepository
	MessageRepository
}
