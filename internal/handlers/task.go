package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/middleware"
	"github.com/thereayou/taskflow/internal/models"
	"github.com/thereayou/taskflow/internal/repository"
)

type TaskHandler struct {
	repo repository.Repository
}

func NewTaskHandler(repo repository.Repository) *TaskHandler {
	return &TaskHandler{repo: repo}
}

// CreateTask создает задачу в проекте
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req struct {
		ProjectID   string `json:"project_id" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	member, err := h.repo.IsProjectMember(projectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found or unauthorized"})
		return
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusPending,
		Progress:    0,
		CreatedBy:   userID,
		CreatedAt:   time.Now(),
	}

	if err := h.repo.CreateTask(task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetProjectTasks возвращает задачи проекта
func (h *TaskHandler) GetProjectTasks(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	member, err := h.repo.IsProjectMember(projectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found or unauthorized"})
		return
	}

	tasks, err := h.repo.TasksByProject(projectID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get tasks"})
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// UpdateTaskProgress записывает прогресс задачи. Статус выводится из
// прогресса, агрегат проекта пересчитывается атомарно в хранилище.
func (h *TaskHandler) UpdateTaskProgress(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req struct {
		Progress *int `json:"progress" binding:"required,min=0,max=100"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.canAccessTask(c, taskID, userID) {
		return
	}

	task, err := h.repo.UpdateTaskProgress(taskID, *req.Progress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found or unauthorized"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask удаляет задачу
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	projectID, ok := h.taskProject(c, taskID, userID)
	if !ok {
		return
	}

	if _, err := h.repo.DeleteTask(taskID, projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found or unauthorized"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// canAccessTask проверяет, что задача лежит в проекте пользователя
func (h *TaskHandler) canAccessTask(c *gin.Context, taskID, userID uuid.UUID) bool {
	_, ok := h.taskProject(c, taskID, userID)
	return ok
}

// taskProject находит проект задачи с проверкой участия пользователя.
// Задача из чужого проекта неотличима от несуществующей.
func (h *TaskHandler) taskProject(c *gin.Context, taskID, userID uuid.UUID) (uuid.UUID, bool) {
	task, err := h.repo.GetTask(taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found or unauthorized"})
			return uuid.Nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get task"})
		return uuid.Nil, false
	}

	member, err := h.repo.IsProjectMember(task.ProjectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
		return uuid.Nil, false
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found or unauthorized"})
		return uuid.Nil, false
	}

	return task.ProjectID, true
}
