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
	"github.com/thereayou/taskflow/internal/websocket"
)

type ProjectHandler struct {
	repo repository.Repository
	hub  *websocket.Hub
}

func NewProjectHandler(repo repository.Repository, hub *websocket.Hub) *ProjectHandler {
	return &ProjectHandler{repo: repo, hub: hub}
}

// CreateProject создает проект; создатель становится владельцем
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := &models.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
		CreatedAt:   time.Now(),
	}

	if err := h.repo.CreateProject(project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetMyProjects возвращает проекты, где пользователь состоит участником
func (h *ProjectHandler) GetMyProjects(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	projects, err := h.repo.ProjectsByMember(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get projects"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

// GetProject возвращает проект с участниками и числом онлайн в комнате
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	if !h.requireMember(c, projectID, userID) {
		return
	}

	project, err := h.repo.GetProject(projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found or unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project":      project,
		"online_users": h.hub.RoomUsers(projectID),
	})
}

// RecomputeProgress пересчитывает агрегированный прогресс проекта
func (h *ProjectHandler) RecomputeProgress(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	if !h.requireMember(c, projectID, userID) {
		return
	}

	if err := h.repo.RecomputeProjectProgress(projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to recompute progress"})
		return
	}

	project, err := h.repo.GetProject(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get project"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// AddMember добавляет участника; доступно только владельцу
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role" binding:"required,oneof=editor viewer"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.requireOwner(c, projectID, userID) {
		return
	}

	newMember, err := h.repo.FindUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	alreadyMember, err := h.repo.IsProjectMember(projectID, newMember.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
		return
	}
	if alreadyMember {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already a member"})
		return
	}

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    newMember.ID,
		Role:      req.Role,
		CreatedAt: time.Now(),
	}

	if err := h.repo.AddProjectMember(member); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}

	c.JSON(http.StatusOK, member)
}

// UpdateMemberRole меняет роль участника; доступно только владельцу
func (h *ProjectHandler) UpdateMemberRole(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	memberID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req struct {
		Role string `json:"role" binding:"required,oneof=editor viewer"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.requireOwner(c, projectID, userID) {
		return
	}

	if err := h.repo.UpdateMemberRole(projectID, memberID, req.Role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update member"})
		return
	}

	c.Status(http.StatusOK)
}

// RemoveMember убирает участника из проекта; доступно только владельцу
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	memberID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if !h.requireOwner(c, projectID, userID) {
		return
	}

	if err := h.repo.RemoveProjectMember(projectID, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove member"})
		return
	}

	c.Status(http.StatusOK)
}

func (h *ProjectHandler) requireMember(c *gin.Context, projectID, userID uuid.UUID) bool {
	member, err := h.repo.IsProjectMember(projectID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
		return false
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found or unauthorized"})
		return false
	}
	return true
}

func (h *ProjectHandler) requireOwner(c *gin.Context, projectID, userID uuid.UUID) bool {
	project, err := h.repo.GetProject(projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found or unauthorized"})
		return false
	}

	for _, member := range project.Members {
		if member.UserID == userID && member.Role == models.RoleOwner {
			return true
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Project not found or unauthorized"})
	return false
}
