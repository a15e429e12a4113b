package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/crypto"
	"github.com/thereayou/taskflow/internal/handlers/dto"
	"github.com/thereayou/taskflow/internal/middleware"
	"github.com/thereayou/taskflow/internal/repository"
)

// historyLimit задает окно недавней истории чата
const historyLimit = 50

type ChatHTTPHandler struct {
	repo  repository.Repository
	codec *crypto.Codec
}

func NewChatHTTPHandler(repo repository.Repository, codec *crypto.Codec) *ChatHTTPHandler {
	return &ChatHTTPHandler{repo: repo, codec: codec}
}

// GetProjectMessages возвращает последние сообщения проекта, новые
// первыми. Содержимое расшифровывается; нечитаемые записи исключаются
// из выдачи и логируются, не роняя весь список.
func (h *ChatHTTPHandler) GetProjectMessages(c *gin.Context) {
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
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this project"})
		return
	}

	messages, err := h.repo.RecentMessages(projectID, historyLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	result := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		plaintext, err := h.codec.Decrypt(msg.Content)
		if err != nil {
			log.Printf("Skipping undecryptable message %s: %v", msg.ID, err)
			continue
		}

		result = append(result, dto.MessageResponse{
			ID:        msg.ID,
			ProjectID: msg.ProjectID,
			SenderID:  msg.SenderID,
			Content:   plaintext,
			IsBot:     msg.IsBot,
			CreatedAt: msg.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": result})
}
