package dto

import (
	"time"

	"github.com/google/uuid"
)

// ChatPayload структура для входящих сообщений чата
type ChatPayload struct {
	Content string `json:"content"`
}

// MessageResponse структура для исходящих событий чата.
// Content здесь всегда расшифрован.
type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project"`
	SenderID  uuid.UUID `json:"sender"`
	Content   string    `json:"content"`
	IsBot     bool      `json:"isBot"`
	CreatedAt time.Time `json:"createdAt"`
}
