package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/taskflow/internal/bot"
	"github.com/thereayou/taskflow/internal/crypto"
	"github.com/thereayou/taskflow/internal/handlers/dto"
	"github.com/thereayou/taskflow/internal/models"
	"github.com/thereayou/taskflow/internal/repository"
	"github.com/thereayou/taskflow/internal/websocket"
)

// CommandPrefix отличает команду боту от обычного сообщения
const CommandPrefix = "/"

// ChatHandler это единственная точка, которая сохраняет сообщения,
// вызывает процессор команд и рассылает события в комнату. Для каждой
// комнаты pipeline encrypt → persist → decrypt → broadcast выполняется
// строго последовательно: все участники видят один и тот же порядок
// событий, совпадающий с порядком записи. Разные комнаты независимы.
type ChatHandler struct {
	repo  repository.MessageRepository
	codec *crypto.Codec
	bot   *bot.Processor
	hub   *websocket.Hub

	mu    sync.Mutex
	rooms map[uuid.UUID]*sync.Mutex
}

func NewChatHandler(repo repository.MessageRepository, codec *crypto.Codec, botProc *bot.Processor, hub *websocket.Hub) *ChatHandler {
	return &ChatHandler{
		repo:  repo,
		codec: codec,
		bot:   botProc,
		hub:   hub,
		rooms: make(map[uuid.UUID]*sync.Mutex),
	}
}

// roomLock возвращает мьютекс комнаты, создавая его при первом обращении
func (h *ChatHandler) roomLock(projectID uuid.UUID) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.rooms[projectID]
	if !ok {
		lock = &sync.Mutex{}
		h.rooms[projectID] = lock
	}
	return lock
}

func (h *ChatHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeMessage:
		return h.handleChatMessage(client, msg)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		return nil
	}
}

func (h *ChatHandler) handleChatMessage(client *websocket.Client, msg *websocket.Message) error {
	// Соединение привязано к одной комнате: событие с чужим projectId
	// считается ошибкой клиента, а не поводом для переадресации
	if msg.ProjectID != nil && *msg.ProjectID != client.ProjectID {
		return websocket.ErrProjectMismatch
	}
	projectID := client.ProjectID

	var payload dto.ChatPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return err
	}
	if payload.Content == "" {
		return websocket.ErrInvalidMessage
	}

	lock := h.roomLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	if strings.HasPrefix(payload.Content, CommandPrefix) {
		// Ответ бота идёт тем же конвейером, что и обычное сообщение;
		// ошибка его сохранения видна только вызвавшей сессии
		reply := h.bot.Process(projectID, client.UserID, strings.TrimPrefix(payload.Content, CommandPrefix))
		return h.persistAndBroadcast(projectID, client.UserID, reply, true)
	}

	return h.persistAndBroadcast(projectID, client.UserID, payload.Content, false)
}

// persistAndBroadcast сохраняет сообщение и рассылает его комнате.
// Порядок persist-затем-broadcast обязателен: сообщение не должно быть
// видно ни одному клиенту раньше, чем оно записано в хранилище. Ошибка
// сохранения отменяет рассылку.
func (h *ChatHandler) persistAndBroadcast(projectID, senderID uuid.UUID, content string, isBot bool) error {
	ciphertext, err := h.codec.Encrypt(content)
	if err != nil {
		return err
	}

	message := &models.Message{
		ProjectID: projectID,
		SenderID:  senderID,
		Content:   ciphertext,
		IsBot:     isBot,
		CreatedAt: time.Now(),
	}

	if err := h.repo.SaveMessage(message); err != nil {
		log.Printf("Failed to save message: %v", err)
		return err
	}

	// Расшифровываем сохранённую копию, а не исходный текст: в комнату
	// уходит ровно то, что при чтении истории увидит переподключившийся
	plaintext, err := h.codec.Decrypt(message.Content)
	if err != nil {
		log.Printf("Failed to decrypt stored message %s: %v", message.ID, err)
		return err
	}

	response := dto.MessageResponse{
		ID:        message.ID,
		ProjectID: message.ProjectID,
		SenderID:  message.SenderID,
		Content:   plaintext,
		IsBot:     message.IsBot,
		CreatedAt: message.CreatedAt,
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		return err
	}

	wsMsg := websocket.Message{
		Type:      websocket.TypeMessage,
		ProjectID: &projectID,
		UserID:    senderID,
		Data:      responseData,
		Timestamp: time.Now(),
	}

	msgData, err := json.Marshal(wsMsg)
	if err != nil {
		return err
	}

	h.hub.SendToRoom(projectID, msgData)

	return nil
}
