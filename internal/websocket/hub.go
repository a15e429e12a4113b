package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageType определяет типы сообщений
type MessageType string

const (
	// Системные типы
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"

	// Типы событий комнаты
	TypeMessage   MessageType = "message"
	TypeRoomJoin  MessageType = "room_join"
	TypeRoomLeave MessageType = "room_leave"
)

// Message это конверт всех событий через WebSocket
type Message struct {
	Type      MessageType     `json:"type"`
	ProjectID *uuid.UUID      `json:"project_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub держит единственную на процесс таблицу комнат: проект → множество
// подключённых клиентов. Комната создаётся при первом входе и умирает
// вместе с последним участником; при рестарте процесса клиенты
// переподключаются и таблица строится заново.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты по проектам
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// Register регистрирует клиента и вводит его в комнату его проекта
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		return
	}
	h.clients[client.ID] = client

	room, ok := h.rooms[client.ProjectID]
	if !ok {
		room = make(map[uuid.UUID]*Client)
		h.rooms[client.ProjectID] = room
	}
	room[client.ID] = client

	log.Printf("Client registered: %s (User: %s, Project: %s)", client.ID, client.UserID, client.ProjectID)

	// Уведомляем остальных участников о присоединении
	joinMsg := Message{
		Type:      TypeRoomJoin,
		ProjectID: &client.ProjectID,
		UserID:    client.UserID,
		Timestamp: time.Now(),
	}
	if data, err := json.Marshal(joinMsg); err == nil {
		h.sendToRoomUnsafe(client.ProjectID, data, client.ID)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)

	if room, ok := h.rooms[client.ProjectID]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, client.ProjectID)
		} else {
			leaveMsg := Message{
				Type:      TypeRoomLeave,
				ProjectID: &client.ProjectID,
				UserID:    client.UserID,
				Timestamp: time.Now(),
			}
			if data, err := json.Marshal(leaveMsg); err == nil {
				h.sendToRoomUnsafe(client.ProjectID, data, client.ID)
			}
		}
	}

	close(client.Send)

	log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
}

// SendToRoom отправляет сообщение всем участникам комнаты проекта.
// Доставка per-client best-effort: переполненный канал медленного
// клиента не блокирует остальных.
func (h *Hub) SendToRoom(projectID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.sendToRoomUnsafe(projectID, message, uuid.Nil)
}

func (h *Hub) sendToRoomUnsafe(projectID uuid.UUID, message []byte, excludeID uuid.UUID) {
	if room, ok := h.rooms[projectID]; ok {
		for _, client := range room {
			if client.ID == excludeID {
				continue
			}
			select {
			case client.Send <- message:
			default:
				log.Printf("Client %s send channel full", client.ID)
			}
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:      TypePing,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(msg); err == nil {
		for _, client := range h.clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// RoomUsers возвращает список пользователей в комнате проекта
func (h *Hub) RoomUsers(projectID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[uuid.UUID]bool)
	if room, ok := h.rooms[projectID]; ok {
		for _, client := range room {
			userMap[client.UserID] = true
		}
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}
