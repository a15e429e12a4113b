package handlers

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/taskflow/internal/bot"
	"github.com/thereayou/taskflow/internal/crypto"
	"github.com/thereayou/taskflow/internal/handlers/dto"
	"github.com/thereayou/taskflow/internal/models"
	"github.com/thereayou/taskflow/internal/repository"
	ws "github.com/thereayou/taskflow/internal/websocket"
)

// fakeStore покрывает и хранилище сообщений, и срез, нужный боту
type fakeStore struct {
	mu       sync.Mutex
	messages []models.Message
	members  map[uuid.UUID][]uuid.UUID
	tasks    map[uuid.UUID]*models.Task
	failSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members: make(map[uuid.UUID][]uuid.UUID),
		tasks:   make(map[uuid.UUID]*models.Task),
	}
}

func (f *fakeStore) addMember(projectID, userID uuid.UUID) {
	f.members[projectID] = append(f.members[projectID], userID)
}

func (f *fakeStore) SaveMessage(message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("storage down")
	}
	message.ID = uuid.New()
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeStore) RecentMessages(projectID uuid.UUID, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if f.messages[i].ProjectID == projectID {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

func (f *fakeStore) IsProjectMember(projectID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.members[projectID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateTask(task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task.ID = uuid.New()
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeStore) DeleteTask(taskID, projectID uuid.UUID) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.ProjectID != projectID {
		return nil, repository.ErrNotFound
	}
	delete(f.tasks, taskID)
	return task, nil
}

func (f *fakeStore) TasksByProject(projectID uuid.UUID, limit int) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tasks []models.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			tasks = append(tasks, *t)
		}
		if limit > 0 && len(tasks) == limit {
			break
		}
	}
	return tasks, nil
}

type chatFixture struct {
	store   *fakeStore
	codec   *crypto.Codec
	handler *ChatHandler
	hub     *ws.Hub
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	store := newFakeStore()
	key := sha256.Sum256([]byte("chat-test-key"))
	codec, err := crypto.NewCodec(key[:])
	require.NoError(t, err)

	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	handler := NewChatHandler(store, codec, bot.NewProcessor(store), hub)
	return &chatFixture{store: store, codec: codec, handler: handler, hub: hub}
}

func (fx *chatFixture) joinClient(t *testing.T, projectID uuid.UUID) *ws.Client {
	t.Helper()
	client := ws.NewClient(fx.hub, nil, uuid.New(), projectID)
	before := len(fx.hub.RoomUsers(projectID))
	fx.hub.Register(client)
	require.Eventually(t, func() bool {
		return len(fx.hub.RoomUsers(projectID)) == before+1
	}, time.Second, 5*time.Millisecond)
	return client
}

func chatMessage(t *testing.T, content string) *ws.Message {
	t.Helper()
	data, err := json.Marshal(dto.ChatPayload{Content: content})
	require.NoError(t, err)
	return &ws.Message{Type: ws.TypeMessage, Data: data}
}

// drainMessages выбирает из канала клиента только события чата
func drainMessages(t *testing.T, client *ws.Client) []dto.MessageResponse {
	t.Helper()
	var out []dto.MessageResponse
	for {
		select {
		case raw := <-client.Send:
			var envelope ws.Message
			require.NoError(t, json.Unmarshal(raw, &envelope))
			if envelope.Type != ws.TypeMessage {
				continue
			}
			var msg dto.MessageResponse
			require.NoError(t, json.Unmarshal(envelope.Data, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestPlainChatPersistThenBroadcast(t *testing.T) {
	fx := newChatFixture(t)
	projectID := uuid.New()

	sender := fx.joinClient(t, projectID)
	observer := fx.joinClient(t, projectID)

	require.NoError(t, fx.handler.HandleMessage(sender, chatMessage(t, "привет, команда")))

	for _, client := range []*ws.Client{sender, observer} {
		msgs := drainMessages(t, client)
		require.Len(t, msgs, 1)
		assert.Equal(t, "привет, команда", msgs[0].Content)
		assert.Equal(t, sender.UserID, msgs[0].SenderID)
		assert.Equal(t, projectID, msgs[0].ProjectID)
		assert.False(t, msgs[0].IsBot)
	}

	// в хранилище лежит ciphertext, не открытый текст
	require.Len(t, fx.store.messages, 1)
	stored := fx.store.messages[0]
	assert.NotEqual(t, "привет, команда", stored.Content)

	plaintext, err := fx.codec.Decrypt(stored.Content)
	require.NoError(t, err)
	assert.Equal(t, "привет, команда", plaintext)
}

func TestBotCommandCreatesTaskAndBroadcasts(t *testing.T) {
	fx := newChatFixture(t)
	projectID := uuid.New()

	sender := fx.joinClient(t, projectID)
	observer := fx.joinClient(t, projectID)
	fx.store.addMember(projectID, sender.UserID)

	require.NoError(t, fx.handler.HandleMessage(sender, chatMessage(t, "/create-task Groceries milk and eggs")))

	require.Len(t, fx.store.tasks, 1)
	for _, task := range fx.store.tasks {
		assert.Equal(t, "Groceries", task.Title)
		assert.Equal(t, "milk and eggs", task.Description)
		assert.Equal(t, projectID, task.ProjectID)
		assert.Equal(t, models.StatusPending, task.Status)
	}

	for _, client := range []*ws.Client{sender, observer} {
		msgs := drainMessages(t, client)
		require.Len(t, msgs, 1)
		assert.Equal(t, "Task created: Groceries", msgs[0].Content)
		assert.True(t, msgs[0].IsBot)
		// ответ бота атрибутирован вызвавшему пользователю
		assert.Equal(t, sender.UserID, msgs[0].SenderID)
	}
}

func TestBotCommandUnauthorized(t *testing.T) {
	fx := newChatFixture(t)
	projectID := uuid.New()

	outsider := fx.joinClient(t, projectID)

	require.NoError(t, fx.handler.HandleMessage(outsider, chatMessage(t, "/create-task Sneaky payload here")))

	assert.Empty(t, fx.store.tasks)

	msgs := drainMessages(t, outsider)
	require.Len(t, msgs, 1)
	assert.Equal(t, bot.ReplyUnauthorized, msgs[0].Content)
	assert.True(t, msgs[0].IsBot)
}

func TestPersistFailureAbortsBroadcast(t *testing.T) {
	fx := newChatFixture(t)
	projectID := uuid.New()

	sender := fx.joinClient(t, projectID)
	observer := fx.joinClient(t, projectID)

	fx.store.failSave = true
	err := fx.handler.HandleMessage(sender, chatMessage(t, "lost"))
	require.Error(t, err)

	assert.Empty(t, drainMessages(t, sender))
	assert.Empty(t, drainMessages(t, observer))
}

func TestRejectsEmptyContent(t *testing.T) {
	fx := newChatFixture(t)
	sender := fx.joinClient(t, uuid.New())

	err := fx.handler.HandleMessage(sender, chatMessage(t, ""))
	assert.ErrorIs(t, err, ws.ErrInvalidMessage)
}

func TestRejectsForeignProjectID(t *testing.T) {
	fx := newChatFixture(t)
	sender := fx.joinClient(t, uuid.New())

	msg := chatMessage(t, "hello")
	foreign := uuid.New()
	msg.ProjectID = &foreign

	err := fx.handler.HandleMessage(sender, msg)
	assert.ErrorIs(t, err, ws.ErrProjectMismatch)
}

// Свойство порядка: при конкурентной отправке в одну комнату все
// участники видят одну и ту же последовательность, совпадающую с
// порядком записи в хранилище.
func TestConcurrentSendersObserveSameOrder(t *testing.T) {
	fx := newChatFixture(t)
	projectID := uuid.New()

	a := fx.joinClient(t, projectID)
	b := fx.joinClient(t, projectID)

	const perSender = 30
	var wg sync.WaitGroup
	for i, client := range []*ws.Client{a, b} {
		wg.Add(1)
		go func(tag int, c *ws.Client) {
			defer wg.Done()
			for n := 0; n < perSender; n++ {
				msg := chatMessage(t, fmt.Sprintf("sender-%d message-%d", tag, n))
				assert.NoError(t, fx.handler.HandleMessage(c, msg))
			}
		}(i, client)
	}
	wg.Wait()

	seenByA := drainMessages(t, a)
	seenByB := drainMessages(t, b)
	require.Len(t, seenByA, 2*perSender)
	require.Len(t, seenByB, 2*perSender)

	var persisted []string
	for _, stored := range fx.store.messages {
		plaintext, err := fx.codec.Decrypt(stored.Content)
		require.NoError(t, err)
		persisted = append(persisted, plaintext)
	}

	for i := range seenByA {
		assert.Equal(t, seenByA[i].Content, seenByB[i].Content, "observers diverge at %d", i)
		assert.Equal(t, persisted[i], seenByA[i].Content, "broadcast order differs from persisted at %d", i)
	}
}

// История возвращает подмножество уже разосланного: сообщение не
// рассылается раньше, чем сохранено
func TestRecentMessagesSupersetOfBroadcast(t *testing.T) {
	fx := newChatFixture(t)
	projectID := uuid.New()

	sender := fx.joinClient(t, projectID)
	for i := 0; i < 5; i++ {
		require.NoError(t, fx.handler.HandleMessage(sender, chatMessage(t, fmt.Sprintf("msg-%d", i))))
	}

	broadcast := drainMessages(t, sender)
	history, err := fx.store.RecentMessages(projectID, 50)
	require.NoError(t, err)
	require.Len(t, history, len(broadcast))

	// история отдаёт новые первыми
	for i, msg := range history {
		plaintext, err := fx.codec.Decrypt(msg.Content)
		require.NoError(t, err)
		assert.Equal(t, broadcast[len(broadcast)-1-i].Content, plaintext)
	}
}
