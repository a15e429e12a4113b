package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// клиент без живого соединения: пампы не запускаются, Send читается напрямую
func stubClient(hub *Hub, projectID uuid.UUID) *Client {
	return NewClient(hub, nil, uuid.New(), projectID)
}

func waitRoomSize(t *testing.T, hub *Hub, projectID uuid.UUID, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(hub.RoomUsers(projectID)) == want
	}, time.Second, 5*time.Millisecond)
}

func TestRegisterCreatesRoom(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()

	client := stubClient(hub, projectID)
	hub.Register(client)

	waitRoomSize(t, hub, projectID, 1)
	assert.Equal(t, []uuid.UUID{client.UserID}, hub.RoomUsers(projectID))
}

func TestUnregisterRemovesEmptyRoom(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()

	client := stubClient(hub, projectID)
	hub.Register(client)
	waitRoomSize(t, hub, projectID, 1)

	hub.Unregister(client)
	waitRoomSize(t, hub, projectID, 0)

	// канал закрыт ровно один раз, повторный unregister не паникует
	hub.Unregister(client)
	waitRoomSize(t, hub, projectID, 0)
}

func TestJoinNotifiesExistingMembers(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()

	first := stubClient(hub, projectID)
	hub.Register(first)
	waitRoomSize(t, hub, projectID, 1)

	second := stubClient(hub, projectID)
	hub.Register(second)
	waitRoomSize(t, hub, projectID, 2)

	var msg Message
	require.NoError(t, json.Unmarshal(<-first.Send, &msg))
	assert.Equal(t, TypeRoomJoin, msg.Type)
	assert.Equal(t, second.UserID, msg.UserID)

	// новичку чужой join не приходит
	assert.Empty(t, second.Send)
}

func TestSendToRoomReachesAllMembers(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()

	a := stubClient(hub, projectID)
	b := stubClient(hub, projectID)
	hub.Register(a)
	waitRoomSize(t, hub, projectID, 1)
	hub.Register(b)
	waitRoomSize(t, hub, projectID, 2)
	<-a.Send // join от b

	hub.SendToRoom(projectID, []byte(`{"type":"message"}`))

	assert.Equal(t, `{"type":"message"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"message"}`, string(<-b.Send))
}

func TestSendToRoomIsolatesProjects(t *testing.T) {
	hub := startHub(t)
	projectA := uuid.New()
	projectB := uuid.New()

	a := stubClient(hub, projectA)
	b := stubClient(hub, projectB)
	hub.Register(a)
	hub.Register(b)
	waitRoomSize(t, hub, projectA, 1)
	waitRoomSize(t, hub, projectB, 1)

	hub.SendToRoom(projectA, []byte("only-a"))

	assert.Equal(t, "only-a", string(<-a.Send))
	assert.Empty(t, b.Send)
}

func TestSlowClientDoesNotBlockRoom(t *testing.T) {
	hub := startHub(t)
	projectID := uuid.New()

	slow := stubClient(hub, projectID)
	slow.Send = make(chan []byte) // без буфера и без читателя
	fast := stubClient(hub, projectID)

	hub.Register(slow)
	waitRoomSize(t, hub, projectID, 1)
	hub.Register(fast)
	waitRoomSize(t, hub, projectID, 2)

	done := make(chan struct{})
	go func() {
		hub.SendToRoom(projectID, []byte("payload"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked by slow client")
	}

	assert.Equal(t, "payload", string(<-fast.Send))
}
