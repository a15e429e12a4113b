package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/thereayou/taskflow/internal/middleware"
	ws "github.com/thereayou/taskflow/internal/websocket"
)

func setupWSRouter(t *testing.T, userID uuid.UUID, authenticated bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewWebSocketHandler(ws.NewHub(), nil)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if authenticated {
			c.Set(middleware.UserIDKey, userID)
		}
	}, handler.HandleWebSocket)
	return r
}

// Без projectId соединение не принимается: 400 до какого-либо upgrade
func TestHandleWebSocketRequiresProjectID(t *testing.T) {
	r := setupWSRouter(t, uuid.New(), true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("Upgrade"))
	assert.Contains(t, w.Body.String(), "projectId")
}

func TestHandleWebSocketRejectsMalformedProjectID(t *testing.T) {
	r := setupWSRouter(t, uuid.New(), true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?projectId=not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("Upgrade"))
}

func TestHandleWebSocketRequiresAuthenticatedUser(t *testing.T) {
	r := setupWSRouter(t, uuid.Nil, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?projectId="+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
