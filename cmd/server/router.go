package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/taskflow/internal/handlers"
	"github.com/thereayou/taskflow/internal/middleware"
	"github.com/thereayou/taskflow/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *auth.JWTManager,
	rdb *redis.Client,
	authH *handlers.AuthHandler,
	projectH *handlers.ProjectHandler,
	taskH *handlers.TaskHandler,
	chatH *handlers.ChatHTTPHandler,
	wsH *handlers.WebSocketHandler,
) {
	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", middleware.AuthMiddleware(jwtMgr, rdb), authH.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1", middleware.AuthMiddleware(jwtMgr, rdb))
	{
		projects := api.Group("/projects")
		{
			projects.POST("", projectH.CreateProject)
			projects.GET("", projectH.GetMyProjects)
			projects.GET("/:id", projectH.GetProject)
			projects.PATCH("/:id/progress", projectH.RecomputeProgress)
			projects.POST("/:id/members", projectH.AddMember)
			projects.PATCH("/:id/members/:userId", projectH.UpdateMemberRole)
			projects.DELETE("/:id/members/:userId", projectH.RemoveMember)
			projects.GET("/:id/tasks", taskH.GetProjectTasks)
			projects.GET("/:id/messages", chatH.GetProjectMessages)
		}

		tasks := api.Group("/tasks")
		{
			tasks.POST("", taskH.CreateTask)
			tasks.PATCH("/:id/progress", taskH.UpdateTaskProgress)
			tasks.DELETE("/:id", taskH.DeleteTask)
		}
	}

	// WebSocket endpoint: ?token=...&projectId=...
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), wsH.HandleWebSocket)
}
