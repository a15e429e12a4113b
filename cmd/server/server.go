package main

import (
	"context"
	"crypto/sha256"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/thereayou/taskflow/internal/bot"
	"github.com/thereayou/taskflow/internal/crypto"
	"github.com/thereayou/taskflow/internal/database"
	"github.com/thereayou/taskflow/internal/handlers"
	"github.com/thereayou/taskflow/internal/websocket"
	"github.com/thereayou/taskflow/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	// Ключ кодека выводится из переменной окружения один раз при старте
	// и передаётся явно; глобального состояния с ключом нет
	encKey := os.Getenv("ENCRYPTION_KEY")
	if encKey == "" {
		log.Fatal("ENCRYPTION_KEY is not set")
	}
	keyBytes := sha256.Sum256([]byte(encKey))
	codec, err := crypto.NewCodec(keyBytes[:])
	if err != nil {
		log.Fatalf("Codec init failed: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	botProc := bot.NewProcessor(dbConn)
	chatHandler := handlers.NewChatHandler(dbConn, codec, botProc, hub)

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb)
	projectH := handlers.NewProjectHandler(dbConn, hub)
	taskH := handlers.NewTaskHandler(dbConn)
	chatHTTPH := handlers.NewChatHTTPHandler(dbConn, codec)
	wsH := handlers.NewWebSocketHandler(hub, chatHandler)

	router := gin.Default()
	APIEndpoints(router, jwtMgr, rdb, authH, projectH, taskH, chatHTTPH, wsH)

	return &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
	}
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s", port)
	if err := s.Router.Run(":" + port); err != nil {
		log.Fatalf("Server run error: %v", err)
	}
}
