// Package server is the HTTP shell around the artifact core: REST endpoints
// for artifact state, an NDJSON ingest endpoint for model streams, and SSE
// plus WebSocket feeds republished from the event bus. It owns no artifact
// logic of its own.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"easel/internal/artifact/events"
	"easel/internal/orchestrator"
	"easel/internal/shared/logging"
)

// Config holds the server settings.
type Config struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	AllowedOrigins []string      `json:"allowed_origins"`
	Debug          bool          `json:"debug"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses must not be cut off
	}
}

// Server wires the orchestrator and event bus behind gin.
type Server struct {
	orch       *orchestrator.Orchestrator
	bus        *events.Bus
	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	logger     logging.Logger
}

// New builds the server and its routes.
func New(config Config, orch *orchestrator.Orchestrator, bus *events.Bus) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-User-Id", "X-User-Email", "X-User-Name"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		orch:   orch,
		bus:    bus,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin filtering is handled by the CORS middleware.
				return true
			},
		},
		logger: logging.NewComponentLogger("Server"),
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:      engine,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		chats := api.Group("/chats/:chatID")
		chats.GET("/artifacts", s.handleListArtifacts)
		chats.GET("/artifacts/events", s.handleSSE)
		chats.GET("/artifacts/:docID", s.handleGetArtifact)
		chats.GET("/artifacts/:docID/view", s.handleRenderArtifact)
		chats.GET("/artifacts/:docID/versions", s.handleListVersions)
		chats.POST("/artifacts/:docID/versions", s.handleSnapshotVersion)
		chats.POST("/artifacts/:docID/versions/:index/restore", s.handleRestoreVersion)
		chats.POST("/artifacts/:docID/visibility", s.handleSetVisibility)
		chats.POST("/artifacts/:docID/actions/:label", s.handleRunAction)
		chats.POST("/stream", s.handleStream)
		chats.POST("/stream/finish", s.handleFinish)
		chats.DELETE("", s.handleEvictChat)
	}

	s.engine.GET("/ws/chats/:chatID", s.handleWebSocket)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
