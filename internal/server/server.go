package server

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alertmon/internal/handlers"
)

// requestID tags every request with an id for log correlation. An id supplied
// by the caller wins.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

type Server struct {
	router         *gin.Engine
	webhookHandler *handlers.WebhookHandler
	alertHandler   *handlers.AlertHandler
	healthHandler  *handlers.HealthHandler
	port           int
}

func New(webhookHandler *handlers.WebhookHandler, alertHandler *handlers.AlertHandler, healthHandler *handlers.HealthHandler, port int) *Server {
	return &Server{
		router:         gin.Default(),
		webhookHandler: webhookHandler,
		alertHandler:   alertHandler,
		healthHandler:  healthHandler,
		port:           port,
	}
}

func (s *Server) SetupRoutes() {
	s.router.Use(requestID())

	// Health check
	s.router.GET("/health", s.healthHandler.Check)

	// Prometheus metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Alertmanager-style webhook ingestion
	s.router.POST("/webhook/alert", s.webhookHandler.HandleAlert)

	// Alert API
	api := s.router.Group("/api")
	{
		api.GET("/alerts", s.alertHandler.List)
		api.GET("/alerts/:id", s.alertHandler.GetByID)
		api.PUT("/alerts/:id/status", s.alertHandler.UpdateStatus)
		api.GET("/stats", s.alertHandler.Stats)
	}
}

func (s *Server) Start() error {
	s.SetupRoutes()
	fmt.Printf("Starting server on port %d...\n", s.port)
	return s.router.Run(":" + strconv.Itoa(s.port))
}
