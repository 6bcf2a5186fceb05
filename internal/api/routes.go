package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/distintivos/internal/badge"
	"github.com/youruser/distintivos/internal/logging"
)

// Server exposes QR encoding and single-badge assembly over HTTP.
type Server struct {
	assembler  *badge.Assembler
	qrModulePx int
	logger     *slog.Logger
}

// NewServer wires the handlers. assembler may be nil, in which case
// /api/badges answers 503.
func NewServer(assembler *badge.Assembler, qrModulePx int, logger *slog.Logger) *Server {
	return &Server{
		assembler:  assembler,
		qrModulePx: qrModulePx,
		logger:     logging.NewComponentLogger(logger, "api"),
	}
}

// Router builds a gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.MaxMultipartMemory = maxUploadBytes
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API under /api.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/qr", s.qrHandler)
		api.POST("/badges", s.badgeHandler)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			logging.String(logging.FieldEventType, "http_request"),
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}
