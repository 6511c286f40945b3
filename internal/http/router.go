package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-relay/internal/ws"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	healthH *HealthHandler,
	patientH *PatientHandler,
	uploadH *UploadHandler,
	wsServer *ws.Server,
	filesDir string,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/", rootHandler)
	r.GET("/health", healthH.Health)
	r.GET("/ws", wsServer.Handle)
	r.POST("/upload", uploadH.Upload)

	r.GET("/patients", patientH.ListPatients)
	r.GET("/patients/:id", patientH.GetPatient)
	r.GET("/patients/:id/reports", patientH.PatientReports)
	r.GET("/reports/:id", patientH.GetReport)

	// Documentos subidos y reportes renderizados.
	if filesDir != "" {
		r.Static("/files", filesDir)
	}

	return r
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "care relay backend",
		"status":    "running",
		"timestamp": time.Now().UTC(),
	})
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
