package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Probe verifica de forma independiente la salud de un colaborador.
type Probe func(ctx context.Context) error

// HealthHandler agrega las sondas de todos los colaboradores. Cada una
// corre con su propio timeout: la caida de un servicio no enmascara ni
// bloquea el estado de los demas.
type HealthHandler struct {
	logger *zap.Logger
	probes map[string]Probe
}

func NewHealthHandler(logger *zap.Logger, probes map[string]Probe) *HealthHandler {
	return &HealthHandler{logger: logger, probes: probes}
}

// Health maneja GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	services := gin.H{"api": gin.H{"status": "healthy", "connected": true}}
	overall := "healthy"

	for name, probe := range h.probes {
		if probe == nil {
			services[name] = gin.H{"status": "not_configured", "connected": false}
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err := probe(ctx)
		cancel()

		if err != nil {
			h.logger.Warn("health probe failed", zap.String("service", name), zap.Error(err))
			services[name] = gin.H{"status": "unhealthy", "connected": false, "error": err.Error()}
			overall = "degraded"
			continue
		}
		services[name] = gin.H{"status": "healthy", "connected": true}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC(),
		"services":  services,
	})
}
