package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/service"
)

// Server maneja el endpoint WebSocket de sesiones. Cada conexion corre
// su propio read loop en una goroutine; la sesion es propiedad
// exclusiva de ese loop.
type Server struct {
	orchestrator    *service.SessionOrchestrator
	logger          *zap.Logger
	upgrader        websocket.Upgrader
	finalizeTimeout time.Duration
}

func NewServer(orchestrator *service.SessionOrchestrator, finalizeTimeout time.Duration, logger *zap.Logger) *Server {
	if finalizeTimeout <= 0 {
		finalizeTimeout = 30 * time.Second
	}
	return &Server{
		orchestrator:    orchestrator,
		logger:          logger,
		finalizeTimeout: finalizeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle maneja GET /ws: upgrade y loop de la sesion.
func (s *Server) Handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	userID := c.GetHeader("user-id")
	if userID == "" {
		userID = "anonymous"
	}
	sessionID := c.GetHeader("session-id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess := domain.NewSession(sessionID, userID)
	s.logger.Info("websocket connection established",
		zap.String("user_id", userID), zap.String("session_id", sessionID))

	s.run(conn, sess)
}

func (s *Server) run(conn *websocket.Conn, sess *domain.Session) {
	defer conn.Close()
	defer s.finish(sess)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Desconexion del transporte: camino de terminacion que
			// si dispara el workflow de reporte (en finish).
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read error", zap.Error(err), zap.String("session_id", sess.ID))
			} else {
				s.logger.Info("websocket disconnected", zap.String("session_id", sess.ID))
			}
			sess.Transition(domain.SessionTerminating)
			return
		}

		var frame domain.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Frame irrecuperable a nivel protocolo: cierre directo
			// sin reporte, a diferencia de la desconexion.
			s.logger.Warn("malformed frame, closing session",
				zap.Error(err), zap.String("session_id", sess.ID))
			s.orchestrator.Abort(sess)
			return
		}

		frames := s.orchestrator.HandleFrame(context.Background(), sess, frame)
		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				s.logger.Warn("websocket write failed", zap.Error(err), zap.String("session_id", sess.ID))
				sess.Transition(domain.SessionTerminating)
				return
			}
		}

		if sess.State() != domain.SessionActive {
			// Una senal de control termino la sesion en este turno.
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation ended"))
			return
		}
	}
}

// finish corre la finalizacion con presupuesto acotado: el cliente ya
// no escucha, asi que no puede colgarse indefinidamente. Una sesion
// abortada por error de protocolo ya esta Closed y no genera reporte.
func (s *Server) finish(sess *domain.Session) {
	if sess.State() == domain.SessionClosed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.finalizeTimeout)
	defer cancel()
	s.orchestrator.Finalize(ctx, sess)
}
