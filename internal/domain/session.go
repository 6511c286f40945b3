package domain

import (
	"sync/atomic"
	"time"
)

// SessionState modela el ciclo de vida de una conexion.
type SessionState int32

const (
	SessionActive SessionState = iota
	SessionTerminating
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionTerminating:
		return "terminating"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session representa una conversacion en curso sobre una conexion.
// Es propiedad exclusiva del loop de su conexion; el unico estado que
// puede tocarse desde dos caminos (trigger inline y desconexion) es el
// guard del reporte, por eso es atomico.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	state       atomic.Int32
	reportFired atomic.Bool
}

func NewSession(id, userID string) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Transition avanza el estado solo hacia adelante; nunca retrocede.
func (s *Session) Transition(to SessionState) {
	for {
		cur := s.state.Load()
		if cur >= int32(to) {
			return
		}
		if s.state.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

// ConsumeReportTrigger devuelve true solo para el primer disparo.
// Un disparo consumido no se repone aunque el workflow falle.
func (s *Session) ConsumeReportTrigger() bool {
	return s.reportFired.CompareAndSwap(false, true)
}

// ReportAttempted indica si el guard ya fue consumido.
func (s *Session) ReportAttempted() bool {
	return s.reportFired.Load()
}
