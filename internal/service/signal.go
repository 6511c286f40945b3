package service

import (
	"strings"

	"go.uber.org/zap"
)

// ControlSignal es el significado decodificado de escanear la salida
// del modelo en un turno.
type ControlSignal int

const (
	SignalNone ControlSignal = iota
	SignalEndOfConversation
	SignalEmergency
)

func (s ControlSignal) String() string {
	switch s {
	case SignalEndOfConversation:
		return "end_of_conversation"
	case SignalEmergency:
		return "emergency"
	default:
		return "none"
	}
}

// Tokens centinela que el modelo incrusta en texto libre como canal de
// control. Son literales disjuntos; se detectan por presencia, una vez
// por turno, y se quitan del texto que ve el cliente.
const (
	TokenEndOfConversation = "[END_OF_CONVERSATION]"
	TokenEmergency         = "[EMERGENCY]"
)

// SignalDetector aisla el protocolo de tokens centinela. Si a futuro
// el backend expone un canal estructurado, solo cambia este componente.
type SignalDetector struct {
	logger *zap.Logger
}

func NewSignalDetector(logger *zap.Logger) *SignalDetector {
	return &SignalDetector{logger: logger}
}

// Scan busca los centinelas en el texto generado, los quita y devuelve
// el texto limpio junto con la senal. Multiples ocurrencias de un token
// no generan multiples disparos. Texto vacio no produce senal.
func (d *SignalDetector) Scan(sessionID, generated string) (string, ControlSignal) {
	if strings.TrimSpace(generated) == "" {
		return generated, SignalNone
	}

	signal := SignalNone
	clean := generated

	if strings.Contains(clean, TokenEndOfConversation) {
		clean = strings.ReplaceAll(clean, TokenEndOfConversation, "")
		signal = SignalEndOfConversation
		d.logger.Info("end of conversation signal detected", zap.String("session_id", sessionID))
	}
	if strings.Contains(clean, TokenEmergency) {
		clean = strings.ReplaceAll(clean, TokenEmergency, "")
		// La emergencia pisa al cierre normal: misma accion aguas
		// abajo, distinta severidad de log.
		signal = SignalEmergency
		d.logger.Error("emergency signal detected", zap.String("session_id", sessionID))
	}

	return strings.TrimSpace(clean), signal
}
