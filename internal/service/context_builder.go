package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/llm"
	"care-relay/internal/repository"
)

// ContextBuilder proyecta el log almacenado en entradas role/content
// listas para el modelo. Es una funcion pura del log al momento de la
// lectura; no se persiste por separado.
type ContextBuilder struct {
	store  repository.ConversationStore
	window int
	logger *zap.Logger
}

// NewContextBuilder crea el builder. window limita el contexto a las
// ultimas N entradas; 0 significa sin limite.
func NewContextBuilder(store repository.ConversationStore, window int, logger *zap.Logger) *ContextBuilder {
	if store == nil {
		store = repository.NewDisabledConversationStore()
	}
	return &ContextBuilder{store: store, window: window, logger: logger}
}

// Build devuelve el contexto ventaneado para un turno de chat. Si el
// store no responde, devuelve contexto vacio: la sesion sigue operando
// degradada en lugar de abortar.
func (b *ContextBuilder) Build(ctx context.Context, sessionID string) []llm.ChatMessage {
	messages := b.read(ctx, sessionID)
	if b.window > 0 && len(messages) > b.window {
		messages = messages[len(messages)-b.window:]
	}
	return messages
}

// BuildFull devuelve el contexto completo sin ventanear, para el
// reporte final.
func (b *ContextBuilder) BuildFull(ctx context.Context, sessionID string) []llm.ChatMessage {
	return b.read(ctx, sessionID)
}

func (b *ContextBuilder) read(ctx context.Context, sessionID string) []llm.ChatMessage {
	log, err := b.store.List(ctx, sessionID)
	if err != nil {
		b.logger.Warn("conversation store read failed, using empty context",
			zap.Error(err), zap.String("session_id", sessionID))
		return nil
	}

	out := make([]llm.ChatMessage, 0, len(log))
	for _, msg := range log {
		switch msg.Role {
		case domain.RoleUser, domain.RoleAssistant:
			out = append(out, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
		case domain.RoleAudio:
			// Los turnos de audio entran con su transcripcion.
			out = append(out, llm.ChatMessage{Role: domain.RoleUser, Content: msg.Content})
		case domain.RoleUpload:
			out = append(out, llm.ChatMessage{Role: domain.RoleUser, Content: uploadReference(msg)})
		default:
			out = append(out, llm.ChatMessage{Role: domain.RoleUser, Content: msg.Content})
		}
	}
	return out
}

// uploadReference es la representacion canonica de un documento subido
// dentro del contexto: referencia textual inline con nombre y URL
// durable, sin recuperar bytes en el camino caliente del chat.
func uploadReference(msg domain.Message) string {
	return fmt.Sprintf("[documento adjunto: %s | %s]", msg.Content, msg.DocumentURL)
}
