package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/llm"
	"care-relay/internal/repository"
	"care-relay/internal/stt"
)

// SessionOrchestrator implementa el ciclo por conexion: clasificar el
// frame entrante, persistirlo, armar contexto, invocar al modelo,
// interpretar senales de control y decidir la terminacion. Cada sesion
// es procesada por una unica goroutine (el read loop de su conexion);
// el unico estado compartido entre caminos es el guard del reporte.
type SessionOrchestrator struct {
	classifier *Classifier
	store      repository.ConversationStore
	builder    *ContextBuilder
	model      llm.Client
	detector   *SignalDetector
	reports    *ReportService
	logger     *zap.Logger
}

func NewSessionOrchestrator(
	classifier *Classifier,
	store repository.ConversationStore,
	builder *ContextBuilder,
	model llm.Client,
	detector *SignalDetector,
	reports *ReportService,
	logger *zap.Logger,
) *SessionOrchestrator {
	if store == nil {
		store = repository.NewDisabledConversationStore()
	}
	return &SessionOrchestrator{
		classifier: classifier,
		store:      store,
		builder:    builder,
		model:      model,
		detector:   detector,
		reports:    reports,
		logger:     logger,
	}
}

// HandleFrame procesa un frame entrante y devuelve los frames a enviar
// al cliente. Los errores de validacion y de servicios degradados se
// convierten en frames de error; la sesion sigue activa. Si un turno
// dispara una senal de control, la sesion pasa a Terminating y el
// reporte se genera inline.
func (o *SessionOrchestrator) HandleFrame(ctx context.Context, sess *domain.Session, frame domain.InboundFrame) []domain.OutboundFrame {
	msg, err := o.classifier.Classify(ctx, sess.UserID, sess.ID, frame)
	if err != nil {
		return []domain.OutboundFrame{o.errorFrame(err)}
	}

	var out []domain.OutboundFrame

	// Persistir el mensaje entrante. Una falla del store no es fatal:
	// se degrada a contexto vacio y la conversacion continua.
	if err := o.store.Append(ctx, sess.ID, msg); err != nil {
		o.logger.Warn("append user message failed", zap.Error(err), zap.String("session_id", sess.ID))
	}

	if msg.Role == domain.RoleAudio && msg.Audio != nil {
		tr := domain.NewOutboundFrame(domain.FrameTranscription, msg.Content, "stt")
		success := true
		confidence := msg.Audio.Confidence
		tr.Meta.Success = &success
		tr.Meta.Confidence = &confidence
		out = append(out, tr)
	}

	conversation := o.builder.Build(ctx, sess.ID)
	if len(conversation) == 0 {
		// Store caido o vacio: el turno actual alcanza como contexto.
		conversation = []llm.ChatMessage{{Role: domain.RoleUser, Content: msg.Content}}
	}

	prediction, fromFallback := o.predict(ctx, sess, conversation)

	// El canal de control solo existe en texto generado por el modelo.
	// El eco de fallback repite texto del usuario, asi que un turno
	// degradado nunca produce senal ni dispara el reporte.
	clean := prediction.GeneratedText
	signal := SignalNone
	if !fromFallback {
		clean, signal = o.detector.Scan(sess.ID, prediction.GeneratedText)
	}

	reply := domain.Message{
		ID:        msg.ID + ":reply",
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Role:      domain.RoleAssistant,
		Content:   clean,
		CreatedAt: prediction.Timestamp,
	}
	if err := o.store.Append(ctx, sess.ID, reply); err != nil {
		o.logger.Warn("append assistant message failed", zap.Error(err), zap.String("session_id", sess.ID))
	}

	out = append(out, domain.NewOutboundFrame(domain.FrameText, clean, prediction.ModelID))

	if signal != SignalNone {
		sess.Transition(domain.SessionTerminating)
		o.reports.Generate(ctx, sess, signal)
	}

	return out
}

// predict invoca al modelo y sustituye una respuesta eco si el backend
// falla, para que la sesion siga siendo usable. El segundo retorno
// indica si la prediccion vino del fallback.
func (o *SessionOrchestrator) predict(ctx context.Context, sess *domain.Session, conversation []llm.ChatMessage) (llm.Prediction, bool) {
	prediction, err := o.model.Predict(ctx, conversation, llm.Params{})
	if err != nil || !prediction.Success {
		o.logger.Warn("model predict failed, using echo fallback",
			zap.Error(err), zap.String("session_id", sess.ID))
		prediction, _ = llm.EchoClient{}.Predict(ctx, conversation, llm.Params{})
		return prediction, true
	}
	return prediction, false
}

// Finalize es el camino de terminacion por desconexion: intenta el
// workflow de reporte (idempotente via guard) y cierra la sesion. El
// caller acota el presupuesto con el contexto porque el cliente ya no
// escucha.
func (o *SessionOrchestrator) Finalize(ctx context.Context, sess *domain.Session) {
	sess.Transition(domain.SessionTerminating)

	n, err := o.store.Len(ctx, sess.ID)
	if err == nil {
		o.logger.Info("session ended",
			zap.String("session_id", sess.ID),
			zap.String("user_id", sess.UserID),
			zap.Int64("messages", n),
		)
	}

	o.reports.Generate(ctx, sess, SignalEndOfConversation)
	sess.Transition(domain.SessionClosed)
}

// Abort cierra la sesion sin invocar el reporte. Es el camino de los
// errores de protocolo irrecuperables, que a diferencia de la
// desconexion no disparan el workflow terminal.
func (o *SessionOrchestrator) Abort(sess *domain.Session) {
	sess.Transition(domain.SessionClosed)
	o.logger.Warn("session aborted without report",
		zap.String("session_id", sess.ID), zap.String("user_id", sess.UserID))
}

// errorFrame convierte un error del clasificador en el frame adecuado.
func (o *SessionOrchestrator) errorFrame(err error) domain.OutboundFrame {
	var vErr *ValidationError
	success := false

	switch {
	case errors.As(err, &vErr):
		frame := domain.NewOutboundFrame(domain.FrameError, vErr.Error(), "validation")
		frame.Meta.Success = &success
		return frame
	case errors.Is(err, stt.ErrUnavailable):
		frame := domain.NewOutboundFrame(domain.FrameError, stt.ErrUnavailable.Error(), "stt")
		frame.Meta.Success = &success
		return frame
	default:
		frame := domain.NewOutboundFrame(domain.FrameError, "internal error", "server")
		frame.Meta.Success = &success
		return frame
	}
}
