package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/stt"
)

// ValidationError describe un frame entrante malformado. No cierra la
// sesion: se reporta al cliente y el loop continua.
type ValidationError struct {
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (fields: %s)", e.Reason, strings.Join(e.Fields, ", "))
}

// Classifier valida y normaliza un frame entrante en un Message tipado.
// Un frame lleva exactamente uno de content/audio; ambos o ninguno es
// error de validacion.
type Classifier struct {
	transcriber stt.Transcriber
	logger      *zap.Logger
}

func NewClassifier(transcriber stt.Transcriber, logger *zap.Logger) *Classifier {
	if transcriber == nil {
		transcriber = stt.NewDisabledTranscriber()
	}
	return &Classifier{transcriber: transcriber, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, userID, sessionID string, frame domain.InboundFrame) (domain.Message, error) {
	content := strings.TrimSpace(frame.Content)
	audio := strings.TrimSpace(frame.Audio)

	switch {
	case content != "" && audio != "":
		return domain.Message{}, &ValidationError{
			Reason: "frame must carry exactly one of content or audio, got both",
			Fields: []string{"content", "audio"},
		}
	case content == "" && audio == "":
		return domain.Message{}, &ValidationError{
			Reason: "frame must carry exactly one of content or audio, got neither",
			Fields: []string{"content", "audio"},
		}
	case content != "":
		return domain.Message{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: sessionID,
			Role:      domain.RoleUser,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}, nil
	default:
		return c.classifyAudio(ctx, userID, sessionID, audio, frame)
	}
}

func (c *Classifier) classifyAudio(ctx context.Context, userID, sessionID, audio string, frame domain.InboundFrame) (domain.Message, error) {
	result, err := c.transcriber.TranscribeBase64(ctx, audio, frame.AudioFormat, frame.LanguageCode)
	if err != nil {
		c.logger.Warn("transcription failed",
			zap.Error(err),
			zap.String("session_id", sessionID),
			zap.String("audio_format", frame.AudioFormat),
		)
		return domain.Message{}, errors.Join(stt.ErrUnavailable, err)
	}
	if !result.Success || len(result.Transcriptions) == 0 {
		c.logger.Warn("transcription returned no alternatives", zap.String("session_id", sessionID))
		return domain.Message{}, stt.ErrUnavailable
	}

	best := result.Transcriptions[0]
	return domain.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Role:      domain.RoleAudio,
		Content:   best.Transcript,
		Audio: &domain.AudioMeta{
			Format:       frame.AudioFormat,
			LanguageCode: frame.LanguageCode,
			Confidence:   best.Confidence,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}
