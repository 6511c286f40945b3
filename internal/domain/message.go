package domain

import "time"

// Roles de los mensajes dentro del log conversacional.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleUpload    = "upload"
	RoleAudio     = "audio"
)

// AudioMeta acompana a los mensajes transcriptos desde audio.
type AudioMeta struct {
	Format       string  `json:"format,omitempty"`
	LanguageCode string  `json:"language_code,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// Message es una entrada del log conversacional de una sesion.
// Los tags JSON definen el formato persistido en el store.
type Message struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	SessionID   string     `json:"session_id,omitempty"`
	Role        string     `json:"role"`
	Content     string     `json:"content"`
	DocumentURL string     `json:"s3_doc_url,omitempty"`
	Audio       *AudioMeta `json:"audio,omitempty"`
	CreatedAt   time.Time  `json:"timestamp"`
}
