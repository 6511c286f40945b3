package domain

import "time"

// Tipos de frames salientes hacia el cliente.
const (
	FrameText          = "text"
	FrameError         = "error"
	FrameTranscription = "transcription"
)

// InboundFrame es lo que el cliente envia por el socket. La regla de
// exclusion mutua (exactamente uno de content/audio) la aplica el
// clasificador, no el decode.
type InboundFrame struct {
	Role         string `json:"role"`
	Content      string `json:"content,omitempty"`
	Audio        string `json:"audio,omitempty"`
	AudioFormat  string `json:"audio_format,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// FrameMeta acompana cada frame saliente.
type FrameMeta struct {
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Success    *bool     `json:"success,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// OutboundFrame es la respuesta del servidor hacia el cliente.
type OutboundFrame struct {
	Type    string    `json:"type"`
	Content string    `json:"content"`
	Meta    FrameMeta `json:"meta"`
}

// NewOutboundFrame arma un frame con timestamp actual.
func NewOutboundFrame(frameType, content, source string) OutboundFrame {
	return OutboundFrame{
		Type:    frameType,
		Content: content,
		Meta: FrameMeta{
			Source:    source,
			Timestamp: time.Now().UTC(),
		},
	}
}
