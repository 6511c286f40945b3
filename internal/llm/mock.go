package llm

import (
	"context"
	"strings"
	"time"
)

// EchoClient responde con un eco del ultimo mensaje de usuario. Se usa
// como fallback cuando el backend real no esta configurado o no
// responde, para que la sesion siga siendo usable.
type EchoClient struct{}

func (EchoClient) Predict(_ context.Context, messages []ChatMessage, _ Params) (Prediction, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Content) != "" {
			last = messages[i].Content
			break
		}
	}
	return Prediction{
		GeneratedText: "Echo: " + last,
		ModelID:       "mock_ai",
		Success:       true,
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (EchoClient) Health(context.Context) error { return nil }

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response  string
	Err       error
	HealthErr error

	// LastMessages guarda el ultimo contexto recibido para aserciones.
	LastMessages []ChatMessage
	Calls        int
}

func (m *MockClient) Predict(_ context.Context, messages []ChatMessage, _ Params) (Prediction, error) {
	m.Calls++
	m.LastMessages = messages
	if m.Err != nil {
		return Prediction{}, m.Err
	}
	return Prediction{
		GeneratedText: m.Response,
		ModelID:       "mock-model",
		Success:       true,
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (m *MockClient) Health(context.Context) error { return m.HealthErr }
