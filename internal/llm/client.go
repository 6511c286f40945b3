package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChatMessage es una entrada role/content del contexto enviado al modelo.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params ajusta la generacion de un turno.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Prediction es el resultado de una invocacion al modelo.
type Prediction struct {
	GeneratedText string    `json:"generated_text"`
	ModelID       string    `json:"model_id"`
	Success       bool      `json:"success"`
	Timestamp     time.Time `json:"timestamp"`
}

// Client define la interfaz para invocar al backend generativo.
type Client interface {
	Predict(ctx context.Context, messages []ChatMessage, params Params) (Prediction, error)
	Health(ctx context.Context) error
}

// HTTPClient implementa Client contra una API OpenAI-compatible.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente apuntando a chat completions.
func NewHTTPClient(baseURL, apiKey, model string, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (c *HTTPClient) Predict(ctx context.Context, messages []ChatMessage, params Params) (Prediction, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
	}
	if params.MaxTokens > 0 {
		reqBody.MaxTokens = params.MaxTokens
	}
	if params.Temperature > 0 {
		reqBody.Temperature = params.Temperature
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return Prediction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prediction{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Warn("llm error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		}
		return Prediction{}, fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return Prediction{}, fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		return Prediction{}, fmt.Errorf("llm api error: %s", cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return Prediction{}, fmt.Errorf("llm empty response")
	}

	return Prediction{
		GeneratedText: cr.Choices[0].Message.Content,
		ModelID:       c.model,
		Success:       true,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// Health verifica que el backend responda en el endpoint de modelos.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("llm backend status=%d", resp.StatusCode)
	}
	return nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
