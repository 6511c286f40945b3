package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable indica que el servicio de transcripcion no esta
// configurado o no responde.
var ErrUnavailable = errors.New("Speech-to-Text service not available")

// Transcription es una alternativa de transcripcion con su confianza.
type Transcription struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Result agrupa las transcripciones de un audio.
type Result struct {
	Success        bool            `json:"success"`
	Transcriptions []Transcription `json:"transcriptions"`
	LanguageCode   string          `json:"language_code,omitempty"`
	AudioFormat    string          `json:"audio_format,omitempty"`
}

// Transcriber define la interfaz del colaborador de speech-to-text.
type Transcriber interface {
	TranscribeBase64(ctx context.Context, audioBase64, format, languageCode string) (Result, error)
	Health(ctx context.Context) error
}

// HTTPClient implementa Transcriber contra el servicio externo de
// transcripcion, que recibe el audio en base64 y devuelve alternativas
// con confianza.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(baseURL, apiKey string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type transcribeRequest struct {
	AudioBase64  string `json:"audio_base64"`
	AudioFormat  string `json:"audio_format"`
	LanguageCode string `json:"language_code,omitempty"`
}

func (c *HTTPClient) TranscribeBase64(ctx context.Context, audioBase64, format, languageCode string) (Result, error) {
	bodyBytes, err := json.Marshal(transcribeRequest{
		AudioBase64:  audioBase64,
		AudioFormat:  format,
		LanguageCode: languageCode,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", bytes.NewReader(bodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, errors.Join(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Warn("stt error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		}
		return Result{}, fmt.Errorf("stt http error: status=%d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Result{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("stt backend status=%d", resp.StatusCode)
	}
	return nil
}

type disabledTranscriber struct{}

// NewDisabledTranscriber devuelve un Transcriber que falla siempre con
// ErrUnavailable, para arrancar sin servicio de voz configurado.
func NewDisabledTranscriber() Transcriber {
	return disabledTranscriber{}
}

func (disabledTranscriber) TranscribeBase64(context.Context, string, string, string) (Result, error) {
	return Result{}, ErrUnavailable
}

func (disabledTranscriber) Health(context.Context) error {
	return ErrUnavailable
}

// MockTranscriber permite tests sin servicio externo.
type MockTranscriber struct {
	Result Result
	Err    error
	Calls  int
}

func (m *MockTranscriber) TranscribeBase64(context.Context, string, string, string) (Result, error) {
	m.Calls++
	if m.Err != nil {
		return Result{}, m.Err
	}
	return m.Result, nil
}

func (m *MockTranscriber) Health(context.Context) error { return m.Err }
