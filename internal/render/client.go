package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable indica que el servicio de renderizado no esta configurado.
var ErrUnavailable = errors.New("render service unavailable")

// Renderer convierte Markdown en un documento final (PDF).
type Renderer interface {
	RenderMarkdown(ctx context.Context, markdown string) ([]byte, error)
}

// HTTPRenderer implementa Renderer contra un servicio de conversion
// externo que recibe Markdown y responde los bytes del PDF.
type HTTPRenderer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRenderer(baseURL string) *HTTPRenderer {
	return &HTTPRenderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *HTTPRenderer) RenderMarkdown(ctx context.Context, markdown string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/convert", bytes.NewBufferString(markdown))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/markdown")
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("render http error: status=%d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("render empty document")
	}
	return pdf, nil
}

type disabledRenderer struct{}

// NewDisabledRenderer devuelve un Renderer que falla siempre con
// ErrUnavailable.
func NewDisabledRenderer() Renderer {
	return disabledRenderer{}
}

func (disabledRenderer) RenderMarkdown(context.Context, string) ([]byte, error) {
	return nil, ErrUnavailable
}

// MockRenderer permite tests sin servicio de conversion.
type MockRenderer struct {
	Document []byte
	Err      error
	Calls    int
}

func (m *MockRenderer) RenderMarkdown(_ context.Context, _ string) ([]byte, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Document, nil
}
