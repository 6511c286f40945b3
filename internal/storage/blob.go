package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnavailable indica que el almacenamiento de blobs no esta configurado.
var ErrUnavailable = errors.New("blob storage unavailable")

// BlobStore sube documentos y devuelve una URL durable.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, path string) (string, error)
}

// LocalBlobStore guarda los archivos en disco bajo el layout
// files/{session_id}/{user_id}/{filename} y los expone bajo una URL base.
type LocalBlobStore struct {
	dir     string
	baseURL string
}

func NewLocalBlobStore(dir, baseURL string) *LocalBlobStore {
	return &LocalBlobStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *LocalBlobStore) Upload(_ context.Context, data []byte, path string) (string, error) {
	clean := filepath.Clean("/" + path)
	target := filepath.Join(s.dir, clean)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return s.baseURL + filepath.ToSlash(clean), nil
}

// BlobPath arma la ruta canonica de un documento de sesion.
func BlobPath(sessionID, userID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", sessionID, userID, filepath.Base(filename))
}

type disabledBlobStore struct{}

// NewDisabledBlobStore devuelve un BlobStore que falla siempre con
// ErrUnavailable.
func NewDisabledBlobStore() BlobStore {
	return disabledBlobStore{}
}

func (disabledBlobStore) Upload(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}

// MockBlobStore permite tests sin tocar disco.
type MockBlobStore struct {
	mu      sync.Mutex
	BaseURL string
	Err     error
	Uploads map[string][]byte
}

func (m *MockBlobStore) Upload(_ context.Context, data []byte, path string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Uploads == nil {
		m.Uploads = make(map[string][]byte)
	}
	m.Uploads[path] = data
	base := m.BaseURL
	if base == "" {
		base = "https://blobs.test"
	}
	return base + "/" + path, nil
}
