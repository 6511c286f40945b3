package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/llm"
	"care-relay/internal/repository"
	"care-relay/internal/service"
	"care-relay/internal/storage"
)

func uploadRouter(store repository.ConversationStore, blobs storage.BlobStore, model llm.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	builder := service.NewContextBuilder(store, 0, logger)
	h := NewUploadHandler(logger, blobs, store, builder, model)

	r := gin.New()
	r.POST("/upload", h.Upload)
	return r
}

func postJSON(r *gin.Engine, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpload_Success(t *testing.T) {
	store := repository.NewMemoryConversationStore()
	blobs := &storage.MockBlobStore{}
	model := &llm.MockClient{Response: "El documento aporta resultados de laboratorio recientes."}
	r := uploadRouter(store, blobs, model)

	w := postJSON(r, gin.H{
		"user_id":        "p001",
		"session_id":     "s1",
		"filename":       "laboratorio.pdf",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("contenido pdf")),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		S3URL  string `json:"s3_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q", resp.Status)
	}
	if resp.S3URL != "https://blobs.test/s1/p001/laboratorio.pdf" {
		t.Fatalf("unexpected blob url: %q", resp.S3URL)
	}
	if _, ok := blobs.Uploads["s1/p001/laboratorio.pdf"]; !ok {
		t.Fatalf("expected blob stored under session/user path, got %v", blobs.Uploads)
	}

	// El log conversacional registra el documento y el turno de analisis.
	log, err := store.List(context.Background(), "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected upload + analysis entries, got %d", len(log))
	}
	if log[0].Role != domain.RoleUpload || log[0].Content != "laboratorio.pdf" || log[0].DocumentURL == "" {
		t.Fatalf("unexpected upload entry: %+v", log[0])
	}
	if log[1].Role != domain.RoleAssistant || log[1].Content != model.Response {
		t.Fatalf("unexpected analysis entry: %+v", log[1])
	}
}

func TestUpload_InvalidRequests(t *testing.T) {
	r := uploadRouter(repository.NewMemoryConversationStore(), &storage.MockBlobStore{}, &llm.MockClient{})

	t.Run("campos faltantes", func(t *testing.T) {
		w := postJSON(r, gin.H{"user_id": "p001"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("base64 invalido", func(t *testing.T) {
		w := postJSON(r, gin.H{
			"user_id":        "p001",
			"session_id":     "s1",
			"filename":       "doc.pdf",
			"content_base64": "esto no es base64 ***",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestUpload_AnalysisFallback(t *testing.T) {
	store := repository.NewMemoryConversationStore()
	model := &llm.MockClient{Err: http.ErrHandlerTimeout}
	r := uploadRouter(store, &storage.MockBlobStore{}, model)

	w := postJSON(r, gin.H{
		"user_id":        "p001",
		"session_id":     "s1",
		"filename":       "doc.pdf",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("x")),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("model failure must not fail the upload, got %d", w.Code)
	}
	log, _ := store.List(context.Background(), "s1")
	if len(log) != 2 {
		t.Fatalf("expected upload + fallback analysis, got %d", len(log))
	}
	want := "I've analyzed the document 'doc.pdf'. This appears to be a document that has been uploaded to the system for review."
	if log[1].Content != want {
		t.Fatalf("expected generic fallback analysis, got %q", log[1].Content)
	}
}
