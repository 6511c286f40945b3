package http

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/llm"
	"care-relay/internal/repository"
	"care-relay/internal/service"
	"care-relay/internal/storage"
)

// UploadHandler sube documentos al blob store, registra el mensaje de
// upload en el log conversacional y adjunta un turno de analisis del
// modelo sobre el documento.
type UploadHandler struct {
	logger  *zap.Logger
	blobs   storage.BlobStore
	store   repository.ConversationStore
	builder *service.ContextBuilder
	model   llm.Client
}

func NewUploadHandler(
	logger *zap.Logger,
	blobs storage.BlobStore,
	store repository.ConversationStore,
	builder *service.ContextBuilder,
	model llm.Client,
) *UploadHandler {
	if store == nil {
		store = repository.NewDisabledConversationStore()
	}
	if blobs == nil {
		blobs = storage.NewDisabledBlobStore()
	}
	return &UploadHandler{
		logger:  logger,
		blobs:   blobs,
		store:   store,
		builder: builder,
		model:   model,
	}
}

// Upload maneja POST /upload.
func (h *UploadHandler) Upload(c *gin.Context) {
	var req struct {
		UserID        string `json:"user_id" binding:"required"`
		SessionID     string `json:"session_id" binding:"required"`
		Filename      string `json:"filename" binding:"required"`
		ContentBase64 string `json:"content_base64" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid upload request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid base64 content: %v", err)})
		return
	}

	path := storage.BlobPath(req.SessionID, req.UserID, req.Filename)
	url, err := h.blobs.Upload(c.Request.Context(), data, path)
	if err != nil {
		h.logger.Error("blob upload failed", zap.Error(err), zap.String("session_id", req.SessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error during upload"})
		return
	}

	// Registrar el documento en el log conversacional. Si el store no
	// responde, el documento igual quedo subido.
	uploadMsg := domain.Message{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Role:        domain.RoleUpload,
		Content:     req.Filename,
		DocumentURL: url,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.Append(c.Request.Context(), req.SessionID, uploadMsg); err != nil {
		h.logger.Warn("append upload message failed", zap.Error(err), zap.String("session_id", req.SessionID))
	} else {
		h.analyzeDocument(c, req.UserID, req.SessionID, req.Filename, url)
	}

	h.logger.Info("document uploaded",
		zap.String("filename", req.Filename),
		zap.String("user_id", req.UserID),
		zap.String("session_id", req.SessionID),
	)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"s3_url":  url,
		"message": "Document uploaded successfully",
	})
}

// analyzeDocument pide al modelo un analisis del documento en el marco
// de la conversacion y lo agrega como turno del asistente. Una falla
// del modelo degrada a un analisis generico.
func (h *UploadHandler) analyzeDocument(c *gin.Context, userID, sessionID, filename, url string) {
	conversation := h.builder.Build(c.Request.Context(), sessionID)
	instruction := fmt.Sprintf(
		"El paciente adjunto el documento %q (%s). Analizalo en el contexto de la conversacion y resume que aporta.",
		filename, url,
	)
	conversation = append(conversation, llm.ChatMessage{Role: domain.RoleUser, Content: instruction})

	analysis := fmt.Sprintf("I've analyzed the document '%s'. This appears to be a document that has been uploaded to the system for review.", filename)
	prediction, err := h.model.Predict(c.Request.Context(), conversation, llm.Params{})
	if err != nil || !prediction.Success {
		h.logger.Warn("document analysis failed, using fallback", zap.Error(err), zap.String("session_id", sessionID))
	} else {
		analysis = prediction.GeneratedText
	}

	analysisMsg := domain.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   analysis,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Append(c.Request.Context(), sessionID, analysisMsg); err != nil {
		h.logger.Warn("append analysis message failed", zap.Error(err), zap.String("session_id", sessionID))
	}
}
