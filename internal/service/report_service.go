package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/llm"
	"care-relay/internal/render"
	"care-relay/internal/repository"
	"care-relay/internal/storage"
)

const reportInstruction = `Genera el reporte clinico final de esta conversacion en formato Markdown.
Incluye: motivo de consulta, resumen de lo conversado, documentos aportados,
hallazgos relevantes y recomendaciones. Escribe en tercera persona y no
inventes datos que no esten en la conversacion.`

// ReportService orquesta el workflow terminal de una sesion: relectura
// del contexto completo, narrativa del modelo, render a PDF, subida del
// documento y persistencia del registro. Se ejecuta a lo sumo una vez
// por sesion: el primer disparo consume el guard y un intento fallido
// no lo repone.
type ReportService struct {
	builder  *ContextBuilder
	model    llm.Client
	renderer render.Renderer
	blobs    storage.BlobStore
	reports  repository.ReportRepository
	logger   *zap.Logger
}

func NewReportService(
	builder *ContextBuilder,
	model llm.Client,
	renderer render.Renderer,
	blobs storage.BlobStore,
	reports repository.ReportRepository,
	logger *zap.Logger,
) *ReportService {
	if renderer == nil {
		renderer = render.NewDisabledRenderer()
	}
	if blobs == nil {
		blobs = storage.NewDisabledBlobStore()
	}
	return &ReportService{
		builder:  builder,
		model:    model,
		renderer: renderer,
		blobs:    blobs,
		reports:  reports,
		logger:   logger,
	}
}

// Generate dispara el workflow si el guard de la sesion sigue libre.
// Devuelve true si este llamado fue el que consumio el disparo. Las
// fallas de cada paso se registran y abortan los pasos restantes, pero
// nunca se propagan a la sesion ni a la conexion.
func (s *ReportService) Generate(ctx context.Context, sess *domain.Session, trigger ControlSignal) bool {
	if !sess.ConsumeReportTrigger() {
		s.logger.Info("report already attempted, skipping",
			zap.String("session_id", sess.ID), zap.String("trigger", trigger.String()))
		return false
	}

	s.logger.Info("report generation started",
		zap.String("session_id", sess.ID),
		zap.String("user_id", sess.UserID),
		zap.String("trigger", trigger.String()),
	)

	// 1. Releer la conversacion completa, no solo el turno final.
	conversation := s.builder.BuildFull(ctx, sess.ID)
	if len(conversation) == 0 {
		s.logger.Warn("report aborted: empty conversation context", zap.String("session_id", sess.ID))
		return true
	}

	// 2. Narrativa del modelo con instruccion especifica de reporte.
	messages := append(conversation, llm.ChatMessage{Role: domain.RoleUser, Content: reportInstruction})
	prediction, err := s.model.Predict(ctx, messages, llm.Params{MaxTokens: 2000})
	if err != nil || !prediction.Success {
		s.logger.Error("report aborted: model call failed", zap.Error(err), zap.String("session_id", sess.ID))
		return true
	}
	narrative := prediction.GeneratedText

	// 3. Render Markdown -> PDF.
	pdf, err := s.renderer.RenderMarkdown(ctx, narrative)
	if err != nil {
		s.logger.Error("report aborted: render failed", zap.Error(err), zap.String("session_id", sess.ID))
		return true
	}

	// 4. Subir el documento y obtener una ubicacion durable.
	path := storage.BlobPath(sess.ID, sess.UserID, fmt.Sprintf("%s_report.pdf", sess.ID))
	reportURL, err := s.blobs.Upload(ctx, pdf, path)
	if err != nil {
		s.logger.Error("report aborted: blob upload failed", zap.Error(err), zap.String("session_id", sess.ID))
		return true
	}

	// 5. Persistir el registro del reporte.
	if s.reports == nil {
		s.logger.Error("report not persisted: report repository not configured", zap.String("session_id", sess.ID))
		return true
	}
	now := time.Now().UTC()
	report := domain.Report{
		ID:           uuid.NewString(),
		PatientID:    sess.UserID,
		SessionID:    sess.ID,
		Summary:      narrative,
		HealthStatus: healthStatusFor(trigger),
		ReportDate:   now,
		ReportURL:    reportURL,
		CreatedAt:    now,
	}
	if err := s.reports.Save(ctx, report); err != nil {
		s.logger.Error("report persistence failed", zap.Error(err), zap.String("session_id", sess.ID))
		return true
	}

	s.logger.Info("report generated",
		zap.String("session_id", sess.ID),
		zap.String("report_id", report.ID),
		zap.String("report_url", reportURL),
	)
	return true
}

func healthStatusFor(trigger ControlSignal) string {
	if trigger == SignalEmergency {
		return domain.HealthStatusCritical
	}
	return domain.HealthStatusNormal
}
