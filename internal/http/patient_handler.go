package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-relay/internal/repository"
)

// PatientHandler expone las lecturas de pacientes y reportes contra el
// store relacional.
type PatientHandler struct {
	logger   *zap.Logger
	patients repository.PatientRepository
	reports  repository.ReportRepository
}

func NewPatientHandler(
	logger *zap.Logger,
	patients repository.PatientRepository,
	reports repository.ReportRepository,
) *PatientHandler {
	return &PatientHandler{logger: logger, patients: patients, reports: reports}
}

// ListPatients maneja GET /patients: todos los pacientes con su ultimo
// reporte.
func (h *PatientHandler) ListPatients(c *gin.Context) {
	if h.patients == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not available"})
		return
	}

	patients, err := h.patients.ListWithLatestReport(c.Request.Context())
	if err != nil {
		h.logger.Error("list patients failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list patients"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// GetPatient maneja GET /patients/:id.
func (h *PatientHandler) GetPatient(c *gin.Context) {
	if h.patients == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not available"})
		return
	}

	patient, err := h.patients.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}
	if err != nil {
		h.logger.Error("get patient failed", zap.Error(err), zap.String("patient_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get patient"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient": patient})
}

// PatientReports maneja GET /patients/:id/reports: timeline de reportes.
func (h *PatientHandler) PatientReports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not available"})
		return
	}

	reports, err := h.reports.ListByPatientID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("list patient reports failed", zap.Error(err), zap.String("patient_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport maneja GET /reports/:id.
func (h *PatientHandler) GetReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not available"})
		return
	}

	report, err := h.reports.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		h.logger.Error("get report failed", zap.Error(err), zap.String("report_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
