package domain

import "time"

// Estados de salud con los que se clasifica un reporte.
const (
	HealthStatusNormal   = "Normal"
	HealthStatusFollowUp = "Follow-up"
	HealthStatusCritical = "Critical"
)

type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Report es el artefacto final de una sesion: narrativa generada por el
// modelo mas la ubicacion del documento renderizado.
type Report struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	HealthStatus string    `json:"health_status"`
	ReportDate   time.Time `json:"report_date"`
	ReportURL    string    `json:"report_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PatientSummary combina un paciente con su reporte mas reciente,
// para la vista de tabla.
type PatientSummary struct {
	Patient
	LatestReport *Report `json:"latest_report,omitempty"`
}
